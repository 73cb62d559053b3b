package grouping

import (
	"strings"
	"time"
)

// Filter selects transactions before grouping. Filtering only removes
// transactions; survivors pass through unmodified, so filtered group totals
// still satisfy the sum invariant over their members.
type Filter struct {
	// Search is a case-insensitive substring matched against merchant,
	// display name, bank, category and the raw message text.
	Search string

	// Amount bounds in cents, inclusive. Nil means unbounded.
	MinAmountCents *int64
	MaxAmountCents *int64

	// Banks restricts to the given bank names. Empty means all banks.
	Banks []string

	// MinConfidence drops transactions parsed below this score.
	MinConfidence float64

	// Date range, inclusive. Zero values mean unbounded.
	From time.Time
	To   time.Time
}

// Apply returns the transactions passing every criterion, in input order.
func (f Filter) Apply(items []Resolved) []Resolved {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	bankSet := make(map[string]bool, len(f.Banks))
	for _, b := range f.Banks {
		bankSet[strings.ToLower(b)] = true
	}

	out := make([]Resolved, 0, len(items))
	for _, it := range items {
		if search != "" && !matchesSearch(it, search) {
			continue
		}
		if f.MinAmountCents != nil && it.Amount.Cents < *f.MinAmountCents {
			continue
		}
		if f.MaxAmountCents != nil && it.Amount.Cents > *f.MaxAmountCents {
			continue
		}
		if len(bankSet) > 0 && !bankSet[strings.ToLower(it.BankName)] {
			continue
		}
		if it.Confidence < f.MinConfidence {
			continue
		}
		if !f.From.IsZero() && it.Timestamp.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && it.Timestamp.After(f.To) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func matchesSearch(it Resolved, search string) bool {
	for _, field := range []string{it.MerchantRaw, it.DisplayName, it.BankName, it.Category, it.RawText} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}
