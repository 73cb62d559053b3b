// Package grouping aggregates resolved transactions into per-merchant
// groups. Everything here is a pure recomputation over its inputs; callers
// pass a consistent snapshot and get derived values back.
package grouping

import (
	"time"

	"github.com/anuragm339/smart-expense-manager-sub000/internal/core"
)

// Resolved is a parsed transaction together with its resolved merchant
// identity.
type Resolved struct {
	core.Transaction
	DisplayName   string
	Category      string
	CategoryColor string
}

// Group is the aggregation unit for display: all transactions sharing a
// resolved display name.
type Group struct {
	DisplayName   string
	Category      string
	CategoryColor string

	// Transactions ordered by recency, newest first.
	Transactions []core.Transaction

	// TotalCents is the signed sum of member amounts: debits positive,
	// credits negative. Always equals the sum over Transactions regardless
	// of the inclusion flag.
	TotalCents int64

	AverageConfidence float64
	PrimaryBank       string
	LatestTimestamp   time.Time
	EarliestTimestamp time.Time

	// IncludedInTotals controls only the aggregate rollup across groups.
	IncludedInTotals bool
}

// Total returns the group total as Money.
func (g Group) Total() core.Money { return core.Money{Cents: g.TotalCents} }

// Build groups transactions by display name. excluded holds display names
// whose groups are toggled out of aggregate totals; their own fields are
// computed identically. Groups come back in first-seen order; use Sort for a
// specific presentation order.
func Build(items []Resolved, excluded map[string]bool) []Group {
	type builder struct {
		group       *Group
		sumConf     float64
		bankCounts  map[string]int
		bankOrder   []string
		memberOrder []int // indexes into items, for stable recency sort
	}

	byName := make(map[string]*builder)
	var order []string

	for i, it := range items {
		b, ok := byName[it.DisplayName]
		if !ok {
			b = &builder{
				group: &Group{
					DisplayName:      it.DisplayName,
					Category:         it.Category,
					CategoryColor:    it.CategoryColor,
					IncludedInTotals: !excluded[it.DisplayName],
				},
				bankCounts: make(map[string]int),
			}
			byName[it.DisplayName] = b
			order = append(order, it.DisplayName)
		}

		g := b.group
		g.TotalCents += it.SignedCents()
		b.sumConf += it.Confidence
		if _, seen := b.bankCounts[it.BankName]; !seen {
			b.bankOrder = append(b.bankOrder, it.BankName)
		}
		b.bankCounts[it.BankName]++
		if g.LatestTimestamp.IsZero() || it.Timestamp.After(g.LatestTimestamp) {
			g.LatestTimestamp = it.Timestamp
		}
		if g.EarliestTimestamp.IsZero() || it.Timestamp.Before(g.EarliestTimestamp) {
			g.EarliestTimestamp = it.Timestamp
		}
		b.memberOrder = append(b.memberOrder, i)
	}

	groups := make([]Group, 0, len(order))
	for _, name := range order {
		b := byName[name]
		g := b.group

		// Most frequent bank; first-seen order breaks ties.
		best, bestCount := "", -1
		for _, bank := range b.bankOrder {
			if c := b.bankCounts[bank]; c > bestCount {
				best, bestCount = bank, c
			}
		}
		g.PrimaryBank = best
		g.AverageConfidence = b.sumConf / float64(len(b.memberOrder))

		g.Transactions = make([]core.Transaction, len(b.memberOrder))
		for i, idx := range b.memberOrder {
			g.Transactions[i] = items[idx].Transaction
		}
		sortNewestFirst(g.Transactions)

		groups = append(groups, *g)
	}
	return groups
}

// TotalIncludedCents sums the signed totals of included groups only.
// Excluded groups keep their own correct totals; they just do not roll up.
func TotalIncludedCents(groups []Group) int64 {
	var total int64
	for _, g := range groups {
		if g.IncludedInTotals {
			total += g.TotalCents
		}
	}
	return total
}

// sortNewestFirst orders transactions by timestamp descending, preserving
// input order for equal timestamps.
func sortNewestFirst(txs []core.Transaction) {
	// insertion sort keeps the sort stable without an index decoration;
	// groups are small.
	for i := 1; i < len(txs); i++ {
		for j := i; j > 0 && txs[j].Timestamp.After(txs[j-1].Timestamp); j-- {
			txs[j], txs[j-1] = txs[j-1], txs[j]
		}
	}
}
