// Package parser turns raw bank/payment SMS text into structured
// transactions. It is pure: same text, sender and timestamp always produce
// the same result, and malformed input is rejected, never panics.
package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/anuragm339/smart-expense-manager-sub000/internal/core"
)

// Merchant rule names, in the priority order the parser tries them.
const (
	RuleAt      = "at"
	RuleTo      = "to"
	RuleFor     = "for"
	RuleUPI     = "upi"
	RuleRefCode = "refcode"
)

// RejectReason explains why a message produced no transaction. Rejection is
// not an error: callers log the reason and move on.
type RejectReason string

const (
	RejectNone             RejectReason = ""
	RejectAmountMissing    RejectReason = "amount_missing"
	RejectMerchantMissing  RejectReason = "merchant_missing"
	RejectNonTransactional RejectReason = "non_transactional"
)

var (
	amountPattern = regexp.MustCompile(`(?i)(?:rs\.?|inr|₹)\s*(?P<amount>[0-9][0-9,]*(?:\.[0-9]+)?)`)

	debitPattern  = regexp.MustCompile(`(?i)\b(debited|debit|withdrawn|spent|sent|paid|purchased?)\b`)
	creditPattern = regexp.MustCompile(`(?i)\b(credited|credit|received|deposited|refunded|refund|reversed)\b`)

	otpPattern     = regexp.MustCompile(`(?i)\b(otp|one[ -]?time password|verification code|do not share)\b`)
	promoPattern   = regexp.MustCompile(`(?i)\b(offer|discount|sale|coupon|congratulations|winner|reward points|apply now|t&c apply)\b`)
	balancePattern = regexp.MustCompile(`(?i)\b(balance enquiry|balance inquiry|avl bal|available balance|your (?:a/?c|account) balance)\b`)
)

type merchantRule struct {
	name string
	re   *regexp.Regexp
}

// merchantRules are tried in order; the first match wins. Positional rules
// stop at reference markers (* # @ /) so "for SWIGGY*ORDER123" captures
// SWIGGY, not the reference code.
var merchantRules = []merchantRule{
	{RuleAt, regexp.MustCompile(`(?i)\bat\s+(?P<merchant>[A-Za-z][A-Za-z0-9 .&'-]{0,39}?)(?:\s+(?:on|via|using|ref|txn|avl)\b|[*#@/.,;:\n]|$)`)},
	{RuleTo, regexp.MustCompile(`(?i)\bto\s+(?P<merchant>[A-Za-z][A-Za-z0-9 .&'-]{0,39}?)(?:\s+(?:on|via|using|ref|txn|avl)\b|[*#@/.,;:\n]|$)`)},
	{RuleFor, regexp.MustCompile(`(?i)\bfor\s+(?P<merchant>[A-Za-z][A-Za-z0-9 .&'-]{0,39}?)(?:\s+(?:on|via|using|ref|txn|avl)\b|[*#@/.,;:\n]|$)`)},
	{RuleUPI, regexp.MustCompile(`(?i)\bUPI[/-](?P<merchant>[A-Za-z][A-Za-z0-9.&-]{0,39}?)(?:[/@*# ,;:\n]|$)`)},
	{RuleRefCode, regexp.MustCompile(`\b(?P<merchant>[A-Za-z]{3,}[A-Za-z0-9]*)\*[A-Za-z0-9]+`)},
}

// Parser extracts transactions from SMS text using a static rule table, a
// bank sender registry and a confidence weight table.
type Parser struct {
	weights Weights
	banks   *BankRegistry
}

// New returns a parser with the default weight table and bank registry.
func New() *Parser {
	return NewWithWeights(DefaultWeights(), NewBankRegistry())
}

// NewWithWeights returns a parser with a custom weight table, for tests and
// tuning.
func NewWithWeights(w Weights, banks *BankRegistry) *Parser {
	return &Parser{weights: w, banks: banks}
}

// Parse extracts a transaction from one message. reason is RejectNone on
// success; on rejection the returned transaction is the zero value.
func (p *Parser) Parse(text, senderHint string, ts time.Time) (core.Transaction, RejectReason) {
	text = strings.TrimSpace(text)
	if text == "" {
		return core.Transaction{}, RejectAmountMissing
	}

	if otpPattern.MatchString(text) || promoPattern.MatchString(text) {
		return core.Transaction{}, RejectNonTransactional
	}

	amounts := amountPattern.FindAllStringSubmatch(text, -1)
	if len(amounts) == 0 {
		return core.Transaction{}, RejectAmountMissing
	}
	// The transaction amount comes first; trailing matches are usually the
	// available balance.
	cents, err := core.ParseAmountToCents(amounts[0][amountPattern.SubexpIndex("amount")])
	if err != nil {
		return core.Transaction{}, RejectAmountMissing
	}

	isDebit, directionFound, directionClear := direction(text)
	if !directionFound && balancePattern.MatchString(text) {
		// An amount with balance wording but no debit/credit keyword is a
		// balance notification, not a transaction.
		return core.Transaction{}, RejectNonTransactional
	}

	merchant, ruleName, ok := extractMerchant(text)
	if !ok {
		return core.Transaction{}, RejectMerchantMissing
	}

	bankName, knownBank := p.banks.Lookup(senderHint)
	if !knownBank {
		bankName = fallbackBankName(senderHint)
	}

	unambiguous := directionClear && len(amounts) == 1
	score := p.weights.Base + p.weights.Pattern[ruleName]
	if knownBank {
		score += p.weights.KnownBank
	}
	if unambiguous {
		score += p.weights.Unambiguous
	}

	return core.Transaction{
		Amount:      core.Money{Cents: cents},
		IsDebit:     isDebit,
		MerchantRaw: merchant,
		BankName:    bankName,
		Timestamp:   ts,
		Confidence:  clamp01(score),
		RawText:     text,
	}, RejectNone
}

// direction classifies the debit/credit keywords in text. clear is false
// when no keyword or both kinds were found; with both kinds, the earlier
// keyword wins. With none, money-out is assumed.
func direction(text string) (isDebit, found, clear bool) {
	debitLoc := debitPattern.FindStringIndex(text)
	creditLoc := creditPattern.FindStringIndex(text)
	switch {
	case debitLoc != nil && creditLoc != nil:
		return debitLoc[0] <= creditLoc[0], true, false
	case debitLoc != nil:
		return true, true, true
	case creditLoc != nil:
		return false, true, true
	default:
		return true, false, false
	}
}

func extractMerchant(text string) (merchant, rule string, ok bool) {
	for _, r := range merchantRules {
		m := r.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		raw := m[r.re.SubexpIndex("merchant")]
		raw = strings.Trim(strings.TrimSpace(raw), ".")
		if raw == "" {
			continue
		}
		return raw, r.name, true
	}
	return "", "", false
}
