package parser

import (
	"math"
	"testing"
	"time"
)

var ts = time.Date(2025, 1, 12, 10, 30, 0, 0, time.UTC)

func TestParseAccepted(t *testing.T) {
	p := New()
	cases := []struct {
		name     string
		text     string
		sender   string
		cents    int64
		isDebit  bool
		merchant string
		bank     string
	}{
		{
			name:     "card spend with reference code",
			text:     "Rs.450.00 debited from A/c XX1234 for SWIGGY*ORDER123 on 12-Jan",
			sender:   "VM-HDFCBK-S",
			cents:    45000,
			isDebit:  true,
			merchant: "SWIGGY",
			bank:     "HDFC Bank",
		},
		{
			name:     "at-merchant with trailing balance",
			text:     "Rs.500 spent at DOMINOS on your card. Avl Bal Rs.1200",
			sender:   "AX-ICICIB",
			cents:    50000,
			isDebit:  true,
			merchant: "DOMINOS",
			bank:     "ICICI Bank",
		},
		{
			name:     "upi credit",
			text:     "Rs.1,200.00 credited - received via UPI/RAHUL@okaxis",
			sender:   "AD-SBIUPI",
			cents:    120000,
			isDebit:  false,
			merchant: "RAHUL",
			bank:     "State Bank of India",
		},
		{
			name:     "comma grouping and paid keyword",
			text:     "INR 12,345.50 paid to AMAZON",
			sender:   "JX-AXISBK",
			cents:    1234550,
			isDebit:  true,
			merchant: "AMAZON",
			bank:     "Axis Bank",
		},
		{
			name:     "no direction keyword defaults to debit",
			text:     "Rs.250 at STARBUCKS",
			sender:   "",
			cents:    25000,
			isDebit:  true,
			merchant: "STARBUCKS",
			bank:     "UNKNOWN",
		},
		{
			name:     "debit and credit keywords: earlier wins",
			text:     "Rs.100 debited, failed txn refunded to CARD",
			sender:   "VM-HDFCBK-S",
			cents:    10000,
			isDebit:  true,
			merchant: "CARD",
			bank:     "HDFC Bank",
		},
		{
			name:     "unknown sender falls back to sender code",
			text:     "Rs.75 spent at CAFE",
			sender:   "JD-FEDBNK-S",
			cents:    7500,
			isDebit:  true,
			merchant: "CAFE",
			bank:     "FEDBNK",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx, reason := p.Parse(tc.text, tc.sender, ts)
			if reason != RejectNone {
				t.Fatalf("rejected: %s", reason)
			}
			if tx.Amount.Cents != tc.cents {
				t.Errorf("amount: expected %d, got %d", tc.cents, tx.Amount.Cents)
			}
			if tx.IsDebit != tc.isDebit {
				t.Errorf("isDebit: expected %v, got %v", tc.isDebit, tx.IsDebit)
			}
			if tx.MerchantRaw != tc.merchant {
				t.Errorf("merchant: expected %q, got %q", tc.merchant, tx.MerchantRaw)
			}
			if tx.BankName != tc.bank {
				t.Errorf("bank: expected %q, got %q", tc.bank, tx.BankName)
			}
			if !tx.Timestamp.Equal(ts) {
				t.Errorf("timestamp: expected %v, got %v", ts, tx.Timestamp)
			}
			if tx.Confidence <= 0 || tx.Confidence > 1 {
				t.Errorf("confidence out of range: %v", tx.Confidence)
			}
		})
	}
}

func TestParseRejected(t *testing.T) {
	p := New()
	cases := []struct {
		name   string
		text   string
		reason RejectReason
	}{
		{"otp", "Your OTP is 123456. Do not share it with anyone.", RejectNonTransactional},
		{"promo", "Congratulations! Flat 50% discount, Rs.200 off at PIZZAHUT. Apply now", RejectNonTransactional},
		{"balance notification", "Avl Bal in A/c XX1234 is Rs.5,000.00", RejectNonTransactional},
		{"no amount", "Your account statement for Jan is ready", RejectAmountMissing},
		{"no merchant", "Rs.300 debited from your account", RejectMerchantMissing},
		{"empty", "", RejectAmountMissing},
		{"whitespace only", "   \n  ", RejectAmountMissing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx, reason := p.Parse(tc.text, "VM-HDFCBK-S", ts)
			if reason != tc.reason {
				t.Fatalf("expected %q, got %q", tc.reason, reason)
			}
			if tx.RawText != "" {
				t.Errorf("rejected message must return a zero transaction")
			}
		})
	}
}

func TestParseConfidenceScoring(t *testing.T) {
	p := New()
	w := DefaultWeights()

	// Known bank, single amount, clear debit, positional "for" rule.
	tx, reason := p.Parse("Rs.450.00 debited for SWIGGY*ORDER123", "VM-HDFCBK-S", ts)
	if reason != RejectNone {
		t.Fatalf("rejected: %s", reason)
	}
	want := w.Base + w.Pattern[RuleFor] + w.KnownBank + w.Unambiguous
	if math.Abs(tx.Confidence-want) > 1e-9 {
		t.Errorf("expected confidence %v, got %v", want, tx.Confidence)
	}
	if tx.Confidence <= 0.7 {
		t.Errorf("well-formed bank SMS must score above 0.7, got %v", tx.Confidence)
	}

	// Same message from an unknown sender, with a second amount: both
	// bonuses gone.
	tx, reason = p.Parse("Rs.450.00 debited for SWIGGY*ORDER123. Avl Bal Rs.900", "ZZ-NOBANK", ts)
	if reason != RejectNone {
		t.Fatalf("rejected: %s", reason)
	}
	want = w.Base + w.Pattern[RuleFor]
	if math.Abs(tx.Confidence-want) > 1e-9 {
		t.Errorf("expected confidence %v, got %v", want, tx.Confidence)
	}
}

func TestParseDeterministic(t *testing.T) {
	p := New()
	text := "Rs.450.00 debited from A/c XX1234 for SWIGGY*ORDER123 on 12-Jan"
	first, _ := p.Parse(text, "VM-HDFCBK-S", ts)
	for i := 0; i < 10; i++ {
		got, _ := p.Parse(text, "VM-HDFCBK-S", ts)
		if got != first {
			t.Fatalf("parse not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestBankRegistryLookup(t *testing.T) {
	r := NewBankRegistry()
	cases := []struct {
		hint string
		want string
		ok   bool
	}{
		{"VM-HDFCBK-S", "HDFC Bank", true},
		{"vm-hdfcbk", "HDFC Bank", true},
		{"AD-SBIUPI", "State Bank of India", true},
		{"JD-FEDBNK-S", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := r.Lookup(tc.hint)
		if ok != tc.ok || got != tc.want {
			t.Errorf("Lookup(%q) = %q,%v; expected %q,%v", tc.hint, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFallbackBankName(t *testing.T) {
	cases := []struct {
		hint string
		want string
	}{
		{"JD-FEDBNK-S", "FEDBNK"},
		{"fedbnk", "FEDBNK"},
		{"", "UNKNOWN"},
		{"-", "UNKNOWN"},
	}
	for _, tc := range cases {
		if got := fallbackBankName(tc.hint); got != tc.want {
			t.Errorf("fallbackBankName(%q) = %q; expected %q", tc.hint, got, tc.want)
		}
	}
}
