package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Transaction is one parsed bank/payment SMS. Immutable once produced by
	// the parser; everything downstream treats it as a value.
	Transaction struct {
		ID          string // SMS id from the source, or a derived stable id
		Amount      Money  // always non-negative; direction lives in IsDebit
		IsDebit     bool
		MerchantRaw string
		BankName    string
		Timestamp   time.Time
		Confidence  float64 // [0,1]
		RawText     string
	}

	// Category groups merchants for reporting. System categories are seeded
	// at startup and cannot be renamed or deleted.
	Category struct {
		Name         string
		Emoji        string
		Color        string
		IsSystem     bool
		DisplayOrder int
	}

	// Alias is a user override mapping one normalized merchant key to a
	// display name and category. Many keys may share a display name.
	Alias struct {
		Key         string
		DisplayName string
		Category    string
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidConfidence = errors.New("confidence out of range")
	ErrEmptyMerchant     = errors.New("empty merchant")
	ErrEmptyRawText      = errors.New("empty raw text")
	ErrZeroTimestamp     = errors.New("zero timestamp")
)

// SignedCents returns the amount with the product-wide sign convention:
// debits positive, credits negative. Group totals and budget spend are
// always computed through this method, never from Amount directly.
func (t Transaction) SignedCents() int64 {
	if t.IsDebit {
		return t.Amount.Cents
	}
	return -t.Amount.Cents
}

func (t Transaction) Validate() error {
	if t.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if t.Confidence < 0 || t.Confidence > 1 {
		return ErrInvalidConfidence
	}
	if strings.TrimSpace(t.MerchantRaw) == "" {
		return ErrEmptyMerchant
	}
	if strings.TrimSpace(t.RawText) == "" {
		return ErrEmptyRawText
	}
	if t.Timestamp.IsZero() {
		return ErrZeroTimestamp
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("empty category name")
	}
	if len(c.Name) > 60 {
		return errors.New("category name too long (max 60 characters)")
	}
	return nil
}

func (a Alias) Validate() error {
	if strings.TrimSpace(a.Key) == "" {
		return errors.New("empty merchant key")
	}
	if strings.TrimSpace(a.DisplayName) == "" {
		return errors.New("empty display name")
	}
	if strings.TrimSpace(a.Category) == "" {
		return errors.New("empty category")
	}
	return nil
}
