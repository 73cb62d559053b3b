// Package budget tracks per-category spending limits over calendar periods.
package budget

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anuragm339/smart-expense-manager-sub000/internal/core"
)

// Period is the calendar window a budget applies to.
type Period string

const (
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

var (
	ErrInvalidPeriod = errors.New("invalid budget period")
	ErrInvalidBudget = errors.New("invalid budget amount")
)

// Budget is a per-category spending limit.
type Budget struct {
	Category    string
	AmountCents int64
	Period      Period
	Active      bool
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return errors.New("empty budget category")
	}
	if b.AmountCents <= 0 {
		return ErrInvalidBudget
	}
	switch b.Period {
	case Monthly, Yearly:
	default:
		return ErrInvalidPeriod
	}
	return nil
}

// Window returns the period bounds containing ref: [start, end).
func (b Budget) Window(ref time.Time) (start, end time.Time) {
	switch b.Period {
	case Yearly:
		start = time.Date(ref.Year(), 1, 1, 0, 0, 0, 0, ref.Location())
		return start, start.AddDate(1, 0, 0)
	default:
		start = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
		return start, start.AddDate(0, 1, 0)
	}
}

// Status is a budget evaluated against actual spend.
type Status struct {
	Budget         Budget
	SpentCents     int64
	RemainingCents int64
	PercentUsed    float64
	PeriodStart    time.Time
	PeriodEnd      time.Time
}

// Store persists budgets.
type Store interface {
	UpsertBudget(ctx context.Context, b Budget) error
	DeleteBudget(ctx context.Context, category string, period Period) error
	ListBudgets(ctx context.Context) ([]Budget, error)
}

// Spend is signed per-category spend in cents for a time window.
type Spend map[string]int64

// SpendInWindow sums signed amounts per category for transactions inside
// [start, end). Credits reduce spend; the floor is zero so a refund-heavy
// month never reports negative usage.
func SpendInWindow(categoryOf func(core.Transaction) string, txs []core.Transaction, start, end time.Time) Spend {
	spend := make(Spend)
	for _, tx := range txs {
		if tx.Timestamp.Before(start) || !tx.Timestamp.Before(end) {
			continue
		}
		spend[categoryOf(tx)] += tx.SignedCents()
	}
	for cat, cents := range spend {
		if cents < 0 {
			spend[cat] = 0
		}
	}
	return spend
}

// Evaluate computes the status of every active budget at ref time.
func Evaluate(budgets []Budget, categoryOf func(core.Transaction) string, txs []core.Transaction, ref time.Time) []Status {
	out := make([]Status, 0, len(budgets))
	for _, b := range budgets {
		if !b.Active {
			continue
		}
		start, end := b.Window(ref)
		spend := SpendInWindow(categoryOf, txs, start, end)
		spent := spend[b.Category]
		s := Status{
			Budget:         b,
			SpentCents:     spent,
			RemainingCents: b.AmountCents - spent,
			PeriodStart:    start,
			PeriodEnd:      end,
		}
		if b.AmountCents > 0 {
			s.PercentUsed = float64(spent) / float64(b.AmountCents) * 100
		}
		out = append(out, s)
	}
	return out
}
