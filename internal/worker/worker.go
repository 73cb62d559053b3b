// Package worker consumes change events and keeps the external spreadsheet
// and the spending cache in step with the transaction store.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/anuragm339/smart-expense-manager-sub000/internal/budget"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/cache"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/core"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/events"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/export"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/grouping"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/merchant"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/storage"
)

// SyncWorker mirrors merchant groups to a spreadsheet whenever an alias,
// category or inclusion change arrives, and warns when a change pushes a
// category over budget. Per-category spend is cached; any event invalidates
// the affected category's entries.
type SyncWorker struct {
	repo     *storage.Repository
	resolver *merchant.Resolver
	sheet    export.GroupWriter
	spend    *cache.TTLCache[int64]
}

func NewSyncWorker(repo *storage.Repository, resolver *merchant.Resolver, sheet export.GroupWriter, spend *cache.TTLCache[int64]) *SyncWorker {
	return &SyncWorker{
		repo:     repo,
		resolver: resolver,
		sheet:    sheet,
		spend:    spend,
	}
}

// HandleEvent dispatches one envelope. Unknown kinds are logged and dropped
// rather than redelivered forever.
func (w *SyncWorker) HandleEvent(ctx context.Context, env events.Envelope) error {
	switch env.Kind {
	case events.KindMerchantAliasChanged:
		var p events.MerchantAliasChanged
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("decode alias payload: %w", err)
		}
		slog.InfoContext(ctx, "alias change received",
			"keys", p.Keys, "display_name", p.DisplayName, "category", p.Category)
		w.invalidateCategory(p.Category)
		return w.Sync(ctx)

	case events.KindCategoryChanged:
		var p events.CategoryChanged
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("decode category payload: %w", err)
		}
		slog.InfoContext(ctx, "category change received",
			"merchant_key", p.MerchantKey, "new_category", p.NewCategory)
		w.invalidateCategory(p.NewCategory)
		return w.Sync(ctx)

	case events.KindGroupInclusionChanged:
		var p events.GroupInclusionChanged
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("decode inclusion payload: %w", err)
		}
		slog.InfoContext(ctx, "inclusion change received",
			"display_name", p.DisplayName, "included", p.Included)
		return w.Sync(ctx)

	default:
		slog.WarnContext(ctx, "dropping unknown event kind", "kind", env.Kind)
		return nil
	}
}

// Sync rebuilds the current group view and appends it to the sheet, then
// re-checks budgets. Called on every event and from the periodic ticker.
func (w *SyncWorker) Sync(ctx context.Context) error {
	if err := w.resolver.Hydrate(ctx); err != nil {
		return fmt.Errorf("rehydrate aliases: %w", err)
	}

	txs, err := w.repo.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	excluded, err := w.repo.ExcludedGroups(ctx)
	if err != nil {
		return fmt.Errorf("load exclusions: %w", err)
	}

	items := make([]grouping.Resolved, 0, len(txs))
	included := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		name, cat, color := w.resolver.Resolve(tx.MerchantRaw)
		items = append(items, grouping.Resolved{
			Transaction:   tx,
			DisplayName:   name,
			Category:      cat,
			CategoryColor: color,
		})
		if !excluded[name] {
			included = append(included, tx)
		}
	}
	groups := grouping.Build(items, excluded)
	grouping.Sort(groups, grouping.SortByTotal, true)

	if w.sheet != nil {
		if err := w.sheet.AppendGroups(ctx, groups, time.Now()); err != nil {
			return fmt.Errorf("append groups: %w", err)
		}
		slog.InfoContext(ctx, "groups exported", "count", len(groups))
	}

	// Budget spend counts included groups only, matching the rollup.
	w.checkBudgets(ctx, included)
	return nil
}

// checkBudgets logs a warning for every active budget at or past its limit.
// Failures here never fail the sync; budget alerts are best-effort.
func (w *SyncWorker) checkBudgets(ctx context.Context, txs []core.Transaction) {
	budgets, err := w.repo.ListBudgets(ctx)
	if err != nil {
		slog.WarnContext(ctx, "budget check skipped", "error", err)
		return
	}
	now := time.Now()
	for _, b := range budgets {
		if !b.Active {
			continue
		}
		spent := w.spendFor(b, txs, now)
		if spent >= b.AmountCents {
			slog.WarnContext(ctx, "budget exceeded",
				"category", b.Category,
				"period", b.Period,
				"budget_cents", b.AmountCents,
				"spent_cents", spent)
		}
	}
}

// spendFor returns cached signed spend for the budget's current window,
// computing and caching on miss.
func (w *SyncWorker) spendFor(b budget.Budget, txs []core.Transaction, now time.Time) int64 {
	key := cache.SpendingKey(b.Category, now, b.Period == budget.Yearly)
	if w.spend != nil {
		if cents, ok := w.spend.Get(key); ok {
			return cents
		}
	}
	start, end := b.Window(now)
	spend := budget.SpendInWindow(w.categoryOf, txs, start, end)
	cents := spend[b.Category]
	if w.spend != nil {
		w.spend.Set(key, cents)
	}
	return cents
}

func (w *SyncWorker) categoryOf(tx core.Transaction) string {
	_, cat, _ := w.resolver.Resolve(tx.MerchantRaw)
	return cat
}

// invalidateCategory drops every cached window for the category the
// merchant moved into. The category it left is not carried in the event, so
// those windows stay until the TTL expires; an alert can lag by at most one
// TTL on the losing side.
func (w *SyncWorker) invalidateCategory(category string) {
	if w.spend == nil {
		return
	}
	if category == "" {
		w.spend.Clear()
		return
	}
	w.spend.InvalidatePrefix(category + "|")
}
