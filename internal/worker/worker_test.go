package worker

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/anuragm339/smart-expense-manager-sub000/internal/budget"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/cache"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/category"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/core"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/events"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/grouping"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/merchant"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/storage"
)

type captureSheet struct {
	mu    sync.Mutex
	calls [][]grouping.Group
}

func (c *captureSheet) AppendGroups(_ context.Context, groups []grouping.Group, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, groups)
	return nil
}

func newTestWorker(t *testing.T) (*SyncWorker, *storage.Repository, *captureSheet, *cache.TTLCache[int64]) {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "worker.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ctx := context.Background()
	registry := category.NewRegistry(repo)
	if err := registry.Hydrate(ctx); err != nil {
		t.Fatalf("hydrate categories: %v", err)
	}
	resolver := merchant.NewResolver(registry, repo, nil)
	if err := resolver.Hydrate(ctx); err != nil {
		t.Fatalf("hydrate aliases: %v", err)
	}

	sheet := &captureSheet{}
	spend := cache.New[int64](16, time.Minute)
	return NewSyncWorker(repo, resolver, sheet, spend), repo, sheet, spend
}

func seedTransactions(t *testing.T, repo *storage.Repository) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	txs := []core.Transaction{
		{ID: "s1", Amount: core.Money{Cents: 45000}, IsDebit: true, MerchantRaw: "SWIGGY",
			BankName: "HDFC Bank", Timestamp: now, Confidence: 0.8, RawText: "r"},
		{ID: "s2", Amount: core.Money{Cents: 20000}, IsDebit: true, MerchantRaw: "SWIGGY",
			BankName: "HDFC Bank", Timestamp: now.Add(-time.Hour), Confidence: 0.7, RawText: "r"},
	}
	for _, tx := range txs {
		if _, err := repo.InsertTransaction(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}
}

func TestHandleEventAliasChanged(t *testing.T) {
	ctx := context.Background()
	w, repo, sheet, _ := newTestWorker(t)
	seedTransactions(t, repo)

	raw, err := events.Wrap(events.KindMerchantAliasChanged, events.MerchantAliasChanged{
		Keys: []string{"SWIGGY"}, DisplayName: "Swiggy", Category: "Food & Dining",
	})
	if err != nil {
		t.Fatal(err)
	}
	env, err := events.Decode(raw)
	if err != nil {
		t.Fatal(err)
	}

	if err := w.HandleEvent(ctx, env); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(sheet.calls) != 1 {
		t.Fatalf("expected one sheet append, got %d", len(sheet.calls))
	}
	groups := sheet.calls[0]
	if len(groups) != 1 || groups[0].TotalCents != 65000 {
		t.Errorf("unexpected groups exported: %+v", groups)
	}
}

func TestHandleEventUnknownKindDropped(t *testing.T) {
	w, _, sheet, _ := newTestWorker(t)

	err := w.HandleEvent(context.Background(), events.Envelope{Kind: "mystery"})
	if err != nil {
		t.Fatalf("unknown kinds must be dropped, not redelivered: %v", err)
	}
	if len(sheet.calls) != 0 {
		t.Error("unknown kind must not trigger a sync")
	}
}

func TestSyncCachesSpend(t *testing.T) {
	ctx := context.Background()
	w, repo, _, spend := newTestWorker(t)
	seedTransactions(t, repo)

	// The transactions resolve to the default category; budget it tightly
	// so the check path runs.
	b := budget.Budget{Category: "Other", AmountCents: 1000, Period: budget.Monthly, Active: true}
	if err := repo.UpsertBudget(ctx, b); err != nil {
		t.Fatal(err)
	}

	if err := w.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	key := cache.SpendingKey("Other", time.Now(), false)
	cents, ok := spend.Get(key)
	if !ok {
		t.Fatal("sync must populate the spending cache")
	}
	if cents != 65000 {
		t.Errorf("cached spend: expected 65000, got %d", cents)
	}
}

func TestInvalidateOnCategoryChange(t *testing.T) {
	ctx := context.Background()
	w, repo, _, spend := newTestWorker(t)
	seedTransactions(t, repo)

	spend.Set(cache.SpendingKey("Shopping", time.Now(), false), 123)
	spend.Set(cache.SpendingKey("Other", time.Now(), false), 456)

	raw, err := events.Wrap(events.KindCategoryChanged, events.CategoryChanged{
		MerchantKey: "AMZN", NewCategory: "Shopping",
	})
	if err != nil {
		t.Fatal(err)
	}
	env, _ := events.Decode(raw)
	if err := w.HandleEvent(ctx, env); err != nil {
		t.Fatal(err)
	}

	if _, ok := spend.Get(cache.SpendingKey("Shopping", time.Now(), false)); ok {
		t.Error("changed category's cached spend must be invalidated")
	}
}
