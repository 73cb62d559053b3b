package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/anuragm339/smart-expense-manager-sub000/internal/budget"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/core"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleTx(id string, cents int64, ts time.Time) core.Transaction {
	return core.Transaction{
		ID:          id,
		Amount:      core.Money{Cents: cents},
		IsDebit:     true,
		MerchantRaw: "SWIGGY",
		BankName:    "HDFC Bank",
		Timestamp:   ts,
		Confidence:  0.75,
		RawText:     "Rs.450 debited for SWIGGY*1",
	}
}

func TestTransactionDedup(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	ts := time.Date(2025, 1, 12, 10, 30, 0, 0, time.UTC)

	inserted, err := repo.InsertTransaction(ctx, sampleTx("sms-1", 45000, ts))
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}
	inserted, err = repo.InsertTransaction(ctx, sampleTx("sms-1", 45000, ts))
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if inserted {
		t.Error("same sms id must not insert twice")
	}

	ok, err := repo.HasTransaction(ctx, "sms-1")
	if err != nil || !ok {
		t.Errorf("HasTransaction: %v/%v", ok, err)
	}
	ok, _ = repo.HasTransaction(ctx, "sms-404")
	if ok {
		t.Error("unknown sms id reported present")
	}
	if n, _ := repo.CountTransactions(ctx); n != 1 {
		t.Errorf("expected 1 transaction, got %d", n)
	}
}

func TestListTransactionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if _, err := repo.InsertTransaction(ctx, sampleTx(id, 100, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	txs, err := repo.ListTransactions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 3 || txs[0].ID != "c" || txs[2].ID != "a" {
		t.Fatalf("expected newest first, got %v", txs)
	}
	// Round-trip fidelity.
	if txs[0].Amount.Cents != 100 || !txs[0].IsDebit || txs[0].MerchantRaw != "SWIGGY" {
		t.Errorf("fields lost in round trip: %+v", txs[0])
	}
	if !txs[2].Timestamp.Equal(base) {
		t.Errorf("timestamp round trip: %v != %v", txs[2].Timestamp, base)
	}
}

func TestAliasCRUD(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	a := core.Alias{Key: "SWIGGY", DisplayName: "Swiggy", Category: "Food & Dining"}
	if err := repo.PutAlias(ctx, a); err != nil {
		t.Fatal(err)
	}
	// Upsert replaces.
	a.Category = "Groceries"
	if err := repo.PutAlias(ctx, a); err != nil {
		t.Fatal(err)
	}

	got, err := repo.ListAliases(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Category != "Groceries" {
		t.Fatalf("unexpected aliases: %v", got)
	}

	if err := repo.DeleteAlias(ctx, "SWIGGY"); err != nil {
		t.Fatal(err)
	}
	if got, _ = repo.ListAliases(ctx); len(got) != 0 {
		t.Errorf("alias not deleted: %v", got)
	}
}

func TestCategoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	c := core.Category{Name: "Side Hustle", Emoji: "💼", Color: "#123456", DisplayOrder: 9}
	if err := repo.UpsertCategory(ctx, c); err != nil {
		t.Fatal(err)
	}
	got, err := repo.ListCategories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "Side Hustle" || got[0].IsSystem {
		t.Fatalf("unexpected categories: %v", got)
	}

	if err := repo.DeleteCategory(ctx, "Side Hustle"); err != nil {
		t.Fatal(err)
	}
	if got, _ = repo.ListCategories(ctx); len(got) != 0 {
		t.Errorf("category not deleted: %v", got)
	}
}

func TestRenameCategorySwapsRecord(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	c := core.Category{Name: "Side Hustle", Emoji: "💼", Color: "#123456", DisplayOrder: 9}
	if err := repo.UpsertCategory(ctx, c); err != nil {
		t.Fatal(err)
	}

	renamed := c
	renamed.Name = "Freelance"
	renamed.Emoji = "🧾"
	if err := repo.RenameCategory(ctx, "Side Hustle", renamed); err != nil {
		t.Fatalf("RenameCategory: %v", err)
	}

	got, err := repo.ListCategories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly one record after rename, got %v", got)
	}
	if got[0].Name != "Freelance" || got[0].Emoji != "🧾" || got[0].DisplayOrder != 9 {
		t.Errorf("unexpected renamed record: %+v", got[0])
	}
}

func TestExcludedGroupsToggle(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	if err := repo.SetGroupExcluded(ctx, "Swiggy", true); err != nil {
		t.Fatal(err)
	}
	// Toggling on twice is idempotent.
	if err := repo.SetGroupExcluded(ctx, "Swiggy", true); err != nil {
		t.Fatal(err)
	}
	excluded, err := repo.ExcludedGroups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(excluded) != 1 || !excluded["Swiggy"] {
		t.Fatalf("unexpected exclusion set: %v", excluded)
	}

	if err := repo.SetGroupExcluded(ctx, "Swiggy", false); err != nil {
		t.Fatal(err)
	}
	if excluded, _ = repo.ExcludedGroups(ctx); len(excluded) != 0 {
		t.Errorf("exclusion not removed: %v", excluded)
	}
}

func TestSyncStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	st, err := repo.SyncState(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Status != core.SyncStatusIdle {
		t.Errorf("fresh database must report idle, got %q", st.Status)
	}

	want := core.SyncState{
		LastSMSTimestamp:  time.Date(2025, 1, 12, 10, 0, 0, 0, time.UTC),
		LastSMSID:         "sms-42",
		TotalTransactions: 7,
		LastFullSync:      time.Date(2025, 1, 12, 10, 5, 0, 0, time.UTC),
		Status:            core.SyncStatusCompleted,
	}
	if err := repo.PutSyncState(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := repo.SyncState(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.LastSMSID != want.LastSMSID || got.Status != want.Status ||
		got.TotalTransactions != want.TotalTransactions ||
		!got.LastSMSTimestamp.Equal(want.LastSMSTimestamp) ||
		!got.LastFullSync.Equal(want.LastFullSync) {
		t.Errorf("round trip mismatch: %+v != %+v", got, want)
	}
}

func TestBudgetCRUD(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	b := budget.Budget{Category: "Groceries", AmountCents: 500000, Period: budget.Monthly, Active: true}
	if err := repo.UpsertBudget(ctx, b); err != nil {
		t.Fatal(err)
	}
	// Same category, different period: a distinct row.
	yearly := budget.Budget{Category: "Groceries", AmountCents: 6000000, Period: budget.Yearly, Active: true}
	if err := repo.UpsertBudget(ctx, yearly); err != nil {
		t.Fatal(err)
	}
	// Upsert updates in place.
	b.AmountCents = 400000
	if err := repo.UpsertBudget(ctx, b); err != nil {
		t.Fatal(err)
	}

	got, err := repo.ListBudgets(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 budgets, got %d", len(got))
	}
	if got[0].Period != budget.Monthly || got[0].AmountCents != 400000 {
		t.Errorf("unexpected monthly budget: %+v", got[0])
	}

	// Invalid budgets are rejected before touching the database.
	bad := budget.Budget{Category: "X", AmountCents: -1, Period: budget.Monthly}
	if err := repo.UpsertBudget(ctx, bad); err == nil {
		t.Error("invalid budget must be rejected")
	}

	if err := repo.DeleteBudget(ctx, "Groceries", budget.Yearly); err != nil {
		t.Fatal(err)
	}
	if got, _ = repo.ListBudgets(ctx); len(got) != 1 {
		t.Errorf("expected 1 budget after delete, got %d", len(got))
	}
}
