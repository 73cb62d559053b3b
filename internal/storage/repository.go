// Package storage is the relational persistence layer: one SQLite database
// holding transactions, categories, merchant aliases, inclusion flags,
// budgets and ingest sync state.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/anuragm339/smart-expense-manager-sub000/internal/budget"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/core"

	_ "modernc.org/sqlite"
)

// Repository is the SQLite-backed store. It satisfies merchant.AliasStore,
// category.Store and budget.Store.
type Repository struct {
	db *sql.DB
}

// NewRepository opens (creating if needed) the database at dbPath and runs
// migrations.
func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InsertTransaction persists a parsed transaction. inserted is false when a
// row with the same SMS id already exists (dedup on re-ingest).
func (r *Repository) InsertTransaction(ctx context.Context, tx core.Transaction) (inserted bool, err error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions
			(sms_id, amount_cents, is_debit, raw_merchant, bank_name, transaction_date, confidence, raw_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sms_id) DO NOTHING`,
		tx.ID, tx.Amount.Cents, boolToInt(tx.IsDebit), tx.MerchantRaw, tx.BankName,
		tx.Timestamp.UnixMilli(), tx.Confidence, tx.RawText, time.Now().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("insert transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert transaction: rows affected: %w", err)
	}
	return n > 0, nil
}

// HasTransaction reports whether an SMS id is already persisted.
func (r *Repository) HasTransaction(ctx context.Context, smsID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM transactions WHERE sms_id = ?`, smsID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has transaction: %w", err)
	}
	return true, nil
}

// ListTransactions returns all persisted transactions, newest first.
func (r *Repository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sms_id, amount_cents, is_debit, raw_merchant, bank_name, transaction_date, confidence, raw_text
		FROM transactions
		ORDER BY transaction_date DESC, sms_id`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var tx core.Transaction
		var isDebit int
		var dateMillis int64
		if err := rows.Scan(&tx.ID, &tx.Amount.Cents, &isDebit, &tx.MerchantRaw,
			&tx.BankName, &dateMillis, &tx.Confidence, &tx.RawText); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.IsDebit = isDebit != 0
		tx.Timestamp = time.UnixMilli(dateMillis)
		out = append(out, tx)
	}
	return out, rows.Err()
}

// CountTransactions returns the total persisted transaction count.
func (r *Repository) CountTransactions(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

// PutAlias implements merchant.AliasStore.
func (r *Repository) PutAlias(ctx context.Context, a core.Alias) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO merchant_aliases (merchant_key, display_name, category)
		VALUES (?, ?, ?)
		ON CONFLICT(merchant_key) DO UPDATE SET
			display_name = excluded.display_name,
			category     = excluded.category`,
		a.Key, a.DisplayName, a.Category)
	if err != nil {
		return fmt.Errorf("put alias %q: %w", a.Key, err)
	}
	return nil
}

// DeleteAlias implements merchant.AliasStore.
func (r *Repository) DeleteAlias(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM merchant_aliases WHERE merchant_key = ?`, key); err != nil {
		return fmt.Errorf("delete alias %q: %w", key, err)
	}
	return nil
}

// ListAliases implements merchant.AliasStore.
func (r *Repository) ListAliases(ctx context.Context) ([]core.Alias, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT merchant_key, display_name, category FROM merchant_aliases ORDER BY merchant_key`)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	defer rows.Close()

	var out []core.Alias
	for rows.Next() {
		var a core.Alias
		if err := rows.Scan(&a.Key, &a.DisplayName, &a.Category); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpsertCategory implements category.Store.
func (r *Repository) UpsertCategory(ctx context.Context, c core.Category) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (name, emoji, color, is_system, display_order)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			emoji         = excluded.emoji,
			color         = excluded.color,
			is_system     = excluded.is_system,
			display_order = excluded.display_order`,
		c.Name, c.Emoji, c.Color, boolToInt(c.IsSystem), c.DisplayOrder)
	if err != nil {
		return fmt.Errorf("upsert category %q: %w", c.Name, err)
	}
	return nil
}

// DeleteCategory implements category.Store.
// RenameCategory swaps a category row for its renamed form in one
// transaction, so a failure can never leave the store with neither record.
func (r *Repository) RenameCategory(ctx context.Context, oldName string, c core.Category) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("rename category %q: %w", oldName, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE name = ?`, oldName); err != nil {
		return fmt.Errorf("rename category %q: %w", oldName, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO categories (name, emoji, color, is_system, display_order)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			emoji         = excluded.emoji,
			color         = excluded.color,
			is_system     = excluded.is_system,
			display_order = excluded.display_order`,
		c.Name, c.Emoji, c.Color, boolToInt(c.IsSystem), c.DisplayOrder); err != nil {
		return fmt.Errorf("rename category %q: %w", oldName, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("rename category %q: %w", oldName, err)
	}
	return nil
}

func (r *Repository) DeleteCategory(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete category %q: %w", name, err)
	}
	return nil
}

// ListCategories implements category.Store.
func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, emoji, color, is_system, display_order FROM categories ORDER BY display_order, name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var isSystem int
		if err := rows.Scan(&c.Name, &c.Emoji, &c.Color, &isSystem, &c.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.IsSystem = isSystem != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetGroupExcluded toggles a display name's inclusion flag. Last write wins.
func (r *Repository) SetGroupExcluded(ctx context.Context, displayName string, excluded bool) error {
	var err error
	if excluded {
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO excluded_groups (display_name) VALUES (?) ON CONFLICT(display_name) DO NOTHING`, displayName)
	} else {
		_, err = r.db.ExecContext(ctx,
			`DELETE FROM excluded_groups WHERE display_name = ?`, displayName)
	}
	if err != nil {
		return fmt.Errorf("set group excluded %q: %w", displayName, err)
	}
	return nil
}

// ExcludedGroups returns display names toggled out of aggregate totals.
func (r *Repository) ExcludedGroups(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT display_name FROM excluded_groups`)
	if err != nil {
		return nil, fmt.Errorf("list excluded groups: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan excluded group: %w", err)
		}
		out[name] = true
	}
	return out, rows.Err()
}

// SyncState returns the single ingest progress row, zero-valued when no
// ingest has run yet.
func (r *Repository) SyncState(ctx context.Context) (core.SyncState, error) {
	var st core.SyncState
	var lastTS, lastFull int64
	err := r.db.QueryRowContext(ctx, `
		SELECT last_sms_timestamp, last_sms_id, total_transactions, last_full_sync, status
		FROM sync_state WHERE id = 1`).
		Scan(&lastTS, &st.LastSMSID, &st.TotalTransactions, &lastFull, &st.Status)
	if err == sql.ErrNoRows {
		return core.SyncState{Status: core.SyncStatusIdle}, nil
	}
	if err != nil {
		return core.SyncState{}, fmt.Errorf("get sync state: %w", err)
	}
	if lastTS > 0 {
		st.LastSMSTimestamp = time.UnixMilli(lastTS)
	}
	if lastFull > 0 {
		st.LastFullSync = time.UnixMilli(lastFull)
	}
	return st, nil
}

// PutSyncState overwrites the ingest progress row.
func (r *Repository) PutSyncState(ctx context.Context, st core.SyncState) error {
	var lastTS, lastFull int64
	if !st.LastSMSTimestamp.IsZero() {
		lastTS = st.LastSMSTimestamp.UnixMilli()
	}
	if !st.LastFullSync.IsZero() {
		lastFull = st.LastFullSync.UnixMilli()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_state (id, last_sms_timestamp, last_sms_id, total_transactions, last_full_sync, status)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_sms_timestamp = excluded.last_sms_timestamp,
			last_sms_id        = excluded.last_sms_id,
			total_transactions = excluded.total_transactions,
			last_full_sync     = excluded.last_full_sync,
			status             = excluded.status`,
		lastTS, st.LastSMSID, st.TotalTransactions, lastFull, st.Status)
	if err != nil {
		return fmt.Errorf("put sync state: %w", err)
	}
	slog.InfoContext(ctx, "sync state updated",
		"status", st.Status, "total_transactions", st.TotalTransactions)
	return nil
}

// UpsertBudget implements budget.Store.
func (r *Repository) UpsertBudget(ctx context.Context, b budget.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (category, period, amount_cents, is_active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(category, period) DO UPDATE SET
			amount_cents = excluded.amount_cents,
			is_active    = excluded.is_active`,
		b.Category, string(b.Period), b.AmountCents, boolToInt(b.Active))
	if err != nil {
		return fmt.Errorf("upsert budget %q/%s: %w", b.Category, b.Period, err)
	}
	return nil
}

// DeleteBudget implements budget.Store.
func (r *Repository) DeleteBudget(ctx context.Context, categoryName string, period budget.Period) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE category = ? AND period = ?`, categoryName, string(period)); err != nil {
		return fmt.Errorf("delete budget %q/%s: %w", categoryName, period, err)
	}
	return nil
}

// ListBudgets implements budget.Store.
func (r *Repository) ListBudgets(ctx context.Context) ([]budget.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, period, amount_cents, is_active FROM budgets ORDER BY category, period`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []budget.Budget
	for rows.Next() {
		var b budget.Budget
		var period string
		var active int
		if err := rows.Scan(&b.Category, &period, &b.AmountCents, &active); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Period = budget.Period(period)
		b.Active = active != 0
		out = append(out, b)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
