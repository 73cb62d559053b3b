// Package dualwrite keeps the legacy key-value store and the relational
// store in sync during the migration window. Every alias write commits to
// both sinks or reports exactly which one failed; the two paths never
// diverge silently.
package dualwrite

import (
	"context"
	"fmt"

	"github.com/anuragm339/smart-expense-manager-sub000/internal/core"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/merchant"
)

// Store names used in divergence reports.
const (
	StoreKV  = "kv"
	StoreSQL = "sql"
)

// DivergenceError reports a write that landed in one store but not the
// other. FailedStore names the sink that rejected the write.
type DivergenceError struct {
	FailedStore string
	Op          string
	Key         string
	Err         error
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("dual write %s %q: %s store failed: %v", e.Op, e.Key, e.FailedStore, e.Err)
}

func (e *DivergenceError) Unwrap() error { return e.Err }

// AliasStore writes aliases to both sinks. The relational store is
// authoritative for reads; the key-value store is written second so a kv
// failure never leaves the authoritative store behind.
type AliasStore struct {
	sql merchant.AliasStore
	kv  merchant.AliasStore
}

// New wraps both sinks. kv may be nil once the migration window closes, in
// which case writes go to the relational store only.
func New(sqlStore, kvStore merchant.AliasStore) *AliasStore {
	return &AliasStore{sql: sqlStore, kv: kvStore}
}

// PutAlias implements merchant.AliasStore across both sinks.
func (s *AliasStore) PutAlias(ctx context.Context, a core.Alias) error {
	if err := s.sql.PutAlias(ctx, a); err != nil {
		return &DivergenceError{FailedStore: StoreSQL, Op: "put", Key: a.Key, Err: err}
	}
	if s.kv != nil {
		if err := s.kv.PutAlias(ctx, a); err != nil {
			return &DivergenceError{FailedStore: StoreKV, Op: "put", Key: a.Key, Err: err}
		}
	}
	return nil
}

// DeleteAlias implements merchant.AliasStore across both sinks.
func (s *AliasStore) DeleteAlias(ctx context.Context, key string) error {
	if err := s.sql.DeleteAlias(ctx, key); err != nil {
		return &DivergenceError{FailedStore: StoreSQL, Op: "delete", Key: key, Err: err}
	}
	if s.kv != nil {
		if err := s.kv.DeleteAlias(ctx, key); err != nil {
			return &DivergenceError{FailedStore: StoreKV, Op: "delete", Key: key, Err: err}
		}
	}
	return nil
}

// ListAliases reads from the relational store only; the key-value copy is a
// write-through mirror, never a read source.
func (s *AliasStore) ListAliases(ctx context.Context) ([]core.Alias, error) {
	return s.sql.ListAliases(ctx)
}
