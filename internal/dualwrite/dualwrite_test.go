package dualwrite

import (
	"context"
	"errors"
	"testing"

	"github.com/anuragm339/smart-expense-manager-sub000/internal/core"
)

type fakeStore struct {
	aliases   map[string]core.Alias
	putErr    error
	deleteErr error
	puts      int
	deletes   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{aliases: make(map[string]core.Alias)}
}

func (s *fakeStore) PutAlias(_ context.Context, a core.Alias) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.puts++
	s.aliases[a.Key] = a
	return nil
}

func (s *fakeStore) DeleteAlias(_ context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletes++
	delete(s.aliases, key)
	return nil
}

func (s *fakeStore) ListAliases(_ context.Context) ([]core.Alias, error) {
	out := make([]core.Alias, 0, len(s.aliases))
	for _, a := range s.aliases {
		out = append(out, a)
	}
	return out, nil
}

var sample = core.Alias{Key: "SWIGGY", DisplayName: "Swiggy", Category: "Food & Dining"}

func TestPutWritesBoth(t *testing.T) {
	ctx := context.Background()
	sql, kv := newFakeStore(), newFakeStore()
	s := New(sql, kv)

	if err := s.PutAlias(ctx, sample); err != nil {
		t.Fatalf("PutAlias: %v", err)
	}
	if sql.puts != 1 || kv.puts != 1 {
		t.Errorf("expected one put per sink, got sql=%d kv=%d", sql.puts, kv.puts)
	}

	if err := s.DeleteAlias(ctx, sample.Key); err != nil {
		t.Fatalf("DeleteAlias: %v", err)
	}
	if sql.deletes != 1 || kv.deletes != 1 {
		t.Errorf("expected one delete per sink, got sql=%d kv=%d", sql.deletes, kv.deletes)
	}
}

func TestSQLFailureSkipsKV(t *testing.T) {
	ctx := context.Background()
	sql, kv := newFakeStore(), newFakeStore()
	sql.putErr = errors.New("disk full")
	s := New(sql, kv)

	err := s.PutAlias(ctx, sample)
	var div *DivergenceError
	if !errors.As(err, &div) {
		t.Fatalf("expected DivergenceError, got %v", err)
	}
	if div.FailedStore != StoreSQL || div.Op != "put" || div.Key != sample.Key {
		t.Errorf("unexpected divergence report: %+v", div)
	}
	if kv.puts != 0 {
		t.Error("authoritative write failed; mirror must stay untouched")
	}
}

func TestKVFailureIsReported(t *testing.T) {
	ctx := context.Background()
	sql, kv := newFakeStore(), newFakeStore()
	kv.deleteErr = errors.New("file locked")
	s := New(sql, kv)

	if err := s.PutAlias(ctx, sample); err != nil {
		t.Fatal(err)
	}
	err := s.DeleteAlias(ctx, sample.Key)
	var div *DivergenceError
	if !errors.As(err, &div) {
		t.Fatalf("expected DivergenceError, got %v", err)
	}
	if div.FailedStore != StoreKV {
		t.Errorf("expected kv named as failed store, got %q", div.FailedStore)
	}
	// The authoritative store already applied the delete.
	if sql.deletes != 1 {
		t.Error("sql delete must land before the mirror write")
	}
}

func TestNilKV(t *testing.T) {
	ctx := context.Background()
	sql := newFakeStore()
	s := New(sql, nil)

	if err := s.PutAlias(ctx, sample); err != nil {
		t.Fatal(err)
	}
	got, err := s.ListAliases(ctx)
	if err != nil || len(got) != 1 {
		t.Fatalf("expected one alias from sql, got %v (err=%v)", got, err)
	}
}

func TestListReadsSQLOnly(t *testing.T) {
	ctx := context.Background()
	sql, kv := newFakeStore(), newFakeStore()
	kv.aliases["STALE"] = core.Alias{Key: "STALE", DisplayName: "Stale", Category: "Other"}
	s := New(sql, kv)

	got, err := s.ListAliases(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("mirror contents must never be read: %v", got)
	}
}
