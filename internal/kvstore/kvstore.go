// Package kvstore is the legacy preference-store path: one JSON file owning
// aliases, group inclusion flags and sync state. It exists for the migration
// window alongside the relational store; all access goes through this one
// object, never through ad-hoc file reads.
package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/anuragm339/smart-expense-manager-sub000/internal/core"
)

type fileAlias struct {
	DisplayName string `json:"display_name"`
	Category    string `json:"category"`
}

type fileSyncState struct {
	LastSMSTimestamp  int64  `json:"last_sms_timestamp"`
	LastSMSID         string `json:"last_sms_id"`
	TotalTransactions int    `json:"total_transactions"`
	LastFullSync      int64  `json:"last_full_sync"`
	Status            string `json:"status"`
}

type fileFormat struct {
	Aliases  map[string]fileAlias `json:"aliases"`
	Excluded map[string]bool      `json:"excluded_groups"`
	Sync     fileSyncState        `json:"sync_state"`
}

// Store is a mutex-guarded JSON-file key-value store. Every mutating call
// rewrites the file; reads serve from memory.
type Store struct {
	mu   sync.Mutex
	path string
	data fileFormat
}

// Open loads the store at path, creating an empty one when the file does not
// exist.
func Open(path string) (*Store, error) {
	s := &Store{
		path: path,
		data: fileFormat{
			Aliases:  make(map[string]fileAlias),
			Excluded: make(map[string]bool),
		},
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read kv store: %w", err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("decode kv store %s: %w", path, err)
	}
	if s.data.Aliases == nil {
		s.data.Aliases = make(map[string]fileAlias)
	}
	if s.data.Excluded == nil {
		s.data.Excluded = make(map[string]bool)
	}
	return s, nil
}

// PutAlias implements merchant.AliasStore.
func (s *Store) PutAlias(_ context.Context, a core.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Aliases[a.Key] = fileAlias{DisplayName: a.DisplayName, Category: a.Category}
	return s.flushLocked()
}

// DeleteAlias implements merchant.AliasStore.
func (s *Store) DeleteAlias(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.Aliases[key]; !ok {
		return nil
	}
	delete(s.data.Aliases, key)
	return s.flushLocked()
}

// ListAliases implements merchant.AliasStore.
func (s *Store) ListAliases(_ context.Context) ([]core.Alias, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Alias, 0, len(s.data.Aliases))
	for k, v := range s.data.Aliases {
		out = append(out, core.Alias{Key: k, DisplayName: v.DisplayName, Category: v.Category})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// SetGroupExcluded toggles a display name's inclusion flag.
func (s *Store) SetGroupExcluded(_ context.Context, displayName string, excluded bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if excluded {
		s.data.Excluded[displayName] = true
	} else {
		delete(s.data.Excluded, displayName)
	}
	return s.flushLocked()
}

// ExcludedGroups returns a copy of the exclusion set.
func (s *Store) ExcludedGroups(_ context.Context) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.data.Excluded))
	for k := range s.data.Excluded {
		out[k] = true
	}
	return out, nil
}

// SyncState returns persisted ingest progress.
func (s *Store) SyncState(_ context.Context) (core.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.data.Sync
	st := core.SyncState{
		LastSMSID:         f.LastSMSID,
		TotalTransactions: f.TotalTransactions,
		Status:            f.Status,
	}
	if st.Status == "" {
		st.Status = core.SyncStatusIdle
	}
	if f.LastSMSTimestamp > 0 {
		st.LastSMSTimestamp = time.UnixMilli(f.LastSMSTimestamp)
	}
	if f.LastFullSync > 0 {
		st.LastFullSync = time.UnixMilli(f.LastFullSync)
	}
	return st, nil
}

// PutSyncState overwrites ingest progress.
func (s *Store) PutSyncState(_ context.Context, st core.SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := fileSyncState{
		LastSMSID:         st.LastSMSID,
		TotalTransactions: st.TotalTransactions,
		Status:            st.Status,
	}
	if !st.LastSMSTimestamp.IsZero() {
		f.LastSMSTimestamp = st.LastSMSTimestamp.UnixMilli()
	}
	if !st.LastFullSync.IsZero() {
		f.LastFullSync = st.LastFullSync.UnixMilli()
	}
	s.data.Sync = f
	return s.flushLocked()
}

// flushLocked writes the file atomically via a temp-file rename.
func (s *Store) flushLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode kv store: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create kv store directory: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("write kv store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace kv store: %w", err)
	}
	return nil
}
