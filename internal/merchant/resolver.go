package merchant

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/anuragm339/smart-expense-manager-sub000/internal/category"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/core"
)

// DefaultCategory is the fallback category for merchants without an alias.
const DefaultCategory = "Other"

// defaultColor is used when the resolved category is unknown to the registry.
const defaultColor = "#9E9E9E"

// ConflictKind classifies what writing an alias would collide with.
type ConflictKind string

const (
	// ConflictNone: no prior alias touches this key or display name.
	ConflictNone ConflictKind = "none"

	// ConflictDisplayNameExists: other keys already use the display name
	// with the same category. Intentional grouping, not a conflict.
	ConflictDisplayNameExists ConflictKind = "display_name_exists"

	// ConflictCategoryMismatch: other keys resolve the display name to a
	// different category. The caller must merge, rename or abandon.
	ConflictCategoryMismatch ConflictKind = "category_mismatch"

	// ConflictOverwriteExisting: the target key already has a different
	// alias. The caller must confirm the overwrite.
	ConflictOverwriteExisting ConflictKind = "overwrite_existing"
)

// Conflict describes the collision found by CheckConflict, with enough
// context for the caller to present a decision.
type Conflict struct {
	Kind ConflictKind

	// ExistingDisplayName and ExistingCategory describe the target key's
	// current alias when Kind is ConflictOverwriteExisting.
	ExistingDisplayName string
	ExistingCategory    string

	// OtherKeys are the merchant keys already mapped to the requested
	// display name, excluding the target key.
	OtherKeys []string
}

// PartialPersistenceError reports an alias write that did not land for every
// key. The in-memory state reflects exactly the succeeded keys.
type PartialPersistenceError struct {
	SucceededKeys []string
	FailedKeys    []string
	Cause         error
}

func (e *PartialPersistenceError) Error() string {
	return fmt.Sprintf("alias write persisted for %d of %d keys (failed: %s): %v",
		len(e.SucceededKeys), len(e.SucceededKeys)+len(e.FailedKeys),
		strings.Join(e.FailedKeys, ", "), e.Cause)
}

func (e *PartialPersistenceError) Unwrap() error { return e.Cause }

// AliasStore persists alias overrides.
type AliasStore interface {
	PutAlias(ctx context.Context, a core.Alias) error
	DeleteAlias(ctx context.Context, key string) error
	ListAliases(ctx context.Context) ([]core.Alias, error)
}

// CategoryDirectory is the read side of the category registry the resolver
// needs: existence checks and colors.
type CategoryDirectory interface {
	Get(name string) (core.Category, bool)
}

// EventSink receives fire-and-forget change notifications. Implementations
// must not block the write path; errors are logged, never propagated.
type EventSink interface {
	AliasChanged(ctx context.Context, keys []string, displayName, category string) error
	CategoryChanged(ctx context.Context, merchantKey, newCategory string) error
}

// Resolver maps normalized merchant keys to user-chosen display identities.
// Reads take a shared lock; writes are additionally serialized per key.
type Resolver struct {
	mu        sync.RWMutex
	aliases   map[string]core.Alias
	byDisplay map[string]map[string]bool

	categories CategoryDirectory
	store      AliasStore
	events     EventSink

	locks  keyedMutex
	logger *slog.Logger
}

// NewResolver creates an empty resolver. Call Hydrate to load persisted
// aliases. store and events may be nil (in-memory only, no notifications).
func NewResolver(categories CategoryDirectory, store AliasStore, events EventSink) *Resolver {
	return &Resolver{
		aliases:    make(map[string]core.Alias),
		byDisplay:  make(map[string]map[string]bool),
		categories: categories,
		store:      store,
		events:     events,
		logger:     slog.Default(),
	}
}

// Hydrate loads persisted aliases into memory, replacing current state.
func (r *Resolver) Hydrate(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	aliases, err := r.store.ListAliases(ctx)
	if err != nil {
		return fmt.Errorf("list aliases: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases = make(map[string]core.Alias, len(aliases))
	r.byDisplay = make(map[string]map[string]bool)
	for _, a := range aliases {
		a.Key = Normalize(a.Key)
		if a.Key == "" {
			continue
		}
		r.aliases[a.Key] = a
		r.indexLocked(a)
	}
	return nil
}

// Resolve maps a raw merchant string to its display identity. Without an
// alias it falls back to the prettified raw name in the default category.
func (r *Resolver) Resolve(raw string) (displayName, categoryName, categoryColor string) {
	key := Normalize(raw)

	r.mu.RLock()
	a, ok := r.aliases[key]
	r.mu.RUnlock()

	if !ok {
		return DefaultDisplayName(raw), DefaultCategory, r.colorOf(DefaultCategory)
	}
	return a.DisplayName, a.Category, r.colorOf(a.Category)
}

// MerchantsForDisplayName returns the normalized keys currently mapped to a
// display name, sorted. Used for group-wide rename and reset.
func (r *Resolver) MerchantsForDisplayName(displayName string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byDisplay[displayName]
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CheckConflict classifies what writing (displayName, category) for targetKey
// would collide with. It never writes; resolution is the caller's decision.
func (r *Resolver) CheckConflict(targetKey, displayName, categoryName string) Conflict {
	targetKey = Normalize(targetKey)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var otherKeys []string
	var otherCategory string
	for k := range r.byDisplay[displayName] {
		if k == targetKey {
			continue
		}
		otherKeys = append(otherKeys, k)
		otherCategory = r.aliases[k].Category
	}
	sort.Strings(otherKeys)

	if len(otherKeys) > 0 && otherCategory != categoryName {
		return Conflict{
			Kind:             ConflictCategoryMismatch,
			ExistingCategory: otherCategory,
			OtherKeys:        otherKeys,
		}
	}

	if existing, ok := r.aliases[targetKey]; ok {
		if existing.DisplayName != displayName || existing.Category != categoryName {
			return Conflict{
				Kind:                ConflictOverwriteExisting,
				ExistingDisplayName: existing.DisplayName,
				ExistingCategory:    existing.Category,
				OtherKeys:           otherKeys,
			}
		}
	}

	if len(otherKeys) > 0 {
		return Conflict{Kind: ConflictDisplayNameExists, OtherKeys: otherKeys}
	}
	return Conflict{Kind: ConflictNone}
}

// SetAlias writes one alias entry per key. The category must already exist.
// When persistence fails for some keys the returned error is a
// *PartialPersistenceError naming exactly which keys landed.
func (r *Resolver) SetAlias(ctx context.Context, keys []string, displayName, categoryName string) error {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return fmt.Errorf("set alias: empty display name")
	}
	if _, ok := r.categories.Get(categoryName); !ok {
		return fmt.Errorf("set alias %q: %w", categoryName, category.ErrCategoryNotFound)
	}

	seen := make(map[string]bool, len(keys))
	normalized := make([]string, 0, len(keys))
	for _, k := range keys {
		nk := Normalize(k)
		if nk == "" || seen[nk] {
			continue
		}
		seen[nk] = true
		normalized = append(normalized, nk)
	}
	if len(normalized) == 0 {
		return fmt.Errorf("set alias: no usable merchant keys")
	}

	var succeeded, failed []string
	var cause error
	for _, key := range normalized {
		a := core.Alias{Key: key, DisplayName: displayName, Category: categoryName}
		if err := r.persistAlias(ctx, a); err != nil {
			failed = append(failed, key)
			if cause == nil {
				cause = err
			}
			continue
		}
		succeeded = append(succeeded, key)
	}

	if len(succeeded) > 0 {
		r.notifyAliasChanged(ctx, succeeded, displayName, categoryName)
	}
	if len(failed) > 0 {
		return &PartialPersistenceError{SucceededKeys: succeeded, FailedKeys: failed, Cause: cause}
	}
	return nil
}

// RemoveAlias deletes the override for a key; Resolve falls back to raw-name
// defaults afterwards. Removing a key without an alias is a no-op.
func (r *Resolver) RemoveAlias(ctx context.Context, key string) error {
	key = Normalize(key)
	if key == "" {
		return nil
	}

	unlock := r.locks.lock(key)
	defer unlock()

	r.mu.RLock()
	existing, ok := r.aliases[key]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	if r.store != nil {
		if err := r.store.DeleteAlias(ctx, key); err != nil {
			return fmt.Errorf("delete alias %q: %w", key, err)
		}
	}

	r.mu.Lock()
	delete(r.aliases, key)
	r.unindexLocked(existing)
	r.mu.Unlock()

	r.notifyAliasChanged(ctx, []string{key}, "", "")
	return nil
}

// ReassignCategory rewrites every alias in oldName to newName. Used by the
// category registry when a category is deleted; any persistence failure
// aborts with a *PartialPersistenceError so the caller can refuse the
// deletion.
func (r *Resolver) ReassignCategory(ctx context.Context, oldName, newName string) error {
	r.mu.RLock()
	var affected []core.Alias
	for _, a := range r.aliases {
		if strings.EqualFold(a.Category, oldName) {
			affected = append(affected, a)
		}
	}
	r.mu.RUnlock()

	sort.Slice(affected, func(i, j int) bool { return affected[i].Key < affected[j].Key })

	var succeeded, failed []string
	var cause error
	for _, a := range affected {
		a.Category = newName
		if err := r.persistAlias(ctx, a); err != nil {
			failed = append(failed, a.Key)
			if cause == nil {
				cause = err
			}
			continue
		}
		succeeded = append(succeeded, a.Key)
		if r.events != nil {
			if err := r.events.CategoryChanged(ctx, a.Key, newName); err != nil {
				r.logger.WarnContext(ctx, "category change event not delivered",
					"merchant_key", a.Key, "error", err)
			}
		}
	}

	if len(failed) > 0 {
		return &PartialPersistenceError{SucceededKeys: succeeded, FailedKeys: failed, Cause: cause}
	}
	return nil
}

// persistAlias writes one alias through the store and, on success, into the
// in-memory maps. Serialized per key.
func (r *Resolver) persistAlias(ctx context.Context, a core.Alias) error {
	unlock := r.locks.lock(a.Key)
	defer unlock()

	if r.store != nil {
		if err := r.store.PutAlias(ctx, a); err != nil {
			return err
		}
	}

	r.mu.Lock()
	if old, ok := r.aliases[a.Key]; ok {
		r.unindexLocked(old)
	}
	r.aliases[a.Key] = a
	r.indexLocked(a)
	r.mu.Unlock()
	return nil
}

func (r *Resolver) notifyAliasChanged(ctx context.Context, keys []string, displayName, categoryName string) {
	if r.events == nil {
		return
	}
	if err := r.events.AliasChanged(ctx, keys, displayName, categoryName); err != nil {
		r.logger.WarnContext(ctx, "alias change event not delivered",
			"keys", strings.Join(keys, ","), "error", err)
	}
}

func (r *Resolver) colorOf(categoryName string) string {
	if c, ok := r.categories.Get(categoryName); ok && c.Color != "" {
		return c.Color
	}
	return defaultColor
}

func (r *Resolver) indexLocked(a core.Alias) {
	set := r.byDisplay[a.DisplayName]
	if set == nil {
		set = make(map[string]bool)
		r.byDisplay[a.DisplayName] = set
	}
	set[a.Key] = true
}

func (r *Resolver) unindexLocked(a core.Alias) {
	set := r.byDisplay[a.DisplayName]
	delete(set, a.Key)
	if len(set) == 0 {
		delete(r.byDisplay, a.DisplayName)
	}
}

// keyedMutex serializes writers per merchant key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (m *keyedMutex) lock(key string) (unlock func()) {
	m.mu.Lock()
	if m.locks == nil {
		m.locks = make(map[string]*sync.Mutex)
	}
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}
