// Package category owns the set of valid spending categories. System
// categories are seeded once and protected; custom categories are
// user-managed with case-insensitive unique names.
package category

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/anuragm339/smart-expense-manager-sub000/internal/core"
)

var (
	ErrDuplicateCategory       = errors.New("category already exists")
	ErrSystemCategoryProtected = errors.New("system category cannot be modified")
	ErrLastCategoryRemaining   = errors.New("reassignment target must be a distinct existing category")
	ErrCategoryNotFound        = errors.New("category not found")
)

// Store persists categories. May be nil for a purely in-memory registry.
type Store interface {
	UpsertCategory(ctx context.Context, c core.Category) error
	RenameCategory(ctx context.Context, oldName string, c core.Category) error
	DeleteCategory(ctx context.Context, name string) error
	ListCategories(ctx context.Context) ([]core.Category, error)
}

// AliasReassigner moves every merchant alias from one category to another.
// Satisfied by the merchant resolver; wired after construction to avoid a
// dependency cycle.
type AliasReassigner interface {
	ReassignCategory(ctx context.Context, oldName, newName string) error
}

// SystemCategories returns the seeded category set. "Other" is the fallback
// for unaliased merchants and must always exist.
func SystemCategories() []core.Category {
	return []core.Category{
		{Name: "Food & Dining", Emoji: "🍽️", Color: "#FF7043", IsSystem: true, DisplayOrder: 1},
		{Name: "Groceries", Emoji: "🛒", Color: "#66BB6A", IsSystem: true, DisplayOrder: 2},
		{Name: "Transportation", Emoji: "🚗", Color: "#42A5F5", IsSystem: true, DisplayOrder: 3},
		{Name: "Shopping", Emoji: "🛍️", Color: "#AB47BC", IsSystem: true, DisplayOrder: 4},
		{Name: "Entertainment", Emoji: "🎬", Color: "#EC407A", IsSystem: true, DisplayOrder: 5},
		{Name: "Utilities", Emoji: "💡", Color: "#FFCA28", IsSystem: true, DisplayOrder: 6},
		{Name: "Healthcare", Emoji: "🏥", Color: "#26A69A", IsSystem: true, DisplayOrder: 7},
		{Name: "Other", Emoji: "📌", Color: "#9E9E9E", IsSystem: true, DisplayOrder: 8},
	}
}

// Registry is the authoritative category set. Reads may run concurrently;
// writes are serialized.
type Registry struct {
	mu      sync.RWMutex
	byLower map[string]core.Category

	store   Store
	aliases AliasReassigner
}

// NewRegistry creates a registry seeded with the system categories. Call
// Hydrate to overlay persisted custom categories.
func NewRegistry(store Store) *Registry {
	r := &Registry{
		byLower: make(map[string]core.Category),
		store:   store,
	}
	for _, c := range SystemCategories() {
		r.byLower[strings.ToLower(c.Name)] = c
	}
	return r
}

// BindAliases wires the alias reassigner used by Delete and Rename.
func (r *Registry) BindAliases(a AliasReassigner) {
	r.aliases = a
}

// Hydrate overlays persisted categories on top of the system set and
// persists any system category the store does not know yet.
func (r *Registry) Hydrate(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	persisted, err := r.store.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}

	r.mu.Lock()
	known := make(map[string]bool, len(persisted))
	for _, c := range persisted {
		r.byLower[strings.ToLower(c.Name)] = c
		known[strings.ToLower(c.Name)] = true
	}
	var missing []core.Category
	for _, c := range SystemCategories() {
		if !known[strings.ToLower(c.Name)] {
			missing = append(missing, c)
		}
	}
	r.mu.Unlock()

	for _, c := range missing {
		if err := r.store.UpsertCategory(ctx, c); err != nil {
			return fmt.Errorf("seed system category %q: %w", c.Name, err)
		}
	}
	return nil
}

// List returns all categories ordered by display order, then name.
func (r *Registry) List() []core.Category {
	r.mu.RLock()
	out := make([]core.Category, 0, len(r.byLower))
	for _, c := range r.byLower {
		out = append(out, c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Get looks a category up by name, case-insensitively.
func (r *Registry) Get(name string) (core.Category, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byLower[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// IsSystem reports whether name is a protected system category.
func (r *Registry) IsSystem(name string) bool {
	c, ok := r.Get(name)
	return ok && c.IsSystem
}

// AddCustom creates a custom category. Fails with ErrDuplicateCategory when a
// case-insensitive match exists, system categories included.
func (r *Registry) AddCustom(ctx context.Context, name, emoji, color string) (core.Category, error) {
	name = strings.TrimSpace(name)
	c := core.Category{Name: name, Emoji: emoji, Color: color}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	r.mu.Lock()
	if _, exists := r.byLower[strings.ToLower(name)]; exists {
		r.mu.Unlock()
		return core.Category{}, fmt.Errorf("add category %q: %w", name, ErrDuplicateCategory)
	}
	maxOrder := 0
	for _, existing := range r.byLower {
		if existing.DisplayOrder > maxOrder {
			maxOrder = existing.DisplayOrder
		}
	}
	c.DisplayOrder = maxOrder + 1
	r.byLower[strings.ToLower(name)] = c
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.UpsertCategory(ctx, c); err != nil {
			r.mu.Lock()
			delete(r.byLower, strings.ToLower(name))
			r.mu.Unlock()
			return core.Category{}, fmt.Errorf("persist category %q: %w", name, err)
		}
	}
	return c, nil
}

// Rename changes a custom category's name and optionally its emoji. Aliases
// referencing the old name are rewritten; system categories are protected.
func (r *Registry) Rename(ctx context.Context, oldName, newName, newEmoji string) (core.Category, error) {
	newName = strings.TrimSpace(newName)

	r.mu.Lock()
	existing, ok := r.byLower[strings.ToLower(oldName)]
	if !ok {
		r.mu.Unlock()
		return core.Category{}, fmt.Errorf("rename %q: %w", oldName, ErrCategoryNotFound)
	}
	if existing.IsSystem {
		r.mu.Unlock()
		return core.Category{}, fmt.Errorf("rename %q: %w", oldName, ErrSystemCategoryProtected)
	}
	if !strings.EqualFold(oldName, newName) {
		if _, clash := r.byLower[strings.ToLower(newName)]; clash {
			r.mu.Unlock()
			return core.Category{}, fmt.Errorf("rename to %q: %w", newName, ErrDuplicateCategory)
		}
	}

	renamed := existing
	renamed.Name = newName
	if newEmoji != "" {
		renamed.Emoji = newEmoji
	}
	if err := renamed.Validate(); err != nil {
		r.mu.Unlock()
		return core.Category{}, err
	}
	delete(r.byLower, strings.ToLower(existing.Name))
	r.byLower[strings.ToLower(newName)] = renamed
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.RenameCategory(ctx, existing.Name, renamed); err != nil {
			r.mu.Lock()
			delete(r.byLower, strings.ToLower(newName))
			r.byLower[strings.ToLower(existing.Name)] = existing
			r.mu.Unlock()
			return core.Category{}, fmt.Errorf("rename %q: persist: %w", oldName, err)
		}
	}

	if r.aliases != nil && !strings.EqualFold(existing.Name, newName) {
		if err := r.aliases.ReassignCategory(ctx, existing.Name, newName); err != nil {
			return core.Category{}, fmt.Errorf("rename %q: rewrite aliases: %w", oldName, err)
		}
	}
	return renamed, nil
}

// Delete removes a custom category, first moving every alias that references
// it to reassignTo. The removal happens only after the alias rewrite fully
// succeeds, so no alias ever references a nonexistent category.
func (r *Registry) Delete(ctx context.Context, name, reassignTo string) error {
	r.mu.RLock()
	existing, ok := r.byLower[strings.ToLower(name)]
	target, targetOK := r.byLower[strings.ToLower(reassignTo)]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("delete %q: %w", name, ErrCategoryNotFound)
	}
	if existing.IsSystem {
		return fmt.Errorf("delete %q: %w", name, ErrSystemCategoryProtected)
	}
	if !targetOK || strings.EqualFold(existing.Name, target.Name) {
		return fmt.Errorf("delete %q reassigning to %q: %w", name, reassignTo, ErrLastCategoryRemaining)
	}

	if r.aliases != nil {
		if err := r.aliases.ReassignCategory(ctx, existing.Name, target.Name); err != nil {
			return fmt.Errorf("delete %q: rewrite aliases: %w", name, err)
		}
	}

	if r.store != nil {
		if err := r.store.DeleteCategory(ctx, existing.Name); err != nil {
			return fmt.Errorf("delete %q: %w", name, err)
		}
	}

	r.mu.Lock()
	delete(r.byLower, strings.ToLower(existing.Name))
	r.mu.Unlock()
	return nil
}
