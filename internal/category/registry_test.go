package category

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/anuragm339/smart-expense-manager-sub000/internal/core"
)

// recordingReassigner captures ReassignCategory calls.
type recordingReassigner struct {
	calls [][2]string
	err   error
}

func (r *recordingReassigner) ReassignCategory(_ context.Context, oldName, newName string) error {
	r.calls = append(r.calls, [2]string{oldName, newName})
	return r.err
}

func TestSystemCategoriesSeeded(t *testing.T) {
	r := NewRegistry(nil)

	list := r.List()
	if len(list) != len(SystemCategories()) {
		t.Fatalf("expected %d seeded categories, got %d", len(SystemCategories()), len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].DisplayOrder > list[i].DisplayOrder {
			t.Fatalf("list not ordered by display order: %v", list)
		}
	}
	if _, ok := r.Get("other"); !ok {
		t.Error("fallback category must exist (case-insensitive)")
	}
	if !r.IsSystem("Food & Dining") {
		t.Error("seeded categories must be system categories")
	}
}

func TestAddCustom(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)

	c, err := r.AddCustom(ctx, "Side Hustle", "💼", "#123456")
	if err != nil {
		t.Fatalf("AddCustom: %v", err)
	}
	if c.IsSystem {
		t.Error("custom category must not be a system category")
	}
	if c.DisplayOrder != len(SystemCategories())+1 {
		t.Errorf("expected display order after the seeded set, got %d", c.DisplayOrder)
	}

	// Case-insensitive duplicates are rejected, against both custom and
	// system names.
	if _, err := r.AddCustom(ctx, "side hustle", "", ""); !errors.Is(err, ErrDuplicateCategory) {
		t.Errorf("expected duplicate error, got %v", err)
	}
	if _, err := r.AddCustom(ctx, "GROCERIES", "", ""); !errors.Is(err, ErrDuplicateCategory) {
		t.Errorf("expected duplicate error against system set, got %v", err)
	}
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)
	aliases := &recordingReassigner{}
	r.BindAliases(aliases)

	if _, err := r.AddCustom(ctx, "Side Hustle", "💼", "#123456"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	c, err := r.Rename(ctx, "side hustle", "Freelance", "🧾")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if c.Name != "Freelance" || c.Emoji != "🧾" {
		t.Errorf("unexpected renamed category: %+v", c)
	}
	if _, ok := r.Get("Side Hustle"); ok {
		t.Error("old name must no longer resolve")
	}
	if len(aliases.calls) != 1 || aliases.calls[0] != [2]string{"Side Hustle", "Freelance"} {
		t.Errorf("alias rewrite not invoked correctly: %v", aliases.calls)
	}

	if _, err := r.Rename(ctx, "Groceries", "Food Shopping", ""); !errors.Is(err, ErrSystemCategoryProtected) {
		t.Errorf("system category rename must be rejected, got %v", err)
	}
	if _, err := r.Rename(ctx, "Freelance", "Other", ""); !errors.Is(err, ErrDuplicateCategory) {
		t.Errorf("rename onto an existing name must be rejected, got %v", err)
	}
	if _, err := r.Rename(ctx, "Ghost", "Anything", ""); !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("expected not-found, got %v", err)
	}
}

func TestRenameRollsBackWhenStoreFails(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{categories: map[string]core.Category{}}
	r := NewRegistry(store)
	if err := r.Hydrate(ctx); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if _, err := r.AddCustom(ctx, "Side Hustle", "💼", "#123456"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	store.renameErr = errors.New("store down")
	if _, err := r.Rename(ctx, "Side Hustle", "Freelance", ""); err == nil {
		t.Fatal("rename must fail when persistence fails")
	}

	// Memory matches the store: the old category survives, the new name
	// does not exist.
	if _, ok := r.Get("Side Hustle"); !ok {
		t.Error("category must survive a failed rename")
	}
	if _, ok := r.Get("Freelance"); ok {
		t.Error("failed rename must not leave the new name behind")
	}
	if _, ok := store.categories["side hustle"]; !ok {
		t.Error("store must still hold the original record")
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)
	aliases := &recordingReassigner{}
	r.BindAliases(aliases)

	if _, err := r.AddCustom(ctx, "Side Hustle", "💼", "#123456"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := r.Delete(ctx, "Side Hustle", "Other"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := r.Get("Side Hustle"); ok {
		t.Error("deleted category must be gone")
	}
	if len(aliases.calls) != 1 || aliases.calls[0] != [2]string{"Side Hustle", "Other"} {
		t.Errorf("merchants must be reassigned before removal: %v", aliases.calls)
	}
}

func TestDeleteRejections(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)

	if _, err := r.AddCustom(ctx, "Side Hustle", "💼", "#123456"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := r.Delete(ctx, "Other", "Groceries"); !errors.Is(err, ErrSystemCategoryProtected) {
		t.Errorf("system delete must be rejected, got %v", err)
	}
	if err := r.Delete(ctx, "Side Hustle", "Side Hustle"); !errors.Is(err, ErrLastCategoryRemaining) {
		t.Errorf("self-reassignment must be rejected, got %v", err)
	}
	if err := r.Delete(ctx, "Side Hustle", "Ghost"); !errors.Is(err, ErrLastCategoryRemaining) {
		t.Errorf("reassignment to a missing category must be rejected, got %v", err)
	}
	if err := r.Delete(ctx, "Ghost", "Other"); !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("expected not-found, got %v", err)
	}
}

func TestDeleteAbortsWhenReassignFails(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)
	aliases := &recordingReassigner{err: errors.New("store down")}
	r.BindAliases(aliases)

	if _, err := r.AddCustom(ctx, "Side Hustle", "💼", "#123456"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := r.Delete(ctx, "Side Hustle", "Other"); err == nil {
		t.Fatal("delete must fail when the alias rewrite fails")
	}
	if _, ok := r.Get("Side Hustle"); !ok {
		t.Error("category must survive a failed delete")
	}
}

func TestHydrateOverlaysPersisted(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{categories: map[string]core.Category{
		"side hustle": {Name: "Side Hustle", Emoji: "💼", Color: "#123456", DisplayOrder: 9},
	}}
	r := NewRegistry(store)

	if err := r.Hydrate(ctx); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if _, ok := r.Get("Side Hustle"); !ok {
		t.Error("persisted custom category must be loaded")
	}
	// System categories missing from the store are seeded back.
	if len(store.categories) != len(SystemCategories())+1 {
		t.Errorf("expected store backfilled with system set, got %d entries", len(store.categories))
	}
}

type memoryStore struct {
	categories map[string]core.Category
	renameErr  error
}

func (s *memoryStore) UpsertCategory(_ context.Context, c core.Category) error {
	s.categories[strings.ToLower(c.Name)] = c
	return nil
}

func (s *memoryStore) RenameCategory(_ context.Context, oldName string, c core.Category) error {
	if s.renameErr != nil {
		return s.renameErr
	}
	delete(s.categories, strings.ToLower(oldName))
	s.categories[strings.ToLower(c.Name)] = c
	return nil
}

func (s *memoryStore) DeleteCategory(_ context.Context, name string) error {
	delete(s.categories, strings.ToLower(name))
	return nil
}

func (s *memoryStore) ListCategories(_ context.Context) ([]core.Category, error) {
	out := make([]core.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	return out, nil
}
