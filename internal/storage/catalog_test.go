package storage

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/kegdev/hearth/internal/model"
)

func TestTagLifecycle(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	if _, err := store.CreateTag(ctx, "u1", model.TagInput{Name: model.Ptr(" ")}); err == nil {
		t.Fatalf("expected validation error for empty name")
	}
	if _, err := store.CreateTag(ctx, "u1", model.TagInput{Name: model.Ptr("tools"), Color: model.Ptr("red")}); err == nil {
		t.Fatalf("expected validation error for bad color")
	}

	tools, err := store.CreateTag(ctx, "u1", model.TagInput{Name: model.Ptr("tools")})
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if tools.Color != model.DefaultTagColor("tools") {
		t.Fatalf("expected default color, got %q", tools.Color)
	}
	if _, err := store.CreateTag(ctx, "u1", model.TagInput{Name: model.Ptr("Tools")}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate tag: got %v", err)
	}
	if _, err := store.CreateTag(ctx, "u2", model.TagInput{Name: model.Ptr("tools")}); err != nil {
		t.Fatalf("other user's tag: %v", err)
	}
	if _, err := store.CreateTag(ctx, "u1", model.TagInput{Name: model.Ptr("Attic"), Color: model.Ptr("#112233")}); err != nil {
		t.Fatalf("create tag: %v", err)
	}

	tags, err := store.ListTags(ctx, "u1")
	if err != nil {
		t.Fatalf("list tags: %v", err)
	}
	if len(tags) != 2 || tags[0].Name != "Attic" || tags[0].Color != "#112233" || tags[1].Name != "tools" {
		t.Fatalf("unexpected tags: %+v", tags)
	}

	if _, err := store.UpdateTag(ctx, "u2", tools.ID, model.TagInput{Name: model.Ptr("mine")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update other user's tag: got %v", err)
	}
	if _, err := store.UpdateTag(ctx, "u1", tools.ID, model.TagInput{Name: model.Ptr("attic")}); !errors.Is(err, ErrConflict) {
		t.Fatalf("rename onto existing tag: got %v", err)
	}
	if err := store.DeleteTag(ctx, "u2", tools.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete other user's tag: got %v", err)
	}
}

func TestItemTagsFollowTagChanges(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	garage, err := store.CreateContainer(ctx, "u1", model.ContainerInput{Name: model.Ptr("Garage")})
	if err != nil {
		t.Fatalf("create container: %v", err)
	}
	drill, err := store.CreateItem(ctx, "u1", garage.ID, model.ItemInput{Name: model.Ptr("Drill"), Tags: []string{"tools", "power"}})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	tags, err := store.ListTags(ctx, "u1")
	if err != nil {
		t.Fatalf("list tags: %v", err)
	}
	if len(tags) != 2 || tags[0].Name != "power" || tags[1].Name != "tools" {
		t.Fatalf("item tags not registered: %+v", tags)
	}

	// registering again must not duplicate
	if _, err := store.UpdateItem(ctx, "u1", drill.ID, model.ItemInput{Tags: []string{"Tools", "power"}}); err != nil {
		t.Fatalf("update item: %v", err)
	}
	tags, _ = store.ListTags(ctx, "u1")
	if len(tags) != 2 {
		t.Fatalf("tags duplicated: %+v", tags)
	}

	power := tags[0]
	if _, err := store.UpdateTag(ctx, "u1", power.ID, model.TagInput{Name: model.Ptr("electric"), Color: model.Ptr("")}); err != nil {
		t.Fatalf("rename tag: %v", err)
	}
	items, err := store.ListItems(ctx, "u1", garage.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if !slices.Equal(items[0].Tags, []string{"Tools", "electric"}) {
		t.Fatalf("rename not applied to items: %+v", items[0].Tags)
	}

	if err := store.DeleteTag(ctx, "u1", tags[1].ID); err != nil {
		t.Fatalf("delete tag: %v", err)
	}
	items, _ = store.ListItems(ctx, "u1", garage.ID)
	if !slices.Equal(items[0].Tags, []string{"electric"}) {
		t.Fatalf("delete not applied to items: %+v", items[0].Tags)
	}
}

func TestCategoryHierarchy(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	if _, err := store.CreateCategory(ctx, "u1", model.CategoryInput{}); err == nil {
		t.Fatalf("expected validation error for missing name")
	}
	tools, err := store.CreateCategory(ctx, "u1", model.CategoryInput{Name: model.Ptr("Tools")})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	power, err := store.CreateCategory(ctx, "u1", model.CategoryInput{Name: model.Ptr("Power"), ParentID: model.Ptr(tools.ID)})
	if err != nil {
		t.Fatalf("create subcategory: %v", err)
	}
	if power.Path != "Tools > Power" {
		t.Fatalf("unexpected path %q", power.Path)
	}
	if _, err := store.CreateCategory(ctx, "u2", model.CategoryInput{Name: model.Ptr("Mine"), ParentID: model.Ptr(tools.ID)}); err == nil {
		t.Fatalf("expected error for another user's parent")
	}

	var verr *ValidationError
	if _, err := store.UpdateCategory(ctx, "u1", tools.ID, model.CategoryInput{ParentID: model.Ptr(power.ID)}); !errors.As(err, &verr) {
		t.Fatalf("cycle: got %v", err)
	}
	renamed, err := store.UpdateCategory(ctx, "u1", tools.ID, model.CategoryInput{Name: model.Ptr("Workshop")})
	if err != nil {
		t.Fatalf("rename category: %v", err)
	}
	if renamed.Path != "Workshop" {
		t.Fatalf("unexpected path %q", renamed.Path)
	}

	categories, err := store.ListCategories(ctx, "u1")
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(categories) != 2 || categories[1].Path != "Workshop > Power" {
		t.Fatalf("unexpected categories: %+v", categories)
	}
	if others, _ := store.ListCategories(ctx, "u2"); len(others) != 0 {
		t.Fatalf("categories leaked to another user: %+v", others)
	}

	if err := store.DeleteCategory(ctx, "u1", tools.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("delete with subcategories: got %v", err)
	}
	moved, err := store.UpdateCategory(ctx, "u1", power.ID, model.CategoryInput{ParentID: model.Ptr("")})
	if err != nil {
		t.Fatalf("move to top level: %v", err)
	}
	if moved.ParentID != "" || moved.Path != "Power" {
		t.Fatalf("unexpected moved category: %+v", moved)
	}
	if err := store.DeleteCategory(ctx, "u1", tools.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
}

func TestItemCategoryMustBeKnown(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	garage, _ := store.CreateContainer(ctx, "u1", model.ContainerInput{Name: model.Ptr("Garage")})
	mine, _ := store.CreateCategory(ctx, "u1", model.CategoryInput{Name: model.Ptr("Tools")})
	theirs, _ := store.CreateCategory(ctx, "u2", model.CategoryInput{Name: model.Ptr("Secret")})

	var verr *ValidationError
	if _, err := store.CreateItem(ctx, "u1", garage.ID, model.ItemInput{Name: model.Ptr("Drill"), CategoryID: model.Ptr("nope")}); !errors.As(err, &verr) {
		t.Fatalf("unknown category: got %v", err)
	}
	if _, err := store.CreateItem(ctx, "u1", garage.ID, model.ItemInput{Name: model.Ptr("Drill"), CategoryID: model.Ptr(theirs.ID)}); !errors.As(err, &verr) {
		t.Fatalf("another user's category: got %v", err)
	}
	drill, err := store.CreateItem(ctx, "u1", garage.ID, model.ItemInput{Name: model.Ptr("Drill"), CategoryID: model.Ptr(mine.ID)})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if _, err := store.UpdateItem(ctx, "u1", drill.ID, model.ItemInput{CategoryID: model.Ptr(theirs.ID)}); !errors.As(err, &verr) {
		t.Fatalf("update to another user's category: got %v", err)
	}

	if err := store.DeleteCategory(ctx, "u1", mine.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	items, _ := store.ListItems(ctx, "u1", garage.ID)
	if items[0].CategoryID != "" {
		t.Fatalf("category not cleared from item: %+v", items[0])
	}
}

func TestCategoriesFromTemplate(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	var verr *ValidationError
	if _, err := store.CreateCategoriesFromTemplate(ctx, "u1", "Spaceships"); !errors.As(err, &verr) {
		t.Fatalf("unknown template: got %v", err)
	}
	created, err := store.CreateCategoriesFromTemplate(ctx, "u1", "tools")
	if err != nil {
		t.Fatalf("create from template: %v", err)
	}
	template, _ := model.FindCategoryTemplate("Tools")
	if len(created) != template.Count() || created[0].Name != "Tools" || created[1].Path != "Tools > Hand Tools" {
		t.Fatalf("unexpected categories: %+v", created)
	}
	listed, _ := store.ListCategories(ctx, "u1")
	if len(listed) != template.Count() {
		t.Fatalf("expected %d categories, got %d", template.Count(), len(listed))
	}
}
