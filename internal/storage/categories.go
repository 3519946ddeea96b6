package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/kegdev/hearth/internal/model"
)

// categories loads all of the user's categories with their paths, sorted
// by path.
func (s *SQLiteStore) categories(ctx context.Context, q dbtx, userID string) ([]model.Category, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, name, parent_id, created_at, updated_at
		FROM categories
		WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]model.Category, 0)
	for rows.Next() {
		var c model.Category
		var createdAt, updatedAt int64
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.ParentID, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.CreatedAt = fromMillis(createdAt)
		c.UpdatedAt = fromMillis(updatedAt)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	setPaths(categories)
	slices.SortFunc(categories, func(a, b model.Category) int {
		return strings.Compare(strings.ToLower(a.Path), strings.ToLower(b.Path))
	})
	return categories, nil
}

// setPaths derives each category's path from its ancestors' names.
func setPaths(categories []model.Category) {
	byID := make(map[string]model.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	for i := range categories {
		names := []string{categories[i].Name}
		seen := map[string]bool{categories[i].ID: true}
		for parent := categories[i].ParentID; parent != "" && !seen[parent]; {
			p, ok := byID[parent]
			if !ok {
				break
			}
			seen[parent] = true
			names = append(names, p.Name)
			parent = p.ParentID
		}
		slices.Reverse(names)
		categories[i].Path = strings.Join(names, model.CategoryPathSeparator)
	}
}

func findCategory(categories []model.Category, id string) (model.Category, bool) {
	i := slices.IndexFunc(categories, func(c model.Category) bool { return c.ID == id })
	if i < 0 {
		return model.Category{}, false
	}
	return categories[i], true
}

// isDescendant reports whether candidate sits somewhere below ancestor.
func isDescendant(categories []model.Category, candidate string, ancestor string) bool {
	seen := map[string]bool{}
	for id := candidate; id != "" && !seen[id]; {
		if id == ancestor {
			return true
		}
		seen[id] = true
		c, ok := findCategory(categories, id)
		if !ok {
			return false
		}
		id = c.ParentID
	}
	return false
}

func (s *SQLiteStore) ListCategories(ctx context.Context, userID string) ([]model.Category, error) {
	return s.categories(ctx, s.db, userID)
}

func (s *SQLiteStore) CreateCategory(ctx context.Context, userID string, in model.CategoryInput) (model.Category, error) {
	if err := in.ValidateCreate(); err != nil {
		return model.Category{}, invalid(err)
	}
	transaction, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Category{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = transaction.Rollback() }()

	existing, err := s.categories(ctx, transaction, userID)
	if err != nil {
		return model.Category{}, err
	}
	category, err := s.insertCategory(ctx, transaction, userID, trimmed(in.Name), trimmed(in.ParentID), existing)
	if err != nil {
		return model.Category{}, err
	}
	if err := transaction.Commit(); err != nil {
		return model.Category{}, fmt.Errorf("commit category: %w", err)
	}
	return category, nil
}

func (s *SQLiteStore) insertCategory(ctx context.Context, q dbtx, userID string, name string, parentID string, existing []model.Category) (model.Category, error) {
	now := s.timestamp()
	category := model.Category{ID: uuid.NewString(), Name: name, ParentID: parentID, Path: name, UserID: userID, CreatedAt: now, UpdatedAt: now}
	if parentID != "" {
		parent, ok := findCategory(existing, parentID)
		if !ok {
			return model.Category{}, invalid(fmt.Errorf("unknown parent category %s", parentID))
		}
		category.Path = parent.Path + model.CategoryPathSeparator + name
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, parent_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, category.ID, userID, category.Name, category.ParentID, toMillis(now), toMillis(now))
	if err != nil {
		return model.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return category, nil
}

// UpdateCategory renames or moves a category. Moving it below itself or one
// of its descendants is rejected.
func (s *SQLiteStore) UpdateCategory(ctx context.Context, userID string, categoryID string, in model.CategoryInput) (model.Category, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return model.Category{}, invalid(errors.New("category name cannot be empty"))
	}
	transaction, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Category{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = transaction.Rollback() }()

	existing, err := s.categories(ctx, transaction, userID)
	if err != nil {
		return model.Category{}, err
	}
	category, ok := findCategory(existing, categoryID)
	if !ok {
		return model.Category{}, fmt.Errorf("category %s: %w", categoryID, ErrNotFound)
	}
	if in.Name != nil {
		category.Name = trimmed(in.Name)
	}
	if in.ParentID != nil {
		parentID := trimmed(in.ParentID)
		if parentID != "" {
			if _, ok := findCategory(existing, parentID); !ok {
				return model.Category{}, invalid(fmt.Errorf("unknown parent category %s", parentID))
			}
			if isDescendant(existing, parentID, category.ID) {
				return model.Category{}, invalid(errors.New("a category cannot be moved below itself"))
			}
		}
		category.ParentID = parentID
	}
	category.UpdatedAt = s.timestamp()
	_, err = transaction.ExecContext(ctx, `
		UPDATE categories SET name = ?, parent_id = ?, updated_at = ? WHERE id = ?
	`, category.Name, category.ParentID, toMillis(category.UpdatedAt), category.ID)
	if err != nil {
		return model.Category{}, fmt.Errorf("update category: %w", err)
	}

	updated, err := s.categories(ctx, transaction, userID)
	if err != nil {
		return model.Category{}, err
	}
	category, _ = findCategory(updated, category.ID)
	if err := transaction.Commit(); err != nil {
		return model.Category{}, fmt.Errorf("commit category: %w", err)
	}
	return category, nil
}

// DeleteCategory removes a category without subcategories and clears it
// from the items filed under it.
func (s *SQLiteStore) DeleteCategory(ctx context.Context, userID string, categoryID string) error {
	transaction, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = transaction.Rollback() }()

	existing, err := s.categories(ctx, transaction, userID)
	if err != nil {
		return err
	}
	if _, ok := findCategory(existing, categoryID); !ok {
		return fmt.Errorf("category %s: %w", categoryID, ErrNotFound)
	}
	if slices.ContainsFunc(existing, func(c model.Category) bool { return c.ParentID == categoryID }) {
		return fmt.Errorf("category %s has subcategories: %w", categoryID, ErrConflict)
	}
	for _, stmt := range []string{
		`UPDATE items SET category_id = '' WHERE category_id = ?`,
		`DELETE FROM categories WHERE id = ?`,
	} {
		if _, err := transaction.ExecContext(ctx, stmt, categoryID); err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
	}
	if err := transaction.Commit(); err != nil {
		return fmt.Errorf("commit category: %w", err)
	}
	return nil
}

// CreateCategoriesFromTemplate adds a template's whole hierarchy for the
// user and returns the new categories in creation order.
func (s *SQLiteStore) CreateCategoriesFromTemplate(ctx context.Context, userID string, templateName string) ([]model.Category, error) {
	template, ok := model.FindCategoryTemplate(templateName)
	if !ok {
		return nil, invalid(fmt.Errorf("unknown category template %q", templateName))
	}
	transaction, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = transaction.Rollback() }()

	existing, err := s.categories(ctx, transaction, userID)
	if err != nil {
		return nil, err
	}
	created := make([]model.Category, 0, template.Count())
	var add func(node model.CategoryTemplate, parentID string) error
	add = func(node model.CategoryTemplate, parentID string) error {
		category, err := s.insertCategory(ctx, transaction, userID, node.Name, parentID, existing)
		if err != nil {
			return err
		}
		existing = append(existing, category)
		created = append(created, category)
		for _, child := range node.Children {
			if err := add(child, category.ID); err != nil {
				return err
			}
		}
		return nil
	}
	if err := add(template, ""); err != nil {
		return nil, err
	}
	if err := transaction.Commit(); err != nil {
		return nil, fmt.Errorf("commit categories: %w", err)
	}
	return created, nil
}

// checkCategory accepts an empty id, or a category owned by one of owners.
func checkCategory(ctx context.Context, q querier, categoryID string, owners ...string) error {
	if categoryID == "" {
		return nil
	}
	var owner string
	err := q.QueryRowContext(ctx, `SELECT user_id FROM categories WHERE id = ?`, categoryID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !slices.Contains(owners, owner)) {
		return invalid(fmt.Errorf("unknown category %s", categoryID))
	}
	if err != nil {
		return fmt.Errorf("query category: %w", err)
	}
	return nil
}
