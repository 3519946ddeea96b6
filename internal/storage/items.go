package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kegdev/hearth/internal/model"
)

const itemColumns = `id, container_id, user_id, name, description, image_url, tags, category_id, purchase_price,
	current_value, purchase_date, condition, warranty, serial_number, model, brand, created_at, updated_at`

func scanItem(row rowScanner) (model.Item, error) {
	var item model.Item
	var tags, condition string
	var purchasePrice, currentValue sql.NullFloat64
	var purchaseDate sql.NullInt64
	var createdAt, updatedAt int64
	err := row.Scan(&item.ID, &item.ContainerID, &item.UserID, &item.Name, &item.Description, &item.ImageURL, &tags,
		&item.CategoryID, &purchasePrice, &currentValue, &purchaseDate, &condition, &item.Warranty,
		&item.SerialNumber, &item.Model, &item.Brand, &createdAt, &updatedAt)
	if err != nil {
		return model.Item{}, err
	}
	item.Tags, err = decodeTags(tags)
	if err != nil {
		return model.Item{}, fmt.Errorf("decode tags: %w", err)
	}
	item.PurchasePrice = floatPtr(purchasePrice)
	item.CurrentValue = floatPtr(currentValue)
	item.PurchaseDate = timePtr(purchaseDate)
	item.Condition = model.Condition(condition)
	item.CreatedAt = fromMillis(createdAt)
	item.UpdatedAt = fromMillis(updatedAt)
	return item, nil
}

func (s *SQLiteStore) ListItems(ctx context.Context, userID string, containerID string) ([]model.Item, error) {
	if _, err := s.containerAccess(ctx, s.db, userID, containerID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE container_id = ?
		ORDER BY created_at DESC
	`, containerID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := make([]model.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// applyItemInput copies the non-nil fields of in onto item.
func applyItemInput(item *model.Item, in model.ItemInput) {
	if in.Name != nil {
		item.Name = trimmed(in.Name)
	}
	if in.Description != nil {
		item.Description = trimmed(in.Description)
	}
	if in.ContainerID != nil {
		item.ContainerID = trimmed(in.ContainerID)
	}
	if in.ImageURL != nil {
		item.ImageURL = trimmed(in.ImageURL)
	}
	if in.Tags != nil {
		item.Tags = cleanTags(in.Tags)
	}
	if in.CategoryID != nil {
		item.CategoryID = trimmed(in.CategoryID)
	}
	if in.PurchasePrice != nil {
		item.PurchasePrice = in.PurchasePrice
	}
	if in.CurrentValue != nil {
		item.CurrentValue = in.CurrentValue
	}
	if in.PurchaseDate != nil {
		item.PurchaseDate = in.PurchaseDate
	}
	if in.Condition != nil {
		item.Condition = *in.Condition
	}
	if in.Warranty != nil {
		item.Warranty = trimmed(in.Warranty)
	}
	if in.SerialNumber != nil {
		item.SerialNumber = trimmed(in.SerialNumber)
	}
	if in.Model != nil {
		item.Model = trimmed(in.Model)
	}
	if in.Brand != nil {
		item.Brand = trimmed(in.Brand)
	}
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func (s *SQLiteStore) CreateItem(ctx context.Context, userID string, containerID string, in model.ItemInput) (model.Item, error) {
	if err := in.ValidateCreate(); err != nil {
		return model.Item{}, invalid(err)
	}
	transaction, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Item{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = transaction.Rollback() }()

	a, err := s.containerAccess(ctx, transaction, userID, containerID)
	if err != nil {
		return model.Item{}, err
	}
	if !a.canEdit() {
		return model.Item{}, fmt.Errorf("create item: %w", ErrForbidden)
	}

	now := s.timestamp()
	item := model.Item{ID: uuid.NewString(), Tags: []string{}, UserID: userID, CreatedAt: now, UpdatedAt: now}
	applyItemInput(&item, in)
	item.ContainerID = containerID
	if err := checkCategory(ctx, transaction, item.CategoryID, userID, a.container.UserID); err != nil {
		return model.Item{}, err
	}

	tags, err := encodeTags(item.Tags)
	if err != nil {
		return model.Item{}, fmt.Errorf("encode tags: %w", err)
	}
	_, err = transaction.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.ContainerID, item.UserID, item.Name, item.Description, item.ImageURL, tags, item.CategoryID,
		nullFloat(item.PurchasePrice), nullFloat(item.CurrentValue), nullMillis(item.PurchaseDate), string(item.Condition),
		item.Warranty, item.SerialNumber, item.Model, item.Brand, toMillis(now), toMillis(now))
	if err != nil {
		return model.Item{}, fmt.Errorf("insert item: %w", err)
	}
	if err := s.registerTags(ctx, transaction, userID, item.Tags); err != nil {
		return model.Item{}, err
	}
	if err := transaction.Commit(); err != nil {
		return model.Item{}, fmt.Errorf("commit item: %w", err)
	}
	return item, nil
}

func (s *SQLiteStore) item(ctx context.Context, q querier, itemID string) (model.Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Item{}, fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("query item: %w", err)
	}
	return item, nil
}

func (s *SQLiteStore) UpdateItem(ctx context.Context, userID string, itemID string, in model.ItemInput) (model.Item, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return model.Item{}, invalid(errors.New("item name cannot be empty"))
	}
	transaction, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Item{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = transaction.Rollback() }()

	item, err := s.item(ctx, transaction, itemID)
	if err != nil {
		return model.Item{}, err
	}
	a, err := s.containerAccess(ctx, transaction, userID, item.ContainerID)
	if err != nil {
		return model.Item{}, fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}
	if !a.canEdit() {
		return model.Item{}, fmt.Errorf("update item: %w", ErrForbidden)
	}

	applyItemInput(&item, in)
	owner := a.container.UserID
	if item.ContainerID != a.container.ID {
		target, err := s.containerAccess(ctx, transaction, userID, item.ContainerID)
		if err != nil {
			return model.Item{}, err
		}
		if !target.canEdit() {
			return model.Item{}, fmt.Errorf("move item: %w", ErrForbidden)
		}
		owner = target.container.UserID
	}
	if in.CategoryID != nil {
		if err := checkCategory(ctx, transaction, item.CategoryID, userID, owner); err != nil {
			return model.Item{}, err
		}
	}
	item.UpdatedAt = s.timestamp()

	tags, err := encodeTags(item.Tags)
	if err != nil {
		return model.Item{}, fmt.Errorf("encode tags: %w", err)
	}
	_, err = transaction.ExecContext(ctx, `
		UPDATE items
		SET container_id = ?, name = ?, description = ?, image_url = ?, tags = ?, category_id = ?,
			purchase_price = ?, current_value = ?, purchase_date = ?, condition = ?, warranty = ?,
			serial_number = ?, model = ?, brand = ?, updated_at = ?
		WHERE id = ?
	`, item.ContainerID, item.Name, item.Description, item.ImageURL, tags, item.CategoryID,
		nullFloat(item.PurchasePrice), nullFloat(item.CurrentValue), nullMillis(item.PurchaseDate), string(item.Condition),
		item.Warranty, item.SerialNumber, item.Model, item.Brand, toMillis(item.UpdatedAt), item.ID)
	if err != nil {
		return model.Item{}, fmt.Errorf("update item: %w", err)
	}
	if in.Tags != nil {
		if err := s.registerTags(ctx, transaction, userID, item.Tags); err != nil {
			return model.Item{}, err
		}
	}
	if err := transaction.Commit(); err != nil {
		return model.Item{}, fmt.Errorf("commit item: %w", err)
	}
	return item, nil
}

func (s *SQLiteStore) DeleteItem(ctx context.Context, userID string, itemID string) (model.Item, error) {
	item, err := s.item(ctx, s.db, itemID)
	if err != nil {
		return model.Item{}, err
	}
	a, err := s.containerAccess(ctx, s.db, userID, item.ContainerID)
	if err != nil {
		return model.Item{}, fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}
	if !a.canEdit() {
		return model.Item{}, fmt.Errorf("delete item: %w", ErrForbidden)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, itemID); err != nil {
		return model.Item{}, fmt.Errorf("delete item: %w", err)
	}
	return item, nil
}
