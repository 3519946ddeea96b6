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

// dbtx is what both *sql.DB and *sql.Tx offer.
type dbtx interface {
	querier
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const tagColumns = `id, user_id, name, color, created_at, updated_at`

func scanTag(row rowScanner) (model.Tag, error) {
	var tag model.Tag
	var createdAt, updatedAt int64
	if err := row.Scan(&tag.ID, &tag.UserID, &tag.Name, &tag.Color, &createdAt, &updatedAt); err != nil {
		return model.Tag{}, err
	}
	tag.CreatedAt = fromMillis(createdAt)
	tag.UpdatedAt = fromMillis(updatedAt)
	return tag, nil
}

func (s *SQLiteStore) ListTags(ctx context.Context, userID string) ([]model.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+tagColumns+`
		FROM tags
		WHERE user_id = ?
		ORDER BY name COLLATE NOCASE ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	tags := make([]model.Tag, 0)
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return tags, nil
}

func (s *SQLiteStore) tag(ctx context.Context, q querier, userID string, tagID string) (model.Tag, error) {
	tag, err := scanTag(q.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE id = ? AND user_id = ?`, tagID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Tag{}, fmt.Errorf("tag %s: %w", tagID, ErrNotFound)
	}
	if err != nil {
		return model.Tag{}, fmt.Errorf("query tag: %w", err)
	}
	return tag, nil
}

// tagNameTaken reports whether the user has a tag called name, ignoring
// case, other than exceptID.
func tagNameTaken(ctx context.Context, q querier, userID string, name string, exceptID string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tags WHERE user_id = ? AND name = ? COLLATE NOCASE AND id != ?
	`, userID, name, exceptID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query tag name: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) CreateTag(ctx context.Context, userID string, in model.TagInput) (model.Tag, error) {
	if err := in.ValidateCreate(); err != nil {
		return model.Tag{}, invalid(err)
	}
	now := s.timestamp()
	tag := model.Tag{ID: uuid.NewString(), Name: trimmed(in.Name), Color: trimmed(in.Color), UserID: userID, CreatedAt: now, UpdatedAt: now}
	if tag.Color == "" {
		tag.Color = model.DefaultTagColor(tag.Name)
	}
	taken, err := tagNameTaken(ctx, s.db, userID, tag.Name, "")
	if err != nil {
		return model.Tag{}, err
	}
	if taken {
		return model.Tag{}, fmt.Errorf("tag %q: %w", tag.Name, ErrConflict)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tags (`+tagColumns+`) VALUES (?, ?, ?, ?, ?, ?)
	`, tag.ID, tag.UserID, tag.Name, tag.Color, toMillis(now), toMillis(now))
	if err != nil {
		return model.Tag{}, fmt.Errorf("insert tag: %w", err)
	}
	return tag, nil
}

func (s *SQLiteStore) UpdateTag(ctx context.Context, userID string, tagID string, in model.TagInput) (model.Tag, error) {
	if err := in.ValidateUpdate(); err != nil {
		return model.Tag{}, invalid(err)
	}
	transaction, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Tag{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = transaction.Rollback() }()

	tag, err := s.tag(ctx, transaction, userID, tagID)
	if err != nil {
		return model.Tag{}, err
	}
	oldName := tag.Name
	if in.Name != nil {
		tag.Name = trimmed(in.Name)
	}
	if in.Color != nil {
		tag.Color = trimmed(in.Color)
		if tag.Color == "" {
			tag.Color = model.DefaultTagColor(tag.Name)
		}
	}
	if tag.Name != oldName {
		taken, err := tagNameTaken(ctx, transaction, userID, tag.Name, tag.ID)
		if err != nil {
			return model.Tag{}, err
		}
		if taken {
			return model.Tag{}, fmt.Errorf("tag %q: %w", tag.Name, ErrConflict)
		}
		if err := retagItems(ctx, transaction, userID, oldName, tag.Name); err != nil {
			return model.Tag{}, err
		}
	}
	tag.UpdatedAt = s.timestamp()
	_, err = transaction.ExecContext(ctx, `
		UPDATE tags SET name = ?, color = ?, updated_at = ? WHERE id = ?
	`, tag.Name, tag.Color, toMillis(tag.UpdatedAt), tag.ID)
	if err != nil {
		return model.Tag{}, fmt.Errorf("update tag: %w", err)
	}
	if err := transaction.Commit(); err != nil {
		return model.Tag{}, fmt.Errorf("commit tag: %w", err)
	}
	return tag, nil
}

func (s *SQLiteStore) DeleteTag(ctx context.Context, userID string, tagID string) error {
	transaction, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = transaction.Rollback() }()

	tag, err := s.tag(ctx, transaction, userID, tagID)
	if err != nil {
		return err
	}
	if err := retagItems(ctx, transaction, userID, tag.Name, ""); err != nil {
		return err
	}
	if _, err := transaction.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, tag.ID); err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if err := transaction.Commit(); err != nil {
		return fmt.Errorf("commit tag: %w", err)
	}
	return nil
}

// retagItems renames tag from to to on every item the user created. An empty
// to removes the tag.
func retagItems(ctx context.Context, q dbtx, userID string, from string, to string) error {
	rows, err := q.QueryContext(ctx, `SELECT id, tags FROM items WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("query item tags: %w", err)
	}
	type change struct{ id, tags string }
	var changes []change
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			rows.Close()
			return fmt.Errorf("scan item tags: %w", err)
		}
		tags, err := decodeTags(raw)
		if err != nil {
			rows.Close()
			return fmt.Errorf("decode tags: %w", err)
		}
		updated, changed := replaceTag(tags, from, to)
		if !changed {
			continue
		}
		encoded, err := encodeTags(updated)
		if err != nil {
			rows.Close()
			return fmt.Errorf("encode tags: %w", err)
		}
		changes = append(changes, change{id: id, tags: encoded})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate item tags: %w", err)
	}
	for _, c := range changes {
		if _, err := q.ExecContext(ctx, `UPDATE items SET tags = ? WHERE id = ?`, c.tags, c.id); err != nil {
			return fmt.Errorf("retag item: %w", err)
		}
	}
	return nil
}

func replaceTag(tags []string, from string, to string) ([]string, bool) {
	out := make([]string, 0, len(tags))
	changed := false
	for _, tag := range tags {
		if !strings.EqualFold(tag, from) {
			out = append(out, tag)
			continue
		}
		changed = true
		if to != "" && !slices.ContainsFunc(out, func(t string) bool { return strings.EqualFold(t, to) }) {
			out = append(out, to)
		}
	}
	return out, changed
}

// registerTags creates a tag record for each item tag the user does not
// have yet.
func (s *SQLiteStore) registerTags(ctx context.Context, q dbtx, userID string, names []string) error {
	now := toMillis(s.timestamp())
	for _, name := range names {
		_, err := q.ExecContext(ctx, `
			INSERT INTO tags (`+tagColumns+`)
			SELECT ?, ?, ?, ?, ?, ?
			WHERE NOT EXISTS (SELECT 1 FROM tags WHERE user_id = ? AND name = ? COLLATE NOCASE)
		`, uuid.NewString(), userID, name, model.DefaultTagColor(name), now, now, userID, name)
		if err != nil {
			return fmt.Errorf("register tag: %w", err)
		}
	}
	return nil
}
