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

// access is what a user may do with one container.
type access struct {
	container  model.Container
	owner      bool
	permission model.SharePermission
}

func (a access) canEdit() bool {
	return a.owner || a.permission.CanEdit()
}

const containerColumns = `c.id, c.user_id, c.name, c.description, c.location, c.image_url, c.created_at, c.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContainer(row rowScanner, extra ...any) (model.Container, error) {
	var c model.Container
	var createdAt, updatedAt int64
	dest := append([]any{&c.ID, &c.UserID, &c.Name, &c.Description, &c.Location, &c.ImageURL, &createdAt, &updatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return model.Container{}, err
	}
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return c, nil
}

// containerAccess loads a container the user can see. Containers the user
// has no access to are reported as missing.
func (s *SQLiteStore) containerAccess(ctx context.Context, q querier, userID string, containerID string) (access, error) {
	var permission sql.NullString
	container, err := scanContainer(q.QueryRowContext(ctx, `
		SELECT `+containerColumns+`, sh.permission
		FROM containers c
		LEFT JOIN container_shares sh ON sh.container_id = c.id AND sh.shared_with_id = ?
		WHERE c.id = ?
	`, userID, containerID), &permission)
	if errors.Is(err, sql.ErrNoRows) {
		return access{}, fmt.Errorf("container %s: %w", containerID, ErrNotFound)
	}
	if err != nil {
		return access{}, fmt.Errorf("query container: %w", err)
	}
	a := access{container: container, owner: container.UserID == userID}
	if !a.owner {
		if !permission.Valid {
			return access{}, fmt.Errorf("container %s: %w", containerID, ErrNotFound)
		}
		a.permission = model.SharePermission(permission.String)
	}
	return a, nil
}

func (s *SQLiteStore) ListContainers(ctx context.Context, userID string) ([]model.ContainerWithSharing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+containerColumns+`, 0, '', ''
		FROM containers c
		WHERE c.user_id = ?
		UNION ALL
		SELECT `+containerColumns+`, 1, sh.shared_by_name, sh.permission
		FROM containers c
		JOIN container_shares sh ON sh.container_id = c.id
		WHERE sh.shared_with_id = ? AND c.user_id != ?
		ORDER BY 9 ASC, 7 DESC
	`, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("query containers: %w", err)
	}
	defer rows.Close()

	containers := make([]model.ContainerWithSharing, 0)
	for rows.Next() {
		var entry model.ContainerWithSharing
		var permission string
		entry.Container, err = scanContainer(rows, &entry.IsShared, &entry.SharedByName, &permission)
		if err != nil {
			return nil, fmt.Errorf("scan container: %w", err)
		}
		entry.SharePermission = model.SharePermission(permission)
		containers = append(containers, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate containers: %w", err)
	}
	return containers, nil
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func (s *SQLiteStore) CreateContainer(ctx context.Context, userID string, in model.ContainerInput) (model.Container, error) {
	if err := in.ValidateCreate(); err != nil {
		return model.Container{}, invalid(err)
	}
	now := s.timestamp()
	container := model.Container{
		ID:          uuid.NewString(),
		Name:        trimmed(in.Name),
		Description: trimmed(in.Description),
		Location:    trimmed(in.Location),
		ImageURL:    trimmed(in.ImageURL),
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO containers (id, user_id, name, description, location, image_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, container.ID, container.UserID, container.Name, container.Description, container.Location, container.ImageURL,
		toMillis(now), toMillis(now))
	if err != nil {
		return model.Container{}, fmt.Errorf("insert container: %w", err)
	}
	return container, nil
}

func (s *SQLiteStore) UpdateContainer(ctx context.Context, userID string, containerID string, in model.ContainerInput) (model.Container, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return model.Container{}, invalid(errors.New("container name cannot be empty"))
	}
	transaction, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Container{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = transaction.Rollback() }()

	a, err := s.containerAccess(ctx, transaction, userID, containerID)
	if err != nil {
		return model.Container{}, err
	}
	if !a.canEdit() {
		return model.Container{}, fmt.Errorf("update container: %w", ErrForbidden)
	}

	c := a.container
	if in.Name != nil {
		c.Name = trimmed(in.Name)
	}
	if in.Description != nil {
		c.Description = trimmed(in.Description)
	}
	if in.Location != nil {
		c.Location = trimmed(in.Location)
	}
	if in.ImageURL != nil {
		c.ImageURL = trimmed(in.ImageURL)
	}
	c.UpdatedAt = s.timestamp()

	_, err = transaction.ExecContext(ctx, `
		UPDATE containers
		SET name = ?, description = ?, location = ?, image_url = ?, updated_at = ?
		WHERE id = ?
	`, c.Name, c.Description, c.Location, c.ImageURL, toMillis(c.UpdatedAt), c.ID)
	if err != nil {
		return model.Container{}, fmt.Errorf("update container: %w", err)
	}
	if err := transaction.Commit(); err != nil {
		return model.Container{}, fmt.Errorf("commit container: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) DeleteContainer(ctx context.Context, userID string, containerID string) error {
	transaction, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = transaction.Rollback() }()

	a, err := s.containerAccess(ctx, transaction, userID, containerID)
	if err != nil {
		return err
	}
	if !a.owner {
		return fmt.Errorf("delete container: %w", ErrForbidden)
	}
	for _, stmt := range []string{
		`DELETE FROM items WHERE container_id = ?`,
		`DELETE FROM container_shares WHERE container_id = ?`,
		`DELETE FROM containers WHERE id = ?`,
	} {
		if _, err := transaction.ExecContext(ctx, stmt, containerID); err != nil {
			return fmt.Errorf("delete container: %w", err)
		}
	}
	if err := transaction.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ShareContainer(ctx context.Context, ownerID string, containerID string, in model.ShareInput) (model.ContainerShare, error) {
	if !in.Permission.Valid() {
		return model.ContainerShare{}, invalid(fmt.Errorf("unknown permission %q", in.Permission))
	}
	transaction, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.ContainerShare{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = transaction.Rollback() }()

	a, err := s.containerAccess(ctx, transaction, ownerID, containerID)
	if err != nil {
		return model.ContainerShare{}, err
	}
	if !a.owner {
		return model.ContainerShare{}, fmt.Errorf("share container: %w", ErrForbidden)
	}
	target, err := s.profileByEmail(ctx, transaction, in.Email)
	if err != nil {
		return model.ContainerShare{}, err
	}
	if target == nil || target.Status != model.StatusApproved {
		return model.ContainerShare{}, invalid(fmt.Errorf("no approved user with email %s", model.NormalizeEmail(in.Email)))
	}
	if target.UID == ownerID {
		return model.ContainerShare{}, invalid(errors.New("cannot share a container with yourself"))
	}
	owner, err := s.profile(ctx, transaction, ownerID)
	if err != nil {
		return model.ContainerShare{}, err
	}
	sharedBy := ""
	if owner != nil {
		sharedBy = owner.DisplayName
		if sharedBy == "" {
			sharedBy = owner.Email
		}
	}

	now := s.timestamp()
	share := model.ContainerShare{
		ID:              uuid.NewString(),
		ContainerID:     containerID,
		OwnerID:         ownerID,
		SharedWithID:    target.UID,
		SharedWithEmail: target.Email,
		SharedWithName:  target.DisplayName,
		SharedByName:    sharedBy,
		Permission:      in.Permission,
		SharedAt:        now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	result, err := transaction.ExecContext(ctx, `
		INSERT OR IGNORE INTO container_shares
			(id, container_id, owner_id, shared_with_id, shared_with_email, shared_with_name, shared_by_name, permission, shared_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, share.ID, share.ContainerID, share.OwnerID, share.SharedWithID, share.SharedWithEmail, share.SharedWithName,
		share.SharedByName, string(share.Permission), toMillis(now), toMillis(now), toMillis(now))
	if err != nil {
		return model.ContainerShare{}, fmt.Errorf("insert share: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return model.ContainerShare{}, fmt.Errorf("container already shared with %s: %w", share.SharedWithEmail, ErrConflict)
	}
	if err := transaction.Commit(); err != nil {
		return model.ContainerShare{}, fmt.Errorf("commit share: %w", err)
	}
	return share, nil
}

func (s *SQLiteStore) UnshareContainer(ctx context.Context, ownerID string, containerID string, sharedWithID string) error {
	a, err := s.containerAccess(ctx, s.db, ownerID, containerID)
	if err != nil {
		return err
	}
	if !a.owner {
		return fmt.Errorf("unshare container: %w", ErrForbidden)
	}
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM container_shares WHERE container_id = ? AND shared_with_id = ?
	`, containerID, sharedWithID)
	if err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("share for %s: %w", sharedWithID, ErrNotFound)
	}
	return nil
}
