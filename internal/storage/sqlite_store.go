package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kegdev/hearth/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS user_profiles (
	uid TEXT PRIMARY KEY,
	email TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	is_admin INTEGER NOT NULL DEFAULT 0,
	approved_at INTEGER,
	approved_by TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_user_profiles_email ON user_profiles(email);

CREATE TABLE IF NOT EXISTS registration_requests (
	id TEXT PRIMARY KEY,
	uid TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL,
	status TEXT NOT NULL,
	requested_at INTEGER NOT NULL,
	reviewed_at INTEGER,
	reviewed_by TEXT NOT NULL DEFAULT '',
	review_notes TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_registration_requests_email ON registration_requests(email);

CREATE TABLE IF NOT EXISTS containers (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_containers_user ON containers(user_id, created_at);

CREATE TABLE IF NOT EXISTS items (
	id TEXT PRIMARY KEY,
	container_id TEXT NOT NULL REFERENCES containers(id) ON DELETE CASCADE,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	category_id TEXT NOT NULL DEFAULT '',
	purchase_price REAL,
	current_value REAL,
	purchase_date INTEGER,
	condition TEXT NOT NULL DEFAULT '',
	warranty TEXT NOT NULL DEFAULT '',
	serial_number TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	brand TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_container ON items(container_id, created_at);

CREATE TABLE IF NOT EXISTS container_shares (
	id TEXT PRIMARY KEY,
	container_id TEXT NOT NULL REFERENCES containers(id) ON DELETE CASCADE,
	owner_id TEXT NOT NULL,
	shared_with_id TEXT NOT NULL,
	shared_with_email TEXT NOT NULL,
	shared_with_name TEXT NOT NULL DEFAULT '',
	shared_by_name TEXT NOT NULL DEFAULT '',
	permission TEXT NOT NULL,
	shared_at INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_container_shares_unique
ON container_shares(container_id, shared_with_id);

CREATE TABLE IF NOT EXISTS tags (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	color TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tags_user_name ON tags(user_id, name COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS categories (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	parent_id TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_categories_user ON categories(user_id);
`

// SQLiteStore is a SQLite-backed implementation of Store.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// PRAGMA foreign_keys is per connection.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("enable wal: %w", err)
	}
	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) timestamp() time.Time {
	return fromMillis(toMillis(s.now()))
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const profileColumns = `uid, email, display_name, status, is_admin, approved_at, approved_by, created_at, updated_at`

func scanProfile(row *sql.Row) (*model.UserProfile, error) {
	var p model.UserProfile
	var status string
	var approvedAt sql.NullInt64
	var createdAt, updatedAt int64
	err := row.Scan(&p.UID, &p.Email, &p.DisplayName, &status, &p.IsAdmin, &approvedAt, &p.ApprovedBy, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Status = model.Status(status)
	p.ApprovedAt = timePtr(approvedAt)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

func (s *SQLiteStore) profile(ctx context.Context, q querier, userID string) (*model.UserProfile, error) {
	profile, err := scanProfile(q.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM user_profiles WHERE uid = ?`, userID))
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	return profile, nil
}

func (s *SQLiteStore) Profile(ctx context.Context, userID string) (*model.UserProfile, error) {
	return s.profile(ctx, s.db, userID)
}

func (s *SQLiteStore) profileByEmail(ctx context.Context, q querier, email string) (*model.UserProfile, error) {
	profile, err := scanProfile(q.QueryRowContext(ctx, `
		SELECT `+profileColumns+` FROM user_profiles
		WHERE email = ?
		ORDER BY created_at ASC
		LIMIT 1
	`, model.NormalizeEmail(email)))
	if err != nil {
		return nil, fmt.Errorf("query profile by email: %w", err)
	}
	return profile, nil
}

func insertProfile(ctx context.Context, tx *sql.Tx, p model.UserProfile) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO user_profiles (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.UID, p.Email, p.DisplayName, string(p.Status), p.IsAdmin, nullMillis(p.ApprovedAt), p.ApprovedBy,
		toMillis(p.CreatedAt), toMillis(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *SQLiteStore) BootstrapAdmin(ctx context.Context, userID string, email string, displayName string) (*model.UserProfile, error) {
	if userID == "" {
		return nil, invalid(errors.New("user id is required"))
	}
	transaction, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = transaction.Rollback() }()

	existing, err := s.profile(ctx, transaction, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	now := s.timestamp()
	profile := model.UserProfile{
		UID:         userID,
		Email:       model.NormalizeEmail(email),
		DisplayName: displayName,
		Status:      model.StatusApproved,
		IsAdmin:     true,
		ApprovedAt:  &now,
		ApprovedBy:  "bootstrap",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := insertProfile(ctx, transaction, profile); err != nil {
		return nil, err
	}
	if err := transaction.Commit(); err != nil {
		return nil, fmt.Errorf("commit admin profile: %w", err)
	}
	return &profile, nil
}

const requestColumns = `id, uid, email, display_name, reason, status, requested_at, reviewed_at, reviewed_by, review_notes, created_at, updated_at`

func scanRequest(row *sql.Row) (*model.RegistrationRequest, error) {
	var r model.RegistrationRequest
	var status string
	var requestedAt, createdAt, updatedAt int64
	var reviewedAt sql.NullInt64
	err := row.Scan(&r.ID, &r.UID, &r.Email, &r.DisplayName, &r.Reason, &status, &requestedAt, &reviewedAt,
		&r.ReviewedBy, &r.ReviewNotes, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Status = model.Status(status)
	r.RequestedAt = fromMillis(requestedAt)
	r.ReviewedAt = timePtr(reviewedAt)
	r.CreatedAt = fromMillis(createdAt)
	r.UpdatedAt = fromMillis(updatedAt)
	return &r, nil
}

func (s *SQLiteStore) requestByEmail(ctx context.Context, q querier, email string) (*model.RegistrationRequest, error) {
	request, err := scanRequest(q.QueryRowContext(ctx, `
		SELECT `+requestColumns+` FROM registration_requests
		WHERE email = ?
		ORDER BY requested_at DESC
		LIMIT 1
	`, model.NormalizeEmail(email)))
	if err != nil {
		return nil, fmt.Errorf("query registration request: %w", err)
	}
	return request, nil
}

func (s *SQLiteStore) RegistrationRequestByEmail(ctx context.Context, email string) (*model.RegistrationRequest, error) {
	return s.requestByEmail(ctx, s.db, email)
}

func (s *SQLiteStore) CreateRegistrationRequest(ctx context.Context, userID string, in model.RegistrationInput) (model.RegistrationRequest, error) {
	if err := in.Validate(); err != nil {
		return model.RegistrationRequest{}, invalid(err)
	}
	transaction, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.RegistrationRequest{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = transaction.Rollback() }()

	profile, err := s.profile(ctx, transaction, userID)
	if err != nil {
		return model.RegistrationRequest{}, err
	}
	if profile != nil {
		return model.RegistrationRequest{}, fmt.Errorf("user already registered: %w", ErrConflict)
	}
	existing, err := s.requestByEmail(ctx, transaction, in.Email)
	if err != nil {
		return model.RegistrationRequest{}, err
	}
	if existing != nil && existing.Status == model.StatusPending {
		return model.RegistrationRequest{}, fmt.Errorf("registration request already pending: %w", ErrConflict)
	}

	now := s.timestamp()
	request := model.RegistrationRequest{
		ID:          uuid.NewString(),
		UID:         userID,
		Email:       model.NormalizeEmail(in.Email),
		DisplayName: strings.TrimSpace(in.DisplayName),
		Reason:      strings.TrimSpace(in.Reason),
		Status:      model.StatusPending,
		RequestedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err = transaction.ExecContext(ctx, `
		INSERT INTO registration_requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL, '', '', ?, ?)
	`, request.ID, request.UID, request.Email, request.DisplayName, request.Reason, string(request.Status),
		toMillis(now), toMillis(now), toMillis(now))
	if err != nil {
		return model.RegistrationRequest{}, fmt.Errorf("insert registration request: %w", err)
	}
	if err := transaction.Commit(); err != nil {
		return model.RegistrationRequest{}, fmt.Errorf("commit registration request: %w", err)
	}
	return request, nil
}

func (s *SQLiteStore) ReviewRegistrationRequest(ctx context.Context, reviewerID string, requestID string, in model.ReviewInput) (model.RegistrationRequest, error) {
	transaction, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.RegistrationRequest{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = transaction.Rollback() }()

	reviewer, err := s.profile(ctx, transaction, reviewerID)
	if err != nil {
		return model.RegistrationRequest{}, err
	}
	if reviewer == nil || !reviewer.IsAdmin {
		return model.RegistrationRequest{}, fmt.Errorf("review registration request: %w", ErrForbidden)
	}

	request, err := scanRequest(transaction.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM registration_requests WHERE id = ?`, requestID))
	if err != nil {
		return model.RegistrationRequest{}, fmt.Errorf("query registration request: %w", err)
	}
	if request == nil {
		return model.RegistrationRequest{}, fmt.Errorf("registration request %s: %w", requestID, ErrNotFound)
	}
	if request.Status != model.StatusPending {
		return model.RegistrationRequest{}, fmt.Errorf("registration request already reviewed: %w", ErrConflict)
	}

	now := s.timestamp()
	request.Status = model.StatusDenied
	if in.Approve {
		request.Status = model.StatusApproved
	}
	request.ReviewedAt = &now
	request.ReviewedBy = reviewerID
	request.ReviewNotes = strings.TrimSpace(in.Notes)
	request.UpdatedAt = now

	_, err = transaction.ExecContext(ctx, `
		UPDATE registration_requests
		SET status = ?, reviewed_at = ?, reviewed_by = ?, review_notes = ?, updated_at = ?
		WHERE id = ?
	`, string(request.Status), toMillis(now), reviewerID, request.ReviewNotes, toMillis(now), request.ID)
	if err != nil {
		return model.RegistrationRequest{}, fmt.Errorf("update registration request: %w", err)
	}

	if in.Approve && request.UID != "" {
		existing, err := s.profile(ctx, transaction, request.UID)
		if err != nil {
			return model.RegistrationRequest{}, err
		}
		if existing == nil {
			err = insertProfile(ctx, transaction, model.UserProfile{
				UID:         request.UID,
				Email:       request.Email,
				DisplayName: request.DisplayName,
				Status:      model.StatusApproved,
				ApprovedAt:  &now,
				ApprovedBy:  reviewerID,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
			if err != nil {
				return model.RegistrationRequest{}, err
			}
		}
	}

	if err := transaction.Commit(); err != nil {
		return model.RegistrationRequest{}, fmt.Errorf("commit review: %w", err)
	}
	return *request, nil
}
