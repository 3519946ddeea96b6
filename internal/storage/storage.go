package storage

import (
	"context"

	"github.com/kegdev/hearth/internal/model"
)

// Store defines the persistence contract for the document API.
//
// Why this exists:
//   - HTTP handlers should express access rules and status codes, not SQL.
//   - Ownership and sharing checks need one consistent implementation so a
//     user can never read or change another user's container by guessing ids.
//   - Tests can validate API behavior via this abstraction.
//
// Every method acting on behalf of a user takes that user's id. Lookups that
// find nothing, or find something the user may not see, return ErrNotFound.
type Store interface {
	// Init prepares schema/connection state needed before serving requests.
	Init(ctx context.Context) error

	// Close releases resources held by the storage backend.
	Close() error

	// Profile returns the user's profile, or nil if they have none yet.
	Profile(ctx context.Context, userID string) (*model.UserProfile, error)

	// BootstrapAdmin creates an admin profile for the user if they have none.
	//
	// Why: a fresh installation has nobody who could approve the first
	// registration request.
	BootstrapAdmin(ctx context.Context, userID string, email string, displayName string) (*model.UserProfile, error)

	// RegistrationRequestByEmail returns the newest request for email, or nil.
	RegistrationRequestByEmail(ctx context.Context, email string) (*model.RegistrationRequest, error)

	// CreateRegistrationRequest files a pending request. It fails with
	// ErrConflict when the user already has a profile or an open request.
	CreateRegistrationRequest(ctx context.Context, userID string, in model.RegistrationInput) (model.RegistrationRequest, error)

	// ReviewRegistrationRequest approves or denies a request. Only admins may
	// review; approving creates the requester's profile.
	ReviewRegistrationRequest(ctx context.Context, reviewerID string, requestID string, in model.ReviewInput) (model.RegistrationRequest, error)

	// ListContainers returns the user's own containers followed by those
	// shared with them, each group newest first.
	ListContainers(ctx context.Context, userID string) ([]model.ContainerWithSharing, error)

	CreateContainer(ctx context.Context, userID string, in model.ContainerInput) (model.Container, error)

	// UpdateContainer requires ownership or an edit/admin share.
	UpdateContainer(ctx context.Context, userID string, containerID string, in model.ContainerInput) (model.Container, error)

	// DeleteContainer requires ownership and removes the container's items
	// and shares with it.
	DeleteContainer(ctx context.Context, userID string, containerID string) error

	// ListItems returns a container's items, newest first, to anyone who can
	// see the container.
	ListItems(ctx context.Context, userID string, containerID string) ([]model.Item, error)

	// CreateItem registers the item's tags as the user's tags. A category
	// must belong to the user or to the container's owner.
	CreateItem(ctx context.Context, userID string, containerID string, in model.ItemInput) (model.Item, error)

	// UpdateItem requires edit access to the item's container, and to the
	// target container when the update moves the item. Categories are
	// checked as in CreateItem.
	UpdateItem(ctx context.Context, userID string, itemID string, in model.ItemInput) (model.Item, error)

	// DeleteItem returns the deleted item so callers know which container
	// it left.
	DeleteItem(ctx context.Context, userID string, itemID string) (model.Item, error)

	// ShareContainer grants an approved user access to a container. Only the
	// owner may share, and each user can hold one share per container.
	ShareContainer(ctx context.Context, ownerID string, containerID string, in model.ShareInput) (model.ContainerShare, error)

	UnshareContainer(ctx context.Context, ownerID string, containerID string, sharedWithID string) error

	// ListTags returns the user's tags by name, ignoring case.
	ListTags(ctx context.Context, userID string) ([]model.Tag, error)

	// CreateTag fails with ErrConflict when the user already has a tag of
	// that name in any case.
	CreateTag(ctx context.Context, userID string, in model.TagInput) (model.Tag, error)

	// UpdateTag renames the tag on the user's items too.
	UpdateTag(ctx context.Context, userID string, tagID string, in model.TagInput) (model.Tag, error)

	// DeleteTag removes the tag from the user's items too.
	DeleteTag(ctx context.Context, userID string, tagID string) error

	// ListCategories returns the user's categories sorted by path.
	ListCategories(ctx context.Context, userID string) ([]model.Category, error)

	CreateCategory(ctx context.Context, userID string, in model.CategoryInput) (model.Category, error)
	UpdateCategory(ctx context.Context, userID string, categoryID string, in model.CategoryInput) (model.Category, error)

	// DeleteCategory fails with ErrConflict while the category has
	// subcategories.
	DeleteCategory(ctx context.Context, userID string, categoryID string) error

	CreateCategoriesFromTemplate(ctx context.Context, userID string, templateName string) ([]model.Category, error)
}
