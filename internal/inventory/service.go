// Package inventory is the data access layer the client uses for containers,
// items and the account. Reads go through the offline cache; writes go to the
// remote store and invalidate the snapshots they make stale.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/kegdev/hearth/internal/logging"
	"github.com/kegdev/hearth/internal/metrics"
	"github.com/kegdev/hearth/internal/model"
	"github.com/kegdev/hearth/internal/offline"
)

var (
	// ErrOfflineNoCache is returned by reads when the device is offline and
	// no valid snapshot exists. It is never replaced by an empty result.
	ErrOfflineNoCache = errors.New("no internet connection and no cached data available")

	// ErrOffline is returned by writes attempted while offline.
	ErrOffline = errors.New("no internet connection: changes cannot be saved offline")
)

// Remote is the remote document store as seen by the client. Calls act on
// behalf of the signed-in user.
type Remote interface {
	Profile(ctx context.Context) (*model.UserProfile, error)
	RegistrationRequestByEmail(ctx context.Context, email string) (*model.RegistrationRequest, error)
	SubmitRegistration(ctx context.Context, in model.RegistrationInput) (model.RegistrationRequest, error)
	ReviewRegistration(ctx context.Context, requestID string, in model.ReviewInput) (model.RegistrationRequest, error)

	Containers(ctx context.Context) ([]model.ContainerWithSharing, error)
	CreateContainer(ctx context.Context, in model.ContainerInput) (model.Container, error)
	UpdateContainer(ctx context.Context, containerID string, in model.ContainerInput) (model.Container, error)
	DeleteContainer(ctx context.Context, containerID string) error
	ShareContainer(ctx context.Context, containerID string, in model.ShareInput) (model.ContainerShare, error)
	UnshareContainer(ctx context.Context, containerID string, userID string) error

	ContainerItems(ctx context.Context, containerID string) ([]model.Item, error)
	CreateItem(ctx context.Context, containerID string, in model.ItemInput) (model.Item, error)
	UpdateItem(ctx context.Context, itemID string, in model.ItemInput) (model.Item, error)
	DeleteItem(ctx context.Context, itemID string) (model.Item, error)

	Tags(ctx context.Context) ([]model.Tag, error)
	CreateTag(ctx context.Context, in model.TagInput) (model.Tag, error)
	UpdateTag(ctx context.Context, tagID string, in model.TagInput) (model.Tag, error)
	DeleteTag(ctx context.Context, tagID string) error

	Categories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, in model.CategoryInput) (model.Category, error)
	UpdateCategory(ctx context.Context, categoryID string, in model.CategoryInput) (model.Category, error)
	DeleteCategory(ctx context.Context, categoryID string) error
	CreateCategoriesFromTemplate(ctx context.Context, template string) ([]model.Category, error)
}

// Source says where a read was answered from.
type Source string

const (
	SourceRemote  Source = "remote"
	SourceOffline Source = "offline"
	SourceFast    Source = "fast"
	SourceStale   Source = "stale"
)

// FromCache reports whether the data came from a local snapshot.
func (s Source) FromCache() bool {
	return s != SourceRemote
}

type Result[T any] struct {
	Data   T
	Source Source
}

type Service struct {
	remote Remote
	cache  *offline.Cache
}

func NewService(remote Remote, cache *offline.Cache) *Service {
	return &Service{remote: remote, cache: cache}
}

func (s *Service) Cache() *offline.Cache {
	return s.cache
}

// readPlan wires one resource into readThrough.
type readPlan[T any] struct {
	resource string
	owner    string
	valid    func() (T, bool)
	recent   func() (T, bool)
	stale    func() (T, bool)
	fetch    func(ctx context.Context) (T, error)
	store    func(T)
}

// readThrough answers from a valid snapshot when offline, from a recent one
// when online, and from the remote store otherwise. A failed fetch falls
// back to any snapshot the owner has, whatever its age.
func readThrough[T any](ctx context.Context, s *Service, p readPlan[T]) (Result[T], error) {
	var zero Result[T]

	if !s.cache.IsOnline() {
		data, ok := p.valid()
		if !ok {
			return zero, ErrOfflineNoCache
		}
		served(p.resource, SourceOffline)
		return Result[T]{Data: data, Source: SourceOffline}, nil
	}

	if data, ok := p.recent(); ok {
		served(p.resource, SourceFast)
		return Result[T]{Data: data, Source: SourceFast}, nil
	}

	data, err := p.fetch(ctx)
	if err == nil {
		p.store(data)
		return Result[T]{Data: data, Source: SourceRemote}, nil
	}

	if cached, ok := p.stale(); ok {
		logging.Warn().Err(err).Str("resource", p.resource).Str("owner", p.owner).Msg("remote fetch failed, serving cached data")
		served(p.resource, SourceStale)
		return Result[T]{Data: cached, Source: SourceStale}, nil
	}
	return zero, fmt.Errorf("fetch %s: %w", p.resource, err)
}

func served(resource string, source Source) {
	metrics.CacheServed.WithLabelValues(resource, string(source)).Inc()
}

// Containers returns every container the user owns or has been shared.
func (s *Service) Containers(ctx context.Context, userID string) (Result[[]model.ContainerWithSharing], error) {
	return readThrough(ctx, s, readPlan[[]model.ContainerWithSharing]{
		resource: "containers",
		owner:    userID,
		valid:    func() ([]model.ContainerWithSharing, bool) { return s.cache.CachedContainers(userID) },
		recent:   func() ([]model.ContainerWithSharing, bool) { return s.cache.RecentContainers(userID) },
		stale: func() ([]model.ContainerWithSharing, bool) {
			snap, ok := s.cache.StaleContainers(userID)
			return snap.Containers, ok
		},
		fetch: s.remote.Containers,
		store: func(containers []model.ContainerWithSharing) { s.cache.CacheContainers(userID, containers) },
	})
}

// Container finds one container in the user's list.
func (s *Service) Container(ctx context.Context, userID string, containerID string) (Result[model.ContainerWithSharing], error) {
	list, err := s.Containers(ctx, userID)
	if err != nil {
		return Result[model.ContainerWithSharing]{}, err
	}
	for _, container := range list.Data {
		if container.ID == containerID {
			return Result[model.ContainerWithSharing]{Data: container, Source: list.Source}, nil
		}
	}
	return Result[model.ContainerWithSharing]{}, fmt.Errorf("container %s not found", containerID)
}

// Items returns a container's items. Degraded snapshots answer offline reads
// but never take the online fast path.
func (s *Service) Items(ctx context.Context, containerID string) (Result[[]model.Item], error) {
	return readThrough(ctx, s, readPlan[[]model.Item]{
		resource: "items",
		owner:    containerID,
		valid: func() ([]model.Item, bool) {
			snap, ok := s.cache.CachedItems(containerID)
			return snap.Items, ok
		},
		recent: func() ([]model.Item, bool) { return s.cache.RecentItems(containerID) },
		stale: func() ([]model.Item, bool) {
			snap, ok := s.cache.StaleItems(containerID)
			return snap.Items, ok
		},
		fetch: func(ctx context.Context) ([]model.Item, error) {
			return s.remote.ContainerItems(ctx, containerID)
		},
		store: func(items []model.Item) { s.cache.CacheItems(containerID, items) },
	})
}

func (s *Service) CreateContainer(ctx context.Context, in model.ContainerInput) (model.Container, error) {
	if err := s.requireOnline(); err != nil {
		return model.Container{}, err
	}
	container, err := s.remote.CreateContainer(ctx, in)
	if err != nil {
		return model.Container{}, fmt.Errorf("create container: %w", err)
	}
	s.cache.ClearContainersCache()
	return container, nil
}

func (s *Service) UpdateContainer(ctx context.Context, containerID string, in model.ContainerInput) (model.Container, error) {
	if err := s.requireOnline(); err != nil {
		return model.Container{}, err
	}
	container, err := s.remote.UpdateContainer(ctx, containerID, in)
	if err != nil {
		return model.Container{}, fmt.Errorf("update container: %w", err)
	}
	s.cache.ClearContainersCache()
	return container, nil
}

// DeleteContainer also drops the container's item snapshot, since the
// server deletes its items with it.
func (s *Service) DeleteContainer(ctx context.Context, containerID string) error {
	if err := s.requireOnline(); err != nil {
		return err
	}
	if err := s.remote.DeleteContainer(ctx, containerID); err != nil {
		return fmt.Errorf("delete container: %w", err)
	}
	s.cache.ClearContainersCache()
	s.cache.ClearItemsCache(containerID)
	return nil
}

func (s *Service) ShareContainer(ctx context.Context, containerID string, in model.ShareInput) (model.ContainerShare, error) {
	if err := s.requireOnline(); err != nil {
		return model.ContainerShare{}, err
	}
	share, err := s.remote.ShareContainer(ctx, containerID, in)
	if err != nil {
		return model.ContainerShare{}, fmt.Errorf("share container: %w", err)
	}
	return share, nil
}

func (s *Service) UnshareContainer(ctx context.Context, containerID string, userID string) error {
	if err := s.requireOnline(); err != nil {
		return err
	}
	if err := s.remote.UnshareContainer(ctx, containerID, userID); err != nil {
		return fmt.Errorf("unshare container: %w", err)
	}
	return nil
}

func (s *Service) CreateItem(ctx context.Context, containerID string, in model.ItemInput) (model.Item, error) {
	if err := s.requireOnline(); err != nil {
		return model.Item{}, err
	}
	item, err := s.remote.CreateItem(ctx, containerID, in)
	if err != nil {
		return model.Item{}, fmt.Errorf("create item: %w", err)
	}
	s.cache.ClearItemsCache(containerID)
	return item, nil
}

// UpdateItem clears the item list of containerID, and of the item's new
// container when the update moved it.
func (s *Service) UpdateItem(ctx context.Context, containerID string, itemID string, in model.ItemInput) (model.Item, error) {
	if err := s.requireOnline(); err != nil {
		return model.Item{}, err
	}
	item, err := s.remote.UpdateItem(ctx, itemID, in)
	if err != nil {
		return model.Item{}, fmt.Errorf("update item: %w", err)
	}
	s.cache.ClearItemsCache(containerID)
	if item.ContainerID != "" && item.ContainerID != containerID {
		s.cache.ClearItemsCache(item.ContainerID)
	}
	return item, nil
}

// DeleteItem clears the item list of containerID and of the container the
// server says the item was in, in case the caller named the wrong one.
func (s *Service) DeleteItem(ctx context.Context, containerID string, itemID string) error {
	if err := s.requireOnline(); err != nil {
		return err
	}
	item, err := s.remote.DeleteItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	s.cache.ClearItemsCache(containerID)
	if item.ContainerID != "" && item.ContainerID != containerID {
		s.cache.ClearItemsCache(item.ContainerID)
	}
	return nil
}

// Logout forgets everything cached for the user.
func (s *Service) Logout() {
	s.cache.ClearAllCaches()
	logging.Info().Msg("cleared offline cache on logout")
}

// Refresh drops every snapshot so the next reads go to the remote store.
func (s *Service) Refresh() {
	s.cache.ForceCacheRefresh()
}

func (s *Service) requireOnline() error {
	if !s.cache.IsOnline() {
		return ErrOffline
	}
	return nil
}
