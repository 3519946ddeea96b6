package inventory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kegdev/hearth/internal/connectivity"
	"github.com/kegdev/hearth/internal/kv"
	"github.com/kegdev/hearth/internal/model"
	"github.com/kegdev/hearth/internal/offline"
)

var errBoom = errors.New("remote down")

type fakeRemote struct {
	profile    *model.UserProfile
	request    *model.RegistrationRequest
	containers []model.ContainerWithSharing
	items      map[string][]model.Item
	moveTo     string
	fail       bool
	calls      map[string]int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		containers: []model.ContainerWithSharing{{Container: model.Container{ID: "c1", Name: "Garage", UserID: "u1"}}},
		items: map[string][]model.Item{
			"c1": {{ID: "i1", Name: "Drill", ContainerID: "c1", ImageURL: "data:image/png;base64,AAAA"}},
		},
		calls: map[string]int{},
	}
}

func (f *fakeRemote) call(name string) error {
	f.calls[name]++
	if f.fail {
		return errBoom
	}
	return nil
}

func (f *fakeRemote) Profile(ctx context.Context) (*model.UserProfile, error) {
	return f.profile, f.call("Profile")
}

func (f *fakeRemote) RegistrationRequestByEmail(ctx context.Context, email string) (*model.RegistrationRequest, error) {
	return f.request, f.call("RegistrationRequestByEmail")
}

func (f *fakeRemote) SubmitRegistration(ctx context.Context, in model.RegistrationInput) (model.RegistrationRequest, error) {
	return model.RegistrationRequest{ID: "r1", Email: in.Email, Status: model.StatusPending}, f.call("SubmitRegistration")
}

func (f *fakeRemote) ReviewRegistration(ctx context.Context, requestID string, in model.ReviewInput) (model.RegistrationRequest, error) {
	return model.RegistrationRequest{ID: requestID, Status: model.StatusApproved}, f.call("ReviewRegistration")
}

func (f *fakeRemote) Containers(ctx context.Context) ([]model.ContainerWithSharing, error) {
	if err := f.call("Containers"); err != nil {
		return nil, err
	}
	return f.containers, nil
}

func (f *fakeRemote) CreateContainer(ctx context.Context, in model.ContainerInput) (model.Container, error) {
	return model.Container{ID: "c9", Name: *in.Name}, f.call("CreateContainer")
}

func (f *fakeRemote) UpdateContainer(ctx context.Context, containerID string, in model.ContainerInput) (model.Container, error) {
	return model.Container{ID: containerID}, f.call("UpdateContainer")
}

func (f *fakeRemote) DeleteContainer(ctx context.Context, containerID string) error {
	return f.call("DeleteContainer")
}

func (f *fakeRemote) ShareContainer(ctx context.Context, containerID string, in model.ShareInput) (model.ContainerShare, error) {
	return model.ContainerShare{ContainerID: containerID, Permission: in.Permission}, f.call("ShareContainer")
}

func (f *fakeRemote) UnshareContainer(ctx context.Context, containerID string, userID string) error {
	return f.call("UnshareContainer")
}

func (f *fakeRemote) ContainerItems(ctx context.Context, containerID string) ([]model.Item, error) {
	if err := f.call("ContainerItems"); err != nil {
		return nil, err
	}
	return f.items[containerID], nil
}

func (f *fakeRemote) CreateItem(ctx context.Context, containerID string, in model.ItemInput) (model.Item, error) {
	return model.Item{ID: "i9", ContainerID: containerID}, f.call("CreateItem")
}

func (f *fakeRemote) UpdateItem(ctx context.Context, itemID string, in model.ItemInput) (model.Item, error) {
	containerID := "c1"
	if f.moveTo != "" {
		containerID = f.moveTo
	}
	return model.Item{ID: itemID, ContainerID: containerID}, f.call("UpdateItem")
}

// DeleteItem reports the item as living in c1, or in moveTo when set.
func (f *fakeRemote) DeleteItem(ctx context.Context, itemID string) (model.Item, error) {
	containerID := "c1"
	if f.moveTo != "" {
		containerID = f.moveTo
	}
	return model.Item{ID: itemID, ContainerID: containerID}, f.call("DeleteItem")
}

type harness struct {
	svc    *Service
	remote *fakeRemote
	cache  *offline.Cache
	online *connectivity.Static
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		remote: newFakeRemote(),
		online: connectivity.NewStatic(true),
		now:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	h.cache = offline.New(kv.NewMemory(0), kv.NewMemory(0), h.online, offline.DefaultConfig(),
		offline.WithClock(func() time.Time { return h.now }))
	h.svc = NewService(h.remote, h.cache)
	return h
}

func TestColdStartOffline(t *testing.T) {
	h := newHarness(t)
	h.online.Set(false)

	res, err := h.svc.Containers(context.Background(), "u1")
	require.ErrorIs(t, err, ErrOfflineNoCache)
	require.Nil(t, res.Data)
	require.Zero(t, h.remote.calls["Containers"])

	_, err = h.svc.Items(context.Background(), "c1")
	require.ErrorIs(t, err, ErrOfflineNoCache)

	_, err = h.svc.Account(context.Background(), "u1", "a@b.c")
	require.ErrorIs(t, err, ErrOfflineNoCache)
}

func TestOfflineServesValidSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Containers(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, h.remote.calls["Containers"])

	h.online.Set(false)
	h.now = h.now.Add(20 * time.Minute)
	res, err := h.svc.Containers(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, SourceOffline, res.Source)
	require.Len(t, res.Data, 1)
	require.Equal(t, 1, h.remote.calls["Containers"])

	// past the TTL the offline read has nothing to offer
	h.now = h.now.Add(15 * time.Minute)
	_, err = h.svc.Containers(ctx, "u1")
	require.ErrorIs(t, err, ErrOfflineNoCache)
}

func TestFastPathSkipsRemote(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.svc.Containers(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, SourceRemote, res.Source)

	h.now = h.now.Add(time.Minute)
	res, err = h.svc.Containers(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, SourceFast, res.Source)
	require.True(t, res.Source.FromCache())
	require.Equal(t, 1, h.remote.calls["Containers"])

	// outside the recency window but inside the TTL, online reads refetch
	h.now = h.now.Add(2 * time.Minute)
	res, err = h.svc.Containers(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, SourceRemote, res.Source)
	require.Equal(t, 2, h.remote.calls["Containers"])
}

func TestItemsFastPath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Items(ctx, "c1")
	require.NoError(t, err)
	h.now = h.now.Add(4 * time.Minute)
	res, err := h.svc.Items(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, SourceFast, res.Source)
	require.Equal(t, 1, h.remote.calls["ContainerItems"])
}

func TestDegradedItemsForceRefetch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.cache.CacheItems("c1", []model.Item{{ID: "i1", ContainerID: "c1", ImageURL: offline.ImageSentinel}})

	res, err := h.svc.Items(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, SourceRemote, res.Source)
	require.Equal(t, 1, h.remote.calls["ContainerItems"])
	require.Equal(t, "data:image/png;base64,AAAA", res.Data[0].ImageURL)

	// the degraded snapshot still answers offline reads
	h.cache.CacheItems("c1", []model.Item{{ID: "i1", ContainerID: "c1", ImageURL: offline.ImageSentinel}})
	h.online.Set(false)
	res, err = h.svc.Items(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, SourceOffline, res.Source)
}

func TestStaleButServed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Containers(ctx, "u1")
	require.NoError(t, err)

	h.now = h.now.Add(40 * time.Minute)
	h.remote.fail = true
	res, err := h.svc.Containers(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, SourceStale, res.Source)
	require.Len(t, res.Data, 1)
	require.Equal(t, 2, h.remote.calls["Containers"])
}

func TestFetchErrorWithoutSnapshot(t *testing.T) {
	h := newHarness(t)
	h.remote.fail = true

	_, err := h.svc.Containers(context.Background(), "u1")
	require.ErrorIs(t, err, errBoom)

	// another user's snapshot is no fallback
	h.cache.CacheItems("c2", []model.Item{{ID: "x"}})
	_, err = h.svc.Items(context.Background(), "c1")
	require.ErrorIs(t, err, errBoom)
}

func TestContainerMutationsInvalidate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	mutations := map[string]func() error{
		"create": func() error {
			_, err := h.svc.CreateContainer(ctx, model.ContainerInput{Name: model.Ptr("Shed")})
			return err
		},
		"update": func() error {
			_, err := h.svc.UpdateContainer(ctx, "c1", model.ContainerInput{Name: model.Ptr("Garage 2")})
			return err
		},
		"delete": func() error { return h.svc.DeleteContainer(ctx, "c1") },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			h.cache.CacheContainers("u1", h.remote.containers)
			require.NoError(t, mutate())
			_, ok := h.cache.CachedContainers("u1")
			require.False(t, ok)
		})
	}
}

func TestDeleteContainerClearsItems(t *testing.T) {
	h := newHarness(t)
	h.cache.CacheItems("c1", h.remote.items["c1"])
	require.NoError(t, h.svc.DeleteContainer(context.Background(), "c1"))
	_, ok := h.cache.StaleItems("c1")
	require.False(t, ok)
}

func TestItemMutationsInvalidate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seed := func() {
		h.cache.CacheItems("c1", h.remote.items["c1"])
		h.cache.CacheItems("c2", []model.Item{{ID: "i5", ContainerID: "c2"}})
	}

	seed()
	_, err := h.svc.CreateItem(ctx, "c1", model.ItemInput{Name: model.Ptr("Saw")})
	require.NoError(t, err)
	_, ok := h.cache.CachedItems("c1")
	require.False(t, ok)
	_, ok = h.cache.CachedItems("c2")
	require.True(t, ok)

	seed()
	require.NoError(t, h.svc.DeleteItem(ctx, "c1", "i1"))
	_, ok = h.cache.CachedItems("c1")
	require.False(t, ok)

	seed()
	h.remote.moveTo = "c2"
	_, err = h.svc.UpdateItem(ctx, "c1", "i1", model.ItemInput{ContainerID: model.Ptr("c2")})
	require.NoError(t, err)
	_, ok = h.cache.CachedItems("c1")
	require.False(t, ok)
	_, ok = h.cache.CachedItems("c2")
	require.False(t, ok)
}

func TestDeleteItemClearsActualContainer(t *testing.T) {
	h := newHarness(t)
	h.cache.CacheItems("c1", h.remote.items["c1"])
	h.cache.CacheItems("c2", []model.Item{{ID: "i5", ContainerID: "c2"}})
	h.remote.moveTo = "c2"

	// the caller names c1 but the server deleted the item from c2
	require.NoError(t, h.svc.DeleteItem(context.Background(), "c1", "i5"))
	_, ok := h.cache.CachedItems("c2")
	require.False(t, ok)
	_, ok = h.cache.CachedItems("c1")
	require.False(t, ok)
}

func TestFailedMutationKeepsSnapshot(t *testing.T) {
	h := newHarness(t)
	h.cache.CacheContainers("u1", h.remote.containers)
	h.remote.fail = true

	_, err := h.svc.CreateContainer(context.Background(), model.ContainerInput{Name: model.Ptr("Shed")})
	require.ErrorIs(t, err, errBoom)
	_, ok := h.cache.CachedContainers("u1")
	require.True(t, ok)
}

func TestWritesNeedConnection(t *testing.T) {
	h := newHarness(t)
	h.online.Set(false)

	_, err := h.svc.CreateItem(context.Background(), "c1", model.ItemInput{Name: model.Ptr("Saw")})
	require.ErrorIs(t, err, ErrOffline)
	require.Zero(t, h.remote.calls["CreateItem"])
}

func TestAccountUsesSessionMarker(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.remote.profile = &model.UserProfile{UID: "u1", Email: "a@b.c", IsAdmin: true}

	res, err := h.svc.Account(ctx, "u1", "a@b.c")
	require.NoError(t, err)
	require.Equal(t, SourceRemote, res.Source)
	require.Equal(t, model.StatusAdmin, res.Data.Status.Status)
	require.Equal(t, "u1", res.Data.Status.UserID)
	require.Equal(t, h.now.UnixMilli(), res.Data.Status.Timestamp)
	require.Equal(t, offline.DefaultConfig().Version, res.Data.Status.Version)
	require.Zero(t, h.remote.calls["RegistrationRequestByEmail"])

	res, err = h.svc.Account(ctx, "u1", "a@b.c")
	require.NoError(t, err)
	require.Equal(t, SourceFast, res.Source)
	require.Equal(t, 1, h.remote.calls["Profile"])

	status, err := h.svc.AccountStatus(ctx, "u1", "a@b.c")
	require.NoError(t, err)
	require.Equal(t, model.StatusAdmin, status.Data.Status)
}

func TestAccountPendingRegistration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.remote.request = &model.RegistrationRequest{ID: "r1", Email: "a@b.c", Status: model.StatusDenied}

	res, err := h.svc.Account(ctx, "u1", "a@b.c")
	require.NoError(t, err)
	require.Nil(t, res.Data.Profile)
	require.Equal(t, model.StatusDenied, res.Data.Status.Status)

	h.online.Set(false)
	status, err := h.svc.AccountStatus(ctx, "u1", "a@b.c")
	require.NoError(t, err)
	require.Equal(t, SourceOffline, status.Source)
	require.Equal(t, model.StatusDenied, status.Data.Status)
}

func TestAccountStaleFallback(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.remote.profile = &model.UserProfile{UID: "u1"}
	_, err := h.svc.Account(ctx, "u1", "")
	require.NoError(t, err)

	h.cache.ClearAllCaches()
	h.cache.CacheProfile("u1", h.remote.profile, nil)
	h.now = h.now.Add(3 * time.Hour)
	h.remote.fail = true

	res, err := h.svc.Account(ctx, "u1", "")
	require.NoError(t, err)
	require.Equal(t, SourceStale, res.Source)
	require.Equal(t, model.StatusApproved, res.Data.Status.Status)
}

func TestRegisterClearsProfile(t *testing.T) {
	h := newHarness(t)
	h.cache.CacheProfile("u1", nil, nil)

	_, err := h.svc.Register(context.Background(), model.RegistrationInput{Email: "a@b.c", Reason: "moving house"})
	require.NoError(t, err)
	_, ok := h.cache.StaleProfile("u1")
	require.False(t, ok)
	_, ok = h.cache.CachedAccountStatus("u1")
	require.False(t, ok)
}

func TestLogoutClearsEverything(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.remote.profile = &model.UserProfile{UID: "u1"}
	_, err := h.svc.Account(ctx, "u1", "")
	require.NoError(t, err)
	_, err = h.svc.Containers(ctx, "u1")
	require.NoError(t, err)
	_, err = h.svc.Items(ctx, "c1")
	require.NoError(t, err)

	h.svc.Logout()
	require.Empty(t, h.cache.Entries())
	require.False(t, h.cache.IsSessionValidated("u1"))

	h.online.Set(false)
	_, err = h.svc.Containers(ctx, "u1")
	require.True(t, strings.Contains(err.Error(), "no cached data"))
}
