package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/kegdev/hearth/internal/auth"
	"github.com/kegdev/hearth/internal/httpapi"
	"github.com/kegdev/hearth/internal/inventory"
	"github.com/kegdev/hearth/internal/model"
	"github.com/kegdev/hearth/internal/storage"
)

// newEnv starts an API server on a temporary database and points the client
// configuration at it, with a SQLite cache file that outlives each run.
func newEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.OpenSQLite(filepath.Join(dir, "server.db"))
	require.NoError(t, err)
	require.NoError(t, store.Init(t.Context()))
	t.Cleanup(func() { _ = store.Close() })

	mux := http.NewServeMux()
	httpapi.NewServer(store, "admin@example.com").RegisterRoutes(mux)
	server := httptest.NewServer(auth.DevUserMiddleware("nobody", "nobody@example.com")(mux))
	t.Cleanup(server.Close)

	t.Setenv("HEARTH_SERVER_URL", server.URL)
	t.Setenv("HEARTH_USER_ID", "ann")
	t.Setenv("HEARTH_EMAIL", "ann@example.com")
	t.Setenv("HEARTH_CACHE_DRIVER", "sqlite")
	t.Setenv("HEARTH_CACHE_PATH", filepath.Join(dir, "cache.db"))
	t.Setenv("LOG_LEVEL", "disabled")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := &app{out: &out}
	root := newRootCommand(a)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	require.NoError(t, a.close())
	return out.String(), err
}

func runJSON(t *testing.T, target any, args ...string) {
	t.Helper()
	out, err := run(t, append(args, "--json")...)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), target))
}

func TestContainersServedFromCacheWhenOffline(t *testing.T) {
	newEnv(t)

	out, err := run(t, "container", "add", "Garage", "--location", "Basement")
	require.NoError(t, err)
	require.Contains(t, out, "created container Garage")

	out, err = run(t, "containers")
	require.NoError(t, err)
	require.Contains(t, out, "Garage")
	require.Contains(t, out, "Basement")
	require.NotContains(t, out, "offline")

	out, err = run(t, "--offline", "containers")
	require.NoError(t, err)
	require.Contains(t, out, "offline: showing cached data")
	require.Contains(t, out, "Garage")

	_, err = run(t, "--offline", "container", "add", "Shed")
	require.ErrorIs(t, err, inventory.ErrOffline)
}

func TestOfflineWithoutCache(t *testing.T) {
	newEnv(t)

	_, err := run(t, "--offline", "containers")
	require.ErrorIs(t, err, inventory.ErrOfflineNoCache)
}

func TestItemCommands(t *testing.T) {
	newEnv(t)

	var container model.Container
	runJSON(t, &container, "container", "add", "Garage")
	require.NotEmpty(t, container.ID)

	var item model.Item
	runJSON(t, &item, "item", "add", container.ID, "Drill", "--tags", "tools,power", "--brand", "Makita", "--bought", "2024-03-01")
	require.Equal(t, "Drill", item.Name)
	require.Equal(t, []string{"tools", "power"}, item.Tags)
	require.NotNil(t, item.PurchaseDate)

	_, err := run(t, "item", "edit", container.ID, item.ID, "--name", "Cordless drill")
	require.NoError(t, err)

	var items []model.Item
	runJSON(t, &items, "items", container.ID)
	require.Len(t, items, 1)
	require.Equal(t, "Cordless drill", items[0].Name)
	require.Equal(t, "Makita", items[0].Brand)

	_, err = run(t, "item", "add", container.ID, "Saw", "--bought", "yesterday")
	require.ErrorContains(t, err, "--bought")

	_, err = run(t, "item", "rm", container.ID, item.ID)
	require.NoError(t, err)
	out, err := run(t, "items", container.ID)
	require.NoError(t, err)
	require.Contains(t, out, "no items")
}

func TestRegisterAndStatus(t *testing.T) {
	newEnv(t)

	out, err := run(t, "register", "--reason", "family", "--name", "Ann")
	require.NoError(t, err)
	require.Contains(t, out, "is pending")

	out, err = run(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "status:  pending")
	require.Contains(t, out, "name:    Ann")

	out, err = run(t, "--offline", "status")
	require.NoError(t, err)
	require.Contains(t, out, "status:  pending")
}

func TestCacheDebugAndLogout(t *testing.T) {
	newEnv(t)

	_, err := run(t, "container", "add", "Garage")
	require.NoError(t, err)
	_, err = run(t, "containers")
	require.NoError(t, err)

	out, err := run(t, "cache", "debug")
	require.NoError(t, err)
	require.Contains(t, out, "hearth-containers-cache")

	_, err = run(t, "logout")
	require.NoError(t, err)
	out, err = run(t, "cache", "debug")
	require.NoError(t, err)
	require.Contains(t, out, "cache is empty")
}

func TestTagAndCategoryCommands(t *testing.T) {
	newEnv(t)

	var container model.Container
	runJSON(t, &container, "container", "add", "Garage")
	_, err := run(t, "item", "add", container.ID, "Drill", "--tags", "tools,power")
	require.NoError(t, err)

	var tags []model.Tag
	runJSON(t, &tags, "tag", "list")
	require.Len(t, tags, 2)
	require.Equal(t, "power", tags[0].Name)

	_, err = run(t, "tag", "edit", tags[0].ID, "--name", "electric")
	require.NoError(t, err)
	var items []model.Item
	runJSON(t, &items, "items", container.ID)
	require.Equal(t, []string{"tools", "electric"}, items[0].Tags)

	out, err := run(t, "tag", "suggest", "cordless", "drill")
	require.NoError(t, err)
	require.Contains(t, out, "Tools, Power Tools, DIY")

	out, err = run(t, "category", "template")
	require.NoError(t, err)
	require.Contains(t, out, "Tools (13 categories)")

	var created []model.Category
	runJSON(t, &created, "category", "template", "tools")
	require.Len(t, created, 13)

	_, err = run(t, "item", "add", container.ID, "Saw", "--category", created[1].ID)
	require.NoError(t, err)
	_, err = run(t, "item", "add", container.ID, "Nail", "--category", "missing")
	require.ErrorContains(t, err, "unknown category")

	out, err = run(t, "category", "list")
	require.NoError(t, err)
	require.Contains(t, out, "Tools  (")
	require.Contains(t, out, "\n  Hand Tools  (")
	require.Contains(t, out, "\n    Hammers  (")

	_, err = run(t, "category", "rm", created[0].ID)
	require.ErrorContains(t, err, "subcategories")

	_, err = run(t, "--offline", "tag", "list")
	require.ErrorIs(t, err, inventory.ErrOfflineNoCache)
}

func TestSearchCommand(t *testing.T) {
	newEnv(t)

	var garage, kitchen model.Container
	runJSON(t, &garage, "container", "add", "Garage")
	runJSON(t, &kitchen, "container", "add", "Kitchen", "--location", "Ground floor")
	_, err := run(t, "item", "add", garage.ID, "Drill", "--brand", "Makita")
	require.NoError(t, err)
	_, err = run(t, "item", "add", kitchen.ID, "Kettle", "--serial", "MK-22")
	require.NoError(t, err)

	var results inventory.SearchResults
	runJSON(t, &results, "search", "mak")
	require.Len(t, results.Items, 1)
	require.Equal(t, "Drill", results.Items[0].Item.Name)
	require.Empty(t, results.Containers)

	out, err := run(t, "search", "mk")
	require.NoError(t, err)
	require.Contains(t, out, "Kettle")
	require.NotContains(t, out, "Drill")

	out, err = run(t, "--offline", "search", "ground")
	require.NoError(t, err)
	require.Contains(t, out, "offline: showing cached data")
	require.Contains(t, out, "Kitchen")

	out, err = run(t, "search", "kettle", "--in", garage.ID)
	require.NoError(t, err)
	require.Contains(t, out, "no items")
}
