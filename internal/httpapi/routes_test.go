package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kegdev/hearth/internal/auth"
	"github.com/kegdev/hearth/internal/model"
	"github.com/kegdev/hearth/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := newTestStore(t)
	server := NewServer(store, "admin@example.com")
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)
	ts := httptest.NewServer(auth.DevUserMiddleware("owner", "owner@example.com")(mux))
	t.Cleanup(ts.Close)
	return ts
}

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	store, err := storage.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := store.Init(t.Context()); err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// call sends body as JSON on behalf of user (the dev default when empty)
// and decodes the response into out when out is non-nil.
func call(t *testing.T, baseURL string, user string, method string, path string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if user != "" {
		req.Header.Set(auth.UserHeader, user)
		req.Header.Set(auth.EmailHeader, user+"@example.com")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t)
	call(t, server.URL, "", http.MethodGet, "/healthz", nil, nil)

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "hearth_api_requests_total") {
		t.Fatalf("metrics output missing api counter")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server := newTestServer(t)
	if status := call(t, server.URL, "", http.MethodPatch, "/api/containers", nil, nil); status != http.StatusMethodNotAllowed {
		t.Fatalf("status: got %d", status)
	}
}

func TestProfileAndRegistration(t *testing.T) {
	server := newTestServer(t)

	var profile *model.UserProfile
	if status := call(t, server.URL, "ann", http.MethodGet, "/api/profile", nil, &profile); status != http.StatusOK {
		t.Fatalf("profile status: %d", status)
	}
	if profile != nil {
		t.Fatalf("expected null profile, got %+v", profile)
	}

	var request model.RegistrationRequest
	status := call(t, server.URL, "ann", http.MethodPost, "/api/registration-requests", model.RegistrationInput{Reason: "family"}, &request)
	if status != http.StatusCreated {
		t.Fatalf("submit status: %d", status)
	}
	if request.Email != "ann@example.com" || request.Status != model.StatusPending {
		t.Fatalf("unexpected request: %+v", request)
	}
	if status := call(t, server.URL, "ann", http.MethodPost, "/api/registration-requests", model.RegistrationInput{Reason: "again"}, nil); status != http.StatusConflict {
		t.Fatalf("duplicate status: %d", status)
	}

	var found *model.RegistrationRequest
	call(t, server.URL, "ann", http.MethodGet, "/api/registration-requests", nil, &found)
	if found == nil || found.ID != request.ID {
		t.Fatalf("own request: %+v", found)
	}
	if status := call(t, server.URL, "bob", http.MethodGet, "/api/registration-requests?email=ann@example.com", nil, nil); status != http.StatusForbidden {
		t.Fatalf("foreign lookup status: %d", status)
	}

	if status := call(t, server.URL, "ann", http.MethodPost, "/api/registration-requests/"+request.ID+"/review", model.ReviewInput{Approve: true}, nil); status != http.StatusForbidden {
		t.Fatalf("self review status: %d", status)
	}

	var admin *model.UserProfile
	call(t, server.URL, "admin", http.MethodGet, "/api/profile", nil, &admin)
	if admin == nil || !admin.IsAdmin {
		t.Fatalf("admin bootstrap: %+v", admin)
	}

	var reviewed model.RegistrationRequest
	status = call(t, server.URL, "admin", http.MethodPost, "/api/registration-requests/"+request.ID+"/review", model.ReviewInput{Approve: true}, &reviewed)
	if status != http.StatusOK || reviewed.Status != model.StatusApproved {
		t.Fatalf("review: %d %+v", status, reviewed)
	}
	call(t, server.URL, "ann", http.MethodGet, "/api/profile", nil, &profile)
	if profile == nil || profile.Status != model.StatusApproved {
		t.Fatalf("approved profile: %+v", profile)
	}
}

func TestContainersAndItems(t *testing.T) {
	server := newTestServer(t)

	var container model.Container
	status := call(t, server.URL, "", http.MethodPost, "/api/containers", model.ContainerInput{Name: model.Ptr("Garage")}, &container)
	if status != http.StatusCreated || container.UserID != "owner" {
		t.Fatalf("create container: %d %+v", status, container)
	}
	if status := call(t, server.URL, "", http.MethodPost, "/api/containers", map[string]any{"name": "x", "bogus": 1}, nil); status != http.StatusBadRequest {
		t.Fatalf("unknown field status: %d", status)
	}
	if status := call(t, server.URL, "", http.MethodPost, "/api/containers", model.ContainerInput{}, nil); status != http.StatusBadRequest {
		t.Fatalf("missing name status: %d", status)
	}

	var item model.Item
	status = call(t, server.URL, "", http.MethodPost, "/api/containers/"+container.ID+"/items",
		model.ItemInput{Name: model.Ptr("Drill"), Tags: []string{"tools"}}, &item)
	if status != http.StatusCreated || item.ContainerID != container.ID {
		t.Fatalf("create item: %d %+v", status, item)
	}

	var items []model.Item
	call(t, server.URL, "", http.MethodGet, "/api/containers/"+container.ID+"/items", nil, &items)
	if len(items) != 1 || items[0].Tags[0] != "tools" {
		t.Fatalf("items: %+v", items)
	}

	if status := call(t, server.URL, "stranger", http.MethodGet, "/api/containers/"+container.ID+"/items", nil, nil); status != http.StatusNotFound {
		t.Fatalf("stranger items status: %d", status)
	}

	var updated model.Item
	status = call(t, server.URL, "", http.MethodPut, "/api/items/"+item.ID, model.ItemInput{Brand: model.Ptr("Makita")}, &updated)
	if status != http.StatusOK || updated.Brand != "Makita" || updated.Name != "Drill" {
		t.Fatalf("update item: %d %+v", status, updated)
	}

	var deleted model.Item
	if status := call(t, server.URL, "", http.MethodDelete, "/api/items/"+item.ID, nil, &deleted); status != http.StatusOK {
		t.Fatalf("delete item status: %d", status)
	}
	if deleted.ID != item.ID || deleted.ContainerID != container.ID {
		t.Fatalf("deleted item: %+v", deleted)
	}
	if status := call(t, server.URL, "", http.MethodDelete, "/api/items/"+item.ID, nil, nil); status != http.StatusNotFound {
		t.Fatalf("second delete status: %d", status)
	}

	var renamed model.Container
	call(t, server.URL, "", http.MethodPut, "/api/containers/"+container.ID, model.ContainerInput{Name: model.Ptr("Shed")}, &renamed)
	if renamed.Name != "Shed" {
		t.Fatalf("rename: %+v", renamed)
	}

	var list []model.ContainerWithSharing
	call(t, server.URL, "", http.MethodGet, "/api/containers", nil, &list)
	if len(list) != 1 || list[0].Name != "Shed" {
		t.Fatalf("list: %+v", list)
	}

	if status := call(t, server.URL, "", http.MethodDelete, "/api/containers/"+container.ID, nil, nil); status != http.StatusNoContent {
		t.Fatalf("delete container status: %d", status)
	}
	call(t, server.URL, "", http.MethodGet, "/api/containers", nil, &list)
	if len(list) != 0 {
		t.Fatalf("list after delete: %+v", list)
	}
}

func TestSharingRoutes(t *testing.T) {
	server := newTestServer(t)

	// admin approves bob so he can receive shares
	call(t, server.URL, "admin", http.MethodGet, "/api/profile", nil, nil)
	var request model.RegistrationRequest
	call(t, server.URL, "bob", http.MethodPost, "/api/registration-requests", model.RegistrationInput{Reason: "neighbour"}, &request)
	call(t, server.URL, "admin", http.MethodPost, "/api/registration-requests/"+request.ID+"/review", model.ReviewInput{Approve: true}, nil)

	var container model.Container
	call(t, server.URL, "", http.MethodPost, "/api/containers", model.ContainerInput{Name: model.Ptr("Garage")}, &container)

	var share model.ContainerShare
	status := call(t, server.URL, "", http.MethodPost, "/api/containers/"+container.ID+"/shares", model.ShareInput{Email: "bob@example.com"}, &share)
	if status != http.StatusCreated || share.Permission != model.PermissionView || share.SharedWithID != "bob" {
		t.Fatalf("share: %d %+v", status, share)
	}

	var list []model.ContainerWithSharing
	call(t, server.URL, "bob", http.MethodGet, "/api/containers", nil, &list)
	if len(list) != 1 || !list[0].IsShared {
		t.Fatalf("bob's list: %+v", list)
	}
	if status := call(t, server.URL, "bob", http.MethodPost, "/api/containers/"+container.ID+"/items", model.ItemInput{Name: model.Ptr("x")}, nil); status != http.StatusForbidden {
		t.Fatalf("viewer create status: %d", status)
	}

	if status := call(t, server.URL, "", http.MethodDelete, "/api/containers/"+container.ID+"/shares/bob", nil, nil); status != http.StatusNoContent {
		t.Fatalf("unshare status: %d", status)
	}
	call(t, server.URL, "bob", http.MethodGet, "/api/containers", nil, &list)
	if len(list) != 0 {
		t.Fatalf("bob's list after unshare: %+v", list)
	}
}
