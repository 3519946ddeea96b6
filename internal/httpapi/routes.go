package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kegdev/hearth/internal/auth"
	"github.com/kegdev/hearth/internal/logging"
	"github.com/kegdev/hearth/internal/metrics"
	"github.com/kegdev/hearth/internal/model"
	"github.com/kegdev/hearth/internal/storage"
)

type jsonResponse map[string]any

type errorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	store      storage.Store
	adminEmail string
}

// NewServer serves the document API over store. A user signing in with
// adminEmail gets an admin profile on first profile read.
func NewServer(store storage.Store, adminEmail string) *Server {
	return &Server{store: store, adminEmail: model.NormalizeEmail(adminEmail)}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	handle(mux, "GET /healthz", handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	handle(mux, "GET /api/profile", s.handleProfile)
	handle(mux, "GET /api/registration-requests", s.handleGetRegistration)
	handle(mux, "POST /api/registration-requests", s.handleSubmitRegistration)
	handle(mux, "POST /api/registration-requests/{id}/review", s.handleReviewRegistration)

	handle(mux, "GET /api/containers", s.handleListContainers)
	handle(mux, "POST /api/containers", s.handleCreateContainer)
	handle(mux, "PUT /api/containers/{id}", s.handleUpdateContainer)
	handle(mux, "DELETE /api/containers/{id}", s.handleDeleteContainer)
	handle(mux, "POST /api/containers/{id}/shares", s.handleShareContainer)
	handle(mux, "DELETE /api/containers/{id}/shares/{userID}", s.handleUnshareContainer)

	handle(mux, "GET /api/containers/{id}/items", s.handleListItems)
	handle(mux, "POST /api/containers/{id}/items", s.handleCreateItem)
	handle(mux, "PUT /api/items/{id}", s.handleUpdateItem)
	handle(mux, "DELETE /api/items/{id}", s.handleDeleteItem)

	handle(mux, "GET /api/tags", s.handleListTags)
	handle(mux, "POST /api/tags", s.handleCreateTag)
	handle(mux, "PUT /api/tags/{id}", s.handleUpdateTag)
	handle(mux, "DELETE /api/tags/{id}", s.handleDeleteTag)

	handle(mux, "GET /api/categories", s.handleListCategories)
	handle(mux, "POST /api/categories", s.handleCreateCategory)
	handle(mux, "POST /api/categories/from-template", s.handleCategoriesFromTemplate)
	handle(mux, "PUT /api/categories/{id}", s.handleUpdateCategory)
	handle(mux, "DELETE /api/categories/{id}", s.handleDeleteCategory)
}

// handle registers h under pattern and counts its responses by pattern.
func handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		metrics.RecordAPIRequest(pattern, rec.status)
	}))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, jsonResponse{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// identity returns the signed-in user or answers 401.
func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return auth.Identity{}, false
	}
	return id, true
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	profile, err := s.store.Profile(r.Context(), id.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if profile == nil && s.adminEmail != "" && model.NormalizeEmail(id.Email) == s.adminEmail {
		profile, err = s.store.BootstrapAdmin(r.Context(), id.UserID, id.Email, id.Name)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		logging.Info().Str("user", id.UserID).Msg("bootstrapped admin profile")
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleGetRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	email := r.URL.Query().Get("email")
	if email == "" {
		email = id.Email
	}
	if email == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email is required"})
		return
	}
	if model.NormalizeEmail(email) != model.NormalizeEmail(id.Email) && !s.isAdmin(r, id.UserID) {
		writeError(w, http.StatusForbidden, storage.ErrForbidden)
		return
	}
	request, err := s.store.RegistrationRequestByEmail(r.Context(), email)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

func (s *Server) handleSubmitRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var in model.RegistrationInput
	if !readJSON(w, r, &in) {
		return
	}
	if in.Email == "" {
		in.Email = id.Email
	}
	if in.DisplayName == "" {
		in.DisplayName = id.Name
	}
	request, err := s.store.CreateRegistrationRequest(r.Context(), id.UserID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

func (s *Server) handleReviewRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var in model.ReviewInput
	if !readJSON(w, r, &in) {
		return
	}
	request, err := s.store.ReviewRegistrationRequest(r.Context(), id.UserID, r.PathValue("id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	logging.Info().Str("request", request.ID).Str("status", string(request.Status)).Str("reviewer", id.UserID).Msg("registration reviewed")
	writeJSON(w, http.StatusOK, request)
}

func (s *Server) handleListContainers(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	containers, err := s.store.ListContainers(r.Context(), id.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, containers)
}

func (s *Server) handleCreateContainer(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var in model.ContainerInput
	if !readJSON(w, r, &in) {
		return
	}
	container, err := s.store.CreateContainer(r.Context(), id.UserID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, container)
}

func (s *Server) handleUpdateContainer(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var in model.ContainerInput
	if !readJSON(w, r, &in) {
		return
	}
	container, err := s.store.UpdateContainer(r.Context(), id.UserID, r.PathValue("id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, container)
}

func (s *Server) handleDeleteContainer(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteContainer(r.Context(), id.UserID, r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleShareContainer(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var in model.ShareInput
	if !readJSON(w, r, &in) {
		return
	}
	if in.Permission == "" {
		in.Permission = model.PermissionView
	}
	share, err := s.store.ShareContainer(r.Context(), id.UserID, r.PathValue("id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, share)
}

func (s *Server) handleUnshareContainer(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	if err := s.store.UnshareContainer(r.Context(), id.UserID, r.PathValue("id"), r.PathValue("userID")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	items, err := s.store.ListItems(r.Context(), id.UserID, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var in model.ItemInput
	if !readJSON(w, r, &in) {
		return
	}
	item, err := s.store.CreateItem(r.Context(), id.UserID, r.PathValue("id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var in model.ItemInput
	if !readJSON(w, r, &in) {
		return
	}
	item, err := s.store.UpdateItem(r.Context(), id.UserID, r.PathValue("id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	item, err := s.store.DeleteItem(r.Context(), id.UserID, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) isAdmin(r *http.Request, userID string) bool {
	profile, err := s.store.Profile(r.Context(), userID)
	return err == nil && profile != nil && profile.IsAdmin
}

// fail maps storage errors to status codes. Unexpected errors are logged and
// answered with 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var validation *storage.ValidationError
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, storage.ErrForbidden):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, storage.ErrConflict):
		writeError(w, http.StatusConflict, err)
	default:
		logging.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeJSON(r, target); err != nil {
		logging.Debug().Err(err).Str("path", r.URL.Path).Msg("request decode error")
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(payload)
}
