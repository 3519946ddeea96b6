// Package remote is the HTTP client for the Hearth document API.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/kegdev/hearth/internal/auth"
	"github.com/kegdev/hearth/internal/logging"
	"github.com/kegdev/hearth/internal/metrics"
	"github.com/kegdev/hearth/internal/model"
)

// ErrUnavailable wraps transport failures and calls rejected by the open
// circuit breaker.
var ErrUnavailable = errors.New("remote store unavailable")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: %s", http.StatusText(e.Status))
	}
	return fmt.Sprintf("remote: %s (%d)", e.Message, e.Status)
}

// Identity is how the client authenticates. With a session cookie the
// server's OIDC session is used; otherwise the dev-mode headers are sent.
type Identity struct {
	UserID        string
	Email         string
	CookieName    string
	SessionCookie string
}

type Client struct {
	baseURL  string
	http     *http.Client
	identity Identity
	breaker  *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(baseURL string, timeout time.Duration, identity Identity) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	name := "hearth-remote"
	metrics.RemoteBreakerState.WithLabelValues(name).Set(0)
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		identity: identity,
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			// client errors mean the server is up
			IsSuccessful: func(err error) bool {
				var apiErr *APIError
				if errors.As(err, &apiErr) {
					return apiErr.Status < http.StatusInternalServerError
				}
				return err == nil
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Info().Str("from", from.String()).Str("to", to.String()).Msg("remote circuit breaker state changed")
				metrics.RemoteBreakerState.WithLabelValues(name).Set(float64(to))
			},
		}),
	}
}

func (c *Client) do(ctx context.Context, op string, method string, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		payload = data
	}

	raw, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, payload)
	})
	metrics.RecordRemoteCall(op, err)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method string, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.authenticate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var decoded struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &decoded) == nil {
			apiErr.Message = decoded.Error
		}
		return nil, apiErr
	}
	return data, nil
}

func (c *Client) authenticate(req *http.Request) {
	id := c.identity
	if id.SessionCookie != "" && id.CookieName != "" {
		req.AddCookie(&http.Cookie{Name: id.CookieName, Value: id.SessionCookie})
		return
	}
	if id.UserID != "" {
		req.Header.Set(auth.UserHeader, id.UserID)
	}
	if id.Email != "" {
		req.Header.Set(auth.EmailHeader, id.Email)
	}
}

func (c *Client) Profile(ctx context.Context) (*model.UserProfile, error) {
	var profile *model.UserProfile
	if err := c.do(ctx, "profile", http.MethodGet, "/api/profile", nil, &profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (c *Client) RegistrationRequestByEmail(ctx context.Context, email string) (*model.RegistrationRequest, error) {
	var request *model.RegistrationRequest
	path := "/api/registration-requests?email=" + url.QueryEscape(email)
	if err := c.do(ctx, "registration_request", http.MethodGet, path, nil, &request); err != nil {
		return nil, err
	}
	return request, nil
}

func (c *Client) SubmitRegistration(ctx context.Context, in model.RegistrationInput) (model.RegistrationRequest, error) {
	var request model.RegistrationRequest
	err := c.do(ctx, "submit_registration", http.MethodPost, "/api/registration-requests", in, &request)
	return request, err
}

func (c *Client) ReviewRegistration(ctx context.Context, requestID string, in model.ReviewInput) (model.RegistrationRequest, error) {
	var request model.RegistrationRequest
	path := "/api/registration-requests/" + url.PathEscape(requestID) + "/review"
	err := c.do(ctx, "review_registration", http.MethodPost, path, in, &request)
	return request, err
}

func (c *Client) Containers(ctx context.Context) ([]model.ContainerWithSharing, error) {
	var containers []model.ContainerWithSharing
	if err := c.do(ctx, "containers", http.MethodGet, "/api/containers", nil, &containers); err != nil {
		return nil, err
	}
	return containers, nil
}

func (c *Client) CreateContainer(ctx context.Context, in model.ContainerInput) (model.Container, error) {
	var container model.Container
	err := c.do(ctx, "create_container", http.MethodPost, "/api/containers", in, &container)
	return container, err
}

func (c *Client) UpdateContainer(ctx context.Context, containerID string, in model.ContainerInput) (model.Container, error) {
	var container model.Container
	err := c.do(ctx, "update_container", http.MethodPut, containerPath(containerID), in, &container)
	return container, err
}

func (c *Client) DeleteContainer(ctx context.Context, containerID string) error {
	return c.do(ctx, "delete_container", http.MethodDelete, containerPath(containerID), nil, nil)
}

func (c *Client) ShareContainer(ctx context.Context, containerID string, in model.ShareInput) (model.ContainerShare, error) {
	var share model.ContainerShare
	err := c.do(ctx, "share_container", http.MethodPost, containerPath(containerID)+"/shares", in, &share)
	return share, err
}

func (c *Client) UnshareContainer(ctx context.Context, containerID string, userID string) error {
	path := containerPath(containerID) + "/shares/" + url.PathEscape(userID)
	return c.do(ctx, "unshare_container", http.MethodDelete, path, nil, nil)
}

func (c *Client) ContainerItems(ctx context.Context, containerID string) ([]model.Item, error) {
	var items []model.Item
	if err := c.do(ctx, "items", http.MethodGet, containerPath(containerID)+"/items", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) CreateItem(ctx context.Context, containerID string, in model.ItemInput) (model.Item, error) {
	var item model.Item
	err := c.do(ctx, "create_item", http.MethodPost, containerPath(containerID)+"/items", in, &item)
	return item, err
}

func (c *Client) UpdateItem(ctx context.Context, itemID string, in model.ItemInput) (model.Item, error) {
	var item model.Item
	err := c.do(ctx, "update_item", http.MethodPut, itemPath(itemID), in, &item)
	return item, err
}

// DeleteItem returns the item as it was before deletion.
func (c *Client) DeleteItem(ctx context.Context, itemID string) (model.Item, error) {
	var item model.Item
	err := c.do(ctx, "delete_item", http.MethodDelete, itemPath(itemID), nil, &item)
	return item, err
}

func (c *Client) Tags(ctx context.Context) ([]model.Tag, error) {
	var tags []model.Tag
	if err := c.do(ctx, "tags", http.MethodGet, "/api/tags", nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func (c *Client) CreateTag(ctx context.Context, in model.TagInput) (model.Tag, error) {
	var tag model.Tag
	err := c.do(ctx, "create_tag", http.MethodPost, "/api/tags", in, &tag)
	return tag, err
}

func (c *Client) UpdateTag(ctx context.Context, tagID string, in model.TagInput) (model.Tag, error) {
	var tag model.Tag
	err := c.do(ctx, "update_tag", http.MethodPut, "/api/tags/"+url.PathEscape(tagID), in, &tag)
	return tag, err
}

func (c *Client) DeleteTag(ctx context.Context, tagID string) error {
	return c.do(ctx, "delete_tag", http.MethodDelete, "/api/tags/"+url.PathEscape(tagID), nil, nil)
}

func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := c.do(ctx, "categories", http.MethodGet, "/api/categories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) CreateCategory(ctx context.Context, in model.CategoryInput) (model.Category, error) {
	var category model.Category
	err := c.do(ctx, "create_category", http.MethodPost, "/api/categories", in, &category)
	return category, err
}

func (c *Client) UpdateCategory(ctx context.Context, categoryID string, in model.CategoryInput) (model.Category, error) {
	var category model.Category
	err := c.do(ctx, "update_category", http.MethodPut, categoryPath(categoryID), in, &category)
	return category, err
}

func (c *Client) DeleteCategory(ctx context.Context, categoryID string) error {
	return c.do(ctx, "delete_category", http.MethodDelete, categoryPath(categoryID), nil, nil)
}

func (c *Client) CreateCategoriesFromTemplate(ctx context.Context, template string) ([]model.Category, error) {
	var categories []model.Category
	in := model.CategoryTemplateInput{Template: template}
	err := c.do(ctx, "categories_from_template", http.MethodPost, "/api/categories/from-template", in, &categories)
	return categories, err
}

func categoryPath(id string) string {
	return "/api/categories/" + url.PathEscape(id)
}

func containerPath(id string) string {
	return "/api/containers/" + url.PathEscape(id)
}

func itemPath(id string) string {
	return "/api/items/" + url.PathEscape(id)
}
