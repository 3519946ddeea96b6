package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"

	baseliboidc "github.com/aggregat4/go-baselib-services/v4/oidc"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gorilla/sessions"

	"github.com/kegdev/hearth/internal/logging"
)

type contextKey string

const identityContextKey contextKey = "auth.identity"

// Headers that carry the caller's identity in development mode.
const (
	UserHeader  = "X-Hearth-User"
	EmailHeader = "X-Hearth-Email"
)

// SessionCookieName is the cookie holding the OIDC session.
var SessionCookieName = baseliboidc.STDSessionCookieName

// Identity is the signed-in user as far as the API is concerned.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// Config is what the server needs to sign users in through an OIDC issuer.
// SessionKey may be base64 or plain text; empty means a random key, which
// signs everyone out on restart.
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	SessionKey   string
	SessionTTL   time.Duration
	CookieSecure bool
	FallbackURL  string
}

const defaultSessionTTL = 30 * 24 * time.Hour

// Manager owns the OIDC flow and the encrypted cookie session behind it.
type Manager struct {
	oidcConfig    *baseliboidc.OidcConfiguration
	sessionStore  *sessions.CookieStore
	cookieOptions *sessions.Options
	fallbackURL   string
}

func NewManager(cfg Config) (*Manager, error) {
	var missing []string
	for name, value := range map[string]string{
		"issuer url":   cfg.IssuerURL,
		"client id":    cfg.ClientID,
		"redirect url": cfg.RedirectURL,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("oidc: missing %s", strings.Join(missing, ", "))
	}
	store, options, err := newSessionStore(cfg)
	if err != nil {
		return nil, err
	}
	return &Manager{
		oidcConfig:    baseliboidc.CreateOidcConfiguration(cfg.IssuerURL, cfg.ClientID, cfg.ClientSecret, cfg.RedirectURL),
		sessionStore:  store,
		cookieOptions: options,
		fallbackURL:   cfg.FallbackURL,
	}, nil
}

// newSessionStore builds the cookie store sessions are kept in. Cookies are
// HTTP-only and Lax so the command line client can replay them.
func newSessionStore(cfg Config) (*sessions.CookieStore, *sessions.Options, error) {
	masterKey, err := parseSessionKey(cfg.SessionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("session key: %w", err)
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	options := &sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	store := sessions.NewCookieStore(deriveCookieKeys(masterKey))
	store.Options = options
	store.MaxAge(options.MaxAge)
	return store, options, nil
}

func (m *Manager) OIDCMiddleware(skipper func(r *http.Request) bool) func(http.Handler) http.Handler {
	return m.oidcConfig.CreateOidcAuthenticationMiddleware(m.IsAuthenticated, skipper)
}

func (m *Manager) CallbackHandler() http.Handler {
	delegate := baseliboidc.CreateSTDSessionBasedOidcDelegate(m.handleIDToken, m.fallbackURL)
	return m.oidcConfig.CreateOidcCallbackHandler(delegate)
}

// LoginHandler runs behind the OIDC middleware, so reaching it means the
// browser has a session. It reports who is signed in and which cookie the
// command line client needs.
func (m *Manager) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := m.identityFromSession(r)
		if !ok {
			http.Error(w, "not signed in", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"userId": id.UserID,
			"email":  id.Email,
			"cookie": SessionCookieName,
		})
	}
}

func (m *Manager) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := m.sessionStore.Get(r, baseliboidc.STDSessionCookieName)
		if err == nil {
			session.Options = cloneOptions(m.cookieOptions)
			session.Options.MaxAge = -1
			_ = session.Save(r, w)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// WithUser puts the session's identity, if any, into the request context.
func (m *Manager) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := m.identityFromSession(r); ok {
			r = r.WithContext(ContextWithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Manager) IsAuthenticated(r *http.Request) bool {
	_, ok := m.identityFromSession(r)
	return ok
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, false
	}
	return id, true
}

func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// DevUserMiddleware authenticates every request as a fixed user, unless the
// request names another one in UserHeader and EmailHeader.
func DevUserMiddleware(userID string, email string) func(http.Handler) http.Handler {
	if userID == "" {
		userID = "dev-user"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := Identity{UserID: userID, Email: email}
			if header := strings.TrimSpace(r.Header.Get(UserHeader)); header != "" {
				id = Identity{UserID: header, Email: strings.TrimSpace(r.Header.Get(EmailHeader))}
			}
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
		})
	}
}

func (m *Manager) handleIDToken(w http.ResponseWriter, r *http.Request, idToken *oidc.IDToken) error {
	var claims struct {
		Subject string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return err
	}
	if claims.Subject == "" {
		return errors.New("id token missing sub claim")
	}
	session, err := m.sessionStore.Get(r, baseliboidc.STDSessionCookieName)
	if err != nil {
		return err
	}
	session.Options = cloneOptions(m.cookieOptions)
	session.Values["user_id"] = claims.Subject
	session.Values["email"] = claims.Email
	session.Values["name"] = claims.Name
	return session.Save(r, w)
}

func (m *Manager) identityFromSession(r *http.Request) (Identity, bool) {
	session, err := m.sessionStore.Get(r, baseliboidc.STDSessionCookieName)
	if err != nil {
		return Identity{}, false
	}
	userID, _ := session.Values["user_id"].(string)
	if userID == "" {
		return Identity{}, false
	}
	email, _ := session.Values["email"].(string)
	name, _ := session.Values["name"].(string)
	return Identity{UserID: userID, Email: email, Name: name}, true
}

func parseSessionKey(raw string) ([]byte, error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		random := make([]byte, minSessionKeyLen)
		if _, err := rand.Read(random); err != nil {
			return nil, err
		}
		logging.Warn().Msg("no session key configured, sessions will not survive a restart")
		return random, nil
	}
	if decoded, err := base64.StdEncoding.DecodeString(key); err == nil {
		if len(decoded) < minSessionKeyLen {
			return nil, fmt.Errorf("decodes to %d bytes, need at least %d", len(decoded), minSessionKeyLen)
		}
		return decoded, nil
	}
	if len(key) < minSessionKeyLen {
		return nil, fmt.Errorf("need at least %d characters or base64", minSessionKeyLen)
	}
	return []byte(key), nil
}

const minSessionKeyLen = 32

// deriveCookieKeys splits one secret into the cookie signing and encryption
// keys.
func deriveCookieKeys(masterKey []byte) (hashKey []byte, blockKey []byte) {
	derive := func(label string) []byte {
		mac := hmac.New(sha256.New, masterKey)
		mac.Write([]byte("hearth-session-" + label))
		return mac.Sum(nil)
	}
	return derive("sign"), derive("encrypt")
}

func cloneOptions(opts *sessions.Options) *sessions.Options {
	if opts == nil {
		return &sessions.Options{}
	}
	cloned := *opts
	return &cloned
}
