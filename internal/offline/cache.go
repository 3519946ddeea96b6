// Package offline keeps versioned, owner-scoped snapshots of the user's
// profile, container list and per-container item lists in a local key-value
// store, so reads can be answered without the remote store when the device is
// offline or the data was fetched moments ago.
//
// The cache is best effort. Its own failures (unreadable entries, full
// storage) are logged and reported as misses, never returned as errors.
package offline

import (
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/kegdev/hearth/internal/connectivity"
	"github.com/kegdev/hearth/internal/kv"
	"github.com/kegdev/hearth/internal/logging"
	"github.com/kegdev/hearth/internal/metrics"
)

const (
	resourceProfile    = "profile"
	resourceStatus     = "status"
	resourceContainers = "containers"
	resourceItems      = "items"
	resourceSession    = "session"
)

// Cache is constructed once at startup and shared by the data access layer.
type Cache struct {
	local   kv.Store
	session kv.Store
	online  connectivity.Checker
	cfg     Config
	now     func() time.Time
}

type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New builds a cache over local (persistent) and session (process-lifetime)
// stores.
func New(local kv.Store, session kv.Store, online connectivity.Checker, cfg Config, opts ...Option) *Cache {
	c := &Cache{
		local:   local,
		session: session,
		online:  online,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) Config() Config {
	return c.cfg
}

func (c *Cache) IsOnline() bool {
	return c.online.IsOnline()
}

// IsInOfflineMode is the negation of IsOnline, for status indicators.
func (c *Cache) IsInOfflineMode() bool {
	return !c.IsOnline()
}

// ShouldUseCachedData reports whether top-level guards may render from the
// cache: always when offline, otherwise only with a valid account status.
func (c *Cache) ShouldUseCachedData(userID string) bool {
	if !c.IsOnline() {
		return true
	}
	_, ok := c.CachedAccountStatus(userID)
	return ok
}

// CacheAge returns whole minutes since the account status was written.
func (c *Cache) CacheAge(userID string) (int, bool) {
	status, ok := c.CachedAccountStatus(userID)
	if !ok {
		return 0, false
	}
	return int(c.now().Sub(status.WrittenAt()) / time.Minute), true
}

// ClearAllCaches removes every snapshot and the session marker. Used on
// logout and manual refresh.
func (c *Cache) ClearAllCaches() {
	c.ClearProfileCache()
	c.ClearStatusCache()
	c.ClearContainersCache()
	c.ClearAllItemsCaches()
	c.remove(c.session, resourceSession, sessionValidatedKey)
}

// ForceCacheRefresh is ClearAllCaches under the name manual refresh uses.
func (c *Cache) ForceCacheRefresh() {
	c.ClearAllCaches()
}

// header is what every snapshot carries besides its payload.
type header struct {
	owner   string
	written time.Time
	version int
}

type envelope interface {
	header() header
}

func stampTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// query describes one snapshot read. maxAge <= 0 skips the age check. quiet
// reads never delete entries and never touch metrics.
type query struct {
	resource string
	key      string
	owner    string
	maxAge   time.Duration
	quiet    bool
}

// lookup is the one place snapshot validity is decided: the stored version
// must match, the owner must match, and the entry must be younger than
// maxAge. Unreadable, wrong-version and wrong-owner entries are deleted.
// Expired entries are kept so a failed remote fetch can still fall back to
// them.
func lookup[S envelope](c *Cache, store kv.Store, q query) (S, bool) {
	var zero S
	raw, ok, err := store.Get(q.key)
	if err != nil {
		if !q.quiet {
			logging.Warn().Err(err).Str("key", q.key).Msg("reading cache entry failed")
			c.invalidate(store, q, "unreadable")
		}
		return zero, false
	}
	if !ok {
		if !q.quiet {
			metrics.CacheLookups.WithLabelValues(q.resource, "miss").Inc()
		}
		return zero, false
	}

	var snap S
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		if !q.quiet {
			logging.Warn().Err(err).Str("key", q.key).Msg("cache entry is corrupt")
			c.invalidate(store, q, "corrupt")
		}
		return zero, false
	}

	h := snap.header()
	reason := ""
	switch {
	case h.version != c.cfg.Version:
		reason = "version"
	case h.owner != q.owner:
		reason = "owner"
	}
	if reason != "" {
		if !q.quiet {
			c.invalidate(store, q, reason)
		}
		return zero, false
	}

	if q.maxAge > 0 && c.now().Sub(h.written) >= q.maxAge {
		if !q.quiet {
			metrics.CacheLookups.WithLabelValues(q.resource, "expired").Inc()
			logging.Debug().Str("key", q.key).Dur("age", c.now().Sub(h.written)).Msg("cache entry expired")
		}
		return zero, false
	}

	if !q.quiet {
		metrics.CacheLookups.WithLabelValues(q.resource, "hit").Inc()
	}
	return snap, true
}

func (c *Cache) invalidate(store kv.Store, q query, reason string) {
	metrics.CacheLookups.WithLabelValues(q.resource, "invalid").Inc()
	logging.Debug().Str("key", q.key).Str("reason", reason).Msg("dropping cache entry")
	c.remove(store, q.resource, q.key)
}

// put serializes v and stores it under key, logging instead of failing.
func (c *Cache) put(store kv.Store, resource string, key string, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("encoding cache entry failed")
		metrics.CacheWrites.WithLabelValues(resource, "dropped").Inc()
		return false
	}
	if err := store.Set(key, string(data)); err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("writing cache entry failed")
		metrics.CacheWrites.WithLabelValues(resource, "dropped").Inc()
		return false
	}
	metrics.CacheWrites.WithLabelValues(resource, "full").Inc()
	return true
}

func (c *Cache) remove(store kv.Store, resource string, key string) {
	if err := store.Delete(key); err != nil {
		logging.Warn().Err(err).Str("resource", resource).Str("key", key).Msg("clearing cache entry failed")
	}
}

// EntryInfo describes one stored cache entry, for debugging.
type EntryInfo struct {
	Key      string        `json:"key"`
	Resource string        `json:"resource"`
	Owner    string        `json:"owner,omitempty"`
	Age      time.Duration `json:"age"`
	Count    int           `json:"count"`
	Bytes    int           `json:"bytes"`
	Version  int           `json:"version"`
	Tier     string        `json:"tier,omitempty"`
	Corrupt  bool          `json:"corrupt,omitempty"`
}

// Entries lists every cache entry in the local store with its age and size.
// Nothing is validated or deleted.
func (c *Cache) Entries() []EntryInfo {
	keys, err := c.local.Keys()
	if err != nil {
		logging.Warn().Err(err).Msg("listing cache keys failed")
		return nil
	}
	entries := make([]EntryInfo, 0, len(keys))
	for _, key := range keys {
		if !strings.HasPrefix(key, keyPrefix) {
			continue
		}
		raw, ok, err := c.local.Get(key)
		if err != nil || !ok {
			continue
		}
		entries = append(entries, c.describe(key, raw))
	}
	slices.SortFunc(entries, func(a, b EntryInfo) int {
		return strings.Compare(a.Key, b.Key)
	})
	return entries
}

func (c *Cache) describe(key string, raw string) EntryInfo {
	info := EntryInfo{Key: key, Bytes: len(raw), Resource: resourceForKey(key)}
	var probe struct {
		UserID      string            `json:"userId"`
		ContainerID string            `json:"containerId"`
		Timestamp   int64             `json:"timestamp"`
		Version     int               `json:"version"`
		Tier        string            `json:"tier"`
		Containers  []json.RawMessage `json:"containers"`
		Items       []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		info.Corrupt = true
		return info
	}
	info.Owner = probe.UserID
	if probe.ContainerID != "" {
		info.Owner = probe.ContainerID
	}
	info.Age = c.now().Sub(stampTime(probe.Timestamp))
	info.Version = probe.Version
	info.Tier = probe.Tier
	info.Count = len(probe.Containers) + len(probe.Items)
	return info
}

func resourceForKey(key string) string {
	switch {
	case key == profileKey:
		return resourceProfile
	case key == statusKey:
		return resourceStatus
	case key == containersKey:
		return resourceContainers
	case strings.HasPrefix(key, itemsKeyPrefix):
		return resourceItems
	default:
		return "unknown"
	}
}
