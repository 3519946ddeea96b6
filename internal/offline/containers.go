package offline

import (
	"time"

	"github.com/kegdev/hearth/internal/model"
)

// ContainersSnapshot is the full container list (owned and shared) for one user.
type ContainersSnapshot struct {
	Containers []model.ContainerWithSharing `json:"containers"`
	UserID     string                       `json:"userId"`
	Timestamp  int64                        `json:"timestamp"`
	Version    int                          `json:"version"`
}

func (s ContainersSnapshot) header() header {
	return header{owner: s.UserID, written: stampTime(s.Timestamp), version: s.Version}
}

func (s ContainersSnapshot) WrittenAt() time.Time {
	return stampTime(s.Timestamp)
}

func (c *Cache) CacheContainers(userID string, containers []model.ContainerWithSharing) {
	if containers == nil {
		containers = []model.ContainerWithSharing{}
	}
	c.put(c.local, resourceContainers, containersKey, ContainersSnapshot{
		Containers: containers,
		UserID:     userID,
		Timestamp:  c.now().UnixMilli(),
		Version:    c.cfg.Version,
	})
}

// CachedContainers returns the user's container list if it is within the TTL.
func (c *Cache) CachedContainers(userID string) ([]model.ContainerWithSharing, bool) {
	snap, ok := lookup[ContainersSnapshot](c, c.local, query{
		resource: resourceContainers,
		key:      containersKey,
		owner:    userID,
		maxAge:   c.cfg.ListTTL,
	})
	return snap.Containers, ok
}

// StaleContainers returns the user's container list whatever its age.
func (c *Cache) StaleContainers(userID string) (ContainersSnapshot, bool) {
	return lookup[ContainersSnapshot](c, c.local, query{
		resource: resourceContainers,
		key:      containersKey,
		owner:    userID,
	})
}

// ContainersRecent reports whether the user's list was written less than
// maxAge ago. maxAge <= 0 uses the configured containers recency window.
func (c *Cache) ContainersRecent(userID string, maxAge time.Duration) bool {
	if maxAge <= 0 {
		maxAge = c.cfg.ContainersRecency
	}
	_, ok := lookup[ContainersSnapshot](c, c.local, query{
		resource: resourceContainers,
		key:      containersKey,
		owner:    userID,
		maxAge:   maxAge,
		quiet:    true,
	})
	return ok
}

// RecentContainers is the online fast path: the list, if it is within the
// containers recency window.
func (c *Cache) RecentContainers(userID string) ([]model.ContainerWithSharing, bool) {
	snap, ok := lookup[ContainersSnapshot](c, c.local, query{
		resource: resourceContainers,
		key:      containersKey,
		owner:    userID,
		maxAge:   c.cfg.ContainersRecency,
	})
	return snap.Containers, ok
}

func (c *Cache) ClearContainersCache() {
	c.remove(c.local, resourceContainers, containersKey)
}
