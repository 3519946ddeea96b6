package offline

import (
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/kegdev/hearth/internal/logging"
	"github.com/kegdev/hearth/internal/metrics"
	"github.com/kegdev/hearth/internal/model"
)

// Tier names how much of an item list a snapshot kept.
type Tier string

const (
	TierFull      Tier = "full"
	TierNoImages  Tier = "no-images"
	TierEssential Tier = "essential"
)

// ItemsSnapshot is one container's item list. Its owner is the container id.
type ItemsSnapshot struct {
	Items       []model.Item `json:"items"`
	ContainerID string       `json:"containerId"`
	Tier        Tier         `json:"tier"`
	Timestamp   int64        `json:"timestamp"`
	Version     int          `json:"version"`
}

func (s ItemsSnapshot) header() header {
	return header{owner: s.ContainerID, written: stampTime(s.Timestamp), version: s.Version}
}

func (s ItemsSnapshot) WrittenAt() time.Time {
	return stampTime(s.Timestamp)
}

// Degraded reports whether the snapshot is missing real image data: it was
// stored with essential fields only, or every item that has an image carries
// the sentinel instead.
func (s ItemsSnapshot) Degraded(sentinel string) bool {
	if s.Tier == TierEssential {
		return true
	}
	withImage := 0
	for _, item := range s.Items {
		if item.ImageURL == "" {
			continue
		}
		if item.ImageURL != sentinel {
			return false
		}
		withImage++
	}
	return withImage > 0
}

// itemsRecord is the stored shape; Items varies by tier.
type itemsRecord struct {
	Items       any    `json:"items"`
	ContainerID string `json:"containerId"`
	Tier        Tier   `json:"tier"`
	Timestamp   int64  `json:"timestamp"`
	Version     int    `json:"version"`
}

type essentialItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ContainerID string    `json:"containerId"`
	Tags        []string  `json:"tags"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// itemsTier is one way of shrinking an item list for storage. The tiers are
// tried in order until one is stored.
type itemsTier struct {
	tier   Tier
	shrink func(items []model.Item, sentinel string) any
	// fits rejects an encoded payload before it reaches the store.
	fits func(size int, cfg Config) bool
}

var itemsTiers = []itemsTier{
	{
		tier:   TierFull,
		shrink: func(items []model.Item, _ string) any { return items },
		fits:   func(size int, cfg Config) bool { return size < cfg.ItemsSizeThreshold },
	},
	{
		tier:   TierNoImages,
		shrink: stripImages,
	},
	{
		tier:   TierEssential,
		shrink: essentialFields,
	},
}

func stripImages(items []model.Item, sentinel string) any {
	out := make([]model.Item, len(items))
	for i, item := range items {
		if item.ImageURL != "" {
			item.ImageURL = sentinel
		}
		out[i] = item
	}
	return out
}

func essentialFields(items []model.Item, _ string) any {
	out := make([]essentialItem, len(items))
	for i, item := range items {
		tags := item.Tags
		if tags == nil {
			tags = []string{}
		}
		out[i] = essentialItem{
			ID:          item.ID,
			Name:        item.Name,
			Description: item.Description,
			ContainerID: item.ContainerID,
			Tags:        tags,
			UserID:      item.UserID,
			CreatedAt:   item.CreatedAt,
			UpdatedAt:   item.UpdatedAt,
		}
	}
	return out
}

func itemsKey(containerID string) string {
	return itemsKeyPrefix + containerID
}

// CacheItems stores a container's item list, shrinking it through the tiers
// until the store accepts it. If no tier fits, nothing is stored.
func (c *Cache) CacheItems(containerID string, items []model.Item) Tier {
	if items == nil {
		items = []model.Item{}
	}
	key := itemsKey(containerID)
	log := logging.Logger().With().Str("container", containerID).Int("items", len(items)).Logger()

	now := c.now().UnixMilli()
	for _, t := range itemsTiers {
		data, err := json.Marshal(itemsRecord{
			Items:       t.shrink(items, c.cfg.ImageSentinel),
			ContainerID: containerID,
			Tier:        t.tier,
			Timestamp:   now,
			Version:     c.cfg.Version,
		})
		if err != nil {
			log.Warn().Err(err).Str("tier", string(t.tier)).Msg("encoding items snapshot failed")
			continue
		}
		if t.fits != nil && !t.fits(len(data), c.cfg) {
			log.Info().Int("bytes", len(data)).Str("tier", string(t.tier)).Msg("items snapshot over size threshold")
			continue
		}
		if err := c.local.Set(key, string(data)); err != nil {
			log.Warn().Err(err).Str("tier", string(t.tier)).Msg("storing items snapshot failed")
			continue
		}
		if t.tier != TierFull {
			log.Warn().Str("tier", string(t.tier)).Msg("stored degraded items snapshot")
		}
		metrics.CacheWrites.WithLabelValues(resourceItems, string(t.tier)).Inc()
		return t.tier
	}

	log.Error().Msg("items snapshot dropped")
	metrics.CacheWrites.WithLabelValues(resourceItems, "dropped").Inc()
	return ""
}

// CachedItems returns the container's item list if it is within the TTL. A
// degraded snapshot still counts.
func (c *Cache) CachedItems(containerID string) (ItemsSnapshot, bool) {
	return lookup[ItemsSnapshot](c, c.local, query{
		resource: resourceItems,
		key:      itemsKey(containerID),
		owner:    containerID,
		maxAge:   c.cfg.ListTTL,
	})
}

func (c *Cache) StaleItems(containerID string) (ItemsSnapshot, bool) {
	return lookup[ItemsSnapshot](c, c.local, query{
		resource: resourceItems,
		key:      itemsKey(containerID),
		owner:    containerID,
	})
}

// ItemsRecent reports whether the item list was written less than maxAge
// ago. maxAge <= 0 uses the configured items recency window.
func (c *Cache) ItemsRecent(containerID string, maxAge time.Duration) bool {
	if maxAge <= 0 {
		maxAge = c.cfg.ItemsRecency
	}
	_, ok := lookup[ItemsSnapshot](c, c.local, query{
		resource: resourceItems,
		key:      itemsKey(containerID),
		owner:    containerID,
		maxAge:   maxAge,
		quiet:    true,
	})
	return ok
}

func (c *Cache) ItemsDegraded(containerID string) bool {
	snap, ok := lookup[ItemsSnapshot](c, c.local, query{
		resource: resourceItems,
		key:      itemsKey(containerID),
		owner:    containerID,
		quiet:    true,
	})
	return ok && snap.Degraded(c.cfg.ImageSentinel)
}

// RecentItems is the online fast path. Degraded snapshots never qualify,
// whatever their age.
func (c *Cache) RecentItems(containerID string) ([]model.Item, bool) {
	snap, ok := lookup[ItemsSnapshot](c, c.local, query{
		resource: resourceItems,
		key:      itemsKey(containerID),
		owner:    containerID,
		maxAge:   c.cfg.ItemsRecency,
	})
	if !ok {
		return nil, false
	}
	if snap.Degraded(c.cfg.ImageSentinel) {
		logging.Debug().Str("container", containerID).Str("tier", string(snap.Tier)).Msg("skipping degraded items snapshot")
		return nil, false
	}
	return snap.Items, true
}

// CachedItemsCount returns how many items the container's valid snapshot
// holds, or 0 without one.
func (c *Cache) CachedItemsCount(containerID string) int {
	snap, ok := lookup[ItemsSnapshot](c, c.local, query{
		resource: resourceItems,
		key:      itemsKey(containerID),
		owner:    containerID,
		maxAge:   c.cfg.ListTTL,
		quiet:    true,
	})
	if !ok {
		return 0
	}
	return len(snap.Items)
}

func (c *Cache) ClearItemsCache(containerID string) {
	c.remove(c.local, resourceItems, itemsKey(containerID))
}

func (c *Cache) ClearAllItemsCaches() {
	keys, err := c.local.Keys()
	if err != nil {
		logging.Warn().Err(err).Msg("listing items snapshots failed")
		return
	}
	for _, key := range keys {
		if strings.HasPrefix(key, itemsKeyPrefix) {
			c.remove(c.local, resourceItems, key)
		}
	}
}
