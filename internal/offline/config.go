package offline

import "time"

const (
	sessionValidatedKey = "hearth-session-validated"
	profileKey          = "hearth-profile-cache"
	statusKey           = "hearth-status-cache"
	containersKey       = "hearth-containers-cache"
	itemsKeyPrefix      = "hearth-items-cache-"
	keyPrefix           = "hearth-"
)

// ImageSentinel replaces inline image data in item snapshots that were too
// large to store whole.
const ImageSentinel = "[image-cached-separately]"

// Config holds the cache's time and size limits. Zero fields take the
// values from DefaultConfig.
type Config struct {
	// Version is the snapshot schema version. Entries written with any other
	// version are deleted on read.
	Version int

	ListTTL          time.Duration
	ProfileTTL       time.Duration
	AccountStatusTTL time.Duration
	SessionTTL       time.Duration

	// Recency windows gate the online fast path. They are shorter than the
	// TTLs and kept separate per resource.
	ContainersRecency time.Duration
	ItemsRecency      time.Duration

	// ItemsSizeThreshold is the serialized size in bytes at or above which an
	// item snapshot is stored without images.
	ItemsSizeThreshold int
	ImageSentinel      string
}

func DefaultConfig() Config {
	return Config{
		Version:            1,
		ListTTL:            30 * time.Minute,
		ProfileTTL:         2 * time.Hour,
		AccountStatusTTL:   2 * time.Hour,
		SessionTTL:         4 * time.Hour,
		ContainersRecency:  2 * time.Minute,
		ItemsRecency:       5 * time.Minute,
		ItemsSizeThreshold: 2 * 1024 * 1024,
		ImageSentinel:      ImageSentinel,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Version == 0 {
		c.Version = d.Version
	}
	if c.ListTTL <= 0 {
		c.ListTTL = d.ListTTL
	}
	if c.ProfileTTL <= 0 {
		c.ProfileTTL = d.ProfileTTL
	}
	if c.AccountStatusTTL <= 0 {
		c.AccountStatusTTL = d.AccountStatusTTL
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = d.SessionTTL
	}
	if c.ContainersRecency <= 0 {
		c.ContainersRecency = d.ContainersRecency
	}
	if c.ItemsRecency <= 0 {
		c.ItemsRecency = d.ItemsRecency
	}
	if c.ItemsSizeThreshold <= 0 {
		c.ItemsSizeThreshold = d.ItemsSizeThreshold
	}
	if c.ImageSentinel == "" {
		c.ImageSentinel = d.ImageSentinel
	}
	return c
}
