package offline

import (
	"time"

	"github.com/kegdev/hearth/internal/logging"
	"github.com/kegdev/hearth/internal/model"
)

// ProfileSnapshot is the cached profile together with the registration
// request that stands in for it while a user is not yet approved.
type ProfileSnapshot struct {
	Profile             *model.UserProfile         `json:"profile"`
	RegistrationRequest *model.RegistrationRequest `json:"registrationRequest"`
	UserID              string                     `json:"userId"`
	Timestamp           int64                      `json:"timestamp"`
	Version             int                        `json:"version"`
}

func (s ProfileSnapshot) header() header {
	return header{owner: s.UserID, written: stampTime(s.Timestamp), version: s.Version}
}

func (s ProfileSnapshot) WrittenAt() time.Time {
	return stampTime(s.Timestamp)
}

// AccountStatus is the minimal "what should this user see" record derived
// from a profile snapshot.
type AccountStatus struct {
	HasProfile  bool         `json:"hasProfile"`
	Status      model.Status `json:"status"`
	DisplayName string       `json:"displayName,omitempty"`
	Email       string       `json:"email,omitempty"`
	UserID      string       `json:"userId"`
	Timestamp   int64        `json:"timestamp"`
	Version     int          `json:"version"`
}

func (s AccountStatus) header() header {
	return header{owner: s.UserID, written: stampTime(s.Timestamp), version: s.Version}
}

func (s AccountStatus) WrittenAt() time.Time {
	return stampTime(s.Timestamp)
}

// DeriveAccountStatus resolves the status shown to a user: admin for admin
// profiles, approved for any other profile, else the registration request's
// status, else pending.
func DeriveAccountStatus(profile *model.UserProfile, request *model.RegistrationRequest) AccountStatus {
	status := AccountStatus{Status: model.StatusPending, HasProfile: profile != nil}
	switch {
	case profile != nil:
		status.Status = model.StatusApproved
		if profile.IsAdmin {
			status.Status = model.StatusAdmin
		}
	case request != nil && request.Status != "":
		status.Status = request.Status
	}
	if profile != nil {
		status.DisplayName = profile.DisplayName
		status.Email = profile.Email
	}
	if request != nil {
		if status.DisplayName == "" {
			status.DisplayName = request.DisplayName
		}
		if status.Email == "" {
			status.Email = request.Email
		}
	}
	return status
}

func (c *Cache) CachedProfile(userID string) (ProfileSnapshot, bool) {
	return lookup[ProfileSnapshot](c, c.local, query{
		resource: resourceProfile,
		key:      profileKey,
		owner:    userID,
		maxAge:   c.cfg.ProfileTTL,
	})
}

// StaleProfile ignores the TTL; version and owner still have to match.
func (c *Cache) StaleProfile(userID string) (ProfileSnapshot, bool) {
	return lookup[ProfileSnapshot](c, c.local, query{
		resource: resourceProfile,
		key:      profileKey,
		owner:    userID,
	})
}

// CacheProfile stores the profile snapshot and, when that succeeds, the
// account status derived from it. The derived status is returned stamped
// with the write time whether or not it could be stored.
func (c *Cache) CacheProfile(userID string, profile *model.UserProfile, request *model.RegistrationRequest) AccountStatus {
	now := c.now().UnixMilli()
	snap := ProfileSnapshot{
		Profile:             profile,
		RegistrationRequest: request,
		UserID:              userID,
		Timestamp:           now,
		Version:             c.cfg.Version,
	}
	status := DeriveAccountStatus(profile, request)
	status.UserID = userID
	status.Timestamp = now
	status.Version = c.cfg.Version
	if !c.put(c.local, resourceProfile, profileKey, snap) {
		return status
	}
	c.put(c.local, resourceStatus, statusKey, status)
	logging.Debug().Str("user", userID).Str("status", string(status.Status)).Msg("cached profile")
	return status
}

func (c *Cache) CachedAccountStatus(userID string) (AccountStatus, bool) {
	return lookup[AccountStatus](c, c.local, query{
		resource: resourceStatus,
		key:      statusKey,
		owner:    userID,
		maxAge:   c.cfg.AccountStatusTTL,
	})
}

func (c *Cache) ClearProfileCache() {
	c.remove(c.local, resourceProfile, profileKey)
}

func (c *Cache) ClearStatusCache() {
	c.remove(c.local, resourceStatus, statusKey)
}

type sessionMarker struct {
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
	Version   int    `json:"version"`
}

func (m sessionMarker) header() header {
	return header{owner: m.UserID, written: stampTime(m.Timestamp), version: m.Version}
}

// IsSessionValidated reports whether the user's account was checked against
// the remote store earlier in this process's session.
func (c *Cache) IsSessionValidated(userID string) bool {
	_, ok := lookup[sessionMarker](c, c.session, query{
		resource: resourceSession,
		key:      sessionValidatedKey,
		owner:    userID,
		maxAge:   c.cfg.SessionTTL,
		quiet:    true,
	})
	return ok
}

func (c *Cache) MarkSessionValidated(userID string) {
	c.put(c.session, resourceSession, sessionValidatedKey, sessionMarker{
		UserID:    userID,
		Timestamp: c.now().UnixMilli(),
		Version:   c.cfg.Version,
	})
}
