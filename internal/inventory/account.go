package inventory

import (
	"context"
	"fmt"

	"github.com/kegdev/hearth/internal/logging"
	"github.com/kegdev/hearth/internal/model"
	"github.com/kegdev/hearth/internal/offline"
)

// Account is the signed-in user's profile, or the registration request that
// stands in for it, with the status derived from them.
type Account struct {
	Profile             *model.UserProfile
	RegistrationRequest *model.RegistrationRequest
	Status              offline.AccountStatus
}

func accountFrom(snap offline.ProfileSnapshot) Account {
	status := offline.DeriveAccountStatus(snap.Profile, snap.RegistrationRequest)
	status.UserID = snap.UserID
	status.Timestamp = snap.Timestamp
	status.Version = snap.Version
	return Account{Profile: snap.Profile, RegistrationRequest: snap.RegistrationRequest, Status: status}
}

// Account loads the user's profile. Online, a profile cached earlier in
// this session is trusted without a remote call. email is used to look up a
// registration request when the user has no profile yet.
func (s *Service) Account(ctx context.Context, userID string, email string) (Result[Account], error) {
	if !s.cache.IsOnline() {
		snap, ok := s.cache.CachedProfile(userID)
		if !ok {
			return Result[Account]{}, ErrOfflineNoCache
		}
		served("profile", SourceOffline)
		return Result[Account]{Data: accountFrom(snap), Source: SourceOffline}, nil
	}

	if s.cache.IsSessionValidated(userID) {
		if snap, ok := s.cache.CachedProfile(userID); ok {
			served("profile", SourceFast)
			return Result[Account]{Data: accountFrom(snap), Source: SourceFast}, nil
		}
	}

	account, err := s.fetchAccount(ctx, email)
	if err != nil {
		if snap, ok := s.cache.StaleProfile(userID); ok {
			logging.Warn().Err(err).Str("user", userID).Msg("profile fetch failed, serving cached profile")
			served("profile", SourceStale)
			return Result[Account]{Data: accountFrom(snap), Source: SourceStale}, nil
		}
		return Result[Account]{}, fmt.Errorf("fetch profile: %w", err)
	}

	account.Status = s.cache.CacheProfile(userID, account.Profile, account.RegistrationRequest)
	s.cache.MarkSessionValidated(userID)
	return Result[Account]{Data: account, Source: SourceRemote}, nil
}

func (s *Service) fetchAccount(ctx context.Context, email string) (Account, error) {
	profile, err := s.remote.Profile(ctx)
	if err != nil {
		return Account{}, err
	}
	var request *model.RegistrationRequest
	if profile == nil && email != "" {
		request, err = s.remote.RegistrationRequestByEmail(ctx, email)
		if err != nil {
			return Account{}, err
		}
	}
	return Account{
		Profile:             profile,
		RegistrationRequest: request,
		Status:              offline.DeriveAccountStatus(profile, request),
	}, nil
}

// AccountStatus answers "what should this user see". Offline it reads only
// the small status snapshot.
func (s *Service) AccountStatus(ctx context.Context, userID string, email string) (Result[offline.AccountStatus], error) {
	if !s.cache.IsOnline() {
		status, ok := s.cache.CachedAccountStatus(userID)
		if !ok {
			return Result[offline.AccountStatus]{}, ErrOfflineNoCache
		}
		served("status", SourceOffline)
		return Result[offline.AccountStatus]{Data: status, Source: SourceOffline}, nil
	}
	account, err := s.Account(ctx, userID, email)
	if err != nil {
		return Result[offline.AccountStatus]{}, err
	}
	return Result[offline.AccountStatus]{Data: account.Data.Status, Source: account.Source}, nil
}

// Register submits a registration request and forgets the cached profile so
// the new status is fetched on the next read.
func (s *Service) Register(ctx context.Context, in model.RegistrationInput) (model.RegistrationRequest, error) {
	if err := s.requireOnline(); err != nil {
		return model.RegistrationRequest{}, err
	}
	request, err := s.remote.SubmitRegistration(ctx, in)
	if err != nil {
		return model.RegistrationRequest{}, fmt.Errorf("submit registration: %w", err)
	}
	s.cache.ClearProfileCache()
	s.cache.ClearStatusCache()
	return request, nil
}

func (s *Service) ReviewRegistration(ctx context.Context, requestID string, in model.ReviewInput) (model.RegistrationRequest, error) {
	if err := s.requireOnline(); err != nil {
		return model.RegistrationRequest{}, err
	}
	request, err := s.remote.ReviewRegistration(ctx, requestID, in)
	if err != nil {
		return model.RegistrationRequest{}, fmt.Errorf("review registration: %w", err)
	}
	return request, nil
}
