package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rohits-web03/estately/internal/models"
	"github.com/rohits-web03/estately/internal/purge"
	"github.com/rohits-web03/estately/internal/repositories"
)

const msgUpdateOwnAccount = "You can only update your own account!"

type UserService struct {
	users    repositories.UserStore
	listings repositories.ListingStore
	keys     URLResolver
	purger   purge.Purger
	cache    CacheInvalidator
}

func NewUserService(users repositories.UserStore, listings repositories.ListingStore, keys URLResolver, purger purge.Purger, cache CacheInvalidator) *UserService {
	if cache == nil {
		cache = nopInvalidator{}
	}
	return &UserService{users: users, listings: listings, keys: keys, purger: purger, cache: cache}
}

// CanUpdate fails unless requesterID is the account id.
func (s *UserService) CanUpdate(id, requesterID string) error {
	return requireOwner(requesterID, id, msgUpdateOwnAccount)
}

// ProfileUpdate holds the fields present in the request; nil means unchanged.
type ProfileUpdate struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	PhotoURL *string `json:"photoURL"`
}

func (s *UserService) load(ctx context.Context, id string) (models.User, error) {
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, NotFound(msgUserNotFound)
		}
		return models.User{}, Internal(err)
	}
	return u, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id, requesterID string, upd ProfileUpdate) (models.User, error) {
	if err := requireOwner(requesterID, id, msgUpdateOwnAccount); err != nil {
		return models.User{}, err
	}
	u, err := s.load(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if upd.Username != nil {
		u.Username = strings.TrimSpace(*upd.Username)
	}
	if upd.Email != nil {
		u.Email = normalizeEmail(*upd.Email)
	}
	if upd.PhotoURL != nil {
		u.PhotoURL = strings.TrimSpace(*upd.PhotoURL)
	}
	if upd.Password != nil {
		hashed, err := HashPassword(*upd.Password)
		if err != nil {
			return models.User{}, Internal(err)
		}
		u.PasswordHash = hashed
	}
	if err := s.users.UpdateUser(ctx, &u); err != nil {
		switch {
		case errors.Is(err, repositories.ErrDuplicate):
			return models.User{}, Conflict(msgDuplicateUser)
		case errors.Is(err, repositories.ErrNotFound):
			return models.User{}, NotFound(msgUserNotFound)
		}
		return models.User{}, Internal(err)
	}
	s.cache.Invalidate(ctx)
	return u, nil
}

// DeleteAccount removes the user and their listings in one transaction and
// schedules the orphaned images under the user's prefix for purging. Those
// URLs are also returned.
func (s *UserService) DeleteAccount(ctx context.Context, id, requesterID string) ([]string, error) {
	if err := requireOwner(requesterID, id, "You can only delete your own account!"); err != nil {
		return nil, err
	}
	urls, err := s.users.DeleteUserCascade(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NotFound(msgUserNotFound)
		}
		return nil, Internal(err)
	}
	urls = ownedBy(s.keys, id, urls)
	if urls == nil {
		urls = []string{}
	}
	if len(urls) > 0 {
		s.purger.Purge(ctx, purge.ReasonAccountDeleted, urls)
	}
	s.cache.Invalidate(ctx)
	return urls, nil
}

func (s *UserService) GetUserListings(ctx context.Context, id, requesterID string) ([]models.Listing, error) {
	if err := requireOwner(requesterID, id, "You can only view your own listings!"); err != nil {
		return nil, err
	}
	listings, err := s.listings.ListByOwner(ctx, id)
	if err != nil {
		return nil, Internal(err)
	}
	return listings, nil
}

// GetPublicProfile returns the user without credentials; the password hash
// never serializes.
func (s *UserService) GetPublicProfile(ctx context.Context, id string) (models.User, error) {
	return s.load(ctx, id)
}
