package repositories

import (
	"context"
	"errors"

	"github.com/rohits-web03/estately/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key")
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdateUser(ctx context.Context, u *models.User) error
	// DeleteUserCascade removes the user and every listing whose userRef is
	// id as one atomic unit and returns the image URLs of the removed listings.
	DeleteUserCascade(ctx context.Context, id string) ([]string, error)
}

type ListingStore interface {
	CreateListing(ctx context.Context, l *models.Listing) error
	GetListing(ctx context.Context, id string) (models.Listing, error)
	UpdateListing(ctx context.Context, l *models.Listing) error
	DeleteListing(ctx context.Context, id string) error
	// ListByOwner returns the owner's listings, most recently updated first.
	ListByOwner(ctx context.Context, userRef string) ([]models.Listing, error)
	SearchListings(ctx context.Context, f SearchFilter) ([]models.Listing, int64, error)
}

type Store interface {
	UserStore
	ListingStore
	Close(ctx context.Context) error
}
