package services

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/rohits-web03/estately/internal/metrics"
	"github.com/rohits-web03/estately/internal/models"
	"github.com/rohits-web03/estately/internal/purge"
	"github.com/rohits-web03/estately/internal/repositories"
)

const (
	msgListingNotFound   = "Listing not found!"
	msgUpdateOwnListings = "You can only update your own listings!"
)

// CacheInvalidator drops cached public responses after a mutation.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context) {}

// ListingInput is the writable part of a listing. userRef is never taken
// from the client.
type ListingInput struct {
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	Address       string             `json:"address"`
	Type          models.ListingType `json:"type"`
	Parking       bool               `json:"parking"`
	Furnished     bool               `json:"furnished"`
	Offer         bool               `json:"offer"`
	Bedrooms      int                `json:"bedrooms"`
	Bathrooms     int                `json:"bathrooms"`
	RegularPrice  int64              `json:"regularPrice"`
	DiscountPrice *int64             `json:"discountPrice"`
	ImageURLs     []string           `json:"imageUrls"`
}

// check enforces the listing invariants independently of request validation.
func (in ListingInput) check() error {
	if in.Type != models.ListingSale && in.Type != models.ListingRent {
		return Invalid("Invalid type value. Type must be sale or rent!")
	}
	if n := len(in.ImageURLs); n < models.MinListingImages || n > models.MaxListingImages {
		return Invalid("A listing must have between 1 and 6 images!")
	}
	if in.Offer {
		if in.DiscountPrice == nil || *in.DiscountPrice < 0 || *in.DiscountPrice >= in.RegularPrice {
			return Invalid("Discount price must be less than the regular price!")
		}
	} else if in.DiscountPrice != nil {
		return Invalid("Invalid discount price value. Discount price must be null if there is no offer!")
	}
	return nil
}

// checkInput adds the storage rule to check: images hosted by us must live
// under the owner's prefix.
func (s *ListingService) checkInput(ownerID string, in ListingInput) error {
	if err := in.check(); err != nil {
		return err
	}
	if foreignStored(s.keys, ownerID, in.ImageURLs) {
		return Invalid("You can only use your own images!")
	}
	return nil
}

func (in ListingInput) apply(l *models.Listing) {
	l.Title = strings.TrimSpace(in.Title)
	l.Description = strings.TrimSpace(in.Description)
	l.Address = strings.TrimSpace(in.Address)
	l.Type = in.Type
	l.Parking, l.Furnished, l.Offer = in.Parking, in.Furnished, in.Offer
	l.Bedrooms, l.Bathrooms = in.Bedrooms, in.Bathrooms
	l.RegularPrice = in.RegularPrice
	l.DiscountPrice = in.DiscountPrice
	l.ImageURLs = slices.Clone(in.ImageURLs)
}

type ListingService struct {
	listings repositories.ListingStore
	keys     URLResolver
	purger   purge.Purger
	cache    CacheInvalidator
}

func NewListingService(listings repositories.ListingStore, keys URLResolver, purger purge.Purger, cache CacheInvalidator) *ListingService {
	if cache == nil {
		cache = nopInvalidator{}
	}
	return &ListingService{listings: listings, keys: keys, purger: purger, cache: cache}
}

func (s *ListingService) Create(ctx context.Context, ownerID string, in ListingInput) (models.Listing, error) {
	if err := s.checkInput(ownerID, in); err != nil {
		return models.Listing{}, err
	}
	l := models.Listing{UserRef: ownerID}
	in.apply(&l)
	if err := s.listings.CreateListing(ctx, &l); err != nil {
		return models.Listing{}, Internal(err)
	}
	metrics.ListingsCreated.Inc()
	s.cache.Invalidate(ctx)
	return l, nil
}

func (s *ListingService) Get(ctx context.Context, id string) (models.Listing, error) {
	l, err := s.listings.GetListing(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Listing{}, NotFound(msgListingNotFound)
		}
		return models.Listing{}, Internal(err)
	}
	return l, nil
}

// CanUpdate fails unless the listing exists and belongs to requesterID.
func (s *ListingService) CanUpdate(ctx context.Context, id, requesterID string) error {
	l, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return requireOwner(requesterID, l.UserRef, msgUpdateOwnListings)
}

// Update overwrites the listing with in. Images dropped from the set are purged.
func (s *ListingService) Update(ctx context.Context, id, requesterID string, in ListingInput) (models.Listing, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return models.Listing{}, err
	}
	if err := requireOwner(requesterID, l.UserRef, msgUpdateOwnListings); err != nil {
		return models.Listing{}, err
	}
	if err := s.checkInput(requesterID, in); err != nil {
		return models.Listing{}, err
	}

	previous := l.ImageURLs
	in.apply(&l)
	if err := s.listings.UpdateListing(ctx, &l); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Listing{}, NotFound(msgListingNotFound)
		}
		return models.Listing{}, Internal(err)
	}

	var dropped []string
	for _, url := range ownedBy(s.keys, l.UserRef, previous) {
		if !slices.Contains(l.ImageURLs, url) {
			dropped = append(dropped, url)
		}
	}
	if len(dropped) > 0 {
		s.purger.Purge(ctx, purge.ReasonListingUpdated, dropped)
	}
	s.cache.Invalidate(ctx)
	return l, nil
}

// Delete removes the listing and returns the requester's remaining listings.
func (s *ListingService) Delete(ctx context.Context, id, requesterID string) ([]models.Listing, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(requesterID, l.UserRef, "You can only delete your own listings!"); err != nil {
		return nil, err
	}
	if err := s.listings.DeleteListing(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NotFound(msgListingNotFound)
		}
		return nil, Internal(err)
	}
	if own := ownedBy(s.keys, l.UserRef, l.ImageURLs); len(own) > 0 {
		s.purger.Purge(ctx, purge.ReasonListingDeleted, own)
	}
	s.cache.Invalidate(ctx)

	remaining, err := s.listings.ListByOwner(ctx, requesterID)
	if err != nil {
		return nil, Internal(err)
	}
	return remaining, nil
}

type SearchResult struct {
	Listings               []models.Listing `json:"listings"`
	NumOfRemainingListings int64            `json:"numOfRemainingListings"`
}

func (s *ListingService) Search(ctx context.Context, f repositories.SearchFilter) (SearchResult, error) {
	page, total, err := s.listings.SearchListings(ctx, f)
	if err != nil {
		return SearchResult{}, Internal(err)
	}
	if page == nil {
		page = []models.Listing{}
	}
	return SearchResult{
		Listings:               page,
		NumOfRemainingListings: repositories.Remaining(total, len(page), f.StartIndex),
	}, nil
}
