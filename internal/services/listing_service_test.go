package services

import (
	"context"
	"net/url"
	"slices"
	"testing"

	"github.com/rohits-web03/estately/internal/models"
	"github.com/rohits-web03/estately/internal/repositories"
)

func validInput() ListingInput { return ownedInput("owner") }

// ownedInput is a valid listing whose images live under owner's prefix.
func ownedInput(owner string) ListingInput {
	return ListingInput{
		Title:        "Bright two bedroom flat downtown",
		Description:  "A quiet flat with lots of light, close to shops, parks and public transport.",
		Address:      "12 Harbour Street, Springfield",
		Type:         models.ListingRent,
		Parking:      true,
		Bedrooms:     2,
		Bathrooms:    1,
		RegularPrice: 1500,
		ImageURLs:    []string{testImage(owner, "a.jpg"), testImage(owner, "b.jpg")},
	}
}

func testImage(owner, name string) string {
	return testBase + "/listings/" + owner + "/" + name
}

func newListingSvc() (*ListingService, *repositories.MemoryStore, *recordingPurger, *countingInvalidator) {
	store := repositories.NewMemoryStore()
	purger := newRecordingPurger()
	inv := &countingInvalidator{}
	return NewListingService(store, newFakeStorage(), purger, inv), store, purger, inv
}

func TestListingRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _, _, inv := newListingSvc()
	in := validInput()

	created, err := svc.Create(ctx, "owner", in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != in.Title || got.RegularPrice != in.RegularPrice || got.UserRef != "owner" ||
		!slices.Equal(got.ImageURLs, in.ImageURLs) || got.DiscountPrice != nil {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if inv.n != 1 {
		t.Fatalf("cache invalidations = %d", inv.n)
	}
}

func TestListingInvariants(t *testing.T) {
	d := int64(2000)
	tests := []struct {
		name   string
		mutate func(*ListingInput)
	}{
		{"offer without discount", func(in *ListingInput) { in.Offer = true }},
		{"discount not below regular", func(in *ListingInput) { in.Offer = true; in.DiscountPrice = &d }},
		{"discount without offer", func(in *ListingInput) { small := int64(10); in.DiscountPrice = &small }},
		{"no images", func(in *ListingInput) { in.ImageURLs = nil }},
		{"seven images", func(in *ListingInput) { in.ImageURLs = make([]string, 7) }},
		{"bad type", func(in *ListingInput) { in.Type = "lease" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _, _ := newListingSvc()
			in := validInput()
			tt.mutate(&in)
			if _, err := svc.Create(context.Background(), "owner", in); kindOf(err) != KindInvalid {
				t.Fatalf("err = %v, want invalid", err)
			}
		})
	}
}

func TestListingOwnership(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newListingSvc()
	l, _ := svc.Create(ctx, "owner", validInput())

	in := validInput()
	in.Title = "Someone else rewrote this title"
	if _, err := svc.Update(ctx, l.ID, "intruder", in); kindOf(err) != KindUnauthorized {
		t.Fatalf("update by non-owner: %v", err)
	}
	if _, err := svc.Delete(ctx, l.ID, "intruder"); kindOf(err) != KindUnauthorized {
		t.Fatalf("delete by non-owner: %v", err)
	}
	got, _ := svc.Get(ctx, l.ID)
	if got.Title != validInput().Title {
		t.Fatal("listing changed by non-owner")
	}
	if _, err := svc.Update(ctx, "missing", "owner", in); kindOf(err) != KindNotFound {
		t.Fatalf("missing listing: %v", err)
	}
}

func TestListingUpdatePurgesDroppedImages(t *testing.T) {
	ctx := context.Background()
	svc, _, purger, _ := newListingSvc()
	l, _ := svc.Create(ctx, "owner", validInput())

	in := validInput()
	in.ImageURLs = []string{testImage("owner", "a.jpg"), testImage("owner", "c.jpg")}
	updated, err := svc.Update(ctx, l.ID, "owner", in)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.UserRef != "owner" {
		t.Fatalf("userRef changed to %q", updated.UserRef)
	}
	if got := purger.get("listing_updated"); !slices.Equal(got, []string{testImage("owner", "b.jpg")}) {
		t.Fatalf("purged = %v", got)
	}
}

func TestListingDeleteReturnsRemaining(t *testing.T) {
	ctx := context.Background()
	svc, _, purger, _ := newListingSvc()
	a, _ := svc.Create(ctx, "owner", validInput())
	b, _ := svc.Create(ctx, "owner", validInput())

	remaining, err := svc.Delete(ctx, a.ID, "owner")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != b.ID {
		t.Fatalf("remaining = %+v", remaining)
	}
	if got := purger.get("listing_deleted"); len(got) != 2 {
		t.Fatalf("purged = %v", got)
	}
	if _, err := svc.Get(ctx, a.ID); kindOf(err) != KindNotFound {
		t.Fatalf("deleted listing still readable: %v", err)
	}
}

func TestSearchRemainingCount(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newListingSvc()
	for range 5 {
		if _, err := svc.Create(ctx, "owner", validInput()); err != nil {
			t.Fatal(err)
		}
	}
	sale := validInput()
	sale.Type = models.ListingSale
	_, _ = svc.Create(ctx, "owner", sale)

	res, err := svc.Search(ctx, SearchFilterFromQuery(url.Values{"type": {"rent"}, "limit": {"2"}, "startIndex": {"0"}}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Listings) != 2 || res.NumOfRemainingListings != 3 {
		t.Fatalf("got %d listings, %d remaining", len(res.Listings), res.NumOfRemainingListings)
	}

	all, _ := svc.Search(ctx, SearchFilterFromQuery(url.Values{"type": {"all"}, "limit": {"100"}}))
	if len(all.Listings) != 6 {
		t.Fatalf("type=all returned %d", len(all.Listings))
	}
}

func TestSearchFilterFromQuery(t *testing.T) {
	f := SearchFilterFromQuery(url.Values{
		"searchTerm": {" loft "}, "type": {"sale"}, "parking": {"true"}, "furnished": {"false"},
		"minPrice": {"10"}, "maxPrice": {"500"}, "sort": {"regularPrice"}, "order": {"asc"},
		"limit": {"3"}, "startIndex": {"6"},
	})
	if f.SearchTerm != "loft" || len(f.Types) != 1 || f.Types[0] != models.ListingSale ||
		!f.Parking || f.Furnished || f.MinPrice != 10 || f.MaxPrice != 500 ||
		f.Sort != repositories.SortRegularPrice || f.Desc || f.Limit != 3 || f.StartIndex != 6 {
		t.Fatalf("filter = %+v", f)
	}

	d := SearchFilterFromQuery(url.Values{})
	if len(d.Types) != 2 || d.MaxPrice != repositories.DefaultMaxPrice || !d.Desc ||
		d.Limit != repositories.DefaultSearchLimit || d.Sort != repositories.SortCreatedAt {
		t.Fatalf("defaults = %+v", d)
	}
}

func TestListingPurgesOnlyOwnerImages(t *testing.T) {
	ctx := context.Background()
	svc, store, purger, _ := newListingSvc()
	victim := testImage("victim", "1-house.jpg")
	external := "https://photos.example/house.jpg"

	in := validInput()
	in.ImageURLs = []string{testImage("attacker", "a.jpg"), victim}
	if _, err := svc.Create(ctx, "attacker", in); kindOf(err) != KindInvalid {
		t.Fatalf("create with another user's image: %v", err)
	}

	// Listings stored before the rule existed may still reference foreign objects.
	legacy := models.Listing{UserRef: "attacker", Type: models.ListingRent, RegularPrice: 100,
		ImageURLs: []string{testImage("attacker", "a.jpg"), victim, external}}
	if err := store.CreateListing(ctx, &legacy); err != nil {
		t.Fatal(err)
	}
	in = ownedInput("attacker")
	in.ImageURLs = []string{external}
	if _, err := svc.Update(ctx, legacy.ID, "attacker", in); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := purger.get("listing_updated"); !slices.Equal(got, []string{testImage("attacker", "a.jpg")}) {
		t.Fatalf("update purged %v", got)
	}

	legacy = models.Listing{UserRef: "attacker", Type: models.ListingRent, RegularPrice: 100,
		ImageURLs: []string{victim, external}}
	if err := store.CreateListing(ctx, &legacy); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Delete(ctx, legacy.ID, "attacker"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := purger.get("listing_deleted"); len(got) != 0 {
		t.Fatalf("delete purged %v", got)
	}
}
