package services

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/rohits-web03/estately/internal/models"
	"github.com/rohits-web03/estately/internal/repositories"
)

const MaxSearchLimit = 100

// SearchFilterFromQuery maps already-validated query parameters onto a
// SearchFilter, falling back to defaults for anything absent or malformed.
func SearchFilterFromQuery(q url.Values) repositories.SearchFilter {
	f := repositories.DefaultSearchFilter()
	get := func(k string) string { return strings.TrimSpace(q.Get(k)) }

	f.SearchTerm = get("searchTerm")
	switch get("type") {
	case string(models.ListingSale):
		f.Types = []models.ListingType{models.ListingSale}
	case string(models.ListingRent):
		f.Types = []models.ListingType{models.ListingRent}
	}
	f.Parking = get("parking") == "true"
	f.Furnished = get("furnished") == "true"
	f.Offer = get("offer") == "true"

	if n, err := strconv.ParseInt(get("minPrice"), 10, 64); err == nil && n >= 0 {
		f.MinPrice = n
	}
	if n, err := strconv.ParseInt(get("maxPrice"), 10, 64); err == nil && n >= 0 {
		f.MaxPrice = n
	}
	if get("sort") == string(repositories.SortRegularPrice) {
		f.Sort = repositories.SortRegularPrice
	}
	f.Desc = get("order") != "asc"
	if n, err := strconv.Atoi(get("limit")); err == nil && n >= 1 && n <= MaxSearchLimit {
		f.Limit = n
	}
	if n, err := strconv.Atoi(get("startIndex")); err == nil && n >= 0 {
		f.StartIndex = n
	}
	return f
}
