package repositories

import (
	"strings"

	"github.com/rohits-web03/estately/internal/models"
)

type SortField string

const (
	SortCreatedAt    SortField = "createdAt"
	SortRegularPrice SortField = "regularPrice"
)

const (
	DefaultSearchLimit = 9
	DefaultMaxPrice    = 100000000
)

// SearchFilter is the normalized listing search. Matches is the reference
// predicate; the SQL and bson translations must agree with it.
type SearchFilter struct {
	SearchTerm string
	Types      []models.ListingType
	// Boolean amenities only narrow the result when true.
	Parking    bool
	Furnished  bool
	Offer      bool
	MinPrice   int64
	MaxPrice   int64
	Sort       SortField
	Desc       bool
	Limit      int
	StartIndex int
}

func DefaultSearchFilter() SearchFilter {
	return SearchFilter{
		Types:    []models.ListingType{models.ListingSale, models.ListingRent},
		MaxPrice: DefaultMaxPrice,
		Sort:     SortCreatedAt,
		Desc:     true,
		Limit:    DefaultSearchLimit,
	}
}

func (f SearchFilter) Matches(l models.Listing) bool {
	if f.SearchTerm != "" && !strings.Contains(strings.ToLower(l.Title), strings.ToLower(f.SearchTerm)) {
		return false
	}
	typeOK := false
	for _, t := range f.Types {
		if l.Type == t {
			typeOK = true
			break
		}
	}
	if !typeOK {
		return false
	}
	if (f.Parking && !l.Parking) || (f.Furnished && !l.Furnished) || (f.Offer && !l.Offer) {
		return false
	}
	price := l.EffectivePrice()
	return price >= f.MinPrice && price <= f.MaxPrice
}

// Less orders a before b under the filter's sort, breaking ties by id.
func (f SearchFilter) Less(a, b models.Listing) bool {
	var cmp int
	switch f.Sort {
	case SortRegularPrice:
		switch {
		case a.RegularPrice < b.RegularPrice:
			cmp = -1
		case a.RegularPrice > b.RegularPrice:
			cmp = 1
		}
	default:
		cmp = a.CreatedAt.Compare(b.CreatedAt)
	}
	if cmp == 0 {
		return a.ID < b.ID
	}
	if f.Desc {
		return cmp > 0
	}
	return cmp < 0
}

// Remaining is the "load more" count: matches not yet shown after this page.
func Remaining(total int64, pageLen, startIndex int) int64 {
	r := total - int64(pageLen) - int64(startIndex)
	if r < 0 {
		return 0
	}
	return r
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
