// Package query turns raw UI filter input into the canonical,
// cache-stable representation used to index cached listing pages and
// de-duplicate in-flight fetches. Two UI-equivalent filter states must
// always normalize to the same Filter value; anything else fragments
// the cache.
package query

import (
	"strconv"
	"strings"

	"github.com/hearthlabs/hearthview/pkg/models"
)

// Namespace is the cache namespace for property listing queries.
const Namespace = "properties"

// PriceCeiling is the UI price slider's upper bound, in cents. A max
// price at or above the ceiling means "no upper bound" and is
// normalized to absent so "0..ceiling" and "unset" share a cache key.
const PriceCeiling int64 = 100_000_000

// DefaultPageSize is used when the input names no (or an unsupported)
// page size.
const DefaultPageSize = 20

// pageSizes are the page sizes the UI offers.
var pageSizes = []int{10, 20, 50}

// SortKey enumerates the supported result orderings.
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
)

// DefaultSort is applied when the input names no (or an unknown) sort.
const DefaultSort = SortNewest

func validSort(s string) bool {
	switch SortKey(s) {
	case SortNewest, SortPriceAsc, SortPriceDesc:
		return true
	}
	return false
}

// Input is the loosely-typed filter state as UI controls produce it:
// free text, string numerics, raw enum selections. Malformed values are
// coerced to absent rather than rejected.
type Input struct {
	Location     string
	Type         string
	MinPrice     string
	MaxPrice     string
	Bedrooms     string
	Bathrooms    string
	VerifiedOnly bool
	Sort         string
	Page         int
	PageSize     int
}

// Filter is the canonical filter record. Zero values mean "absent" for
// every dimension except Sort, Page, and PageSize, which always carry a
// concrete value.
type Filter struct {
	Location     string
	Type         models.PropertyType
	MinPrice     int64
	MaxPrice     int64
	Bedrooms     int
	Bathrooms    int
	VerifiedOnly bool
	Sort         SortKey
	Page         int
	PageSize     int
}

// Normalize converts raw UI input into a canonical Filter. It is pure
// and idempotent: Normalize(f.Input()) == f for any canonical f.
func Normalize(in Input) Filter {
	f := Filter{
		Location:     strings.TrimSpace(in.Location),
		MinPrice:     parseAmount(in.MinPrice),
		MaxPrice:     parseAmount(in.MaxPrice),
		Bedrooms:     parseCount(in.Bedrooms),
		Bathrooms:    parseCount(in.Bathrooms),
		VerifiedOnly: in.VerifiedOnly,
		Sort:         DefaultSort,
		Page:         in.Page,
		PageSize:     DefaultPageSize,
	}

	if models.ValidPropertyType(strings.TrimSpace(in.Type)) {
		f.Type = models.PropertyType(strings.TrimSpace(in.Type))
	}
	if validSort(in.Sort) {
		f.Sort = SortKey(in.Sort)
	}

	// A max at or above the slider ceiling means "no upper bound".
	if f.MaxPrice >= PriceCeiling {
		f.MaxPrice = 0
	}

	if f.Page < 1 {
		f.Page = 1
	}
	for _, size := range pageSizes {
		if in.PageSize == size {
			f.PageSize = size
			break
		}
	}

	return f
}

// Merge normalizes in against a previous canonical filter. If any
// dimension other than the page number changed, the page resets to 1:
// the old pagination context no longer describes the new result set.
func Merge(prev Filter, in Input) Filter {
	next := Normalize(in)
	if !sameDimensions(prev, next) {
		next.Page = 1
	}
	return next
}

// Input converts a canonical Filter back into Input form. Useful for
// seeding UI controls and for idempotence checks.
func (f Filter) Input() Input {
	return Input{
		Location:     f.Location,
		Type:         string(f.Type),
		MinPrice:     formatAmount(f.MinPrice),
		MaxPrice:     formatAmount(f.MaxPrice),
		Bedrooms:     formatCount(f.Bedrooms),
		Bathrooms:    formatCount(f.Bathrooms),
		VerifiedOnly: f.VerifiedOnly,
		Sort:         string(f.Sort),
		Page:         f.Page,
		PageSize:     f.PageSize,
	}
}

// WithPage returns a copy of f on the given page. The page is not
// validated here; the pagination controller owns clamping.
func (f Filter) WithPage(page int) Filter {
	f.Page = page
	return f
}

// sameDimensions reports whether a and b agree on every dimension
// except the page number.
func sameDimensions(a, b Filter) bool {
	a.Page, b.Page = 1, 1
	return a == b
}

// parseAmount coerces a string price to cents. Malformed or negative
// input is treated as absent, keeping the UI resilient to partial
// typing.
func parseAmount(s string) int64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parseCount coerces a string minimum-room count. Malformed or negative
// input is treated as absent.
func parseCount(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func formatAmount(n int64) string {
	if n == 0 {
		return ""
	}
	return strconv.FormatInt(n, 10)
}

func formatCount(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
