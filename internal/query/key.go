package query

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// dimensions returns the filter's non-absent dimensions as wire-named
// string pairs. Sort, page, and limit are always present; everything
// else is omitted when absent so UI-equivalent states serialize
// identically.
func (f Filter) dimensions() map[string]string {
	dims := map[string]string{
		"sort":  string(f.Sort),
		"page":  strconv.Itoa(f.Page),
		"limit": strconv.Itoa(f.PageSize),
	}
	if f.Location != "" {
		dims["location"] = f.Location
	}
	if f.Type != "" {
		dims["type"] = string(f.Type)
	}
	if f.MinPrice > 0 {
		dims["min_price"] = strconv.FormatInt(f.MinPrice, 10)
	}
	if f.MaxPrice > 0 {
		dims["max_price"] = strconv.FormatInt(f.MaxPrice, 10)
	}
	if f.Bedrooms > 0 {
		dims["bedrooms"] = strconv.Itoa(f.Bedrooms)
	}
	if f.Bathrooms > 0 {
		dims["bathrooms"] = strconv.Itoa(f.Bathrooms)
	}
	if f.VerifiedOnly {
		dims["verified"] = "true"
	}
	return dims
}

// Key derives the deterministic cache key for the filter. Dimensions
// are sorted by name before serialization so structurally equal filters
// always produce the same key regardless of construction order. The
// namespace prefix makes coarse invalidation a prefix match.
func (f Filter) Key() string {
	dims := f.dimensions()
	names := make([]string, 0, len(dims))
	for name := range dims {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(Namespace)
	b.WriteByte('?')
	for i, name := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(dims[name]))
	}
	return b.String()
}

// Query returns the filter as wire query parameters for the listing
// endpoint. Parameter names map 1:1 to cache key dimensions.
func (f Filter) Query() url.Values {
	values := url.Values{}
	for name, v := range f.dimensions() {
		values.Set(name, v)
	}
	return values
}
