package query_test

import (
	"testing"

	"github.com/hearthlabs/hearthview/internal/query"
	"github.com/hearthlabs/hearthview/pkg/models"
)

func TestNormalizeDefaults(t *testing.T) {
	f := query.Normalize(query.Input{})

	if f.Sort != query.DefaultSort {
		t.Errorf("Sort = %q, want %q", f.Sort, query.DefaultSort)
	}
	if f.Page != 1 {
		t.Errorf("Page = %d, want 1", f.Page)
	}
	if f.PageSize != query.DefaultPageSize {
		t.Errorf("PageSize = %d, want %d", f.PageSize, query.DefaultPageSize)
	}
	if f.Location != "" || f.Type != "" || f.MinPrice != 0 || f.MaxPrice != 0 {
		t.Errorf("empty input produced non-absent dimensions: %+v", f)
	}
}

func TestNormalizeEquivalentInputs(t *testing.T) {
	// A zero min price and an unset min price are the same UI state and
	// must not fragment the cache.
	unset := query.Normalize(query.Input{Location: "Austin"})
	zeroed := query.Normalize(query.Input{Location: "Austin", MinPrice: "0"})

	if unset != zeroed {
		t.Errorf("minPrice unset = %+v, minPrice 0 = %+v, want equal", unset, zeroed)
	}
	if unset.Key() != zeroed.Key() {
		t.Errorf("keys differ: %q vs %q", unset.Key(), zeroed.Key())
	}
}

func TestNormalizeMaxPriceCeiling(t *testing.T) {
	atCeiling := query.Normalize(query.Input{MaxPrice: "100000000"})
	unset := query.Normalize(query.Input{})

	if atCeiling != unset {
		t.Errorf("max price at ceiling = %+v, want same as unset %+v", atCeiling, unset)
	}
}

func TestNormalizeMalformedNumerics(t *testing.T) {
	tests := []struct {
		name string
		in   query.Input
	}{
		{"non-numeric price", query.Input{MinPrice: "abc"}},
		{"partial typing", query.Input{MaxPrice: "12x"}},
		{"negative bedrooms", query.Input{Bedrooms: "-2"}},
		{"whitespace bathrooms", query.Input{Bathrooms: "  "}},
	}
	want := query.Normalize(query.Input{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := query.Normalize(tt.in); got != want {
				t.Errorf("Normalize(%+v) = %+v, want coerced to absent %+v", tt.in, got, want)
			}
		})
	}
}

func TestNormalizeTrimsText(t *testing.T) {
	f := query.Normalize(query.Input{Location: "  Portland  "})
	if f.Location != "Portland" {
		t.Errorf("Location = %q, want %q", f.Location, "Portland")
	}

	blank := query.Normalize(query.Input{Location: "   "})
	if blank.Location != "" {
		t.Errorf("whitespace location = %q, want absent", blank.Location)
	}
}

func TestNormalizeUnknownEnums(t *testing.T) {
	f := query.Normalize(query.Input{Type: "castle", Sort: "relevance"})

	if f.Type != "" {
		t.Errorf("unknown type = %q, want absent", f.Type)
	}
	if f.Sort != query.DefaultSort {
		t.Errorf("unknown sort = %q, want %q", f.Sort, query.DefaultSort)
	}
}

func TestNormalizePriceWithThousandsSeparators(t *testing.T) {
	f := query.Normalize(query.Input{MinPrice: "1,250,000"})
	if f.MinPrice != 1250000 {
		t.Errorf("MinPrice = %d, want 1250000", f.MinPrice)
	}
}

func TestNormalizePageSizeSnapping(t *testing.T) {
	if f := query.Normalize(query.Input{PageSize: 50}); f.PageSize != 50 {
		t.Errorf("PageSize = %d, want 50", f.PageSize)
	}
	if f := query.Normalize(query.Input{PageSize: 33}); f.PageSize != query.DefaultPageSize {
		t.Errorf("unsupported PageSize = %d, want default %d", f.PageSize, query.DefaultPageSize)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	f := query.Normalize(query.Input{
		Location:     "Denver",
		Type:         string(models.TypeCondo),
		MinPrice:     "25000000",
		Bedrooms:     "3",
		VerifiedOnly: true,
		Sort:         string(query.SortPriceAsc),
		Page:         4,
		PageSize:     10,
	})

	if again := query.Normalize(f.Input()); again != f {
		t.Errorf("Normalize(Normalize(f)) = %+v, want %+v", again, f)
	}
}

func TestMergeResetsPageOnFilterChange(t *testing.T) {
	prev := query.Normalize(query.Input{Location: "Denver", Page: 4})

	in := prev.Input()
	in.Bedrooms = "2"
	next := query.Merge(prev, in)

	if next.Page != 1 {
		t.Errorf("Page = %d after dimension change, want 1", next.Page)
	}
}

func TestMergeKeepsPageOnPageOnlyChange(t *testing.T) {
	prev := query.Normalize(query.Input{Location: "Denver", Page: 2})

	in := prev.Input()
	in.Page = 3
	next := query.Merge(prev, in)

	if next.Page != 3 {
		t.Errorf("Page = %d, want 3", next.Page)
	}
}

func TestMergePageSizeChangeResetsPage(t *testing.T) {
	prev := query.Normalize(query.Input{Page: 5, PageSize: 20})

	in := prev.Input()
	in.PageSize = 50
	next := query.Merge(prev, in)

	if next.Page != 1 {
		t.Errorf("Page = %d after page size change, want 1", next.Page)
	}
	if next.PageSize != 50 {
		t.Errorf("PageSize = %d, want 50", next.PageSize)
	}
}
