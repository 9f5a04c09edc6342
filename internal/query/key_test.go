package query_test

import (
	"strings"
	"testing"

	"github.com/hearthlabs/hearthview/internal/query"
)

func TestKeyDeterministic(t *testing.T) {
	in := query.Input{
		Location:     "Austin",
		Type:         "house",
		MinPrice:     "10000000",
		MaxPrice:     "50000000",
		Bedrooms:     "3",
		VerifiedOnly: true,
		Sort:         "price_asc",
		Page:         2,
		PageSize:     20,
	}

	k1 := query.Normalize(in).Key()
	k2 := query.Normalize(in).Key()
	if k1 != k2 {
		t.Errorf("same input produced different keys: %q vs %q", k1, k2)
	}
}

func TestKeyEqualityMatchesStructuralEquality(t *testing.T) {
	base := query.Normalize(query.Input{Location: "Austin", Bedrooms: "2"})

	same := query.Normalize(query.Input{Location: " Austin ", Bedrooms: "2", MinPrice: "0"})
	if base != same {
		t.Fatalf("filters not structurally equal: %+v vs %+v", base, same)
	}
	if base.Key() != same.Key() {
		t.Errorf("equal filters produced different keys: %q vs %q", base.Key(), same.Key())
	}

	different := query.Normalize(query.Input{Location: "Austin", Bedrooms: "3"})
	if base.Key() == different.Key() {
		t.Errorf("different filters share key %q", base.Key())
	}
}

func TestKeyNamespacePrefix(t *testing.T) {
	k := query.Normalize(query.Input{}).Key()
	if !strings.HasPrefix(k, query.Namespace+"?") {
		t.Errorf("Key() = %q, want %q prefix", k, query.Namespace+"?")
	}
}

func TestKeyDimensionsSorted(t *testing.T) {
	k := query.Normalize(query.Input{
		Location: "Boise",
		Type:     "condo",
		Bedrooms: "2",
	}).Key()

	body := strings.TrimPrefix(k, query.Namespace+"?")
	parts := strings.Split(body, "&")
	for i := 1; i < len(parts); i++ {
		if parts[i-1] > parts[i] {
			t.Fatalf("dimensions not sorted in key %q", k)
		}
	}
}

func TestKeyOmitsAbsentDimensions(t *testing.T) {
	k := query.Normalize(query.Input{Location: "Reno"}).Key()

	for _, absent := range []string{"min_price", "max_price", "bedrooms", "bathrooms", "verified", "type"} {
		if strings.Contains(k, absent+"=") {
			t.Errorf("key %q contains absent dimension %q", k, absent)
		}
	}
}

func TestKeyEscapesValues(t *testing.T) {
	k := query.Normalize(query.Input{Location: "San Marcos"}).Key()
	if strings.Contains(k, " ") {
		t.Errorf("key %q contains unescaped space", k)
	}
}

func TestQueryParamsMatchDimensions(t *testing.T) {
	f := query.Normalize(query.Input{
		Location:     "Austin",
		MinPrice:     "10000000",
		VerifiedOnly: true,
		Page:         3,
	})
	values := f.Query()

	if got := values.Get("location"); got != "Austin" {
		t.Errorf("location = %q, want %q", got, "Austin")
	}
	if got := values.Get("min_price"); got != "10000000" {
		t.Errorf("min_price = %q, want %q", got, "10000000")
	}
	if got := values.Get("verified"); got != "true" {
		t.Errorf("verified = %q, want %q", got, "true")
	}
	if got := values.Get("page"); got != "3" {
		t.Errorf("page = %q, want %q", got, "3")
	}
	if got := values.Get("limit"); got != "20" {
		t.Errorf("limit = %q, want %q", got, "20")
	}
	if values.Has("max_price") {
		t.Error("absent max_price present in query params")
	}
}
