// Package models defines the wire types shared between the Hearth API
// client and its consumers. Fields mirror the documented REST contract.
package models

import "time"

// PropertyType enumerates the listing categories the platform supports.
type PropertyType string

const (
	TypeHouse     PropertyType = "house"
	TypeApartment PropertyType = "apartment"
	TypeCondo     PropertyType = "condo"
	TypeTownhouse PropertyType = "townhouse"
	TypeLand      PropertyType = "land"
)

// ValidPropertyType reports whether s names a known property type.
func ValidPropertyType(s string) bool {
	switch PropertyType(s) {
	case TypeHouse, TypeApartment, TypeCondo, TypeTownhouse, TypeLand:
		return true
	}
	return false
}

// Property is a single real-estate listing as returned by the API.
// Price is in cents to avoid floating-point drift.
type Property struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Location    string       `json:"location"`
	Type        PropertyType `json:"type"`
	Price       int64        `json:"price"`
	Bedrooms    int          `json:"bedrooms"`
	Bathrooms   int          `json:"bathrooms"`
	AreaSqFt    int          `json:"area_sqft,omitempty"`
	Verified    bool         `json:"verified"`
	SellerID    string       `json:"seller_id"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at,omitempty"`
}

// PageInfo is the pagination summary attached to every list response.
type PageInfo struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// PropertyPage is one page of listing results.
type PropertyPage struct {
	Properties []Property `json:"properties"`
	PageInfo   PageInfo   `json:"pagination"`
}

// PropertyDraft carries the writable fields for create/update calls.
type PropertyDraft struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Location    string       `json:"location"`
	Type        PropertyType `json:"type"`
	Price       int64        `json:"price"`
	Bedrooms    int          `json:"bedrooms"`
	Bathrooms   int          `json:"bathrooms"`
	AreaSqFt    int          `json:"area_sqft,omitempty"`
}

// SellerStats summarizes a seller's dashboard figures.
type SellerStats struct {
	ActiveListings int     `json:"active_listings"`
	TotalViews     int     `json:"total_views"`
	Interests      int     `json:"interests"`
	AverageRating  float64 `json:"average_rating"`
}
