package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hearthlabs/hearthview/internal/query"
	"github.com/hearthlabs/hearthview/pkg/models"
)

// ListProperties fetches one page of listings for a canonical filter.
// Query parameters map 1:1 to the filter's cache key dimensions.
func (c *Client) ListProperties(ctx context.Context, f query.Filter) (*models.PropertyPage, error) {
	var page models.PropertyPage
	if err := c.get(ctx, "/properties", f.Query(), &page); err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	if page.Properties == nil {
		page.Properties = []models.Property{}
	}
	return &page, nil
}

// GetProperty fetches a single listing by ID.
func (c *Client) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	var p models.Property
	if err := c.get(ctx, "/properties/"+id, nil, &p); err != nil {
		return nil, fmt.Errorf("get property %q: %w", id, err)
	}
	return &p, nil
}

// CreateProperty publishes a new listing and invalidates cached
// property queries.
func (c *Client) CreateProperty(ctx context.Context, draft models.PropertyDraft) (*models.Property, error) {
	var p models.Property
	if err := c.post(ctx, "/properties", draft, &p); err != nil {
		return nil, fmt.Errorf("create property: %w", err)
	}
	c.notifyChanged(ctx, query.Namespace)
	return &p, nil
}

// UpdateProperty edits an existing listing and invalidates cached
// property queries.
func (c *Client) UpdateProperty(ctx context.Context, id string, draft models.PropertyDraft) (*models.Property, error) {
	var p models.Property
	if err := c.put(ctx, "/properties/"+id, draft, &p); err != nil {
		return nil, fmt.Errorf("update property %q: %w", id, err)
	}
	c.notifyChanged(ctx, query.Namespace)
	return &p, nil
}

// DeleteProperty removes a listing and invalidates cached property
// queries.
func (c *Client) DeleteProperty(ctx context.Context, id string) error {
	if err := c.delete(ctx, "/properties/"+id); err != nil {
		return fmt.Errorf("delete property %q: %w", id, err)
	}
	c.notifyChanged(ctx, query.Namespace)
	return nil
}

// SellerStats fetches the dashboard summary for the logged-in seller.
func (c *Client) SellerStats(ctx context.Context) (*models.SellerStats, error) {
	var stats models.SellerStats
	if err := c.get(ctx, "/sellers/me/stats", nil, &stats); err != nil {
		return nil, fmt.Errorf("seller stats: %w", err)
	}
	return &stats, nil
}

// SubmitInterest sends an expression-of-interest form for a listing.
// Server-side validation errors (422) carry form detail for display.
func (c *Client) SubmitInterest(ctx context.Context, interest models.Interest) error {
	if err := c.post(ctx, "/properties/"+interest.PropertyID+"/interest", interest, nil); err != nil {
		return fmt.Errorf("submit interest for %q: %w", interest.PropertyID, err)
	}
	return nil
}

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health checks the backend and returns its reported API version.
func (c *Client) Health(ctx context.Context) (string, error) {
	var h healthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &h, reqOpts{quiet401: true}); err != nil {
		return "", fmt.Errorf("health: %w", err)
	}
	return h.Version, nil
}
