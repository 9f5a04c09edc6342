package api

import (
	"context"
	"fmt"

	"github.com/hearthlabs/hearthview/pkg/models"
)

// reviewsNamespace scopes cached review listings for invalidation.
const reviewsNamespace = "reviews"

// ListReviews fetches the reviews for a listing.
func (c *Client) ListReviews(ctx context.Context, propertyID string) ([]models.Review, error) {
	var reviews []models.Review
	if err := c.get(ctx, "/properties/"+propertyID+"/reviews", nil, &reviews); err != nil {
		return nil, fmt.Errorf("list reviews for %q: %w", propertyID, err)
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, nil
}

// SubmitReview posts a review and invalidates cached review listings.
// Server-side validation errors (422) are returned for form display,
// never retried.
func (c *Client) SubmitReview(ctx context.Context, propertyID string, draft models.ReviewDraft) (*models.Review, error) {
	var review models.Review
	if err := c.post(ctx, "/properties/"+propertyID+"/reviews", draft, &review); err != nil {
		return nil, fmt.Errorf("submit review for %q: %w", propertyID, err)
	}
	c.notifyChanged(ctx, reviewsNamespace)
	return &review, nil
}
