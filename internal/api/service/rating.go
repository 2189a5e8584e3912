package service

import (
	"context"

	"titlehub/internal/api/repository"
	"titlehub/internal/cache"
)

// titleRating returns the derived rating for a title: the mean of all live
// review scores rounded half-up, or nil when the title has no reviews. The
// cache, when present, is consulted first and repopulated on miss; every
// review write invalidates it, so the value never drifts from the scores.
func titleRating(ctx context.Context, reviews repository.ReviewRepository, ratings *cache.RatingCache, titleID int64) (*int, error) {
	if cached, ok := ratings.Get(ctx, titleID); ok {
		return cached, nil
	}

	avg, count, err := reviews.AverageScore(ctx, titleID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		ratings.Set(ctx, titleID, nil)
		return nil, nil
	}

	// round half up; scores are in [1,10] so the mean is always positive
	rating := int(avg + 0.5)
	ratings.Set(ctx, titleID, &rating)
	return &rating, nil
}
