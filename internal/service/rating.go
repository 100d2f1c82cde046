package service

import (
	"context"
	"fmt"
	"math"

	"holidayrent/internal/domain"
	"holidayrent/internal/metrics"
	"holidayrent/internal/models"

	"github.com/rs/zerolog"
)

// RatingSink stores a recomputed rating summary.
type RatingSink interface {
	SetPropertyRating(ctx context.Context, id string, rating models.RatingAggregate) error
}

// RatingAggregator keeps a property's average_rating and review_count in
// step with its reviews. Concurrent recomputes are last-writer-wins.
type RatingAggregator struct {
	reviews domain.ReviewRepository
	sink    RatingSink
	logger  *zerolog.Logger
}

func NewRatingAggregator(reviews domain.ReviewRepository, sink RatingSink, logger *zerolog.Logger) *RatingAggregator {
	return &RatingAggregator{reviews: reviews, sink: sink, logger: logger}
}

// Recompute derives the summary from the stored reviews and writes it back.
// The average is rounded half to even at one decimal and is nil when there
// are no reviews.
func (a *RatingAggregator) Recompute(ctx context.Context, propertyID string) (models.RatingAggregate, error) {
	avg, count, err := a.reviews.AggregateRatings(ctx, propertyID)
	if err != nil {
		metrics.IncRatingRecompute("error")
		return models.RatingAggregate{}, fmt.Errorf("failed to aggregate ratings: %w", err)
	}

	agg := models.RatingAggregate{Count: count}
	if count > 0 {
		rounded := math.RoundToEven(avg*10) / 10
		agg.Average = &rounded
	}

	if err := a.sink.SetPropertyRating(ctx, propertyID, agg); err != nil {
		metrics.IncRatingRecompute("error")
		return models.RatingAggregate{}, fmt.Errorf("failed to store property rating: %w", err)
	}

	metrics.IncRatingRecompute("ok")
	a.logger.Debug().Str("property_id", propertyID).Int("review_count", count).Msg("property rating recomputed")
	return agg, nil
}
