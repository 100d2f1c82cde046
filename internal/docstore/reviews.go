package docstore

import (
	"context"
	"fmt"

	"holidayrent/internal/domain"
	"holidayrent/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) CreateReview(ctx context.Context, r *models.Review) error {
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("failed to create review: rating %d out of range", r.Rating)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := s.now()
	r.CreatedAt = now
	r.UpdatedAt = now

	if _, err := s.reviews.InsertOne(ctx, r); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.Errorf(domain.ErrConflict, "you have already reviewed this property")
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

func (s *Store) GetReview(ctx context.Context, id string) (*models.Review, error) {
	var r models.Review
	if err := findOne(ctx, s.reviews, bson.M{"id": id}, &r, "review"); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) FindUserReview(ctx context.Context, userID, propertyID string) (*models.Review, error) {
	out, err := findAll[models.Review](ctx, s.reviews,
		bson.M{"user_id": userID, "property_id": propertyID}, options.Find().SetLimit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to find review: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (s *Store) ListPropertyReviews(ctx context.Context, propertyID string, skip, limit int) ([]*models.Review, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "id", Value: 1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))
	out, err := findAll[models.Review](ctx, s.reviews, bson.M{"property_id": propertyID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateReview(ctx context.Context, id string, patch models.ReviewPatch) error {
	return s.updateByID(ctx, s.reviews, id, reviewSet(patch), "review")
}

func (s *Store) DeleteReview(ctx context.Context, id string) error {
	res, err := s.reviews.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.Errorf(domain.ErrNotFound, "review not found")
	}
	return nil
}

type ratingGroup struct {
	Avg   float64 `bson:"avg"`
	Count int     `bson:"count"`
}

func (s *Store) AggregateRatings(ctx context.Context, propertyID string) (float64, int, error) {
	cur, err := s.reviews.Aggregate(ctx, ratingPipeline(propertyID))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	var groups []ratingGroup
	if err := cur.All(ctx, &groups); err != nil {
		return 0, 0, fmt.Errorf("failed to decode rating aggregate: %w", err)
	}
	if len(groups) == 0 {
		return 0, 0, nil
	}
	return groups[0].Avg, groups[0].Count, nil
}
