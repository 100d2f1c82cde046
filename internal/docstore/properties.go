package docstore

import (
	"context"
	"fmt"

	"holidayrent/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) CreateProperty(ctx context.Context, p *models.Property) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Location.Country == "" {
		p.Location.Country = models.DefaultCountry
	}
	p.Amenities = nonNil(p.Amenities)
	p.Images = nonNil(p.Images)
	now := s.now()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.properties.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}
	return nil
}

func (s *Store) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	var p models.Property
	if err := findOne(ctx, s.properties, bson.M{"id": id}, &p, "property"); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProperties returns active properties matching filter, newest first.
func (s *Store) ListProperties(ctx context.Context, filter models.PropertyFilter) ([]*models.Property, error) {
	filter.Normalize()
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "id", Value: 1}}).
		SetSkip(int64(filter.Skip)).
		SetLimit(int64(filter.Limit))

	out, err := findAll[models.Property](ctx, s.properties, propertyFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return out, nil
}

func (s *Store) CountProperties(ctx context.Context, filter models.PropertyFilter) (int, error) {
	n, err := s.properties.CountDocuments(ctx, propertyFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count properties: %w", err)
	}
	return int(n), nil
}

func (s *Store) UpdateProperty(ctx context.Context, id string, patch models.PropertyPatch) error {
	return s.updateByID(ctx, s.properties, id, propertySet(patch), "property")
}

func (s *Store) DeactivateProperty(ctx context.Context, id string) error {
	return s.updateByID(ctx, s.properties, id, bson.M{"is_active": false}, "property")
}

func (s *Store) SetPropertyRating(ctx context.Context, id string, rating models.RatingAggregate) error {
	return s.updateByID(ctx, s.properties, id, bson.M{
		"average_rating": rating.Average,
		"review_count":   rating.Count,
	}, "property")
}
