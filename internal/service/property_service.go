package service

import (
	"context"
	"errors"
	"time"

	"holidayrent/internal/config"
	"holidayrent/internal/domain"
	"holidayrent/internal/models"

	"github.com/karlseguin/ccache/v3"
	"github.com/rs/zerolog"
)

// PropertyStore is the storage the property catalogue needs.
type PropertyStore interface {
	domain.PropertyRepository
	BookedPropertyIDs(ctx context.Context, checkIn, checkOut time.Time) ([]string, error)
}

// SearchQuery is a catalogue search. When both dates are set, properties with
// a pending or confirmed booking overlapping the stay are left out.
type SearchQuery struct {
	Filter   models.PropertyFilter
	CheckIn  *time.Time
	CheckOut *time.Time
}

type SearchResult struct {
	Properties []*models.Property
	TotalCount int
}

// PropertyService manages listings. Single-property reads go through a
// local cache that every write invalidates.
type PropertyService struct {
	store    PropertyStore
	cache    *ccache.Cache[*models.Property]
	cacheTTL time.Duration
	validate *Validator
	logger   *zerolog.Logger
}

func NewPropertyService(store PropertyStore, cfg config.CacheConfig, logger *zerolog.Logger) *PropertyService {
	maxSize := cfg.PropertyMaxSize
	if maxSize <= 0 {
		maxSize = 1000
	}
	ttl := cfg.PropertyTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PropertyService{
		store:    store,
		cache:    ccache.New(ccache.Configure[*models.Property]().MaxSize(maxSize)),
		cacheTTL: ttl,
		validate: NewValidator(),
		logger:   logger,
	}
}

// Close stops the cache's background worker.
func (s *PropertyService) Close() {
	s.cache.Stop()
}

func (s *PropertyService) ListProperties(ctx context.Context, filter models.PropertyFilter) ([]*models.Property, error) {
	filter.Normalize()
	return s.store.ListProperties(ctx, filter)
}

func (s *PropertyService) SearchProperties(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	filter := q.Filter
	filter.Normalize()

	if q.CheckIn != nil && q.CheckOut != nil {
		if models.Nights(*q.CheckIn, *q.CheckOut) <= 0 {
			return nil, domain.Errorf(domain.ErrInvalidRange, "check-out must be after check-in")
		}
		booked, err := s.store.BookedPropertyIDs(ctx, models.Day(*q.CheckIn), models.Day(*q.CheckOut))
		if err != nil {
			return nil, err
		}
		filter.ExcludeIDs = append(filter.ExcludeIDs, booked...)
	}

	total, err := s.store.CountProperties(ctx, filter)
	if err != nil {
		return nil, err
	}
	props, err := s.store.ListProperties(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &SearchResult{Properties: props, TotalCount: total}, nil
}

// GetProperty returns an active property. Inactive listings are NotFound.
func (s *PropertyService) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	item, err := s.cache.Fetch(id, s.cacheTTL, func() (*models.Property, error) {
		return s.store.GetProperty(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	p := item.Value()
	if !p.IsActive {
		return nil, domain.Errorf(domain.ErrNotFound, "property not found")
	}
	cp := *p
	return &cp, nil
}

func (s *PropertyService) CreateProperty(ctx context.Context, caller models.Identity, in models.NewProperty) (*models.Property, error) {
	if !caller.Role.CanListProperties() {
		return nil, domain.Errorf(domain.ErrForbidden, "only property owners can create properties")
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	p := &models.Property{
		OwnerID:       caller.UserID,
		Name:          in.Name,
		Description:   in.Description,
		PropertyType:  in.PropertyType,
		Location:      in.Location,
		Bedrooms:      in.Bedrooms,
		Bathrooms:     in.Bathrooms,
		MaxGuests:     in.MaxGuests,
		PricePerNight: in.PricePerNight,
		Amenities:     in.Amenities,
		Images:        in.Images,
		IsActive:      true,
	}
	if err := s.store.CreateProperty(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info().Str("property_id", p.ID).Str("owner_id", p.OwnerID).Msg("property created")
	return p, nil
}

// UpdateProperty applies patch. Only the owner of record or an admin may edit.
func (s *PropertyService) UpdateProperty(ctx context.Context, caller models.Identity, id string, patch models.PropertyPatch) (*models.Property, error) {
	current, err := s.authorizeEdit(ctx, caller, id, "you can only update your own properties")
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return current, nil
	}

	// validate the merged listing so partial updates obey the create rules
	merged := *current
	patch.Apply(&merged)
	if err := s.validate.Struct(models.NewProperty{
		Name:          merged.Name,
		Description:   merged.Description,
		PropertyType:  merged.PropertyType,
		Location:      merged.Location,
		Bedrooms:      merged.Bedrooms,
		Bathrooms:     merged.Bathrooms,
		MaxGuests:     merged.MaxGuests,
		PricePerNight: merged.PricePerNight,
	}); err != nil {
		return nil, err
	}

	if err := s.store.UpdateProperty(ctx, id, patch); err != nil {
		return nil, err
	}
	s.invalidate(id)
	return s.store.GetProperty(ctx, id)
}

// DeleteProperty deactivates the listing. Its bookings and reviews remain.
func (s *PropertyService) DeleteProperty(ctx context.Context, caller models.Identity, id string) error {
	if _, err := s.authorizeEdit(ctx, caller, id, "you can only delete your own properties"); err != nil {
		return err
	}
	if err := s.store.DeactivateProperty(ctx, id); err != nil {
		return err
	}
	s.invalidate(id)
	s.logger.Info().Str("property_id", id).Str("by", caller.UserID).Msg("property deactivated")
	return nil
}

// SetPropertyRating stores a rating summary and drops the cached copy.
func (s *PropertyService) SetPropertyRating(ctx context.Context, id string, rating models.RatingAggregate) error {
	if err := s.store.SetPropertyRating(ctx, id, rating); err != nil {
		return err
	}
	s.invalidate(id)
	return nil
}

func (s *PropertyService) authorizeEdit(ctx context.Context, caller models.Identity, id, denied string) (*models.Property, error) {
	p, err := s.store.GetProperty(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Errorf(domain.ErrNotFound, "property not found")
		}
		return nil, err
	}
	if caller.Role != models.RoleAdmin && p.OwnerID != caller.UserID {
		return nil, domain.Errorf(domain.ErrForbidden, "%s", denied)
	}
	return p, nil
}

func (s *PropertyService) invalidate(id string) {
	s.cache.Delete(id)
}
