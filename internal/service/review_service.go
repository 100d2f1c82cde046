package service

import (
	"context"
	"errors"

	"holidayrent/internal/domain"
	"holidayrent/internal/events"
	"holidayrent/internal/models"

	"github.com/rs/zerolog"
)

// ReviewStore is the storage reviews need.
type ReviewStore interface {
	domain.ReviewRepository
	GetProperty(ctx context.Context, id string) (*models.Property, error)
	FindCompletedBooking(ctx context.Context, userID, propertyID string) (*models.Booking, error)
}

// ReviewService manages guest reviews. Every mutation recomputes the
// property's rating before returning; a failed recompute fails the call.
type ReviewService struct {
	store    ReviewStore
	ratings  *RatingAggregator
	validate *Validator
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewReviewService(store ReviewStore, ratings *RatingAggregator, eventBus domain.EventPublisher, logger *zerolog.Logger) *ReviewService {
	return &ReviewService{
		store:    store,
		ratings:  ratings,
		validate: NewValidator(),
		eventBus: eventBus,
		logger:   logger,
	}
}

// CreateReview records caller's review of a property they stayed at.
func (s *ReviewService) CreateReview(ctx context.Context, caller models.Identity, propertyID string, in models.NewReview) (*models.Review, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	property, err := s.store.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !property.IsActive {
		return nil, domain.Errorf(domain.ErrNotFound, "property not found")
	}

	stay, err := s.store.FindCompletedBooking(ctx, caller.UserID, propertyID)
	if err != nil {
		return nil, err
	}
	if stay == nil {
		return nil, domain.Errorf(domain.ErrInvalidState, "you can only review properties you have booked and stayed at")
	}

	existing, err := s.store.FindUserReview(ctx, caller.UserID, propertyID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.Errorf(domain.ErrConflict, "you have already reviewed this property")
	}

	review := &models.Review{
		PropertyID: propertyID,
		UserID:     caller.UserID,
		BookingID:  &stay.ID,
		Rating:     in.Rating,
		Title:      in.Title,
		Content:    in.Content,
	}
	if err := s.store.CreateReview(ctx, review); err != nil {
		return nil, err
	}

	if _, err := s.ratings.Recompute(ctx, propertyID); err != nil {
		return nil, err
	}

	s.publishEvent(events.EventReviewCreated, review)
	return review, nil
}

func (s *ReviewService) GetReview(ctx context.Context, id string) (*models.Review, error) {
	return s.store.GetReview(ctx, id)
}

// ListPropertyReviews returns reviews newest first.
func (s *ReviewService) ListPropertyReviews(ctx context.Context, propertyID string, skip, limit int) ([]*models.Review, error) {
	page := models.PropertyFilter{Skip: skip, Limit: limit}
	page.Normalize()
	return s.store.ListPropertyReviews(ctx, propertyID, page.Skip, page.Limit)
}

// UpdateReview edits a review. Only its author may do so.
func (s *ReviewService) UpdateReview(ctx context.Context, caller models.Identity, id string, patch models.ReviewPatch) (*models.Review, error) {
	review, err := s.store.GetReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if review.UserID != caller.UserID {
		return nil, domain.Errorf(domain.ErrForbidden, "you can only update your own reviews")
	}
	if patch.Empty() {
		return review, nil
	}

	merged := models.NewReview{
		Rating:  patch.Rating.OrElse(review.Rating),
		Title:   patch.Title.OrElse(review.Title),
		Content: patch.Content.OrElse(review.Content),
	}
	if err := s.validate.Struct(merged); err != nil {
		return nil, err
	}

	if err := s.store.UpdateReview(ctx, id, patch); err != nil {
		return nil, err
	}
	if _, err := s.ratings.Recompute(ctx, review.PropertyID); err != nil {
		return nil, err
	}

	updated, err := s.store.GetReview(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishEvent(events.EventReviewUpdated, updated)
	return updated, nil
}

// DeleteReview removes a review. Its author or an admin may do so.
func (s *ReviewService) DeleteReview(ctx context.Context, caller models.Identity, id string) error {
	review, err := s.store.GetReview(ctx, id)
	if err != nil {
		return err
	}
	if review.UserID != caller.UserID && !caller.Role.CanDeleteAnyReview() {
		return domain.Errorf(domain.ErrForbidden, "you can only delete your own reviews")
	}

	if err := s.store.DeleteReview(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if _, err := s.ratings.Recompute(ctx, review.PropertyID); err != nil {
		return err
	}

	s.publishEvent(events.EventReviewDeleted, review)
	return nil
}

func (s *ReviewService) publishEvent(eventType string, r *models.Review) {
	if s.eventBus == nil {
		return
	}
	payload := events.ReviewEventPayload{
		ReviewID:   r.ID,
		PropertyID: r.PropertyID,
		UserID:     r.UserID,
		Rating:     r.Rating,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("review_id", r.ID).Msg("publish event error")
	}
}
