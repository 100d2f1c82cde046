package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"holidayrent/internal/domain"
	"holidayrent/internal/models"

	"github.com/google/uuid"
)

const reviewColumns = `id, property_id, user_id, booking_id, rating, title, content, created_at, updated_at`

func scanReview(row scanner) (*models.Review, error) {
	var (
		r         models.Review
		bookingID sql.NullString
	)
	if err := row.Scan(&r.ID, &r.PropertyID, &r.UserID, &bookingID, &r.Rating, &r.Title, &r.Content,
		&r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.BookingID = stringPtr(bookingID)
	return &r, nil
}

func (db *DB) CreateReview(ctx context.Context, r *models.Review) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := db.now()
	_, err := db.ExecContext(ctx,
		`INSERT INTO reviews (`+reviewColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.PropertyID, r.UserID, nullString(r.BookingID), r.Rating, r.Title, r.Content, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Errorf(domain.ErrConflict, "you have already reviewed this property")
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

func (db *DB) GetReview(ctx context.Context, id string) (*models.Review, error) {
	r, err := scanReview(db.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Errorf(domain.ErrNotFound, "review not found")
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return r, nil
}

func (db *DB) FindUserReview(ctx context.Context, userID, propertyID string) (*models.Review, error) {
	r, err := scanReview(db.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE user_id = ? AND property_id = ?`, userID, propertyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find review: %w", err)
	}
	return r, nil
}

func (db *DB) ListPropertyReviews(ctx context.Context, propertyID string, skip, limit int) ([]*models.Review, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE property_id = ?
         ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, propertyID, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var out []*models.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *DB) UpdateReview(ctx context.Context, id string, patch models.ReviewPatch) error {
	var set setClause
	if v, ok := patch.Rating.Get(); ok {
		set.add("rating", v)
	}
	if v, ok := patch.Title.Get(); ok {
		set.add("title", v)
	}
	if v, ok := patch.Content.Get(); ok {
		set.add("content", v)
	}
	set.add("updated_at", db.now())
	return db.execUpdate(ctx, "reviews", id, set, "review")
}

func (db *DB) DeleteReview(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Errorf(domain.ErrNotFound, "review not found")
	}
	return nil
}

func (db *DB) AggregateRatings(ctx context.Context, propertyID string) (float64, int, error) {
	var (
		avg   sql.NullFloat64
		count int
	)
	err := db.QueryRowContext(ctx,
		`SELECT AVG(rating), COUNT(*) FROM reviews WHERE property_id = ?`, propertyID).Scan(&avg, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	return avg.Float64, count, nil
}
