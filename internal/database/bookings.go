package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"holidayrent/internal/domain"
	"holidayrent/internal/models"

	"github.com/google/uuid"
)

const bookingColumns = `id, property_id, user_id, check_in, check_out, guests, special_requests,
    total_price, status, payment_status, created_at, updated_at`

const activeStatusFilter = `status IN ('pending', 'confirmed')`

func scanBooking(row scanner) (*models.Booking, error) {
	var (
		b                 models.Booking
		checkIn, checkOut string
		requests          sql.NullString
		status, payment   string
	)
	err := row.Scan(&b.ID, &b.PropertyID, &b.UserID, &checkIn, &checkOut, &b.Guests, &requests,
		&b.TotalPrice, &status, &payment, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if b.CheckIn, err = models.ParseDate(checkIn); err != nil {
		return nil, fmt.Errorf("booking %s: %w", b.ID, err)
	}
	if b.CheckOut, err = models.ParseDate(checkOut); err != nil {
		return nil, fmt.Errorf("booking %s: %w", b.ID, err)
	}
	if b.Status, err = models.ParseBookingStatus(status); err != nil {
		return nil, fmt.Errorf("booking %s: %w", b.ID, err)
	}
	if b.PaymentStatus, err = models.ParsePaymentStatus(payment); err != nil {
		return nil, fmt.Errorf("booking %s: %w", b.ID, err)
	}
	b.SpecialRequests = stringPtr(requests)
	return &b, nil
}

func scanBookings(rows *sql.Rows) ([]*models.Booking, error) {
	defer rows.Close()
	var out []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Dates are stored as YYYY-MM-DD text, so string comparison orders them.
func findConflict(ctx context.Context, q rowQuerier, propertyID string, checkIn, checkOut time.Time, excludeID string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE property_id = ? AND ` + activeStatusFilter + `
              AND check_in <= ? AND check_out >= ?`
	args := []any{propertyID, models.FormatDate(checkOut), models.FormatDate(checkIn)}
	if excludeID != "" {
		query += ` AND id != ?`
		args = append(args, excludeID)
	}
	query += ` LIMIT 1`

	b, err := scanBooking(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check availability: %w", err)
	}
	return b, nil
}

func (db *DB) FindConflictingBooking(ctx context.Context, propertyID string, checkIn, checkOut time.Time, excludeBookingID string) (*models.Booking, error) {
	return findConflict(ctx, db, propertyID, checkIn, checkOut, excludeBookingID)
}

func (db *DB) CreateBookingIfAvailable(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	conflict, err := findConflict(ctx, tx, booking.PropertyID, booking.CheckIn, booking.CheckOut, "")
	if err != nil {
		return err
	}
	if conflict != nil {
		return domain.Errorf(domain.ErrConflict, "property is not available for the selected dates")
	}

	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := db.now()
	query := `INSERT INTO bookings (` + bookingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query,
		booking.ID,
		booking.PropertyID,
		booking.UserID,
		models.FormatDate(booking.CheckIn),
		models.FormatDate(booking.CheckOut),
		booking.Guests,
		nullString(booking.SpecialRequests),
		booking.TotalPrice,
		string(booking.Status),
		string(booking.PaymentStatus),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}
	booking.CreatedAt = now
	booking.UpdatedAt = now
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	b, err := scanBooking(db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Errorf(domain.ErrNotFound, "booking not found")
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

func (db *DB) ListUserBookings(ctx context.Context, userID string) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user bookings: %w", err)
	}
	return scanBookings(rows)
}

// ListBookingsByDateRange returns bookings of any status whose stay touches [from, to].
func (db *DB) ListBookingsByDateRange(ctx context.Context, from, to time.Time) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
         WHERE check_in <= ? AND check_out >= ?
         ORDER BY check_in, id`,
		models.FormatDate(to), models.FormatDate(from))
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings by date range: %w", err)
	}
	return scanBookings(rows)
}

func (db *DB) UpdateBooking(ctx context.Context, id string, patch models.BookingPatch) error {
	var set setClause
	if v, ok := patch.CheckIn.Get(); ok {
		set.add("check_in", models.FormatDate(v))
	}
	if v, ok := patch.CheckOut.Get(); ok {
		set.add("check_out", models.FormatDate(v))
	}
	if v, ok := patch.Guests.Get(); ok {
		set.add("guests", v)
	}
	if v, ok := patch.SpecialRequests.Get(); ok {
		set.add("special_requests", nullString(v))
	}
	if v, ok := patch.TotalPrice.Get(); ok {
		set.add("total_price", v)
	}
	set.add("updated_at", db.now())
	return db.execUpdate(ctx, "bookings", id, set, "booking")
}

func (db *DB) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus, payment models.PaymentStatus) error {
	var set setClause
	set.add("status", string(status))
	set.add("payment_status", string(payment))
	set.add("updated_at", db.now())
	return db.execUpdate(ctx, "bookings", id, set, "booking")
}

func (db *DB) FindCompletedBooking(ctx context.Context, userID, propertyID string) (*models.Booking, error) {
	b, err := scanBooking(db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
         WHERE user_id = ? AND property_id = ? AND status = 'completed'
         ORDER BY check_out DESC LIMIT 1`, userID, propertyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find completed booking: %w", err)
	}
	return b, nil
}

func (db *DB) CompleteFinishedBookings(ctx context.Context, before time.Time) ([]*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	cutoff := models.FormatDate(before)
	rows, err := tx.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE status = 'confirmed' AND check_out < ? ORDER BY check_out, id`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to select finished bookings: %w", err)
	}
	finished, err := scanBookings(rows)
	if err != nil {
		return nil, err
	}
	if len(finished) == 0 {
		return nil, nil
	}

	now := db.now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'completed', updated_at = ? WHERE status = 'confirmed' AND check_out < ?`,
		now, cutoff); err != nil {
		return nil, fmt.Errorf("failed to complete bookings: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit completion: %w", err)
	}

	for _, b := range finished {
		b.Status = models.BookingCompleted
		b.UpdatedAt = now
	}
	return finished, nil
}

func (db *DB) BookedPropertyIDs(ctx context.Context, checkIn, checkOut time.Time) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT DISTINCT property_id FROM bookings
         WHERE `+activeStatusFilter+` AND check_in <= ? AND check_out >= ?`,
		models.FormatDate(checkOut), models.FormatDate(checkIn))
	if err != nil {
		return nil, fmt.Errorf("failed to get booked properties: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan property id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
