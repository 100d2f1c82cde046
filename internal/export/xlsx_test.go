package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"holidayrent/internal/domain"
	"holidayrent/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeBookings struct {
	bookings []*models.Booking
	err      error
}

func (f *fakeBookings) ListBookingsByDateRange(ctx context.Context, from, to time.Time) ([]*models.Booking, error) {
	return f.bookings, f.err
}

type fakeProperties map[string]*models.Property

func (f fakeProperties) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	if p, ok := f[id]; ok {
		return p, nil
	}
	return nil, domain.Errorf(domain.ErrNotFound, "property not found")
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWriteBookings(t *testing.T) {
	bookings := &fakeBookings{bookings: []*models.Booking{
		{ID: "b1", PropertyID: "p1", UserID: "u1", CheckIn: date(2024, 7, 1), CheckOut: date(2024, 7, 4), Guests: 2, TotalPrice: 300, Status: models.BookingConfirmed, PaymentStatus: models.PaymentCompleted},
		{ID: "b2", PropertyID: "gone", UserID: "u2", CheckIn: date(2024, 7, 5), CheckOut: date(2024, 7, 6), Guests: 1, TotalPrice: 80, Status: models.BookingCancelled, PaymentStatus: models.PaymentRefunded},
	}}
	props := fakeProperties{"p1": {ID: "p1", Name: "Sea View", Location: models.Location{Region: "Brittany"}}}
	exporter := NewExporter(bookings, props, 31, nil)

	var buf bytes.Buffer
	require.NoError(t, exporter.WriteBookings(context.Background(), date(2024, 7, 1), date(2024, 7, 31), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 3)
	assert.Equal(t, headers, rows[0])
	assert.Equal(t, []string{"b1", "Sea View", "Brittany", "u1", "2024-07-01", "2024-07-04", "3", "2", "300", "confirmed", "completed"}, rows[1][:11])
	assert.Equal(t, "b2", rows[2][0])
	assert.Equal(t, "", rows[2][1])

	revenue, err := f.GetCellValue(sheetName, "I5")
	require.NoError(t, err)
	assert.Equal(t, "300", revenue)
}

func TestWriteBookingsRangeChecks(t *testing.T) {
	exporter := NewExporter(&fakeBookings{}, fakeProperties{}, 10, nil)
	ctx := context.Background()

	err := exporter.WriteBookings(ctx, date(2024, 7, 5), date(2024, 7, 1), &bytes.Buffer{})
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	err = exporter.WriteBookings(ctx, date(2024, 7, 1), date(2024, 8, 1), &bytes.Buffer{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestWriteBookingsStoreError(t *testing.T) {
	exporter := NewExporter(&fakeBookings{err: errors.New("db down")}, fakeProperties{}, 0, nil)
	err := exporter.WriteBookings(context.Background(), date(2024, 7, 1), date(2024, 7, 2), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "bookings_2024-07-01_to_2024-07-31.xlsx", FileName(date(2024, 7, 1), date(2024, 7, 31)))
}
