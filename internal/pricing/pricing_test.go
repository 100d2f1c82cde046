package pricing

import (
	"context"
	"testing"
	"time"

	"holidayrent/internal/config"
	"holidayrent/internal/domain"
	"holidayrent/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProperties struct {
	mock.Mock
}

func (m *mockProperties) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestCalculatorPrice(t *testing.T) {
	ctx := context.Background()
	props := new(mockProperties)
	props.On("GetProperty", ctx, "p1").Return(&models.Property{ID: "p1", PricePerNight: 100}, nil)
	props.On("GetProperty", ctx, "missing").Return(nil, domain.Errorf(domain.ErrNotFound, "property not found"))

	calc := NewCalculator(props)

	t.Run("Linear", func(t *testing.T) {
		total, err := calc.Price(ctx, "p1", day(t, "2024-06-01"), day(t, "2024-06-04"))
		require.NoError(t, err)
		assert.Equal(t, 300.0, total)
	})

	t.Run("SameDay", func(t *testing.T) {
		_, err := calc.Price(ctx, "p1", day(t, "2024-06-01"), day(t, "2024-06-01"))
		assert.ErrorIs(t, err, domain.ErrInvalidRange)
	})

	t.Run("Reversed", func(t *testing.T) {
		_, err := calc.Price(ctx, "p1", day(t, "2024-06-05"), day(t, "2024-06-01"))
		assert.ErrorIs(t, err, domain.ErrInvalidRange)
	})

	t.Run("MissingProperty", func(t *testing.T) {
		_, err := calc.Price(ctx, "missing", day(t, "2024-06-01"), day(t, "2024-06-04"))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestQuoteRoundsToCents(t *testing.T) {
	calc := NewCalculator(nil)
	total, err := calc.Quote(&models.Property{PricePerNight: 33.333}, day(t, "2024-06-01"), day(t, "2024-06-04"))
	require.NoError(t, err)
	assert.Equal(t, 100.0, total)
}

func TestSeasonalRule(t *testing.T) {
	rule, err := NewSeasonalRule([]config.SeasonConfig{
		{Name: "summer", Start: "07-01", End: "08-31", Multiplier: 1.5},
		{Name: "holidays", Start: "12-20", End: "01-05", Multiplier: 2},
	})
	require.NoError(t, err)
	calc := NewCalculator(nil, rule)
	prop := &models.Property{PricePerNight: 100}

	t.Run("OffSeasonUnchanged", func(t *testing.T) {
		total, err := calc.Quote(prop, day(t, "2024-05-01"), day(t, "2024-05-04"))
		require.NoError(t, err)
		assert.Equal(t, 300.0, total)
	})

	t.Run("StraddlesSeasonStart", func(t *testing.T) {
		// nights of 06-29, 06-30 at 100 and 07-01 at 150
		total, err := calc.Quote(prop, day(t, "2024-06-29"), day(t, "2024-07-02"))
		require.NoError(t, err)
		assert.Equal(t, 350.0, total)
	})

	t.Run("WrapsNewYear", func(t *testing.T) {
		// 12-31, 01-01 in season; 01-06 is not
		total, err := calc.Quote(prop, day(t, "2024-12-31"), day(t, "2025-01-02"))
		require.NoError(t, err)
		assert.Equal(t, 400.0, total)

		total, err = calc.Quote(prop, day(t, "2025-01-06"), day(t, "2025-01-07"))
		require.NoError(t, err)
		assert.Equal(t, 100.0, total)
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		_, err := NewSeasonalRule([]config.SeasonConfig{{Name: "bad", Start: "13-01", End: "01-01", Multiplier: 1}})
		assert.Error(t, err)
	})
}
