package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		ObserveHTTP("GET", "/api/properties", 200, 0.01)
	})

	before := testutil.ToFloat64(bookings.WithLabelValues("create", "conflict"))
	IncBooking("create", "conflict")
	assert.Equal(t, before+1, testutil.ToFloat64(bookings.WithLabelValues("create", "conflict")))

	IncRatingRecompute("ok")
	assert.GreaterOrEqual(t, testutil.ToFloat64(ratingRecomputes.WithLabelValues("ok")), 1.0)
}
