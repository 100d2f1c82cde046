package api

import (
	"bytes"
	"net/http"
	"time"

	"holidayrent/internal/domain"
	"holidayrent/internal/export"
	"holidayrent/internal/models"
	"holidayrent/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var errFeatureDisabled = domain.Errorf(domain.ErrNotFound, "feature is not configured")

// dateWindow reads from/to query dates. Both are required.
func dateWindow(c *gin.Context) (time.Time, time.Time, error) {
	from, err := models.ParseDate(c.Query("from"))
	if err != nil {
		return time.Time{}, time.Time{}, domain.Errorf(domain.ErrValidation, "from: %s", err.Error())
	}
	to, err := models.ParseDate(c.Query("to"))
	if err != nil {
		return time.Time{}, time.Time{}, domain.Errorf(domain.ErrValidation, "to: %s", err.Error())
	}
	return from, to, nil
}

func (s *HTTPServer) handleExportBookings(c *gin.Context) {
	if s.deps.Exporter == nil {
		respondError(c, errFeatureDisabled)
		return
	}
	from, to, err := dateWindow(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := s.deps.Exporter.WriteBookings(c.Request.Context(), from, to, &buf); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(from, to)+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (s *HTTPServer) handleResyncSheets(c *gin.Context) {
	if s.deps.Sheets == nil {
		respondError(c, errFeatureDisabled)
		return
	}
	from, to, err := dateWindow(c)
	if err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	bookings, err := s.deps.Bookings.ListBookingsByDateRange(ctx, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := s.deps.Sheets.ReplaceBookings(ctx, bookings); err != nil {
		respondError(c, err)
		return
	}
	zerolog.Ctx(ctx).Info().Int("bookings", len(bookings)).Str("admin_id", caller(c).UserID).Msg("bookings sheet rebuilt")
	c.JSON(http.StatusOK, gin.H{"synced": len(bookings)})
}

func (s *HTTPServer) handleDeadLetters(c *gin.Context) {
	if s.deps.DeadLetters == nil {
		respondError(c, errFeatureDisabled)
		return
	}
	tasks, err := s.deps.DeadLetters.DeadLetters(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if tasks == nil {
		tasks = []worker.SyncTask{}
	}
	c.JSON(http.StatusOK, tasks)
}
