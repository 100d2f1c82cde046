// Package export renders bookings into XLSX workbooks for administrators.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"holidayrent/internal/domain"
	"holidayrent/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

var headers = []string{
	"Booking ID", "Property", "Region", "Guest ID", "Check-in", "Check-out",
	"Nights", "Guests", "Total price", "Status", "Payment", "Created at",
}

type BookingLister interface {
	ListBookingsByDateRange(ctx context.Context, from, to time.Time) ([]*models.Booking, error)
}

type PropertyGetter interface {
	GetProperty(ctx context.Context, id string) (*models.Property, error)
}

// Exporter builds booking workbooks for a date window.
type Exporter struct {
	bookings     BookingLister
	properties   PropertyGetter
	maxRangeDays int
	logger       *zerolog.Logger
}

func NewExporter(bookings BookingLister, properties PropertyGetter, maxRangeDays int, logger *zerolog.Logger) *Exporter {
	if maxRangeDays <= 0 {
		maxRangeDays = 366
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Exporter{bookings: bookings, properties: properties, maxRangeDays: maxRangeDays, logger: logger}
}

// FileName is the download name for a window.
func FileName(from, to time.Time) string {
	return fmt.Sprintf("bookings_%s_to_%s.xlsx", models.FormatDate(from), models.FormatDate(to))
}

// WriteBookings writes a workbook with every booking overlapping [from, to].
func (e *Exporter) WriteBookings(ctx context.Context, from, to time.Time, w io.Writer) error {
	from, to = models.Day(from), models.Day(to)
	if to.Before(from) {
		return domain.Errorf(domain.ErrInvalidRange, "end date must not be before start date")
	}
	if models.Nights(from, to) > e.maxRangeDays {
		return domain.Errorf(domain.ErrValidation, "export range is limited to %d days", e.maxRangeDays)
	}

	bookings, err := e.bookings.ListBookingsByDateRange(ctx, from, to)
	if err != nil {
		return fmt.Errorf("error getting bookings: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	if err := writeHeader(f); err != nil {
		return err
	}

	styles, err := newStatusStyles(f)
	if err != nil {
		return err
	}

	names := make(map[string]*models.Property)
	total := 0.0
	for i, b := range bookings {
		row := i + 2
		prop := e.property(ctx, names, b.PropertyID)
		values := []interface{}{
			b.ID, prop.Name, prop.Location.Region, b.UserID,
			models.FormatDate(b.CheckIn), models.FormatDate(b.CheckOut),
			b.Nights(), b.Guests, b.TotalPrice,
			string(b.Status), string(b.PaymentStatus),
			b.CreatedAt.UTC().Format("2006-01-02 15:04"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("error writing row %d: %w", row, err)
		}
		statusCell, _ := excelize.CoordinatesToCellName(10, row)
		_ = f.SetCellStyle(sheetName, statusCell, statusCell, styles[b.Status])
		if b.Status != models.BookingCancelled {
			total += b.TotalPrice
		}
	}

	summaryRow := len(bookings) + 3
	_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", summaryRow), "Revenue")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", summaryRow), total)

	_ = f.SetColWidth(sheetName, "A", "A", 38)
	_ = f.SetColWidth(sheetName, "B", "D", 24)
	_ = f.SetColWidth(sheetName, "E", "L", 14)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}

	e.logger.Info().
		Str("from", models.FormatDate(from)).
		Str("to", models.FormatDate(to)).
		Int("bookings", len(bookings)).
		Msg("bookings exported")
	return nil
}

// property resolves a property once per export. Missing properties are
// rendered with empty names.
func (e *Exporter) property(ctx context.Context, cache map[string]*models.Property, id string) *models.Property {
	if p, ok := cache[id]; ok {
		return p
	}
	p, err := e.properties.GetProperty(ctx, id)
	if err != nil {
		e.logger.Warn().Err(err).Str("property_id", id).Msg("export: property lookup failed")
		p = &models.Property{ID: id}
	}
	cache[id] = p
	return p
}

func writeHeader(f *excelize.File) error {
	style, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("error creating header style: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(sheetName, "A1", last, style)
	return f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func statusColor(s models.BookingStatus) string {
	switch s {
	case models.BookingPending:
		return "#FFEB9C"
	case models.BookingConfirmed:
		return "#C6EFCE"
	case models.BookingCancelled:
		return "#FFC7CE"
	case models.BookingCompleted:
		return "#D9D9D9"
	default:
		return "#FFFFFF"
	}
}

func newStatusStyles(f *excelize.File) (map[models.BookingStatus]int, error) {
	styles := make(map[models.BookingStatus]int)
	for _, s := range []models.BookingStatus{models.BookingPending, models.BookingConfirmed, models.BookingCancelled, models.BookingCompleted} {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{statusColor(s)}, Pattern: 1},
		})
		if err != nil {
			return nil, fmt.Errorf("error creating status style: %w", err)
		}
		styles[s] = id
	}
	return styles, nil
}
