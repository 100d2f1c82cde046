package google

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"

	"holidayrent/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	bookingsSheet   = "Bookings"
	timestampLayout = "2006-01-02 15:04:05"
	// first and last column of a booking row
	firstCol = "A"
	lastCol  = "K"
)

var bookingHeaders = []interface{}{
	"ID", "Property ID", "User ID", "Check In", "Check Out", "Guests",
	"Total Price", "Status", "Payment Status", "Created At", "Updated At",
}

// SheetsService mirrors bookings into a spreadsheet, one row per booking,
// keyed by the booking id in column A.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	rowCache      map[string]int
	cacheMu       sync.RWMutex
	now           func() time.Time
}

func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetsService, error) {
	// Читаем файл учетных данных сервисного аккаунта
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	return newSheetsService(srv, spreadsheetID), nil
}

func newSheetsService(srv *sheets.Service, spreadsheetID string) *SheetsService {
	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		rowCache:      make(map[string]int),
		now:           time.Now,
	}
}

// TestConnection проверяет подключение к таблице
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsSheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// WarmUpCache populates the row index cache by reading the entire ID column.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	ids, err := s.readIDColumn(ctx)
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[string]int, len(ids))
	for i, id := range ids {
		if id != "" {
			s.rowCache[id] = i + 1
		}
	}
	return nil
}

func (s *SheetsService) readIDColumn(ctx context.Context) ([]string, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read booking ids: %w", err)
	}
	ids := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			ids[i] = fmt.Sprint(row[0])
		}
	}
	return ids, nil
}

var updatedRowRe = regexp.MustCompile(`![A-Z]+(\d+)`)

// AppendBooking добавляет новое бронирование
func (s *SheetsService) AppendBooking(ctx context.Context, booking *models.Booking) error {
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{bookingRowValues(booking)},
	}

	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, bookingsSheet+"!A:A", valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append booking %s: %w", booking.ID, err)
	}

	if resp.Updates != nil {
		if m := updatedRowRe.FindStringSubmatch(resp.Updates.UpdatedRange); m != nil {
			if row, err := strconv.Atoi(m[1]); err == nil {
				s.setCachedRow(booking.ID, row)
			}
		}
	}
	return nil
}

// UpsertBooking updates an existing booking row or appends a new one if not found.
func (s *SheetsService) UpsertBooking(ctx context.Context, booking *models.Booking) error {
	if booking == nil {
		return fmt.Errorf("booking is nil")
	}

	rowIdx, found, err := s.FindBookingRow(ctx, booking.ID)
	if err != nil {
		return err
	}
	if !found {
		return s.AppendBooking(ctx, booking)
	}

	rangeData := fmt.Sprintf("%s!%s%d:%s%d", bookingsSheet, firstCol, rowIdx, lastCol, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{
		Values: [][]interface{}{bookingRowValues(booking)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update booking %s: %w", booking.ID, err)
	}
	return nil
}

// UpdateBookingStatus rewrites the status, payment and updated-at cells of
// an existing booking row.
func (s *SheetsService) UpdateBookingStatus(ctx context.Context, bookingID string, status models.BookingStatus, payment models.PaymentStatus) error {
	rowIdx, found, err := s.FindBookingRow(ctx, bookingID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("booking row %s not found", bookingID)
	}

	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data: []*sheets.ValueRange{
			{
				Range:  fmt.Sprintf("%s!H%d:I%d", bookingsSheet, rowIdx, rowIdx),
				Values: [][]interface{}{{string(status), string(payment)}},
			},
			{
				Range:  fmt.Sprintf("%s!K%d", bookingsSheet, rowIdx),
				Values: [][]interface{}{{s.now().UTC().Format(timestampLayout)}},
			},
		},
	}
	if _, err := s.service.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to update booking status %s: %w", bookingID, err)
	}
	return nil
}

// FindBookingRow locates the 1-based row of bookingID, consulting the cache first.
func (s *SheetsService) FindBookingRow(ctx context.Context, bookingID string) (int, bool, error) {
	if bookingID == "" {
		return 0, false, fmt.Errorf("booking id is required")
	}
	if row, ok := s.getCachedRow(bookingID); ok {
		return row, true, nil
	}

	ids, err := s.readIDColumn(ctx)
	if err != nil {
		return 0, false, err
	}
	for i, id := range ids {
		if id == bookingID {
			s.setCachedRow(bookingID, i+1)
			return i + 1, true, nil
		}
	}
	return 0, false, nil
}

// ReplaceBookings rewrites the whole sheet, header included, from bookings.
func (s *SheetsService) ReplaceBookings(ctx context.Context, bookings []*models.Booking) error {
	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, bookingsSheet+"!A:Z", &sheets.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear bookings sheet: %w", err)
	}

	values := make([][]interface{}, 0, len(bookings)+1)
	values = append(values, bookingHeaders)
	for _, b := range bookings {
		values = append(values, bookingRowValues(b))
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, bookingsSheet+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write bookings sheet: %w", err)
	}

	s.cacheMu.Lock()
	s.rowCache = make(map[string]int, len(bookings))
	for i, b := range bookings {
		s.rowCache[b.ID] = i + 2
	}
	s.cacheMu.Unlock()
	return nil
}

func (s *SheetsService) getCachedRow(id string) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id string, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

// ClearCache clears the row index cache.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[string]int)
}

func bookingRowValues(b *models.Booking) []interface{} {
	return []interface{}{
		b.ID,
		b.PropertyID,
		b.UserID,
		models.FormatDate(b.CheckIn),
		models.FormatDate(b.CheckOut),
		b.Guests,
		b.TotalPrice,
		string(b.Status),
		string(b.PaymentStatus),
		b.CreatedAt.UTC().Format(timestampLayout),
		b.UpdatedAt.UTC().Format(timestampLayout),
	}
}
