package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"holidayrent/internal/models"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func setupMockServer(ctx context.Context, t *testing.T) (*http.ServeMux, *SheetsService) {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	srv, err := sheets.NewService(ctx, option.WithEndpoint(server.URL), option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("sheets.NewService: %v", err)
	}
	s := newSheetsService(srv, "bookings_tid")
	s.now = func() time.Time { return time.Date(2024, 7, 2, 9, 30, 0, 0, time.UTC) }
	return mux, s
}

func testBooking(id string) *models.Booking {
	return &models.Booking{
		ID:            id,
		PropertyID:    "p1",
		UserID:        "u1",
		CheckIn:       time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:      time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC),
		Guests:        2,
		TotalPrice:    450,
		Status:        models.BookingPending,
		PaymentStatus: models.PaymentPending,
		CreatedAt:     time.Date(2024, 6, 20, 10, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2024, 6, 21, 11, 0, 0, 0, time.UTC),
	}
}

func TestSheetsService_TestConnection(t *testing.T) {
	ctx := context.Background()
	mux, s := setupMockServer(ctx, t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})
	if err := s.TestConnection(ctx); err != nil {
		t.Errorf("TestConnection failed: %v", err)
	}
}

func TestSheetsService_WarmUpCache(t *testing.T) {
	ctx := context.Background()
	mux, s := setupMockServer(ctx, t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{
			Values: [][]interface{}{{"ID"}, {"b-123"}, {}, {"b-456"}},
		})
	})
	if err := s.WarmUpCache(ctx); err != nil {
		t.Fatalf("WarmUpCache failed: %v", err)
	}
	if row, ok := s.getCachedRow("b-123"); !ok || row != 2 {
		t.Errorf("Expected row 2 for b-123, got %d", row)
	}
	if row, ok := s.getCachedRow("b-456"); !ok || row != 4 {
		t.Errorf("Expected row 4 for b-456, got %d", row)
	}
}

func TestSheetsService_AppendBooking(t *testing.T) {
	ctx := context.Background()
	mux, s := setupMockServer(ctx, t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A:append", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{
			Updates: &sheets.UpdateValuesResponse{UpdatedRange: "Bookings!A10:K10"},
		})
	})
	if err := s.AppendBooking(ctx, testBooking("b-789")); err != nil {
		t.Fatalf("AppendBooking failed: %v", err)
	}
	if row, _ := s.getCachedRow("b-789"); row != 10 {
		t.Errorf("Expected cached row 10, got %d", row)
	}
}

func TestSheetsService_UpsertBooking_Update(t *testing.T) {
	ctx := context.Background()
	mux, s := setupMockServer(ctx, t)
	s.setCachedRow("b-123", 2)

	var got sheets.ValueRange
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A2:K2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})
	if err := s.UpsertBooking(ctx, testBooking("b-123")); err != nil {
		t.Fatalf("UpsertBooking failed: %v", err)
	}
	if len(got.Values) != 1 || got.Values[0][0] != "b-123" {
		t.Errorf("Unexpected row written: %v", got.Values)
	}
}

func TestSheetsService_UpsertBooking_Append(t *testing.T) {
	ctx := context.Background()
	mux, s := setupMockServer(ctx, t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}, {"other"}}})
	})
	appended := false
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A:append", func(w http.ResponseWriter, r *http.Request) {
		appended = true
		_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{
			Updates: &sheets.UpdateValuesResponse{UpdatedRange: "Bookings!A3:K3"},
		})
	})
	if err := s.UpsertBooking(ctx, testBooking("b-new")); err != nil {
		t.Fatalf("UpsertBooking failed: %v", err)
	}
	if !appended {
		t.Error("Expected booking to be appended")
	}
	if row, _ := s.getCachedRow("b-new"); row != 3 {
		t.Errorf("Expected cached row 3, got %d", row)
	}
}

func TestSheetsService_UpsertBooking_Nil(t *testing.T) {
	s := newSheetsService(nil, "x")
	if err := s.UpsertBooking(context.Background(), nil); err == nil {
		t.Error("Expected error for nil booking")
	}
}

func TestSheetsService_UpdateBookingStatus(t *testing.T) {
	ctx := context.Background()
	mux, s := setupMockServer(ctx, t)
	s.setCachedRow("b-123", 3)

	var got sheets.BatchUpdateValuesRequest
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values:batchUpdate", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(sheets.BatchUpdateValuesResponse{})
	})

	err := s.UpdateBookingStatus(ctx, "b-123", models.BookingCancelled, models.PaymentRefunded)
	if err != nil {
		t.Fatalf("UpdateBookingStatus failed: %v", err)
	}
	if len(got.Data) != 2 {
		t.Fatalf("Expected 2 ranges, got %d", len(got.Data))
	}
	if got.Data[0].Range != "Bookings!H3:I3" {
		t.Errorf("Unexpected status range %q", got.Data[0].Range)
	}
	if got.Data[0].Values[0][0] != "cancelled" || got.Data[0].Values[0][1] != "refunded" {
		t.Errorf("Unexpected status values %v", got.Data[0].Values)
	}
	if got.Data[1].Values[0][0] != "2024-07-02 09:30:00" {
		t.Errorf("Unexpected updated-at %v", got.Data[1].Values)
	}
}

func TestSheetsService_UpdateBookingStatus_MissingRow(t *testing.T) {
	ctx := context.Background()
	mux, s := setupMockServer(ctx, t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})
	if err := s.UpdateBookingStatus(ctx, "ghost", models.BookingConfirmed, models.PaymentCompleted); err == nil {
		t.Error("Expected error for missing row")
	}
}

func TestSheetsService_ReplaceBookings(t *testing.T) {
	ctx := context.Background()
	mux, s := setupMockServer(ctx, t)
	s.setCachedRow("stale", 7)

	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:Z:clear", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ClearValuesResponse{})
	})
	var got sheets.ValueRange
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	err := s.ReplaceBookings(ctx, []*models.Booking{testBooking("b-1"), testBooking("b-2")})
	if err != nil {
		t.Fatalf("ReplaceBookings failed: %v", err)
	}
	if len(got.Values) != 3 || got.Values[0][0] != "ID" {
		t.Errorf("Expected header plus 2 rows, got %v", got.Values)
	}
	if row, _ := s.getCachedRow("b-2"); row != 3 {
		t.Errorf("Expected b-2 at row 3, got %d", row)
	}
	if _, ok := s.getCachedRow("stale"); ok {
		t.Error("Expected stale cache entry to be dropped")
	}
}

func TestSheetsService_ServerError(t *testing.T) {
	ctx := context.Background()
	mux, s := setupMockServer(ctx, t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadRequest)
	})
	if _, _, err := s.FindBookingRow(ctx, "b-1"); err == nil {
		t.Error("Expected error from failing server")
	}
	if _, _, err := s.FindBookingRow(ctx, ""); err == nil {
		t.Error("Expected error for empty id")
	}
}

func TestBookingRowValues(t *testing.T) {
	values := bookingRowValues(testBooking("b-1"))
	expected := []interface{}{
		"b-1", "p1", "u1", "2024-07-01", "2024-07-04", 2, 450.0,
		"pending", "pending", "2024-06-20 10:00:00", "2024-06-21 11:00:00",
	}
	if len(values) != len(expected) {
		t.Fatalf("Expected %d values, got %d", len(expected), len(values))
	}
	for i, v := range values {
		if v != expected[i] {
			t.Errorf("At index %d: expected %v, got %v", i, expected[i], v)
		}
	}
	if len(bookingHeaders) != len(expected) {
		t.Errorf("Header count %d does not match row width %d", len(bookingHeaders), len(expected))
	}
}

func TestClearCache(t *testing.T) {
	s := newSheetsService(nil, "x")
	s.setCachedRow("a", 5)
	s.ClearCache()
	if _, ok := s.getCachedRow("a"); ok {
		t.Error("Expected cache to be empty")
	}
}
