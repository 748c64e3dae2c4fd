package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinic/pkg/logger"
	"clinic/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// Mock service for testing
type mockAvailabilityService struct {
	slotsFunc       func(ctx context.Context, doctorID string, date time.Time) ([]model.TimeSlot, error)
	isAvailableFunc func(ctx context.Context, doctorID string, at time.Time) (bool, error)
	monthFunc       func(ctx context.Context, doctorID string, year int, month time.Month) ([]model.MonthDay, error)
}

func (m *mockAvailabilityService) Slots(ctx context.Context, doctorID string, date time.Time) ([]model.TimeSlot, error) {
	if m.slotsFunc != nil {
		return m.slotsFunc(ctx, doctorID, date)
	}
	return []model.TimeSlot{}, nil
}

func (m *mockAvailabilityService) IsAvailable(ctx context.Context, doctorID string, at time.Time) (bool, error) {
	if m.isAvailableFunc != nil {
		return m.isAvailableFunc(ctx, doctorID, at)
	}
	return false, nil
}

func (m *mockAvailabilityService) MonthAvailability(ctx context.Context, doctorID string, year int, month time.Month) ([]model.MonthDay, error) {
	if m.monthFunc != nil {
		return m.monthFunc(ctx, doctorID, year, month)
	}
	return []model.MonthDay{}, nil
}

func newRouter(service *mockAvailabilityService) *httprouter.Router {
	log := logger.New(logger.Config{Level: "error", Format: logger.JSON, Service: "test"})
	h := NewAvailabilityHandler(service, log)
	router := httprouter.New()
	h.RegisterRoutes(router)
	return router
}

func TestSlotsRejectsMalformedDate(t *testing.T) {
	router := newRouter(&mockAvailabilityService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability/doctor/d1/slots?date=tomorrow", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSlotsPassesParsedDate(t *testing.T) {
	var gotDoctor string
	var gotDate time.Time
	service := &mockAvailabilityService{
		slotsFunc: func(ctx context.Context, doctorID string, date time.Time) ([]model.TimeSlot, error) {
			gotDoctor = doctorID
			gotDate = date
			return []model.TimeSlot{}, nil
		},
	}
	router := newRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability/doctor/d1/slots?date=2026-03-09", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotDoctor != "d1" {
		t.Errorf("doctorID = %q, want %q", gotDoctor, "d1")
	}
	if gotDate.Format("2006-01-02") != "2026-03-09" {
		t.Errorf("date = %v, want 2026-03-09", gotDate)
	}
}

func TestCheckReportsAvailability(t *testing.T) {
	service := &mockAvailabilityService{
		isAvailableFunc: func(ctx context.Context, doctorID string, at time.Time) (bool, error) {
			return true, nil
		},
	}
	router := newRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability/doctor/d1/check?date_time=2026-03-09T09:30:00Z", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Data checkResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Data.Available {
		t.Error("available = false, want true")
	}
}

func TestMonthRejectsMissingYear(t *testing.T) {
	router := newRouter(&mockAvailabilityService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability/doctor/d1/month?month=3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
