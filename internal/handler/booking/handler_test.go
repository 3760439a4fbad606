package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reservapr/booking-api/internal/handler"
	"github.com/reservapr/booking-api/internal/model"
	"github.com/reservapr/booking-api/internal/repository"
	"github.com/reservapr/booking-api/internal/service/scheduling"
	"github.com/reservapr/booking-api/pkg/metrics"
)

// Registered once; promauto metrics cannot be re-registered in one process.
var testMetrics = metrics.New("booking_handler_test")

type fakeBusinessRepo struct {
	businesses map[uuid.UUID]*model.Business
}

func (f *fakeBusinessRepo) Create(ctx context.Context, b *model.Business) error { return nil }

func (f *fakeBusinessRepo) Get(ctx context.Context, id uuid.UUID) (*model.Business, error) {
	b, ok := f.businesses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return b, nil
}

func (f *fakeBusinessRepo) Update(ctx context.Context, b *model.Business) error { return nil }

type fakeServiceRepo struct {
	services map[uuid.UUID]*model.Service
}

func (f *fakeServiceRepo) Create(ctx context.Context, s *model.Service) error { return nil }

func (f *fakeServiceRepo) Get(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	s, ok := f.services[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (f *fakeServiceRepo) Update(ctx context.Context, s *model.Service) error { return nil }

func (f *fakeServiceRepo) ListByBusiness(ctx context.Context, businessID uuid.UUID, activeOnly bool) ([]*model.Service, error) {
	return nil, nil
}

type fakeAvailabilityRepo struct {
	rules []*model.AvailabilityRule
}

func (f *fakeAvailabilityRepo) CreateRule(ctx context.Context, r *model.AvailabilityRule) error {
	return nil
}

func (f *fakeAvailabilityRepo) GetRule(ctx context.Context, id uuid.UUID) (*model.AvailabilityRule, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeAvailabilityRepo) DeleteRule(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeAvailabilityRepo) ListRules(ctx context.Context, businessID uuid.UUID) ([]*model.AvailabilityRule, error) {
	return f.rules, nil
}

func (f *fakeAvailabilityRepo) UpsertException(ctx context.Context, e *model.AvailabilityException) error {
	return nil
}

func (f *fakeAvailabilityRepo) GetException(ctx context.Context, id uuid.UUID) (*model.AvailabilityException, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeAvailabilityRepo) DeleteException(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeAvailabilityRepo) ListExceptions(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]*model.AvailabilityException, error) {
	return nil, nil
}

type fakeAppointmentRepo struct {
	bookErr error
	booked  []*model.Appointment
}

func (f *fakeAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeAppointmentRepo) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return nil, nil
}

func (f *fakeAppointmentRepo) ListOccupying(ctx context.Context, businessID uuid.UUID, staffID *uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	return nil, nil
}

func (f *fakeAppointmentRepo) BookGuarded(ctx context.Context, appt *model.Appointment, maxPerSlot int, event *model.OutboxEvent) error {
	if f.bookErr != nil {
		return f.bookErr
	}
	f.booked = append(f.booked, appt)
	return nil
}

func (f *fakeAppointmentRepo) UpdateWithEvent(ctx context.Context, appt *model.Appointment, event *model.OutboxEvent) error {
	return nil
}

func (f *fakeAppointmentRepo) CancelFutureBySeries(ctx context.Context, seriesID uuid.UUID, from time.Time, reason string) ([]*model.Appointment, error) {
	return nil, nil
}

type handlerFixture struct {
	router       *gin.Engine
	appointments *fakeAppointmentRepo
	businessID   uuid.UUID
	serviceID    uuid.UUID
}

// newHandlerFixture serves a UTC business open every day 09:00-17:00 with a
// 45 minute service. Dates in requests are kept far in the future so the
// booking notice check passes against the real clock.
func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler.RegisterValidations()

	businessID := uuid.New()
	serviceID := uuid.New()

	businesses := &fakeBusinessRepo{businesses: map[uuid.UUID]*model.Business{
		businessID: {Base: model.Base{ID: businessID}, Timezone: "UTC", IsActive: true},
	}}
	services := &fakeServiceRepo{services: map[uuid.UUID]*model.Service{
		serviceID: {
			Base:        model.Base{ID: serviceID},
			BusinessID:  businessID,
			DurationMin: 45,
			MaxPerSlot:  1,
			IsActive:    true,
		},
	}}
	avail := &fakeAvailabilityRepo{}
	for wd := 0; wd <= 6; wd++ {
		avail.rules = append(avail.rules, &model.AvailabilityRule{
			BusinessID: businessID,
			Weekday:    wd,
			StartTime:  "09:00",
			EndTime:    "17:00",
		})
	}
	appointments := &fakeAppointmentRepo{}

	svc := scheduling.NewService(appointments, avail, services, businesses,
		gocache.New(time.Minute, time.Minute), zerolog.Nop())

	router := gin.New()
	NewHandler(svc, testMetrics).RegisterRoutes(router.Group("/api/v1"))

	return &handlerFixture{
		router:       router,
		appointments: appointments,
		businessID:   businessID,
		serviceID:    serviceID,
	}
}

func (f *handlerFixture) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	f.router.ServeHTTP(w, req)
	return w
}

func (f *handlerFixture) post(path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	f.router.ServeHTTP(w, req)
	return w
}

func TestGetSlotsValidation(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.get("/api/v1/businesses/not-a-uuid/slots?service_id=" + f.serviceID.String() + "&from=2030-01-07")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.get(fmt.Sprintf("/api/v1/businesses/%s/slots?from=2030-01-07", f.businessID))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.get(fmt.Sprintf("/api/v1/businesses/%s/slots?service_id=%s&from=Jan-7", f.businessID, f.serviceID))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSlotsReturnsSlots(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.get(fmt.Sprintf("/api/v1/businesses/%s/slots?service_id=%s&from=2030-01-07", f.businessID, f.serviceID))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string       `json:"status"`
		Data   []model.Slot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	require.Len(t, resp.Data, 15)
	assert.Equal(t, time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC), resp.Data[0].StartsAt)
}

func TestGetSlotsUnknownBusinessIsEmpty(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.get(fmt.Sprintf("/api/v1/businesses/%s/slots?service_id=%s&from=2030-01-07", uuid.New(), f.serviceID))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []model.Slot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Data)
}

func bookingBody(f *handlerFixture, startsAt string) string {
	return fmt.Sprintf(`{
		"business_id": %q,
		"service_id": %q,
		"starts_at": %q,
		"customer_name": "Ana",
		"customer_phone": "+17875550100"
	}`, f.businessID, f.serviceID, startsAt)
}

func TestCreateBookingSuccess(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.post("/api/v1/bookings", bookingBody(f, "2030-01-07T10:00:00Z"))
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Status string            `json:"status"`
		Data   model.Appointment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, model.AppointmentStatusConfirmed, resp.Data.Status)
	require.Len(t, f.appointments.booked, 1)
}

func TestCreateBookingConflict(t *testing.T) {
	f := newHandlerFixture(t)
	f.appointments.bookErr = repository.ErrSlotUnavailable

	w := f.post("/api/v1/bookings", bookingBody(f, "2030-01-07T10:00:00Z"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "slot_unavailable")
}

func TestCreateBookingPastStart(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.post("/api/v1/bookings", bookingBody(f, "2020-01-06T10:00:00Z"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCreateBookingOutsideWindow(t *testing.T) {
	f := newHandlerFixture(t)

	// 18:00 is past closing.
	w := f.post("/api/v1/bookings", bookingBody(f, "2030-01-07T18:00:00Z"))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateBookingMalformedBody(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.post("/api/v1/bookings", `{"business_id": 42}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
