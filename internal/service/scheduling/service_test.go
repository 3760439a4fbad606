package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reservapr/booking-api/internal/model"
	"github.com/reservapr/booking-api/internal/repository"
)

type fakeBusinessRepo struct {
	businesses map[uuid.UUID]*model.Business
}

func (f *fakeBusinessRepo) Create(ctx context.Context, b *model.Business) error {
	f.businesses[b.ID] = b
	return nil
}

func (f *fakeBusinessRepo) Get(ctx context.Context, id uuid.UUID) (*model.Business, error) {
	b, ok := f.businesses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return b, nil
}

func (f *fakeBusinessRepo) Update(ctx context.Context, b *model.Business) error {
	f.businesses[b.ID] = b
	return nil
}

type fakeServiceRepo struct {
	services map[uuid.UUID]*model.Service
}

func (f *fakeServiceRepo) Create(ctx context.Context, s *model.Service) error {
	f.services[s.ID] = s
	return nil
}

func (f *fakeServiceRepo) Get(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	s, ok := f.services[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (f *fakeServiceRepo) Update(ctx context.Context, s *model.Service) error {
	f.services[s.ID] = s
	return nil
}

func (f *fakeServiceRepo) ListByBusiness(ctx context.Context, businessID uuid.UUID, activeOnly bool) ([]*model.Service, error) {
	var out []*model.Service
	for _, s := range f.services {
		if s.BusinessID == businessID && (!activeOnly || s.IsActive) {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeAvailabilityRepo struct {
	rules      []*model.AvailabilityRule
	exceptions []*model.AvailabilityException
}

func (f *fakeAvailabilityRepo) CreateRule(ctx context.Context, r *model.AvailabilityRule) error {
	f.rules = append(f.rules, r)
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
	f.exceptions = append(f.exceptions, e)
	return nil
}

func (f *fakeAvailabilityRepo) GetException(ctx context.Context, id uuid.UUID) (*model.AvailabilityException, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeAvailabilityRepo) DeleteException(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeAvailabilityRepo) ListExceptions(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]*model.AvailabilityException, error) {
	// Inclusive date range, mirroring the SQL predicate.
	var out []*model.AvailabilityException
	for _, e := range f.exceptions {
		if !e.Date.Before(from) && !e.Date.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeAppointmentRepo struct {
	appointments map[uuid.UUID]*model.Appointment
	bookErr      error
	lastEvent    *model.OutboxEvent
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func (f *fakeAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	a, ok := f.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

func (f *fakeAppointmentRepo) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, a := range f.appointments {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAppointmentRepo) ListOccupying(ctx context.Context, businessID uuid.UUID, staffID *uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, a := range f.appointments {
		if a.BusinessID != businessID || !a.Status.Occupies() {
			continue
		}
		if a.PaddedStart().Before(to) && from.Before(a.PaddedEnd()) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAppointmentRepo) BookGuarded(ctx context.Context, appt *model.Appointment, maxPerSlot int, event *model.OutboxEvent) error {
	if f.bookErr != nil {
		return f.bookErr
	}
	f.appointments[appt.ID] = appt
	f.lastEvent = event
	return nil
}

func (f *fakeAppointmentRepo) UpdateWithEvent(ctx context.Context, appt *model.Appointment, event *model.OutboxEvent) error {
	f.appointments[appt.ID] = appt
	f.lastEvent = event
	return nil
}

func (f *fakeAppointmentRepo) CancelFutureBySeries(ctx context.Context, seriesID uuid.UUID, from time.Time, reason string) ([]*model.Appointment, error) {
	var canceled []*model.Appointment
	for _, a := range f.appointments {
		if a.SeriesID == nil || *a.SeriesID != seriesID {
			continue
		}
		if !a.StartsAt.Before(from) && (a.Status == model.AppointmentStatusPending || a.Status == model.AppointmentStatusConfirmed) {
			a.Status = model.AppointmentStatusCanceled
			a.CancelReason = &reason
			canceled = append(canceled, a)
		}
	}
	return canceled, nil
}

type schedulingFixture struct {
	svc          *Service
	businesses   *fakeBusinessRepo
	services     *fakeServiceRepo
	availability *fakeAvailabilityRepo
	appointments *fakeAppointmentRepo
	businessID   uuid.UUID
	serviceID    uuid.UUID
}

// newFixture wires a business in UTC, open Monday-Friday 09:00-17:00, with a
// 45 minute service, and pins now to Friday 2024-03-01 12:00 UTC.
func newFixture(t *testing.T) *schedulingFixture {
	t.Helper()

	businessID := uuid.New()
	serviceID := uuid.New()

	businesses := &fakeBusinessRepo{businesses: map[uuid.UUID]*model.Business{}}
	businesses.businesses[businessID] = &model.Business{
		Base:     model.Base{ID: businessID},
		Name:     "Clips",
		Timezone: "UTC",
		IsActive: true,
	}

	services := &fakeServiceRepo{services: map[uuid.UUID]*model.Service{}}
	services.services[serviceID] = &model.Service{
		Base:        model.Base{ID: serviceID},
		BusinessID:  businessID,
		Name:        "Cut",
		DurationMin: 45,
		MaxPerSlot:  1,
		IsActive:    true,
	}

	avail := &fakeAvailabilityRepo{}
	for wd := 1; wd <= 5; wd++ {
		avail.rules = append(avail.rules, &model.AvailabilityRule{
			BusinessID: businessID,
			Weekday:    wd,
			StartTime:  "09:00",
			EndTime:    "17:00",
		})
	}

	appointments := newFakeAppointmentRepo()

	svc := NewService(appointments, avail, services, businesses, gocache.New(time.Minute, time.Minute), zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	return &schedulingFixture{
		svc:          svc,
		businesses:   businesses,
		services:     services,
		availability: avail,
		appointments: appointments,
		businessID:   businessID,
		serviceID:    serviceID,
	}
}

func (f *schedulingFixture) day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGenerateSlotsUnknownBusinessOrService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := f.day(2024, 3, 4)

	slots, err := f.svc.GenerateSlots(ctx, uuid.New(), f.serviceID, nil, day, day)
	require.NoError(t, err)
	assert.Empty(t, slots)

	slots, err = f.svc.GenerateSlots(ctx, f.businessID, uuid.New(), nil, day, day)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGenerateSlotsInactiveService(t *testing.T) {
	f := newFixture(t)
	f.services.services[f.serviceID].IsActive = false

	day := f.day(2024, 3, 4)
	slots, err := f.svc.GenerateSlots(context.Background(), f.businessID, f.serviceID, nil, day, day)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGenerateSlotsOpenWeekday(t *testing.T) {
	f := newFixture(t)

	day := f.day(2024, 3, 4) // Monday
	slots, err := f.svc.GenerateSlots(context.Background(), f.businessID, f.serviceID, nil, day, day)
	require.NoError(t, err)
	require.Len(t, slots, 15)
	assert.Equal(t, time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), slots[0].StartsAt)
	assert.Equal(t, time.Date(2024, 3, 4, 16, 0, 0, 0, time.UTC), slots[14].StartsAt)
}

func TestGenerateSlotsClosedSunday(t *testing.T) {
	f := newFixture(t)

	day := f.day(2024, 3, 3) // Sunday, no rule
	slots, err := f.svc.GenerateSlots(context.Background(), f.businessID, f.serviceID, nil, day, day)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGenerateSlotsClosedException(t *testing.T) {
	f := newFixture(t)
	f.availability.exceptions = append(f.availability.exceptions, &model.AvailabilityException{
		BusinessID: f.businessID,
		Date:       f.day(2024, 3, 4),
		IsClosed:   true,
		Reason:     model.ExceptionReasonHoliday,
	})

	day := f.day(2024, 3, 4)
	slots, err := f.svc.GenerateSlots(context.Background(), f.businessID, f.serviceID, nil, day, day)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGenerateSlotsWesternTimezoneKeepsRequestedDay(t *testing.T) {
	f := newFixture(t)
	f.businesses.businesses[f.businessID].Timezone = "America/Puerto_Rico"
	loc, err := time.LoadLocation("America/Puerto_Rico")
	require.NoError(t, err)

	// The slots endpoint parses ?from=2024-03-05 as midnight UTC. Every slot
	// must still land on March 5 on the business clock, not the previous
	// local day.
	day := f.day(2024, 3, 5) // Tuesday
	slots, err := f.svc.GenerateSlots(context.Background(), f.businessID, f.serviceID, nil, day, day)
	require.NoError(t, err)
	require.Len(t, slots, 15)
	for _, s := range slots {
		local := s.StartsAt.In(loc)
		assert.Equal(t, 5, local.Day())
	}
	assert.True(t, slots[0].StartsAt.Equal(time.Date(2024, 3, 5, 9, 0, 0, 0, loc)))
}

func TestGenerateSlotsWesternTimezoneHonorsException(t *testing.T) {
	f := newFixture(t)
	f.businesses.businesses[f.businessID].Timezone = "America/Puerto_Rico"
	f.availability.exceptions = append(f.availability.exceptions, &model.AvailabilityException{
		BusinessID: f.businessID,
		Date:       f.day(2024, 3, 5), // stored as a plain calendar date
		IsClosed:   true,
		Reason:     model.ExceptionReasonMaintenance,
	})

	// The closure on the first day of the range must be fetched even though
	// local midnight and the stored date differ as instants.
	day := f.day(2024, 3, 5)
	slots, err := f.svc.GenerateSlots(context.Background(), f.businessID, f.serviceID, nil, day, day)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGenerateSlotsBookingNoticeTrimsToday(t *testing.T) {
	f := newFixture(t)
	f.businesses.businesses[f.businessID].BookingNoticeMin = 120

	// Now is Friday 12:00; with two hours notice the first bookable start on
	// Friday is 14:30 (14:00 equals the boundary and is excluded).
	day := f.day(2024, 3, 1)
	slots, err := f.svc.GenerateSlots(context.Background(), f.businessID, f.serviceID, nil, day, day)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC), slots[0].StartsAt)
}

func TestGenerateSlotsHorizonCapsRange(t *testing.T) {
	f := newFixture(t)
	f.businesses.businesses[f.businessID].BookingHorizonDays = 3

	// Now is Friday 2024-03-01, so the horizon ends Monday 2024-03-04.
	from := f.day(2024, 3, 4)
	to := f.day(2024, 3, 8)
	slots, err := f.svc.GenerateSlots(context.Background(), f.businessID, f.serviceID, nil, from, to)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	for _, s := range slots {
		assert.True(t, s.StartsAt.Before(f.day(2024, 3, 5)))
	}
}

func TestGenerateSlotsIsRepeatable(t *testing.T) {
	f := newFixture(t)
	day := f.day(2024, 3, 4)

	first, err := f.svc.GenerateSlots(context.Background(), f.businessID, f.serviceID, nil, day, day)
	require.NoError(t, err)
	second, err := f.svc.GenerateSlots(context.Background(), f.businessID, f.serviceID, nil, day, day)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateSlotsExcludesBookedInterval(t *testing.T) {
	f := newFixture(t)
	appt := &model.Appointment{
		Base:       model.Base{ID: uuid.New()},
		BusinessID: f.businessID,
		ServiceID:  f.serviceID,
		StartsAt:   time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
		EndsAt:     time.Date(2024, 3, 4, 10, 45, 0, 0, time.UTC),
		Status:     model.AppointmentStatusConfirmed,
	}
	f.appointments.appointments[appt.ID] = appt

	day := f.day(2024, 3, 4)
	slots, err := f.svc.GenerateSlots(context.Background(), f.businessID, f.serviceID, nil, day, day)
	require.NoError(t, err)
	for _, s := range slots {
		assert.NotEqual(t, appt.StartsAt, s.StartsAt)
		assert.NotEqual(t, time.Date(2024, 3, 4, 10, 30, 0, 0, time.UTC), s.StartsAt)
	}

	// Canceling restores the interval.
	appt.Status = model.AppointmentStatusCanceled
	slots, err = f.svc.GenerateSlots(context.Background(), f.businessID, f.serviceID, nil, day, day)
	require.NoError(t, err)
	found := false
	for _, s := range slots {
		if s.StartsAt.Equal(appt.StartsAt) {
			found = true
		}
	}
	assert.True(t, found)
}

func bookingReq(f *schedulingFixture, start time.Time) *model.BookingRequest {
	return &model.BookingRequest{
		BusinessID:    f.businessID,
		ServiceID:     f.serviceID,
		StartsAt:      start,
		CustomerName:  "Ana",
		CustomerPhone: "+17875550100",
	}
}

func TestBookHappyPath(t *testing.T) {
	f := newFixture(t)
	f.services.services[f.serviceID].BufferBeforeMin = 10
	f.services.services[f.serviceID].BufferAfterMin = 5

	appt, err := f.svc.Book(context.Background(), bookingReq(f, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusConfirmed, appt.Status)
	assert.Equal(t, model.PaymentStatusUnpaid, appt.PaymentStatus)
	assert.Equal(t, time.Date(2024, 3, 4, 10, 45, 0, 0, time.UTC), appt.EndsAt)
	// Buffers are copied from the service at booking time.
	assert.Equal(t, 10, appt.BufferBeforeMin)
	assert.Equal(t, 5, appt.BufferAfterMin)

	require.NotNil(t, f.appointments.lastEvent)
	assert.Equal(t, model.EventAppointmentBooked, f.appointments.lastEvent.EventType)
}

func TestBookDepositStartsPending(t *testing.T) {
	f := newFixture(t)
	f.services.services[f.serviceID].DepositCents = 2500

	appt, err := f.svc.Book(context.Background(), bookingReq(f, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, appt.Status)
	assert.Equal(t, int64(2500), appt.DepositCents)
	assert.Equal(t, model.PaymentStatusUnpaid, appt.PaymentStatus)
}

func TestBookPastStartRejected(t *testing.T) {
	f := newFixture(t)

	// Now is Friday 12:00; Friday 10:00 is already gone.
	_, err := f.svc.Book(context.Background(), bookingReq(f, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
	assert.ErrorIs(t, err, ErrPastStart)
}

func TestBookOutsideOpenWindow(t *testing.T) {
	f := newFixture(t)

	// Sunday: no rules.
	_, err := f.svc.Book(context.Background(), bookingReq(f, time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC)))
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	// Monday 16:45: start is inside the window but the duration spills past
	// 17:00.
	_, err = f.svc.Book(context.Background(), bookingReq(f, time.Date(2024, 3, 4, 16, 45, 0, 0, time.UTC)))
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestBookUnalignedStartInsideWindowAllowed(t *testing.T) {
	f := newFixture(t)

	// 10:15 is not on the 30 minute display grid but fits the window; the
	// guard validates windows and capacity, not grid alignment.
	appt, err := f.svc.Book(context.Background(), bookingReq(f, time.Date(2024, 3, 4, 10, 15, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 11, 0, 0, 0, time.UTC), appt.EndsAt)
}

func TestBookFullSlotConflict(t *testing.T) {
	f := newFixture(t)
	f.appointments.bookErr = repository.ErrSlotUnavailable

	_, err := f.svc.Book(context.Background(), bookingReq(f, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)))
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestBookBeyondHorizonRejected(t *testing.T) {
	f := newFixture(t)
	f.businesses.businesses[f.businessID].BookingHorizonDays = 3

	_, err := f.svc.Book(context.Background(), bookingReq(f, time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC)))
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestBookOccurrenceTagsSeries(t *testing.T) {
	f := newFixture(t)
	series := &model.RecurringSeries{
		Base:          model.Base{ID: uuid.New()},
		BusinessID:    f.businessID,
		ServiceID:     f.serviceID,
		CustomerName:  "Ana",
		CustomerPhone: "+17875550100",
	}

	appt, err := f.svc.BookOccurrence(context.Background(), series, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, appt.SeriesID)
	assert.Equal(t, series.ID, *appt.SeriesID)
}

func TestCancelTransitions(t *testing.T) {
	f := newFixture(t)
	appt, err := f.svc.Book(context.Background(), bookingReq(f, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	canceled, err := f.svc.Cancel(context.Background(), appt.ID, "customer request")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCanceled, canceled.Status)
	require.NotNil(t, canceled.CancelReason)
	assert.Equal(t, "customer request", *canceled.CancelReason)
	require.NotNil(t, f.appointments.lastEvent)
	assert.Equal(t, model.EventAppointmentCanceled, f.appointments.lastEvent.EventType)

	// Canceling twice is rejected.
	_, err = f.svc.Cancel(context.Background(), appt.ID, "again")
	assert.Error(t, err)
}

func TestCancelCompletedRejected(t *testing.T) {
	f := newFixture(t)
	appt, err := f.svc.Book(context.Background(), bookingReq(f, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), appt.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), appt.ID, "too late")
	assert.Error(t, err)
}

func TestConfirmSettlesDeposit(t *testing.T) {
	f := newFixture(t)
	f.services.services[f.serviceID].DepositCents = 2500

	appt, err := f.svc.Book(context.Background(), bookingReq(f, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.Equal(t, model.AppointmentStatusPending, appt.Status)

	confirmed, err := f.svc.Confirm(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, confirmed.Status)
	assert.Equal(t, model.PaymentStatusPaid, confirmed.PaymentStatus)

	// Confirm is only valid from pending.
	_, err = f.svc.Confirm(context.Background(), appt.ID)
	assert.Error(t, err)
}

func TestMarkNoShow(t *testing.T) {
	f := newFixture(t)
	appt, err := f.svc.Book(context.Background(), bookingReq(f, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	marked, err := f.svc.MarkNoShow(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusNoShow, marked.Status)

	_, err = f.svc.MarkNoShow(context.Background(), appt.ID)
	assert.Error(t, err)
}
