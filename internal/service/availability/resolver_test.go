package availability

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/reservapr/booking-api/internal/model"
)

var monday = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func rule(staffID *uuid.UUID, weekday int, start, end string) *model.AvailabilityRule {
	return &model.AvailabilityRule{
		StaffID:   staffID,
		Weekday:   weekday,
		StartTime: start,
		EndTime:   end,
	}
}

func strp(s string) *string { return &s }

func TestResolveDayNoConfiguration(t *testing.T) {
	day := ResolveDay(nil, nil, nil, monday)
	assert.False(t, day.Open)
	assert.Equal(t, model.DaySourceNone, day.Source)
	assert.Empty(t, day.Windows)
}

func TestResolveDayBusinessRule(t *testing.T) {
	rules := []*model.AvailabilityRule{
		rule(nil, 1, "09:00", "17:00"),
		rule(nil, 2, "10:00", "14:00"), // different weekday, ignored
	}

	day := ResolveDay(rules, nil, nil, monday)
	assert.True(t, day.Open)
	assert.Equal(t, model.DaySourceRule, day.Source)
	assert.Equal(t, []model.Window{{Start: "09:00", End: "17:00"}}, day.Windows)
}

func TestResolveDaySplitShiftStaysSplit(t *testing.T) {
	rules := []*model.AvailabilityRule{
		rule(nil, 1, "09:00", "12:00"),
		rule(nil, 1, "14:00", "18:00"),
	}

	day := ResolveDay(rules, nil, nil, monday)
	assert.True(t, day.Open)
	assert.Equal(t, []model.Window{
		{Start: "09:00", End: "12:00"},
		{Start: "14:00", End: "18:00"},
	}, day.Windows)
}

func TestResolveDayStaffRulesOverrideBusinessSet(t *testing.T) {
	staffID := uuid.New()
	rules := []*model.AvailabilityRule{
		rule(nil, 1, "09:00", "17:00"),
		rule(&staffID, 1, "12:00", "16:00"),
	}

	// Staff-scoped lookup sees only the staff set, not the union.
	day := ResolveDay(rules, nil, &staffID, monday)
	assert.Equal(t, []model.Window{{Start: "12:00", End: "16:00"}}, day.Windows)

	// Business-wide lookup ignores staff rows.
	day = ResolveDay(rules, nil, nil, monday)
	assert.Equal(t, []model.Window{{Start: "09:00", End: "17:00"}}, day.Windows)

	// A different staff member falls back to the business set.
	other := uuid.New()
	day = ResolveDay(rules, nil, &other, monday)
	assert.Equal(t, []model.Window{{Start: "09:00", End: "17:00"}}, day.Windows)
}

func TestResolveDayClosedExceptionBeatsRules(t *testing.T) {
	rules := []*model.AvailabilityRule{rule(nil, 1, "09:00", "17:00")}
	exceptions := []*model.AvailabilityException{{
		Date:     monday,
		IsClosed: true,
		Reason:   model.ExceptionReasonHoliday,
	}}

	day := ResolveDay(rules, exceptions, nil, monday)
	assert.False(t, day.Open)
	assert.Equal(t, model.DaySourceException, day.Source)
	assert.Equal(t, model.ExceptionReasonHoliday, day.Reason)
	assert.Empty(t, day.Windows)
}

func TestResolveDayCustomHoursException(t *testing.T) {
	rules := []*model.AvailabilityRule{rule(nil, 1, "09:00", "17:00")}
	exceptions := []*model.AvailabilityException{{
		Date:      monday,
		StartTime: strp("11:00"),
		EndTime:   strp("15:00"),
		Reason:    model.ExceptionReasonOther,
	}}

	day := ResolveDay(rules, exceptions, nil, monday)
	assert.True(t, day.Open)
	assert.Equal(t, model.DaySourceException, day.Source)
	assert.Equal(t, []model.Window{{Start: "11:00", End: "15:00"}}, day.Windows)
}

func TestResolveDayStaffExceptionBeatsBusinessException(t *testing.T) {
	staffID := uuid.New()
	exceptions := []*model.AvailabilityException{
		{Date: monday, StartTime: strp("09:00"), EndTime: strp("17:00")},
		{Date: monday, StaffID: &staffID, IsClosed: true, Reason: model.ExceptionReasonSick},
	}

	day := ResolveDay(nil, exceptions, &staffID, monday)
	assert.False(t, day.Open)
	assert.Equal(t, model.ExceptionReasonSick, day.Reason)

	// The business-wide lookup still sees the custom hours.
	day = ResolveDay(nil, exceptions, nil, monday)
	assert.True(t, day.Open)
	assert.Equal(t, []model.Window{{Start: "09:00", End: "17:00"}}, day.Windows)
}

func TestResolveDayExceptionOnOtherDateIgnored(t *testing.T) {
	rules := []*model.AvailabilityRule{rule(nil, 1, "09:00", "17:00")}
	exceptions := []*model.AvailabilityException{{
		Date:     monday.AddDate(0, 0, 1),
		IsClosed: true,
	}}

	day := ResolveDay(rules, exceptions, nil, monday)
	assert.True(t, day.Open)
	assert.Equal(t, model.DaySourceRule, day.Source)
}

func TestResolveDayInvalidSpansIgnored(t *testing.T) {
	rules := []*model.AvailabilityRule{
		rule(nil, 1, "17:00", "09:00"), // inverted
		rule(nil, 1, "nope", "17:00"),  // unparseable
	}

	day := ResolveDay(rules, nil, nil, monday)
	assert.False(t, day.Open)
	assert.Equal(t, model.DaySourceNone, day.Source)
}

func TestResolveDayExceptionWithInvalidTimesCloses(t *testing.T) {
	// A malformed open exception fails closed rather than falling back to
	// the rules it was meant to override.
	exceptions := []*model.AvailabilityException{{
		Date:      monday,
		StartTime: strp("15:00"),
		EndTime:   strp("11:00"),
	}}
	rules := []*model.AvailabilityRule{rule(nil, 1, "09:00", "17:00")}

	day := ResolveDay(rules, exceptions, nil, monday)
	assert.False(t, day.Open)
	assert.Equal(t, model.DaySourceException, day.Source)
}

func TestWindowSpans(t *testing.T) {
	day := model.DayAvailability{
		Open: true,
		Windows: []model.Window{
			{Start: "09:00", End: "12:00"},
			{Start: "14:00", End: "18:00"},
		},
	}
	spans := WindowSpans(day)
	assert.Len(t, spans, 2)
	assert.Equal(t, 540, spans[0].Start)
	assert.Equal(t, 720, spans[0].End)
	assert.Equal(t, 840, spans[1].Start)
	assert.Equal(t, 1080, spans[1].End)
}
