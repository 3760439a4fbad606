package availability

import (
	"time"

	"github.com/google/uuid"

	"github.com/reservapr/booking-api/internal/model"
	"github.com/reservapr/booking-api/internal/timeutil"
)

// ResolveDay computes the availability of one calendar date from an in-memory
// rule and exception set. It is a pure function: the slot generator and the
// day-summary endpoint both call it with data loaded once per request.
//
// Precedence across the two layers:
//  1. Exceptions are authoritative when present for the date. A staff-specific
//     exception beats a business-wide one; either beats every weekly rule.
//  2. Otherwise weekly rules for the weekday apply. If the staff member has
//     any rules at all for that weekday, only those count; the business-wide
//     set is the fallback, not an additive layer.
//  3. No exception and no rule means closed. Missing configuration is a
//     normal state, never an error.
func ResolveDay(rules []*model.AvailabilityRule, exceptions []*model.AvailabilityException, staffID *uuid.UUID, date time.Time) model.DayAvailability {
	day := model.DayAvailability{
		Date:   date.Format("2006-01-02"),
		Source: model.DaySourceNone,
	}

	if exc := pickException(exceptions, staffID, date); exc != nil {
		day.Source = model.DaySourceException
		day.Reason = exc.Reason
		if exc.IsClosed || exc.StartTime == nil || exc.EndTime == nil {
			return day
		}
		span, ok := spanFromTimes(*exc.StartTime, *exc.EndTime)
		if !ok {
			return day
		}
		day.Open = true
		day.Windows = spansToWindows([]timeutil.Span{span})
		return day
	}

	spans := ruleSpans(rules, staffID, int(date.Weekday()))
	if len(spans) == 0 {
		return day
	}

	day.Source = model.DaySourceRule
	day.Open = true
	day.Windows = spansToWindows(timeutil.MergeSpans(spans))
	return day
}

// pickException returns the authoritative exception for the date: the
// staff-specific row when the lookup is staff-scoped and one exists, else the
// business-wide row. Later-updated rows win among duplicates, which the
// upsert path prevents but legacy data may contain.
func pickException(exceptions []*model.AvailabilityException, staffID *uuid.UUID, date time.Time) *model.AvailabilityException {
	var staffMatch, businessMatch *model.AvailabilityException
	for _, exc := range exceptions {
		if !sameDate(exc.Date, date) {
			continue
		}
		switch {
		case exc.StaffID == nil:
			if businessMatch == nil || exc.UpdatedAt.After(businessMatch.UpdatedAt) {
				businessMatch = exc
			}
		case staffID != nil && *exc.StaffID == *staffID:
			if staffMatch == nil || exc.UpdatedAt.After(staffMatch.UpdatedAt) {
				staffMatch = exc
			}
		}
	}
	if staffMatch != nil {
		return staffMatch
	}
	return businessMatch
}

// ruleSpans collects the open spans for a weekday. Staff-specific rules
// replace the business-wide set entirely when any exist for that weekday.
func ruleSpans(rules []*model.AvailabilityRule, staffID *uuid.UUID, weekday int) []timeutil.Span {
	var staffSpans, businessSpans []timeutil.Span
	for _, rule := range rules {
		if rule.Weekday != weekday {
			continue
		}
		span, ok := spanFromTimes(rule.StartTime, rule.EndTime)
		if !ok {
			continue
		}
		switch {
		case rule.StaffID == nil:
			businessSpans = append(businessSpans, span)
		case staffID != nil && *rule.StaffID == *staffID:
			staffSpans = append(staffSpans, span)
		}
	}
	if len(staffSpans) > 0 {
		return staffSpans
	}
	return businessSpans
}

func spanFromTimes(start, end string) (timeutil.Span, bool) {
	startMin, err := timeutil.ParseHHMM(start)
	if err != nil {
		return timeutil.Span{}, false
	}
	endMin, err := timeutil.ParseHHMM(end)
	if err != nil {
		return timeutil.Span{}, false
	}
	span := timeutil.Span{Start: startMin, End: endMin}
	return span, span.Valid()
}

func spansToWindows(spans []timeutil.Span) []model.Window {
	windows := make([]model.Window, 0, len(spans))
	for _, s := range spans {
		windows = append(windows, model.Window{
			Start: timeutil.FormatMinutes(s.Start),
			End:   timeutil.FormatMinutes(s.End),
		})
	}
	return windows
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// WindowSpans converts resolved windows back to minute spans for slot math.
func WindowSpans(day model.DayAvailability) []timeutil.Span {
	spans := make([]timeutil.Span, 0, len(day.Windows))
	for _, w := range day.Windows {
		startMin, err := timeutil.ParseHHMM(w.Start)
		if err != nil {
			continue
		}
		endMin, err := timeutil.ParseHHMM(w.End)
		if err != nil {
			continue
		}
		spans = append(spans, timeutil.Span{Start: startMin, End: endMin})
	}
	return spans
}
