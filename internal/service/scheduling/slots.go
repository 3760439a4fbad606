package scheduling

import (
	"time"

	"github.com/reservapr/booking-api/internal/model"
	"github.com/reservapr/booking-api/internal/timeutil"
)

// SlotGranularityMin is the spacing between candidate start times. The
// booking path does not require alignment to it; re-validation at submit
// time is what guards correctness.
const SlotGranularityMin = 30

// buildDaySlots produces the candidate slots for one calendar date. Pure
// function of its inputs: the window spans come from the availability
// resolver, busy holds every occupying appointment whose padded interval may
// touch the day, and minStart is now plus the business's booking notice.
func buildDaySlots(date time.Time, spans []timeutil.Span, svc *model.Service, busy []*model.Appointment, minStart time.Time, loc *time.Location) []model.Slot {
	if svc.DurationMin <= 0 || svc.MaxPerSlot < 1 {
		return nil
	}

	duration := time.Duration(svc.DurationMin) * time.Minute
	bufBefore := time.Duration(svc.BufferBeforeMin) * time.Minute
	bufAfter := time.Duration(svc.BufferAfterMin) * time.Minute

	var slots []model.Slot
	for _, span := range spans {
		for startMin := span.Start; startMin+svc.DurationMin <= span.End; startMin += SlotGranularityMin {
			start := timeutil.OnDate(date, startMin, loc)
			if !start.After(minStart) {
				continue
			}

			padded := timeutil.Interval{
				Start: start.Add(-bufBefore),
				End:   start.Add(duration).Add(bufAfter),
			}
			overlaps := countOverlapping(padded, busy)
			if overlaps >= svc.MaxPerSlot {
				continue
			}

			slots = append(slots, model.Slot{
				StartsAt:  start,
				EndsAt:    start.Add(duration),
				Remaining: svc.MaxPerSlot - overlaps,
			})
		}
	}
	return slots
}

// countOverlapping counts occupying appointments whose own padded intervals
// truly intersect the candidate interval. Touching intervals do not count,
// so a booking ending 10:00 and a candidate starting 10:00 coexist.
func countOverlapping(candidate timeutil.Interval, busy []*model.Appointment) int {
	count := 0
	for _, appt := range busy {
		if !appt.Status.Occupies() {
			continue
		}
		occupied := timeutil.Interval{Start: appt.PaddedStart(), End: appt.PaddedEnd()}
		if candidate.Overlaps(occupied) {
			count++
		}
	}
	return count
}
