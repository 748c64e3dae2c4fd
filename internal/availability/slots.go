package availability

import (
	"clinic/pkg/model"
	"clinic/pkg/timeutil"
)

// templateWindow is a schedule template with its clock strings already parsed
// into minutes since midnight. Templates that fail to parse never reach here;
// write-time validation guards the collection.
type templateWindow struct {
	start, end  int
	duration    int
	breakStart  int
	breakEnd    int
	hasBreak    bool
	maxPatients int
}

func parseTemplate(t *model.ScheduleTemplate) (templateWindow, bool) {
	w := templateWindow{duration: t.SlotDurationMinutes, maxPatients: t.MaxPatients}
	if w.duration <= 0 {
		return w, false
	}

	var err error
	if w.start, err = timeutil.ParseClock(t.StartTime); err != nil {
		return w, false
	}
	if w.end, err = timeutil.ParseClock(t.EndTime); err != nil {
		return w, false
	}
	if w.start >= w.end {
		return w, false
	}

	if t.HasBreak() {
		bs, errBS := timeutil.ParseClock(t.BreakStart)
		be, errBE := timeutil.ParseClock(t.BreakEnd)
		if errBS == nil && errBE == nil && bs < be {
			w.breakStart, w.breakEnd, w.hasBreak = bs, be, true
		}
	}

	return w, true
}

// inBreak reports whether the candidate slot [start, start+duration) falls
// entirely within the template's break window.
func (w templateWindow) inBreak(slotStart int) bool {
	return w.hasBreak && slotStart >= w.breakStart && slotStart+w.duration <= w.breakEnd
}

// admits reports whether a minute-of-day lands on a bookable slot boundary:
// on the grid anchored at the window start, fully inside the window, and not
// inside the break.
func (w templateWindow) admits(minute int) bool {
	if minute < w.start || minute+w.duration > w.end {
		return false
	}
	if (minute-w.start)%w.duration != 0 {
		return false
	}
	return !w.inBreak(minute)
}

// slotStarts walks the window grid and yields every bookable slot start, in
// ascending order. Trailing partial slots (end past the window) are never
// emitted.
func (w templateWindow) slotStarts() []int {
	var starts []int
	for cursor := w.start; cursor+w.duration <= w.end; cursor += w.duration {
		if w.inBreak(cursor) {
			continue
		}
		starts = append(starts, cursor)
	}
	return starts
}

// capacity is the number of bookable slots the window yields per day, clamped
// by the template's patient cap when one is set.
func (w templateWindow) capacity() int {
	breakMinutes := 0
	if w.hasBreak {
		breakMinutes = w.breakEnd - w.breakStart
	}
	c := (w.end - w.start - breakMinutes) / w.duration
	if c < 0 {
		c = 0
	}
	if w.maxPatients > 0 && c > w.maxPatients {
		c = w.maxPatients
	}
	return c
}
