package schedule

import "fmt"

// Generate returns the ordered list of bookable start times ("HH:MM") for a
// day under the given policy. It is a pure function: no I/O, no clock reads,
// safe to call concurrently.
//
// A cursor walks from start to end in steps of duration+interval. Slots that
// touch the lunch window on either endpoint are dropped and the cursor jumps
// to the end of lunch; slots whose end would run past closing are dropped,
// with the equality case (slot ends exactly at closing) kept.
func Generate(h BusinessHours) ([]string, error) {
	start, err := ParseClock(h.StartTime)
	if err != nil {
		return nil, fmt.Errorf("parse start time: %w", err)
	}
	end, err := ParseClock(h.EndTime)
	if err != nil {
		return nil, fmt.Errorf("parse end time: %w", err)
	}

	duration := h.ConsultationDuration
	if duration <= 0 {
		duration = DefaultConsultationMinutes
	}
	step := duration + h.IntervalBetween
	if step <= 0 {
		return nil, nil
	}

	var lunchStart, lunchEnd int
	if h.EnableLunchBreak {
		lunchStart, err = ParseClock(h.LunchStart)
		if err != nil {
			return nil, fmt.Errorf("parse lunch start: %w", err)
		}
		lunchEnd, err = ParseClock(h.LunchEnd)
		if err != nil {
			return nil, fmt.Errorf("parse lunch end: %w", err)
		}
	}

	var slots []string
	for cursor := start; cursor < end; {
		slotEnd := cursor + duration

		if h.EnableLunchBreak && (within(cursor, lunchStart, lunchEnd) || within(slotEnd, lunchStart, lunchEnd)) {
			// Jump over the blackout instead of stepping, so a lunch window
			// wider than one step cannot stall the walk. When the cursor
			// already sits on the window edge the jump would not advance it;
			// fall back to a normal step then.
			if lunchEnd > cursor {
				cursor = lunchEnd
			} else {
				cursor += step
			}
			continue
		}

		if slotEnd <= end {
			slots = append(slots, FormatClock(cursor))
		}
		cursor += step
	}

	return slots, nil
}

// within reports whether m lies in [lo, hi], endpoints included. A slot that
// merely touches the lunch boundary counts as overlapping.
func within(m, lo, hi int) bool {
	return m >= lo && m <= hi
}
