package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekdayPolicy() BusinessHours {
	return BusinessHours{
		StartTime:            "08:00",
		EndTime:              "18:00",
		LunchStart:           "12:00",
		LunchEnd:             "13:00",
		ConsultationDuration: 30,
		IntervalBetween:      15,
		EnableLunchBreak:     true,
		AvailableDays:        []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
	}
}

func TestGenerateDefaultPolicy(t *testing.T) {
	slots, err := Generate(weekdayPolicy())
	require.NoError(t, err)

	// 45-minute steps from 08:00; 11:45 would end inside lunch, so the cursor
	// jumps to 13:00, which itself touches the window edge and is dropped.
	expected := []string{
		"08:00", "08:45", "09:30", "10:15", "11:00",
		"13:45", "14:30", "15:15", "16:00", "16:45", "17:30",
	}
	assert.Equal(t, expected, slots)
}

func TestGenerateSlotFitsExactlyAtClosing(t *testing.T) {
	h := BusinessHours{
		StartTime:            "10:00",
		EndTime:              "11:00",
		ConsultationDuration: 60,
		AvailableDays:        []string{"monday"},
	}
	slots, err := Generate(h)
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00"}, slots, "slot ending exactly at closing is kept")
}

func TestGenerateSlotOverrunsClosing(t *testing.T) {
	h := BusinessHours{
		StartTime:            "10:00",
		EndTime:              "11:30",
		ConsultationDuration: 60,
		IntervalBetween:      0,
		AvailableDays:        []string{"monday"},
	}
	slots, err := Generate(h)
	require.NoError(t, err)
	// 11:00 starts before closing but would end at 12:00; dropped, not truncated.
	assert.Equal(t, []string{"10:00"}, slots)
}

func TestGenerateEmptyWindow(t *testing.T) {
	h := weekdayPolicy()
	h.EndTime = h.StartTime
	slots, err := Generate(h)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGenerateWindowShorterThanSlot(t *testing.T) {
	h := BusinessHours{
		StartTime:            "09:00",
		EndTime:              "09:20",
		ConsultationDuration: 30,
		AvailableDays:        []string{"monday"},
	}
	slots, err := Generate(h)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGenerateNoLunchBreak(t *testing.T) {
	h := weekdayPolicy()
	h.EnableLunchBreak = false
	h.IntervalBetween = 0

	slots, err := Generate(h)
	require.NoError(t, err)
	assert.Len(t, slots, 20) // 10 hours / 30 min
	assert.Equal(t, "12:00", slots[8], "lunch slots present when break disabled")
}

func TestGenerateLunchBoundaryInclusive(t *testing.T) {
	// Slot 11:30-12:00 touches the lunch start and must be dropped.
	h := BusinessHours{
		StartTime:            "11:30",
		EndTime:              "15:00",
		LunchStart:           "12:00",
		LunchEnd:             "13:00",
		ConsultationDuration: 30,
		IntervalBetween:      0,
		EnableLunchBreak:     true,
		AvailableDays:        []string{"monday"},
	}
	slots, err := Generate(h)
	require.NoError(t, err)

	assert.NotContains(t, slots, "11:30")
	// 13:00 starts on the lunch end and is dropped too; the walk resumes one
	// step later rather than stalling on the boundary.
	assert.NotContains(t, slots, "13:00")
	assert.Equal(t, []string{"13:30", "14:00", "14:30"}, slots)
}

func TestGenerateLunchWiderThanStep(t *testing.T) {
	h := BusinessHours{
		StartTime:            "09:00",
		EndTime:              "17:00",
		LunchStart:           "11:00",
		LunchEnd:             "14:30",
		ConsultationDuration: 30,
		IntervalBetween:      0,
		EnableLunchBreak:     true,
		AvailableDays:        []string{"monday"},
	}
	slots, err := Generate(h)
	require.NoError(t, err)

	for _, s := range slots {
		m, err := ParseClock(s)
		require.NoError(t, err)
		endM := m + 30
		overlaps := (m >= 11*60 && m <= 14*60+30) || (endM >= 11*60 && endM <= 14*60+30)
		assert.False(t, overlaps, "slot %s overlaps lunch", s)
	}
	assert.Contains(t, slots, "15:00")
}

func TestGenerateMonotonicAndDeterministic(t *testing.T) {
	h := weekdayPolicy()

	first, err := Generate(h)
	require.NoError(t, err)
	second, err := Generate(h)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	for i := 1; i < len(first); i++ {
		prev, err := ParseClock(first[i-1])
		require.NoError(t, err)
		cur, err := ParseClock(first[i])
		require.NoError(t, err)
		assert.Greater(t, cur, prev, "slots must be strictly increasing")
	}
}

func TestGenerateSlotsFitWithinWindow(t *testing.T) {
	h := weekdayPolicy()
	slots, err := Generate(h)
	require.NoError(t, err)

	end, err := ParseClock(h.EndTime)
	require.NoError(t, err)
	for _, s := range slots {
		m, err := ParseClock(s)
		require.NoError(t, err)
		assert.LessOrEqual(t, m+h.ConsultationDuration, end)
	}
}

func TestGenerateMalformedTimes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*BusinessHours)
	}{
		{"bad start", func(h *BusinessHours) { h.StartTime = "eight" }},
		{"bad end", func(h *BusinessHours) { h.EndTime = "25:99" }},
		{"bad lunch start", func(h *BusinessHours) { h.LunchStart = "12" }},
		{"bad lunch end", func(h *BusinessHours) { h.LunchEnd = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := weekdayPolicy()
			tt.mutate(&h)
			_, err := Generate(h)
			assert.Error(t, err)
		})
	}
}

func TestGenerateDefaultsDuration(t *testing.T) {
	h := BusinessHours{
		StartTime:     "09:00",
		EndTime:       "10:00",
		AvailableDays: []string{"monday"},
	}
	slots, err := Generate(h)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30"}, slots)
}
