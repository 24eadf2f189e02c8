// Package schedule computes bookable consultation slots from the clinic's
// business-hours policy.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Bounds enforced when an administrator saves the policy.
const (
	MinConsultationMinutes = 15
	MaxConsultationMinutes = 120
	MaxIntervalMinutes     = 60

	DefaultConsultationMinutes = 30
)

// BusinessHours is the clinic's scheduling policy. A single active policy
// applies to all future dates; there is no historical versioning.
type BusinessHours struct {
	StartTime            string   `json:"start_time" yaml:"start_time"`
	EndTime              string   `json:"end_time" yaml:"end_time"`
	LunchStart           string   `json:"lunch_start" yaml:"lunch_start"`
	LunchEnd             string   `json:"lunch_end" yaml:"lunch_end"`
	ConsultationDuration int      `json:"consultation_duration" yaml:"consultation_duration"`
	IntervalBetween      int      `json:"interval_between" yaml:"interval_between"`
	EnableLunchBreak     bool     `json:"enable_lunch_break" yaml:"enable_lunch_break"`
	AllowWeekends        bool     `json:"allow_weekends" yaml:"allow_weekends"`
	AvailableDays        []string `json:"available_days" yaml:"available_days"`
}

// ValidationError describes a rejected policy field. It is surfaced to the
// admin form as-is.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Validate checks the policy before it is stored. Generation assumes a
// validated policy; inconsistencies that slip through degrade to an empty
// slot list rather than an error at generation time.
func (h BusinessHours) Validate() error {
	start, err := ParseClock(h.StartTime)
	if err != nil {
		return &ValidationError{Field: "start_time", Message: err.Error()}
	}
	end, err := ParseClock(h.EndTime)
	if err != nil {
		return &ValidationError{Field: "end_time", Message: err.Error()}
	}
	if end <= start {
		return &ValidationError{Field: "end_time", Message: "end time must be after start time"}
	}

	if h.ConsultationDuration < MinConsultationMinutes || h.ConsultationDuration > MaxConsultationMinutes {
		return &ValidationError{
			Field:   "consultation_duration",
			Message: fmt.Sprintf("duration must be between %d and %d minutes", MinConsultationMinutes, MaxConsultationMinutes),
		}
	}
	if h.IntervalBetween < 0 || h.IntervalBetween > MaxIntervalMinutes {
		return &ValidationError{
			Field:   "interval_between",
			Message: fmt.Sprintf("interval must be between 0 and %d minutes", MaxIntervalMinutes),
		}
	}

	if h.EnableLunchBreak {
		ls, err := ParseClock(h.LunchStart)
		if err != nil {
			return &ValidationError{Field: "lunch_start", Message: err.Error()}
		}
		le, err := ParseClock(h.LunchEnd)
		if err != nil {
			return &ValidationError{Field: "lunch_end", Message: err.Error()}
		}
		if le <= ls {
			return &ValidationError{Field: "lunch_end", Message: "lunch end must be after lunch start"}
		}
	}

	if len(h.AvailableDays) == 0 {
		return &ValidationError{Field: "available_days", Message: "select at least one day"}
	}
	for _, day := range h.AvailableDays {
		wd, ok := weekdayNames[strings.ToLower(day)]
		if !ok {
			return &ValidationError{Field: "available_days", Message: fmt.Sprintf("unknown day: %s", day)}
		}
		if !h.AllowWeekends && (wd == time.Saturday || wd == time.Sunday) {
			return &ValidationError{Field: "available_days", Message: "weekends are not enabled"}
		}
	}

	return nil
}

// AppliesTo reports whether the policy makes a weekday bookable.
func (h BusinessHours) AppliesTo(day time.Weekday) bool {
	if !h.AllowWeekends && (day == time.Saturday || day == time.Sunday) {
		return false
	}
	for _, name := range h.AvailableDays {
		if wd, ok := weekdayNames[strings.ToLower(name)]; ok && wd == day {
			return true
		}
	}
	return false
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time format: %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time out of range: %q", s)
	}
	return hour*60 + minute, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
