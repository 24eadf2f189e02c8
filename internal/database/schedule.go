package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"clinica/internal/schedule"
)

// DefaultBusinessHours is applied when no policy has been saved yet.
var DefaultBusinessHours = schedule.BusinessHours{
	StartTime:            "08:00",
	EndTime:              "18:00",
	LunchStart:           "12:00",
	LunchEnd:             "13:00",
	ConsultationDuration: 30,
	IntervalBetween:      15,
	EnableLunchBreak:     true,
	AllowWeekends:        false,
	AvailableDays:        []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
}

// GetBusinessHours returns the active policy, falling back to the default
// when none has been configured.
func (db *DB) GetBusinessHours(ctx context.Context) (schedule.BusinessHours, error) {
	var (
		h          schedule.BusinessHours
		lunchStart sql.NullString
		lunchEnd   sql.NullString
		days       string
	)
	err := db.QueryRowContext(ctx, `
		SELECT start_time, end_time, lunch_start, lunch_end,
		       consultation_duration, interval_between,
		       enable_lunch_break, allow_weekends, available_days
		FROM business_hours WHERE id = 1`,
	).Scan(
		&h.StartTime, &h.EndTime, &lunchStart, &lunchEnd,
		&h.ConsultationDuration, &h.IntervalBetween,
		&h.EnableLunchBreak, &h.AllowWeekends, &days,
	)
	if err == sql.ErrNoRows {
		return DefaultBusinessHours, nil
	}
	if err != nil {
		return schedule.BusinessHours{}, fmt.Errorf("get business hours: %w", err)
	}

	h.LunchStart = lunchStart.String
	h.LunchEnd = lunchEnd.String
	if days != "" {
		h.AvailableDays = strings.Split(days, ",")
	}
	return h, nil
}

// SaveBusinessHours replaces the active policy. Callers validate first.
func (db *DB) SaveBusinessHours(ctx context.Context, h schedule.BusinessHours) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO business_hours (
			id, start_time, end_time, lunch_start, lunch_end,
			consultation_duration, interval_between,
			enable_lunch_break, allow_weekends, available_days, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			lunch_start = excluded.lunch_start,
			lunch_end = excluded.lunch_end,
			consultation_duration = excluded.consultation_duration,
			interval_between = excluded.interval_between,
			enable_lunch_break = excluded.enable_lunch_break,
			allow_weekends = excluded.allow_weekends,
			available_days = excluded.available_days,
			updated_at = CURRENT_TIMESTAMP`,
		h.StartTime, h.EndTime, h.LunchStart, h.LunchEnd,
		h.ConsultationDuration, h.IntervalBetween,
		h.EnableLunchBreak, h.AllowWeekends, strings.Join(h.AvailableDays, ","),
	)
	if err != nil {
		return fmt.Errorf("save business hours: %w", err)
	}
	return nil
}
