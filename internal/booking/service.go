// Package booking turns the business-hours policy into available slots and
// records appointments against them.
package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clinica/internal/events"
	"clinica/internal/metrics"
	"clinica/internal/models"
	"clinica/internal/schedule"
)

// Repository is the storage surface the booking service needs.
type Repository interface {
	GetBusinessHours(ctx context.Context) (schedule.BusinessHours, error)
	ListAppointmentsByDate(ctx context.Context, date string) ([]models.Appointment, error)
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	GetAppointmentByReference(ctx context.Context, reference string) (*models.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, reference, status string) error
}

// Request carries the fields a patient submits to book a consultation.
type Request struct {
	PatientName  string `json:"patient_name"`
	PatientEmail string `json:"patient_email"`
	PatientPhone string `json:"patient_phone,omitempty"`
	Type         string `json:"type,omitempty"`
	Date         string `json:"date"`       // YYYY-MM-DD
	StartTime    string `json:"start_time"` // HH:MM
}

// Validate checks the submission before any storage work.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.PatientName) == "" {
		return fmt.Errorf("patient name is required")
	}
	if !strings.Contains(r.PatientEmail, "@") {
		return fmt.Errorf("valid patient email is required")
	}
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return fmt.Errorf("invalid date format; expected YYYY-MM-DD")
	}
	if _, err := schedule.ParseClock(r.StartTime); err != nil {
		return fmt.Errorf("invalid start time: %w", err)
	}
	return nil
}

// ErrSlotUnavailable is returned when the requested start time is not among
// the day's open slots.
var ErrSlotUnavailable = fmt.Errorf("slot not available")

// Service coordinates slot generation and appointment persistence.
type Service struct {
	repo   Repository
	bus    *events.Bus
	logger zerolog.Logger
}

// NewService creates a booking service. bus may be nil when no side effects
// are wired (tests).
func NewService(repo Repository, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		bus:    bus,
		logger: logger.With().Str("component", "booking").Logger(),
	}
}

// AvailableSlots returns the bookable start times for a date: the generated
// sequence minus slots already taken by active appointments. A policy whose
// clock strings fail to parse yields an empty list, never an error to the
// caller; the condition is logged for the admin to fix.
func (s *Service) AvailableSlots(ctx context.Context, date time.Time) ([]string, error) {
	hours, err := s.repo.GetBusinessHours(ctx)
	if err != nil {
		return nil, fmt.Errorf("load business hours: %w", err)
	}

	if !hours.AppliesTo(date.Weekday()) {
		return []string{}, nil
	}

	all, err := schedule.Generate(hours)
	if err != nil {
		s.logger.Error().Err(err).Msg("slot generation failed, returning no availability")
		return []string{}, nil
	}

	dateStr := date.Format("2006-01-02")
	appointments, err := s.repo.ListAppointmentsByDate(ctx, dateStr)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	taken := make(map[string]bool, len(appointments))
	for i := range appointments {
		if appointments[i].IsActive() {
			taken[appointments[i].StartTime] = true
		}
	}

	free := make([]string, 0, len(all))
	for _, slot := range all {
		if !taken[slot] {
			free = append(free, slot)
		}
	}
	return free, nil
}

// Book validates the request, confirms the slot is open and persists the
// appointment under a fresh reference.
func (s *Service) Book(ctx context.Context, req Request) (*models.Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	date, _ := time.Parse("2006-01-02", req.Date)
	slots, err := s.AvailableSlots(ctx, date)
	if err != nil {
		return nil, err
	}
	open := false
	for _, slot := range slots {
		if slot == req.StartTime {
			open = true
			break
		}
	}
	if !open {
		return nil, ErrSlotUnavailable
	}

	appointment := &models.Appointment{
		Reference:    uuid.NewString(),
		PatientName:  strings.TrimSpace(req.PatientName),
		PatientEmail: strings.TrimSpace(req.PatientEmail),
		PatientPhone: strings.TrimSpace(req.PatientPhone),
		Type:         req.Type,
		Date:         req.Date,
		StartTime:    req.StartTime,
		Status:       models.AppointmentPending,
	}
	if err := s.repo.CreateAppointment(ctx, appointment); err != nil {
		return nil, err
	}

	metrics.IncAppointmentCreated(appointment.Status)
	s.logger.Info().
		Str("reference", appointment.Reference).
		Str("date", appointment.Date).
		Str("start_time", appointment.StartTime).
		Msg("appointment booked")

	if s.bus != nil {
		s.bus.Publish(events.Event{Type: events.AppointmentCreated, Payload: appointment})
	}
	return appointment, nil
}

// Cancel marks an appointment cancelled by its public reference.
func (s *Service) Cancel(ctx context.Context, reference string) error {
	appointment, err := s.repo.GetAppointmentByReference(ctx, reference)
	if err != nil {
		return err
	}
	if appointment.Status == models.AppointmentCancelled {
		return nil
	}

	if err := s.repo.UpdateAppointmentStatus(ctx, reference, models.AppointmentCancelled); err != nil {
		return err
	}

	metrics.IncAppointmentCancelled()
	s.logger.Info().Str("reference", reference).Msg("appointment cancelled")

	if s.bus != nil {
		appointment.Status = models.AppointmentCancelled
		s.bus.Publish(events.Event{Type: events.AppointmentCancelled, Payload: appointment})
	}
	return nil
}
