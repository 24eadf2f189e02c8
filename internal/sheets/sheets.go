// Package sheets mirrors the appointment book into a Google Spreadsheet the
// clinic staff already works in.
package sheets

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"clinica/internal/models"
)

const appointmentsRange = "Appointments!A1"

// SheetsService syncs appointments to one spreadsheet tab.
type SheetsService struct {
	srv           *sheets.Service
	spreadsheetID string
	logger        zerolog.Logger
}

// NewSheetsService builds a service from service-account credentials JSON.
func NewSheetsService(ctx context.Context, credentialsJSON []byte, spreadsheetID string, logger zerolog.Logger) (*SheetsService, error) {
	cfg, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsService{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		logger:        logger.With().Str("component", "sheets").Logger(),
	}, nil
}

// SyncAppointments rewrites the Appointments tab with the current active
// bookings. Cancelled appointments are filtered out.
func (s *SheetsService) SyncAppointments(ctx context.Context, appointments []models.Appointment) error {
	active := filterActive(appointments)

	values := [][]interface{}{
		{"Reference", "Patient", "Email", "Phone", "Type", "Date", "Time", "Status"},
	}
	for i := range active {
		values = append(values, appointmentRowValues(&active[i]))
	}

	clearReq := sheets.ClearValuesRequest{}
	if _, err := s.srv.Spreadsheets.Values.
		Clear(s.spreadsheetID, appointmentsRange, &clearReq).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}

	body := sheets.ValueRange{Values: values}
	if _, err := s.srv.Spreadsheets.Values.
		Update(s.spreadsheetID, appointmentsRange, &body).
		ValueInputOption("RAW").
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("update sheet: %w", err)
	}

	s.logger.Info().Int("rows", len(active)).Msg("appointments synced to sheet")
	return nil
}

func filterActive(appointments []models.Appointment) []models.Appointment {
	active := make([]models.Appointment, 0, len(appointments))
	for i := range appointments {
		if appointments[i].IsActive() {
			active = append(active, appointments[i])
		}
	}
	return active
}

func appointmentRowValues(a *models.Appointment) []interface{} {
	return []interface{}{
		a.Reference,
		a.PatientName,
		a.PatientEmail,
		a.PatientPhone,
		a.Type,
		a.Date,
		a.StartTime,
		a.Status,
	}
}
