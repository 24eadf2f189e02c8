package database

import (
	"context"
	"database/sql"
	"fmt"

	"clinica/internal/models"
)

// ErrSlotTaken reports a booking collision on (date, start_time).
var ErrSlotTaken = fmt.Errorf("slot already booked")

// CreateAppointment inserts an appointment after checking the slot is still
// free among non-cancelled appointments.
func (db *DB) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var count int64
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE date = ? AND start_time = ? AND status != ?`,
		a.Date, a.StartTime, models.AppointmentCancelled,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("check slot: %w", err)
	}
	if count > 0 {
		return ErrSlotTaken
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO appointments (reference, patient_name, patient_email, patient_phone, type, date, start_time, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Reference, a.PatientName, a.PatientEmail, a.PatientPhone, a.Type, a.Date, a.StartTime, a.Status,
	)
	if err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	return tx.Commit()
}

const appointmentColumns = `
	id, reference, patient_name, patient_email, patient_phone, type,
	date, start_time, status, created_at, updated_at`

func scanAppointment(row interface{ Scan(...any) error }) (*models.Appointment, error) {
	var (
		a     models.Appointment
		phone sql.NullString
		typ   sql.NullString
	)
	err := row.Scan(&a.ID, &a.Reference, &a.PatientName, &a.PatientEmail, &phone, &typ,
		&a.Date, &a.StartTime, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.PatientPhone = phone.String
	a.Type = typ.String
	return &a, nil
}

// GetAppointmentByReference looks an appointment up by its public reference.
func (db *DB) GetAppointmentByReference(ctx context.Context, reference string) (*models.Appointment, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE reference = ?`, reference)
	a, err := scanAppointment(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

// ListAppointmentsByDate returns all appointments on one day.
func (db *DB) ListAppointmentsByDate(ctx context.Context, date string) ([]models.Appointment, error) {
	return db.listAppointments(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE date = ? ORDER BY start_time`, date)
}

// ListAppointmentsByRange returns appointments between two dates inclusive.
func (db *DB) ListAppointmentsByRange(ctx context.Context, from, to string) ([]models.Appointment, error) {
	return db.listAppointments(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE date >= ? AND date <= ? ORDER BY date, start_time`,
		from, to)
}

func (db *DB) listAppointments(ctx context.Context, query string, args ...any) ([]models.Appointment, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var result []models.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

// UpdateAppointmentStatus transitions an appointment by reference.
func (db *DB) UpdateAppointmentStatus(ctx context.Context, reference, status string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE appointments SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE reference = ?`,
		status, reference,
	)
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	return requireAffected(res)
}
