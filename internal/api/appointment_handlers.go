package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"clinica/internal/booking"
	"clinica/internal/database"
	"clinica/internal/models"
	"clinica/internal/schedule"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email  string `json:"email"`
		Secret string `json:"secret"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	emailOK := subtle.ConstantTimeCompare([]byte(req.Email), []byte(s.adminEmail)) == 1
	secretOK := subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.adminSecret)) == 1
	if s.adminEmail == "" || !emailOK || !secretOK {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.auth.GenerateToken("admin", req.Email, true)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"token_type": "Bearer",
	})
}

func (s *Server) handleAvailableSlots(w http.ResponseWriter, r *http.Request) {
	dateStr := r.URL.Query().Get("date")
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid date; expected YYYY-MM-DD")
		return
	}

	slots, err := s.booking.AvailableSlots(r.Context(), date)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to load availability")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":  dateStr,
		"slots": slots,
	})
}

func (s *Server) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req booking.Request
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	appointment, err := s.booking.Book(r.Context(), req)
	switch {
	case err == nil:
		s.respondJSON(w, http.StatusCreated, appointment)
	case errors.Is(err, booking.ErrSlotUnavailable), errors.Is(err, database.ErrSlotTaken):
		s.respondError(w, http.StatusConflict, "slot not available")
	default:
		s.respondError(w, http.StatusBadRequest, err.Error())
	}
}

func (s *Server) handleCancelAppointment(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	err := s.booking.Cancel(r.Context(), reference)
	switch {
	case err == nil:
		s.respondJSON(w, http.StatusOK, map[string]string{"reference": reference, "status": models.AppointmentCancelled})
	case errors.Is(err, database.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "appointment not found")
	default:
		s.respondError(w, http.StatusInternalServerError, "failed to cancel appointment")
	}
}

func (s *Server) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" {
		from = time.Now().Format("2006-01-02")
	}
	if to == "" {
		to = time.Now().AddDate(0, 1, 0).Format("2006-01-02")
	}

	appointments, err := s.db.ListAppointmentsByRange(r.Context(), from, to)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"appointments": appointments,
		"from":         from,
		"to":           to,
	})
}

var appointmentStatuses = map[string]bool{
	models.AppointmentPending:   true,
	models.AppointmentConfirmed: true,
	models.AppointmentCancelled: true,
	models.AppointmentCompleted: true,
}

func (s *Server) handleUpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !appointmentStatuses[req.Status] {
		s.respondError(w, http.StatusBadRequest, "unknown status")
		return
	}

	if req.Status == models.AppointmentCancelled {
		// Route through the service so the cancellation event fires.
		if err := s.booking.Cancel(r.Context(), reference); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				s.respondError(w, http.StatusNotFound, "appointment not found")
				return
			}
			s.respondError(w, http.StatusInternalServerError, "failed to update appointment")
			return
		}
	} else if err := s.db.UpdateAppointmentStatus(r.Context(), reference, req.Status); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "appointment not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, "failed to update appointment")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"reference": reference, "status": req.Status})
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	hours, err := s.db.GetBusinessHours(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to load schedule")
		return
	}
	s.respondJSON(w, http.StatusOK, hours)
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var hours schedule.BusinessHours
	if err := decodeJSON(r, &hours); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := hours.Validate(); err != nil {
		var vErr *schedule.ValidationError
		if errors.As(err, &vErr) {
			s.respondValidationError(w, vErr)
			return
		}
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.db.SaveBusinessHours(r.Context(), hours); err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to save schedule")
		return
	}

	s.logger.Info().Msg("business hours updated")
	s.respondJSON(w, http.StatusOK, hours)
}
