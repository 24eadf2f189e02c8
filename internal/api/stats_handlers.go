package api

import (
	"net/http"
	"time"

	"clinica/internal/reports"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetEbookStats(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStatsExport(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetEbookStats(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	from := time.Now().AddDate(0, -1, 0).Format("2006-01-02")
	to := time.Now().AddDate(0, 1, 0).Format("2006-01-02")
	appointments, err := s.db.ListAppointmentsByRange(r.Context(), from, to)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to load appointments")
		return
	}

	workbook, err := reports.EbookStatsWorkbook(stats, appointments)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	filename := "clinica-report-" + time.Now().Format("2006-01-02") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if _, err := workbook.WriteTo(w); err != nil {
		s.logger.Error().Err(err).Msg("stream report failed")
	}
}
