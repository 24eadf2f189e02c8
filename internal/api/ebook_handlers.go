package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clinica/internal/database"
	"clinica/internal/events"
	"clinica/internal/metrics"
	"clinica/internal/models"
)

func (s *Server) handleListEbooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := database.EbookFilter{
		CategoryID: q.Get("category_id"),
		Search:     q.Get("search"),
	}
	if v := q.Get("is_premium"); v != "" {
		premium, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid is_premium value")
			return
		}
		filter.IsPremium = &premium
	}
	if v := q.Get("page"); v != "" {
		filter.Page, _ = strconv.Atoi(v)
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}

	ebooks, total, err := s.db.ListEbooks(r.Context(), filter)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to list ebooks")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"ebooks": ebooks,
		"total":  total,
	})
}

func (s *Server) handleGetEbook(w http.ResponseWriter, r *http.Request) {
	ebook, err := s.db.GetEbook(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, database.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "ebook not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to load ebook")
		return
	}
	s.respondJSON(w, http.StatusOK, ebook)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.db.ListCategories(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"categories": categories})
}

func (s *Server) handlePremiumAccess(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	hasAccess := s.premium.HasAccess(r.Context(), userID)
	s.respondJSON(w, http.StatusOK, map[string]bool{"has_access": hasAccess})
}

func (s *Server) handleRecordAccess(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	ebookID := chi.URLParam(r, "id")

	if _, err := s.db.GetEbook(r.Context(), ebookID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "ebook not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, "failed to load ebook")
		return
	}

	access, err := s.db.RecordAccess(r.Context(), claims.UserID, ebookID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to record access")
		return
	}
	if err := s.db.IncrementViewCount(r.Context(), ebookID); err != nil {
		s.logger.Error().Err(err).Str("ebook_id", ebookID).Msg("increment view count failed")
	}

	s.respondJSON(w, http.StatusOK, access)
}

func (s *Server) handleDownloadEbook(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	ebookID := chi.URLParam(r, "id")

	ebook, err := s.db.GetEbook(r.Context(), ebookID)
	if errors.Is(err, database.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "ebook not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to load ebook")
		return
	}
	if !ebook.IsActive {
		s.respondError(w, http.StatusNotFound, "ebook not found")
		return
	}

	tier := "free"
	if ebook.IsPremium {
		tier = "premium"
		if !s.premium.HasAccess(r.Context(), claims.UserID) {
			s.respondError(w, http.StatusForbidden, "premium access required")
			return
		}
	}

	f, err := s.uploads.Open(ebook.FileURL)
	if err != nil {
		s.logger.Error().Err(err).Str("ebook_id", ebookID).Msg("ebook file missing")
		s.respondError(w, http.StatusNotFound, "ebook file not available")
		return
	}
	defer f.Close()

	if err := s.db.RecordDownload(r.Context(), claims.UserID, ebookID); err != nil {
		s.logger.Error().Err(err).Str("ebook_id", ebookID).Msg("record download failed")
	}
	if err := s.db.IncrementDownloadCount(r.Context(), ebookID); err != nil {
		s.logger.Error().Err(err).Str("ebook_id", ebookID).Msg("increment download count failed")
	}
	metrics.IncEbookDownload(tier)
	if s.bus != nil {
		s.bus.Publish(events.Event{Type: events.EbookDownloaded, Payload: ebook})
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", ebook.Title+"."+ebook.FileType))
	if _, err := io.Copy(w, f); err != nil {
		s.logger.Error().Err(err).Str("ebook_id", ebookID).Msg("stream ebook failed")
	}
}

func (s *Server) handleListMyAccess(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	access, err := s.db.ListUserAccess(r.Context(), claims.UserID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to list access")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"access": access})
}

func (s *Server) handleCreateEbook(w http.ResponseWriter, r *http.Request) {
	var ebook models.Ebook
	if err := decodeJSON(r, &ebook); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := ebook.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.db.GetCategory(r.Context(), ebook.CategoryID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.respondError(w, http.StatusBadRequest, "category does not exist")
			return
		}
		s.respondError(w, http.StatusInternalServerError, "failed to check category")
		return
	}

	ebook.ID = uuid.NewString()
	ebook.IsActive = true
	if err := s.db.CreateEbook(r.Context(), &ebook); err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to create ebook")
		return
	}

	s.logger.Info().Str("ebook_id", ebook.ID).Str("title", ebook.Title).Msg("ebook created")
	s.respondJSON(w, http.StatusCreated, ebook)
}

func (s *Server) handleUpdateEbook(w http.ResponseWriter, r *http.Request) {
	var ebook models.Ebook
	if err := decodeJSON(r, &ebook); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	ebook.ID = chi.URLParam(r, "id")

	if err := ebook.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := s.db.UpdateEbook(r.Context(), &ebook)
	switch {
	case err == nil:
		s.respondJSON(w, http.StatusOK, ebook)
	case errors.Is(err, database.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "ebook not found")
	default:
		s.respondError(w, http.StatusInternalServerError, "failed to update ebook")
	}
}

func (s *Server) handleDeleteEbook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ebook, err := s.db.GetEbook(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "ebook not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to load ebook")
		return
	}

	if err := s.db.DeleteEbook(r.Context(), id); err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to delete ebook")
		return
	}
	if ebook.FileURL != "" {
		if err := s.uploads.Remove(ebook.FileURL); err != nil {
			s.logger.Error().Err(err).Str("ebook_id", id).Msg("remove ebook file failed")
		}
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	_, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file field is required")
		return
	}

	name, err := s.uploads.SaveUpload(header)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"file_url":  name,
		"file_size": header.Size,
	})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var category models.EbookCategory
	if err := decodeJSON(r, &category); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if category.Name == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	category.ID = uuid.NewString()
	if err := s.db.CreateCategory(r.Context(), &category); err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to create category")
		return
	}
	s.respondJSON(w, http.StatusCreated, category)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var category models.EbookCategory
	if err := decodeJSON(r, &category); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	category.ID = chi.URLParam(r, "id")
	if category.Name == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	err := s.db.UpdateCategory(r.Context(), &category)
	switch {
	case err == nil:
		s.respondJSON(w, http.StatusOK, category)
	case errors.Is(err, database.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "category not found")
	default:
		s.respondError(w, http.StatusInternalServerError, "failed to update category")
	}
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := s.db.DeleteCategory(r.Context(), id)
	switch {
	case err == nil:
		s.respondJSON(w, http.StatusOK, map[string]string{"id": id})
	case errors.Is(err, database.ErrCategoryInUse):
		s.respondError(w, http.StatusConflict, "category still has ebooks")
	case errors.Is(err, database.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "category not found")
	default:
		s.respondError(w, http.StatusInternalServerError, "failed to delete category")
	}
}

func (s *Server) handleUpsertSubscription(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req struct {
		Status        models.SubscriptionStatus `json:"status"`
		PreapprovalID string                    `json:"preapproval_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch req.Status {
	case models.SubscriptionActive, models.SubscriptionInactive,
		models.SubscriptionCancelled, models.SubscriptionExpired:
	default:
		s.respondError(w, http.StatusBadRequest, "unknown subscription status")
		return
	}

	sub := &models.Subscription{
		UserID:        userID,
		Status:        req.Status,
		PreapprovalID: req.PreapprovalID,
	}
	if err := s.db.UpsertSubscription(r.Context(), sub); err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}

	s.logger.Info().Str("user_id", userID).Str("status", string(req.Status)).Msg("subscription updated")
	s.respondJSON(w, http.StatusOK, sub)
}
