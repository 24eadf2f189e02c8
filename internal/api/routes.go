package api

import (
	"github.com/go-chi/chi/v5"
)

func (s *Server) setupAPIRoutes(r chi.Router) {
	r.Post("/auth/login", s.handleLogin)

	// Booking
	r.Get("/slots", s.handleAvailableSlots)
	r.Post("/appointments", s.handleCreateAppointment)
	r.Delete("/appointments/{reference}", s.handleCancelAppointment)

	// Catalog (public)
	r.Get("/ebooks", s.handleListEbooks)
	r.Get("/ebooks/{id}", s.handleGetEbook)
	r.Get("/categories", s.handleListCategories)
	r.Get("/users/{userID}/premium-access", s.handlePremiumAccess)

	// Authenticated readers
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/ebooks/{id}/access", s.handleRecordAccess)
		r.Get("/ebooks/{id}/download", s.handleDownloadEbook)
		r.Get("/me/ebooks", s.handleListMyAccess)
	})

	// Admin area
	r.Route("/admin", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Use(s.adminMiddleware)

		r.Get("/schedule", s.handleGetSchedule)
		r.Put("/schedule", s.handleUpdateSchedule)

		r.Get("/appointments", s.handleListAppointments)
		r.Patch("/appointments/{reference}", s.handleUpdateAppointmentStatus)

		r.Post("/ebooks", s.handleCreateEbook)
		r.Put("/ebooks/{id}", s.handleUpdateEbook)
		r.Delete("/ebooks/{id}", s.handleDeleteEbook)
		r.Post("/uploads", s.handleUpload)

		r.Post("/categories", s.handleCreateCategory)
		r.Put("/categories/{id}", s.handleUpdateCategory)
		r.Delete("/categories/{id}", s.handleDeleteCategory)

		r.Put("/subscriptions/{userID}", s.handleUpsertSubscription)

		r.Get("/stats", s.handleStats)
		r.Get("/stats/export", s.handleStatsExport)
	})
}
