package models

import (
	"fmt"
	"strings"
	"time"
)

// SubscriptionStatus is the locally stored state of a premium subscription.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionInactive  SubscriptionStatus = "INACTIVE"
	SubscriptionCancelled SubscriptionStatus = "CANCELLED"
	SubscriptionExpired   SubscriptionStatus = "EXPIRED"
)

// Subscription is a user's premium entitlement record. At most one exists
// per user; status and preapproval_id are written by webhook/admin flows.
type Subscription struct {
	ID            int64              `json:"id"`
	UserID        string             `json:"user_id"`
	Status        SubscriptionStatus `json:"status"`
	PreapprovalID string             `json:"preapproval_id,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// EbookCategory groups ebooks in the content library.
type EbookCategory struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Ebook is a catalog entry. Premium ebooks require an entitled subscription
// to download; free ones only require an authenticated user.
type Ebook struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Author        string    `json:"author"`
	CoverImage    string    `json:"cover_image,omitempty"`
	FileURL       string    `json:"file_url"`
	FileType      string    `json:"file_type"`
	FileSize      int64     `json:"file_size,omitempty"`
	IsPremium     bool      `json:"is_premium"`
	Price         float64   `json:"price,omitempty"`
	CategoryID    string    `json:"category_id"`
	IsActive      bool      `json:"is_active"`
	DownloadCount int64     `json:"download_count"`
	ViewCount     int64     `json:"view_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Category *EbookCategory `json:"category,omitempty"`
}

// AllowedFileTypes are the ebook formats accepted on upload.
var AllowedFileTypes = []string{"pdf", "epub", "mobi"}

// Validate checks invariants enforced before an ebook is persisted.
func (e *Ebook) Validate() error {
	if len(strings.TrimSpace(e.Title)) < 3 {
		return fmt.Errorf("title must be at least 3 characters")
	}
	if len(e.Title) > 200 {
		return fmt.Errorf("title must be at most 200 characters")
	}
	if len(strings.TrimSpace(e.Author)) < 2 {
		return fmt.Errorf("author must be at least 2 characters")
	}
	if e.CategoryID == "" {
		return fmt.Errorf("category is required")
	}
	if e.IsPremium && e.Price <= 0 {
		return fmt.Errorf("premium ebooks must have a positive price")
	}
	if e.Price < 0 || e.Price > 9999.99 {
		return fmt.Errorf("price must be between 0 and 9999.99")
	}
	ok := false
	for _, ft := range AllowedFileTypes {
		if e.FileType == ft {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("unsupported file type: %s", e.FileType)
	}
	return nil
}

// UserEbookAccess tracks a user's interaction with one ebook.
type UserEbookAccess struct {
	ID            int64      `json:"id"`
	UserID        string     `json:"user_id"`
	EbookID       string     `json:"ebook_id"`
	DownloadCount int64      `json:"download_count"`
	LastDownload  *time.Time `json:"last_download,omitempty"`
	FirstAccess   time.Time  `json:"first_access"`
	LastAccess    time.Time  `json:"last_access"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Appointment statuses.
const (
	AppointmentPending   = "pending"
	AppointmentConfirmed = "confirmed"
	AppointmentCancelled = "cancelled"
	AppointmentCompleted = "completed"
)

// Appointment is a booked consultation slot.
type Appointment struct {
	ID           int64     `json:"id"`
	Reference    string    `json:"reference"`
	PatientName  string    `json:"patient_name"`
	PatientEmail string    `json:"patient_email"`
	PatientPhone string    `json:"patient_phone,omitempty"`
	Type         string    `json:"type,omitempty"`
	Date         string    `json:"date"`       // YYYY-MM-DD
	StartTime    string    `json:"start_time"` // HH:MM
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsActive reports whether the appointment still occupies its slot.
func (a *Appointment) IsActive() bool {
	return a.Status != AppointmentCancelled
}

// EbookStats aggregates library counters for the admin dashboard.
type EbookStats struct {
	TotalEbooks    int64               `json:"total_ebooks"`
	ActiveEbooks   int64               `json:"active_ebooks"`
	PremiumEbooks  int64               `json:"premium_ebooks"`
	TotalDownloads int64               `json:"total_downloads"`
	TotalViews     int64               `json:"total_views"`
	ByCategory     []CategoryStatsItem `json:"by_category"`
}

// CategoryStatsItem is a per-category rollup inside EbookStats.
type CategoryStatsItem struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
	EbookCount   int64  `json:"ebook_count"`
	Downloads    int64  `json:"downloads"`
}
