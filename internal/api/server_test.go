package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinica/internal/auth"
	"clinica/internal/booking"
	"clinica/internal/database"
	"clinica/internal/files"
	"clinica/internal/models"
	"clinica/internal/premium"
)

type fakeProvider struct {
	status string
	err    error
}

func (f *fakeProvider) PreapprovalStatus(ctx context.Context, id string) (string, error) {
	return f.status, f.err
}

type testEnv struct {
	server     *Server
	db         *database.DB
	auth       *auth.Manager
	provider   *fakeProvider
	uploadsDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	uploadsDir := t.TempDir()
	store, err := files.NewStore(uploadsDir)
	require.NoError(t, err)

	manager := auth.NewManager("test-secret", time.Hour)
	provider := &fakeProvider{status: premium.StatusAuthorized}

	srv := NewServer(Options{
		DB:          db,
		Booking:     booking.NewService(db, nil, zerolog.Nop()),
		Premium:     premium.NewResolver(db, provider, zerolog.Nop()),
		Auth:        manager,
		Uploads:     store,
		AdminEmail:  "admin@clinica.test",
		AdminSecret: "admin-secret",
		Logger:      zerolog.Nop(),
	})

	return &testEnv{server: srv, db: db, auth: manager, provider: provider, uploadsDir: uploadsDir}
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)

	var resp response
	if rec.Header().Get("Content-Type") == "application/json" {
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	}
	return rec, resp
}

func (e *testEnv) userToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := e.auth.GenerateToken(userID, userID+"@clinica.test", false)
	require.NoError(t, err)
	return token
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	token, err := e.auth.GenerateToken("admin", "admin@clinica.test", true)
	require.NoError(t, err)
	return token
}

func (e *testEnv) seedEbook(t *testing.T, isPremium bool, fileName string) *models.Ebook {
	t.Helper()
	ctx := context.Background()

	category := &models.EbookCategory{ID: "cat-" + fileName, Name: "Nutrição " + fileName}
	require.NoError(t, e.db.CreateCategory(ctx, category))

	price := 0.0
	if isPremium {
		price = 29.9
	}
	ebook := &models.Ebook{
		ID:         "ebook-" + fileName,
		Title:      "Guia de Nutrição",
		Author:     "Dra. Ana",
		CategoryID: category.ID,
		FileURL:    fileName,
		FileType:   "pdf",
		IsPremium:  isPremium,
		Price:      price,
		IsActive:   true,
	}
	require.NoError(t, ebook.Validate())
	require.NoError(t, e.db.CreateEbook(ctx, ebook))

	path := filepath.Join(e.uploadsDir, fileName)
	require.NoError(t, os.WriteFile(path, []byte("conteudo "+fileName), 0o644))
	return ebook
}

// 2026-09-07 is a Monday, inside the default available days.
const mondayDate = "2026-09-07"

func TestAvailableSlotsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodGet, "/api/v1/slots?date="+mondayDate, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	var data struct {
		Date  string   `json:"date"`
		Slots []string `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, mondayDate, data.Date)
	require.NotEmpty(t, data.Slots)
	assert.Equal(t, "08:00", data.Slots[0])
}

func TestAvailableSlotsBadDate(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodGet, "/api/v1/slots?date=07-09-2026", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
}

func TestBookAndDoubleBook(t *testing.T) {
	env := newTestEnv(t)

	req := booking.Request{
		PatientName:  "Maria Souza",
		PatientEmail: "maria@example.com",
		Date:         mondayDate,
		StartTime:    "08:00",
	}

	rec, resp := env.do(t, http.MethodPost, "/api/v1/appointments", "", req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Appointment
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.NotEmpty(t, created.Reference)
	assert.Equal(t, models.AppointmentPending, created.Status)

	rec, resp = env.do(t, http.MethodPost, "/api/v1/appointments", "", req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slot not available", resp.Error)

	// Cancelling frees the slot again.
	rec, _ = env.do(t, http.MethodDelete, "/api/v1/appointments/"+created.Reference, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/v1/appointments", "", req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestDownloadRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	ebook := env.seedEbook(t, false, "free.pdf")

	rec, resp := env.do(t, http.MethodGet, "/api/v1/ebooks/"+ebook.ID+"/download", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.Success)
}

func TestDownloadPremiumGate(t *testing.T) {
	env := newTestEnv(t)
	ebook := env.seedEbook(t, true, "premium.pdf")
	token := env.userToken(t, "user-1")

	rec, resp := env.do(t, http.MethodGet, "/api/v1/ebooks/"+ebook.ID+"/download", token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "premium access required", resp.Error)

	// A locally ACTIVE subscription without a preapproval reference grants
	// access without touching the provider.
	require.NoError(t, env.db.UpsertSubscription(context.Background(), &models.Subscription{
		UserID: "user-1",
		Status: models.SubscriptionActive,
	}))

	rec, _ = env.do(t, http.MethodGet, "/api/v1/ebooks/"+ebook.ID+"/download", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "conteudo premium.pdf", rec.Body.String())

	access, err := env.db.GetAccess(context.Background(), "user-1", ebook.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), access.DownloadCount)
}

func TestDownloadPremiumProviderDenies(t *testing.T) {
	env := newTestEnv(t)
	ebook := env.seedEbook(t, true, "paused.pdf")
	token := env.userToken(t, "user-2")

	require.NoError(t, env.db.UpsertSubscription(context.Background(), &models.Subscription{
		UserID:        "user-2",
		Status:        models.SubscriptionActive,
		PreapprovalID: "pre-1",
	}))
	env.provider.status = "paused"

	rec, resp := env.do(t, http.MethodGet, "/api/v1/ebooks/"+ebook.ID+"/download", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "premium access required", resp.Error)

	env.provider.status = premium.StatusAuthorized
	rec, _ = env.do(t, http.MethodGet, "/api/v1/ebooks/"+ebook.ID+"/download", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPremiumAccessEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodGet, "/api/v1/users/user-9/premium-access", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var data map[string]bool
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.False(t, data["has_access"])

	require.NoError(t, env.db.UpsertSubscription(context.Background(), &models.Subscription{
		UserID: "user-9",
		Status: models.SubscriptionActive,
	}))

	_, resp = env.do(t, http.MethodGet, "/api/v1/users/user-9/premium-access", "", nil)
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.True(t, data["has_access"])
}

func TestAdminScheduleValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)

	bad := map[string]interface{}{
		"start_time":            "08:00",
		"end_time":              "18:00",
		"consultation_duration": 10,
		"available_days":        []string{"monday"},
	}
	rec, resp := env.do(t, http.MethodPut, "/api/v1/admin/schedule", token, bad)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)

	var data map[string]string
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "consultation_duration", data["field"])
}

func TestAdminScheduleRoundtrip(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)

	update := map[string]interface{}{
		"start_time":            "09:00",
		"end_time":              "17:00",
		"consultation_duration": 60,
		"interval_between":      0,
		"enable_lunch_break":    false,
		"available_days":        []string{"monday", "wednesday"},
	}
	rec, _ := env.do(t, http.MethodPut, "/api/v1/admin/schedule", token, update)
	require.Equal(t, http.StatusOK, rec.Code)

	_, resp := env.do(t, http.MethodGet, "/api/v1/admin/schedule", token, nil)
	var hours map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &hours))
	assert.Equal(t, "09:00", hours["start_time"])

	// Tuesday is no longer bookable under the new policy.
	rec, resp = env.do(t, http.MethodGet, "/api/v1/slots?date=2026-09-08", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var data struct {
		Slots []string `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Empty(t, data.Slots)
}

func TestAdminRequiresAdminClaim(t *testing.T) {
	env := newTestEnv(t)
	token := env.userToken(t, "user-1")

	rec, resp := env.do(t, http.MethodGet, "/api/v1/admin/schedule", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "admin access required", resp.Error)
}

func TestLoginIssuesAdminToken(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":  "admin@clinica.test",
		"secret": "admin-secret",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var data map[string]string
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.NotEmpty(t, data["token"])

	rec, _ = env.do(t, http.MethodGet, "/api/v1/admin/schedule", data["token"], nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginRejectsBadSecret(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":  "admin@clinica.test",
		"secret": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCategoryDeleteConflict(t *testing.T) {
	env := newTestEnv(t)
	ebook := env.seedEbook(t, false, "cat.pdf")
	token := env.adminToken(t)

	rec, resp := env.do(t, http.MethodDelete, "/api/v1/admin/categories/"+ebook.CategoryID, token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "category still has ebooks", resp.Error)

	rec, _ = env.do(t, http.MethodDelete, "/api/v1/admin/ebooks/"+ebook.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodDelete, "/api/v1/admin/categories/"+ebook.CategoryID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEbookCRUDAndListFilters(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)

	category := &models.EbookCategory{ID: "cat-1", Name: "Sono"}
	require.NoError(t, env.db.CreateCategory(context.Background(), category))

	create := map[string]interface{}{
		"title":       "Dormir Melhor",
		"author":      "Dr. Silva",
		"category_id": "cat-1",
		"file_type":   "epub",
		"is_premium":  true,
		"price":       19.9,
	}
	rec, resp := env.do(t, http.MethodPost, "/api/v1/admin/ebooks", token, create)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Ebook
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	require.NotEmpty(t, created.ID)
	assert.True(t, created.IsActive)

	_, resp = env.do(t, http.MethodGet, "/api/v1/ebooks?is_premium=true", "", nil)
	var list struct {
		Ebooks []models.Ebook `json:"ebooks"`
		Total  int64          `json:"total"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Equal(t, int64(1), list.Total)
	assert.Equal(t, created.ID, list.Ebooks[0].ID)

	rec, resp = env.do(t, http.MethodPost, "/api/v1/admin/ebooks", token, map[string]interface{}{
		"title":       "X",
		"author":      "Dr. Silva",
		"category_id": "cat-1",
		"file_type":   "pdf",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp.Error, "title")
}

func TestRecordAccessIncrementsViews(t *testing.T) {
	env := newTestEnv(t)
	ebook := env.seedEbook(t, false, "views.pdf")
	token := env.userToken(t, "user-3")

	for i := 0; i < 2; i++ {
		rec, _ := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/ebooks/%s/access", ebook.ID), token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	stored, err := env.db.GetEbook(context.Background(), ebook.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.ViewCount)
}
