package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEbookValidate(t *testing.T) {
	valid := Ebook{
		Title:      "Guia de Nutrição",
		Author:     "Dra. Ana",
		CategoryID: "cat-1",
		FileType:   "pdf",
	}

	tests := []struct {
		name    string
		mutate  func(*Ebook)
		wantErr string
	}{
		{"valid", func(e *Ebook) {}, ""},
		{"short title", func(e *Ebook) { e.Title = "ab" }, "title"},
		{"long title", func(e *Ebook) { e.Title = strings.Repeat("a", 201) }, "title"},
		{"short author", func(e *Ebook) { e.Author = "D" }, "author"},
		{"missing category", func(e *Ebook) { e.CategoryID = "" }, "category"},
		{"premium without price", func(e *Ebook) { e.IsPremium = true }, "price"},
		{"negative price", func(e *Ebook) { e.Price = -1 }, "price"},
		{"price too high", func(e *Ebook) { e.Price = 10000 }, "price"},
		{"bad file type", func(e *Ebook) { e.FileType = "docx" }, "file type"},
		{"premium priced ok", func(e *Ebook) { e.IsPremium = true; e.Price = 29.9 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			err := e.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestAppointmentIsActive(t *testing.T) {
	for _, status := range []string{AppointmentPending, AppointmentConfirmed, AppointmentCompleted} {
		a := Appointment{Status: status}
		assert.True(t, a.IsActive(), status)
	}
	a := Appointment{Status: AppointmentCancelled}
	assert.False(t, a.IsActive())
}
