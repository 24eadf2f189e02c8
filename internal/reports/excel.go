// Package reports builds Excel workbooks for the admin dashboard exports.
package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"clinica/internal/models"
)

// Builder assembles a multi-sheet workbook.
type Builder struct {
	file       *excelize.File
	sheet      string
	currentRow int
}

// NewBuilder starts an empty workbook.
func NewBuilder() *Builder {
	return &Builder{file: excelize.NewFile()}
}

// AddSheet opens a new sheet and makes it current.
func (b *Builder) AddSheet(name string) error {
	if len(name) > 31 {
		name = name[:31] // Excel sheet name limit
	}
	if b.sheet == "" {
		b.file.SetSheetName("Sheet1", name)
	} else {
		if _, err := b.file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}
	b.sheet = name
	b.currentRow = 1
	return nil
}

// WriteHeader writes a bold header row.
func (b *Builder) WriteHeader(columns []string) error {
	if b.sheet == "" {
		return fmt.Errorf("no active sheet")
	}
	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, b.currentRow)
		if err != nil {
			return err
		}
		if err := b.file.SetCellValue(b.sheet, cell, col); err != nil {
			return err
		}
	}
	style, err := b.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, b.currentRow)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), b.currentRow)
		_ = b.file.SetCellStyle(b.sheet, startCell, endCell, style)
	}
	b.currentRow++
	return nil
}

// WriteRow appends a data row to the current sheet.
func (b *Builder) WriteRow(row []interface{}) error {
	if b.sheet == "" {
		return fmt.Errorf("no active sheet")
	}
	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, b.currentRow)
		if err != nil {
			return err
		}
		if err := b.file.SetCellValue(b.sheet, cell, val); err != nil {
			return err
		}
	}
	b.currentRow++
	return nil
}

// WriteTo streams the workbook.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	return b.file.WriteTo(w)
}

// EbookStatsWorkbook renders library statistics plus an appointment listing
// into one workbook for the admin export endpoint.
func EbookStatsWorkbook(stats *models.EbookStats, appointments []models.Appointment) (*Builder, error) {
	b := NewBuilder()

	if err := b.AddSheet("Ebooks"); err != nil {
		return nil, err
	}
	if err := b.WriteHeader([]string{"Metric", "Value"}); err != nil {
		return nil, err
	}
	rows := [][]interface{}{
		{"Total ebooks", stats.TotalEbooks},
		{"Active ebooks", stats.ActiveEbooks},
		{"Premium ebooks", stats.PremiumEbooks},
		{"Total downloads", stats.TotalDownloads},
		{"Total views", stats.TotalViews},
	}
	for _, row := range rows {
		if err := b.WriteRow(row); err != nil {
			return nil, err
		}
	}

	if err := b.AddSheet("Categories"); err != nil {
		return nil, err
	}
	if err := b.WriteHeader([]string{"Category", "Ebooks", "Downloads"}); err != nil {
		return nil, err
	}
	for _, item := range stats.ByCategory {
		if err := b.WriteRow([]interface{}{item.CategoryName, item.EbookCount, item.Downloads}); err != nil {
			return nil, err
		}
	}

	if err := b.AddSheet("Appointments"); err != nil {
		return nil, err
	}
	if err := b.WriteHeader([]string{"Reference", "Patient", "Email", "Date", "Time", "Status"}); err != nil {
		return nil, err
	}
	for i := range appointments {
		a := &appointments[i]
		row := []interface{}{a.Reference, a.PatientName, a.PatientEmail, a.Date, a.StartTime, a.Status}
		if err := b.WriteRow(row); err != nil {
			return nil, err
		}
	}

	return b, nil
}
