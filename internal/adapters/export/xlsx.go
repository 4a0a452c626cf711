// Package export renders report tables as spreadsheet downloads.
package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/okian/igot/internal/domain/report"
)

// SheetName is the worksheet holding the report rows.
const SheetName = "Reports"

// ContentType is the MIME type of an XLSX workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ErrExport is returned when the workbook cannot be built or written.
var ErrExport = errors.New("xlsx export failed")

// Header is the first row of the sheet.
var Header = []string{
	"Date",
	"Office",
	"Total Employees",
	"Registered on iGOT",
	"Enrolled in Courses",
	"Courses Completed",
}

// Workbook builds a workbook with one header row and one row per report, in
// the order given. The caller closes the returned file.
func Workbook(reports []report.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %w", ErrExport, err)
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %w", ErrExport, err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetCellStyle(SheetName, "A1", "F1", bold)
	}
	_ = f.SetColWidth(SheetName, "A", "B", 16)
	_ = f.SetColWidth(SheetName, "C", "F", 20)

	for i, r := range reports {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: %w", ErrExport, err)
		}
		row := []any{
			r.Date,
			r.Office,
			r.TotalEmployees,
			r.RegisteredEmployees,
			r.EnrolledEmployees,
			r.CompletedCourses,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: %w", ErrExport, err)
		}
	}
	return f, nil
}

// WriteXLSX writes the workbook for reports to w.
func WriteXLSX(w io.Writer, reports []report.Report) error {
	f, err := Workbook(reports)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("%w: %w", ErrExport, err)
	}
	return nil
}
