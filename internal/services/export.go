package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/saltesefalcon/manager-checklists/internal/domain"
)

// ErrExportFailed is returned when the workbook could not be rendered.
var ErrExportFailed = errors.New("export failed")

const exportSheet = "Checklist"

// Export renders a seeded shift checklist as an .xlsx workbook and returns
// it with a suggested file name. Unseeded shifts yield ErrShiftNotFound.
func (s *ChecklistService) Export(ctx context.Context, p *Principal, restaurantID, date string, shift domain.ShiftKind) (*bytes.Buffer, string, error) {
	ctx, span := s.span(ctx, "Export", restaurantID, date, shift, p)
	defer span.End()

	snap, err := s.Current(ctx, p, restaurantID, date, shift)
	if err != nil {
		return nil, "", err
	}

	buf, err := renderWorkbook(snap, s.Calc.Location)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("restaurant_id", restaurantID).Msg("render workbook")
		return nil, "", ErrExportFailed
	}
	return buf, fmt.Sprintf("%s_%s_%s.xlsx", restaurantID, date, shift), nil
}

// renderWorkbook lays out a header block followed by one row per item.
// Timestamps are shown in loc.
func renderWorkbook(snap *ShiftSnapshot, loc *time.Location) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	f.SetColWidth(exportSheet, "A", "A", 6)
	f.SetColWidth(exportSheet, "B", "B", 48)
	f.SetColWidth(exportSheet, "C", "C", 10)
	f.SetColWidth(exportSheet, "D", "D", 10)
	f.SetColWidth(exportSheet, "E", "E", 24)
	f.SetColWidth(exportSheet, "F", "F", 20)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}

	status := "Open"
	if snap.Locked {
		status = "Submitted"
	}
	f.SetCellValue(exportSheet, "A1", fmt.Sprintf("%s: %s shift, %s", snap.RestaurantName, snap.Shift, snap.BusinessDate))
	f.MergeCell(exportSheet, "A1", "F1")
	f.SetCellValue(exportSheet, "A2", "Status")
	f.SetCellValue(exportSheet, "B2", status)
	f.SetCellValue(exportSheet, "A3", "Done")
	f.SetCellValue(exportSheet, "B3", fmt.Sprintf("%d / %d", snap.Done, snap.Total))
	if snap.CompletedAt != nil && snap.CompletedByName != nil {
		f.SetCellValue(exportSheet, "A4", "Submitted")
		f.SetCellValue(exportSheet, "B4", fmt.Sprintf("%s by %s", snap.CompletedAt.In(loc).Format("2006-01-02 15:04"), *snap.CompletedByName))
	}

	const headerRow = 6
	for i, h := range []string{"#", "Duty", "Priority", "Done", "Checked by", "Checked at"} {
		c := cell(i+1, headerRow)
		f.SetCellValue(exportSheet, c, h)
		f.SetCellStyle(exportSheet, c, c, headerStyle)
	}

	for i, it := range snap.Items {
		row := headerRow + 1 + i
		f.SetCellValue(exportSheet, cell(1, row), it.Order+1)
		f.SetCellValue(exportSheet, cell(2, row), it.Title)
		f.SetCellValue(exportSheet, cell(3, row), yesNo(it.Priority))
		f.SetCellValue(exportSheet, cell(4, row), yesNo(it.Checked))
		if it.CheckedByName != nil {
			f.SetCellValue(exportSheet, cell(5, row), *it.CheckedByName)
		}
		if it.CheckedAt != nil {
			f.SetCellValue(exportSheet, cell(6, row), it.CheckedAt.In(loc).Format("2006-01-02 15:04"))
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
