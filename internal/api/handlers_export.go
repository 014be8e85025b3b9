package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dgallion1/formlens/internal/form"
	"github.com/dgallion1/formlens/internal/geometry"
)

const fieldsSheet = "Fields"

// FieldsWorkbook renders the field list with each field's box as an xlsx
// workbook. Fields without a box leave the position columns empty.
func FieldsWorkbook(fields []form.Field, layout *geometry.Layout) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(fieldsSheet); err != nil {
		return nil, err
	}
	idx, _ := f.GetSheetIndex(fieldsSheet)
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{"Name", "Label", "Type", "Value", "Confidence", "Page", "X", "Y", "Width", "Height"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(fieldsSheet, cell, h)
	}

	for i, fld := range fields {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(fieldsSheet, cell, v)
		}
		write(1, fld.Name)
		write(2, fld.Label)
		write(3, string(fld.Type))
		write(4, fld.Value)
		if fld.Confidence != nil {
			write(5, *fld.Confidence)
		}
		if pos, ok := layout.Lookup(fld.Name); ok {
			write(6, pos.Page+1)
			write(7, pos.X)
			write(8, pos.Y)
			write(9, pos.Width)
			write(10, pos.Height)
		}
	}

	_ = f.SetColWidth(fieldsSheet, "A", "B", 28)
	_ = f.SetColWidth(fieldsSheet, "D", "D", 36)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Server) handleExportFields(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	start := time.Now()
	fields, layout := sess.Fields()
	data, err := FieldsWorkbook(fields, layout)
	if err != nil {
		s.log.Error("export failed", "session_id", sess.ID, "error", err)
		jsonError(w, "export failed", http.StatusInternalServerError)
		return
	}
	s.log.Info("export.xlsx.ok",
		"session_id", sess.ID,
		"rows", len(fields),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="fields.xlsx"`)
	w.Write(data)
}
