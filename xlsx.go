package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const xlsxSheetName = "Sheet1"

// Unit conversion between the engine's device-independent pixels and
// xlsx sizing: column widths are in character units (~7px each), row
// heights in points (3/4 px).
const (
	xlsxColUnitPx   = 7.0
	xlsxPointsPerPx = 0.75

	// What excelize reports for dimensions the workbook never set.
	xlsxDefaultColWidth  = 9.140625
	xlsxDefaultRowHeight = 15.0
)

// ExportXLSX writes the session grid to w as an .xlsx workbook: values,
// formula source text, and the non-default row heights and column
// widths. Styles are not mapped; the engine treats them as opaque.
func ExportXLSX(s *EditSession, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	for r := 0; r < s.Store.Rows(); r++ {
		for c := range s.Store.data[r] {
			cell, err := s.Store.Get(r, c)
			if err != nil {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("cell name for %d,%d: %w", r, c, err)
			}
			if cell.Formula != "" {
				if err := f.SetCellFormula(xlsxSheetName, axis, cell.Formula); err != nil {
					return fmt.Errorf("set formula %s: %w", axis, err)
				}
				continue
			}
			var v interface{}
			switch cell.Value.Kind {
			case ValueString:
				v = cell.Value.Str
			case ValueNumber:
				v = cell.Value.Num
			case ValueBool:
				v = cell.Value.Bool
			case ValueDate:
				v = cell.Value.Date
			default:
				continue
			}
			if err := f.SetCellValue(xlsxSheetName, axis, v); err != nil {
				return fmt.Errorf("set cell %s: %w", axis, err)
			}
		}
	}

	for i := 0; i < s.ColTable.Count(); i++ {
		if width := s.ColTable.GetSize(i); width != s.ColTable.DefaultSize() {
			colName, err := excelize.ColumnNumberToName(i + 1)
			if err != nil {
				return fmt.Errorf("column name for %d: %w", i, err)
			}
			if err := f.SetColWidth(xlsxSheetName, colName, colName, width/xlsxColUnitPx); err != nil {
				return fmt.Errorf("set col width %s: %w", colName, err)
			}
		}
	}
	for i := 0; i < s.RowTable.Count(); i++ {
		if h := s.RowTable.GetSize(i); h != s.RowTable.DefaultSize() {
			if err := f.SetRowHeight(xlsxSheetName, i+1, h*xlsxPointsPerPx); err != nil {
				return fmt.Errorf("set row height %d: %w", i, err)
			}
		}
	}

	return f.Write(w)
}

// ImportXLSX builds a fresh editing session from the first sheet of an
// .xlsx workbook. Value typing is inferred from the cell text; formula
// source is carried over verbatim, unevaluated.
func ImportXLSX(r io.Reader, name, owner string) (*EditSession, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	rowCount := len(rows)
	colCount := 0
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	session := NewEditSession(globalSessionManager.generateID(), name, owner, rowCount, colCount)
	for ri, row := range rows {
		for ci, text := range row {
			if text == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(ci+1, ri+1)
			if err != nil {
				continue
			}
			formula, _ := f.GetCellFormula(sheet, axis)
			if err := session.Store.SetValue(ri, ci, inferValue(text), formula); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", axis, err)
			}
		}
	}

	for i := 0; i < session.ColTable.Count(); i++ {
		colName, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			continue
		}
		if w, err := f.GetColWidth(sheet, colName); err == nil && w != xlsxDefaultColWidth {
			session.ColTable.SetSize(i, w*xlsxColUnitPx)
		}
	}
	for i := 0; i < session.RowTable.Count(); i++ {
		if h, err := f.GetRowHeight(sheet, i+1); err == nil && h != xlsxDefaultRowHeight {
			session.RowTable.SetSize(i, h/xlsxPointsPerPx)
		}
	}

	session.Audit(owner, "IMPORT_XLSX", "Imported workbook "+name)
	return session, nil
}

// inferValue maps cell text to the closest engine value kind.
func inferValue(text string) CellValue {
	if n, err := strconv.ParseFloat(text, 64); err == nil {
		return NumberValue(n)
	}
	switch strings.ToUpper(text) {
	case "TRUE":
		return BoolValue(true)
	case "FALSE":
		return BoolValue(false)
	}
	return StringValue(text)
}
