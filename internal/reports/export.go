package reports

import (
	"fmt"
	"io"
	"reflect"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"
)

// WriteCSV encodes rows with a header line taken from their csv tags.
func WriteCSV[T any](w io.Writer, rows []T) error {
	if rows == nil {
		rows = []T{}
	}
	return gocsv.Marshal(rows, w)
}

// WriteXLSX writes rows to a single-sheet workbook with a bold header row.
func WriteXLSX[T any](w io.Writer, sheet string, rows []T) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}

	headers, fields := columns[T]()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	if len(headers) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return err
		}
	}
	for r, row := range rows {
		v := reflect.ValueOf(row)
		for c, idx := range fields {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v.Field(idx).Interface()); err != nil {
				return err
			}
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func columns[T any]() ([]string, []int) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	var headers []string
	var fields []int
	for i := 0; i < typ.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("csv")
		if tag == "" || tag == "-" {
			continue
		}
		headers = append(headers, tag)
		fields = append(fields, i)
	}
	return headers, fields
}
