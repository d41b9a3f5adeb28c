// Package spreadsheet writes user records to single-sheet .xlsx workbooks
// and hands the bytes to a Saver.
package spreadsheet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"labconsole/internal/domain/grid"
	"labconsole/internal/domain/userrecord"
)

// ContentType is the MIME type of an .xlsx workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Workbooks produced by the console.
var (
	SelectedUsers = Workbook{Filename: "selected_users.xlsx", Sheet: "Selected Users"}
	CreatedUsers  = Workbook{Filename: "created_users.xlsx", Sheet: "Created Users"}
)

// ErrEncode wraps every failure to build or hand over a workbook.
var ErrEncode = errors.New("spreadsheet encode failed")

// defaultSheet is the sheet excelize creates with a new file.
const defaultSheet = "Sheet1"

// Workbook names the file and its only worksheet.
type Workbook struct {
	Filename string
	Sheet    string
}

// Saver receives a finished file.
type Saver interface {
	Save(ctx context.Context, filename, contentType string, data []byte) error
}

// Encode builds the workbook bytes: a header row of column keys in the
// given order, then one row per record with typed cells.
// PRE: wb.Filename ends in .xlsx, columns pass grid.ValidateColumns
// POST: Returns the serialized workbook or an error wrapping ErrEncode
func Encode(wb Workbook, columns []grid.Column, records []userrecord.Record) ([]byte, error) {
	if wb.Filename == "" {
		return nil, fmt.Errorf("%w: empty filename", ErrEncode)
	}
	if !strings.EqualFold(pathExt(wb.Filename), ".xlsx") {
		return nil, fmt.Errorf("%w: filename %q is not .xlsx", ErrEncode, wb.Filename)
	}
	if err := grid.ValidateColumns(columns); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	sheet := wb.Sheet
	if sheet == "" {
		sheet = defaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()
	if sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncode, err)
		}
	}

	// Header cells are the record keys, not the display headers.
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c.Key
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	for i, r := range records {
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = c.CellValue(r)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncode, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncode, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return buf.Bytes(), nil
}

// Export encodes the records and passes the workbook to saver under wb.Filename.
// PRE: saver is non-nil
// POST: saver received exactly one file, or an error wrapping ErrEncode is returned
func Export(ctx context.Context, saver Saver, wb Workbook, columns []grid.Column, records []userrecord.Record) error {
	data, err := Encode(wb, columns, records)
	if err != nil {
		return err
	}
	if err := saver.Save(ctx, wb.Filename, ContentType, data); err != nil {
		return fmt.Errorf("%w: save %s: %w", ErrEncode, wb.Filename, err)
	}
	return nil
}

// Sheet is a worksheet read back from a workbook.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Decode reads the first worksheet of an .xlsx workbook as strings.
// PRE: data is an .xlsx file
// POST: Returns the header row and the remaining rows
func Decode(data []byte) (Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Sheet{}, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Sheet{}, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Sheet{}, err
	}
	out := Sheet{Name: sheets[0]}
	if len(rows) > 0 {
		out.Header = rows[0]
		out.Rows = rows[1:]
	}
	return out, nil
}

func pathExt(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return name[i:]
}
