// Package sheet reads and writes tabular files: Excel workbooks through
// excelize, legacy .xls workbooks through extrame/xls (read only) and CSV
// through encoding/csv.
package sheet

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format identifies a tabular file format.
type Format string

// Supported formats.
const (
	XLSX Format = "xlsx"
	XLS  Format = "xls"
	CSV  Format = "csv"
)

// FormatOf infers the format from a path extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return XLSX, nil
	case ".xls":
		return XLS, nil
	case ".csv":
		return CSV, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
}

// Reader returns every row of the first (or a named) sheet as strings.
type Reader struct {
	sheet string
	comma rune
}

// NewReader creates a Reader.
func NewReader(opts ...Option) *Reader {
	r := &Reader{comma: ','}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadRows reads path. Rows may be ragged; trailing empty cells are omitted.
func (r *Reader) ReadRows(ctx context.Context, path string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case CSV:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		return r.readCSV(f)
	case XLS:
		return r.readLegacyWorkbook(path)
	default:
		return r.readWorkbook(path)
	}
}

func (r *Reader) readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	name := r.sheet
	if name == "" {
		name = f.GetSheetName(0)
	}
	if name == "" {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", name, err)
	}
	return rows, nil
}

func (r *Reader) readCSV(in io.Reader) ([][]string, error) {
	cr := csv.NewReader(in)
	cr.Comma = r.comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// ReadCSV parses CSV from an arbitrary stream, e.g. an HTTP body.
func (r *Reader) ReadCSV(in io.Reader) ([][]string, error) {
	return r.readCSV(in)
}

// Write writes header and rows to path in format. Cells may be strings or
// numbers. XLS is not writable.
func Write(ctx context.Context, path string, format Format, sheetName string, header []string, rows [][]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	switch format {
	case CSV:
		return writeCSV(path, header, rows)
	case XLSX:
		return writeWorkbook(path, sheetName, header, rows)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

func writeWorkbook(path, sheetName string, header []string, rows [][]any) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if sheetName == "" {
		sheetName = "Sheet1"
	}
	if def := f.GetSheetName(0); def != sheetName {
		if err := f.SetSheetName(def, sheetName); err != nil {
			return err
		}
	}

	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &headerRow); err != nil {
		return err
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &rows[i]); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func writeCSV(path string, header []string, rows [][]any) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return err
	}
	record := make([]string, 0, len(header))
	for _, row := range rows {
		record = record[:0]
		for _, cell := range row {
			record = append(record, formatCell(cell))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatCell(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case int:
		return strconv.Itoa(c)
	case error:
		return c.Error()
	}
	return fmt.Sprint(v)
}

// IsUnsupported reports whether err stems from an unknown file format.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat) || errors.Is(err, excelize.ErrWorkbookFileFormat)
}
