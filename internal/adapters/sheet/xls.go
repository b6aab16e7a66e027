package sheet

import (
	"fmt"
	"os"

	"github.com/extrame/xls"
)

// maxLegacyCols is the BIFF8 column limit. Rows without a ROW record report
// no width, so they are scanned up to it.
const maxLegacyCols = 256

// readLegacyWorkbook reads the first (or the named) sheet of a BIFF .xls file.
// The decoder panics on damaged streams; that surfaces as ErrCorruptWorkbook.
func (r *Reader) readLegacyWorkbook(path string) (rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	defer func() {
		if p := recover(); p != nil {
			rows, err = nil, fmt.Errorf("%w: %s: %v", ErrCorruptWorkbook, path, p)
		}
	}()

	wb, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptWorkbook, path, err)
	}
	if wb == nil {
		return nil, fmt.Errorf("%w: %s: no workbook stream", ErrCorruptWorkbook, path)
	}

	ws, err := r.legacySheet(wb)
	if err != nil {
		return nil, err
	}
	return legacyRows(ws), nil
}

func (r *Reader) legacySheet(wb *xls.WorkBook) (*xls.WorkSheet, error) {
	if wb.NumSheets() == 0 {
		return nil, ErrNoSheet
	}
	if r.sheet == "" {
		return wb.GetSheet(0), nil
	}
	for i := 0; i < wb.NumSheets(); i++ {
		if ws := wb.GetSheet(i); ws != nil && ws.Name == r.sheet {
			return ws, nil
		}
	}
	return nil, fmt.Errorf("sheet %q: %w", r.sheet, ErrNoSheet)
}

func legacyRows(ws *xls.WorkSheet) [][]string {
	rows := make([][]string, 0, int(ws.MaxRow)+1)
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := legacyRow(ws, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		width := row.LastCol()
		if width <= 0 {
			width = maxLegacyCols
		}
		cells := make([]string, width)
		for c := range cells {
			cells[c] = row.Col(c)
		}
		rows = append(rows, trimTrailing(cells))
	}
	for len(rows) > 0 && len(rows[len(rows)-1]) == 0 {
		rows = rows[:len(rows)-1]
	}
	return rows
}

// legacyRow returns nil for row indexes that hold no cells; WorkSheet.Row
// panics on those.
func legacyRow(ws *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(i)
}

func trimTrailing(cells []string) []string {
	n := len(cells)
	for n > 0 && cells[n-1] == "" {
		n--
	}
	return cells[:n]
}
