package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNoSheets is returned for a workbook without any worksheet.
var ErrNoSheets = errors.New("workbook has no sheets")

// SpreadsheetOptions selects what ReadSpreadsheet reads.
type SpreadsheetOptions struct {
	// Sheet defaults to the first sheet in the workbook.
	Sheet string
	// SkipHeader drops the first row.
	SkipHeader bool
}

// ReadSpreadsheet converts a workbook into tab-delimited lines, one per row,
// so it can be fed to the same parsers as pasted text. Rows with no content
// are dropped and trailing empty cells are trimmed.
func ReadSpreadsheet(r io.Reader, opts SpreadsheetOptions) (string, error) {
	rows, err := openRows(r, opts.Sheet)
	if err != nil {
		return "", err
	}
	if opts.SkipHeader && len(rows) > 0 {
		rows = rows[1:]
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strings.TrimSpace(c)
		}
		line := strings.TrimRight(strings.Join(cells, "\t"), "\t")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

func openRows(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrNoSheets
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}
