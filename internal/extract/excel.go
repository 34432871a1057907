package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// readExcel streams every sheet row by row. Non-empty cells of a row are joined
// with a tab, rows with a newline and sheets with a blank line.
func readExcel(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	var sheets []string
	for _, sheet := range f.GetSheetList() {
		text, err := readSheet(f, sheet)
		if err != nil {
			return "", err
		}
		if text != "" {
			sheets = append(sheets, text)
		}
	}
	return strings.Join(sheets, "\n\n"), nil
}

func readSheet(f *excelize.File, sheet string) (string, error) {
	rows, err := f.Rows(sheet)
	if err != nil {
		return "", fmt.Errorf("sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return "", fmt.Errorf("sheet %q: %w", sheet, err)
		}
		cells := cols[:0]
		for _, c := range cols {
			if c = strings.TrimSpace(c); c != "" {
				cells = append(cells, c)
			}
		}
		if len(cells) > 0 {
			lines = append(lines, strings.Join(cells, "\t"))
		}
	}
	if err := rows.Error(); err != nil {
		return "", fmt.Errorf("sheet %q: %w", sheet, err)
	}
	return strings.Join(lines, "\n"), nil
}
