package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/oncovec/internal/models"
)

// Header names accepted for the body column of a record sheet, in preference order.
var bodyHeaders = []string{"abstract", "body", "content"}

func extractExcel(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var buf strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		for _, row := range rows {
			buf.WriteString(strings.Join(row, "\t"))
			buf.WriteByte('\n')
		}
	}
	return strings.TrimSpace(buf.String()), nil
}

// extractExcelRecords reads sheets whose first row names a title column and an
// abstract/body/content column, returning one input per non-empty row. ok is
// false when no sheet has such a header.
func extractExcelRecords(content []byte) (records []models.DocumentInput, ok bool, err error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, false, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, false, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		titleCol, bodyCol := recordColumns(rows[0])
		if titleCol < 0 || bodyCol < 0 {
			continue
		}
		ok = true
		for _, row := range rows[1:] {
			body := strings.TrimSpace(cell(row, bodyCol))
			if body == "" {
				continue
			}
			records = append(records, models.DocumentInput{
				Title: strings.TrimSpace(cell(row, titleCol)),
				Body:  body,
			})
		}
	}
	return records, ok, nil
}

func recordColumns(header []string) (titleCol, bodyCol int) {
	titleCol, bodyCol = -1, -1
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if _, seen := index[h]; !seen {
			index[h] = i
		}
	}
	if i, found := index["title"]; found {
		titleCol = i
	}
	for _, name := range bodyHeaders {
		if i, found := index[name]; found {
			bodyCol = i
			break
		}
	}
	return titleCol, bodyCol
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
