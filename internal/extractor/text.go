package extractor

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ReadRows returns the text of every page, one string per visual row,
// top to bottom. Words of a row are joined by single spaces.
func ReadRows(data []byte) (rows []string, err error) {
	// the pdf package panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			rows = nil
			err = &LayoutError{Problems: []string{fmt.Sprintf("not a readable PDF: %v", r)}}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &LayoutError{Problems: []string{"not a readable PDF: " + err.Error()}}
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageRows, err := page.GetTextByRow()
		if err != nil {
			return nil, pageError(i, err)
		}
		sort.SliceStable(pageRows, func(a, b int) bool {
			return pageRows[a].Position > pageRows[b].Position
		})
		for _, row := range pageRows {
			words := make([]pdf.Text, len(row.Content))
			copy(words, row.Content)
			sort.SliceStable(words, func(a, b int) bool { return words[a].X < words[b].X })

			parts := make([]string, 0, len(words))
			for _, w := range words {
				if s := strings.TrimSpace(w.S); s != "" {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				rows = append(rows, strings.Join(parts, " "))
			}
		}
	}
	return rows, nil
}

func pageError(page int, err error) *LayoutError {
	return &LayoutError{Problems: []string{fmt.Sprintf("not a readable PDF: page %d: %v", page, err)}}
}
