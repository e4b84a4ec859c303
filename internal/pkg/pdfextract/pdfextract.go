// Package pdfextract pulls plain text out of PDF documents.
package pdfextract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrEmptyPDF = errors.New("pdf is empty")

type Result struct {
	Text      string
	PageCount int
}

// Extract parses data and returns the text of every page, pages separated by
// a newline. Pages without a content stream contribute nothing.
func Extract(data []byte) (Result, error) {
	if len(data) == 0 {
		return Result{}, ErrEmptyPDF
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("open pdf failed: %w", err)
	}

	pages := reader.NumPage()
	fonts := make(map[string]*pdf.Font)
	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			return Result{}, fmt.Errorf("read pdf page %d failed: %w", i, err)
		}
		if sb.Len() > 0 && text != "" {
			sb.WriteByte('\n')
		}
		sb.WriteString(text)
	}
	return Result{Text: sb.String(), PageCount: pages}, nil
}
