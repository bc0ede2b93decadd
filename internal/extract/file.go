package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// MaxUploadBytes caps file ingestion to avoid loading huge documents into
// memory.
const MaxUploadBytes = 50 << 20

// Result is extracted document text plus what was learned along the way.
type Result struct {
	Text      string
	Title     string
	Pages     int
	WordCount int
}

// FromFile extracts text from an uploaded document. PDFs go through the PDF
// reader; .txt and .md pass through as plain text.
func FromFile(filename string, content []byte) (*Result, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	if len(content) > MaxUploadBytes {
		return nil, fmt.Errorf("file too large: %d bytes", len(content))
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return fromPDF(content)
	case ".txt", ".md", "":
		return fromPlainText(filename, content)
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
}

func fromPDF(content []byte) (*Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf: %w", err)
	}

	var b strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			// A broken page should not sink the whole document.
			continue
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}

	text := normalizeWhitespace(b.String())
	if text == "" {
		return nil, fmt.Errorf("no text extracted from pdf")
	}
	return &Result{
		Text:      text,
		Pages:     pages,
		WordCount: len(strings.Fields(text)),
	}, nil
}

func fromPlainText(filename string, content []byte) (*Result, error) {
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("file is not valid utf-8 text")
	}
	text := normalizeWhitespace(string(content))
	if text == "" {
		return nil, fmt.Errorf("file contains no text")
	}
	return &Result{
		Text:      text,
		Title:     filepath.Base(filename),
		WordCount: len(strings.Fields(text)),
	}, nil
}

// normalizeWhitespace trims each line and collapses runs of blank lines.
func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var cleaned []string
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(cleaned) > 0 {
				cleaned = append(cleaned, "")
			}
			blank = true
			continue
		}
		blank = false
		cleaned = append(cleaned, line)
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}
