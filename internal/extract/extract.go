package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"docreader/internal/models"
	"docreader/internal/util"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrNoTextFound       = errors.New("no extractable text found")
)

// DocxPageSize is the pseudo-page length, in characters, for formats that
// carry no page structure of their own.
const DocxPageSize = 2000

// DetectFormat maps a file name to a format by extension.
func DetectFormat(filename string) (models.Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return models.FormatPDF, nil
	case ".docx":
		return models.FormatDOCX, nil
	case ".epub":
		return models.FormatEPUB, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
}

// ParseFormat accepts a format name as sent by clients.
func ParseFormat(s string) (models.Format, error) {
	switch f := models.Format(strings.ToLower(strings.TrimSpace(s))); f {
	case models.FormatPDF, models.FormatDOCX, models.FormatEPUB:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Extract returns the page-ordered text of data. Page text is NFKC
// normalized with control characters removed.
func Extract(data []byte, format models.Format) (models.Document, error) {
	var (
		doc models.Document
		err error
	)
	switch format {
	case models.FormatPDF:
		doc.Pages, err = extractPDF(data)
	case models.FormatDOCX:
		doc.Pages, err = extractDOCX(data)
	case models.FormatEPUB:
		doc.Pages, doc.Chapters, err = extractEPUB(data)
	default:
		return models.Document{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("extract %s: %w", format, err)
	}
	doc.Format = format
	for i := range doc.Pages {
		doc.Pages[i] = util.NormalizeText(doc.Pages[i])
	}
	for i := range doc.Chapters {
		doc.Chapters[i] = util.NormalizeText(doc.Chapters[i])
	}
	if !doc.HasText() {
		return models.Document{}, ErrNoTextFound
	}
	doc.ID = util.SHA256Hex(data)
	return doc, nil
}
