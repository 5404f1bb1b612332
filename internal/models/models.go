package models

import (
	"strings"
	"time"
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatEPUB Format = "epub"
)

// Document is the page-ordered text of one uploaded file. Pages[i] is page
// i+1. Chapters is set only for chaptered formats and is parallel to Pages.
type Document struct {
	ID       string   `json:"document_id,omitempty"`
	Format   Format   `json:"format"`
	Pages    []string `json:"pages"`
	Chapters []string `json:"chapters,omitempty"`
}

func (d Document) Text() string {
	return strings.Join(d.Pages, "\n\n")
}

// HasText reports whether any page carries non-whitespace text.
func (d Document) HasText() bool {
	for _, p := range d.Pages {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}

// LLMCall is the audit record of a single backend request.
type LLMCall struct {
	CallID       string        `json:"call_id"`
	RequestID    string        `json:"request_id,omitempty"`
	Operation    string        `json:"operation"`
	Stage        string        `json:"stage,omitempty"`
	ProviderName string        `json:"provider_name"`
	Model        string        `json:"model"`
	Status       string        `json:"status"`
	ErrorType    string        `json:"error_type,omitempty"`
	Latency      time.Duration `json:"latency"`
	CreatedAt    time.Time     `json:"created_at"`
}
