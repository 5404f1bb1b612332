package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"docreader/internal/app"
	"docreader/internal/extract"
	"docreader/internal/logging"
	"docreader/internal/models"
	"docreader/internal/relevance"
	"docreader/internal/summary"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Server struct {
	app       *app.App
	logger    *zap.Logger
	maxUpload int64
}

func NewServer(a *app.App) *Server {
	maxUpload := int64(a.Config.MaxUploadMB) << 20
	if maxUpload <= 0 {
		maxUpload = 128 << 20
	}
	return &Server{app: a, logger: logging.OrNop(a.Logger), maxUpload: maxUpload}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/extract", s.handleExtract(""))
	mux.HandleFunc("/extract-docx", s.handleExtract(models.FormatDOCX))
	mux.HandleFunc("/extract-epub", s.handleExtract(models.FormatEPUB))
	mux.HandleFunc("/relevance", s.handleRelevance)
	mux.HandleFunc("/summary", s.handleSummary)
	mux.Handle("/metrics", promhttp.Handler())
	return withCORS(withRequestID(s.withAccessLog(mux)))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type extractResponse struct {
	Text       string        `json:"text"`
	Pages      []string      `json:"pages"`
	Format     models.Format `json:"format"`
	Chapters   []string      `json:"chapters,omitempty"`
	DocumentID string        `json:"document_id"`
	TotalPages int           `json:"total_pages"`
}

// handleExtract reads the multipart "file" field. A non-empty forced format
// overrides detection from the file name.
func (s *Server) handleExtract(forced models.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.writeErr(w, r, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			s.writeErr(w, r, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
			return
		}
		fh, ok := uploadedFile(r.MultipartForm)
		if !ok {
			s.writeErr(w, r, http.StatusBadRequest, fmt.Errorf("no file uploaded"))
			return
		}

		format := forced
		if format == "" {
			var err error
			if v := r.FormValue("format"); v != "" {
				format, err = extract.ParseFormat(v)
			} else {
				format, err = extract.DetectFormat(fh.Filename)
			}
			if err != nil {
				s.writeErr(w, r, http.StatusBadRequest, err)
				return
			}
		}

		data, err := readUpload(fh)
		if err != nil {
			s.writeErr(w, r, http.StatusBadRequest, err)
			return
		}
		doc, err := extract.Extract(data, format)
		if err != nil {
			s.writeErr(w, r, http.StatusBadRequest, err)
			return
		}
		s.logger.Info("document extracted", append(logging.ContextFields(r.Context()),
			zap.String("format", string(doc.Format)),
			zap.String("document_id", doc.ID),
			zap.Int("pages", len(doc.Pages)))...)
		writeJSON(w, http.StatusOK, extractResponse{
			Text:       doc.Text(),
			Pages:      doc.Pages,
			Format:     doc.Format,
			Chapters:   doc.Chapters,
			DocumentID: doc.ID,
			TotalPages: len(doc.Pages),
		})
	}
}

func uploadedFile(form *multipart.Form) (*multipart.FileHeader, bool) {
	if form == nil {
		return nil, false
	}
	if files := form.File["file"]; len(files) > 0 {
		return files[0], true
	}
	for _, v := range form.File {
		if len(v) > 0 {
			return v[0], true
		}
	}
	return nil, false
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}

type relevanceRequest struct {
	Interest string   `json:"interest"`
	Pages    []string `json:"pages"`
	Offset   int      `json:"offset"`
	Chapters []string `json:"chapters,omitempty"`
}

type rangeView struct {
	relevance.RelevantRange
	Label string `json:"label"`
}

type relevanceResponse struct {
	Rankings   []relevance.PageScore `json:"rankings"`
	Ranges     []rangeView           `json:"ranges"`
	TotalPages int                   `json:"total_pages"`
}

func (s *Server) handleRelevance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErr(w, r, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req relevanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErr(w, r, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	res, err := s.app.Relevance.Rank(r.Context(), req.Interest, req.Pages)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, relevance.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		s.writeErr(w, r, status, err)
		return
	}

	rankings := s.app.Relevance.Relevant(res.Scores)
	for i := range rankings {
		rankings[i].Page += req.Offset
	}
	ranges := make([]rangeView, 0, len(res.Ranges))
	for _, rg := range res.Ranges {
		label := rg.Label(req.Chapters)
		rg.StartPage += req.Offset
		rg.EndPage += req.Offset
		ranges = append(ranges, rangeView{RelevantRange: rg, Label: label})
	}
	writeJSON(w, http.StatusOK, relevanceResponse{Rankings: rankings, Ranges: ranges, TotalPages: len(req.Pages)})
}

type summaryRequest struct {
	Mode          string             `json:"mode"`
	DocPages      []string           `json:"docPages"`
	SelectedPages []string           `json:"selectedPages"`
	StartPage     int                `json:"startPage"`
	EndPage       int                `json:"endPage"`
	Rankings      []summaryRankInput `json:"rankings"`
}

type summaryRankInput struct {
	Page  int     `json:"page"`
	Score float64 `json:"score"`
}

var errNoRelevantPages = errors.New("no sections with a relevance score of 50 or higher to summarise")

// summaryPages resolves the pages a summary request refers to.
func summaryPages(req summaryRequest) ([]string, error) {
	switch strings.ToLower(strings.TrimSpace(req.Mode)) {
	case "full":
		if len(req.DocPages) == 0 {
			return nil, fmt.Errorf("docPages must be a non-empty array when mode is 'full'")
		}
		return req.DocPages, nil
	case "pages":
		if len(req.SelectedPages) > 0 {
			return req.SelectedPages, nil
		}
		if len(req.DocPages) > 0 && req.StartPage > 0 {
			return summary.SelectRange(req.DocPages, req.StartPage, req.EndPage), nil
		}
		return nil, fmt.Errorf("selectedPages must be a non-empty array when mode is 'pages'")
	case "relevant":
		ranked := make([]summary.Ranked, 0, len(req.Rankings))
		for _, rk := range req.Rankings {
			ranked = append(ranked, summary.Ranked{Page: rk.Page, Score: rk.Score})
		}
		pages := summary.SelectRelevant(req.DocPages, ranked, summary.RelevantMinScore, summary.RelevantMaxPages)
		if len(pages) == 0 {
			return nil, errNoRelevantPages
		}
		return pages, nil
	}
	return nil, fmt.Errorf("invalid mode %q, expected 'full', 'pages' or 'relevant'", req.Mode)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErr(w, r, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req summaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErr(w, r, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	pages, err := summaryPages(req)
	if err != nil {
		s.writeErr(w, r, http.StatusBadRequest, err)
		return
	}
	text, err := s.app.Summarizer.Summarize(r.Context(), pages)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, summary.ErrNoPages) {
			status = http.StatusBadRequest
		}
		s.writeErr(w, r, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": text})
}
