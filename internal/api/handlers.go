package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/xmlinput/core/cache"
	"github.com/FocuswithJustin/xmlinput/core/errors"
	"github.com/FocuswithJustin/xmlinput/core/sentence"
	"github.com/FocuswithJustin/xmlinput/internal/corpus"
	"github.com/FocuswithJustin/xmlinput/internal/logging"
)

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// RootInfo is the response of GET /.
type RootInfo struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status      string      `json:"status"`
	Version     string      `json:"version"`
	Uptime      string      `json:"uptime"`
	Fingerprint string      `json:"fingerprint"`
	Vocabulary  int         `json:"vocabulary"`
	Clients     int         `json:"websocket_clients"`
	Cache       cache.Stats `json:"cache"`
}

// ParseRequest is the body of POST /parse. Exactly one of Text and
// Lines must be set.
type ParseRequest struct {
	Text  *string  `json:"text,omitempty"`
	Lines []string `json:"lines,omitempty"`
}

// ParseResult is the response to a single-sentence request.
type ParseResult struct {
	Sentence *sentence.Sentence `json:"sentence"`
	Cached   bool               `json:"cached"`
}

// BatchResult is the response to a batch request.
type BatchResult struct {
	Summary corpus.Summary  `json:"summary"`
	Results []corpus.Result `json:"results"`
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/parse", s.handleParse)
	mux.HandleFunc("/ws", s.handleWebSocket)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	return mux
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}
	endpoints := []string{"/", "/health", "/parse", "/ws"}
	if s.metrics != nil {
		endpoints = append(endpoints, "/metrics")
	}
	respond(w, http.StatusOK, RootInfo{
		Name:      "xmlinput",
		Version:   s.cfg.Version,
		Endpoints: endpoints,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, HealthInfo{
		Status:      "ok",
		Version:     s.cfg.Version,
		Uptime:      time.Since(s.started).Round(time.Second).String(),
		Fingerprint: s.proc.Config().Fingerprint(),
		Vocabulary:  s.proc.Vocab().Len(),
		Clients:     s.hub.Clients(),
		Cache:       s.proc.CacheStats(),
	})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Use POST")
		return
	}
	if !jsonContent(r) {
		respondError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Body must be application/json")
		return
	}

	var req ParseRequest
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", err.Error())
			return
		}
		msg := "Invalid JSON: " + err.Error()
		if err == io.EOF {
			msg = "Empty body"
		}
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", msg)
		return
	}

	switch {
	case req.Text != nil && req.Lines == nil:
		s.parseOne(w, r, *req.Text)
	case req.Text == nil && req.Lines != nil:
		s.parseBatch(w, r, req.Lines)
	default:
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Exactly one of text and lines is required")
	}
}

func (s *Server) parseOne(w http.ResponseWriter, r *http.Request, text string) {
	sent, cached, err := s.proc.Parse(r.Context(), text)
	if err != nil {
		s.respondParseError(w, r, err)
		return
	}
	respond(w, http.StatusOK, ParseResult{Sentence: sent, Cached: cached})
}

func (s *Server) parseBatch(w http.ResponseWriter, r *http.Request, lines []string) {
	if len(lines) > s.cfg.MaxLines {
		respondError(w, http.StatusRequestEntityTooLarge, "TOO_MANY_LINES",
			"Batch exceeds the line limit")
		return
	}
	for _, l := range lines {
		if strings.ContainsAny(l, "\r\n") {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Lines must not contain line breaks")
			return
		}
	}

	runID := uuid.NewString()
	results := make([]corpus.Result, 0, len(lines))
	sum, err := s.proc.RunWithID(r.Context(), runID, strings.NewReader(strings.Join(lines, "\n")),
		s.cfg.Workers, func(res corpus.Result) error {
			results = append(results, res)
			return nil
		})
	if err != nil {
		logging.ErrorContext(r.Context(), "batch failed", "run_id", runID, "error", err)
		respondError(w, http.StatusInternalServerError, "INTERNAL", "Batch failed")
		return
	}

	s.hub.Broadcast(Message{Type: MessageBatchComplete, Summary: &sum})
	respondWithMeta(w, http.StatusOK, BatchResult{Summary: sum, Results: results}, len(results))
}

// respondParseError maps input rejections to 422 with the error kind as
// the code. Anything else is a server fault.
func (s *Server) respondParseError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.IsInputError(err) {
		respondError(w, http.StatusUnprocessableEntity, strings.ToUpper(errors.Kind(err)), err.Error())
		return
	}
	logging.ErrorContext(r.Context(), "parse failed", "error", err)
	respondError(w, http.StatusInternalServerError, "INTERNAL", "Parse failed")
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	respondWithMeta(w, status, data, 0)
}

func respondWithMeta(w http.ResponseWriter, status int, data interface{}, total int) {
	writeJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Total:     total,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to write response", "error", err)
	}
}
