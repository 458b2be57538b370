// Package server exposes the structuring processor over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/leofalp/textstruct/core/process"
	"github.com/leofalp/textstruct/core/section"
	"github.com/leofalp/textstruct/internal/diag"
	"github.com/leofalp/textstruct/internal/htmltext"
	"github.com/leofalp/textstruct/providers/observability"
)

// DefaultMaxBodyBytes bounds the size of a structuring request body.
const DefaultMaxBodyBytes = 10 << 20

// Runner runs one two-text structuring request. *process.Processor satisfies it.
type Runner interface {
	Run(ctx context.Context, req process.Request) (*section.CombinedResponse, error)
}

// DebugReader returns the diagnostic log of a process. *diag.Store satisfies it.
type DebugReader interface {
	Read(processID string) (diag.Entry, error)
}

// StructureRequest is the body of POST /structure_texts.
type StructureRequest struct {
	TextA string `json:"textA"`
	TextB string `json:"textB"`
	// Format is "text" (default) or "html" and applies to both texts.
	Format string `json:"format,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Detail    string `json:"detail"`
	Kind      string `json:"kind,omitempty"`
	Stage     string `json:"stage,omitempty"`
	ProcessID string `json:"processId,omitempty"`
}

// DebugInfo is the body of GET /debug_info/{processId}.
type DebugInfo struct {
	DebugInfo    string `json:"debug_info"`
	LastModified string `json:"last_modified"`
}

// Server routes HTTP requests to a Runner and a DebugReader.
type Server struct {
	runner       Runner
	debug        DebugReader
	origins      map[string]struct{}
	maxBodyBytes int64
	observer     observability.Provider
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins sets the origins allowed to call the API from a browser,
// with credentials.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		for _, origin := range origins {
			s.origins[origin] = struct{}{}
		}
	}
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithObserver sets the provider requests are logged with.
func WithObserver(observer observability.Provider) Option {
	return func(s *Server) {
		s.observer = observability.OrNop(observer)
	}
}

// New returns a Server. A nil debug reader disables the debug endpoint.
func New(runner Runner, debug DebugReader, opts ...Option) *Server {
	s := &Server{
		runner:       runner,
		debug:        debug,
		origins:      make(map[string]struct{}),
		maxBodyBytes: DefaultMaxBodyBytes,
		observer:     observability.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler wrapped in CORS and access logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /structure_texts", s.handleStructure)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.debug != nil {
		mux.HandleFunc("GET /debug_info/{processId}", s.handleDebugInfo)
	}
	return s.accessLog(s.cors(mux))
}

func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	var body StructureRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Detail: "invalid request body: " + err.Error()})
		return
	}

	format, err := htmltext.ParseFormat(body.Format)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Detail: err.Error()})
		return
	}

	response, err := s.runner.Run(r.Context(), process.Request{
		TextA:  body.TextA,
		TextB:  body.TextB,
		Format: format,
	})
	if err != nil {
		s.writeRunError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) writeRunError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, process.ErrEmptyText) {
		writeError(w, http.StatusBadRequest, ErrorResponse{Detail: err.Error()})
		return
	}

	body := ErrorResponse{
		Detail: err.Error(),
		Kind:   string(section.KindOf(err)),
		Stage:  string(section.StageOf(err)),
	}
	var runErr *process.RunError
	if errors.As(err, &runErr) {
		body.ProcessID = runErr.ProcessID
		body.Detail = runErr.Err.Error()
	}

	status := section.StatusOf(err)
	s.observer.Error(r.Context(), "Structuring request failed",
		observability.String(observability.AttrProcessID, body.ProcessID),
		observability.String(observability.AttrErrorKind, body.Kind),
		observability.String(observability.AttrErrorStage, body.Stage),
		observability.Int(observability.AttrHTTPStatusCode, status),
		observability.Error(err),
	)
	writeError(w, status, body)
}

func (s *Server) handleDebugInfo(w http.ResponseWriter, r *http.Request) {
	entry, err := s.debug.Read(r.PathValue("processId"))
	switch {
	case errors.Is(err, diag.ErrInvalidID):
		writeError(w, http.StatusBadRequest, ErrorResponse{Detail: "Invalid process id"})
		return
	case errors.Is(err, diag.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrorResponse{Detail: "Debug info not found"})
		return
	case err != nil:
		s.observer.Error(r.Context(), "Failed to read debug info", observability.Error(err))
		writeError(w, http.StatusInternalServerError, ErrorResponse{Detail: "Failed to read debug info"})
		return
	}

	writeJSON(w, http.StatusOK, DebugInfo{
		DebugInfo:    entry.Content,
		LastModified: entry.LastModified.Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

func writeError(w http.ResponseWriter, status int, body ErrorResponse) {
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(v)
}
