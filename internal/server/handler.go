package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/tjfontaine/ux-auditor/internal/domain"
)

// maxRequestBody bounds the POST /analyze body.
const maxRequestBody = 64 << 10

// Analyzer runs one audit. *pipeline.Controller is the production implementation.
type Analyzer interface {
	Analyze(ctx context.Context, url string) (*domain.AnalysisReport, error)
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type healthBody struct {
	Status    string   `json:"status"`
	Providers []string `json:"providers"`
	Renderer  string   `json:"renderer,omitempty"`
}

// handleAnalyze serves POST /analyze.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.AnalysisRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("request body is empty")
		}
		s.writeError(ctx, w, domain.ErrSystem(fmt.Errorf("decoding request: %w", err)))
		return
	}

	url := strings.TrimSpace(req.URL)
	if url == "" {
		s.writeError(ctx, w, domain.ErrInvalidRequest("URL is required"))
		return
	}
	AddLogField(ctx, "audit_url", url)

	report, err := s.analyzer.Analyze(ctx, url)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}

	AddLogField(ctx, "ai_enabled", strconv.FormatBool(report.AIEnabled))
	AddLogField(ctx, "ai_provider", report.Provider)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	providers := s.providers
	if providers == nil {
		providers = []string{}
	}
	writeJSON(w, http.StatusOK, healthBody{Status: "ok", Providers: providers, Renderer: s.renderer})
}

func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	ae := domain.AsAuditError(err)
	status := ae.HTTPStatusCode()
	AddError(ctx, err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, "audit request failed",
		slog.String("request_id", GetRequestID(ctx)),
		slog.String("error_type", string(ae.Type)),
		slog.Int("status", status),
		slog.String("error", err.Error()))

	writeJSON(w, status, errorBody{Error: ae.Message, Details: ae.Details})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
