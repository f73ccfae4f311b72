package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/threatlens-project/threatlens/internal/analytics"
	"github.com/threatlens-project/threatlens/internal/core"
	"github.com/threatlens-project/threatlens/internal/pipeline"
)

// Server is the upload boundary around the analytics pipeline. It
// accepts an event log, runs the pipeline, and translates typed
// pipeline errors into HTTP responses. It has no session or
// authentication awareness beyond the stateless API key check.
type Server struct {
	cfg      *core.Config
	logger   zerolog.Logger
	server   *http.Server
	bus      *core.EventBus        // optional fan-out
	reporter *core.WebhookReporter // optional fan-out
}

// NewServer creates the API server. bus and reporter may be nil.
func NewServer(cfg *core.Config, logger zerolog.Logger, bus *core.EventBus, reporter *core.WebhookReporter) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger.With().Str("component", "api_server").Logger(),
		bus:      bus,
		reporter: reporter,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/reports", s.handleCreateReport)
	mux.HandleFunc("/health", s.handleHealth)

	// Middleware chain: CORS -> logging -> auth -> handler
	handler := corsMiddleware(
		loggingMiddleware(
			authMiddleware(mux, cfg, s.logger),
			s.logger,
		),
		cfg.Server.CORSOrigins,
	)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second, // training a large upload takes a while
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Start begins serving the API.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("API server starting")
	if s.cfg.AuthEnabled() {
		s.logger.Info().Int("keys", len(s.cfg.Server.APIKeys)).Msg("API authentication enabled")
	} else {
		s.logger.Warn().Msg("API authentication disabled — set api_keys in config or THREATLENS_API_KEY env var")
	}
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()
	return nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	payload := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	}
	if s.bus != nil {
		payload["bus"] = map[string]interface{}{
			"connected": s.bus.IsConnected(),
			"published": s.bus.Published(),
			"failed":    s.bus.Failed(),
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

// handleCreateReport accepts a multipart upload with a "file" field,
// persists it, runs the pipeline, and returns the report. Pipeline
// errors are terminal for the request — there is no partial report.
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.Server.MaxUploadBytes); err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": "upload too large or not multipart form data",
		})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": `missing "file" form field`,
		})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".csv" && ext != ".xlsx" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("unsupported file type %q, expected .csv or .xlsx", ext),
		})
		return
	}

	path, err := s.persistUpload(file, ext)
	if err != nil {
		s.logger.Error().Err(err).Msg("persisting upload")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store upload"})
		return
	}
	defer os.Remove(path)

	report, err := pipeline.Run(path, s.cfg, s.logger)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	s.fanOut(report, header.Filename)
	writeJSON(w, http.StatusOK, report)
}

// writePipelineError maps the pipeline error taxonomy onto HTTP codes.
func (s *Server) writePipelineError(w http.ResponseWriter, err error) {
	var malformed *core.MalformedInputError
	if errors.As(err, &malformed) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  malformed.Error(),
			"row":    malformed.Row,
			"column": malformed.Column,
		})
		return
	}
	var insufficient *core.InsufficientDataError
	if errors.As(err, &insufficient) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": insufficient.Error(),
		})
		return
	}
	s.logger.Error().Err(err).Msg("pipeline failure")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "report generation failed"})
}

// persistUpload writes the uploaded stream into the upload directory.
func (s *Server) persistUpload(file io.Reader, ext string) (string, error) {
	if err := os.MkdirAll(s.cfg.Server.UploadDir, 0755); err != nil {
		return "", fmt.Errorf("creating upload dir: %w", err)
	}
	path := filepath.Join(s.cfg.Server.UploadDir, uuid.New().String()+ext)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating upload file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, file); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing upload: %w", err)
	}
	return path, nil
}

// fanOut notifies the bus and webhooks after a successful report.
func (s *Server) fanOut(report *analytics.Report, sourceFile string) {
	if s.bus != nil {
		ev := core.NewReportEvent(sourceFile)
		ev.TotalThreatCount = report.ThreatAnalytics.TotalThreatCount
		ev.Accuracy = report.ModelPerformance.Accuracy
		ev.Status = report.ModelPerformance.Status
		if err := s.bus.PublishReport(ev); err != nil {
			s.logger.Warn().Err(err).Msg("publishing report event")
		}
	}
	if s.reporter != nil {
		s.reporter.Deliver(report)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func authMiddleware(next http.Handler, cfg *core.Config, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Always allow health checks without auth
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		// If no API keys configured, allow all (open mode)
		if !cfg.AuthEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get("Authorization")
		if key == "" {
			key = r.Header.Get("X-API-Key")
		}
		if key == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "missing authentication — provide Authorization: Bearer <key> or X-API-Key header",
			})
			return
		}
		key = strings.TrimPrefix(key, "Bearer ")

		if !cfg.ValidateAPIKey(key) {
			logger.Warn().Str("path", r.URL.Path).Str("ip", r.RemoteAddr).Msg("invalid API key")
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "invalid API key"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowedOrigins []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := "*"
		if len(allowedOrigins) > 0 {
			allowed = ""
			for _, o := range allowedOrigins {
				if o == "*" || o == origin {
					allowed = origin
					break
				}
			}
			if allowed == "" {
				// Origin not in allow list — skip CORS headers
				next.ServeHTTP(w, r)
				return
			}
		}
		w.Header().Set("Access-Control-Allow-Origin", allowed)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
		if len(allowedOrigins) > 0 && allowedOrigins[0] != "*" {
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
