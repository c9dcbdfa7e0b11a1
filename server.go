package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/spf13/cast"
	"go.uber.org/automaxprocs/maxprocs"
)

// Server configuration
const (
	maxRequestBodySize      = 4 * 1024 // URL + max comments only
	serverReadTimeout       = 5 * time.Second
	serverWriteTimeout      = 10 * time.Minute // full comment scrapes are slow
	serverIdleTimeout       = 60 * time.Second
	gracefulShutdownTimeout = 30 * time.Second
	apiVersion              = "3.0"
)

type ScrapeRequest struct {
	VideoURL    string `json:"videoUrl"`
	MaxComments any    `json:"maxComments,omitempty"` // number, numeric string or null
}

type AnalyzeResponse struct {
	Success    bool              `json:"success"`
	Metadata   AnalysisMetadata  `json:"metadata"`
	Statistics Statistics        `json:"statistics"`
	Insights   []Insight         `json:"insights"`
	Comments   []AnalyzedComment `json:"comments"`
}

// AnalysisMetadata is the video metadata plus details about the analysis run.
type AnalysisMetadata struct {
	*Metadata
	Platform          string `json:"platform"`
	VideoID           string `json:"videoId"`
	VideoURL          string `json:"videoUrl"`
	AnalysisDate      string `json:"analysisDate"`
	ExtractedComments int    `json:"extractedComments"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	VideoID string `json:"video_id,omitempty"`
}

type HealthResponse struct {
	Status                string `json:"status"`
	Version               string `json:"version"`
	Timestamp             string `json:"timestamp"`
	UptimeSeconds         int64  `json:"uptime_seconds"`
	LastSuccess           string `json:"last_success,omitempty"`
	LastSuccessAgeSeconds int64  `json:"last_success_age_seconds,omitempty"`
}

// Error codes
const (
	ErrInvalidRequest = "invalid_request"
	ErrNoComments     = "no_comments"
	ErrRateLimited    = "rate_limited"
	ErrScrapeFailed   = "scrape_failed"
	ErrNotFound       = "not_found"
)

// scrapeRunner is satisfied by *Scraper; handlers only need Scrape.
type scrapeRunner interface {
	Scrape(ctx context.Context, url string, maxComments int) *ScrapeResult
}

var (
	scrapeService   scrapeRunner
	serverStartTime time.Time
	lastSuccess     atomic.Int64 // unix nanoseconds, zero until the first success
)

// startServer starts the HTTP server with graceful shutdown
func startServer(addr string) error {
	serverStartTime = time.Now()

	// Initialize logger (INFO level for production)
	initLogger(slog.LevelInfo)
	logInfo("starting server", slog.String("addr", addr))

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logDebug(fmt.Sprintf(format, args...))
	})); err != nil {
		logWarn("failed to set GOMAXPROCS", slog.String("error", err.Error()))
	}

	s, err := newScraper(
		func(format string, args ...any) { logDebug(fmt.Sprintf(format, args...)) },
		func(format string, args ...any) { logWarn(fmt.Sprintf(format, args...)) },
	)
	if err != nil {
		return err
	}
	scrapeService = s

	server := &http.Server{
		Addr:         addr,
		Handler:      newHandler(allowedOrigins()),
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logInfo("shutdown signal received, gracefully stopping server")

		ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logError("server forced to shutdown", slog.String("error", err.Error()))
		}
	}()

	logInfo("server started", slog.String("addr", addr), slog.String("mode", s.Mode.String()))

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logError("server error", slog.String("error", err.Error()))
		return fmt.Errorf("server error: %w", err)
	}

	logInfo("server stopped")
	return nil
}

// newHandler wraps the API routes in the middleware stack, outermost first:
// logging, panic recovery, gzip, CORS, body limit.
func newHandler(origins []string) http.Handler {
	var h http.Handler = http.MaxBytesHandler(newMux(), maxRequestBodySize)
	h = corsMiddleware(origins)(h)
	h = gzhttp.GzipHandler(h)
	h = middleware.Recoverer(h)
	return loggingMiddleware(h)
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleRoot)
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/scrape", handleScrape)
	mux.HandleFunc("POST /api/analyze", handleAnalyze)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, ErrNotFound, "Endpoint not found")
	})
	return mux
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "YouTube Comments API",
		"version": apiVersion,
		"endpoints": map[string]string{
			"health":  "GET /api/health",
			"scrape":  "POST /api/scrape",
			"analyze": "POST /api/analyze",
		},
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:        "ok",
		Version:       apiVersion,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(serverStartTime).Seconds()),
	}

	if ns := lastSuccess.Load(); ns != 0 {
		last := time.Unix(0, ns)
		resp.LastSuccess = last.Format(time.RFC3339)
		resp.LastSuccessAgeSeconds = int64(time.Since(last).Seconds())
	}

	writeJSON(w, http.StatusOK, resp)
}

func handleScrape(w http.ResponseWriter, r *http.Request) {
	req, videoID, limit, err := parseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidRequest, err.Error())
		return
	}

	reqCtx := getRequestContext(r)
	reqCtx.VideoID = videoID

	result := scrapeService.Scrape(r.Context(), req.VideoURL, limit)
	reqCtx.Comments = result.Total
	if !result.Success {
		logWarn("scrape failed", slog.String("video_id", videoID), slog.String("error", result.Error))
		handleScrapeError(w, result.Error, videoID)
		return
	}

	lastSuccess.Store(time.Now().UnixNano())
	writeJSON(w, http.StatusOK, result)
}

func handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, videoID, limit, err := parseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidRequest, err.Error())
		return
	}

	reqCtx := getRequestContext(r)
	reqCtx.VideoID = videoID

	result := scrapeService.Scrape(r.Context(), req.VideoURL, limit)
	reqCtx.Comments = result.Total
	if !result.Success && result.Total == 0 {
		logWarn("scrape failed", slog.String("video_id", videoID), slog.String("error", result.Error))
		handleScrapeError(w, result.Error, videoID)
		return
	}
	if result.Total == 0 {
		writeErrorWithVideo(w, http.StatusNotFound, ErrNoComments, "No comments found", videoID)
		return
	}

	logDebug("analyzing sentiment", slog.String("video_id", videoID), slog.Int("comments", result.Total))
	comments := processComments(result.Comments)
	stats := calculateStatistics(comments)
	insights := generateInsights(comments, stats)

	meta := result.Metadata
	if meta == nil {
		meta = fallbackMetadata(videoID)
	}

	lastSuccess.Store(time.Now().UnixNano())
	writeJSON(w, http.StatusOK, AnalyzeResponse{
		Success: true,
		Metadata: AnalysisMetadata{
			Metadata:          meta,
			Platform:          platformYouTube,
			VideoID:           videoID,
			VideoURL:          req.VideoURL,
			AnalysisDate:      time.Now().UTC().Format(time.RFC3339),
			ExtractedComments: len(comments),
		},
		Statistics: stats,
		Insights:   insights,
		Comments:   comments,
	})
}

func parseRequest(r *http.Request) (*ScrapeRequest, string, int, error) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, "", 0, fmt.Errorf("invalid JSON: %w", err)
	}

	if req.VideoURL == "" {
		return nil, "", 0, fmt.Errorf("videoUrl is required")
	}

	videoID, err := extractVideoID(req.VideoURL)
	if err != nil {
		return nil, "", 0, fmt.Errorf("invalid YouTube URL: %w", err)
	}

	limit := 0
	if req.MaxComments != nil {
		n, err := parseMaxComments(cast.ToString(req.MaxComments))
		if err != nil {
			return nil, "", 0, err
		}
		limit = n
	}

	return &req, videoID, limit, nil
}

func handleScrapeError(w http.ResponseWriter, msg, videoID string) {
	switch {
	case strings.Contains(msg, "429"):
		writeErrorWithVideo(w, http.StatusTooManyRequests, ErrRateLimited, "Rate limited by YouTube, try again later", videoID)
	case strings.HasPrefix(msg, "No comments found"):
		writeErrorWithVideo(w, http.StatusNotFound, ErrNoComments, msg, videoID)
	default:
		writeErrorWithVideo(w, http.StatusBadGateway, ErrScrapeFailed, msg, videoID)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}

func writeErrorWithVideo(w http.ResponseWriter, status int, code, message, videoID string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
		VideoID: videoID,
	})
}
