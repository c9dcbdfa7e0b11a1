package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

var logger *slog.Logger

// initLogger sets up structured JSON logging on stderr; stdout is reserved
// for the CLI's JSON result.
func initLogger(level slog.Level) {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewJSONHandler(os.Stderr, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// logInfo logs an info message with optional attributes
func logInfo(msg string, attrs ...any) {
	if logger != nil {
		logger.Info(msg, attrs...)
	}
}

// logWarn logs a warning message with optional attributes
func logWarn(msg string, attrs ...any) {
	if logger != nil {
		logger.Warn(msg, attrs...)
	}
}

// logError logs an error message with optional attributes
func logError(msg string, attrs ...any) {
	if logger != nil {
		logger.Error(msg, attrs...)
	}
}

// logDebug logs a debug message with optional attributes
func logDebug(msg string, attrs ...any) {
	if logger != nil {
		logger.Debug(msg, attrs...)
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestContext holds request-scoped data for logging
type requestContext struct {
	RequestID string
	VideoID   string
	Comments  int
}

type ctxKey string

const reqCtxKey ctxKey = "requestContext"

// setRequestContext stores request context for logging
func setRequestContext(r *http.Request, ctx *requestContext) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), reqCtxKey, ctx))
}

// getRequestContext retrieves request context for logging
func getRequestContext(r *http.Request) *requestContext {
	if ctx, ok := r.Context().Value(reqCtxKey).(*requestContext); ok {
		return ctx
	}
	return &requestContext{}
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (for reverse proxy setups)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// loggingMiddleware logs HTTP requests with structured data
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		r = setRequestContext(r, &requestContext{RequestID: id})
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		reqCtx := getRequestContext(r)

		attrs := []any{
			slog.String("request_id", reqCtx.RequestID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", wrapped.status),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("ip", getClientIP(r)),
		}

		if reqCtx.VideoID != "" {
			attrs = append(attrs, slog.String("video_id", reqCtx.VideoID), slog.Int("comments", reqCtx.Comments))
		}

		// Log based on status code
		if wrapped.status >= 500 {
			logError("request failed", attrs...)
		} else if wrapped.status >= 400 {
			logWarn("request error", attrs...)
		} else {
			logInfo("request completed", attrs...)
		}
	})
}

// allowedOrigins lists the browser origins the API answers CORS requests for.
func allowedOrigins() []string {
	origins := []string{
		"http://localhost:3000",
		"http://localhost:5000",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5000",
	}
	if fe := getConfig(frontendURL, "FRONTEND_URL"); fe != "" {
		origins = append(origins, strings.TrimRight(fe, "/"))
	}
	return origins
}

// corsMiddleware allows the listed origins plus Vercel preview deployments.
// Requests without an Origin header (curl, server-to-server) pass through.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if !allowed[origin] && !strings.HasSuffix(origin, ".vercel.app") {
					logWarn("CORS blocked", slog.String("origin", origin))
					writeError(w, http.StatusForbidden, "cors_blocked", "Origin "+origin+" is not allowed")
					return
				}
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				h.Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
