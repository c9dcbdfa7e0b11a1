package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// stubScraper returns a canned result and records what it was asked for.
type stubScraper struct {
	result *ScrapeResult

	gotURL   string
	gotLimit int
	calls    int
}

func (s *stubScraper) Scrape(ctx context.Context, url string, maxComments int) *ScrapeResult {
	s.calls++
	s.gotURL = url
	s.gotLimit = maxComments
	return s.result
}

func withStub(t *testing.T, result *ScrapeResult) *stubScraper {
	t.Helper()
	stub := &stubScraper{result: result}
	prev := scrapeService
	scrapeService = stub
	t.Cleanup(func() { scrapeService = prev })
	return stub
}

func post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newMux().ServeHTTP(w, req)
	return w
}

func sampleResult() *ScrapeResult {
	return &ScrapeResult{
		Success:  true,
		Platform: platformYouTube,
		VideoID:  "dQw4w9WgXcQ",
		Total:    2,
		Comments: []Comment{
			{ID: "a", Author: "alice", Text: "This video is amazing, I love it", Likes: 10},
			{ID: "b", Author: "bob", Text: "worst video ever, total waste of time", Likes: 1},
		},
		Metadata: &Metadata{Title: "Never Gonna Give You Up", Channel: "Rick Astley", Tags: []string{}},
	}
}

// fixedScraper is safe for concurrent use.
type fixedScraper struct{ result *ScrapeResult }

func (f fixedScraper) Scrape(context.Context, string, int) *ScrapeResult { return f.result }

func TestHealthDuringConcurrentScrapes(t *testing.T) {
	prev := scrapeService
	scrapeService = fixedScraper{result: sampleResult()}
	t.Cleanup(func() { scrapeService = prev })
	serverStartTime = time.Now()
	lastSuccess.Store(0)

	h := newMux()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest("POST", "/api/scrape", strings.NewReader(`{"videoUrl":"https://youtu.be/dQw4w9WgXcQ"}`))
			h.ServeHTTP(httptest.NewRecorder(), req)
		}()
		go func() {
			defer wg.Done()
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/health", nil))
		}()
	}
	wg.Wait()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/health", nil))
	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.LastSuccess == "" {
		t.Error("last_success should be set after successful scrapes")
	}
}

func TestHealthEndpoint(t *testing.T) {
	serverStartTime = time.Now()
	lastSuccess.Store(0)

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()

	newMux().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("health endpoint returned %d, want %d", w.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != "ok" {
		t.Errorf("status = %q, want %q", resp.Status, "ok")
	}
	if resp.Version != apiVersion {
		t.Errorf("version = %q, want %q", resp.Version, apiVersion)
	}
	if resp.UptimeSeconds < 0 {
		t.Errorf("uptime should be >= 0, got %d", resp.UptimeSeconds)
	}
	if resp.LastSuccess != "" {
		t.Errorf("last_success = %q, want empty before any scrape", resp.LastSuccess)
	}
}

func TestRootAndNotFound(t *testing.T) {
	w := httptest.NewRecorder()
	newMux().ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/api/analyze") {
		t.Errorf("GET / = %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	newMux().ServeHTTP(w, httptest.NewRequest("GET", "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("GET /nope = %d, want 404", w.Code)
	}
	var resp ErrorResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Error != ErrNotFound {
		t.Errorf("error code = %q, want %q", resp.Error, ErrNotFound)
	}
}

func TestScrapeEndpointValidation(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantMessage string
	}{
		{"invalid json", "not json", "invalid JSON"},
		{"empty body", "", "invalid JSON"},
		{"missing url", `{}`, "videoUrl is required"},
		{"invalid url", `{"videoUrl":"https://example.com/video"}`, "invalid YouTube URL"},
		{"non-numeric cap", `{"videoUrl":"https://youtu.be/dQw4w9WgXcQ","maxComments":"lots"}`, "must be a number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := withStub(t, sampleResult())

			w := post(t, "/api/scrape", tt.body)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			var resp ErrorResponse
			json.NewDecoder(w.Body).Decode(&resp)
			if resp.Error != ErrInvalidRequest {
				t.Errorf("error code = %q, want %q", resp.Error, ErrInvalidRequest)
			}
			if !strings.Contains(resp.Message, tt.wantMessage) {
				t.Errorf("message = %q, want it to contain %q", resp.Message, tt.wantMessage)
			}
			if stub.calls != 0 {
				t.Error("scraper should not be called for an invalid request")
			}
		})
	}
}

func TestScrapeEndpointSuccess(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantLimit int
	}{
		{"numeric cap", `{"videoUrl":"https://youtu.be/dQw4w9WgXcQ","maxComments":5}`, 5},
		{"string cap", `{"videoUrl":"https://youtu.be/dQw4w9WgXcQ","maxComments":"25"}`, 25},
		{"null cap", `{"videoUrl":"https://youtu.be/dQw4w9WgXcQ","maxComments":null}`, 0},
		{"no cap", `{"videoUrl":"https://youtu.be/dQw4w9WgXcQ"}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := withStub(t, sampleResult())
			lastSuccess.Store(0)

			w := post(t, "/api/scrape", tt.body)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
			}
			if stub.gotLimit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", stub.gotLimit, tt.wantLimit)
			}
			if stub.gotURL != "https://youtu.be/dQw4w9WgXcQ" {
				t.Errorf("url = %q", stub.gotURL)
			}

			var resp ScrapeResult
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if !resp.Success || resp.Total != 2 || resp.VideoID != "dQw4w9WgXcQ" {
				t.Errorf("unexpected response: %+v", resp)
			}
			if lastSuccess.Load() == 0 {
				t.Error("last success time should be updated")
			}
		})
	}
}

func TestScrapeEndpointFailures(t *testing.T) {
	tests := []struct {
		name     string
		errMsg   string
		wantCode int
		wantErr  string
	}{
		{"no comments", "No comments found. The video might have comments disabled, be age-restricted, or have no comments yet.", http.StatusNotFound, ErrNoComments},
		{"rate limited", "Failed to fetch comments: rate limited by YouTube (429)", http.StatusTooManyRequests, ErrRateLimited},
		{"upstream failure", "Failed to fetch comments: watch page error: status 503", http.StatusBadGateway, ErrScrapeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withStub(t, &ScrapeResult{Success: false, Error: tt.errMsg, Comments: []Comment{}})

			w := post(t, "/api/scrape", `{"videoUrl":"https://youtu.be/dQw4w9WgXcQ"}`)

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			var resp ErrorResponse
			json.NewDecoder(w.Body).Decode(&resp)
			if resp.Error != tt.wantErr {
				t.Errorf("error code = %q, want %q", resp.Error, tt.wantErr)
			}
			if resp.VideoID != "dQw4w9WgXcQ" {
				t.Errorf("video_id = %q", resp.VideoID)
			}
		})
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	withStub(t, sampleResult())

	w := post(t, "/api/analyze", `{"videoUrl":"https://www.youtube.com/watch?v=dQw4w9WgXcQ"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp AnalyzeResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Error("Success = false")
	}
	if resp.Statistics.TotalComments != 2 || resp.Statistics.PositiveCount != 1 || resp.Statistics.NegativeCount != 1 {
		t.Errorf("statistics = %+v", resp.Statistics)
	}
	if len(resp.Comments) != 2 || resp.Comments[0].Row != 1 {
		t.Errorf("comments = %+v", resp.Comments)
	}
	if len(resp.Insights) == 0 {
		t.Error("expected at least one insight")
	}
	if resp.Metadata.Metadata == nil || resp.Metadata.Title != "Never Gonna Give You Up" {
		t.Errorf("metadata = %+v", resp.Metadata)
	}
	if resp.Metadata.VideoID != "dQw4w9WgXcQ" || resp.Metadata.Platform != "youtube" || resp.Metadata.ExtractedComments != 2 {
		t.Errorf("analysis metadata = %+v", resp.Metadata)
	}
}

func TestAnalyzeEndpointNoComments(t *testing.T) {
	withStub(t, &ScrapeResult{Success: true, Platform: platformYouTube, VideoID: "dQw4w9WgXcQ", Comments: []Comment{}})

	w := post(t, "/api/analyze", `{"videoUrl":"https://youtu.be/dQw4w9WgXcQ"}`)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	var resp ErrorResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Error != ErrNoComments {
		t.Errorf("error code = %q, want %q", resp.Error, ErrNoComments)
	}
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := corsMiddleware([]string{"http://localhost:3000"})(next)

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantACAO   string
	}{
		{"preflight allowed", "OPTIONS", "http://localhost:3000", http.StatusNoContent, "http://localhost:3000"},
		{"allowed origin", "POST", "http://localhost:3000", http.StatusTeapot, "http://localhost:3000"},
		{"vercel preview", "POST", "https://ytcomments-git-main.vercel.app", http.StatusTeapot, "https://ytcomments-git-main.vercel.app"},
		{"no origin", "POST", "", http.StatusTeapot, ""},
		{"blocked origin", "POST", "https://evil.example", http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/scrape", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantACAO {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantACAO)
			}
		})
	}
}

func TestAllowedOrigins(t *testing.T) {
	frontendURL = ""
	t.Setenv("FRONTEND_URL", "https://ytcomments.example/")

	origins := allowedOrigins()

	var found bool
	for _, o := range origins {
		if o == "https://ytcomments.example" {
			found = true
		}
	}
	if !found {
		t.Errorf("FRONTEND_URL not in allowed origins: %v", origins)
	}
}

func TestRequestBodyLimit(t *testing.T) {
	withStub(t, sampleResult())

	body := `{"videoUrl":"https://youtu.be/dQw4w9WgXcQ","pad":"` + strings.Repeat("x", maxRequestBodySize) + `"}`
	req := httptest.NewRequest("POST", "/api/scrape", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	http.MaxBytesHandler(newMux(), maxRequestBodySize).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d for oversized body", w.Code, http.StatusBadRequest)
	}
}

type panickingScraper struct{}

func (panickingScraper) Scrape(ctx context.Context, url string, maxComments int) *ScrapeResult {
	panic("boom")
}

func TestHandlerStack(t *testing.T) {
	t.Run("gzip for large responses", func(t *testing.T) {
		result := sampleResult()
		for i := 0; i < 50; i++ {
			result.Comments = append(result.Comments, Comment{ID: fmt.Sprintf("c%d", i), Author: "someone", Text: strings.Repeat("great video ", 5)})
		}
		result.Total = len(result.Comments)
		withStub(t, result)

		req := httptest.NewRequest("POST", "/api/scrape", strings.NewReader(`{"videoUrl":"https://youtu.be/dQw4w9WgXcQ"}`))
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()

		newHandler(nil).ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if got := w.Header().Get("Content-Encoding"); got != "gzip" {
			t.Fatalf("Content-Encoding = %q, want gzip", got)
		}
		zr, err := gzip.NewReader(w.Body)
		if err != nil {
			t.Fatalf("gzip reader: %v", err)
		}
		var resp ScrapeResult
		if err := json.NewDecoder(zr).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Total != result.Total {
			t.Errorf("total = %d, want %d", resp.Total, result.Total)
		}
	})

	t.Run("panics become 500", func(t *testing.T) {
		prev := scrapeService
		scrapeService = panickingScraper{}
		t.Cleanup(func() { scrapeService = prev })

		req := httptest.NewRequest("POST", "/api/scrape", strings.NewReader(`{"videoUrl":"https://youtu.be/dQw4w9WgXcQ"}`))
		w := httptest.NewRecorder()

		newHandler(nil).ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", w.Code)
		}
	})

	t.Run("request id is returned", func(t *testing.T) {
		w := httptest.NewRecorder()
		newHandler(nil).ServeHTTP(w, httptest.NewRequest("GET", "/api/health", nil))

		if w.Header().Get(requestIDHeader) == "" {
			t.Error("missing X-Request-ID header")
		}
	})
}
