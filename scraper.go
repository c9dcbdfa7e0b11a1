package main

import (
	"context"
	"time"
)

const platformYouTube = "youtube"

// ScrapeResult is the JSON document printed by the CLI and returned by /api/scrape.
type ScrapeResult struct {
	Success  bool      `json:"success"`
	Platform string    `json:"platform,omitempty"`
	VideoID  string    `json:"video_id,omitempty"`
	Total    int       `json:"total"`
	Comments []Comment `json:"comments"`
	Metadata *Metadata `json:"metadata,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Scraper ties URL parsing, comment aggregation and metadata lookup together.
type Scraper struct {
	Comments CommentSource
	Meta     MetadataSource
	Mode     Mode

	// Progress receives diagnostics; nil discards them.
	Progress func(format string, args ...any)
	// Warn receives non-fatal failures; nil falls back to Progress.
	Warn func(format string, args ...any)
}

// Scrape never returns nil; every failure is reported through Success/Error.
func (s *Scraper) Scrape(ctx context.Context, url string, maxComments int) *ScrapeResult {
	s.logf("Parsing URL...")
	videoID, err := extractVideoID(url)
	if err != nil {
		s.warnf("%v", err)
		return &ScrapeResult{
			Success:  false,
			Error:    "Could not extract video ID from YouTube URL",
			Comments: []Comment{},
		}
	}
	s.logf("Video ID: %s", videoID)
	if maxComments > 0 {
		s.logf("Max comments: %d", maxComments)
	} else {
		s.logf("Max comments: all")
	}

	start := time.Now()
	agg := &Aggregator{Source: s.Comments, Mode: s.Mode, Progress: s.Progress}
	res := agg.Aggregate(ctx, videoID, maxComments)
	s.logf("Comments done in %s", time.Since(start).Round(time.Millisecond))

	return &ScrapeResult{
		Success:  res.Success,
		Platform: platformYouTube,
		VideoID:  videoID,
		Total:    res.Total,
		Comments: res.Comments,
		Metadata: s.metadata(ctx, videoID),
		Error:    res.Error,
	}
}

// metadata always returns a usable record, substituting the fallback on failure.
func (s *Scraper) metadata(ctx context.Context, videoID string) *Metadata {
	s.logf("Fetching video metadata...")
	if s.Meta == nil {
		return fallbackMetadata(videoID)
	}

	m, err := s.Meta.Metadata(ctx, videoID)
	if err != nil {
		s.warnf("Metadata fetch error: %s", clip(err.Error(), 100))
		return fallbackMetadata(videoID)
	}
	s.logf("Title: %s", m.Title)
	s.logf("Channel: %s", m.Channel)
	s.logf("Views: %d", m.ViewCount)
	return m
}

func (s *Scraper) logf(format string, args ...any) {
	if s.Progress != nil {
		s.Progress(format, args...)
	}
}

func (s *Scraper) warnf(format string, args ...any) {
	if s.Warn != nil {
		s.Warn(format, args...)
		return
	}
	s.logf(format, args...)
}
