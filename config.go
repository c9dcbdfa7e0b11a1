package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	defaultAddr    = ":10000"
)

// HTTP client with timeout
var httpClient = &http.Client{
	Timeout: defaultTimeout,
}

// Config flags
var (
	modeFlag         string
	youtubeAPIKey    string
	pageIntervalFlag string
	timeoutFlag      string
	prettyOutput     bool
	serveAddr        string
	frontendURL      string
)

// getConfig returns flag value if set, otherwise env var
func getConfig(flagVal, envKey string) string {
	if flagVal != "" {
		return flagVal
	}
	return os.Getenv(envKey)
}

func getDuration(flagVal, envKey string, def time.Duration) (time.Duration, error) {
	v := getConfig(flagVal, envKey)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", envKey, err)
	}
	return d, nil
}

// parseMaxComments reads the optional cap argument. "", "null" and values
// <= 0 all mean unbounded.
func parseMaxComments(s string) (int, error) {
	if s == "" || s == "null" || s == "None" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("max comments must be a number, got %q", s)
	}
	if n < 0 {
		return 0, nil
	}
	return n, nil
}

// newScraper builds a Scraper from flags and environment.
func newScraper(progress, warn func(string, ...any)) (*Scraper, error) {
	mode, err := parseMode(getConfig(modeFlag, "YTCOMMENTS_MODE"))
	if err != nil {
		return nil, err
	}

	timeout, err := getDuration(timeoutFlag, "YTCOMMENTS_TIMEOUT", defaultTimeout)
	if err != nil {
		return nil, err
	}
	interval, err := getDuration(pageIntervalFlag, "YTCOMMENTS_PAGE_INTERVAL", defaultPageInterval)
	if err != nil {
		return nil, err
	}

	client := httpClient
	if timeout != httpClient.Timeout {
		client = &http.Client{Timeout: timeout}
	}

	var meta metadataChain
	if key := getConfig(youtubeAPIKey, "YOUTUBE_API_KEY"); key != "" {
		meta = append(meta, &DataAPIMetadata{APIKey: key})
	}
	meta = append(meta, NewExtractorMetadata(client))

	return &Scraper{
		Comments: NewInnertubeSource(client, interval),
		Meta:     meta,
		Mode:     mode,
		Progress: progress,
		Warn:     warn,
	}, nil
}
