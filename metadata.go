package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
	"google.golang.org/api/option"
	ytdata "google.golang.org/api/youtube/v3"
)

const (
	maxDescriptionRunes = 500
	maxTags             = 10
)

// Metadata describes the video a set of comments belongs to.
type Metadata struct {
	Title        string   `json:"title"`
	Channel      string   `json:"channel"`
	ChannelID    string   `json:"channelId"`
	ViewCount    int64    `json:"viewCount"`
	LikeCount    int64    `json:"likeCount"`
	CommentCount int64    `json:"commentCount"`
	Duration     string   `json:"duration"`
	UploadDate   string   `json:"uploadDate"`
	Thumbnail    string   `json:"thumbnail"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
}

// MetadataSource fetches Metadata for a single video.
type MetadataSource interface {
	Metadata(ctx context.Context, videoID string) (*Metadata, error)
}

// fallbackMetadata is substituted whenever every metadata source failed.
func fallbackMetadata(videoID string) *Metadata {
	return &Metadata{
		Title:     "YouTube Video",
		Channel:   "Unknown Channel",
		Duration:  "N/A",
		Thumbnail: defaultThumbnail(videoID),
		Tags:      []string{},
	}
}

func defaultThumbnail(videoID string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", videoID)
}

// ExtractorMetadata reads metadata from the watch page and player response
// via kkdai/youtube. No API key needed; likes and tags are not available.
type ExtractorMetadata struct {
	client *youtube.Client
}

func NewExtractorMetadata(httpClient *http.Client) *ExtractorMetadata {
	return &ExtractorMetadata{client: &youtube.Client{HTTPClient: httpClient}}
}

func (e *ExtractorMetadata) Metadata(ctx context.Context, videoID string) (*Metadata, error) {
	video, err := e.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to extract video: %w", err)
	}
	return extractorVideoToMetadata(video), nil
}

func extractorVideoToMetadata(v *youtube.Video) *Metadata {
	m := &Metadata{
		Title:       v.Title,
		Channel:     v.Author,
		ChannelID:   v.ChannelID,
		ViewCount:   int64(v.Views),
		Duration:    formatDuration(int64(v.Duration / time.Second)),
		Thumbnail:   defaultThumbnail(v.ID),
		Description: clip(v.Description, maxDescriptionRunes),
		Tags:        []string{},
	}
	if !v.PublishDate.IsZero() {
		m.UploadDate = v.PublishDate.Format(time.DateOnly)
	}

	var best uint
	for _, t := range v.Thumbnails {
		if t.URL != "" && t.Width >= best {
			best = t.Width
			m.Thumbnail = t.URL
		}
	}
	return m
}

// DataAPIMetadata uses the YouTube Data API v3. Requires an API key.
type DataAPIMetadata struct {
	APIKey   string
	Endpoint string // overrides the API base URL; empty uses the default
}

func (d *DataAPIMetadata) Metadata(ctx context.Context, videoID string) (*Metadata, error) {
	opts := []option.ClientOption{option.WithAPIKey(d.APIKey)}
	if d.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(d.Endpoint))
	}

	svc, err := ytdata.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating YouTube Data API client: %w", err)
	}

	resp, err := svc.Videos.List([]string{"snippet", "statistics", "contentDetails"}).
		Id(videoID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("videos.list failed: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("video %s not found", videoID)
	}
	return dataAPIVideoToMetadata(videoID, resp.Items[0]), nil
}

func dataAPIVideoToMetadata(videoID string, v *ytdata.Video) *Metadata {
	m := &Metadata{
		Thumbnail: defaultThumbnail(videoID),
		Duration:  "N/A",
		Tags:      []string{},
	}

	if s := v.Snippet; s != nil {
		m.Title = s.Title
		m.Channel = s.ChannelTitle
		m.ChannelID = s.ChannelId
		m.Description = clip(s.Description, maxDescriptionRunes)
		m.UploadDate = formatUploadDate(s.PublishedAt)
		if len(s.Tags) > 0 {
			m.Tags = append(m.Tags, s.Tags[:min(len(s.Tags), maxTags)]...)
		}
		if th := s.Thumbnails; th != nil {
			for _, t := range []*ytdata.Thumbnail{th.Maxres, th.Standard, th.High, th.Medium, th.Default} {
				if t != nil && t.Url != "" {
					m.Thumbnail = t.Url
					break
				}
			}
		}
	}

	if st := v.Statistics; st != nil {
		m.ViewCount = int64(st.ViewCount)
		m.LikeCount = int64(st.LikeCount)
		m.CommentCount = int64(st.CommentCount)
	}

	if cd := v.ContentDetails; cd != nil {
		if secs, err := parseISODuration(cd.Duration); err == nil {
			m.Duration = formatDuration(secs)
		}
	}
	return m
}

// metadataChain tries each source in order and returns the first success.
type metadataChain []MetadataSource

func (c metadataChain) Metadata(ctx context.Context, videoID string) (*Metadata, error) {
	var errs []error
	for _, src := range c {
		m, err := src.Metadata(ctx, videoID)
		if err == nil {
			return m, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, errors.New("no metadata source configured")
	}
	return nil, errors.Join(errs...)
}

// formatDuration renders seconds as H:MM:SS, or M:SS under an hour.
func formatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// formatUploadDate normalizes YYYYMMDD and RFC 3339 timestamps to YYYY-MM-DD.
// Anything else is returned unchanged.
func formatUploadDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 8 {
		if _, err := strconv.Atoi(s); err == nil {
			return s[:4] + "-" + s[4:6] + "-" + s[6:]
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(time.DateOnly)
	}
	return s
}

var isoDurationPattern = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// parseISODuration converts the Data API's PT#H#M#S form to seconds.
func parseISODuration(s string) (int64, error) {
	m := isoDurationPattern.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, fmt.Errorf("invalid ISO 8601 duration %q", s)
	}
	units := []int64{86400, 3600, 60, 1}
	var total int64
	for i, u := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return 0, err
		}
		total += n * u
	}
	return total, nil
}
