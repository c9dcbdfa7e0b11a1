package main

import (
	"context"
	"encoding/json"
	"iter"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// SortOrder selects one of the two independent orderings of a video's comments.
type SortOrder int

const (
	SortPopular SortOrder = iota
	SortRecent
)

func (s SortOrder) String() string {
	switch s {
	case SortPopular:
		return "popular"
	case SortRecent:
		return "recent"
	}
	return "unknown"
}

// RawComment is a comment exactly as a CommentSource produced it.
// Nil Author/Text mean the field was absent upstream.
type RawComment struct {
	CID    string
	Author *string
	Text   *string
	Votes  any // number, string ("1.2K") or nil
	Time   string
}

// Comment is the normalized record emitted in results.
type Comment struct {
	ID          string `json:"id"`
	Author      string `json:"author"`
	Text        string `json:"text"`
	Likes       int64  `json:"likes"`
	PublishedAt string `json:"publishedAt"`
	ReplyCount  int    `json:"replyCount"`
	IsReply     bool   `json:"isReply"`
}

// CommentSource produces a lazy sequence of top-level comments for a video.
// Every call starts from the beginning. A non-nil error ends the sequence.
type CommentSource interface {
	Comments(ctx context.Context, videoID string, sort SortOrder) iter.Seq2[RawComment, error]
}

const unknownAuthor = "Unknown"

func normalizeComment(raw RawComment) Comment {
	c := Comment{
		ID:          raw.CID,
		Author:      unknownAuthor,
		Likes:       coerceVotes(raw.Votes),
		PublishedAt: raw.Time,
	}
	if raw.Author != nil {
		c.Author = *raw.Author
	}
	if raw.Text != nil {
		c.Text = *raw.Text
	}
	return c
}

var abbreviatedCount = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)\s*([kKmMbB])$`)

// coerceVotes turns whatever the source reported as a vote count into a
// non-negative integer. Unparseable values count as zero.
func coerceVotes(v any) int64 {
	switch n := v.(type) {
	case nil:
		return 0
	case string:
		return parseVoteText(n)
	case json.Number:
		return parseVoteText(string(n))
	case float64:
		if math.IsNaN(n) || n < 0 {
			return 0
		}
		return int64(n)
	case float32:
		return coerceVotes(float64(n))
	}

	i, err := cast.ToInt64E(v)
	if err != nil || i < 0 {
		return 0
	}
	return i
}

func parseVoteText(s string) int64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}

	if m := abbreviatedCount.FindStringSubmatch(s); m != nil {
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0
		}
		switch strings.ToUpper(m[2]) {
		case "K":
			f *= 1e3
		case "M":
			f *= 1e6
		case "B":
			f *= 1e9
		}
		return int64(math.Round(f))
	}

	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil || i < 0 {
		return 0
	}
	return i
}
