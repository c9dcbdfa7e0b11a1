package main

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var errInvalidURL = errors.New("could not extract video ID from YouTube URL")

// videoIDPatterns are tried in order; the first capture group is the ID.
// Supported formats:
//   - youtube.com/watch?v=VIDEO_ID (including m. and extra params)
//   - youtu.be/VIDEO_ID
//   - youtube.com/embed/VIDEO_ID
//   - youtube.com/v/VIDEO_ID
//   - youtube.com/shorts/VIDEO_ID
//   - youtube.com/live/VIDEO_ID
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:m\.)?youtube\.com/watch\?(?:[^#]*&)?v=([\w-]+)`),
	regexp.MustCompile(`youtu\.be/([\w-]+)`),
	regexp.MustCompile(`youtube\.com/(?:embed|v)/([\w-]+)`),
	regexp.MustCompile(`youtube\.com/shorts/([\w-]+)`),
	regexp.MustCompile(`youtube\.com/live/([\w-]+)`),
}

// extractVideoID pulls the video ID out of any of the accepted URL forms.
// Anything that is not a YouTube URL, bare IDs included, is rejected.
func extractVideoID(url string) (string, error) {
	url = strings.TrimSpace(url)

	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(url); len(m) > 1 {
			return m[1], nil
		}
	}

	return "", fmt.Errorf("%w: %q", errInvalidURL, url)
}
