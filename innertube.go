package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

const (
	defaultYouTubeURL   = "https://www.youtube.com"
	defaultPageInterval = 500 * time.Millisecond
	defaultNextAPIPath  = "/youtubei/v1/next"

	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

var errRateLimited = errors.New("rate limited by YouTube (429)")

// comment section targets whose continuations lead to more top-level comments
var commentSectionTargets = map[string]bool{
	"comments-section":                         true,
	"engagement-panel-comments-section":        true,
	"shorts-engagement-panel-comments-section": true,
}

// InnertubeSource pages through a video's comments using the continuation
// tokens of YouTube's web client, the same way the watch page does.
type InnertubeSource struct {
	BaseURL    string
	HTTPClient *http.Client

	limiter *rate.Limiter
}

// NewInnertubeSource returns a source that issues at most one page request
// per interval. interval <= 0 disables pacing.
func NewInnertubeSource(client *http.Client, interval time.Duration) *InnertubeSource {
	if client == nil {
		client = httpClient
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &InnertubeSource{
		BaseURL:    defaultYouTubeURL,
		HTTPClient: client,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// watchPage is what we need from the HTML of /watch.
type watchPage struct {
	apiKey      string
	context     any
	initialData map[string]any
}

// Comments implements CommentSource.
func (s *InnertubeSource) Comments(ctx context.Context, videoID string, order SortOrder) iter.Seq2[RawComment, error] {
	return func(yield func(RawComment, error) bool) {
		if err := s.stream(ctx, videoID, order, yield); err != nil {
			yield(RawComment{}, err)
		}
	}
}

func (s *InnertubeSource) stream(ctx context.Context, videoID string, order SortOrder, yield func(RawComment, error) bool) error {
	page, err := s.fetchWatchPage(ctx, videoID)
	if err != nil {
		return err
	}

	section := findFirst(page.initialData, "itemSectionRenderer")
	if section == nil || findFirst(section, "continuationItemRenderer") == nil {
		// comments disabled or not rendered for this video
		return nil
	}

	menu := sortMenu(page.initialData)
	if len(menu) == 0 {
		sectionList := findFirst(page.initialData, "sectionListRenderer")
		endpoints := findAll(sectionList, "continuationEndpoint")
		if len(endpoints) > 0 {
			data, err := s.next(ctx, page, endpoints[0])
			if err != nil {
				return err
			}
			menu = sortMenu(data)
		}
	}
	if int(order) >= len(menu) {
		return fmt.Errorf("failed to set comment sorting to %s", order)
	}

	pending := []any{dig(menu[order], "serviceEndpoint")}
	for len(pending) > 0 {
		endpoint := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		data, err := s.next(ctx, page, endpoint)
		if err != nil {
			return err
		}
		if msg, ok := findFirst(data, "externalErrorMessage").(string); ok && msg != "" {
			return fmt.Errorf("error returned from YouTube: %s", msg)
		}

		pending = append(continuationsFrom(data), pending...)

		for _, c := range commentsFrom(data) {
			if !yield(c, nil) {
				return nil
			}
		}
	}
	return nil
}

// fetchWatchPage loads /watch and pulls ytcfg and ytInitialData out of its scripts.
func (s *InnertubeSource) fetchWatchPage(ctx context.Context, videoID string) (*watchPage, error) {
	u := s.BaseURL + "/watch?v=" + url.QueryEscape(videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", desktopUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.AddCookie(&http.Cookie{Name: "CONSENT", Value: "YES+cb"})

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch watch page: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "watch page"); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse watch page: %w", err)
	}
	return parseWatchPage(doc)
}

func parseWatchPage(doc *goquery.Document) (*watchPage, error) {
	page := &watchPage{}
	cfg := map[string]any{}

	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		js := sel.Text()

		if strings.Contains(js, "ytcfg.set(") {
			for _, raw := range extractJSONObjects(js, "ytcfg.set(") {
				var m map[string]any
				if json.Unmarshal([]byte(raw), &m) == nil {
					for k, v := range m {
						cfg[k] = v
					}
				}
			}
		}

		if page.initialData == nil {
			for _, marker := range []string{"var ytInitialData = ", `window["ytInitialData"] = `, "ytInitialData = "} {
				raw, err := extractJSONObject(js, marker)
				if err != nil {
					continue
				}
				var m map[string]any
				if json.Unmarshal([]byte(raw), &m) == nil {
					page.initialData = m
					break
				}
			}
		}
	})

	page.apiKey, _ = cfg["INNERTUBE_API_KEY"].(string)
	page.context = cfg["INNERTUBE_CONTEXT"]

	if page.initialData == nil {
		return nil, fmt.Errorf("ytInitialData not found in page")
	}
	if page.context == nil {
		return nil, fmt.Errorf("INNERTUBE_CONTEXT not found in page")
	}
	return page, nil
}

type nextRequest struct {
	Context      any    `json:"context"`
	Continuation string `json:"continuation"`
}

// next posts one continuation endpoint and returns the decoded response.
func (s *InnertubeSource) next(ctx context.Context, page *watchPage, endpoint any) (map[string]any, error) {
	token, _ := dig(endpoint, "continuationCommand", "token").(string)
	if token == "" {
		return nil, fmt.Errorf("continuation endpoint without token")
	}
	apiPath, _ := dig(endpoint, "commandMetadata", "webCommandMetadata", "apiUrl").(string)
	if apiPath == "" {
		apiPath = defaultNextAPIPath
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(nextRequest{Context: page.context, Continuation: token})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	u := s.BaseURL + apiPath
	if page.apiKey != "" {
		u += "?key=" + url.QueryEscape(page.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", desktopUserAgent)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comments page: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "innertube API"); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse comments page: %w", err)
	}
	return data, nil
}

func checkStatus(resp *http.Response, what string) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		return errRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s error: status %d", what, resp.StatusCode)
	}
	return nil
}

func sortMenu(data any) []any {
	items, _ := dig(findFirst(data, "sortFilterSubMenuRenderer"), "subMenuItems").([]any)
	return items
}

// continuationsFrom returns the endpoints that lead to more top-level comments.
// Reply threads are not followed.
func continuationsFrom(data map[string]any) []any {
	var out []any
	actions := append(findAll(data, "reloadContinuationItemsCommand"), findAll(data, "appendContinuationItemsAction")...)
	for _, action := range actions {
		target, _ := dig(action, "targetId").(string)
		if !commentSectionTargets[target] {
			continue
		}
		items, _ := dig(action, "continuationItems").([]any)
		for _, item := range items {
			// comment threads carry their own reply continuations; skip them
			out = append(out, findAll(dig(item, "continuationItemRenderer"), "continuationEndpoint")...)
		}
	}
	return out
}

// commentsFrom extracts top-level comments in both the current entity
// mutation format and the legacy commentRenderer format.
func commentsFrom(data map[string]any) []RawComment {
	var out []RawComment

	for _, p := range findAll(data, "commentEntityPayload") {
		cid, _ := dig(p, "properties", "commentId").(string)
		if cid == "" || strings.Contains(cid, ".") {
			continue
		}
		c := RawComment{CID: cid}
		c.Text = optString(dig(p, "properties", "content", "content"))
		c.Author = optString(dig(p, "author", "displayName"))
		c.Time, _ = dig(p, "properties", "publishedTime").(string)
		if v, ok := dig(p, "toolbar", "likeCountNotliked").(string); ok {
			c.Votes = v
		}
		out = append(out, c)
	}

	for _, r := range findAll(data, "commentRenderer") {
		cid, _ := dig(r, "commentId").(string)
		if cid == "" || strings.Contains(cid, ".") {
			continue
		}
		c := RawComment{CID: cid}
		if t := dig(r, "contentText"); t != nil {
			s := extractText(t)
			c.Text = &s
		}
		if a := dig(r, "authorText"); a != nil {
			s := extractText(a)
			c.Author = &s
		}
		c.Time = extractText(dig(r, "publishedTimeText"))
		if v := dig(r, "voteCount"); v != nil {
			c.Votes = extractText(v)
		}
		out = append(out, c)
	}

	return out
}

func optString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

// dig walks nested JSON objects by key.
func dig(obj any, path ...string) any {
	for _, key := range path {
		m, ok := obj.(map[string]any)
		if !ok {
			return nil
		}
		obj = m[key]
	}
	return obj
}

// findAll returns every value stored under key anywhere inside obj, in
// document order with object keys visited alphabetically.
func findAll(obj any, key string) []any {
	var out []any
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if k == key {
					out = append(out, t[k])
					continue
				}
				walk(t[k])
			}
		case []any:
			for _, item := range t {
				walk(item)
			}
		}
	}
	walk(obj)
	return out
}

func findFirst(obj any, key string) any {
	if all := findAll(obj, key); len(all) > 0 {
		return all[0]
	}
	return nil
}

// extractText extracts text from an innertube text object (simpleText or runs).
func extractText(textObj any) string {
	switch t := textObj.(type) {
	case string:
		return t
	case map[string]any:
		if simple, ok := t["simpleText"].(string); ok {
			return simple
		}
		if runs, ok := t["runs"].([]any); ok {
			var b strings.Builder
			for _, run := range runs {
				if text, ok := dig(run, "text").(string); ok {
					b.WriteString(text)
				}
			}
			return b.String()
		}
	}
	return ""
}

// extractJSONObject returns the balanced {...} that follows marker in s.
func extractJSONObject(s, marker string) (string, error) {
	idx := strings.Index(s, marker)
	if idx == -1 {
		return "", fmt.Errorf("%q not found", strings.TrimSpace(marker))
	}
	obj, _, err := balancedObject(s, idx+len(marker))
	return obj, err
}

// extractJSONObjects returns every balanced object following an occurrence of marker.
func extractJSONObjects(s, marker string) []string {
	var out []string
	for {
		idx := strings.Index(s, marker)
		if idx == -1 {
			return out
		}
		obj, end, err := balancedObject(s, idx+len(marker))
		if err != nil {
			s = s[idx+len(marker):]
			continue
		}
		out = append(out, obj)
		s = s[end:]
	}
}

func balancedObject(s string, start int) (string, int, error) {
	for start < len(s) && (s[start] == ' ' || s[start] == '\n' || s[start] == '\t') {
		start++
	}
	if start >= len(s) || s[start] != '{' {
		return "", start, fmt.Errorf("expected JSON object")
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		ch := s[i]

		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], i + 1, nil
			}
		}
	}
	return "", len(s), fmt.Errorf("unbalanced braces in JSON object")
}
