package feedapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"hushfeed/pkg/sharedTypes"

	"github.com/google/uuid"
)

const defaultTimeout = 10 * time.Second

// FeedPage is one page of the confession feed.
type FeedPage struct {
	Items      []sharedTypes.ContentItem `json:"items"`
	NextCursor string                    `json:"nextCursor,omitempty"`
}

// Client talks to the hushfeed backend. All persistence lives behind this
// API; the client itself is stateless apart from an anonymous session id
// sent with every request.
type Client struct {
	baseURL   string
	http      *http.Client
	sessionID string
}

// NewClient creates a backend client for the given base URL. An anonymous
// per-process session id is generated so the backend can dedupe view events
// without identifying the user.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:   baseURL,
		http:      &http.Client{Timeout: defaultTimeout},
		sessionID: uuid.NewString(),
	}
}

// SessionID returns the anonymous session id used for this process.
func (c *Client) SessionID() string { return c.sessionID }

// FetchFeedPage returns a page of confessions starting at cursor (empty for
// the first page).
func (c *Client) FetchFeedPage(ctx context.Context, cursor string, pageSize int) (FeedPage, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	q.Set("limit", strconv.Itoa(pageSize))

	var page FeedPage
	if err := c.getJSON(ctx, "fetchFeedPage", "/v1/feed?"+q.Encode(), &page); err != nil {
		return FeedPage{}, err
	}
	log.Printf("FetchFeedPage: got %d item(s), nextCursor=%q", len(page.Items), page.NextCursor)
	return page, nil
}

// FetchTrending returns the top hashtags over the given window.
func (c *Client) FetchTrending(ctx context.Context, windowHours, limit int) ([]sharedTypes.TrendingHashtag, error) {
	q := url.Values{}
	q.Set("window", strconv.Itoa(windowHours))
	q.Set("limit", strconv.Itoa(limit))

	var out struct {
		Hashtags []sharedTypes.TrendingHashtag `json:"hashtags"`
	}
	if err := c.getJSON(ctx, "fetchTrending", "/v1/trending?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Hashtags, nil
}

// RecordView reports one view of a confession and returns the new count.
func (c *Client) RecordView(ctx context.Context, id string) (int, error) {
	var out struct {
		Views int `json:"views"`
	}
	body := map[string]string{"eventId": uuid.NewString()}
	if err := c.postJSON(ctx, "recordView", "/v1/confessions/"+id+"/view", body, &out); err != nil {
		return 0, err
	}
	return out.Views, nil
}

// RecordLikeDelta applies or removes a like and returns the new count.
func (c *Client) RecordLikeDelta(ctx context.Context, id string, liked bool) (int, error) {
	var out struct {
		Likes int `json:"likes"`
	}
	body := map[string]bool{"liked": liked}
	if err := c.postJSON(ctx, "recordLikeDelta", "/v1/confessions/"+id+"/like", body, &out); err != nil {
		return 0, err
	}
	return out.Likes, nil
}

// SubmitReport files a report against a confession.
func (c *Client) SubmitReport(ctx context.Context, id, reason string) error {
	body := map[string]string{"reason": reason}
	return c.postJSON(ctx, "submitReport", "/v1/confessions/"+id+"/report", body, nil)
}

func (c *Client) getJSON(ctx context.Context, op, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	return c.do(op, req, out)
}

func (c *Client) postJSON(ctx context.Context, op, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(op, req, out)
}

func (c *Client) do(op string, req *http.Request, out interface{}) error {
	req.Header.Set("X-Session-Id", c.sessionID)

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(op, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Err: fmt.Errorf("%w: bad response body: %v", ErrServer, err)}
	}
	return nil
}
