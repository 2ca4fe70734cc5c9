package shelfrec

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	sessionHeader    = "X-Session-ID"
	defaultUserAgent = "shelfrec-go"
	defaultTimeout   = 30 * time.Second
)

// Client talks to a shelfrecd server.
type Client struct {
	base      *url.URL
	http      *http.Client
	apiKey    string
	userAgent string
	obs       *observer

	mu        sync.Mutex
	sessionID string
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("shelfrec: invalid base URL %q", baseURL)
	}

	hc := cfg.httpClient
	if hc == nil {
		// No overall timeout: streams stay open until cancelled.
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.ResponseHeaderTimeout = defaultTimeout
		hc = &http.Client{Transport: t}
	}
	ua := cfg.userAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		base:      u,
		http:      hc,
		apiKey:    cfg.apiKey,
		userAgent: ua,
		obs:       obs,
		sessionID: cfg.sessionID,
	}, nil
}

// SessionID returns the server session the client is bound to, or "" before
// the first recommendation.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Domains lists every domain and its availability.
func (c *Client) Domains(ctx context.Context) (out []DomainStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("domains", start, err) }()

	var body domainList
	if err = c.getJSON(ctx, "/api/v1/domains", nil, &body); err != nil {
		return nil, err
	}
	return body.Domains, nil
}

// Recommend runs q against domain d.
func (c *Client) Recommend(ctx context.Context, d Domain, q Query) (out Recommendations, err error) {
	start := time.Now()
	defer func() { c.obs.observe("recommend", start, err) }()

	err = c.getJSON(ctx, domainPath(d, "recommendations"), q.values(), &out)
	return out, err
}

// Stream subscribes to auto-refreshed recommendations. fn runs for every
// event until ctx is done, fn returns an error, or the server closes the
// stream. interval <= 0 uses the server default.
func (c *Client) Stream(
	ctx context.Context, d Domain, q Query, interval time.Duration,
	fn func(tick int, recs Recommendations) error,
) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("stream", start, err) }()

	params := q.values()
	if interval > 0 {
		params.Set("interval", strconv.Itoa(max(1, int(interval/time.Second))))
	}

	resp, err := c.do(ctx, http.MethodGet, domainPath(d, "recommendations/stream"), params, nil, "text/event-stream")
	if err != nil {
		return err
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	err = readEvents(resp.Body, func(id int, event string, data []byte) error {
		switch event {
		case "recommendations":
			var recs Recommendations
			if err := json.Unmarshal(data, &recs); err != nil {
				return fmt.Errorf("shelfrec: decode event: %w", err)
			}
			return fn(id, recs)
		case "error":
			var eb errorBody
			_ = json.Unmarshal(data, &eb)
			return &APIError{Status: http.StatusOK, Code: eb.Code, Message: eb.Message}
		default:
			return nil
		}
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Export downloads the CSV of the session's last recommendation for d.
func (c *Client) Export(ctx context.Context, d Domain) (data []byte, err error) {
	start := time.Now()
	defer func() { c.obs.observe("export", start, err) }()

	return c.getBytes(ctx, domainPath(d, "export"), nil)
}

// Image fetches the artwork PNG for src, or the placeholder when src is unusable.
func (c *Client) Image(ctx context.Context, d Domain, src, caption string) (data []byte, err error) {
	start := time.Now()
	defer func() { c.obs.observe("image", start, err) }()

	params := url.Values{}
	if src != "" {
		params.Set("src", src)
	}
	if caption != "" {
		params.Set("caption", caption)
	}
	return c.getBytes(ctx, domainPath(d, "image"), params)
}

// UploadDataset replaces the catalog of d with the CSV read from r.
func (c *Client) UploadDataset(ctx context.Context, d Domain, r io.Reader) (st DomainStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("upload_dataset", start, err) }()

	resp, err := c.do(ctx, http.MethodPut, domainPath(d, "dataset"), nil, r, "")
	if err != nil {
		return DomainStatus{}, err
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return DomainStatus{}, decodeAPIError(resp)
	}
	err = decodeJSON(resp, &st)
	return st, err
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.Title != "" {
		v.Set("title", q.Title)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Secondary != "" {
		v.Set("secondary", q.Secondary)
	}
	if q.TopN > 0 {
		v.Set("top_n", strconv.Itoa(q.TopN))
	}
	return v
}

func domainPath(d Domain, suffix string) string {
	return "/api/v1/" + url.PathEscape(string(d)) + "/" + suffix
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, params, nil, "application/json")
	if err != nil {
		return err
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	return decodeJSON(resp, out)
}

func (c *Client) getBytes(ctx context.Context, path string, params url.Values) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, path, params, nil, "")
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("shelfrec: read body: %w", err)
	}
	return data, nil
}

func (c *Client) do(
	ctx context.Context, method, path string, params url.Values, body io.Reader, accept string,
) (*http.Response, error) {
	u := *c.base
	u.Path = c.base.Path + path
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("shelfrec: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if body != nil {
		req.Header.Set("Content-Type", "text/csv")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if id := c.SessionID(); id != "" {
		req.Header.Set(sessionHeader, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shelfrec: %s %s: %w", method, path, err)
	}
	if id := resp.Header.Get(sessionHeader); id != "" {
		c.mu.Lock()
		c.sessionID = id
		c.mu.Unlock()
	}
	return resp, nil
}

func decodeJSON(resp *http.Response, out any) error {
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("shelfrec: decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var eb errorBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb); err == nil {
		apiErr.Code = eb.Code
		apiErr.Message = eb.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
}

// readEvents parses a server-sent event stream.
func readEvents(r io.Reader, fn func(id int, event string, data []byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 4<<20)

	var (
		id    int
		event string
		data  strings.Builder
	)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if data.Len() > 0 || event != "" {
				if err := fn(id, event, []byte(data.String())); err != nil {
					return err
				}
			}
			id, event = 0, ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "id:"):
			id, _ = strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "id:")))
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("shelfrec: read stream: %w", err)
	}
	return nil
}
