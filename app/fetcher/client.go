package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultTimeout        = 5 * time.Second
	DefaultMaxPageBytes   = 15 * 1024 * 1024
	DefaultProbeThreshold = 10 * 1024

	chunkSize = 100 * 1024
)

// ProbeCache remembers size-probe verdicts per image URL.
type ProbeCache interface {
	Lookup(ctx context.Context, url string) (verdict bool, ok bool)
	Store(ctx context.Context, url string, verdict bool)
}

type Options struct {
	HTTPClient     *http.Client
	Timeout        time.Duration
	UserAgent      string
	Seed           int64
	ProbeThreshold int64
	ProbeCache     ProbeCache
}

// Page is the outcome of a bounded fetch. A page over the limit has
// TooLarge set and an empty Body.
type Page struct {
	Body     []byte
	Size     int64
	TooLarge bool
}

type Client struct {
	httpClient     *http.Client
	timeout        time.Duration
	userAgent      string
	probeThreshold int64
	probeCache     ProbeCache
}

func New(opts Options) *Client {
	c := &Client{
		httpClient:     opts.HTTPClient,
		timeout:        opts.Timeout,
		userAgent:      opts.UserAgent,
		probeThreshold: opts.ProbeThreshold,
		probeCache:     opts.ProbeCache,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.userAgent == "" {
		c.userAgent = UserAgentFor(opts.Seed)
	}
	if c.probeThreshold <= 0 {
		c.probeThreshold = DefaultProbeThreshold
	}
	return c
}

func (c *Client) UserAgent() string {
	return c.userAgent
}

func (c *Client) FetchText(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	return string(data), nil
}

func (c *Client) FetchJSON(ctx context.Context, url string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FetchError{URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode JSON from %s: %w: %v", url, ErrMalformedPayload, err)
	}

	return nil
}

// FetchBounded streams the body and gives up as soon as more than maxBytes
// have arrived. Oversized pages are reported through Page.TooLarge, never
// as a truncated body.
func (c *Client) FetchBounded(ctx context.Context, url string, maxBytes int64) (*Page, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPageBytes
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	chunk := make([]byte, chunkSize)
	var total int64

	for {
		n, readErr := resp.Body.Read(chunk)
		if n > 0 {
			total += int64(n)
			if total > maxBytes {
				slog.Warn("Page exceeds size limit", "url", url, "limit", maxBytes)
				return &Page{Size: total, TooLarge: true}, nil
			}
			buf.Write(chunk[:n])
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to read response body: %w", readErr)}
		}
	}

	return &Page{Body: buf.Bytes(), Size: total}, nil
}

// ProbeSize reports whether the resource at url declares a Content-Length
// above the probe threshold. Any failure counts as "no". Only verdicts
// backed by a successful response are cached.
func (c *Client) ProbeSize(ctx context.Context, url string) bool {
	if c.probeCache != nil {
		if verdict, ok := c.probeCache.Lookup(ctx, url); ok {
			return verdict
		}
	}

	verdict, definitive := c.probe(ctx, url)

	if definitive && c.probeCache != nil {
		c.probeCache.Store(ctx, url, verdict)
	}

	return verdict
}

// probe issues the HEAD request. definitive is false when no 2xx response
// arrived.
func (c *Client) probe(ctx context.Context, url string) (verdict bool, definitive bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodHead, url)
	if err != nil {
		slog.Debug("Size probe failed", "url", url, "error", err)
		return false, false
	}
	resp.Body.Close()

	if resp.ContentLength < 0 {
		return false, true
	}

	return resp.ContentLength > c.probeThreshold, true
}

func (c *Client) do(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("HTTP error: %s", resp.Status)}
	}

	return resp, nil
}
