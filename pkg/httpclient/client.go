// Package httpclient is the shared HTTP surface for every scraper and ATS
// adapter: a single *http.Client with Brotli decompression, per-host pacing,
// and the picky-host retry policy that a handful of career sites demand.
package httpclient

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Client wraps *http.Client with per-host rate limiting and retry policy for
// hosts that reject the default Accept-Encoding/Accept headers.
type Client struct {
	http   *http.Client
	log    *logrus.Logger
	rate   float64
	burst  int
	mu     sync.Mutex
	limits map[string]*rate.Limiter
}

// New builds a Client. ratePerSecond/burst tune the per-host token bucket;
// sensible defaults are used if zero.
func New(log *logrus.Logger, timeout time.Duration, ratePerSecond float64, burst int) *Client {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = 2
	}
	if log == nil {
		log = logrus.New()
	}
	return &Client{
		http: &http.Client{
			Transport: &brotliTransport{base: http.DefaultTransport},
			Timeout:   timeout,
		},
		log:    log,
		rate:   ratePerSecond,
		burst:  burst,
		limits: make(map[string]*rate.Limiter),
	}
}

func (c *Client) limiterFor(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limits[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(c.rate), c.burst)
		c.limits[host] = l
	}
	return l
}

func defaultHeaders() http.Header {
	h := http.Header{}
	h.Set("User-Agent", UserAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Upgrade-Insecure-Requests", "1")
	return h
}

var retryableStatuses = map[int]bool{400: true, 403: true, 406: true, 451: true}

// FetchText fetches a URL and returns the decoded response body as text,
// retrying once with a simplified, Brotli-free header set if the host
// rejects the first attempt with one of the picky-host status codes.
func (c *Client) FetchText(ctx context.Context, rawURL string, extraHeaders http.Header) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	host := strings.ToLower(u.Host)

	if err := c.limiterFor(host).Wait(ctx); err != nil {
		return "", err
	}

	headers := defaultHeaders()
	for k, vs := range extraHeaders {
		for _, v := range vs {
			headers.Set(k, v)
		}
	}

	if strings.Contains(host, "metacareers.com") {
		headers.Set("Accept-Encoding", "gzip, deflate")
		headers.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
		if headers.Get("Referer") == "" {
			headers.Set("Referer", "https://www.metacareers.com/")
		}
	}

	body, status, err := c.doText(ctx, rawURL, headers)
	if err == nil {
		return body, nil
	}
	if status == 0 || !retryableStatuses[status] {
		return "", err
	}

	c.log.WithFields(logrus.Fields{"host": host, "status": status}).Warn("httpclient: retrying with simplified headers")

	retry := http.Header{}
	retry.Set("User-Agent", UserAgent)
	retry.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
	retry.Set("Accept-Language", "en-US,en;q=0.9")
	retry.Set("Accept-Encoding", "gzip, deflate")
	retry.Set("Upgrade-Insecure-Requests", "1")
	retry.Set("Cache-Control", "no-cache")
	retry.Set("Pragma", "no-cache")
	retry.Set("Referer", fmt.Sprintf("%s://%s/", u.Scheme, host))

	body, _, err = c.doText(ctx, rawURL, retry)
	return body, err
}

func (c *Client) doText(ctx context.Context, rawURL string, headers http.Header) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header = headers

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, resp.Body)
		return "", resp.StatusCode, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(b), resp.StatusCode, nil
}

// FetchJSON issues a request with the given method (GET when empty) and
// returns the raw response body and status code; the caller decodes the
// JSON. A status of 400 or above returns the body together with a
// *StatusError.
func (c *Client) FetchJSON(ctx context.Context, rawURL string, body io.Reader, method string, extraHeaders http.Header) ([]byte, int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0, fmt.Errorf("parse url: %w", err)
	}
	if err := c.limiterFor(strings.ToLower(u.Host)).Wait(ctx); err != nil {
		return nil, 0, err
	}

	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, 0, err
	}
	req.Header = defaultHeaders()
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range extraHeaders {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	if resp.StatusCode >= 400 {
		return data, resp.StatusCode, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	return data, resp.StatusCode, nil
}

// StatusError wraps a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d fetching %s", e.StatusCode, e.URL)
}

// brotliTransport adds a Brotli-aware wrapper around any base RoundTripper.
// Setting Accept-Encoding ourselves (to advertise "br", which net/http never
// requests on its own) disables the stdlib's automatic gzip handling too, so
// this decodes both gzip and br manually when the server uses either.
type brotliTransport struct {
	base http.RoundTripper
}

func (t *brotliTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp == nil {
		return resp, err
	}
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "br":
		resp.Body = io.NopCloser(brotli.NewReader(resp.Body))
	case "gzip":
		gz, gzErr := gzip.NewReader(resp.Body)
		if gzErr != nil {
			return resp, nil
		}
		resp.Body = gz
	default:
		return resp, nil
	}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.Uncompressed = true
	return resp, nil
}
