package empmos

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

type httpClient struct {
	client    *http.Client
	cfg       Config
	logger    Logger
	limiter   *rate.Limiter
	redactMap map[string]struct{}
}

func newHTTPClient(cfg Config) *httpClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.MaxIdleConnsPerHost == 0 {
		cfg.MaxIdleConnsPerHost = defaultMaxIdlePerHost
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = defaultIdleConnTimeout
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
	}
	if cfg.ProxyURL != nil {
		transport.Proxy = http.ProxyURL(cfg.ProxyURL)
	}
	if !cfg.TLSVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	logger := cfg.Logger
	if cfg.Debug && logger == nil {
		logger = log.New(os.Stdout, "empmos ", log.LstdFlags)
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = defaultRateBurst
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	redactions := map[string]struct{}{}
	for _, h := range cfg.RedactHeaders {
		redactions[strings.ToLower(h)] = struct{}{}
	}

	return &httpClient{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		logger:    logger,
		limiter:   limiter,
		redactMap: redactions,
	}
}

func (c *httpClient) close() {
	if t, ok := c.client.Transport.(interface{ CloseIdleConnections() }); ok {
		t.CloseIdleConnections()
	}
}

func (c *httpClient) buildURL(path string, query url.Values) string {
	base := strings.TrimSuffix(c.cfg.BaseURL, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	full := base + path
	if len(query) == 0 {
		return full
	}
	return full + "?" + query.Encode()
}

// do sends one request and decodes the response envelope. It never retries.
// The envelope is returned undispatched; callers decide what a non-zero
// errorCode means.
func (c *httpClient) do(ctx context.Context, ep endpoint, method string, query url.Values, body []byte) (*Envelope, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: rate limit: %w", ep.name, err)
		}
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(ep.path, query), bodyReader)
	if err != nil {
		return nil, err
	}

	c.applyHeaders(req, ep.headers(c.cfg.UserAgent))
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	c.runRequestHooks(req)
	c.logRequest(req)

	start := time.Now()
	resp, err := c.client.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.cfg.Metrics.observeRequest(ep.name, 0, duration)
		return nil, fmt.Errorf("%s: %w", ep.name, err)
	}

	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	c.cfg.Metrics.observeRequest(ep.name, resp.StatusCode, duration)
	if readErr != nil {
		return nil, fmt.Errorf("%s: read response: %w", ep.name, readErr)
	}

	c.logResponse(req, resp, respBody, duration)
	c.runResponseHooks(resp, respBody)

	env, err := decodeEnvelope(respBody)
	if err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &HTTPError{StatusCode: resp.StatusCode, Body: respBody}
		}
		return nil, fmt.Errorf("%s: decode response envelope: %w", ep.name, err)
	}
	return env, nil
}

var errMissingErrorCode = errors.New("missing errorCode")

// decodeEnvelope requires the errorCode field: a JSON body without it is not
// an answer of the service.
func decodeEnvelope(body []byte) (*Envelope, error) {
	var probe struct {
		ErrorCode *int `json:"errorCode"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, err
	}
	if probe.ErrorCode == nil {
		return nil, errMissingErrorCode
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (c *httpClient) get(ctx context.Context, ep endpoint, query url.Values) (*Envelope, error) {
	return c.do(ctx, ep, http.MethodGet, query, nil)
}

func (c *httpClient) postJSON(ctx context.Context, ep endpoint, query url.Values, payload any) (*Envelope, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("%s: encode json: %w", ep.name, err)
	}
	return c.do(ctx, ep, http.MethodPost, query, buf.Bytes())
}

func (c *httpClient) logf(format string, args ...any) {
	if c.logger == nil || !c.cfg.Debug {
		return
	}
	c.logger.Printf(format, args...)
}

func (c *httpClient) logRequest(req *http.Request) {
	if c.logger == nil || !c.cfg.Debug {
		return
	}
	c.logger.Printf("[request] %s %s headers=%v", req.Method, c.redactedURL(req.URL), c.redactedHeaders(req.Header))
}

func (c *httpClient) logResponse(req *http.Request, resp *http.Response, body []byte, duration time.Duration) {
	if c.logger == nil || !c.cfg.Debug {
		return
	}
	bodyPreview := redactBody(string(body))
	if len(bodyPreview) > 512 {
		bodyPreview = bodyPreview[:512] + "…"
	}
	c.logger.Printf("[response] %s %s status=%d duration=%s body=%s", req.Method, c.redactedURL(req.URL), resp.StatusCode, duration, bodyPreview)
}

func (c *httpClient) redactedHeaders(h http.Header) http.Header {
	if len(c.redactMap) == 0 {
		return h
	}
	cloned := cloneHeaders(h)
	for k := range cloned {
		if _, ok := c.redactMap[strings.ToLower(k)]; ok {
			cloned.Set(k, "[redacted]")
		}
	}
	return cloned
}

func (c *httpClient) redactedURL(u *url.URL) string {
	if len(c.cfg.RedactParams) == 0 || u.RawQuery == "" {
		return u.String()
	}
	clone := *u
	q := clone.Query()
	for _, p := range c.cfg.RedactParams {
		if q.Has(p) {
			q.Set(p, "[redacted]")
		}
	}
	clone.RawQuery = q.Encode()
	return clone.String()
}

var sessionIDPattern = regexp.MustCompile(`"session_id"\s*:\s*"[^"]*"`)

func redactBody(body string) string {
	return sessionIDPattern.ReplaceAllString(body, `"session_id":"[redacted]"`)
}

func (c *httpClient) applyHeaders(req *http.Request, headers http.Header) {
	for k, vals := range headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	for k, vals := range c.cfg.ExtraHeaders {
		req.Header.Del(k)
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
}

func (c *httpClient) runRequestHooks(req *http.Request) {
	for i, hook := range c.cfg.BeforeRequest {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logf("request hook[%d] panic: %v", i, r)
				}
			}()
			hook(req)
		}()
	}
}

func (c *httpClient) runResponseHooks(resp *http.Response, body []byte) {
	for i, hook := range c.cfg.AfterResponse {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logf("response hook[%d] panic: %v", i, r)
				}
			}()
			hook(resp, body)
		}()
	}
}
