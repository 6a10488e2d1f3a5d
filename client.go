package empmos

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/oapi-codegen/runtime"
)

// Client is bound to a single account session of the service.
//
// A Client is not safe for concurrent use while logging in or out; callers
// that share one between goroutines must serialize those calls.
type Client struct {
	Config Config

	http      *httpClient
	sessionID string
}

// NewClient constructs a Client using parameters or environment fallbacks.
func NewClient(appToken, deviceGUID, deviceAppVersion string, timeoutSeconds float64) (*Client, error) {
	cfg, err := LoadConfig(appToken, deviceGUID, deviceAppVersion, timeoutSeconds)
	if err != nil {
		return nil, err
	}
	return NewClientWithConfig(cfg)
}

// NewClientWithParams constructs a Client from structured configuration parameters.
func NewClientWithParams(params ConfigParams) (*Client, error) {
	cfg, err := LoadConfigWithParams(params)
	if err != nil {
		return nil, err
	}
	return NewClientWithConfig(cfg)
}

// NewClientWithConfig builds a Client from a fully parsed Config.
func NewClientWithConfig(cfg Config) (*Client, error) {
	if cfg.AppToken == "" {
		return nil, ErrMissingToken
	}
	return &Client{
		Config: cfg,
		http:   newHTTPClient(cfg),
	}, nil
}

// Close releases HTTP resources. It does not log out.
func (c *Client) Close() {
	if c == nil || c.http == nil {
		return
	}
	c.http.close()
}

// tokenQuery carries the application token every endpoint expects.
func (c *Client) tokenQuery() url.Values {
	q := url.Values{}
	q.Set("token", c.Config.AppToken)
	return q
}

type deviceRef struct {
	GUID string `json:"guid"`
}

type sessionRef struct {
	SessionID string `json:"session_id"`
}

// authQuery is the query string form of the device/session envelope used by
// GET endpoints: token, info[guid], auth[session_id].
func (c *Client) authQuery() (url.Values, error) {
	q := c.tokenQuery()
	// MarshalDeepObject leaves values unescaped; they are escaped going in
	// and unescaped after the pairs are split.
	for name, value := range map[string]any{
		"info": deviceRef{GUID: url.QueryEscape(c.Config.DeviceGUID)},
		"auth": sessionRef{SessionID: url.QueryEscape(c.sessionID)},
	} {
		encoded, err := runtime.MarshalDeepObject(value, name)
		if err != nil {
			return nil, fmt.Errorf("encode %s query: %w", name, err)
		}
		for _, pair := range strings.Split(encoded, "&") {
			key, val, _ := strings.Cut(pair, "=")
			raw, err := url.QueryUnescape(val)
			if err != nil {
				return nil, fmt.Errorf("encode %s query: %w", name, err)
			}
			q.Add(key, raw)
		}
	}
	return q, nil
}

// requestBody merges per-call fields into the device/session envelope every
// POST endpoint expects.
func (c *Client) requestBody(fields map[string]any) map[string]any {
	body := map[string]any{
		"info": map[string]any{
			"guid":        c.Config.DeviceGUID,
			"user_agent":  c.Config.DeviceUserAgent,
			"app_version": c.Config.DeviceAppVersion,
		},
		"auth": map[string]any{
			"session_id": c.sessionID,
		},
	}
	for k, v := range fields {
		body[k] = v
	}
	return body
}

func (c *Client) get(ctx context.Context, ep endpoint, out any) error {
	if !c.IsActive() {
		return ErrNoSession
	}
	query, err := c.authQuery()
	if err != nil {
		return err
	}
	env, err := c.http.get(ctx, ep, query)
	if err != nil {
		return err
	}
	return c.finish(ep, env, out)
}

func (c *Client) post(ctx context.Context, ep endpoint, fields map[string]any, out any) error {
	if !c.IsActive() {
		return ErrNoSession
	}
	env, err := c.http.postJSON(ctx, ep, c.tokenQuery(), c.requestBody(fields))
	if err != nil {
		return err
	}
	return c.finish(ep, env, out)
}

// finish runs the envelope through checkEnvelope and decodes the result.
func (c *Client) finish(ep endpoint, env *Envelope, out any) error {
	if err := checkEnvelope(env); err != nil {
		c.Config.Metrics.observeAPIError(ep.name, env.ErrorCode)
		return err
	}
	return env.decodeResult(out)
}
