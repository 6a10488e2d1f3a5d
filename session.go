package empmos

import (
	"context"
	"errors"
	"fmt"
)

// IsActive reports whether the client holds a session token.
func (c *Client) IsActive() bool {
	return c.sessionID != ""
}

// SessionID returns the current session token, or "" when logged out.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Login authenticates with the phone number (7xxxxxxxxxx) and the password of
// the mobile app and stores the issued session token.
func (c *Client) Login(login, password string) (LoginResult, error) {
	return c.LoginWithContext(context.Background(), login, password)
}

// LoginWithContext authenticates with a caller-supplied context.
func (c *Client) LoginWithContext(ctx context.Context, login, password string) (LoginResult, error) {
	if login == "" || password == "" {
		return nil, fmt.Errorf("login and password cannot be empty")
	}
	payload := map[string]any{
		"device_info": map[string]any{
			"guid":        c.Config.DeviceGUID,
			"user_agent":  c.Config.DeviceUserAgent,
			"app_version": c.Config.DeviceAppVersion,
		},
		"auth": map[string]any{
			"login":    login,
			"password": password,
			"guid":     c.Config.DeviceGUID,
		},
	}
	env, err := c.http.postJSON(ctx, epLogin, c.tokenQuery(), payload)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	var result LoginResult
	if err := c.finish(epLogin, env, &result); err != nil {
		return nil, err
	}
	if env.SessionID == nil || *env.SessionID == "" {
		return nil, fmt.Errorf("login: response carries no session_id")
	}
	c.sessionID = *env.SessionID
	return result, nil
}

// Logout invalidates the session. It is a no-op returning (nil, nil) when no
// session is active. The service is known to take several seconds to answer;
// callers usually treat failures here as best-effort and bound the call with
// LogoutWithContext.
func (c *Client) Logout() (Record, error) {
	return c.LogoutWithContext(context.Background())
}

// LogoutWithContext invalidates the session with a caller-supplied context.
func (c *Client) LogoutWithContext(ctx context.Context) (Record, error) {
	if !c.IsActive() {
		return nil, nil
	}
	env, err := c.http.postJSON(ctx, epLogout, c.tokenQuery(), c.requestBody(nil))
	if err != nil {
		return nil, fmt.Errorf("logout: %w", err)
	}
	var result Record
	if err := c.finish(epLogout, env, &result); err != nil {
		// An expired session is as good as a closed one.
		var authErr *AuthenticationError
		if errors.As(err, &authErr) {
			c.sessionID = ""
		}
		return nil, err
	}
	c.sessionID = ""
	return result, nil
}
