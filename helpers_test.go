package empmos

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("unable to start test server listener: %v", err)
	}
	server := httptest.NewUnstartedServer(handler)
	server.Listener = ln
	server.Start()
	return server
}

type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   map[string]any
}

// fakeService imitates the remote API: every path has a handler returning
// the envelope to send back.
type fakeService struct {
	t *testing.T

	mu       sync.Mutex
	requests []recordedRequest
	handlers map[string]func(recordedRequest) any
}

func newFakeService(t *testing.T) (*fakeService, *httptest.Server) {
	t.Helper()
	svc := &fakeService{t: t, handlers: map[string]func(recordedRequest) any{}}
	svc.handle("/v1.0/auth/virtualLogin", func(recordedRequest) any {
		env := okEnvelope(map[string]any{"is_filled": true, "name": "Иван", "surname": "Петров"})
		env["session_id"] = "sess-1"
		return env
	})
	svc.handle("/v1.0/auth/logout", func(recordedRequest) any { return okEnvelope(nil) })

	server := newTestServer(t, http.HandlerFunc(svc.serveHTTP))
	t.Cleanup(server.Close)
	return svc, server
}

func (s *fakeService) handle(path string, h func(recordedRequest) any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[path] = h
}

func (s *fakeService) serveHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
	}
	if r.Body != nil {
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &rec.Body); err != nil {
				s.t.Errorf("request body is not a JSON object: %v", err)
			}
		}
	}

	s.mu.Lock()
	s.requests = append(s.requests, rec)
	h, ok := s.handlers[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no handler for " + r.URL.Path))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h(rec))
}

func (s *fakeService) all() []recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedRequest(nil), s.requests...)
}

func (s *fakeService) last() recordedRequest {
	reqs := s.all()
	require.NotEmpty(s.t, reqs, "no request reached the service")
	return reqs[len(reqs)-1]
}

func (s *fakeService) count(path string) int {
	n := 0
	for _, r := range s.all() {
		if r.Path == path {
			n++
		}
	}
	return n
}

func okEnvelope(result any) map[string]any {
	return map[string]any{
		"errorCode":    0,
		"errorMessage": "",
		"execTime":     0.138262,
		"result":       result,
	}
}

func errEnvelope(code int, message string) map[string]any {
	return map[string]any{
		"errorCode":    code,
		"errorMessage": message,
		"execTime":     0.05,
		"result":       nil,
	}
}

func testParams(baseURL string) ConfigParams {
	return ConfigParams{
		AppToken:         "app-token",
		DeviceGUID:       "guid-1",
		DeviceAppVersion: "3.8.1",
		BaseURL:          baseURL,
		Timeout:          2 * time.Second,
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClientWithParams(testParams(baseURL))
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func newLoggedInClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client := newTestClient(t, baseURL)
	_, err := client.Login("79990000000", "secret")
	require.NoError(t, err)
	return client
}

func setEnvVars(values map[string]string) func() {
	originals := map[string]string{}
	for k, v := range values {
		originals[k] = os.Getenv(k)
		_ = os.Setenv(k, v)
	}
	return func() {
		for k, v := range originals {
			if v == "" {
				_ = os.Unsetenv(k)
			} else {
				_ = os.Setenv(k, v)
			}
		}
	}
}
