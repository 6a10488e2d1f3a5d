package empmos

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger is the minimal logging interface supported by the client.
type Logger interface {
	Printf(format string, v ...any)
}

// RequestHook allows callers to inspect or mutate requests before they are sent.
type RequestHook func(*http.Request)

// ResponseHook allows callers to inspect responses (raw bytes included).
type ResponseHook func(*http.Response, []byte)

// Config holds client configuration. It is never mutated once a Client is built.
type Config struct {
	AppToken         string
	DeviceGUID       string
	UserAgent        string
	DeviceUserAgent  string
	DeviceAppVersion string
	BaseURL          string
	TLSVerify        bool
	Timeout          time.Duration

	Debug bool

	ExtraHeaders http.Header
	ProxyURL     *url.URL

	// RequestsPerSecond limits outgoing requests of a single client.
	// Zero disables the limiter.
	RequestsPerSecond float64
	RateBurst         int

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	Logger        Logger
	RedactHeaders []string
	RedactParams  []string

	// Metrics may be shared between clients built from the same registry.
	Metrics *Metrics

	BeforeRequest []RequestHook
	AfterResponse []ResponseHook
}

// ConfigParams provides optional overrides for building a Config.
// Zero values mean "not set" and fall back to the environment or defaults.
type ConfigParams struct {
	AppToken         string
	DeviceGUID       string
	UserAgent        string
	DeviceUserAgent  string
	DeviceAppVersion string
	BaseURL          string
	TLSVerify        *bool
	Timeout          time.Duration
	TimeoutSeconds   float64
	Debug            *bool
	ExtraHeaders     http.Header
	ProxyURL         string

	RequestsPerSecond float64
	RateBurst         int

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	Logger        Logger
	RedactHeaders []string
	RedactParams  []string
	Metrics       *Metrics

	BeforeRequest []RequestHook
	AfterResponse []ResponseHook
}

const (
	defaultBaseURL         = "https://emp.mos.ru"
	defaultUserAgent       = "okhttp/3.8.1"
	defaultDeviceUserAgent = "Android"
	defaultTimeout         = 3 * time.Second
	defaultMaxIdleConns    = 10
	defaultMaxIdlePerHost  = 2
	defaultIdleConnTimeout = 90 * time.Second
	defaultRateBurst       = 1
)

// LoadConfig builds a Config from parameters or environment variables.
// Environment fallbacks:
//
//	EMP_TOKEN, EMP_GUID, EMP_USER_AGENT, EMP_DEVICE_USER_AGENT, EMP_APP_VERSION,
//	EMP_BASE_URL, EMP_TIMEOUT, EMP_TLS_VERIFY, EMP_DEBUG, EMP_PROXY,
//	EMP_EXTRA_HEADERS, EMP_RATE_LIMIT, EMP_RATE_BURST, EMP_MAX_IDLE_CONNS,
//	EMP_MAX_IDLE_CONNS_PER_HOST, EMP_IDLE_CONN_TIMEOUT.
func LoadConfig(appToken, deviceGUID, deviceAppVersion string, timeoutSeconds float64) (Config, error) {
	return LoadConfigWithParams(ConfigParams{
		AppToken:         appToken,
		DeviceGUID:       deviceGUID,
		DeviceAppVersion: deviceAppVersion,
		TimeoutSeconds:   timeoutSeconds,
	})
}

// LoadConfigWithParams is an extended constructor that accepts structured options.
func LoadConfigWithParams(params ConfigParams) (Config, error) {
	envIdleTimeout, err := parseEnvDuration("EMP_IDLE_CONN_TIMEOUT", time.Second)
	if err != nil {
		return Config{}, err
	}
	envMaxIdleConns, envMaxIdleConnsSet, err := parseEnvInt("EMP_MAX_IDLE_CONNS")
	if err != nil {
		return Config{}, err
	}
	envMaxIdlePerHost, envMaxIdlePerHostSet, err := parseEnvInt("EMP_MAX_IDLE_CONNS_PER_HOST")
	if err != nil {
		return Config{}, err
	}
	envBurst, envBurstSet, err := parseEnvInt("EMP_RATE_BURST")
	if err != nil {
		return Config{}, err
	}

	maxIdleConns := defaultMaxIdleConns
	if envMaxIdleConnsSet {
		maxIdleConns = envMaxIdleConns
	}
	if params.MaxIdleConns != 0 {
		maxIdleConns = params.MaxIdleConns
	}

	maxIdlePerHost := defaultMaxIdlePerHost
	if envMaxIdlePerHostSet {
		maxIdlePerHost = envMaxIdlePerHost
	}
	if params.MaxIdleConnsPerHost != 0 {
		maxIdlePerHost = params.MaxIdleConnsPerHost
	}

	burst := defaultRateBurst
	if envBurstSet {
		burst = envBurst
	}
	if params.RateBurst != 0 {
		burst = params.RateBurst
	}

	cfg := Config{
		AppToken:            firstNonEmpty(params.AppToken, os.Getenv("EMP_TOKEN")),
		DeviceGUID:          firstNonEmpty(params.DeviceGUID, os.Getenv("EMP_GUID")),
		UserAgent:           firstNonEmpty(params.UserAgent, os.Getenv("EMP_USER_AGENT"), defaultUserAgent),
		DeviceUserAgent:     firstNonEmpty(params.DeviceUserAgent, os.Getenv("EMP_DEVICE_USER_AGENT"), defaultDeviceUserAgent),
		DeviceAppVersion:    firstNonEmpty(params.DeviceAppVersion, os.Getenv("EMP_APP_VERSION")),
		BaseURL:             firstNonEmpty(params.BaseURL, os.Getenv("EMP_BASE_URL"), defaultBaseURL),
		TLSVerify:           true,
		ExtraHeaders:        cloneHeaders(params.ExtraHeaders),
		RequestsPerSecond:   params.RequestsPerSecond,
		RateBurst:           burst,
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdlePerHost,
		IdleConnTimeout:     firstNonZeroDuration(params.IdleConnTimeout, envIdleTimeout, defaultIdleConnTimeout),
		Logger:              params.Logger,
		RedactHeaders:       params.RedactHeaders,
		RedactParams:        params.RedactParams,
		Metrics:             params.Metrics,
		BeforeRequest:       params.BeforeRequest,
		AfterResponse:       params.AfterResponse,
	}

	if cfg.RedactHeaders == nil {
		cfg.RedactHeaders = []string{"Cookie", "Authorization"}
	}
	if cfg.RedactParams == nil {
		cfg.RedactParams = []string{"token", "auth[session_id]"}
	}

	if params.TLSVerify != nil {
		cfg.TLSVerify = *params.TLSVerify
	} else if env := os.Getenv("EMP_TLS_VERIFY"); env != "" {
		val, err := strconv.ParseBool(env)
		if err != nil {
			return Config{}, fmt.Errorf("parse EMP_TLS_VERIFY: %w", err)
		}
		cfg.TLSVerify = val
	}

	if params.Debug != nil {
		cfg.Debug = *params.Debug
	} else if env := os.Getenv("EMP_DEBUG"); env != "" {
		val, err := strconv.ParseBool(env)
		if err != nil {
			return Config{}, fmt.Errorf("parse EMP_DEBUG: %w", err)
		}
		cfg.Debug = val
	}

	if params.Timeout > 0 {
		cfg.Timeout = params.Timeout
	} else if params.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(params.TimeoutSeconds * float64(time.Second))
	} else if envTimeout, err := parseEnvDuration("EMP_TIMEOUT", time.Second); err != nil {
		return Config{}, err
	} else if envTimeout > 0 {
		cfg.Timeout = envTimeout
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Timeout < 0 {
		return Config{}, fmt.Errorf("timeout must be non-negative")
	}

	if cfg.RequestsPerSecond == 0 {
		if valStr := os.Getenv("EMP_RATE_LIMIT"); valStr != "" {
			val, err := strconv.ParseFloat(valStr, 64)
			if err != nil {
				return Config{}, fmt.Errorf("parse EMP_RATE_LIMIT: %w", err)
			}
			cfg.RequestsPerSecond = val
		}
	}

	if env := os.Getenv("EMP_EXTRA_HEADERS"); env != "" {
		envHeaders, err := parseHeadersEnv(env)
		if err != nil {
			return Config{}, err
		}
		for k, vals := range envHeaders {
			for _, v := range vals {
				cfg.ExtraHeaders.Add(k, v)
			}
		}
	}

	proxyURL := params.ProxyURL
	if proxyURL == "" {
		proxyURL = os.Getenv("EMP_PROXY")
	}
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return Config{}, fmt.Errorf("parse EMP_PROXY: %w", err)
		}
		cfg.ProxyURL = parsed
	}

	if cfg.AppToken == "" {
		return Config{}, ErrMissingToken
	}
	if cfg.DeviceGUID == "" {
		cfg.DeviceGUID = uuid.NewString()
		if cfg.Debug && cfg.Logger != nil {
			cfg.Logger.Printf("no device guid configured, generated %s", cfg.DeviceGUID)
		}
	}
	if cfg.RequestsPerSecond < 0 {
		return Config{}, fmt.Errorf("rate limit must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return Config{}, fmt.Errorf("rate burst must be >= 1")
	}
	if cfg.MaxIdleConns < 0 {
		return Config{}, fmt.Errorf("max idle conns must be >= 0")
	}
	if cfg.MaxIdleConnsPerHost < 0 {
		return Config{}, fmt.Errorf("max idle conns per host must be >= 0")
	}
	if cfg.IdleConnTimeout < 0 {
		return Config{}, fmt.Errorf("idle connection timeout must be non-negative")
	}

	return cfg, nil
}

// merge returns a copy of p with every non-zero field of o applied on top.
func (p ConfigParams) merge(o ConfigParams) ConfigParams {
	out := p
	out.AppToken = firstNonEmpty(o.AppToken, p.AppToken)
	out.DeviceGUID = firstNonEmpty(o.DeviceGUID, p.DeviceGUID)
	out.UserAgent = firstNonEmpty(o.UserAgent, p.UserAgent)
	out.DeviceUserAgent = firstNonEmpty(o.DeviceUserAgent, p.DeviceUserAgent)
	out.DeviceAppVersion = firstNonEmpty(o.DeviceAppVersion, p.DeviceAppVersion)
	out.BaseURL = firstNonEmpty(o.BaseURL, p.BaseURL)
	out.ProxyURL = firstNonEmpty(o.ProxyURL, p.ProxyURL)
	out.Timeout = firstNonZeroDuration(o.Timeout, p.Timeout)
	out.IdleConnTimeout = firstNonZeroDuration(o.IdleConnTimeout, p.IdleConnTimeout)
	if o.TimeoutSeconds != 0 {
		out.TimeoutSeconds = o.TimeoutSeconds
		if o.Timeout == 0 {
			out.Timeout = 0
		}
	}
	if o.TLSVerify != nil {
		out.TLSVerify = o.TLSVerify
	}
	if o.Debug != nil {
		out.Debug = o.Debug
	}
	if o.RequestsPerSecond != 0 {
		out.RequestsPerSecond = o.RequestsPerSecond
	}
	if o.RateBurst != 0 {
		out.RateBurst = o.RateBurst
	}
	if o.MaxIdleConns != 0 {
		out.MaxIdleConns = o.MaxIdleConns
	}
	if o.MaxIdleConnsPerHost != 0 {
		out.MaxIdleConnsPerHost = o.MaxIdleConnsPerHost
	}
	if o.Logger != nil {
		out.Logger = o.Logger
	}
	if o.Metrics != nil {
		out.Metrics = o.Metrics
	}
	if o.RedactHeaders != nil {
		out.RedactHeaders = o.RedactHeaders
	}
	if o.RedactParams != nil {
		out.RedactParams = o.RedactParams
	}
	if len(o.ExtraHeaders) > 0 {
		merged := cloneHeaders(p.ExtraHeaders)
		for k, vals := range o.ExtraHeaders {
			merged[k] = append([]string(nil), vals...)
		}
		out.ExtraHeaders = merged
	}
	if o.BeforeRequest != nil {
		out.BeforeRequest = o.BeforeRequest
	}
	if o.AfterResponse != nil {
		out.AfterResponse = o.AfterResponse
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZeroDuration(values ...time.Duration) time.Duration {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func parseEnvInt(env string) (int, bool, error) {
	val, ok := os.LookupEnv(env)
	if !ok || val == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, true, fmt.Errorf("parse %s: %w", env, err)
	}
	return parsed, true, nil
}

func parseEnvDuration(env string, numericUnit time.Duration) (time.Duration, error) {
	val := os.Getenv(env)
	if val == "" {
		return 0, nil
	}
	if duration, err := time.ParseDuration(val); err == nil {
		return duration, nil
	}
	seconds, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", env, err)
	}
	return time.Duration(seconds * float64(numericUnit)), nil
}

func parseHeadersEnv(val string) (http.Header, error) {
	headers := http.Header{}
	if val == "" {
		return headers, nil
	}
	for _, entry := range strings.FieldsFunc(val, func(r rune) bool { return r == ';' || r == '\n' }) {
		if entry == "" {
			continue
		}
		sep := ":"
		if strings.Contains(entry, "=") {
			sep = "="
		}
		parts := strings.SplitN(entry, sep, 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid header entry %q", entry)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			return nil, fmt.Errorf("invalid header entry %q", entry)
		}
		headers.Add(key, value)
	}
	return headers, nil
}

func cloneHeaders(h http.Header) http.Header {
	if h == nil {
		return http.Header{}
	}
	clone := http.Header{}
	for k, vals := range h {
		clone[k] = append([]string(nil), vals...)
	}
	return clone
}
