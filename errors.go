package empmos

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingToken = errors.New("application token is required. Provide it or set EMP_TOKEN")
	ErrNoSession    = errors.New("no active session, call Login first")
)

// Response codes the service uses inside the envelope.
const (
	CodeOK              = 0
	CodeUnauthorized    = 401
	CodeCounterRejected = 3454
)

// APIError represents a non-zero errorCode returned inside a response envelope.
type APIError struct {
	Code      int
	Message   string
	ExecTime  float64
	SessionID string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = "no message"
	}
	return fmt.Sprintf("emp api error: %s (code:%d)", msg, e.Code)
}

// AuthenticationError is returned for bad credentials or an expired session.
type AuthenticationError struct{ *APIError }

// ServerError is a generic remote failure.
type ServerError struct{ *APIError }

// CounterRejectedError is the family of meter submission rejections the
// service reports under CodeCounterRejected.
type CounterRejectedError struct{ *ServerError }

func (e *CounterRejectedError) Unwrap() error { return e.ServerError }

// AlreadySubmittedError: the reading for the period has already been accepted
// for billing and can no longer be edited.
type AlreadySubmittedError struct{ *CounterRejectedError }

func (e *AlreadySubmittedError) Unwrap() error { return e.CounterRejectedError }

// ImplausibleValueError: the reading exceeds consumption norms several times.
type ImplausibleValueError struct{ *CounterRejectedError }

func (e *ImplausibleValueError) Unwrap() error { return e.CounterRejectedError }

// DecreasingValueError: the reading is lower than the previous one.
type DecreasingValueError struct{ *CounterRejectedError }

func (e *DecreasingValueError) Unwrap() error { return e.CounterRejectedError }

// CounterNotCalibratedError: the meter's verification period has expired.
type CounterNotCalibratedError struct{ *CounterRejectedError }

func (e *CounterNotCalibratedError) Unwrap() error { return e.CounterRejectedError }

// HTTPError is returned when the service answers with a non-2xx status and a
// body that is not a response envelope.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	preview := strings.TrimSpace(string(e.Body))
	if len(preview) > 256 {
		preview = preview[:256] + "…"
	}
	if preview == "" {
		return fmt.Sprintf("emp http error (%d)", e.StatusCode)
	}
	return fmt.Sprintf("emp http error (%d): %s", e.StatusCode, preview)
}

type counterRule struct {
	fragment string
	wrap     func(*CounterRejectedError) error
}

// counterRejections tells the sub-kinds of CodeCounterRejected apart. The
// service only distinguishes them by the human readable (Russian) message,
// so this table follows its current wording and silently stops matching when
// that wording changes; unmatched messages fall back to ServerError. Rules
// are evaluated in order.
var counterRejections = []counterRule{
	{"принято к расчёту", func(e *CounterRejectedError) error { return &AlreadySubmittedError{e} }},
	{"превышающих нормативы", func(e *CounterRejectedError) error { return &ImplausibleValueError{e} }},
	{"меньше предыдущего", func(e *CounterRejectedError) error { return &DecreasingValueError{e} }},
	{"Истёк срок поверки", func(e *CounterRejectedError) error { return &CounterNotCalibratedError{e} }},
}

// Matching treats ё and е as the same letter.
var yoFolder = strings.NewReplacer("ё", "е", "Ё", "Е")

// checkEnvelope maps an envelope to nil on success or to a typed error.
func checkEnvelope(env *Envelope) error {
	if env.ErrorCode == CodeOK {
		return nil
	}
	base := &APIError{
		Code:     env.ErrorCode,
		Message:  env.ErrorMessage,
		ExecTime: env.ExecTime,
	}
	if env.SessionID != nil {
		base.SessionID = *env.SessionID
	}

	switch env.ErrorCode {
	case CodeUnauthorized:
		return &AuthenticationError{APIError: base}
	case CodeCounterRejected:
		msg := yoFolder.Replace(env.ErrorMessage)
		for _, rule := range counterRejections {
			if strings.Contains(msg, yoFolder.Replace(rule.fragment)) {
				return rule.wrap(&CounterRejectedError{ServerError: &ServerError{APIError: base}})
			}
		}
	}
	return &ServerError{APIError: base}
}
