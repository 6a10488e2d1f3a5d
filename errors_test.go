package empmos

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckEnvelopeSuccess(t *testing.T) {
	env := &Envelope{ErrorCode: 0, Result: json.RawMessage(`{"flat_id":"1"}`)}
	require.NoError(t, checkEnvelope(env))

	var out Record
	require.NoError(t, env.decodeResult(&out))
	assert.Equal(t, "1", out.String("flat_id"))
}

func TestCheckEnvelopeSuccessIgnoresMessage(t *testing.T) {
	env := &Envelope{ErrorCode: 0, ErrorMessage: "Истёк срок поверки прибора учёта"}
	assert.NoError(t, checkEnvelope(env))
}

func TestCheckEnvelopeTypes(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		message  string
		wantType string
	}{
		{
			name:     "UnauthorizedEmptyMessage",
			code:     401,
			wantType: "*empmos.AuthenticationError",
		},
		{
			name:     "UnauthorizedAnyMessage",
			code:     401,
			message:  "Редактируемое показание принято к расчёту.",
			wantType: "*empmos.AuthenticationError",
		},
		{
			name:     "AlreadySubmitted",
			code:     3454,
			message:  `Не удалось передать показания за X по счётчикам 12345678: "Редактируемое показание принято к расчёту."`,
			wantType: "*empmos.AlreadySubmittedError",
		},
		{
			name:     "Implausible",
			code:     3454,
			message:  `"Не допускается внесение данных, в несколько раз превышающих нормативы водопотребления"`,
			wantType: "*empmos.ImplausibleValueError",
		},
		{
			name:     "Decreasing",
			code:     3454,
			message:  `"Вносимое показание меньше предыдущего. Проверьте корректность вносимого показания."`,
			wantType: "*empmos.DecreasingValueError",
		},
		{
			name:     "NotCalibrated",
			code:     3454,
			message:  "Истёк срок поверки прибора учёта",
			wantType: "*empmos.CounterNotCalibratedError",
		},
		{
			name:     "NotCalibratedWithoutYo",
			code:     3454,
			message:  "Истек срок поверки прибора учета",
			wantType: "*empmos.CounterNotCalibratedError",
		},
		{
			name:     "CounterRejectedUnknownWording",
			code:     3454,
			message:  "Невозможно внести показание, поскольку не введены показания за три и более месяца",
			wantType: "*empmos.ServerError",
		},
		{
			name:     "GenericCode",
			code:     500,
			message:  "internal",
			wantType: "*empmos.ServerError",
		},
		{
			name:     "GenericCodeWithCounterWording",
			code:     1000,
			message:  "принято к расчёту",
			wantType: "*empmos.ServerError",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkEnvelope(&Envelope{ErrorCode: tt.code, ErrorMessage: tt.message})
			require.Error(t, err)
			assert.Equal(t, tt.wantType, fmt.Sprintf("%T", err))

			base := extractAPIError(err)
			require.NotNil(t, base)
			assert.Equal(t, tt.code, base.Code)
			assert.Equal(t, tt.message, base.Message)
		})
	}
}

func TestCounterRejectionFamily(t *testing.T) {
	err := checkEnvelope(&Envelope{ErrorCode: 3454, ErrorMessage: "показание меньше предыдущего"})

	var decreasing *DecreasingValueError
	require.ErrorAs(t, err, &decreasing)

	var family *CounterRejectedError
	require.ErrorAs(t, err, &family)
	assert.Equal(t, 3454, family.Code)

	var server *ServerError
	require.ErrorAs(t, err, &server)
	assert.Equal(t, "показание меньше предыдущего", server.Message)

	var auth *AuthenticationError
	assert.False(t, errors.As(err, &auth))

	var already *AlreadySubmittedError
	assert.False(t, errors.As(err, &already))
}

func TestServerErrorIsNotCounterRejection(t *testing.T) {
	err := checkEnvelope(&Envelope{ErrorCode: 3454, ErrorMessage: "что-то другое"})

	var family *CounterRejectedError
	assert.False(t, errors.As(err, &family))

	var server *ServerError
	require.ErrorAs(t, err, &server)
	assert.Equal(t, 3454, server.Code)
}

func TestAPIErrorMessage(t *testing.T) {
	sid := "sess"
	err := checkEnvelope(&Envelope{ErrorCode: 12, ErrorMessage: "bad flat", SessionID: &sid, ExecTime: 0.2})
	assert.Equal(t, "emp api error: bad flat (code:12)", err.Error())
	assert.Equal(t, "sess", extractAPIError(err).SessionID)

	err = checkEnvelope(&Envelope{ErrorCode: 401})
	assert.Equal(t, "emp api error: no message (code:401)", err.Error())

	var nilErr *APIError
	assert.Equal(t, "", nilErr.Error())
}

func TestHTTPErrorMessage(t *testing.T) {
	assert.Equal(t, "emp http error (502)", (&HTTPError{StatusCode: 502}).Error())
	assert.Equal(t, "emp http error (503): busy", (&HTTPError{StatusCode: 503, Body: []byte(" busy \n")}).Error())
}

func extractAPIError(err error) *APIError {
	switch e := err.(type) {
	case *AuthenticationError:
		return e.APIError
	case *ServerError:
		return e.APIError
	case *CounterRejectedError:
		return e.APIError
	case *AlreadySubmittedError:
		return e.APIError
	case *ImplausibleValueError:
		return e.APIError
	case *DecreasingValueError:
		return e.APIError
	case *CounterNotCalibratedError:
		return e.APIError
	default:
		return nil
	}
}
