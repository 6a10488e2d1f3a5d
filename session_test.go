package empmos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginStoresSession(t *testing.T) {
	svc, server := newFakeService(t)
	client := newTestClient(t, server.URL)
	require.False(t, client.IsActive())

	result, err := client.Login("79990000000", "secret")
	require.NoError(t, err)
	assert.True(t, client.IsActive())
	assert.Equal(t, "sess-1", client.SessionID())
	assert.Equal(t, "Иван", result.String("name"))
	assert.True(t, result.Bool("is_filled"))

	got := svc.last()
	assert.Equal(t, "/v1.0/auth/virtualLogin", got.Path)
	assert.Equal(t, "app-token", got.Query.Get("token"))
	assert.Equal(t, map[string]any{
		"guid":        "guid-1",
		"user_agent":  "Android",
		"app_version": "3.8.1",
	}, got.Body["device_info"])
	assert.Equal(t, map[string]any{
		"login":    "79990000000",
		"password": "secret",
		"guid":     "guid-1",
	}, got.Body["auth"])
}

func TestLoginRejected(t *testing.T) {
	svc, server := newFakeService(t)
	svc.handle("/v1.0/auth/virtualLogin", func(recordedRequest) any {
		return errEnvelope(401, "Неверный пароль")
	})
	client := newTestClient(t, server.URL)

	_, err := client.Login("79990000000", "wrong")
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 401, authErr.Code)
	assert.False(t, client.IsActive())
}

func TestLoginWithoutSessionID(t *testing.T) {
	svc, server := newFakeService(t)
	svc.handle("/v1.0/auth/virtualLogin", func(recordedRequest) any {
		return okEnvelope(map[string]any{"is_filled": true})
	})
	client := newTestClient(t, server.URL)

	_, err := client.Login("79990000000", "secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session_id")
	assert.False(t, client.IsActive())
}

func TestLoginRequiresCredentials(t *testing.T) {
	svc, server := newFakeService(t)
	client := newTestClient(t, server.URL)

	_, err := client.Login("", "secret")
	assert.Error(t, err)
	_, err = client.Login("79990000000", "")
	assert.Error(t, err)
	assert.Empty(t, svc.all())
}

func TestLogoutClearsSession(t *testing.T) {
	svc, server := newFakeService(t)
	client := newLoggedInClient(t, server.URL)

	_, err := client.Logout()
	require.NoError(t, err)
	assert.False(t, client.IsActive())
	assert.Equal(t, "", client.SessionID())

	got := svc.last()
	assert.Equal(t, "/v1.0/auth/logout", got.Path)
	assert.Equal(t, map[string]any{"session_id": "sess-1"}, got.Body["auth"])
}

func TestLogoutWithoutSessionIsNoop(t *testing.T) {
	svc, server := newFakeService(t)
	client := newTestClient(t, server.URL)

	result, err := client.Logout()
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.Empty(t, svc.all())
}

func TestLogoutExpiredSessionClears(t *testing.T) {
	svc, server := newFakeService(t)
	svc.handle("/v1.0/auth/logout", func(recordedRequest) any {
		return errEnvelope(401, "Сессия истекла")
	})
	client := newLoggedInClient(t, server.URL)

	_, err := client.Logout()
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.False(t, client.IsActive())
}

func TestLogoutServerErrorKeepsSession(t *testing.T) {
	svc, server := newFakeService(t)
	svc.handle("/v1.0/auth/logout", func(recordedRequest) any {
		return errEnvelope(500, "internal")
	})
	client := newLoggedInClient(t, server.URL)

	_, err := client.Logout()
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.True(t, client.IsActive())
}

func TestOperationsRequireSession(t *testing.T) {
	svc, server := newFakeService(t)
	client := newTestClient(t, server.URL)
	ctx := context.Background()

	ops := map[string]func() error{
		"Profile": func() error { _, err := client.Profile(); return err },
		"Flats":   func() error { _, err := client.Flats(); return err },
		"AddressSearch": func() error {
			_, err := client.AddressSearch("Тверская", 0)
			return err
		},
		"AddFlat":       func() error { _, err := client.AddFlat(FlatInput{Name: "home"}); return err },
		"DeleteFlat":    func() error { return client.DeleteFlat("1") },
		"WaterCounters": func() error { _, err := client.WaterCounters("1"); return err },
		"SendWaterCounters": func() error {
			_, err := client.SendWaterCounters("1", []CounterReading{NewCounterReading(1, time.Now(), 1)})
			return err
		},
		"ElectroCounters": func() error { _, err := client.ElectroCounters("1"); return err },
		"SendElectroCounters": func() error {
			_, err := client.SendElectroCounters("1", []CounterReading{NewCounterReading(1, time.Now(), 1)})
			return err
		},
		"EPD":      func() error { _, err := client.EPD("1", "27.09.2018", false); return err },
		"EEPD":     func() error { _, err := client.EEPD("1", "27.09.2018", EEPDCurrent, ""); return err },
		"CarFines": func() error { _, err := client.CarFines("7700123456"); return err },
		"WaitEEPD": func() error {
			_, _, err := client.WaitEEPD(ctx, "1", "27.09.2018", time.Millisecond, time.Millisecond)
			return err
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, op(), ErrNoSession)
		})
	}
	assert.Empty(t, svc.all(), "no request may be sent without a session")
}
