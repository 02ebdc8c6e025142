package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	err   error
	calls int
}

func (s *stubRunner) Run(ctx context.Context) error {
	s.calls++

	return s.err
}

type stubSchedule struct {
	next time.Time
}

func (s *stubSchedule) NextRun() time.Time {
	return s.next
}

func setupTestAPI(runner *stubRunner, schedule *stubSchedule) *API {
	return NewAPI(slog.Default(), runner, schedule, []string{"team@example.com"})
}

func TestAPI_StatusEndpoint(t *testing.T) {
	next := time.Date(2025, time.March, 6, 6, 0, 0, 0, time.UTC)
	app := setupTestAPI(&stubRunner{}, &stubSchedule{next: next}).App()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status     string   `json:"status"`
		NextRun    string   `json:"next_run"`
		Recipients []string `json:"recipients"`
	}

	err = json.NewDecoder(resp.Body).Decode(&body)
	require.NoError(t, err)

	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "2025-03-06T06:00:00Z", body.NextRun)
	assert.Equal(t, []string{"team@example.com"}, body.Recipients)
}

func TestAPI_StatusEndpoint_BeforeScheduleStart(t *testing.T) {
	app := setupTestAPI(&stubRunner{}, &stubSchedule{}).App()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	var body map[string]any

	err = json.NewDecoder(resp.Body).Decode(&body)
	require.NoError(t, err)

	assert.Equal(t, "", body["next_run"])
}

func TestAPI_StatusEndpoint_NoSideEffects(t *testing.T) {
	runner := &stubRunner{}
	app := setupTestAPI(runner, &stubSchedule{}).App()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, 0, runner.calls)
}

func TestAPI_Trigger_Success(t *testing.T) {
	runner := &stubRunner{}
	app := setupTestAPI(runner, &stubSchedule{}).App()

	req := httptest.NewRequest(http.MethodPost, "/trigger", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, runner.calls)

	var body map[string]string

	err = json.NewDecoder(resp.Body).Decode(&body)
	require.NoError(t, err)
	assert.Equal(t, "sent", body["status"])
}

func TestAPI_Trigger_Failure(t *testing.T) {
	runner := &stubRunner{err: errors.New("workflow engine start run: connection refused")}
	app := setupTestAPI(runner, &stubSchedule{}).App()

	req := httptest.NewRequest(http.MethodPost, "/trigger", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, 1, runner.calls)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "connection refused")
}

func TestAPI_HealthCheck(t *testing.T) {
	app := setupTestAPI(&stubRunner{}, &stubSchedule{}).App()

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
