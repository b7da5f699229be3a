package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/metricsd/internal/errors"
	"github.com/anstrom/metricsd/internal/logging"
)

func newHealthHandler(manager *MockManager) *HealthHandler {
	return NewHealthHandler(manager, logging.NewDefault().Logger)
}

func TestHealthHandler(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		manager := &MockManager{}
		manager.On("SelfTest").Return(nil)

		handler := newHealthHandler(manager)
		req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
		rec := httptest.NewRecorder()

		handler.Health(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, StatusHealthy, resp.Status)
		assert.Equal(t, "ok", resp.Checks["metrics"])
		assert.NotEmpty(t, resp.Uptime)
	})

	t.Run("unhealthy when self-test fails", func(t *testing.T) {
		manager := &MockManager{}
		manager.On("SelfTest").Return(errors.ErrSelfTest("read-back mismatch"))

		handler := newHealthHandler(manager)
		req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
		rec := httptest.NewRecorder()

		handler.Health(rec, req)

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, StatusUnhealthy, resp.Status)
		assert.Contains(t, resp.Checks["metrics"], "read-back mismatch")
	})
}

func TestLivenessHandler(t *testing.T) {
	handler := newHealthHandler(&MockManager{})
	req := httptest.NewRequest(http.MethodGet, "/livez", http.NoBody)
	rec := httptest.NewRecorder()

	handler.Liveness(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp["status"])
}

func TestVersionHandler(t *testing.T) {
	SetBuildInfo("1.2.3", "abc1234", "2026-08-28T00:00:00Z")
	t.Cleanup(func() { SetBuildInfo("dev", "none", "unknown") })

	handler := newHealthHandler(&MockManager{})
	req := httptest.NewRequest(http.MethodGet, "/version", http.NoBody)
	rec := httptest.NewRecorder()

	handler.Version(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp VersionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, "abc1234", resp.Commit)
	assert.NotEmpty(t, resp.GoVersion)
}
