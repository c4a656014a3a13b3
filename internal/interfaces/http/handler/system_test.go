package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallypro/storefront/internal/testutil"
)

func systemEngine(checks map[string]HealthCheck) http.Handler {
	h := NewSystemHandler("tallypro-storefront", "1.2.3", "local", checks)
	r := testutil.NewEngine()
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/info", h.Info)
	return r
}

func TestSystemHandler_Health(t *testing.T) {
	w := testutil.DoJSON(t, systemEngine(nil), http.MethodGet, "/health", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := testutil.JSONBody(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "local", body["backend"])
}

func TestSystemHandler_Ready(t *testing.T) {
	healthy := func(context.Context) error { return nil }

	t.Run("all checks pass", func(t *testing.T) {
		w := testutil.DoJSON(t, systemEngine(map[string]HealthCheck{"store": healthy, "medium": healthy}), http.MethodGet, "/ready", nil, nil)

		require.Equal(t, http.StatusOK, w.Code)
		resp := testutil.JSONBodyAs[ReadinessResponse](t, w)
		assert.Equal(t, map[string]string{"store": "ok", "medium": "ok"}, resp.Checks)
	})

	t.Run("one check fails", func(t *testing.T) {
		w := testutil.DoJSON(t, systemEngine(map[string]HealthCheck{
			"store":  healthy,
			"medium": func(context.Context) error { return errors.New("redis: connection refused") },
		}), http.MethodGet, "/ready", nil, nil)

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		resp := testutil.JSONBodyAs[ReadinessResponse](t, w)
		assert.Equal(t, "unavailable", resp.Status)
		assert.Equal(t, "redis: connection refused", resp.Checks["medium"])
		assert.Equal(t, "ok", resp.Checks["store"])
	})
}

func TestSystemHandler_Info(t *testing.T) {
	w := testutil.DoJSON(t, systemEngine(nil), http.MethodGet, "/info", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	info := testutil.JSONBodyAs[struct {
		Data SystemInfoResponse `json:"data"`
	}](t, w)
	assert.Equal(t, "1.2.3", info.Data.Version)
	assert.Equal(t, "local", info.Data.Backend)
	assert.NotEmpty(t, info.Data.GoVersion)
}

func TestSystemHandler_InfoPoolStats(t *testing.T) {
	h := NewSystemHandler("tallypro-storefront", "1.2.3", "cloud", nil).
		WithPoolStats(func() (any, error) { return map[string]int{"in_use": 2}, nil })
	r := testutil.NewEngine()
	r.GET("/info", h.Info)

	w := testutil.DoJSON(t, r, http.MethodGet, "/info", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := testutil.JSONBody(t, w)["data"].(map[string]any)
	assert.Equal(t, map[string]any{"in_use": float64(2)}, data["pool"])
}
