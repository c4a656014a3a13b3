package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tallypro/storefront/internal/interfaces/http/dto"
	"github.com/tallypro/storefront/internal/testutil"
)

type testResponse struct {
	*httptest.ResponseRecorder
	t *testing.T
}

// data decodes the envelope's data into T
func data[T any](r *testResponse) T {
	r.t.Helper()
	env := testutil.JSONBodyAs[struct {
		Success bool `json:"success"`
		Data    T    `json:"data"`
	}](r.t, r.ResponseRecorder)
	require.True(r.t, env.Success, r.Body.String())
	return env.Data
}

func (r *testResponse) errorCode() string {
	r.t.Helper()
	resp := testutil.JSONBodyAs[dto.Response](r.t, r.ResponseRecorder)
	require.NotNil(r.t, resp.Error, r.Body.String())
	return resp.Error.Code
}
