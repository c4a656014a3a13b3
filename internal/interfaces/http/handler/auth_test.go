package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/interfaces/http/middleware"
	"github.com/tallypro/storefront/internal/testutil"
)

func TestAuthHandler_LoginPaths(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name     string
		path     string
		email    string
		password string
		status   int
		code     string
		role     identity.Role
	}{
		{"customer signs in", "/api/v1/auth/login", testutil.CustomerEmail, testutil.CustomerPassword, http.StatusOK, "", identity.RoleCustomer},
		{"admin on customer path", "/api/v1/auth/login", testutil.AdminEmail, testutil.AdminPass, http.StatusForbidden, "USE_ADMIN_LOGIN", ""},
		{"customer on admin path", "/api/v1/auth/admin/login", testutil.CustomerEmail, testutil.CustomerPassword, http.StatusForbidden, "ADMIN_REQUIRED", ""},
		{"super admin on admin path", "/api/v1/auth/admin/login", testutil.SuperAdminEmail, testutil.SuperAdminPass, http.StatusOK, "", identity.RoleSuperAdmin},
		{"wrong password", "/api/v1/auth/login", testutil.CustomerEmail, "nope-nope", http.StatusUnauthorized, "INVALID_CREDENTIALS", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(http.MethodPost, tt.path, LoginRequest{Email: tt.email, Password: tt.password}, nil)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.code != "" {
				assert.Equal(t, tt.code, w.errorCode())
				return
			}
			session := data[SessionResponse](w)
			assert.NotEmpty(t, session.AccessToken)
			assert.Equal(t, session.SessionID, w.Header().Get(middleware.SessionIDHeader))
			assert.Equal(t, tt.role, session.User.Role)
		})
	}
}

func TestAuthHandler_LoginValidation(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "not-an-email"}, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	testutil.AssertErrorResponse(t, w.ResponseRecorder, "ERR_VALIDATION")
}

func TestAuthHandler_SignupAndMe(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/v1/auth/signup", SignupRequest{
		Name: "Sunita Rao", Email: "Sunita@Example.com", Password: "secret123",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	session := data[SessionResponse](w)
	assert.Equal(t, "sunita@example.com", session.User.Email)
	assert.Equal(t, identity.RoleCustomer, session.User.Role)

	me := h.do(http.MethodGet, "/api/v1/auth/me", nil, map[string]string{
		middleware.AuthHeaderKey: "Bearer " + session.AccessToken,
	})
	require.Equal(t, http.StatusOK, me.Code, me.Body.String())
	assert.Equal(t, session.User.ID, data[identity.User](me).ID)

	dup := h.do(http.MethodPost, "/api/v1/auth/signup", SignupRequest{
		Name: "Again", Email: "sunita@example.com", Password: "secret123",
	}, nil)
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Equal(t, "EMAIL_ALREADY_REGISTERED", dup.errorCode())
}

func TestAuthHandler_SignupShortPassword(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/v1/auth/signup", SignupRequest{
		Name: "Short", Email: "short@example.com", Password: "abc",
	}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_PASSWORD", w.errorCode())
}

func TestAuthHandler_LogoutRevokesToken(t *testing.T) {
	h := newHarness(t)
	headers := h.customer()

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/auth/me", nil, headers).Code)

	out := h.do(http.MethodPost, "/api/v1/auth/logout", nil, headers)
	require.Equal(t, http.StatusOK, out.Code, out.Body.String())

	after := h.do(http.MethodGet, "/api/v1/auth/me", nil, headers)
	assert.Equal(t, http.StatusUnauthorized, after.Code)
}

func TestAuthHandler_MeRequiresToken(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/api/v1/auth/me", nil, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_OTPLogin(t *testing.T) {
	h := newHarness(t)

	issued := h.do(http.MethodPost, "/api/v1/auth/otp/request", OTPRequest{Email: testutil.CustomerEmail}, nil)
	require.Equal(t, http.StatusOK, issued.Code, issued.Body.String())
	otp := data[OTPResponse](issued)
	require.Len(t, otp.Code, 6)

	verified := h.do(http.MethodPost, "/api/v1/auth/otp/verify", OTPVerifyRequest{Email: testutil.CustomerEmail, Code: otp.Code}, nil)
	require.Equal(t, http.StatusOK, verified.Code, verified.Body.String())
	assert.Equal(t, testutil.CustomerID, data[SessionResponse](verified).User.ID)

	reused := h.do(http.MethodPost, "/api/v1/auth/otp/verify", OTPVerifyRequest{Email: testutil.CustomerEmail, Code: otp.Code}, nil)
	assert.Equal(t, http.StatusBadRequest, reused.Code)
	assert.Equal(t, "OTP_USED", reused.errorCode())
}
