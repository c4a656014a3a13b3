package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallypro/storefront/internal/application/admin"
	appsales "github.com/tallypro/storefront/internal/application/sales"
	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/sales"
	"github.com/tallypro/storefront/internal/testutil"
)

func TestAdminHandler_RequiresAdministrator(t *testing.T) {
	h := newHarness(t)

	anonymous := h.do(http.MethodGet, "/api/v1/admin/users", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, anonymous.Code)

	customer := h.do(http.MethodGet, "/api/v1/admin/users", nil, h.customer())
	assert.Equal(t, http.StatusForbidden, customer.Code)

	admin := h.do(http.MethodGet, "/api/v1/admin/users", nil, h.login(testutil.AdminEmail, testutil.AdminPass, identity.LoginPathAdmin))
	assert.Equal(t, http.StatusOK, admin.Code)
}

func TestAdminHandler_AddAndDeactivateUser(t *testing.T) {
	h := newHarness(t)
	headers := h.admin()

	created := h.do(http.MethodPost, "/api/v1/admin/users", AddUserRequest{
		Name: "Field Agent", Email: "agent@example.com", Password: "agent-pass",
	}, headers)
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	user := data[identity.User](created)
	assert.Equal(t, identity.RoleCustomer, user.Role)

	agent := h.login("agent@example.com", "agent-pass", identity.LoginPathCustomer)
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/auth/me", nil, agent).Code)

	w := h.do(http.MethodPut, "/api/v1/admin/users/"+user.ID+"/status", StatusRequest{Status: "inactive"}, headers)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	revoked := h.do(http.MethodGet, "/api/v1/auth/me", nil, agent)
	assert.Equal(t, http.StatusUnauthorized, revoked.Code)

	login := h.do(http.MethodPost, "/api/v1/auth/login", LoginRequest{Email: "agent@example.com", Password: "agent-pass"}, nil)
	assert.Equal(t, http.StatusForbidden, login.Code)
	assert.Equal(t, "ACCOUNT_INACTIVE", login.errorCode())
}

func TestAdminHandler_SelfDeactivationRejected(t *testing.T) {
	h := newHarness(t)
	headers := h.admin()
	me := data[identity.User](h.do(http.MethodGet, "/api/v1/auth/me", nil, headers))

	w := h.do(http.MethodPut, "/api/v1/admin/users/"+me.ID+"/status", StatusRequest{Status: "inactive"}, headers)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "SELF_DEACTIVATION", w.errorCode())
}

func TestAdminHandler_OrdersAndRevenue(t *testing.T) {
	h := newHarness(t)
	headers := h.admin()

	revenue := data[admin.Revenue](h.do(http.MethodGet, "/api/v1/admin/revenue", nil, headers))
	assert.Equal(t, 1, revenue.Orders)
	assert.Equal(t, "INR", revenue.Currency)
	assert.Contains(t, revenue.Formatted, "4,999.00")

	w := h.do(http.MethodPut, "/api/v1/admin/orders/ord_1/status", StatusRequest{Status: string(sales.OrderStatusRefunded)}, headers)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	orders := data[[]sales.Order](h.do(http.MethodGet, "/api/v1/admin/orders", nil, headers))
	require.Len(t, orders, 1)
	assert.Equal(t, sales.OrderStatusRefunded, orders[0].Status)

	after := data[admin.Revenue](h.do(http.MethodGet, "/api/v1/admin/revenue", nil, headers))
	assert.True(t, after.Amount.IsZero())

	bad := h.do(http.MethodPut, "/api/v1/admin/orders/ord_1/status", StatusRequest{Status: "shipped"}, headers)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, "INVALID_STATUS", bad.errorCode())
}

func TestAdminHandler_Reconcile(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/v1/admin/reconcile", nil, h.admin())

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := data[appsales.ReconcileReport](w)
	assert.Equal(t, 1, report.Scanned)
	assert.Zero(t, report.Failed)
}
