package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	appidentity "github.com/tallypro/storefront/internal/application/identity"
	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/shared"
	"github.com/tallypro/storefront/internal/domain/store"
	"github.com/tallypro/storefront/internal/testutil"
)

func TestAccountService_ProfileAndPassword(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewLocalStore(t)
	svc := appidentity.NewAccountService(s, zaptest.NewLogger(t))

	serial := "780099001"
	user, err := svc.UpdateProfile(ctx, testutil.CustomerID, identity.ProfileUpdate{TallySerial: &serial})
	require.NoError(t, err)
	assert.Equal(t, serial, user.TallySerial)
	assert.Equal(t, "Rajesh Kumar", user.Name)

	err = svc.ChangePassword(ctx, testutil.CustomerID, "wrong-password", "newpass456")
	assert.ErrorIs(t, err, store.ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, testutil.CustomerID, testutil.CustomerPassword, "newpass456"))
	_, err = s.Login(ctx, testutil.CustomerEmail, "newpass456")
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword(ctx, "missing", "x", "newpass456"), shared.ErrNotFound)
}

func TestAccountService_OrdersAndDownload(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewLocalStore(t)
	svc := appidentity.NewAccountService(s, nil)

	orders, err := svc.Orders(ctx, testutil.CustomerID)
	require.NoError(t, err)
	require.NotEmpty(t, orders)
	assert.Equal(t, "1", orders[0].ProductID)

	_, err = svc.Download(ctx, testutil.CustomerID, "2")
	assert.ErrorIs(t, err, appidentity.ErrNotOwned)

	product, err := s.GetProduct(ctx, "1")
	require.NoError(t, err)
	product.FileName = "gst_reco.tcp"
	product.FileURL = "https://files.tallypro.in/modules/gst_reco.tcp"
	_, err = s.UpdateProduct(ctx, product)
	require.NoError(t, err)

	download, err := svc.Download(ctx, testutil.CustomerID, "1")
	require.NoError(t, err)
	assert.Equal(t, product.FileURL, download.FileURL)
	assert.Equal(t, "gst_reco.tcp", download.FileName)
}
