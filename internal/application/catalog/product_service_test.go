package catalog_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	appcatalog "github.com/tallypro/storefront/internal/application/catalog"
	"github.com/tallypro/storefront/internal/domain/catalog"
	"github.com/tallypro/storefront/internal/domain/shared"
	"github.com/tallypro/storefront/internal/testutil"
)

func ptr[T any](v T) *T { return &v }

func TestProductService_SoftDelete(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewLocalStore(t)
	svc := appcatalog.NewProductService(s, zaptest.NewLogger(t))

	before, err := svc.ListActive(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "1"))

	after, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, after, len(before)-1)

	_, err = svc.Get(ctx, "1", false)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	hidden, err := svc.Get(ctx, "1", true)
	require.NoError(t, err)
	assert.False(t, hidden.Active)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(before))

	user, err := s.GetUserByID(ctx, testutil.CustomerID)
	require.NoError(t, err)
	assert.True(t, user.Owns("1"), "owners keep their entitlement")
}

func TestProductService_CreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	svc := appcatalog.NewProductService(testutil.NewLocalStore(t), nil)

	_, err := svc.Create(ctx, appcatalog.ProductInput{Name: ptr("No price")})
	assert.Error(t, err)

	created, err := svc.Create(ctx, appcatalog.ProductInput{
		Name:     ptr("Bank Reconciliation"),
		Price:    ptr(decimal.NewFromInt(1999)),
		Category: ptr(catalog.CategoryReports),
		Features: []string{"Auto match"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Active)

	updated, err := svc.Update(ctx, created.ID, appcatalog.ProductInput{Price: ptr(decimal.NewFromInt(2199))})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2199).Equal(updated.Price))
	assert.Equal(t, "Bank Reconciliation", updated.Name)

	_, err = svc.Update(ctx, "missing", appcatalog.ProductInput{})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Update(ctx, created.ID, appcatalog.ProductInput{Category: ptr(catalog.Category("Games"))})
	assert.Error(t, err)
}

func TestProductService_Upload(t *testing.T) {
	ctx := context.Background()
	svc := appcatalog.NewProductService(testutil.NewLocalStore(t), nil)

	var mu sync.Mutex
	var last float64
	progress := func(p float64) {
		mu.Lock()
		last = p
		mu.Unlock()
	}

	body := "module-binary"
	url, product, err := svc.Upload(ctx, appcatalog.UploadInput{
		ProductID: "2", Kind: appcatalog.FileKindModule, FileName: "module.tcp",
		ContentType: "application/octet-stream", Size: int64(len(body)),
	}, strings.NewReader(body), progress)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:application/octet-stream;base64,"))
	require.NotNil(t, product)
	assert.Equal(t, url, product.FileURL)
	assert.Equal(t, "module.tcp", product.FileName)

	mu.Lock()
	assert.Equal(t, float64(100), last)
	mu.Unlock()

	_, product, err = svc.Upload(ctx, appcatalog.UploadInput{ProductID: "2", Kind: appcatalog.FileKindDemo, FileName: "demo.pdf", ContentType: "application/pdf", Size: 4},
		strings.NewReader("demo"), nil)
	require.NoError(t, err)
	assert.Equal(t, "demo.pdf", product.DemoFileName)
	assert.Equal(t, "module.tcp", product.FileName)

	_, _, err = svc.Upload(ctx, appcatalog.UploadInput{ProductID: "missing", FileName: "x"}, strings.NewReader("x"), nil)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestProductService_SubscribeFiltersInactive(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewLocalStore(t)
	svc := appcatalog.NewProductService(s, nil)
	require.NoError(t, svc.Delete(ctx, "4"))

	var got []catalog.Product
	unsubscribe, err := svc.Subscribe(ctx, true, func(products []catalog.Product) { got = products })
	require.NoError(t, err)
	defer unsubscribe()

	require.NotEmpty(t, got)
	for _, p := range got {
		assert.True(t, p.Active, p.ID)
	}
}
