package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abgdnv/storefront/internal/config"
	storeerrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/store"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.HTTPServer.Port = 8080
	cfg.HTTPServer.Timeout.Read = time.Second
	cfg.HTTPServer.Timeout.Write = time.Second
	cfg.HTTPServer.Timeout.Idle = time.Second
	cfg.HTTPServer.Timeout.ReadHeader = time.Second
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	cfg.Storage.Driver = config.DriverMemory
	cfg.Storage.Key = store.DefaultKey
	cfg.Catalog.CacheSize = 8
	cfg.Checkout = config.CheckoutConfig{FreeShippingThreshold: 100, ShippingFee: 10, TaxRate: 0.08}
	return cfg
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func Test_SetupHttpHandler_WiresRoutes(t *testing.T) {
	// given
	deps, err := SetupDependencies(context.Background(), testConfig(), store.NewInMemoryStore(),
		messaging.NewLogPublisher(discardLogger()), discardLogger())
	require.NoError(t, err)
	h := SetupHttpHandler(deps)

	// when
	added := serve(h, http.MethodPost, "/api/v1/cart/items", `{"productId":"3","quantity":2}`)
	metricsPage := serve(h, http.MethodGet, "/metrics", "")

	// then
	assert.Equal(t, http.StatusOK, added.Code)
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, metricsPage.Code)
	assert.Contains(t, metricsPage.Body.String(), `storefront_cart_mutations_total{op="add"} 1`)
	assert.Contains(t, metricsPage.Body.String(), "storefront_cart_items 2")
}

func Test_SetupHttpHandler_FilterBoundsStayOrdered(t *testing.T) {
	// given
	deps, err := SetupDependencies(context.Background(), testConfig(), store.NewInMemoryStore(), nil, discardLogger())
	require.NoError(t, err)
	h := SetupHttpHandler(deps)

	// when
	rr := serve(h, http.MethodPost, "/api/v1/filters", `{"query":"","category":"All","minPrice":700,"maxPrice":100}`)

	// then
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t,
		`{"query":"minPrice=100&maxPrice=100","criteria":{"category":"All","priceRange":[100,100],"searchText":""}}`,
		rr.Body.String())
}

func Test_SetupHttpHandler_MetricsDisabled(t *testing.T) {
	// given
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	deps, err := SetupDependencies(context.Background(), cfg, store.NewInMemoryStore(), nil, discardLogger())
	require.NoError(t, err)

	// when
	rr := serve(SetupHttpHandler(deps), http.MethodGet, "/metrics", "")

	// then
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func Test_SetupDependencies_RestoresCart(t *testing.T) {
	// given
	storage := store.NewInMemoryStore()
	require.NoError(t, storage.Save(context.Background(),
		[]byte(`[{"product":{"id":"4","title":"Coffee Maker","price":89,"category":"Home"},"quantity":2}]`)))

	// when
	deps, err := SetupDependencies(context.Background(), testConfig(), storage, nil, discardLogger())

	// then
	require.NoError(t, err)
	dto := deps.CartService.Get(context.Background())
	assert.Equal(t, 2, dto.TotalItems)
	assert.Equal(t, 178.0, dto.TotalPrice)
}

func Test_SetupDependencies_CatalogFile(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"products":[{"id":"a","title":"Lamp","price":25,"category":"Home","rating":4}]}`), 0o600))
	cfg := testConfig()
	cfg.Catalog.File = path

	// when
	deps, err := SetupDependencies(context.Background(), cfg, store.NewInMemoryStore(), nil, discardLogger())

	// then
	require.NoError(t, err)
	categories := deps.CatalogService.Categories(context.Background())
	assert.Equal(t, []string{"Home"}, categories.Categories)
	assert.Equal(t, 25.0, categories.MaxPrice)
}

func Test_OpenStorage(t *testing.T) {
	testCases := []struct {
		name        string
		cfg         config.StorageConfig
		expectError error
	}{
		{name: "memory", cfg: config.StorageConfig{Driver: config.DriverMemory, Key: "cart"}},
		{name: "unknown driver", cfg: config.StorageConfig{Driver: "mongo", Key: "cart"}, expectError: storeerrors.ErrUnknownStorageDriver},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			s, closeFn, err := OpenStorage(context.Background(), tc.cfg, discardLogger())
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				return
			}
			require.NoError(t, err)
			defer closeFn()
			_, loadErr := s.Load(context.Background())
			assert.ErrorIs(t, loadErr, storeerrors.ErrCartNotFound)
		})
	}
}

func Test_OpenStorage_Badger(t *testing.T) {
	// given
	cfg := config.StorageConfig{Driver: config.DriverBadger, Key: "cart"}
	cfg.Badger.Path = filepath.Join(t.TempDir(), "cart")

	// when
	s, closeFn, err := OpenStorage(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), []byte(`[]`)))
	closeFn()

	reopened, closeAgain, err := OpenStorage(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer closeAgain()

	// then
	data, err := reopened.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))
}

func Test_NewPublisher_DisabledNatsLogs(t *testing.T) {
	// when
	p, closeFn, err := NewPublisher(context.Background(), *testConfig(), discardLogger())

	// then
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &messaging.LogPublisher{}, p)
}

func Test_OpenJetStream_Disabled(t *testing.T) {
	// when
	js, _, err := OpenJetStream(context.Background(), testConfig().Nats, discardLogger())

	// then
	require.ErrorIs(t, err, ErrNatsDisabled)
	assert.Nil(t, js)
}

func Test_SetupHttpServer(t *testing.T) {
	// given
	deps, err := SetupDependencies(context.Background(), testConfig(), store.NewInMemoryStore(), nil, discardLogger())
	require.NoError(t, err)

	// when
	srv := SetupHttpServer(deps, testConfig())

	// then
	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, time.Second, srv.ReadTimeout)
	require.NotNil(t, srv.Handler)
}
