package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/catalog"
	storeerrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/filter"
	"github.com/abgdnv/storefront/internal/service"
	"github.com/abgdnv/storefront/pkg/server"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCatalogService is a mock implementation of the CatalogService interface
type mockCatalogService struct {
	listing *service.ListingDto
	product *catalog.Product
	state   *service.FilterStateDto
	error   error
}

func (m *mockCatalogService) Listing(_ context.Context, _ url.Values) (*service.ListingDto, error) {
	return m.listing, m.error
}

func (m *mockCatalogService) FindByID(_ context.Context, _ string) (*catalog.Product, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.product, nil
}

func (m *mockCatalogService) Categories(_ context.Context) service.CategoriesDto {
	return service.CategoriesDto{Categories: []string{"Electronics", "Fashion"}, MaxPrice: 799}
}

func (m *mockCatalogService) UpdateFilters(_ context.Context, _ service.FilterUpdateDto) (*service.FilterStateDto, error) {
	return m.state, m.error
}

func (m *mockCatalogService) EditPrice(_ context.Context, _ service.PriceEditDto) (*service.FilterStateDto, error) {
	return m.state, m.error
}

func (m *mockCatalogService) ResetFilters(_ context.Context, _ service.QueryDto) (*service.FilterStateDto, error) {
	return m.state, m.error
}

func (m *mockCatalogService) SubmitSearch(_ context.Context, _ service.SearchDto) (*service.FilterStateDto, error) {
	return m.state, m.error
}

// mockCartService is a mock implementation of the CartService interface
type mockCartService struct {
	cart     service.CartDto
	checkout *service.CheckoutDto
	error    error

	lastQuantity *int
	lastID       string
}

func (m *mockCartService) Get(_ context.Context) service.CartDto { return m.cart }

func (m *mockCartService) AddItem(_ context.Context, _ service.AddItemDto) (*service.CartDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return &m.cart, nil
}

func (m *mockCartService) UpdateQuantity(_ context.Context, id string, req service.UpdateQuantityDto) service.CartDto {
	m.lastID = id
	m.lastQuantity = req.Quantity
	return m.cart
}

func (m *mockCartService) RemoveItem(_ context.Context, id string) service.CartDto {
	m.lastID = id
	return m.cart
}

func (m *mockCartService) Clear(_ context.Context) service.CartDto { return service.CartDto{} }

func (m *mockCartService) Checkout(_ context.Context) (*service.CheckoutDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.checkout, nil
}

func (m *mockCartService) Subscribe(_ func(service.CartDto)) func() { return func() {} }

type ErrorResponse struct {
	Error string `json:"error"`
}

// toJSON is a helper function to convert a struct to JSON string
func toJSON(t *testing.T, v interface{}) string {
	t.Helper()
	bytes, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal to JSON: %v", err)
	}
	return string(bytes)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRouter(catalogSvc service.CatalogService, cartSvc service.CartService) http.Handler {
	mux := server.NewChiRouter(discardLogger())
	NewHandler(catalogSvc, cartSvc, discardLogger()).RegisterRoutes(mux)
	return mux
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

var backpack = catalog.Product{ID: "6", Title: "Backpack", Price: 59, Category: "Fashion", Rating: 4.3}

func Test_Handler_Listing(t *testing.T) {
	listing := &service.ListingDto{
		Products: []catalog.Product{backpack},
		Featured: &backpack,
		Shown:    1,
		Total:    6,
		Summary:  `Showing 1 of 6 products matching "back"`,
		Criteria: filter.Criteria{Category: "All", PriceRange: filter.PriceRange{0, 799}, SearchText: "back"},
		Query:    "search=back",
	}
	testCases := []struct {
		name         string
		mockService  *mockCatalogService
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - listing built",
			mockService:  &mockCatalogService{listing: listing},
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, listing),
		},
		{
			name:         "Error - service error",
			mockService:  &mockCatalogService{error: errors.New("boom")},
			expectedCode: http.StatusInternalServerError,
			expectedBody: toJSON(t, ErrorResponse{Error: "Failed to fetch products"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			h := newRouter(tc.mockService, &mockCartService{})
			// when
			rr := serve(h, http.MethodGet, "/api/v1/products?search=back", "")
			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_Handler_FindByID(t *testing.T) {
	testCases := []struct {
		name         string
		mockService  *mockCatalogService
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - product found",
			mockService:  &mockCatalogService{product: &backpack},
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, backpack),
		},
		{
			name:         "Error - product not found",
			mockService:  &mockCatalogService{error: fmt.Errorf("wrapped: %w", storeerrors.ErrProductNotFound)},
			expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{Error: "Product with ID 6 not found"}),
		},
		{
			name:         "Error - unexpected",
			mockService:  &mockCatalogService{error: errors.New("boom")},
			expectedCode: http.StatusInternalServerError,
			expectedBody: toJSON(t, ErrorResponse{Error: "Failed to retrieve product with ID 6"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			h := newRouter(tc.mockService, &mockCartService{})
			// when
			rr := serve(h, http.MethodGet, "/api/v1/products/6", "")
			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_Handler_Categories(t *testing.T) {
	// given
	h := newRouter(&mockCatalogService{}, &mockCartService{})
	// when
	rr := serve(h, http.MethodGet, "/api/v1/categories", "")
	// then
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"categories":["Electronics","Fashion"],"maxPrice":799}`, rr.Body.String())
}

func Test_Handler_FilterEndpoints(t *testing.T) {
	state := &service.FilterStateDto{
		Query:    "category=Fashion",
		Criteria: filter.Criteria{Category: "Fashion", PriceRange: filter.PriceRange{0, 799}},
	}
	testCases := []struct {
		name         string
		path         string
		body         string
		mockService  *mockCatalogService
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - update filters",
			path:         "/api/v1/filters",
			body:         `{"query":"","category":"Fashion"}`,
			mockService:  &mockCatalogService{state: state},
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, state),
		},
		{
			name:         "Error - update filters without category",
			path:         "/api/v1/filters",
			body:         `{"query":""}`,
			mockService:  &mockCatalogService{state: state},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"validation_errors":{"Category":"failed on rule: required"}}`,
		},
		{
			name:         "Success - edit price",
			path:         "/api/v1/filters/price",
			body:         `{"query":"","index":1,"value":300}`,
			mockService:  &mockCatalogService{state: state},
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, state),
		},
		{
			name:         "Error - edit price with unknown bound",
			path:         "/api/v1/filters/price",
			body:         `{"query":"","index":2,"value":300}`,
			mockService:  &mockCatalogService{state: state},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"validation_errors":{"Index":"failed on rule: oneof"}}`,
		},
		{
			name:         "Error - edit price without bound",
			path:         "/api/v1/filters/price",
			body:         `{"query":"","value":300}`,
			mockService:  &mockCatalogService{state: state},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"validation_errors":{"Index":"failed on rule: required"}}`,
		},
		{
			name:         "Success - reset",
			path:         "/api/v1/filters/reset",
			body:         `{"query":"category=Home"}`,
			mockService:  &mockCatalogService{state: state},
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, state),
		},
		{
			name:         "Error - invalid query",
			path:         "/api/v1/search",
			body:         `{"query":"search=%zz","text":"x"}`,
			mockService:  &mockCatalogService{error: fmt.Errorf("%w: bad escape", storeerrors.ErrInvalidQuery)},
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ErrorResponse{Error: "Invalid query"}),
		},
		{
			name:         "Error - malformed body",
			path:         "/api/v1/search",
			body:         `{"query":`,
			mockService:  &mockCatalogService{state: state},
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ErrorResponse{Error: "Invalid request body"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			h := newRouter(tc.mockService, &mockCartService{})
			// when
			rr := serve(h, http.MethodPost, tc.path, tc.body)
			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_Handler_AddItem(t *testing.T) {
	dto := service.CartDto{
		State:   cart.State{Items: []cart.Entry{{Product: backpack, Quantity: 1}}, TotalItems: 1, TotalPrice: 59},
		Summary: cart.OrderSummary{Subtotal: 59, Shipping: 10, Tax: 4.72, Total: 73.72, FreeShippingRemaining: 41},
	}
	testCases := []struct {
		name         string
		body         string
		mockService  *mockCartService
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - item added",
			body:         `{"productId":"6"}`,
			mockService:  &mockCartService{cart: dto},
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, dto),
		},
		{
			name:         "Error - unknown product",
			body:         `{"productId":"42"}`,
			mockService:  &mockCartService{error: storeerrors.ErrProductNotFound},
			expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{Error: "Product with ID 42 not found"}),
		},
		{
			name:         "Error - negative quantity is rejected",
			body:         `{"productId":"6","quantity":-1}`,
			mockService:  &mockCartService{cart: dto},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"validation_errors":{"Quantity":"failed on rule: min"}}`,
		},
		{
			name:         "Error - missing product id",
			body:         `{}`,
			mockService:  &mockCartService{cart: dto},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"validation_errors":{"ProductID":"failed on rule: required"}}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			h := newRouter(&mockCatalogService{}, tc.mockService)
			// when
			rr := serve(h, http.MethodPost, "/api/v1/cart/items", tc.body)
			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_Handler_UpdateQuantity(t *testing.T) {
	testCases := []struct {
		name             string
		body             string
		expectedCode     int
		expectedQuantity *int
	}{
		{name: "Success - positive quantity", body: `{"quantity":3}`, expectedCode: http.StatusOK, expectedQuantity: intPtr(3)},
		{name: "Success - zero quantity is forwarded", body: `{"quantity":0}`, expectedCode: http.StatusOK, expectedQuantity: intPtr(0)},
		{name: "Error - missing quantity", body: `{}`, expectedCode: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			mockService := &mockCartService{}
			h := newRouter(&mockCatalogService{}, mockService)
			// when
			rr := serve(h, http.MethodPut, "/api/v1/cart/items/6", tc.body)
			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.Equal(t, tc.expectedQuantity, mockService.lastQuantity)
			if tc.expectedQuantity != nil {
				assert.Equal(t, "6", mockService.lastID)
			}
		})
	}
}

func Test_Handler_RemoveAndClear(t *testing.T) {
	// given
	mockService := &mockCartService{}
	h := newRouter(&mockCatalogService{}, mockService)

	// when
	removed := serve(h, http.MethodDelete, "/api/v1/cart/items/3", "")
	cleared := serve(h, http.MethodDelete, "/api/v1/cart", "")

	// then
	assert.Equal(t, http.StatusOK, removed.Code)
	assert.Equal(t, "3", mockService.lastID)
	assert.Equal(t, http.StatusOK, cleared.Code)
	assert.JSONEq(t, toJSON(t, service.CartDto{}), cleared.Body.String())
}

func Test_Handler_Checkout(t *testing.T) {
	checkout := &service.CheckoutDto{
		CheckoutID: uuid.MustParse("123e4567-e89b-12d3-a456-426614174000"),
		Message:    service.CheckoutMessage,
		Summary:    cart.OrderSummary{Subtotal: 799, Tax: 63.92, Total: 862.92},
	}
	testCases := []struct {
		name         string
		mockService  *mockCartService
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - checkout accepted",
			mockService:  &mockCartService{checkout: checkout},
			expectedCode: http.StatusAccepted,
			expectedBody: toJSON(t, checkout),
		},
		{
			name:         "Error - empty cart",
			mockService:  &mockCartService{error: storeerrors.ErrEmptyCart},
			expectedCode: http.StatusConflict,
			expectedBody: toJSON(t, ErrorResponse{Error: "Cart is empty"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			h := newRouter(&mockCatalogService{}, tc.mockService)
			// when
			rr := serve(h, http.MethodPost, "/api/v1/cart/checkout", "")
			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_Handler_HealthCheck(t *testing.T) {
	// given
	h := newRouter(&mockCatalogService{}, &mockCartService{})
	// when
	rr := serve(h, http.MethodGet, "/healthz", "")
	// then
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, strings.TrimSpace(rr.Body.String()))
	require.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}

func intPtr(v int) *int { return &v }
