package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/product-detail/internal/catalog"
	"github.com/xenking/product-detail/internal/domain/auth"
	"github.com/xenking/product-detail/internal/screen"
	"github.com/xenking/product-detail/pkg/health"
)

type screenResponse struct {
	ProductID int64 `json:"productId"`
	Product   *struct {
		ID         int64  `json:"id"`
		Name       string `json:"name"`
		PriceLabel string `json:"priceLabel"`
	} `json:"product"`
	ProductError  string `json:"productError"`
	OtherProducts []struct {
		ID int64 `json:"id"`
	} `json:"otherProducts"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// newTestServer runs the full middleware chain in front of a fake product API
// that knows a single product with id 1.
func newTestServer(t *testing.T, cfg *ServerConfig) *httptest.Server {
	t.Helper()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/Products/get/1":
			_, _ = w.Write([]byte(`{"data":{"id":1,"name":"Widget","price":12.5,"description":"w","imageUrl":"/img/1.png"}}`))
		case "/api/Products/get/all":
			_, _ = w.Write([]byte(`{"data":[{"id":1,"name":"Widget","price":12.5,"description":"w","imageUrl":"/img/1.png"},{"id":2,"name":"Gadget","price":3,"description":"g","imageUrl":"/img/2.png"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(api.Close)

	client, err := catalog.NewClient(api.URL, auth.StaticToken("secret"), catalog.Options{HTTPClient: api.Client()})
	require.NoError(t, err)

	healthSvc := health.New()
	healthSvc.SetReady(true)

	ctx, cancel := context.WithCancel(zctx.Base(context.Background(), zaptest.NewLogger(t)))
	t.Cleanup(cancel)

	loader := screen.NewLoader(client, screen.Config{ImageBaseURL: api.URL, Currency: "Rs"})
	srv := httptest.NewServer(newHTTPHandler(ctx, cfg, loader, healthSvc,
		tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider()))
	t.Cleanup(srv.Close)
	return srv
}

func testServerConfig() *ServerConfig {
	return &ServerConfig{
		RateLimit: RateLimitConfig{Max: 100, Window: time.Minute},
		CORS:      CORSConfig{Origins: []string{"*"}},
	}
}

func doGet(t *testing.T, srv *httptest.Server, path string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestServer_ProductScreen(t *testing.T) {
	srv := newTestServer(t, testServerConfig())

	resp := doGet(t, srv, "/api/screens/products/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var body screenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, int64(1), body.ProductID)
	require.NotNil(t, body.Product)
	assert.Equal(t, "Widget", body.Product.Name)
	assert.Equal(t, "Rs 12.5", body.Product.PriceLabel)
	assert.Len(t, body.OtherProducts, 2)
}

func TestServer_UnknownProduct(t *testing.T) {
	srv := newTestServer(t, testServerConfig())

	resp := doGet(t, srv, "/api/screens/products/99", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body screenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Nil(t, body.Product)
	assert.Equal(t, "Failed to load product details", body.ProductError)
	assert.Len(t, body.OtherProducts, 2, "other products load independently")
}

func TestServer_InvalidProductID(t *testing.T) {
	srv := newTestServer(t, testServerConfig())

	resp := doGet(t, srv, "/api/screens/products/abc", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusBadRequest, body.Code)
	assert.Equal(t, "invalid product id", body.Message)
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, testServerConfig())

	for _, path := range []string{"/livez", "/readyz"} {
		resp := doGet(t, srv, path, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestServer_RequestIDEchoed(t *testing.T) {
	srv := newTestServer(t, testServerConfig())

	resp := doGet(t, srv, "/livez", http.Header{"X-Request-Id": {"custom-request-id-12345"}})
	assert.Equal(t, "custom-request-id-12345", resp.Header.Get("X-Request-ID"))
}

func TestServer_CORSPreflight(t *testing.T) {
	srv := newTestServer(t, testServerConfig())

	req, err := http.NewRequestWithContext(context.Background(), http.MethodOptions, srv.URL+"/api/screens/products/1", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_RateLimit(t *testing.T) {
	cfg := testServerConfig()
	cfg.RateLimit.Max = 2
	srv := newTestServer(t, cfg)

	for range 2 {
		resp := doGet(t, srv, "/livez", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := doGet(t, srv, "/livez", nil)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusTooManyRequests, body.Code)
}
