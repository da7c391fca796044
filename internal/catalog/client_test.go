package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/product-detail/internal/domain/auth"
)

const widgetJSON = `{"id":1,"name":"Widget","price":9.99,"description":"A widget","imageUrl":"/img/1.png"}`

type recordedRequest struct {
	Method        string
	Path          string
	Authorization []string
}

// newAPI starts a fake product API answering every request with status and
// body, recording the last request it saw.
func newAPI(t *testing.T, status int, body string) (*httptest.Server, *atomic.Pointer[recordedRequest]) {
	t.Helper()
	var last atomic.Pointer[recordedRequest]
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last.Store(&recordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Values("Authorization"),
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func newTestClient(t *testing.T, baseURL string, tokens auth.TokenProvider) *Client {
	t.Helper()
	c, err := NewClient(baseURL, tokens, Options{HTTPClient: http.DefaultClient})
	require.NoError(t, err)
	return c
}

func TestFetchProductDetails(t *testing.T) {
	srv, last := newAPI(t, http.StatusOK, `{"data":`+widgetJSON+`}`)
	c := newTestClient(t, srv.URL, auth.StaticToken("secret"))

	p, err := c.FetchProductDetails(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "Widget", p.Name)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("9.99")))
	assert.Equal(t, "A widget", p.Description)
	assert.Equal(t, "/img/1.png", p.ImageURL)

	req := last.Load()
	require.NotNil(t, req)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/api/Products/get/1", req.Path)
	assert.Equal(t, []string{"Bearer secret"}, req.Authorization)
}

func TestFetchProductDetails_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found with valid body", http.StatusNotFound, `{"data":` + widgetJSON + `}`},
		{"not found with empty body", http.StatusNotFound, ``},
		{"unauthorized", http.StatusUnauthorized, `{"message":"unauthorized"}`},
		{"server error", http.StatusInternalServerError, `oops`},
		{"created is not ok", http.StatusCreated, `{"data":` + widgetJSON + `}`},
		{"malformed json", http.StatusOK, `{"data":`},
		{"missing data", http.StatusOK, `{"result":` + widgetJSON + `}`},
		{"data is null", http.StatusOK, `{"data":null}`},
		{"data is a list", http.StatusOK, `{"data":[` + widgetJSON + `]}`},
		{"missing field", http.StatusOK, `{"data":{"id":1,"name":"Widget"}}`},
		{"top level array", http.StatusOK, `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newAPI(t, tt.status, tt.body)
			c := newTestClient(t, srv.URL, auth.StaticToken("secret"))

			p, err := c.FetchProductDetails(context.Background(), 1)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrProductDetails)
			assert.NotErrorIs(t, err, ErrOtherProducts)
			assert.Equal(t, "Failed to load product details", err.Error())
			assert.Zero(t, p)
		})
	}
}

func TestFetchProductDetails_StatusCause(t *testing.T) {
	srv, _ := newAPI(t, http.StatusNotFound, `{"data":`+widgetJSON+`}`)
	c := newTestClient(t, srv.URL, nil)

	_, err := c.FetchProductDetails(context.Background(), 1)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestFetchProductDetails_MissingData(t *testing.T) {
	srv, _ := newAPI(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv.URL, nil)

	_, err := c.FetchProductDetails(context.Background(), 1)
	assert.ErrorIs(t, err, ErrMissingData)
}

func TestFetchOtherProducts(t *testing.T) {
	body := `{"meta":{"count":2},"data":[
		{"id":2,"name":"Gadget","price":20,"description":"g","imageUrl":"/img/2.png"},
		{"id":1,"name":"Widget","price":9.99,"description":"w","imageUrl":"/img/1.png"}
	]}`
	srv, last := newAPI(t, http.StatusOK, body)
	c := newTestClient(t, srv.URL+"/", auth.StaticToken("secret"))

	products, err := c.FetchOtherProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Gadget", products[0].Name)
	assert.Equal(t, "Widget", products[1].Name)

	req := last.Load()
	require.NotNil(t, req)
	assert.Equal(t, "/api/Products/get/all", req.Path)
	assert.Equal(t, []string{"Bearer secret"}, req.Authorization)
}

func TestFetchOtherProducts_Empty(t *testing.T) {
	srv, _ := newAPI(t, http.StatusOK, `{"data":[]}`)
	c := newTestClient(t, srv.URL, nil)

	products, err := c.FetchOtherProducts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestFetchOtherProducts_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"forbidden", http.StatusForbidden, `{"data":[]}`},
		{"data is object", http.StatusOK, `{"data":` + widgetJSON + `}`},
		{"one bad element", http.StatusOK, `{"data":[` + widgetJSON + `,{"id":"2"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newAPI(t, tt.status, tt.body)
			c := newTestClient(t, srv.URL, nil)

			products, err := c.FetchOtherProducts(context.Background())
			assert.ErrorIs(t, err, ErrOtherProducts)
			assert.Equal(t, "Failed to load other products", err.Error())
			assert.Nil(t, products)
		})
	}
}

func TestAbsentTokenOmitsHeader(t *testing.T) {
	srv, last := newAPI(t, http.StatusOK, `{"data":`+widgetJSON+`}`)
	c := newTestClient(t, srv.URL, auth.StaticToken(""))

	_, err := c.FetchProductDetails(context.Background(), 1)
	require.NoError(t, err)

	req := last.Load()
	require.NotNil(t, req, "request must still be issued")
	assert.Empty(t, req.Authorization)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url, nil)
	_, err := c.FetchProductDetails(context.Background(), 1)
	assert.ErrorIs(t, err, ErrProductDetails)
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c, err := NewClient(srv.URL, nil, Options{
		HTTPClient: http.DefaultClient,
		Timeout:    50 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = c.FetchOtherProducts(context.Background())
	assert.ErrorIs(t, err, ErrOtherProducts)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestContextCancel(t *testing.T) {
	srv, _ := newAPI(t, http.StatusOK, `{"data":[]}`)
	c := newTestClient(t, srv.URL, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchOtherProducts(ctx)
	assert.ErrorIs(t, err, ErrOtherProducts)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	for _, u := range []string{
		"",
		"ftp://shop.example",
		"http://",
		"://bad",
		"http://shop.example?x=1",
		"http://shop.example/api?",
		"http://shop.example#top",
	} {
		_, err := NewClient(u, nil, Options{})
		assert.Error(t, err, "base url %q", u)
	}
}

func TestNewClient_PathPrefix(t *testing.T) {
	srv, last := newAPI(t, http.StatusOK, `{"data":`+widgetJSON+`}`)

	c := newTestClient(t, srv.URL+"/shop/", nil)
	assert.Equal(t, srv.URL+"/shop", c.BaseURL())

	_, err := c.FetchProductDetails(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "/shop/api/Products/get/7", last.Load().Path)
}

func TestNewClient_DefaultHTTPClient(t *testing.T) {
	srv, _ := newAPI(t, http.StatusOK, `{"data":`+widgetJSON+`}`)

	c, err := NewClient(srv.URL, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, srv.URL, c.BaseURL())

	p, err := c.FetchProductDetails(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Widget", p.Name)
}
