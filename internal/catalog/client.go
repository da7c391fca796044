// Package catalog fetches products from the remote shop API.
//
// Both endpoints answer with the envelope {"data": ...}. Every call is a fresh
// round trip: nothing is cached, retried or de-duplicated.
package catalog

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/product-detail/internal/domain/auth"
	"github.com/xenking/product-detail/internal/domain/product"
)

const (
	productPathPrefix = "/api/Products/get/"
	allProductsPath   = "/api/Products/get/all"

	maxBodySize = 8 << 20
)

// Options configures a Client. The zero value is usable.
type Options struct {
	// HTTPClient overrides the instrumented default client.
	HTTPClient *http.Client
	// Timeout bounds each request including the body read. Zero means no
	// timeout beyond the caller's context.
	Timeout time.Duration

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Client performs authenticated GETs against the product API.
type Client struct {
	http    *http.Client
	baseURL string
	tokens  auth.TokenProvider
	timeout time.Duration
}

// NewClient returns a Client for the API rooted at baseURL, e.g.
// "http://shop.example". Requests carry the bearer token from tokens.
func NewClient(baseURL string, tokens auth.TokenProvider, opts Options) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, errors.Errorf("base url %q: missing host", baseURL)
	}
	if u.RawQuery != "" || u.Fragment != "" || u.ForceQuery {
		return nil, errors.Errorf("base url %q: query and fragment are not allowed", baseURL)
	}
	if tokens == nil {
		tokens = auth.StaticToken("")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		var otelOpts []otelhttp.Option
		if opts.TracerProvider != nil {
			otelOpts = append(otelOpts, otelhttp.WithTracerProvider(opts.TracerProvider))
		}
		if opts.MeterProvider != nil {
			otelOpts = append(otelOpts, otelhttp.WithMeterProvider(opts.MeterProvider))
		}
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport, otelOpts...),
		}
	}

	return &Client{
		http:    httpClient,
		baseURL: strings.TrimSuffix(u.String(), "/"),
		tokens:  tokens,
		timeout: opts.Timeout,
	}, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchProductDetails loads a single product. Any failure is reported as
// ErrProductDetails.
func (c *Client) FetchProductDetails(ctx context.Context, id int64) (product.Product, error) {
	var p product.Product
	err := c.get(ctx, productPathPrefix+strconv.FormatInt(id, 10), func(d *jx.Decoder) error {
		return p.Decode(d)
	})
	if err != nil {
		return product.Product{}, fetchFailed(ErrProductDetails, err)
	}
	return p, nil
}

// FetchOtherProducts loads the full product list in response order. Any
// failure is reported as ErrOtherProducts.
func (c *Client) FetchOtherProducts(ctx context.Context) ([]product.Product, error) {
	var products []product.Product
	err := c.get(ctx, allProductsPath, func(d *jx.Decoder) error {
		var err error
		products, err = product.DecodeList(d)
		return err
	})
	if err != nil {
		return nil, fetchFailed(ErrOtherProducts, err)
	}
	return products, nil
}

// get issues the request and passes the envelope's data value to decode.
func (c *Client) get(ctx context.Context, path string, decode func(d *jx.Decoder) error) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if token, ok := c.tokens.Token(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "send request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	return decodeEnvelope(body, decode)
}

// decodeEnvelope finds the "data" member of a top-level object and hands
// the decoder positioned at its value to decode.
func decodeEnvelope(body []byte, decode func(d *jx.Decoder) error) error {
	d := jx.DecodeBytes(body)
	if tt := d.Next(); tt != jx.Object {
		return errors.Errorf("envelope: expected object, got %s", tt)
	}

	found := false
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "data" {
			return d.Skip()
		}
		found = true
		return decode(d)
	}); err != nil {
		return errors.Wrap(err, "decode envelope")
	}
	if !found {
		return ErrMissingData
	}
	return nil
}
