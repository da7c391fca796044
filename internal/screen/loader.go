// Package screen assembles the product detail screen: the selected product
// and the grid of other products, fetched concurrently.
package screen

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/product-detail/internal/domain/product"
)

// Fetcher loads products from the remote API.
type Fetcher interface {
	FetchProductDetails(ctx context.Context, id int64) (product.Product, error)
	FetchOtherProducts(ctx context.Context) ([]product.Product, error)
}

// Config holds presentation settings applied to every view.
type Config struct {
	// ImageBaseURL is prepended to relative image paths.
	ImageBaseURL string
	// Currency prefixes price labels, e.g. "Rs".
	Currency string
}

// Loader runs the two fetches behind a detail screen.
type Loader struct {
	fetcher Fetcher
	cfg     Config
}

// NewLoader returns a Loader using fetcher.
func NewLoader(fetcher Fetcher, cfg Config) *Loader {
	return &Loader{fetcher: fetcher, cfg: cfg}
}

// Load fetches the product and the other-products list concurrently. The
// fetches are independent: a failure of one neither cancels nor affects the
// other, and each outcome lands in its own slot of the returned view.
func (l *Loader) Load(ctx context.Context, productID int64) *DetailView {
	view := &DetailView{
		ProductID:    productID,
		imageBaseURL: l.cfg.ImageBaseURL,
		currency:     l.cfg.Currency,
	}

	// Plain group, not WithContext: one failed fetch must not cancel the other.
	var g errgroup.Group
	g.Go(func() error {
		p, err := l.fetcher.FetchProductDetails(ctx, productID)
		if err != nil {
			view.ProductErr = err
			return nil
		}
		view.Product = &p
		return nil
	})
	g.Go(func() error {
		products, err := l.fetcher.FetchOtherProducts(ctx)
		if err != nil {
			view.OtherProductsErr = err
			return nil
		}
		view.OtherProducts = products
		return nil
	})
	_ = g.Wait()

	lg := zctx.From(ctx)
	if view.ProductErr != nil {
		lg.Debug("Product fetch failed",
			zap.Int64("product_id", productID),
			zap.NamedError("cause", cause(view.ProductErr)),
		)
	}
	if view.OtherProductsErr != nil {
		lg.Debug("Other products fetch failed",
			zap.NamedError("cause", cause(view.OtherProductsErr)),
		)
	}

	return view
}

// cause returns the error behind a static fetch error, or err itself.
func cause(err error) error {
	if c := errors.Unwrap(err); c != nil {
		return c
	}
	return err
}
