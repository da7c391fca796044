package auth

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/product-detail/internal/domain/prefs"
)

// TokenKey is the preferences entry holding the bearer token.
const TokenKey = "token"

// TokenProvider returns the locally stored bearer token, if any.
type TokenProvider interface {
	Token(ctx context.Context) (string, bool)
}

var _ TokenProvider = (*StoreTokenProvider)(nil)

// StoreTokenProvider reads the token from a preferences store on every call.
type StoreTokenProvider struct {
	store prefs.Reader
	key   string
}

// NewTokenProvider returns a TokenProvider reading TokenKey from store.
func NewTokenProvider(store prefs.Reader) *StoreTokenProvider {
	return &StoreTokenProvider{store: store, key: TokenKey}
}

// Token returns the stored token. A missing entry, an empty value and a
// failed read all report the token as absent; read failures are logged.
func (p *StoreTokenProvider) Token(ctx context.Context) (string, bool) {
	v, err := p.store.Get(ctx, p.key)
	if err != nil {
		if !errors.Is(err, prefs.ErrNotFound) {
			zctx.From(ctx).Warn("Read token from preferences",
				zap.String("key", p.key),
				zap.Error(err),
			)
		}
		return "", false
	}
	if v == "" {
		return "", false
	}
	return v, true
}

// StaticToken is a TokenProvider returning a fixed value. An empty value is
// reported as absent.
type StaticToken string

// Token implements TokenProvider.
func (t StaticToken) Token(context.Context) (string, bool) {
	return string(t), t != ""
}
