package auth

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"

	"github.com/xenking/product-detail/internal/storage/memory"
)

type failingReader struct{}

func (failingReader) Get(context.Context, string) (string, error) {
	return "", errors.New("disk on fire")
}

func TestStoreTokenProvider(t *testing.T) {
	tests := []struct {
		name      string
		values    map[string]string
		wantToken string
		wantOK    bool
	}{
		{
			name:      "stored token",
			values:    map[string]string{"token": "abc123"},
			wantToken: "abc123",
			wantOK:    true,
		},
		{
			name:   "never set",
			values: map[string]string{"theme": "dark"},
		},
		{
			name:   "empty value",
			values: map[string]string{"token": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewTokenProvider(memory.NewPrefsStore(tt.values))

			token, ok := p.Token(context.Background())
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func TestStoreTokenProvider_ReadFailure(t *testing.T) {
	p := NewTokenProvider(failingReader{})

	token, ok := p.Token(context.Background())
	assert.False(t, ok)
	assert.Empty(t, token)
}

func TestStoreTokenProvider_ReadsEveryCall(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPrefsStore(nil)
	p := NewTokenProvider(store)

	_, ok := p.Token(ctx)
	assert.False(t, ok)

	assert.NoError(t, store.Set(ctx, TokenKey, "fresh"))
	token, ok := p.Token(ctx)
	assert.True(t, ok)
	assert.Equal(t, "fresh", token)
}

func TestStaticToken(t *testing.T) {
	token, ok := StaticToken("t").Token(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "t", token)

	_, ok = StaticToken("").Token(context.Background())
	assert.False(t, ok)
}
