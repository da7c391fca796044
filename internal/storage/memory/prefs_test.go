package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/product-detail/internal/domain/prefs"
)

func TestPrefsStore(t *testing.T) {
	ctx := context.Background()
	initial := map[string]string{"token": "abc"}
	s := NewPrefsStore(initial)

	// The store owns a copy.
	initial["token"] = "changed"

	v, err := s.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	require.NoError(t, s.Set(ctx, "token", "def"))
	v, err = s.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "def", v)

	require.NoError(t, s.Delete(ctx, "token"))
	_, err = s.Get(ctx, "token")
	assert.ErrorIs(t, err, prefs.ErrNotFound)
}
