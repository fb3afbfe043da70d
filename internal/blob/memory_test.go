package blob

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPutRemove(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	err := m.Put(ctx, "bid/1/doc/a.pdf", strings.NewReader("data"), 4, "application/pdf")
	require.NoError(t, err)
	assert.True(t, m.Has("bid/1/doc/a.pdf"))
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.Remove(ctx, "bid/1/doc/a.pdf"))
	assert.False(t, m.Has("bid/1/doc/a.pdf"))

	// Removing an absent key is a no-op.
	require.NoError(t, m.Remove(ctx, "bid/1/doc/a.pdf"))
}

func TestMemorySignedURL(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "k", strings.NewReader("x"), 1, "text/plain"))

	url, err := m.SignedURL(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "k")

	_, err = m.SignedURL(ctx, "missing", time.Minute)
	assert.Error(t, err)
}

func TestMemoryFaultHooksFireOnce(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.PutErr = errors.New("disk full")
	err := m.Put(ctx, "k", strings.NewReader("x"), 1, "text/plain")
	require.Error(t, err)

	require.NoError(t, m.Put(ctx, "k", strings.NewReader("x"), 1, "text/plain"))

	m.RemoveErr = errors.New("transient")
	require.Error(t, m.Remove(ctx, "k"))
	require.NoError(t, m.Remove(ctx, "k"))
	assert.Zero(t, m.Len())
}
