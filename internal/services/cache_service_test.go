package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ajramos/inboxpilot/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCacheService(t *testing.T) *CacheServiceImpl {
	t.Helper()
	store, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "cache.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewCacheService(db.NewCacheStore(store))
}

func TestCacheService_NilStore(t *testing.T) {
	svc := NewCacheService(nil)
	ctx := context.Background()

	_, _, err := svc.GetSummary(ctx, "me@x", "m1")
	assert.ErrorIs(t, err, ErrCacheUnavailable)
	assert.ErrorIs(t, svc.SaveReply(ctx, "me@x", "m1", "r"), ErrCacheUnavailable)
	assert.ErrorIs(t, svc.Invalidate(ctx, "me@x", "m1"), ErrCacheUnavailable)
}

func TestCacheService_Validation(t *testing.T) {
	svc := newTestCacheService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		account string
		id      string
	}{
		{"empty_account_email", "", "m1"},
		{"empty_message_id", "me@x", ""},
		{"whitespace_only_account_email", "   ", "m1"},
		{"whitespace_only_message_id", "me@x", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.GetReply(ctx, tt.account, tt.id)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.ErrorIs(t, svc.SaveSummary(ctx, tt.account, tt.id, "s"), ErrInvalidInput)
			assert.ErrorIs(t, svc.Invalidate(ctx, tt.account, tt.id), ErrInvalidInput)
		})
	}

	assert.ErrorIs(t, svc.SaveSummary(ctx, "me@x", "m1", "  "), ErrInvalidInput)
}

func TestCacheService_RoundTrip(t *testing.T) {
	svc := newTestCacheService(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveSummary(ctx, "me@x", "m1", "summary"))
	require.NoError(t, svc.SaveReply(ctx, "me@x", "m1", "reply"))

	got, ok, err := svc.GetSummary(ctx, "me@x", "m1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "summary", got)

	got, ok, err = svc.GetReply(ctx, "me@x", "m1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "reply", got)

	require.NoError(t, svc.Invalidate(ctx, "me@x", "m1"))
	_, ok, err = svc.GetSummary(ctx, "me@x", "m1")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = svc.GetReply(ctx, "me@x", "m1")
	require.NoError(t, err)
	assert.False(t, ok)
}
