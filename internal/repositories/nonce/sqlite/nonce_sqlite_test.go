package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*SQLiteRepo, string) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "nonces.db")
	repo, err := NewSQLiteRepo(dsn)
	require.NoError(t, err)
	t.Cleanup(repo.Disconnect)
	return repo, dsn
}

func TestIssue_GeneratesUnguessableNonces(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		nonce, err := repo.Issue(ctx, "shop-a.myshopify.com", time.Minute)
		require.NoError(t, err)
		// 16 random bytes, hex encoded
		assert.Len(t, nonce, 32)
		assert.False(t, seen[nonce], "nonce collision")
		seen[nonce] = true
	}
}

func TestConsume_ExactlyOnce(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	nonce, err := repo.Issue(ctx, "shop-a.myshopify.com", time.Minute)
	require.NoError(t, err)

	ok, err := repo.Consume(ctx, nonce, "shop-a.myshopify.com")
	require.NoError(t, err)
	assert.True(t, ok, "first consume with correct shop should succeed")

	ok, err = repo.Consume(ctx, nonce, "shop-a.myshopify.com")
	require.NoError(t, err)
	assert.False(t, ok, "second consume must fail even with correct arguments")
}

func TestConsume_BurnsNonceOnShopMismatch(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	nonce, err := repo.Issue(ctx, "shop-a.myshopify.com", time.Minute)
	require.NoError(t, err)

	ok, err := repo.Consume(ctx, nonce, "shop-b.myshopify.com")
	require.NoError(t, err)
	assert.False(t, ok, "mismatched shop must be rejected")

	// The failed attempt already deleted the nonce.
	ok, err = repo.Consume(ctx, nonce, "shop-a.myshopify.com")
	require.NoError(t, err)
	assert.False(t, ok, "a failed validation still consumes the nonce")
}

func TestConsume_RejectsExpiredNonce(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	nonce, err := repo.Issue(ctx, "shop-a.myshopify.com", time.Millisecond)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	ok, err := repo.Consume(ctx, nonce, "shop-a.myshopify.com")
	require.NoError(t, err)
	assert.False(t, ok, "expired nonce must fail even on first use")
}

func TestConsume_UnknownNonce(t *testing.T) {
	repo, _ := newTestRepo(t)

	ok, err := repo.Consume(context.Background(), "never-issued", "shop-a.myshopify.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNonces_SurviveRestart(t *testing.T) {
	repo, dsn := newTestRepo(t)
	ctx := context.Background()

	nonce, err := repo.Issue(ctx, "shop-a.myshopify.com", time.Minute)
	require.NoError(t, err)
	repo.Disconnect()

	reopened, err := NewSQLiteRepo(dsn)
	require.NoError(t, err)
	defer reopened.Disconnect()

	ok, err := reopened.Consume(ctx, nonce, "shop-a.myshopify.com")
	require.NoError(t, err)
	assert.True(t, ok, "nonce issued before restart must still consume")
}
