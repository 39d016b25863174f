package redistoken

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmt2001/StreamActions/helix"
	"github.com/gmt2001/StreamActions/internal/crypto"
)

func newTestStore(t *testing.T) (*Store, *clockwork.FakeClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	fc := clockwork.NewFakeClockAt(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	return NewStore(rdb, fc, nil), fc
}

func TestStore_SaveAndLoadRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	tok := helix.Token{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Date(2026, 8, 1, 16, 0, 0, 0, time.UTC),
		Scopes:       []string{"bits:read"},
	}
	require.NoError(t, store.Save(ctx, "12345", tok))

	got, err := store.Load(ctx, "12345")
	require.NoError(t, err)
	assert.Equal(t, "access-1", got.AccessToken)
	assert.Equal(t, "refresh-1", got.RefreshToken)
	assert.True(t, got.ExpiresAt.Equal(tok.ExpiresAt))
	assert.Equal(t, []string{"bits:read"}, got.Scopes)
}

func TestStore_LoadMissingReturnsErrNotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Load(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "12345", helix.Token{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, store.Delete(ctx, "12345"))

	_, err := store.Load(ctx, "12345")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, store.Delete(ctx, "12345"))
}

func TestStore_SaveOverwritesPreviousToken(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "12345", helix.Token{AccessToken: "old", RefreshToken: "r1"}))
	require.NoError(t, store.Save(ctx, "12345", helix.Token{AccessToken: "new", RefreshToken: "r2"}))

	got, err := store.Load(ctx, "12345")
	require.NoError(t, err)
	assert.Equal(t, "new", got.AccessToken)
	assert.Equal(t, "r2", got.RefreshToken)
}

func TestStore_EncryptedRecordsAreOpaqueAtRest(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cipher, err := crypto.NewAESGCM("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	fc := clockwork.NewFakeClockAt(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	store := NewStore(rdb, fc, nil, WithCipher(cipher))
	ctx := context.Background()

	tok := helix.Token{AccessToken: "super-secret", RefreshToken: "refresh-secret"}
	require.NoError(t, store.Save(ctx, "12345", tok))

	raw, err := mr.Get("helix:token:12345")
	require.NoError(t, err)
	assert.NotContains(t, raw, "super-secret")
	assert.NotContains(t, raw, "refresh-secret")

	got, err := store.Load(ctx, "12345")
	require.NoError(t, err)
	assert.Equal(t, "super-secret", got.AccessToken)
	assert.Equal(t, "refresh-secret", got.RefreshToken)
}

func TestStore_RefreshCallbackPersistsSessionToken(t *testing.T) {
	store, _ := newTestStore(t)

	c, err := helix.New(helix.Options{ClientID: "test_client"})
	require.NoError(t, err)
	sess := c.NewSession("12345", helix.Token{
		AccessToken:  "rotated",
		RefreshToken: "rotated-refresh",
	}, []string{})

	store.RefreshCallback()(sess)

	got, err := store.Load(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, "rotated", got.AccessToken)
	assert.Equal(t, "rotated-refresh", got.RefreshToken)
}
