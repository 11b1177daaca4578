package redis

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/and161185/tunehub/internal/errs"
	"github.com/and161185/tunehub/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	uid := uuid.Must(uuid.NewV4())
	exp := time.UnixMilli(1_700_000_000_123)

	v := encode(model.SessionRecord{UserID: uid, ExpiresAt: exp})
	gotID, gotExp, err := decode(v)
	require.NoError(t, err)
	require.Equal(t, uid, gotID)
	require.True(t, exp.Equal(gotExp))

	for _, bad := range []string{"", "nopipe", "not-a-uuid|1", uid.String() + "|x"} {
		_, _, err := decode(bad)
		require.Error(t, err, bad)
	}
}

func TestNewClient_RequiresAddr(t *testing.T) {
	_, err := NewClient(Config{Addrs: []string{" ", ""}})
	require.Error(t, err)
}

func TestSessionStore_SaveRejectsExpired(t *testing.T) {
	now := time.Now()
	s := NewSessionStore(nil, WithClock(func() time.Time { return now }))
	for _, exp := range []time.Time{now, now.Add(-time.Second)} {
		err := s.Save(context.Background(), model.SessionRecord{UserID: uuid.Must(uuid.NewV4()), RefreshToken: "t", ExpiresAt: exp})
		require.ErrorIs(t, err, errs.ErrValidation)
	}
}

// newIntegrationStore connects to TUNEHUB_TEST_REDIS_ADDR or skips.
func newIntegrationStore(t *testing.T) *SessionStore {
	t.Helper()
	addr := os.Getenv("TUNEHUB_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TUNEHUB_TEST_REDIS_ADDR not set")
	}
	rdb, err := NewClient(Config{Addrs: strings.Split(addr, ",")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	prefix := "{tunehub-test-" + uuid.Must(uuid.NewV4()).String() + "}:"
	s := NewSessionStore(rdb, WithPrefix(prefix))
	require.NoError(t, s.Ping(context.Background()))
	return s
}

func TestSessionStore_Integration(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	uid := uuid.Must(uuid.NewV4())
	exp := time.Now().Add(time.Hour)

	require.NoError(t, s.Save(ctx, model.SessionRecord{UserID: uid, RefreshToken: "old", ExpiresAt: exp}))
	rec, err := s.Find(ctx, "old")
	require.NoError(t, err)
	require.Equal(t, uid, rec.UserID)

	next := model.SessionRecord{UserID: uid, RefreshToken: "new", ExpiresAt: exp}
	require.NoError(t, s.Rotate(ctx, "old", next))
	require.ErrorIs(t, s.Rotate(ctx, "old", next), errs.ErrNotFound)

	_, err = s.Find(ctx, "old")
	require.ErrorIs(t, err, errs.ErrNotFound)
	_, err = s.Find(ctx, "new")
	require.NoError(t, err)

	require.NoError(t, s.Remove(ctx, "new"))
	require.NoError(t, s.Remove(ctx, "new"))
	n, err := s.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	require.NoError(t, s.Save(ctx, model.SessionRecord{UserID: uid, RefreshToken: "a", ExpiresAt: exp}))
	require.NoError(t, s.Save(ctx, model.SessionRecord{UserID: uid, RefreshToken: "b", ExpiresAt: exp}))
	require.NoError(t, s.RemoveAllForUser(ctx, uid))
	_, err = s.Find(ctx, "a")
	require.ErrorIs(t, err, errs.ErrNotFound)
}
