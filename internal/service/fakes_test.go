package service

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/and161185/tunehub/internal/limiter"
	"github.com/and161185/tunehub/internal/model"
	"github.com/and161185/tunehub/internal/repository"
	"github.com/and161185/tunehub/internal/repository/memory"
	"github.com/and161185/tunehub/internal/token"
	"github.com/gofrs/uuid/v5"
)

// fakeUsers wraps the in-memory store with error injection.
type fakeUsers struct {
	*memory.AccountStore
	getErr    error
	createErr error
	setErr    error
}

var _ repository.AccountRepository = (*fakeUsers)(nil)

func newFakeUsers() *fakeUsers { return &fakeUsers{AccountStore: memory.NewAccountStore()} }

func (f *fakeUsers) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.AccountStore.GetByUsername(ctx, username)
}

func (f *fakeUsers) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.AccountStore.GetByID(ctx, id)
}

func (f *fakeUsers) Create(ctx context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.AccountStore.Create(ctx, u)
}

func (f *fakeUsers) ToggleSet(ctx context.Context, id uuid.UUID, r model.Relation, v string) (*model.User, model.SetOp, error) {
	if f.setErr != nil {
		return nil, 0, f.setErr
	}
	return f.AccountStore.ToggleSet(ctx, id, r, v)
}

// fakeSessions wraps the in-memory session store, counting calls and injecting errors.
type fakeSessions struct {
	*memory.SessionStore
	calls       atomic.Int32
	rotateCalls atomic.Int32

	saveErr   error
	findErr   error
	removeErr error
	rotateErr error
}

var _ repository.SessionRepository = (*fakeSessions)(nil)

func newFakeSessions() *fakeSessions { return &fakeSessions{SessionStore: memory.NewSessionStore()} }

func (f *fakeSessions) Save(ctx context.Context, rec model.SessionRecord) error {
	f.calls.Add(1)
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.SessionStore.Save(ctx, rec)
}

func (f *fakeSessions) Find(ctx context.Context, rt string) (*model.SessionRecord, error) {
	f.calls.Add(1)
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.SessionStore.Find(ctx, rt)
}

func (f *fakeSessions) Remove(ctx context.Context, rt string) error {
	f.calls.Add(1)
	if f.removeErr != nil {
		return f.removeErr
	}
	return f.SessionStore.Remove(ctx, rt)
}

func (f *fakeSessions) Rotate(ctx context.Context, old string, next model.SessionRecord) error {
	f.calls.Add(1)
	f.rotateCalls.Add(1)
	if f.rotateErr != nil {
		return f.rotateErr
	}
	return f.SessionStore.Rotate(ctx, old, next)
}

// plainHasher avoids argon2 cost in service tests.
type plainHasher struct{ err error }

func (h plainHasher) Hash(p string) (string, error) { return "plain:" + p, h.err }

func (h plainHasher) Verify(p, d string) (bool, error) {
	if h.err != nil {
		return false, h.err
	}
	return strings.TrimPrefix(d, "plain:") == p, nil
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, time.Minute, l.allowErr
}

func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return nil
}

func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, time.Minute, l.failErr
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

type fixture struct {
	users    *fakeUsers
	sessions *fakeSessions
	clock    *clock
	tokens   *token.Issuer
	auth     *AuthServiceImpl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := &clock{t: time.Now()}
	iss, err := token.NewIssuer(token.Config{
		AccessKey:  []byte("access"),
		RefreshKey: []byte("refresh"),
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}, token.WithClock(c.now))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	f := &fixture{users: newFakeUsers(), sessions: newFakeSessions(), clock: c, tokens: iss}
	f.auth = NewAuthService(f.users, f.sessions, plainHasher{}, iss, nil, nil)
	return f
}

// seed creates alice/secret1.
func (f *fixture) seed(t *testing.T) *model.User {
	t.Helper()
	u := &model.User{
		ID:       uuid.Must(uuid.NewV4()),
		Email:    "alice@example.com",
		Username: "alice",
		PwdHash:  "plain:secret1",
	}
	if err := f.users.AccountStore.Create(context.Background(), u); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return u
}
