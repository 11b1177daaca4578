package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/and161185/tunehub/internal/errs"
	"github.com/and161185/tunehub/internal/model"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAuth_Login_IssuesAndPersists(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	u := f.seed(t)

	sess, err := f.auth.Login(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Tokens.AccessToken == "" || sess.Tokens.RefreshToken == "" {
		t.Fatalf("empty tokens: %+v", sess.Tokens)
	}
	if sess.User.ID != u.ID || sess.User.Username != "alice" || sess.User.Email != "alice@example.com" {
		t.Fatalf("identity mismatch: %+v", sess.User)
	}
	rec, err := f.sessions.SessionStore.Find(context.Background(), sess.Tokens.RefreshToken)
	if err != nil || rec.UserID != u.ID {
		t.Fatalf("refresh token not persisted: rec=%v err=%v", rec, err)
	}
	if !rec.ExpiresAt.Equal(sess.Tokens.RefreshExp) {
		t.Fatalf("expiry mismatch: %v vs %v", rec.ExpiresAt, sess.Tokens.RefreshExp)
	}
}

func TestAuth_Login_Rejections(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()

	_, err := f.auth.Login(ctx, "alice", "wrong")
	if !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("bad password: %v", err)
	}
	_, err = f.auth.Login(ctx, "mallory", "secret1")
	if !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("unknown user: %v", err)
	}
	if errors.Is(err, errs.ErrAccountNotFound) {
		t.Fatalf("unknown user must be indistinguishable from bad password")
	}
	if errs.IsRetryable(err) {
		t.Fatalf("auth rejection must not look retryable")
	}
	if f.sessions.Len() != 0 {
		t.Fatalf("no session expected after rejection")
	}
}

func TestAuth_Login_InfraErrorsAreUnavailable(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()

	f.users.getErr = errors.New("store timeout")
	_, err := f.auth.Login(ctx, "alice", "secret1")
	if !errors.Is(err, errs.ErrUnavailable) || errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("want unavailable, got %v", err)
	}
	f.users.getErr = nil

	f.sessions.saveErr = errors.New("store down")
	sess, err := f.auth.Login(ctx, "alice", "secret1")
	if !errors.Is(err, errs.ErrUnavailable) {
		t.Fatalf("want unavailable on save failure, got %v", err)
	}
	if sess.Tokens.RefreshToken != "" {
		t.Fatalf("tokens must not leak when persistence failed")
	}

	f.sessions.saveErr = nil
	f.auth.hasher = plainHasher{err: errors.New("hasher broken")}
	f.auth.verifier = NewCredentialVerifier(f.users, f.auth.hasher)
	if _, err := f.auth.Login(ctx, "alice", "secret1"); !errors.Is(err, errs.ErrUnavailable) {
		t.Fatalf("hasher failure must be unavailable, got %v", err)
	}
}

func TestAuth_Logout_Idempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()

	sess, err := f.auth.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := f.auth.Logout(ctx, sess.Tokens.RefreshToken); err != nil {
		t.Fatalf("first logout: %v", err)
	}
	if err := f.auth.Logout(ctx, sess.Tokens.RefreshToken); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	if err := f.auth.Logout(ctx, ""); err != nil {
		t.Fatalf("empty logout: %v", err)
	}
	if err := f.auth.Logout(ctx, "never-issued"); err != nil {
		t.Fatalf("unknown logout: %v", err)
	}

	// The token is still a valid JWT but has no session any more.
	if _, err := f.auth.Refresh(ctx, sess.Tokens.RefreshToken); !errors.Is(err, errs.ErrUnauthenticated) {
		t.Fatalf("refresh after logout: %v", err)
	}

	f.sessions.removeErr = errors.New("store down")
	if err := f.auth.Logout(ctx, "x"); !errors.Is(err, errs.ErrUnavailable) {
		t.Fatalf("want unavailable, got %v", err)
	}
}

func TestAuth_Refresh_EmptyTouchesNothing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.auth.Refresh(context.Background(), "")
	if !errors.Is(err, errs.ErrUnauthenticated) {
		t.Fatalf("want unauthenticated, got %v", err)
	}
	if n := f.sessions.calls.Load(); n != 0 {
		t.Fatalf("store must not be touched, calls=%d", n)
	}
}

func TestAuth_Refresh_Rotates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()

	first, err := f.auth.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	second, err := f.auth.Refresh(ctx, first.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if second.Tokens.RefreshToken == first.Tokens.RefreshToken {
		t.Fatalf("refresh token must rotate")
	}
	if second.User.Username != "alice" {
		t.Fatalf("identity: %+v", second.User)
	}

	if _, err := f.auth.Refresh(ctx, first.Tokens.RefreshToken); !errors.Is(err, errs.ErrUnauthenticated) {
		t.Fatalf("reusing rotated token: %v", err)
	}
	if _, err := f.auth.Refresh(ctx, second.Tokens.RefreshToken); err != nil {
		t.Fatalf("new token must work: %v", err)
	}
	if f.sessions.Len() != 1 {
		t.Fatalf("want exactly one live session, got %d", f.sessions.Len())
	}
}

func TestAuth_Refresh_ReflectsCurrentAccount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	u := f.seed(t)
	ctx := context.Background()

	sess, _ := f.auth.Login(ctx, "alice", "secret1")
	if _, _, err := f.users.ToggleSet(ctx, u.ID, model.LikedSongs, "song42"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if len(sess.User.LikedSongs) != 0 {
		t.Fatalf("issued identity is a snapshot")
	}
	next, err := f.auth.Refresh(ctx, sess.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(next.User.LikedSongs) != 1 || next.User.LikedSongs[0] != "song42" {
		t.Fatalf("refresh must re-read the account: %+v", next.User)
	}
}

func TestAuth_Refresh_TokenErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()

	sess, _ := f.auth.Login(ctx, "alice", "secret1")

	// An access token is not a refresh token.
	if _, err := f.auth.Refresh(ctx, sess.Tokens.AccessToken); !errors.Is(err, errs.ErrUnauthenticated) {
		t.Fatalf("access as refresh: %v", err)
	}
	if _, err := f.auth.Refresh(ctx, "garbage"); !errors.Is(err, errs.ErrUnauthenticated) {
		t.Fatalf("garbage: %v", err)
	}

	f.clock.t = f.clock.t.Add(2 * time.Hour)
	_, err := f.auth.Refresh(ctx, sess.Tokens.RefreshToken)
	if !errors.Is(err, errs.ErrUnauthenticated) || !errors.Is(err, errs.ErrTokenExpired) {
		t.Fatalf("expired: %v", err)
	}
}

func TestAuth_Refresh_InfraErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()
	sess, _ := f.auth.Login(ctx, "alice", "secret1")

	f.sessions.findErr = errors.New("timeout")
	_, err := f.auth.Refresh(ctx, sess.Tokens.RefreshToken)
	if !errors.Is(err, errs.ErrUnavailable) || errors.Is(err, errs.ErrUnauthenticated) {
		t.Fatalf("find failure: %v", err)
	}
	f.sessions.findErr = nil

	f.sessions.rotateErr = errors.New("timeout")
	if _, err := f.auth.Refresh(ctx, sess.Tokens.RefreshToken); !errors.Is(err, errs.ErrUnavailable) {
		t.Fatalf("rotate failure: %v", err)
	}
	f.sessions.rotateErr = nil

	// Failed rotation left the old session usable.
	if _, err := f.auth.Refresh(ctx, sess.Tokens.RefreshToken); err != nil {
		t.Fatalf("refresh after failed rotation: %v", err)
	}
}

func TestAuth_Refresh_ConcurrentSingleWinner(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()
	sess, _ := f.auth.Login(ctx, "alice", "secret1")

	var ok, unauth atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.auth.Refresh(ctx, sess.Tokens.RefreshToken)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, errs.ErrUnauthenticated):
				unauth.Add(1)
			}
		}()
	}
	wg.Wait()
	if ok.Load() != 1 || unauth.Load() != 15 {
		t.Fatalf("want 1 success and 15 rejections, got %d/%d", ok.Load(), unauth.Load())
	}
}

func TestAuth_Register(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, "", "bob", "pw1234"); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("validation: %v", err)
	}

	sess, err := f.auth.Register(ctx, "bob@example.com", "bob", "pw1234")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if sess.User.Username != "bob" || sess.User.ID == uuid.Nil {
		t.Fatalf("identity: %+v", sess.User)
	}
	stored, _ := f.users.AccountStore.GetByUsername(ctx, "bob")
	if stored.PwdHash != "plain:pw1234" {
		t.Fatalf("password must be stored hashed, got %q", stored.PwdHash)
	}
	if _, err := f.auth.Login(ctx, "bob", "pw1234"); err != nil {
		t.Fatalf("login after register: %v", err)
	}

	if _, err := f.auth.Register(ctx, "bob@example.com", "bobby", "pw1234"); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("duplicate email: %v", err)
	}
	if _, err := f.auth.Register(ctx, "other@example.com", "bob", "pw1234"); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("duplicate username: %v", err)
	}

	f.users.createErr = errors.New("boom")
	if _, err := f.auth.Register(ctx, "carol@example.com", "carol", "pw1234"); !errors.Is(err, errs.ErrUnavailable) {
		t.Fatalf("create failure: %v", err)
	}
}

func TestAuth_LoginWithIP_RateLimiter(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()

	lim := &fakeLimiter{allowOK: false}
	f.auth.lim = lim
	if _, err := f.auth.LoginWithIP(ctx, "alice", "secret1", "1.2.3.4"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("blocked: %v", err)
	}

	lim.allowOK = true
	lim.failBlocked = true
	if _, err := f.auth.LoginWithIP(ctx, "alice", "bad", "1.2.3.4"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("threshold reached: %v", err)
	}

	lim.failBlocked = false
	if _, err := f.auth.LoginWithIP(ctx, "alice", "bad", "1.2.3.4"); !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("bad password: %v", err)
	}
	if _, err := f.auth.LoginWithIP(ctx, "alice", "secret1", "1.2.3.4"); err != nil {
		t.Fatalf("good login: %v", err)
	}
	if lim.successCalls != 1 || lim.failureCalls != 2 {
		t.Fatalf("limiter calls: success=%d failure=%d", lim.successCalls, lim.failureCalls)
	}

	lim.allowErr = errors.New("db down")
	if _, err := f.auth.LoginWithIP(ctx, "alice", "secret1", "1.2.3.4"); !errors.Is(err, errs.ErrUnavailable) {
		t.Fatalf("limiter failure: %v", err)
	}
}

func TestAuth_DeleteAccount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	u := f.seed(t)
	ctx := context.Background()

	a, _ := f.auth.Login(ctx, "alice", "secret1")
	b, _ := f.auth.Login(ctx, "alice", "secret1")
	if f.sessions.Len() != 2 {
		t.Fatalf("multiple sessions per user are allowed")
	}

	if err := f.auth.DeleteAccount(ctx, u.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	for _, rt := range []string{a.Tokens.RefreshToken, b.Tokens.RefreshToken} {
		if _, err := f.auth.Refresh(ctx, rt); !errors.Is(err, errs.ErrUnauthenticated) {
			t.Fatalf("refresh after delete: %v", err)
		}
	}
	if err := f.auth.DeleteAccount(ctx, u.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
	if err := f.auth.DeleteAccount(ctx, uuid.Nil); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("nil id: %v", err)
	}
}

func TestAuth_Refresh_DeletedAccount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	u := f.seed(t)
	ctx := context.Background()
	sess, _ := f.auth.Login(ctx, "alice", "secret1")

	// Account removed behind the session store's back.
	if err := f.users.AccountStore.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.auth.Refresh(ctx, sess.Tokens.RefreshToken); !errors.Is(err, errs.ErrUnauthenticated) {
		t.Fatalf("want unauthenticated, got %v", err)
	}
}

func TestAuth_Refresh_NeverSaved(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	u := f.seed(t)

	pair, err := f.tokens.Issue(u.Identity())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := f.auth.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, errs.ErrUnauthenticated) {
		t.Fatalf("unsaved refresh token: want unauthenticated, got %v", err)
	}
	if n := f.sessions.rotateCalls.Load(); n != 0 {
		t.Fatalf("rotate must not run, calls=%d", n)
	}
	if f.sessions.Len() != 0 {
		t.Fatalf("no session may be created, got %d", f.sessions.Len())
	}
}

func TestAuth_LoginWithIP_LimiterFailureIsLogged(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed(t)
	core, logs := observer.New(zapcore.WarnLevel)
	lim := &fakeLimiter{allowOK: true, failErr: errors.New("db down")}
	auth := NewAuthService(f.users, f.sessions, plainHasher{}, f.tokens, lim, zap.New(core))

	if _, err := auth.LoginWithIP(context.Background(), "alice", "bad", "1.2.3.4"); !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("bad password: %v", err)
	}
	if lim.failureCalls != 1 {
		t.Fatalf("failure calls=%d", lim.failureCalls)
	}
	entries := logs.FilterMessage("limiter failure not recorded").All()
	if len(entries) != 1 {
		t.Fatalf("want one warning, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["username"]; got != "alice" {
		t.Fatalf("username field: %v", got)
	}
}
