// Package service contains application services for sessions and user libraries.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/tunehub/internal/errs"
	"github.com/and161185/tunehub/internal/limiter"
	"github.com/and161185/tunehub/internal/model"
	"github.com/and161185/tunehub/internal/repository"
	"github.com/and161185/tunehub/internal/token"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// AuthService defines account and session operations.
type AuthService interface {
	// Register creates an account and opens its first session.
	Register(ctx context.Context, email, username, password string) (model.Session, error)
	// Login verifies credentials and opens a session.
	Login(ctx context.Context, username, password string) (model.Session, error)
	// LoginWithIP applies rate-limiting by (username, ip) around Login.
	LoginWithIP(ctx context.Context, username, password, ip string) (model.Session, error)
	// Logout revokes the session of refreshToken. Unknown tokens are not an error.
	Logout(ctx context.Context, refreshToken string) error
	// Refresh exchanges a live refresh token for a new pair and revokes the old one.
	Refresh(ctx context.Context, refreshToken string) (model.Session, error)
	// DeleteAccount removes the account and all of its sessions.
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
}

// TokenIssuer mints and checks token pairs.
type TokenIssuer interface {
	Issue(id model.Identity) (model.Tokens, error)
	ValidateRefresh(raw string) (*token.Claims, error)
}

type AuthServiceImpl struct {
	users    repository.AccountRepository
	sessions repository.SessionRepository
	hasher   SecretHasher
	verifier *CredentialVerifier
	tokens   TokenIssuer
	lim      limiter.Limiter
	log      *zap.Logger
}

// NewAuthService constructs AuthService with required dependencies.
// A nil limiter disables rate limiting and a nil logger discards logs.
func NewAuthService(
	users repository.AccountRepository,
	sessions repository.SessionRepository,
	hasher SecretHasher,
	tokens TokenIssuer,
	lim limiter.Limiter,
	log *zap.Logger,
) *AuthServiceImpl {
	if lim == nil {
		lim = limiter.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthServiceImpl{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		verifier: NewCredentialVerifier(users, hasher),
		tokens:   tokens,
		lim:      lim,
		log:      log.Named("auth"),
	}
}

// Register checks email and username uniqueness, stores the argon2id hash and
// opens a session for the new account.
func (s *AuthServiceImpl) Register(ctx context.Context, email, username, password string) (model.Session, error) {
	if email == "" || username == "" || password == "" {
		return model.Session{}, fmt.Errorf("%w: empty email/username/password", errs.ErrValidation)
	}
	if err := ensureFree("email", func() (*model.User, error) { return s.users.GetByEmail(ctx, email) }); err != nil {
		return model.Session{}, err
	}
	if err := ensureFree("username", func() (*model.User, error) { return s.users.GetByUsername(ctx, username) }); err != nil {
		return model.Session{}, err
	}

	uid, err := uuid.NewV4()
	if err != nil {
		return model.Session{}, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return model.Session{}, errs.Unavailable(fmt.Errorf("hash password: %w", err))
	}
	u := &model.User{ID: uid, Email: email, Username: username, PwdHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return model.Session{}, err
		}
		return model.Session{}, errs.Unavailable(err)
	}
	s.log.Info("account created", zap.Stringer("user_id", uid))
	return s.openSession(ctx, u)
}

func ensureFree(field string, lookup func() (*model.User, error)) error {
	_, err := lookup()
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", errs.ErrAlreadyExists, field)
	case errors.Is(err, errs.ErrNotFound):
		return nil
	default:
		return errs.Unavailable(err)
	}
}

// Login verifies credentials, issues a pair and persists the refresh token.
// If persisting fails no tokens are returned.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (model.Session, error) {
	u, err := s.verifier.Verify(ctx, username, password)
	if err != nil {
		s.logRejected(username, err)
		return model.Session{}, s.publicLoginError(err)
	}
	return s.openSession(ctx, u)
}

// LoginWithIP authenticates with rate limiting by (username, ip).
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, username, password, ip string) (model.Session, error) {
	ipHash := limiter.HashIP(ip)

	allowed, retry, err := s.lim.Allow(ctx, username, ipHash)
	if err != nil {
		return model.Session{}, errs.Unavailable(err)
	}
	if !allowed {
		s.log.Info("login throttled", zap.String("username", username), zap.Duration("retry_after", retry))
		return model.Session{}, errs.ErrRateLimited
	}

	u, err := s.verifier.Verify(ctx, username, password)
	if err != nil {
		s.logRejected(username, err)
		if errors.Is(err, errs.ErrInvalidCredentials) {
			blocked, _, ferr := s.lim.Failure(ctx, username, ipHash)
			if ferr != nil {
				s.log.Warn("limiter failure not recorded", zap.String("username", username), zap.Error(ferr))
			} else if blocked {
				return model.Session{}, errs.ErrRateLimited
			}
		}
		return model.Session{}, s.publicLoginError(err)
	}

	if err := s.lim.Success(ctx, username, ipHash); err != nil {
		s.log.Warn("limiter reset failed", zap.Error(err))
	}
	return s.openSession(ctx, u)
}

// publicLoginError drops the account-not-found distinction before the error leaves the service.
func (s *AuthServiceImpl) publicLoginError(err error) error {
	if errors.Is(err, errs.ErrInvalidCredentials) {
		return errs.ErrInvalidCredentials
	}
	return err
}

func (s *AuthServiceImpl) logRejected(username string, err error) {
	reason := "bad_password"
	switch {
	case errors.Is(err, errs.ErrAccountNotFound):
		reason = "unknown_account"
	case errs.IsRetryable(err):
		s.log.Error("login failed", zap.String("username", username), zap.Error(err))
		return
	}
	s.log.Info("login rejected", zap.String("username", username), zap.String("reason", reason))
}

func (s *AuthServiceImpl) openSession(ctx context.Context, u *model.User) (model.Session, error) {
	id := u.Identity()
	pair, err := s.tokens.Issue(id)
	if err != nil {
		return model.Session{}, fmt.Errorf("issue tokens: %w", err)
	}
	rec := model.SessionRecord{UserID: u.ID, RefreshToken: pair.RefreshToken, ExpiresAt: pair.RefreshExp}
	if err := s.sessions.Save(ctx, rec); err != nil {
		return model.Session{}, errs.Unavailable(err)
	}
	return model.Session{Tokens: pair, User: id}, nil
}

// Logout removes the session of refreshToken. Empty and unknown tokens succeed.
func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.sessions.Remove(ctx, refreshToken); err != nil {
		return errs.Unavailable(err)
	}
	return nil
}

// Refresh validates refreshToken, requires a live session for it, re-reads the
// account and rotates the session to a freshly issued pair. The new pair is
// returned only after rotation succeeded.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (model.Session, error) {
	if refreshToken == "" {
		return model.Session{}, errs.ErrUnauthenticated
	}
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return model.Session{}, fmt.Errorf("%w: %w", errs.ErrUnauthenticated, err)
	}
	uid, err := claims.UserID()
	if err != nil {
		return model.Session{}, fmt.Errorf("%w: %w", errs.ErrUnauthenticated, err)
	}

	rec, err := s.sessions.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.Session{}, fmt.Errorf("%w: session revoked", errs.ErrUnauthenticated)
		}
		return model.Session{}, errs.Unavailable(err)
	}
	if rec.UserID != uid {
		s.log.Warn("refresh token owner mismatch", zap.Stringer("claim_user", uid), zap.Stringer("session_user", rec.UserID))
		return model.Session{}, errs.ErrUnauthenticated
	}

	u, err := s.users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.Session{}, fmt.Errorf("%w: account gone", errs.ErrUnauthenticated)
		}
		return model.Session{}, errs.Unavailable(err)
	}

	id := u.Identity()
	pair, err := s.tokens.Issue(id)
	if err != nil {
		return model.Session{}, fmt.Errorf("issue tokens: %w", err)
	}
	next := model.SessionRecord{UserID: u.ID, RefreshToken: pair.RefreshToken, ExpiresAt: pair.RefreshExp}
	if err := s.sessions.Rotate(ctx, refreshToken, next); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.Session{}, fmt.Errorf("%w: session already rotated", errs.ErrUnauthenticated)
		}
		return model.Session{}, errs.Unavailable(err)
	}
	return model.Session{Tokens: pair, User: id}, nil
}

// DeleteAccount revokes every session of userID and deletes the account.
func (s *AuthServiceImpl) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	if err := s.sessions.RemoveAllForUser(ctx, userID); err != nil {
		return errs.Unavailable(err)
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return err
		}
		return errs.Unavailable(err)
	}
	s.log.Info("account deleted", zap.Stringer("user_id", userID))
	return nil
}
