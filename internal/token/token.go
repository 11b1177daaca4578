// Package token issues and validates HS256 access/refresh JWT pairs.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/and161185/tunehub/internal/errs"
	"github.com/and161185/tunehub/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the typ claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 720 * time.Hour
)

// Claims is the payload of both token types. It never carries the password hash.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Type     string `json:"typ"`
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.FromString(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject: %v", errs.ErrTokenMalformed, err)
	}
	return id, nil
}

// Config holds signing keys and lifetimes.
type Config struct {
	AccessKey  []byte
	RefreshKey []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
}

// Issuer signs and verifies token pairs.
type Issuer struct {
	cfg Config
	now func() time.Time
}

// Option customizes an Issuer.
type Option func(*Issuer)

// WithClock overrides the time source used for iat/exp and validation.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer validates cfg and returns an Issuer. Zero TTLs take the defaults.
func NewIssuer(cfg Config, opts ...Option) (*Issuer, error) {
	if len(cfg.AccessKey) == 0 || len(cfg.RefreshKey) == 0 {
		return nil, errors.New("token: signing keys are required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	i := &Issuer{cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(i)
	}
	return i, nil
}

// RefreshTTL returns the configured refresh token lifetime.
func (i *Issuer) RefreshTTL() time.Duration { return i.cfg.RefreshTTL }

// Issue mints a fresh access/refresh pair for id.
func (i *Issuer) Issue(id model.Identity) (model.Tokens, error) {
	now := i.now()
	access, accessExp, err := i.sign(id, TypeAccess, i.cfg.AccessKey, now, i.cfg.AccessTTL)
	if err != nil {
		return model.Tokens{}, err
	}
	refresh, refreshExp, err := i.sign(id, TypeRefresh, i.cfg.RefreshKey, now, i.cfg.RefreshTTL)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

func (i *Issuer) sign(id model.Identity, typ string, key []byte, now time.Time, ttl time.Duration) (string, time.Time, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return "", time.Time{}, err
	}
	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID.String(),
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        jti.String(),
		},
		Email:    id.Email,
		Username: id.Username,
		Type:     typ,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, exp, nil
}

// ValidateAccess verifies signature, expiry and type of an access token.
func (i *Issuer) ValidateAccess(raw string) (*Claims, error) {
	return i.validate(raw, TypeAccess, i.cfg.AccessKey)
}

// ValidateRefresh verifies signature, expiry and type of a refresh token.
// It does not consult the session store.
func (i *Issuer) ValidateRefresh(raw string) (*Claims, error) {
	return i.validate(raw, TypeRefresh, i.cfg.RefreshKey)
}

func (i *Issuer) validate(raw, typ string, key []byte) (*Claims, error) {
	if raw == "" {
		return nil, errs.ErrTokenMalformed
	}
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	}
	if i.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.cfg.Issuer))
	}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return key, nil }, opts...)
	if err != nil {
		return nil, mapJWTError(err)
	}
	if claims.Type != typ {
		return nil, fmt.Errorf("%w: want %s token, got %q", errs.ErrTokenMalformed, typ, claims.Type)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", errs.ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", errs.ErrBadSignature, err)
	default:
		return fmt.Errorf("%w: %v", errs.ErrTokenMalformed, err)
	}
}
