// Package redis implements the session repository on Redis.
//
// Every key carries the same hash tag so the rotation script touches a single
// slot on clustered deployments.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/and161185/tunehub/internal/crypto"
	"github.com/and161185/tunehub/internal/errs"
	"github.com/and161185/tunehub/internal/model"
	"github.com/gofrs/uuid/v5"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces all keys written by SessionStore.
const DefaultPrefix = "{tunehub}:"

// Config configures the Redis connection.
type Config struct {
	Addrs      []string
	Username   string
	Password   string
	DB         int
	MasterName string
	Prefix     string
}

// NewClient builds a UniversalClient (single node, sentinel or cluster depending on cfg).
func NewClient(cfg Config) (goredis.UniversalClient, error) {
	addrs := make([]string, 0, len(cfg.Addrs))
	for _, a := range cfg.Addrs {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	if len(addrs) == 0 {
		return nil, errors.New("redis addr is required")
	}
	return goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:      addrs,
		Username:   cfg.Username,
		Password:   cfg.Password,
		DB:         cfg.DB,
		MasterName: cfg.MasterName,
	}), nil
}

// rotateScript deletes KEYS[1] and, only if it existed, writes KEYS[2] and
// moves the fingerprint inside the owner's index KEYS[3].
var rotateScript = goredis.NewScript(`
if redis.call('DEL', KEYS[1]) == 0 then
  return 0
end
redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[2])
redis.call('SREM', KEYS[3], ARGV[3])
redis.call('SADD', KEYS[3], ARGV[4])
return 1
`)

// SessionStore stores one key per session (value "userID|expiresAtMillis") with a
// TTL matching the token expiry, plus one set per user indexing its fingerprints.
type SessionStore struct {
	rdb    goredis.UniversalClient
	prefix string
	now    func() time.Time
}

// Option customizes SessionStore.
type Option func(*SessionStore)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(p string) Option { return func(s *SessionStore) { s.prefix = p } }

// WithClock overrides the time source used to compute TTLs.
func WithClock(now func() time.Time) Option { return func(s *SessionStore) { s.now = now } }

// NewSessionStore wraps an existing client.
func NewSessionStore(rdb goredis.UniversalClient, opts ...Option) *SessionStore {
	s := &SessionStore{rdb: rdb, prefix: DefaultPrefix, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *SessionStore) sessionKey(fp string) string { return s.prefix + "session:" + fp }

func (s *SessionStore) userKey(id uuid.UUID) string { return s.prefix + "user:" + id.String() }

func encode(rec model.SessionRecord) string {
	return rec.UserID.String() + "|" + strconv.FormatInt(rec.ExpiresAt.UnixMilli(), 10)
}

func decode(v string) (uuid.UUID, time.Time, error) {
	id, ms, ok := strings.Cut(v, "|")
	if !ok {
		return uuid.Nil, time.Time{}, fmt.Errorf("malformed session value %q", v)
	}
	uid, err := uuid.FromString(id)
	if err != nil {
		return uuid.Nil, time.Time{}, err
	}
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return uuid.Nil, time.Time{}, err
	}
	return uid, time.UnixMilli(n), nil
}

// Save writes the session key and indexes it under the owner. Already expired
// records are rejected with errs.ErrValidation.
func (s *SessionStore) Save(ctx context.Context, rec model.SessionRecord) error {
	ttl := rec.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("%w: session already expired at %s", errs.ErrValidation, rec.ExpiresAt.Format(time.RFC3339))
	}
	fp := crypto.Fingerprint(rec.RefreshToken)
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, s.sessionKey(fp), encode(rec), ttl)
		p.SAdd(ctx, s.userKey(rec.UserID), fp)
		return nil
	})
	return errs.Unavailable(err)
}

// Find loads the session for refreshToken.
func (s *SessionStore) Find(ctx context.Context, refreshToken string) (*model.SessionRecord, error) {
	v, err := s.rdb.Get(ctx, s.sessionKey(crypto.Fingerprint(refreshToken))).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, errs.ErrNotFound
		}
		return nil, errs.Unavailable(err)
	}
	uid, exp, err := decode(v)
	if err != nil {
		return nil, errs.Unavailable(err)
	}
	return &model.SessionRecord{UserID: uid, RefreshToken: refreshToken, ExpiresAt: exp}, nil
}

// Remove deletes the session key. The index entry is pruned by DeleteExpired.
func (s *SessionStore) Remove(ctx context.Context, refreshToken string) error {
	return errs.Unavailable(s.rdb.Del(ctx, s.sessionKey(crypto.Fingerprint(refreshToken))).Err())
}

// Rotate runs the rotation script. A zero result means the old session was gone.
func (s *SessionStore) Rotate(ctx context.Context, oldToken string, next model.SessionRecord) error {
	ttl := next.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		ttl = time.Millisecond
	}
	oldFP := crypto.Fingerprint(oldToken)
	newFP := crypto.Fingerprint(next.RefreshToken)
	keys := []string{s.sessionKey(oldFP), s.sessionKey(newFP), s.userKey(next.UserID)}
	n, err := rotateScript.Run(ctx, s.rdb, keys, encode(next), ttl.Milliseconds(), oldFP, newFP).Int()
	if err != nil {
		return errs.Unavailable(err)
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// RemoveAllForUser deletes every indexed session of userID together with the index.
func (s *SessionStore) RemoveAllForUser(ctx context.Context, userID uuid.UUID) error {
	idx := s.userKey(userID)
	fps, err := s.rdb.SMembers(ctx, idx).Result()
	if err != nil {
		return errs.Unavailable(err)
	}
	keys := make([]string, 0, len(fps)+1)
	for _, fp := range fps {
		keys = append(keys, s.sessionKey(fp))
	}
	keys = append(keys, idx)
	return errs.Unavailable(s.rdb.Del(ctx, keys...).Err())
}

// DeleteExpired prunes index entries whose session key has already expired.
// Session keys themselves expire through their TTL.
func (s *SessionStore) DeleteExpired(ctx context.Context, _ time.Time) (int64, error) {
	var pruned int64
	iter := s.rdb.Scan(ctx, 0, s.prefix+"user:*", 100).Iterator()
	for iter.Next(ctx) {
		idx := iter.Val()
		fps, err := s.rdb.SMembers(ctx, idx).Result()
		if err != nil {
			return pruned, errs.Unavailable(err)
		}
		for _, fp := range fps {
			n, err := s.rdb.Exists(ctx, s.sessionKey(fp)).Result()
			if err != nil {
				return pruned, errs.Unavailable(err)
			}
			if n == 0 {
				if err := s.rdb.SRem(ctx, idx, fp).Err(); err != nil {
					return pruned, errs.Unavailable(err)
				}
				pruned++
			}
		}
	}
	return pruned, errs.Unavailable(iter.Err())
}

// Ping checks connectivity.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
