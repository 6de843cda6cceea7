package streak

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/bandscore/internal/errors"
)

const (
	defaultMaxAttempts = 10

	fieldCount      = "count"
	fieldLastActive = "last_active"
)

type Config struct {
	Redis  redis.UniversalClient
	Prefix string

	// MaxAttempts bounds the optimistic-lock retries of Advance. Defaults to 10.
	MaxAttempts int
}

// RedisStore keeps one hash per user holding its State.
// Updates use WATCH/MULTI so concurrent submissions of one user never
// double-increment the streak.
type RedisStore struct {
	redis       redis.UniversalClient
	prefix      string
	maxAttempts int
}

func NewRedisStore(c Config) *RedisStore {
	s := &RedisStore{
		redis:       c.Redis,
		prefix:      c.Prefix,
		maxAttempts: c.MaxAttempts,
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = defaultMaxAttempts
	}

	return s
}

// Get returns the stored state of a user, or the zero State if there is none.
func (s *RedisStore) Get(ctx context.Context, userID string) (State, error) {
	return s.load(ctx, s.redis, userID)
}

// Advance records activity of a user on today and returns the new state.
func (s *RedisStore) Advance(ctx context.Context, userID string, today Day) (State, error) {
	key := s.key(userID)

	var next State
	txf := func(tx *redis.Tx) error {
		cur, err := s.load(ctx, tx, userID)
		if err != nil {
			return err
		}

		next = Advance(today, cur)
		if next == cur {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, fieldCount, next.Count, fieldLastActive, string(next.LastActive))
			return nil
		})
		return err
	}

	for i := 0; i < s.maxAttempts; i++ {
		err := s.redis.Watch(ctx, txf, key)
		if err == nil {
			return next, nil
		}
		if stderrors.Is(err, redis.TxFailedErr) {
			continue
		}

		return State{}, errors.Unavailable(err, "streak: advance user=%s", userID)
	}

	return State{}, errors.New(errors.CodeAborted,
		errors.WithMessagef("streak: too much contention on user=%s", userID))
}

type hashGetter interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

func (s *RedisStore) load(ctx context.Context, r hashGetter, userID string) (State, error) {
	m, err := r.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return State{}, errors.Unavailable(err, "streak: get user=%s", userID)
	}

	if len(m) == 0 {
		return State{}, nil
	}

	count, err := strconv.Atoi(m[fieldCount])
	if err != nil || count < 0 {
		// A broken record restarts the streak on the next activity.
		slog.WarnContext(ctx, "streak: corrupt state", "user", userID, "count", m[fieldCount])
		return State{}, nil
	}

	return State{Count: count, LastActive: Day(m[fieldLastActive])}, nil
}

func (s *RedisStore) key(userID string) string {
	return fmt.Sprintf("%s:streak:%s", s.prefix, userID)
}
