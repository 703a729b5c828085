package lock

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"shopease/pkg/utils"
)

var (
	// ErrLockFailed another holder owns the key
	ErrLockFailed = errors.New("failed to acquire lock")
	// ErrLockNotHeld the key expired or belongs to someone else
	ErrLockNotHeld = errors.New("lock not held")
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// Mutex is a single-key redis lock owned through a random token
type Mutex struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// New returns an unlocked mutex on key; ttl bounds how long a crashed holder blocks others
func New(client *redis.Client, key string, ttl time.Duration) *Mutex {
	return &Mutex{
		client: client,
		key:    key,
		token:  utils.GenerateRandomString(16),
		ttl:    ttl,
	}
}

// Key the redis key guarded by m
func (m *Mutex) Key() string {
	return m.key
}

// Lock makes a single attempt
func (m *Mutex) Lock(ctx context.Context) error {
	ok, err := m.client.SetNX(ctx, m.key, m.token, m.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockFailed
	}
	return nil
}

// TryLock retries Lock up to attempts times, waiting delay in between
func (m *Mutex) TryLock(ctx context.Context, attempts int, delay time.Duration) error {
	for i := 0; i < attempts; i++ {
		err := m.Lock(ctx)
		if !errors.Is(err, ErrLockFailed) {
			return err
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return ErrLockFailed
}

// Unlock deletes the key only while it still carries m's token
func (m *Mutex) Unlock(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, m.client, []string{m.key}, m.token).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}
