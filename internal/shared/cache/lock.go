package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld indica que outro processo já detém o lock
var ErrLockHeld = errors.New("lock already held")

// só apaga a chave se o token ainda for o nosso
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// Locker implementa lock distribuído com SETNX + TTL
type Locker struct {
	rdb    *redis.Client
	unlock *redis.Script
}

func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb, unlock: redis.NewScript(unlockLua)}
}

// Acquire tenta obter o lock; a função retornada libera e pode ser chamada mais de uma vez
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	lk := "lock:" + key

	ok, err := l.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// contexto próprio: o do chamador pode já estar cancelado
		uctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.unlock.Run(uctx, l.rdb, []string{lk}, token).Err()
	}, nil
}
