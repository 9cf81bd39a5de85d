package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/LeaguesOfHoleHoleShoes/RichBet/log"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet/common/g-error"
)

// 只有value等于自己的token时才删，防止释放了别人的锁
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

const retryInterval = 20 * time.Millisecond

func NewLocker(rdb *redis.Client, ttl time.Duration) *Locker {
	return &Locker{rdb: rdb, ttl: ttl, unlockSc: redis.NewScript(unlockLua)}
}

// 多进程部署时按round串行化操作。ttl要大于单个操作的最长耗时
type Locker struct {
	rdb      *redis.Client
	ttl      time.Duration
	unlockSc *redis.Script
}

// 尝试一次，被占用返回 g_error.ErrLockHeld
func (l *Locker) TryLock(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "acquire lock %s", key)
	}
	if !ok {
		return nil, g_error.ErrLockHeld
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// 调用方的ctx可能已经取消了
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.unlockSc.Run(unlockCtx, l.rdb, []string{key}, token).Err(); err != nil {
			log.L.Warn("release lock failed", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// 一直重试直到拿到锁或ctx结束
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()
	for {
		unlock, err := l.TryLock(ctx, key)
		if err != g_error.ErrLockHeld {
			return unlock, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
