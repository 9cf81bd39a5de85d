package rich_bet

import (
	"context"
	"sync"
)

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{}
}

// 单进程部署用的按key互斥锁
type LocalLocker struct {
	// key -> chan struct{}
	locks sync.Map
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	tmp, _ := l.locks.LoadOrStore(key, make(chan struct{}, 1))
	sem := tmp.(chan struct{})

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() { once.Do(func() { <-sem }) }, nil
}
