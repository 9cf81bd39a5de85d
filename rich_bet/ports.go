package rich_bet

import (
	"context"
	"time"

	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet/model"
)

// 持久化。同一条记录的读-改-写需要由外部保证串行（见Locker）
type Database interface {
	GetConfig(ctx context.Context) (model.PoolConfig, error)
	// 已存在返回 g_error.ErrAlreadyExists
	CreateConfig(ctx context.Context, cfg model.PoolConfig) error
	SaveConfig(ctx context.Context, cfg model.PoolConfig) error

	CreateRound(ctx context.Context, r model.Round) error
	GetRound(ctx context.Context, id uint64) (model.Round, error)
	SaveRound(ctx context.Context, r model.Round) error
	ListOpenRounds(ctx context.Context) ([]model.Round, error)

	CreatePosition(ctx context.Context, p model.Position) error
	GetPosition(ctx context.Context, round uint64, user string) (model.Position, error)
	GetPositionsByRound(ctx context.Context, round uint64) ([]model.Position, error)

	// round和position要么都保存成功，要么都不变
	SaveStake(ctx context.Context, r model.Round, p model.Position) error
	SaveClaim(ctx context.Context, r model.Round, p model.Position) error
}

// 转账能力，Transfer要么全部成功要么完全不生效
type Ledger interface {
	Balance(ctx context.Context, account string) (uint64, error)
	Transfer(ctx context.Context, from, to string, amount uint64) error
}

// 返回unix秒
type Clock interface {
	Now() int64
}

type SystemClock struct{}

func (SystemClock) Now() int64 { return time.Now().Unix() }

// 按key加锁，返回的unlock可以重复调用
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
