package rich_bet

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LeaguesOfHoleHoleShoes/RichBet/ledger"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet/model"
)

const (
	testAdmin    = "admin"
	testTreasury = "treasury"
)

type fakeClock struct {
	now int64
}

func (c *fakeClock) Now() int64 { return atomic.LoadInt64(&c.now) }

func (c *fakeClock) set(now int64) { atomic.StoreInt64(&c.now, now) }

var errFakeDB = errors.New("fake db down")

// SaveStake/SaveClaim/SaveRound 按开关失败，用来测回滚
type failingDB struct {
	*GameDBByMemory
	failStake bool
	failClaim bool
	failRound bool
}

func (db *failingDB) SaveStake(ctx context.Context, r model.Round, p model.Position) error {
	if db.failStake {
		return errFakeDB
	}
	return db.GameDBByMemory.SaveStake(ctx, r, p)
}

func (db *failingDB) SaveClaim(ctx context.Context, r model.Round, p model.Position) error {
	if db.failClaim {
		return errFakeDB
	}
	return db.GameDBByMemory.SaveClaim(ctx, r, p)
}

func (db *failingDB) SaveRound(ctx context.Context, r model.Round) error {
	if db.failRound {
		return errFakeDB
	}
	return db.GameDBByMemory.SaveRound(ctx, r)
}

type testEnv struct {
	game   *Game
	db     *failingDB
	ledger *ledger.LedgerByMemory
	clock  *fakeClock
}

// 初始化好配置的游戏，users每人有10000
func newTestEnv(t *testing.T, feeRate uint16, users ...string) *testEnv {
	env := &testEnv{
		db:     &failingDB{GameDBByMemory: NewGameDBByMemory()},
		ledger: ledger.NewLedgerByMemory(),
		clock:  &fakeClock{},
	}
	env.game = NewGame(env.db, env.ledger, env.clock, NewLocalLocker())
	require.NoError(t, env.game.InitConfig(context.Background(), testAdmin, testTreasury, feeRate))
	for _, u := range users {
		require.NoError(t, env.ledger.Mint(u, 10000))
	}
	return env
}

func (env *testEnv) balance(account string) uint64 {
	b, _ := env.ledger.Balance(context.Background(), account)
	return b
}

// 开户并下注
func (env *testEnv) bet(t *testing.T, round uint64, user string, amount uint64, side model.Side) {
	ctx := context.Background()
	if _, err := env.game.GetPosition(ctx, round, user); err != nil {
		require.NoError(t, env.game.OpenPosition(ctx, round, user))
	}
	require.NoError(t, env.game.PlaceStake(ctx, round, user, amount, side))
}

// 从from开始找一个结束时间，使得该总额下开出的结果是side
func closeTimeFor(side model.Side, total uint64, from int64) int64 {
	for t := from; ; t++ {
		if s, _ := SelectOutcome(t, total); s == side {
			return t
		}
	}
}
