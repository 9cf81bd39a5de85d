package rich_bet

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/LeaguesOfHoleHoleShoes/RichBet/log"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/metrics"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet/common/g-error"
)

type Schedule struct {
	// 每隔多少秒开一轮
	Interval int64
	// 每轮可以下注多少秒
	BetDuration int64
}

func (s Schedule) Enabled() bool {
	return s.Interval > 0 && s.BetDuration > 0
}

func NewKeeper(game *Game, admin string, schedule Schedule) *Keeper {
	return &Keeper{game: game, admin: admin, schedule: schedule}
}

// 按时间表自动开轮次，并结算到期的轮次
type Keeper struct {
	game     *Game
	admin    string
	schedule Schedule
}

func (k *Keeper) Tick(ctx context.Context) error {
	now := k.game.clock.Now()

	start := roundStartByTime(now, k.schedule.Interval)
	end := start + k.schedule.BetDuration
	if now <= end {
		err := k.game.OpenRound(ctx, k.admin, uint64(start), start, end)
		if err != nil && !errors.Is(err, g_error.ErrAlreadyExists) {
			return err
		}
	}

	rounds, err := k.game.db.ListOpenRounds(ctx)
	if err != nil {
		return err
	}
	open := len(rounds)
	for _, r := range rounds {
		if !shouldSettle(r.EndTime, now) {
			continue
		}
		if _, err := k.game.Settle(ctx, k.admin, r.ID, ""); err != nil {
			log.L.Error("keeper settle round failed", zap.Uint64("round", r.ID), zap.Error(err))
			continue
		}
		open--
	}
	metrics.OpenRounds.Set(float64(open))
	return nil
}

func (k *Keeper) Run(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		if err := k.Tick(ctx); err != nil {
			log.L.Error("keeper tick failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// 根据时间算该轮的开始时间，也就是round id
func roundStartByTime(now int64, interval int64) int64 {
	return now - now%interval
}

// end_time那一秒还可以下注，之后才结算
func shouldSettle(endTime int64, now int64) bool {
	return now > endTime
}
