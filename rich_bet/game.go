package rich_bet

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/LeaguesOfHoleHoleShoes/RichBet/log"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/metrics"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet/common/g-error"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet/model"
)

const configLockKey = "rich_bet:config"

func roundLockKey(id uint64) string {
	return "rich_bet:round:" + strconv.FormatUint(id, 10)
}

func NewGame(db Database, ledger Ledger, clock Clock, locker Locker) *Game {
	if clock == nil {
		clock = SystemClock{}
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Game{db: db, ledger: ledger, clock: clock, locker: locker}
}

// 押注游戏的所有操作。每个操作在对应的锁里完成 校验 -> 转账 -> 保存，
// 任何一步失败都不会留下部分修改
type Game struct {
	db     Database
	ledger Ledger
	clock  Clock
	locker Locker
}

// 管理员初始化全局配置，只能调用一次
func (g *Game) InitConfig(ctx context.Context, admin, feeRecipient string, feeRate uint16) (err error) {
	defer g.observe("init_config", &err)

	cfg := model.PoolConfig{Admin: admin, FeeRecipient: feeRecipient, FeeRate: feeRate}
	if !cfg.Valid() {
		return g_error.ErrInvalidConfig
	}

	unlock, err := g.locker.Lock(ctx, configLockKey)
	if err != nil {
		return err
	}
	defer unlock()

	if err = g.db.CreateConfig(ctx, cfg); err != nil {
		return err
	}
	log.L.Info("pool config initialized", zap.String("admin", admin), zap.String("fee recipient", feeRecipient), zap.Uint16("fee rate", feeRate))
	return nil
}

// 管理员修改收费账户和费率
func (g *Game) UpdateConfig(ctx context.Context, caller, feeRecipient string, feeRate uint16) (err error) {
	defer g.observe("update_config", &err)

	unlock, err := g.locker.Lock(ctx, configLockKey)
	if err != nil {
		return err
	}
	defer unlock()

	cfg, err := g.getConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Admin != caller {
		return g_error.ErrAccessDenied
	}
	cfg.FeeRecipient = feeRecipient
	cfg.FeeRate = feeRate
	if !cfg.Valid() {
		return g_error.ErrInvalidConfig
	}

	if err = g.db.SaveConfig(ctx, cfg); err != nil {
		return err
	}
	log.L.Info("pool config updated", zap.String("fee recipient", feeRecipient), zap.Uint16("fee rate", feeRate))
	return nil
}

// 管理员开一轮新的押注
func (g *Game) OpenRound(ctx context.Context, admin string, id uint64, startTime, endTime int64) (err error) {
	defer g.observe("open_round", &err)

	cfg, err := g.getConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Admin != admin {
		return g_error.ErrAccessDenied
	}
	if startTime > endTime || g.clock.Now() > endTime {
		return g_error.ErrInvalidWindow
	}

	unlock, err := g.locker.Lock(ctx, roundLockKey(id))
	if err != nil {
		return err
	}
	defer unlock()

	r := model.Round{ID: id, Admin: admin, StartTime: startTime, EndTime: endTime}
	if err = g.db.CreateRound(ctx, r); err != nil {
		return err
	}
	log.L.Debug("round opened", zap.Uint64("round", id), zap.Int64("start", startTime), zap.Int64("end", endTime))
	return nil
}

// 用户在一轮里开户，每人每轮只能开一次
func (g *Game) OpenPosition(ctx context.Context, roundID uint64, user string) (err error) {
	defer g.observe("open_position", &err)

	unlock, err := g.locker.Lock(ctx, roundLockKey(roundID))
	if err != nil {
		return err
	}
	defer unlock()

	r, err := g.db.GetRound(ctx, roundID)
	if err != nil {
		return err
	}
	if r.Closed {
		return g_error.ErrRoundAlreadyClosed
	}

	if err = g.db.CreatePosition(ctx, model.NewPosition(roundID, user)); err != nil {
		return err
	}
	log.L.Debug("position opened", zap.Uint64("round", roundID), zap.String("user", user))
	return nil
}

// 用户下注：钱转入escrow，同时累加本轮和用户的押注额
func (g *Game) PlaceStake(ctx context.Context, roundID uint64, user string, amount uint64, side model.Side) (err error) {
	defer g.observe("place_stake", &err)

	if !side.Valid() {
		return g_error.ErrInvalidSide
	}
	if amount == 0 {
		return g_error.ErrInvalidAmount
	}

	unlock, err := g.locker.Lock(ctx, roundLockKey(roundID))
	if err != nil {
		return err
	}
	defer unlock()

	r, err := g.db.GetRound(ctx, roundID)
	if err != nil {
		return err
	}
	if r.Closed {
		return g_error.ErrRoundAlreadyClosed
	}
	now := g.clock.Now()
	if now < r.StartTime {
		return g_error.ErrNotStarted
	}
	if now > r.EndTime {
		return g_error.ErrRoundEnded
	}
	p, err := g.db.GetPosition(ctx, roundID, user)
	if err != nil {
		return err
	}

	// 先把所有加法算完，溢出则什么都不改
	if r.TotalStake, err = checkedAdd(r.TotalStake, amount); err != nil {
		return err
	}
	if side == model.SideR {
		if r.TotalR, err = checkedAdd(r.TotalR, amount); err != nil {
			return err
		}
		if p.BetR, err = checkedAdd(p.BetR, amount); err != nil {
			return err
		}
	} else {
		if r.TotalL, err = checkedAdd(r.TotalL, amount); err != nil {
			return err
		}
		if p.BetL, err = checkedAdd(p.BetL, amount); err != nil {
			return err
		}
	}

	balance, err := g.ledger.Balance(ctx, user)
	if err != nil {
		return err
	}
	if balance < amount {
		return g_error.ErrInsufficientFunds
	}

	e := newEscrow(r.Escrow(), g.ledger)
	if err = e.deposit(ctx, user, amount); err != nil {
		return err
	}
	if err = g.db.SaveStake(ctx, r, p); err != nil {
		// 保存失败把钱退回去
		if rErr := e.authorize().release(ctx, user, amount); rErr != nil {
			log.L.Error("refund stake failed", zap.Uint64("round", roundID), zap.String("user", user), zap.Uint64("amount", amount), zap.Error(rErr), zap.Error(err))
		}
		return err
	}

	metrics.Stakes.WithLabelValues(side.String()).Inc()
	metrics.StakeAmount.WithLabelValues(side.String()).Add(float64(amount))
	log.L.Debug("user bet", zap.Uint64("round", roundID), zap.String("user", user), zap.Uint64("amount", amount), zap.Stringer("side", side))
	return nil
}

// 管理员结算：确定胜方，抽成转给收费账户，关闭本轮。treasury为空则不校验
func (g *Game) Settle(ctx context.Context, admin string, roundID uint64, treasury string) (r model.Round, err error) {
	defer g.observe("settle", &err)

	unlock, err := g.locker.Lock(ctx, roundLockKey(roundID))
	if err != nil {
		return r, err
	}
	defer unlock()

	cfg, err := g.getConfig(ctx)
	if err != nil {
		return r, err
	}
	if r, err = g.db.GetRound(ctx, roundID); err != nil {
		return r, err
	}
	if r.Admin != admin || cfg.Admin != admin {
		return r, g_error.ErrAccessDenied
	}
	if r.Closed {
		return r, g_error.ErrRoundAlreadyClosed
	}
	if treasury != "" && treasury != cfg.FeeRecipient {
		return r, g_error.ErrWrongTreasury
	}

	settled := r
	// 提前结算则把结束时间提前到现在
	if now := g.clock.Now(); now < settled.EndTime {
		settled.EndTime = now
	}
	settled.WinningSide, settled.ResultHash = SelectOutcome(settled.EndTime, settled.TotalStake)
	settled.FeeRate = cfg.FeeRate
	settled.Fee = CalcFee(settled.LosingTotal(), cfg.FeeRate)
	settled.Closed = true

	auth := newEscrow(r.Escrow(), g.ledger).authorize()
	if err = auth.release(ctx, cfg.FeeRecipient, settled.Fee); err != nil {
		return r, err
	}
	if err = g.db.SaveRound(ctx, settled); err != nil {
		auth.reclaim(ctx, cfg.FeeRecipient, settled.Fee)
		return r, err
	}

	metrics.SettledRounds.WithLabelValues(settled.WinningSide.String()).Inc()
	metrics.FeeAmount.Add(float64(settled.Fee))
	log.L.Info("round settled", zap.Uint64("round", roundID), zap.Stringer("winner", settled.WinningSide), zap.String("result hash", settled.ResultHash),
		zap.Uint64("total", settled.TotalStake), zap.Uint64("fee", settled.Fee), zap.Int64("end", settled.EndTime))
	return settled, nil
}

// 用户领取奖励，每人每轮只能领一次。没押中也可以调用，得0并标记为已领
func (g *Game) Claim(ctx context.Context, roundID uint64, user string) (payout uint64, err error) {
	defer g.observe("claim", &err)

	unlock, err := g.locker.Lock(ctx, roundLockKey(roundID))
	if err != nil {
		return 0, err
	}
	defer unlock()

	r, err := g.db.GetRound(ctx, roundID)
	if err != nil {
		return 0, err
	}
	if !r.Closed {
		return 0, g_error.ErrNotClosed
	}
	p, err := g.db.GetPosition(ctx, roundID, user)
	if err != nil {
		return 0, err
	}
	if p.Claimed {
		return 0, g_error.ErrAlreadyClaimed
	}

	if payout, err = CalcPayout(&r, &p); err != nil {
		return 0, err
	}
	if r.PaidOut, err = checkedAdd(r.PaidOut, payout); err != nil {
		return 0, err
	}
	p.Claimed = true
	p.Payout = payout

	auth := newEscrow(r.Escrow(), g.ledger).authorize()
	if err = auth.release(ctx, user, payout); err != nil {
		return 0, err
	}
	if err = g.db.SaveClaim(ctx, r, p); err != nil {
		auth.reclaim(ctx, user, payout)
		return 0, err
	}

	metrics.Claims.Inc()
	metrics.ClaimAmount.Add(float64(payout))
	log.L.Debug("user claimed", zap.Uint64("round", roundID), zap.String("user", user), zap.Uint64("payout", payout))
	return payout, nil
}

// 没有人押中胜方时，escrow里的钱永远没人能领，管理员可以把它转给收费账户
func (g *Game) Sweep(ctx context.Context, admin string, roundID uint64) (amount uint64, err error) {
	defer g.observe("sweep", &err)

	unlock, err := g.locker.Lock(ctx, roundLockKey(roundID))
	if err != nil {
		return 0, err
	}
	defer unlock()

	cfg, err := g.getConfig(ctx)
	if err != nil {
		return 0, err
	}
	if cfg.Admin != admin {
		return 0, g_error.ErrAccessDenied
	}
	r, err := g.db.GetRound(ctx, roundID)
	if err != nil {
		return 0, err
	}
	if !r.Closed {
		return 0, g_error.ErrNotClosed
	}
	if r.WinningTotal() != 0 {
		return 0, g_error.ErrInvalidAmount
	}

	e := newEscrow(r.Escrow(), g.ledger)
	if amount, err = e.balance(ctx); err != nil || amount == 0 {
		return 0, err
	}
	if r.Swept, err = checkedAdd(r.Swept, amount); err != nil {
		return 0, err
	}

	auth := e.authorize()
	if err = auth.release(ctx, cfg.FeeRecipient, amount); err != nil {
		return 0, err
	}
	if err = g.db.SaveRound(ctx, r); err != nil {
		auth.reclaim(ctx, cfg.FeeRecipient, amount)
		return 0, err
	}
	log.L.Info("round swept", zap.Uint64("round", roundID), zap.Uint64("amount", amount))
	return amount, nil
}

func (g *Game) GetConfig(ctx context.Context) (model.PoolConfig, error) {
	return g.getConfig(ctx)
}

func (g *Game) GetRound(ctx context.Context, id uint64) (model.Round, error) {
	return g.db.GetRound(ctx, id)
}

func (g *Game) GetPosition(ctx context.Context, roundID uint64, user string) (model.Position, error) {
	return g.db.GetPosition(ctx, roundID, user)
}

// 已结算轮次的分配明细
func (g *Game) RoundReport(ctx context.Context, roundID uint64) ([]model.Reward, error) {
	cfg, err := g.getConfig(ctx)
	if err != nil {
		return nil, err
	}
	r, err := g.db.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	ps, err := g.db.GetPositionsByRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	return Distribution(r, cfg.FeeRecipient, ps)
}

func (g *Game) getConfig(ctx context.Context) (model.PoolConfig, error) {
	cfg, err := g.db.GetConfig(ctx)
	if errors.Is(err, g_error.ErrNotFound) {
		return cfg, g_error.ErrNotInitialized
	}
	return cfg, err
}

func (g *Game) observe(op string, err *error) {
	if *err == nil {
		return
	}
	metrics.Rejected.WithLabelValues(op, RejectReason(*err)).Inc()
	log.L.Debug("operation rejected", zap.String("op", op), zap.Error(*err))
}

var rejectReasons = map[error]string{
	g_error.ErrAccessDenied:       "access_denied",
	g_error.ErrInvalidConfig:      "invalid_config",
	g_error.ErrInvalidWindow:      "invalid_window",
	g_error.ErrNotInitialized:     "not_initialized",
	g_error.ErrNotStarted:         "not_started",
	g_error.ErrRoundEnded:         "round_ended",
	g_error.ErrRoundAlreadyClosed: "round_already_closed",
	g_error.ErrNotClosed:          "not_closed",
	g_error.ErrInsufficientFunds:  "insufficient_funds",
	g_error.ErrInsufficientEscrow: "insufficient_escrow",
	g_error.ErrOverflow:           "overflow",
	g_error.ErrInvalidAmount:      "invalid_amount",
	g_error.ErrInvalidSide:        "invalid_side",
	g_error.ErrAlreadyExists:      "already_exists",
	g_error.ErrAlreadyClaimed:     "already_claimed",
	g_error.ErrNotFound:           "not_found",
	g_error.ErrWrongTreasury:      "wrong_treasury",
	g_error.ErrLockHeld:           "lock_held",
}

// 错误对应的简短原因，用于metrics标签和返回给客户端
func RejectReason(err error) string {
	for target, reason := range rejectReasons {
		if errors.Is(err, target) {
			return reason
		}
	}
	return "internal"
}
