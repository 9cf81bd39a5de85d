package rich_bet

import (
	"context"

	"go.uber.org/zap"

	"github.com/LeaguesOfHoleHoleShoes/RichBet/log"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet/common/g-error"
)

func newEscrow(account string, ledger Ledger) *escrow {
	return &escrow{account: account, ledger: ledger}
}

// 托管一轮所有押注的账户。钱只能通过escrowAuthority转出
type escrow struct {
	account string
	ledger  Ledger
}

func (e *escrow) deposit(ctx context.Context, from string, amount uint64) error {
	return e.ledger.Transfer(ctx, from, e.account, amount)
}

func (e *escrow) balance(ctx context.Context) (uint64, error) {
	return e.ledger.Balance(ctx, e.account)
}

// 只有在结算、claim等操作的校验都通过后才能拿到
func (e *escrow) authorize() *escrowAuthority {
	return &escrowAuthority{e: e}
}

type escrowAuthority struct {
	e *escrow
}

func (a *escrowAuthority) release(ctx context.Context, to string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	b, err := a.e.balance(ctx)
	if err != nil {
		return err
	}
	if b < amount {
		log.L.Error("escrow balance not enough, accounting is broken", zap.String("escrow", a.e.account), zap.Uint64("balance", b), zap.Uint64("need", amount))
		return g_error.ErrInsufficientEscrow
	}
	return a.e.ledger.Transfer(ctx, a.e.account, to, amount)
}

// 转出后持久化失败时把钱转回escrow
func (a *escrowAuthority) reclaim(ctx context.Context, from string, amount uint64) {
	if amount == 0 {
		return
	}
	if err := a.e.ledger.Transfer(ctx, from, a.e.account, amount); err != nil {
		log.L.Error("reclaim to escrow failed", zap.String("escrow", a.e.account), zap.String("from", from), zap.Uint64("amount", amount), zap.Error(err))
	}
}
