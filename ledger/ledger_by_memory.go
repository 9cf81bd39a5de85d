package ledger

import (
	"context"
	"math/bits"
	"sync"

	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet/common/g-error"
)

func NewLedgerByMemory() *LedgerByMemory {
	return &LedgerByMemory{balances: map[string]uint64{}}
}

// 内存账本，测试和单机演示用
type LedgerByMemory struct {
	mu       sync.Mutex
	balances map[string]uint64
}

// 给账户充值
func (l *LedgerByMemory) Mint(account string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	sum, carry := bits.Add64(l.balances[account], amount, 0)
	if carry != 0 {
		return g_error.ErrOverflow
	}
	l.balances[account] = sum
	return nil
}

func (l *LedgerByMemory) Balance(ctx context.Context, account string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}

func (l *LedgerByMemory) Transfer(ctx context.Context, from, to string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return g_error.ErrInsufficientFunds
	}
	if from == to {
		return nil
	}
	sum, carry := bits.Add64(l.balances[to], amount, 0)
	if carry != 0 {
		return g_error.ErrOverflow
	}
	l.balances[from] -= amount
	l.balances[to] = sum
	return nil
}

// 所有账户余额之和，用于检查守恒
func (l *LedgerByMemory) Supply() (total uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range l.balances {
		total += b
	}
	return
}
