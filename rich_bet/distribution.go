package rich_bet

import (
	"math/bits"

	"github.com/holiman/uint256"

	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet/common/g-error"
	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet/model"
)

func checkedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, g_error.ErrOverflow
	}
	return sum, nil
}

// floor(a * b / c)，先乘后除，乘法在256位里做，不会中途溢出
func mulDiv(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, nil
	}
	x := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	x.Div(x, uint256.NewInt(c))
	if !x.IsUint64() {
		return 0, g_error.ErrOverflow
	}
	return x.Uint64(), nil
}

// 平台抽成：floor(losingTotal * feeRate / 1000)，feeRate <= 1000时 0 <= fee <= losingTotal
func CalcFee(losingTotal uint64, feeRate uint16) uint64 {
	fee, _ := mulDiv(losingTotal, uint64(feeRate), model.MaxFeeRate)
	return fee
}

// 扣掉抽成后分给赢家的部分：floor(losingTotal * (1000 - feeRate) / 1000)
func NetLosingPool(losingTotal uint64, feeRate uint16) uint64 {
	if feeRate > model.MaxFeeRate {
		return 0
	}
	net, _ := mulDiv(losingTotal, uint64(model.MaxFeeRate-feeRate), model.MaxFeeRate)
	return net
}

// 用户应得：本金 + 按其在赢方中的占比分得的净输方奖池。只押了输方的用户得0
func CalcPayout(round *model.Round, pos *model.Position) (uint64, error) {
	stake := pos.StakeOn(round.WinningSide)
	winningTotal := round.WinningTotal()
	if stake == 0 || winningTotal == 0 {
		return 0, nil
	}
	share, err := mulDiv(NetLosingPool(round.LosingTotal(), round.FeeRate), stake, winningTotal)
	if err != nil {
		return 0, err
	}
	return checkedAdd(stake, share)
}

// 计算一轮已结算的押注最终如何分配（不做转账）。
// 返回的rewards依次为平台抽成、每个用户的claim、留在escrow里的余数，总和等于TotalStake
func Distribution(round model.Round, feeRecipient string, positions []model.Position) (rewards []model.Reward, err error) {
	if !round.Closed {
		return nil, g_error.ErrNotClosed
	}

	rewards = append(rewards, model.Reward{UserAddress: feeRecipient, Amount: round.Fee, Round: round.ID, Kind: model.RewardKindFee})

	remain := round.TotalStake - round.Fee
	for i := range positions {
		p := &positions[i]
		payout, err := CalcPayout(&round, p)
		if err != nil {
			return nil, err
		}
		if payout > remain {
			return nil, g_error.ErrInsufficientEscrow
		}
		remain -= payout
		rewards = append(rewards, model.Reward{
			UserAddress:    p.User,
			Amount:         payout,
			Round:          round.ID,
			Kind:           model.RewardKindClaim,
			HasBeenDrawing: p.Claimed,
		})
	}

	rewards = append(rewards, model.Reward{UserAddress: round.Escrow(), Amount: remain, Round: round.ID, Kind: model.RewardKindResidual})
	return rewards, nil
}
