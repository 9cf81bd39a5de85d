package model

import "strconv"

// 一轮押注。ID一般为该轮的开始时间
// TotalStake == TotalL + TotalR 始终成立
type Round struct {
	ID    uint64 `json:"id" bson:"_id"`
	Admin string `json:"admin" bson:"admin"`

	TotalStake uint64 `json:"total_stake" bson:"total_stake"`
	TotalL     uint64 `json:"total_l" bson:"total_l"`
	TotalR     uint64 `json:"total_r" bson:"total_r"`

	// unix秒
	StartTime int64 `json:"start_time" bson:"start_time"`
	EndTime   int64 `json:"end_time" bson:"end_time"`

	Closed bool `json:"closed" bson:"closed"`
	// Closed为true后才有意义
	WinningSide Side   `json:"winning_side" bson:"winning_side"`
	ResultHash  string `json:"result_hash" bson:"result_hash"`
	// 结算时的费率快照，claim按该费率计算，结算后管理员改费率不影响本轮
	FeeRate uint16 `json:"fee_rate" bson:"fee_rate"`
	Fee     uint64 `json:"fee" bson:"fee"`
	// 已通过claim发出的总额
	PaidOut uint64 `json:"paid_out" bson:"paid_out"`
	Swept   uint64 `json:"swept" bson:"swept"`
}

func (r *Round) SideTotal(s Side) uint64 {
	if s == SideR {
		return r.TotalR
	}
	return r.TotalL
}

func (r *Round) WinningTotal() uint64 {
	return r.SideTotal(r.WinningSide)
}

func (r *Round) LosingTotal() uint64 {
	return r.SideTotal(r.WinningSide.Opposite())
}

// 每轮一个escrow账户
func (r *Round) Escrow() string {
	return EscrowAccount(r.ID)
}

func EscrowAccount(roundID uint64) string {
	return "escrow/" + strconv.FormatUint(roundID, 10)
}
