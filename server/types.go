package server

import "github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet/model"

const (
	// c - s，管理员
	MsgTypeInitConfig   uint16 = 0x10
	MsgTypeUpdateConfig uint16 = 0x11
	MsgTypeOpenRound    uint16 = 0x12
	MsgTypeSettle       uint16 = 0x13
	MsgTypeSweep        uint16 = 0x14
	// c - s，用户
	MsgTypeOpenPosition uint16 = 0x15
	MsgTypePlaceStake   uint16 = 0x16
	MsgTypeClaim        uint16 = 0x17
	// c - s，查询
	MsgTypeGetConfig   uint16 = 0x18
	MsgTypeGetRound    uint16 = 0x19
	MsgTypeGetPosition uint16 = 0x1a
	MsgTypeRoundReport uint16 = 0x1b

	// s - c
	MsgTypeErr uint16 = 0x20
	// s - c
	MsgTypeSuccess uint16 = 0x21
	// s - c
	MsgTypeConfig uint16 = 0x22
	// s - c
	MsgTypeRound uint16 = 0x23
	// s - c
	MsgTypePosition uint16 = 0x24
	// s - c
	MsgTypeAmount uint16 = 0x25
	// s - c
	MsgTypeReport uint16 = 0x26
)

// 调用者身份是握手时确定的用户id，不从请求里取
type ConfigReq struct {
	FeeRecipient string `json:"fee_recipient"`
	FeeRate      uint16 `json:"fee_rate"`
}

type OpenRoundReq struct {
	RoundID   uint64 `json:"round_id"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
}

type RoundReq struct {
	RoundID uint64 `json:"round_id"`
}

type PlaceStakeReq struct {
	RoundID uint64 `json:"round_id"`
	Amount  uint64 `json:"amount"`
	// "L" 或 "R"
	Side string `json:"side"`
}

type SettleReq struct {
	RoundID uint64 `json:"round_id"`
	// 为空则不校验
	Treasury string `json:"treasury"`
}

type GetPositionReq struct {
	RoundID uint64 `json:"round_id"`
	// 为空则查自己
	User string `json:"user"`
}

type ErrResp struct {
	Reason string `json:"reason"`
	Info   string `json:"info"`
}

type SuccessResp struct {
	Info string `json:"info"`
}

type AmountResp struct {
	RoundID uint64 `json:"round_id"`
	Amount  uint64 `json:"amount"`
}

type ReportResp struct {
	RoundID uint64         `json:"round_id"`
	Rewards []model.Reward `json:"rewards"`
}
