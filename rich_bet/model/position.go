package model

import "strconv"

// 用户在某一轮的押注记录，每人每轮一条
type Position struct {
	ID    string `json:"id" bson:"_id"`
	Round uint64 `json:"round" bson:"round"`
	User  string `json:"user" bson:"user"`

	BetL uint64 `json:"bet_l" bson:"bet_l"`
	BetR uint64 `json:"bet_r" bson:"bet_r"`

	Claimed bool   `json:"claimed" bson:"claimed"`
	Payout  uint64 `json:"payout" bson:"payout"`
}

func NewPosition(round uint64, user string) Position {
	return Position{ID: PositionID(round, user), Round: round, User: user}
}

func PositionID(round uint64, user string) string {
	return strconv.FormatUint(round, 10) + ":" + user
}

func (p *Position) StakeOn(s Side) uint64 {
	if s == SideR {
		return p.BetR
	}
	return p.BetL
}
