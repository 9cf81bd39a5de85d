package model

import (
	"strings"

	"github.com/LeaguesOfHoleHoleShoes/RichBet/rich_bet/common/g-error"
)

// 押注方向，0为L，1为R
type Side uint8

const (
	SideL Side = iota
	SideR
)

func (s Side) String() string {
	switch s {
	case SideL:
		return "L"
	case SideR:
		return "R"
	}
	return "unknown"
}

func (s Side) Valid() bool {
	return s == SideL || s == SideR
}

func (s Side) Opposite() Side {
	if s == SideL {
		return SideR
	}
	return SideL
}

func ParseSide(str string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(str)) {
	case "L":
		return SideL, nil
	case "R":
		return SideR, nil
	}
	return 0, g_error.ErrInvalidSide
}
