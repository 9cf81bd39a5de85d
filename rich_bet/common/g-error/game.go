package g_error

import "errors"

var (
	// 调用者不是管理员
	ErrAccessDenied = errors.New("access denied")
	ErrInvalidConfig = errors.New("invalid pool config")
	ErrInvalidWindow = errors.New("the betting period is wrong")
	ErrNotInitialized = errors.New("pool config not initialized")

	// 状态机
	ErrNotStarted = errors.New("the bet round is not started yet")
	ErrRoundEnded = errors.New("the bet round is already ended")
	ErrRoundAlreadyClosed = errors.New("the bet round is already closed")
	ErrNotClosed = errors.New("the bet round is not closed yet")

	// 余额
	ErrInsufficientFunds = errors.New("user doesn't have enough balance")
	// escrow余额不足说明账算错了，属于致命错误
	ErrInsufficientEscrow = errors.New("escrow doesn't have enough balance")

	ErrOverflow = errors.New("amount overflow")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidSide = errors.New("invalid side")

	ErrAlreadyExists = errors.New("already exists")
	ErrAlreadyClaimed = errors.New("user already claimed the reward")
	ErrNotFound = errors.New("not found")

	ErrWrongTreasury = errors.New("invalid treasury account")
	ErrLockHeld = errors.New("lock already held")
)
