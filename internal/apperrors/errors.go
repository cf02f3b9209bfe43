package apperrors

import (
	"errors"

	"github.com/palemoky/uno-lobby/internal/protocol"
)

// GameError 业务错误（房间、玩家共享）
type GameError struct {
	Code    int
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

// 预定义错误
var (
	ErrLobbyNotFound    = &GameError{Code: protocol.ErrCodeLobbyNotFound, Message: "房间不存在"}
	ErrNotInLobby       = &GameError{Code: protocol.ErrCodeNotInLobby, Message: "您不在房间中"}
	ErrDuplicateJoin    = &GameError{Code: protocol.ErrCodeDuplicateJoin, Message: "您已经在房间中"}
	ErrInvalidName      = &GameError{Code: protocol.ErrCodeInvalidName, Message: "玩家名不能为空"}
	ErrInvalidLobbyName = &GameError{Code: protocol.ErrCodeInvalidLobby, Message: "房间名不能为空"}
	ErrInvalidCard      = &GameError{Code: protocol.ErrCodeInvalidCard, Message: "无效的牌"}
	ErrUpdateConflict   = &GameError{Code: protocol.ErrCodeConflict, Message: "房间并发修改冲突"}
	ErrUnauthorized     = &GameError{Code: protocol.ErrCodeUnauthorized, Message: "身份校验失败"}
)

// StoreError 远程存储失败，原样上抛给调用方，内部不重试
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "store " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError 包装存储错误，err 为 nil 时返回 nil
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// Code 返回错误对应的协议错误码
func Code(err error) int {
	var gameErr *GameError
	if errors.As(err, &gameErr) {
		return gameErr.Code
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return protocol.ErrCodeStore
	}
	return protocol.ErrCodeUnknown
}
