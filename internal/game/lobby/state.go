package lobby

import "github.com/palemoky/uno-lobby/internal/server/storage"

// LobbyState 房间状态
type LobbyState int

const (
	LobbyStateOpen    LobbyState = iota // 等待加入
	LobbyStateStarted                   // 游戏中
	LobbyStateDeleted                   // 已删除
)

var stateNames = map[LobbyState]string{
	LobbyStateOpen:    "open",
	LobbyStateStarted: "started",
	LobbyStateDeleted: "deleted",
}

func (s LobbyState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// StateOf 根据房间文档推导状态，文档不存在视为已删除
func StateOf(rec *storage.LobbyRecord) LobbyState {
	switch {
	case rec == nil:
		return LobbyStateDeleted
	case rec.Started:
		return LobbyStateStarted
	default:
		return LobbyStateOpen
	}
}
