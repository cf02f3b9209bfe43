package protocol

// 错误码
const (
	ErrCodeUnknown       = 1000
	ErrCodeInvalidMsg    = 1001
	ErrCodeUnauthorized  = 1003 // 身份校验失败
	ErrCodeInvalidName   = 1004
	ErrCodeLobbyNotFound = 2001
	ErrCodeNotInLobby    = 2003
	ErrCodeDuplicateJoin = 2005 // 重复加入
	ErrCodeInvalidLobby  = 2006 // 房间名无效
	ErrCodeInvalidCard   = 3003
	ErrCodeStore         = 5001 // 存储故障
	ErrCodeConflict      = 5002 // 并发写冲突
	ErrCodeServerFull    = 5003
)

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[int]string{
	ErrCodeUnknown:       "未知错误",
	ErrCodeInvalidMsg:    "无效的消息格式",
	ErrCodeUnauthorized:  "身份校验失败",
	ErrCodeInvalidName:   "玩家名无效",
	ErrCodeLobbyNotFound: "房间不存在",
	ErrCodeNotInLobby:    "您不在房间中",
	ErrCodeDuplicateJoin: "您已经在房间中",
	ErrCodeInvalidLobby:  "房间名无效",
	ErrCodeInvalidCard:   "无效的牌",
	ErrCodeStore:         "存储服务异常",
	ErrCodeConflict:      "房间正忙，请稍后重试",
	ErrCodeServerFull:    "服务器已满",
}
