package protocol

// --- 通用结构 ---

// CardInfo 牌信息
type CardInfo struct {
	Value int    `json:"value"`
	Color string `json:"color"`
}

// PlayerInfo 玩家信息
type PlayerInfo struct {
	Name   string     `json:"name"`
	Cards  []CardInfo `json:"cards"`
	Host   bool       `json:"host"`
	Winner int        `json:"winner"`
}

// LobbyInfo 房间完整信息
type LobbyInfo struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Pioche    CardInfo     `json:"pioche"`
	Started   bool         `json:"started"`
	Users     []PlayerInfo `json:"users"`
	PlayingID int          `json:"playing_id"`
	HostName  string       `json:"host_name,omitempty"`
}

// LobbyListItem 搜索结果条目
type LobbyListItem struct {
	LobbyID     string `json:"lobby_id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"player_count"`
	HostName    string `json:"host_name,omitempty"`
}

// --- 客户端请求 Payloads ---

// ReconnectPayload 断线重连请求
type ReconnectPayload struct {
	Token string `json:"token"` // 重连令牌
}

// PingPayload 心跳请求
type PingPayload struct {
	Timestamp int64 `json:"timestamp"` // 客户端时间戳（毫秒）
}

// CreateLobbyPayload 创建房间请求
type CreateLobbyPayload struct {
	Name string `json:"name"`
}

// LobbyIDPayload 针对某个房间的请求（加入、开始、删除、订阅）
type LobbyIDPayload struct {
	LobbyID string `json:"lobby_id"`
}

// SearchLobbyPayload 搜索房间请求
type SearchLobbyPayload struct {
	Name string `json:"name"`
}

// UpdateDrawPilePayload 更新公共牌堆请求
type UpdateDrawPilePayload struct {
	LobbyID string   `json:"lobby_id"`
	Card    CardInfo `json:"card"`
}

// --- 服务端响应 Payloads ---

// ConnectedPayload 连接成功响应
type ConnectedPayload struct {
	ClientID       string `json:"client_id"`
	PlayerName     string `json:"player_name"`
	ReconnectToken string `json:"reconnect_token"` // 重连令牌
}

// ReconnectedPayload 重连成功响应
type ReconnectedPayload struct {
	PlayerName string      `json:"player_name"`
	LobbyID    string      `json:"lobby_id,omitempty"` // 如果在房间中
	Player     *PlayerInfo `json:"player,omitempty"`
}

// PongPayload 心跳响应
type PongPayload struct {
	ClientTimestamp int64 `json:"client_timestamp"`
	ServerTimestamp int64 `json:"server_timestamp"`
}

// LobbyCreatedPayload 房间创建成功
type LobbyCreatedPayload struct {
	Lobby  LobbyInfo  `json:"lobby"`
	Player PlayerInfo `json:"player"`
}

// LobbyJoinedPayload 加入房间成功
type LobbyJoinedPayload struct {
	LobbyID string     `json:"lobby_id"`
	Player  PlayerInfo `json:"player"`
}

// SearchResultPayload 搜索结果
type SearchResultPayload struct {
	Lobbies []LobbyListItem `json:"lobbies"`
}

// LobbySnapshotPayload 房间快照
type LobbySnapshotPayload struct {
	Lobby LobbyInfo `json:"lobby"`
}

// DrawPileUpdatedPayload 公共牌堆已更新
type DrawPileUpdatedPayload struct {
	LobbyID string   `json:"lobby_id"`
	Card    CardInfo `json:"card"`
}

// ErrorPayload 错误响应
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
