package protocol

import "encoding/json"

// Message 基础消息结构
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType 消息类型
type MessageType string

// 客户端 → 服务端 消息类型
const (
	// 连接操作
	MsgReconnect MessageType = "reconnect" // 断线重连
	MsgPing      MessageType = "ping"      // 心跳 ping

	// 房间操作
	MsgCreateLobby    MessageType = "create_lobby"     // 创建房间
	MsgJoinLobby      MessageType = "join_lobby"       // 加入房间
	MsgLeaveLobby     MessageType = "leave_lobby"      // 离开房间
	MsgStartLobby     MessageType = "start_lobby"      // 开始游戏
	MsgDeleteLobby    MessageType = "delete_lobby"     // 删除房间
	MsgSearchLobby    MessageType = "search_lobby"     // 按名称搜索房间
	MsgWatchLobby     MessageType = "watch_lobby"      // 订阅房间变化
	MsgUpdateDrawPile MessageType = "update_draw_pile" // 更新公共牌堆
)

// 服务端 → 客户端 消息类型
const (
	// 连接相关
	MsgConnected   MessageType = "connected"   // 连接成功
	MsgReconnected MessageType = "reconnected" // 重连成功
	MsgPong        MessageType = "pong"        // 心跳 pong

	// 房间相关
	MsgLobbyCreated    MessageType = "lobby_created"     // 房间创建成功
	MsgLobbyJoined     MessageType = "lobby_joined"      // 加入房间成功
	MsgLobbyLeft       MessageType = "lobby_left"        // 离开房间成功
	MsgLobbyStarted    MessageType = "lobby_started"     // 游戏已开始
	MsgLobbyDeleted    MessageType = "lobby_deleted"     // 房间已删除
	MsgSearchResult    MessageType = "search_result"     // 搜索结果
	MsgLobbySnapshot   MessageType = "lobby_snapshot"    // 房间最新快照
	MsgDrawPileUpdated MessageType = "draw_pile_updated" // 公共牌堆已更新

	// 错误
	MsgError MessageType = "error" // 错误消息
)
