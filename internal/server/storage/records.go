package storage

import (
	"encoding/json"
	"fmt"

	"github.com/palemoky/uno-lobby/internal/game/card"
)

// PlayerRecord 玩家在房间文档中的持久化形态（不含 lobbyId）
type PlayerRecord struct {
	Name   string      `json:"name"`
	Cards  []card.Card `json:"cards"`
	Host   bool        `json:"host"`
	Winner int         `json:"winner"`
}

// LobbyRecord 房间文档
type LobbyRecord struct {
	Name      string         `json:"name"`
	Pioche    card.Card      `json:"pioche"` // 公共牌堆顶
	Started   bool           `json:"started"`
	Users     []PlayerRecord `json:"users"` // 按加入顺序
	PlayingID int            `json:"playingId"`
	HostName  string         `json:"hostName,omitempty"`
	CreatedAt int64          `json:"createdAt,omitempty"`
}

// LobbyMatch 带文档 ID 的房间
type LobbyMatch struct {
	ID     string      `json:"id"`
	Record LobbyRecord `json:"record"`
}

// IndexOf 返回玩家在 users 中的下标，不存在返回 -1
func (r *LobbyRecord) IndexOf(name string) int {
	for i, u := range r.Users {
		if u.Name == name {
			return i
		}
	}
	return -1
}

// HasPlayer 判断玩家是否在房间中
func (r *LobbyRecord) HasPlayer(name string) bool {
	return r.IndexOf(name) >= 0
}

// Host 返回房主记录
func (r *LobbyRecord) Host() (PlayerRecord, bool) {
	if r.HostName == "" {
		return PlayerRecord{}, false
	}
	if i := r.IndexOf(r.HostName); i >= 0 {
		return r.Users[i], true
	}
	return PlayerRecord{}, false
}

// Playing 返回当前出牌的玩家
func (r *LobbyRecord) Playing() (PlayerRecord, bool) {
	if r.PlayingID < 0 || r.PlayingID >= len(r.Users) {
		return PlayerRecord{}, false
	}
	return r.Users[r.PlayingID], true
}

// encodeFields 将文档拆成 hash 字段，每个字段值为 JSON
func encodeFields(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("序列化房间数据失败: %w", err)
	}

	var parts map[string]json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, fmt.Errorf("序列化房间数据失败: %w", err)
	}

	fields := make(map[string]any, len(parts))
	for k, v := range parts {
		fields[k] = string(v)
	}
	return fields, nil
}

// decodeFields 将 hash 字段还原为文档
func decodeFields(values map[string]string) (*LobbyRecord, error) {
	parts := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		if !json.Valid([]byte(v)) {
			return nil, fmt.Errorf("反序列化房间数据失败: 字段 %s 不是合法 JSON", k)
		}
		parts[k] = json.RawMessage(v)
	}

	raw, err := json.Marshal(parts)
	if err != nil {
		return nil, fmt.Errorf("反序列化房间数据失败: %w", err)
	}

	var rec LobbyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("反序列化房间数据失败: %w", err)
	}
	return &rec, nil
}
