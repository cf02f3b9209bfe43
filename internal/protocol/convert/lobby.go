package convert

import (
	"github.com/palemoky/uno-lobby/internal/game/player"
	"github.com/palemoky/uno-lobby/internal/protocol"
	"github.com/palemoky/uno-lobby/internal/server/storage"
)

// PlayerToInfo 将本地玩家转换为 protocol.PlayerInfo
func PlayerToInfo(p player.Player) protocol.PlayerInfo {
	return RecordToPlayerInfo(p.Record())
}

// RecordToPlayerInfo 将玩家记录转换为 protocol.PlayerInfo
func RecordToPlayerInfo(rec storage.PlayerRecord) protocol.PlayerInfo {
	return protocol.PlayerInfo{
		Name:   rec.Name,
		Cards:  CardsToInfos(rec.Cards),
		Host:   rec.Host,
		Winner: rec.Winner,
	}
}

// RecordToLobbyInfo 将房间文档转换为 protocol.LobbyInfo
func RecordToLobbyInfo(id string, rec *storage.LobbyRecord) protocol.LobbyInfo {
	users := make([]protocol.PlayerInfo, len(rec.Users))
	for i, u := range rec.Users {
		users[i] = RecordToPlayerInfo(u)
	}
	return protocol.LobbyInfo{
		ID:        id,
		Name:      rec.Name,
		Pioche:    CardToInfo(rec.Pioche),
		Started:   rec.Started,
		Users:     users,
		PlayingID: rec.PlayingID,
		HostName:  rec.HostName,
	}
}

// MatchesToList 将搜索结果转换为列表条目
func MatchesToList(matches []storage.LobbyMatch) []protocol.LobbyListItem {
	items := make([]protocol.LobbyListItem, len(matches))
	for i, m := range matches {
		items[i] = protocol.LobbyListItem{
			LobbyID:     m.ID,
			Name:        m.Record.Name,
			PlayerCount: len(m.Record.Users),
			HostName:    m.Record.HostName,
		}
	}
	return items
}
