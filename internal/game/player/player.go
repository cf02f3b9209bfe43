package player

import (
	"slices"
	"strings"

	"github.com/palemoky/uno-lobby/internal/apperrors"
	"github.com/palemoky/uno-lobby/internal/game/card"
	"github.com/palemoky/uno-lobby/internal/server/storage"
)

const (
	// HandSize 新玩家的初始手牌数
	HandSize = 7
	// NoWinner 尚未决出胜者
	NoWinner = -1
)

// Player 玩家。值类型，修改通过 WithXxx 返回副本
type Player struct {
	name    string
	cards   []card.Card
	host    bool
	winner  int
	lobbyID string
}

// New 创建玩家并发 7 张牌
func New(name string) (Player, error) {
	if strings.TrimSpace(name) == "" {
		return Player{}, apperrors.ErrInvalidName
	}
	return Player{
		name:   name,
		cards:  card.Hand(HandSize),
		winner: NoWinner,
	}, nil
}

// FromRecord 从房间文档中的记录还原玩家
func FromRecord(rec storage.PlayerRecord, lobbyID string) Player {
	return Player{
		name:    rec.Name,
		cards:   slices.Clone(rec.Cards),
		host:    rec.Host,
		winner:  rec.Winner,
		lobbyID: lobbyID,
	}
}

// WithHost 返回房主副本
func (p Player) WithHost() Player {
	p.host = true
	return p
}

// WithWinner 返回设置胜者下标后的副本
func (p Player) WithWinner(winner int) Player {
	p.winner = winner
	return p
}

// WithLobbyID 返回绑定房间后的副本
func (p Player) WithLobbyID(id string) Player {
	p.lobbyID = id
	return p
}

func (p Player) Name() string { return p.name }
func (p Player) Host() bool   { return p.host }
func (p Player) Winner() int  { return p.winner }

// Cards 返回手牌副本
func (p Player) Cards() []card.Card {
	return slices.Clone(p.cards)
}

// LobbyID 返回所在房间，未加入时 ok 为 false
func (p Player) LobbyID() (id string, ok bool) {
	return p.lobbyID, p.lobbyID != ""
}

// Record 持久化形态，lobbyId 只在本地保存
func (p Player) Record() storage.PlayerRecord {
	cards := slices.Clone(p.cards)
	if cards == nil {
		cards = []card.Card{}
	}
	return storage.PlayerRecord{
		Name:   p.name,
		Cards:  cards,
		Host:   p.host,
		Winner: p.winner,
	}
}
