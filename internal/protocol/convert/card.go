package convert

import (
	"github.com/palemoky/uno-lobby/internal/game/card"
	"github.com/palemoky/uno-lobby/internal/protocol"
)

// CardToInfo 将 card.Card 转换为 protocol.CardInfo
func CardToInfo(c card.Card) protocol.CardInfo {
	return protocol.CardInfo{
		Value: c.Value,
		Color: string(c.Color),
	}
}

// CardsToInfos 将 []card.Card 转换为 []protocol.CardInfo
func CardsToInfos(cards []card.Card) []protocol.CardInfo {
	infos := make([]protocol.CardInfo, len(cards))
	for i, c := range cards {
		infos[i] = CardToInfo(c)
	}
	return infos
}

// InfoToCard 将 protocol.CardInfo 转换为 card.Card，颜色非法时报错
func InfoToCard(info protocol.CardInfo) (card.Card, error) {
	color, err := card.ParseColor(info.Color)
	if err != nil {
		return card.Card{}, err
	}
	return card.Card{Value: info.Value, Color: color}, nil
}
