package card

import (
	"fmt"
	"math/rand/v2"
	"strconv"
)

// Color 定义牌的颜色
type Color string

const (
	Red    Color = "red"
	Green  Color = "green"
	Blue   Color = "blue"
	Yellow Color = "yellow"
)

// Colors 全部可用颜色（生成随机牌时均匀选取）
var Colors = []Color{Red, Green, Blue, Yellow}

const (
	MinValue = 0
	MaxValue = 9
)

// colorNames 颜色名称映射表
var colorNames = map[Color]string{
	Red:    "红",
	Green:  "绿",
	Blue:   "蓝",
	Yellow: "黄",
}

// Valid 判断颜色是否合法
func (c Color) Valid() bool {
	_, ok := colorNames[c]
	return ok
}

// Label 返回颜色的中文名
func (c Color) Label() string {
	if name, ok := colorNames[c]; ok {
		return name
	}
	return string(c)
}

// ParseColor 将字符串解析为颜色
func ParseColor(s string) (Color, error) {
	c := Color(s)
	if !c.Valid() {
		return "", fmt.Errorf("无法识别的颜色: %s", s)
	}
	return c, nil
}

// Card 定义一张牌，创建后不可修改
type Card struct {
	Value int   `json:"value"`
	Color Color `json:"color"`
}

// New 随机生成一张牌
func New() Card {
	return Card{
		Value: MinValue + rand.IntN(MaxValue-MinValue+1),
		Color: Colors[rand.IntN(len(Colors))],
	}
}

// Hand 随机生成 n 张牌
func Hand(n int) []Card {
	if n <= 0 {
		return []Card{}
	}
	cards := make([]Card, n)
	for i := range cards {
		cards[i] = New()
	}
	return cards
}

// Valid 判断牌面值与颜色是否合法
func (c Card) Valid() bool {
	return c.Value >= MinValue && c.Value <= MaxValue && c.Color.Valid()
}

func (c Card) String() string {
	return string(c.Color) + " " + strconv.Itoa(c.Value)
}
