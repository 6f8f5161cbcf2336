package paint

import (
	"fmt"
	"strconv"
	"strings"
)

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// 常用颜色。
var (
	Black     = Color{}
	LightGray = Color{R: 240, G: 240, B: 240}
)

// ParseColor 解析 #RRGGBB，任何格式错误都返回黑色而不是报错。
func ParseColor(value string) Color {
	c, err := parseHex(strings.TrimSpace(value))
	if err != nil {
		return Black
	}
	return c
}

func parseHex(value string) (Color, error) {
	if len(value) != 7 || value[0] != '#' {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	v, err := strconv.ParseUint(value[1:], 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析: %w", value, err)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Hex 返回 #RRGGBB 形式。
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}
