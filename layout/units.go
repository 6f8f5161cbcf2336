package layout

import (
	"strconv"
	"strings"
)

// Unit 记录 DSL 中长度值的原始单位。
type Unit int

const (
	UnitNone    Unit = iota // 无单位数字，按像素处理
	UnitPX                  // 像素
	UnitPercent             // 相对参考尺寸的百分比
)

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitPX:
		return "px"
	case UnitPercent:
		return "%"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// Pixels 把长度换算为整数像素，百分比相对 reference 计算；负值截为 0。
func (l Length) Pixels(reference int) int {
	v := l.Value
	if l.Unit == UnitPercent {
		v = float64(reference) * l.Value / 100
	}
	if v <= 0 {
		return 0
	}
	return int(v)
}

// ParseLength 解析 "40"、"40px"、"50%" 形式的长度，ok 为 false 表示无法解析。
func ParseLength(value string) (Length, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, false
	}
	unit := UnitNone
	switch {
	case strings.HasSuffix(v, "px"):
		unit = UnitPX
		v = strings.TrimSpace(strings.TrimSuffix(v, "px"))
	case strings.HasSuffix(v, "%"):
		unit = UnitPercent
		v = strings.TrimSpace(strings.TrimSuffix(v, "%"))
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return Length{}, false
	}
	return Length{Value: f, Unit: unit}, true
}
