package layout

import (
	"errors"
	"fmt"

	"github.com/ByLCY/tableau/paint"
)

// 该文件定义布局节点的公共几何信息与节点接口。
// 每次渲染都会重新构建节点树：先 Measure 再 Position，两个阶段严格有序。

// ErrNotMeasured 表示在 Measure 之前调用了 Position。
var ErrNotMeasured = errors.New("节点尚未测量")

// Geometry 保存节点的布局结果与伸展权重（单位：像素）。
type Geometry struct {
	X, Y          int
	Width, Height int
	WidthGrow     int
	HeightGrow    int

	measured   bool
	positioned bool
}

// Measured 报告宽高是否已由 Measure 写入。
func (g *Geometry) Measured() bool { return g.measured }

// Positioned 报告坐标是否已由 Position 写入。
func (g *Geometry) Positioned() bool { return g.positioned }

// SetSize 记录测量结果，同时使之前的定位结果失效。
func (g *Geometry) SetSize(w, h int) {
	g.Width, g.Height = w, h
	g.measured = true
	g.positioned = false
}

// SetOrigin 记录定位结果；节点未测量时返回 ErrNotMeasured。
func (g *Geometry) SetOrigin(x, y int) error {
	if !g.measured {
		return ErrNotMeasured
	}
	g.X, g.Y = x, y
	g.positioned = true
	return nil
}

// SetGrow 设置两个方向的伸展权重，负数按 0 处理。
func (g *Geometry) SetGrow(w, h int) {
	g.WidthGrow, g.HeightGrow = max(w, 0), max(h, 0)
}

// Rect 返回节点占据的矩形。
func (g *Geometry) Rect() paint.Rect {
	return paint.Rect{X: g.X, Y: g.Y, W: g.Width, H: g.Height}
}

// Node 是布局树中的一个节点。
type Node interface {
	// Kind 返回节点类型名（调试输出使用）。
	Kind() string
	Geometry() *Geometry
	// Measure 根据可用空间计算宽高。
	Measure(availW, availH int)
	// Position 把节点（及其子节点）放到 (x, y)。
	Position(x, y int) error
	// PaintActions 返回节点自身的绘制动作，不含子节点。
	PaintActions() []paint.Action
	Children() []Node
}

// leaf 为无子节点的节点提供公共实现。
type leaf struct {
	geo Geometry
}

func (l *leaf) Geometry() *Geometry { return &l.geo }
func (l *leaf) Children() []Node    { return nil }

func (l *leaf) position(kind string, x, y int) error {
	if err := l.geo.SetOrigin(x, y); err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	return nil
}

// Direction 为容器主轴方向。
type Direction int

const (
	Column Direction = iota
	Row
)

func (d Direction) String() string {
	if d == Row {
		return "row"
	}
	return "column"
}

// Alignment 用于交叉轴对齐（align）与主轴整体偏移（justify）。
type Alignment int

const (
	Start Alignment = iota
	Center
	End
)

func (a Alignment) String() string {
	switch a {
	case Center:
		return "center"
	case End:
		return "end"
	default:
		return "start"
	}
}

// ParseDirection 解析 row/column，无法识别时返回 Column 与 false。
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "row", "horizontal":
		return Row, true
	case "column", "col", "vertical":
		return Column, true
	default:
		return Column, false
	}
}

// ParseAlignment 解析 start/center/end，无法识别时返回 Start 与 false。
func ParseAlignment(s string) (Alignment, bool) {
	switch s {
	case "start", "left", "top":
		return Start, true
	case "center", "middle":
		return Center, true
	case "end", "right", "bottom":
		return End, true
	default:
		return Start, false
	}
}
