package layout

import (
	"image"

	"github.com/ByLCY/tableau/paint"
)

// Rule 是一条 1 像素宽的分隔线，长度撑满可用空间。
type Rule struct {
	leaf
	Dir   Direction
	Color paint.Color
}

// NewRule 创建分隔线；Row 为水平线，Column 为垂直线。
func NewRule(dir Direction, color paint.Color) *Rule {
	return &Rule{Dir: dir, Color: color}
}

func (r *Rule) Kind() string { return "Rule" }

func (r *Rule) Measure(availW, availH int) {
	if r.Dir == Row {
		r.geo.SetSize(max(availW, 0), 1)
		return
	}
	r.geo.SetSize(1, max(availH, 0))
}

func (r *Rule) Position(x, y int) error { return r.position(r.Kind(), x, y) }

func (r *Rule) PaintActions() []paint.Action {
	g := r.geo
	if g.Width <= 0 || g.Height <= 0 {
		return nil
	}
	end := image.Pt(g.X+g.Width, g.Y)
	if r.Dir == Column {
		end = image.Pt(g.X, g.Y+g.Height)
	}
	return []paint.Action{&paint.Line{P1: image.Pt(g.X, g.Y), P2: end, Color: r.Color}}
}
