package layout

import (
	"fmt"
	"image"

	"github.com/ByLCY/tableau/paint"
)

// Container 按行或列排列子节点，支持对齐、主轴偏移、内边距与伸展。
type Container struct {
	geo Geometry

	Dir     Direction
	Align   Alignment
	Justify Alignment
	Padding int
	// Fixed 非空时忽略计算结果，直接使用该尺寸。
	Fixed           *image.Point
	Background      *paint.Color
	Border          *paint.Color
	BackgroundImage *paint.Bitmap

	children []Node
}

// NewContainer 创建容器，grow 同时作为宽高两个方向的伸展权重。
func NewContainer(dir Direction, align, justify Alignment, grow, padding int) *Container {
	c := &Container{Dir: dir, Align: align, Justify: justify, Padding: max(padding, 0)}
	c.geo.SetGrow(grow, grow)
	return c
}

// Append 按顺序追加子节点，顺序即布局与绘制顺序。
func (c *Container) Append(children ...Node) {
	for _, child := range children {
		if child != nil {
			c.children = append(c.children, child)
		}
	}
}

func (c *Container) Kind() string        { return "Container" }
func (c *Container) Geometry() *Geometry { return &c.geo }
func (c *Container) Children() []Node    { return c.children }

// mainGrow 返回子节点在本容器主轴上的伸展权重。
func (c *Container) mainGrow(n Node) int {
	if c.Dir == Row {
		return n.Geometry().WidthGrow
	}
	return n.Geometry().HeightGrow
}

// split 把 (w, h) 拆成 (主轴, 交叉轴)。
func (c *Container) split(w, h int) (int, int) {
	if c.Dir == Row {
		return w, h
	}
	return h, w
}

// join 是 split 的逆操作。
func (c *Container) join(main, cross int) (int, int) {
	if c.Dir == Row {
		return main, cross
	}
	return cross, main
}

// Measure 先按顺序测量不伸展的子节点并消耗预算，再把剩余空间按权重分给伸展的子节点。
func (c *Container) Measure(availW, availH int) {
	pad2 := 2 * c.Padding
	innerW := max(availW-pad2, 0)
	innerH := max(availH-pad2, 0)
	mainAvail, crossAvail := c.split(innerW, innerH)

	consumed, cross := 0, 0
	remaining := mainAvail
	totalGrow := 0
	for _, child := range c.children {
		g := c.mainGrow(child)
		if g > 0 {
			totalGrow += g
			continue
		}
		child.Measure(c.join(remaining, crossAvail))
		m, x := c.split(child.Geometry().Width, child.Geometry().Height)
		consumed += m
		cross = max(cross, x)
		remaining = max(remaining-m, 0)
	}

	if totalGrow > 0 {
		spare := max(mainAvail-consumed, 0)
		for _, child := range c.children {
			g := c.mainGrow(child)
			if g == 0 {
				continue
			}
			// 整数截断丢失的像素不再分配。
			share := g * spare / totalGrow
			child.Measure(c.join(share, crossAvail))
			m, x := c.split(child.Geometry().Width, child.Geometry().Height)
			consumed += m
			cross = max(cross, x)
		}
	}

	switch {
	case c.Fixed != nil:
		c.geo.SetSize(c.Fixed.X, c.Fixed.Y)
	case c.geo.WidthGrow == 0 && c.geo.HeightGrow == 0:
		w, h := c.join(consumed, cross)
		c.geo.SetSize(w+pad2, h+pad2)
	default:
		c.geo.SetSize(availW, availH)
	}
}

// Position 把容器放到 (x, y)，并依次放置子节点。
func (c *Container) Position(x, y int) error {
	if err := c.geo.SetOrigin(x, y); err != nil {
		return fmt.Errorf("%s: %w", c.Kind(), err)
	}
	innerMain, innerCross := c.split(c.geo.Width-2*c.Padding, c.geo.Height-2*c.Padding)

	extent := 0
	for _, child := range c.children {
		if !child.Geometry().Measured() {
			return fmt.Errorf("%s: %w", child.Kind(), ErrNotMeasured)
		}
		m, _ := c.split(child.Geometry().Width, child.Geometry().Height)
		extent += m
	}
	spare := max(innerMain-extent, 0)

	cursor := c.Padding
	switch c.Justify {
	case Center:
		cursor += spare / 2
	case End:
		cursor += spare
	}

	originMain, originCross := c.split(x, y)
	for _, child := range c.children {
		m, cr := c.split(child.Geometry().Width, child.Geometry().Height)
		offset := c.Padding
		switch c.Align {
		case Center:
			offset += (innerCross - cr) / 2
		case End:
			offset += innerCross - cr
		}
		cx, cy := c.join(originMain+cursor, originCross+offset)
		if err := child.Position(cx, cy); err != nil {
			return err
		}
		cursor += m
	}
	return nil
}

// PaintActions 依次输出背景色、背景图与边框，子节点由 Collect 追加在其后。
func (c *Container) PaintActions() []paint.Action {
	r := c.geo.Rect()
	if r.W <= 0 || r.H <= 0 {
		return nil
	}
	var out []paint.Action
	if c.Background != nil {
		out = append(out, &paint.Fill{Rect: r, Color: *c.Background})
	}
	if c.BackgroundImage != nil {
		out = append(out, &paint.Blit{Rect: r, Bitmap: c.BackgroundImage})
	}
	if c.Border != nil {
		out = append(out, &paint.RectOutline{Rect: r, Color: *c.Border})
	}
	return out
}
