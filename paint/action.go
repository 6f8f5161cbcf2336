package paint

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Target 是绘制动作的唯一输出口，framebuffer.Surface 实现了它。
type Target interface {
	Blend(x, y int, r, g, b uint8, coverage float64)
}

// Face 描述某个字号下的字体：度量用于排版，Mask 用于绘制。
type Face interface {
	Family() string
	Size() float64
	// Advance 返回文本渲染宽度（像素，向上取整）。
	Advance(s string) int
	// LineHeight 返回 ascent-descent（像素）。
	LineHeight() int
	// Mask 返回一行文本的覆盖度蒙版，原点为该行左上角；
	// Bounds 覆盖全部墨迹，可以超出行框（下伸部、负左侧距、斜体悬垂）。
	Mask(s string) *image.Alpha
}

// Bitmap 是已解码、不可变的共享位图句柄；多个节点持有同一个指针，像素永不复制。
type Bitmap struct {
	Source string
	img    image.Image
}

// NewBitmap 包装已解码的图片。
func NewBitmap(source string, img image.Image) *Bitmap {
	return &Bitmap{Source: source, img: img}
}

// Image 返回底层图片，调用方不得修改。
func (b *Bitmap) Image() image.Image { return b.img }

// Width 返回原始宽度。
func (b *Bitmap) Width() int {
	if b == nil || b.img == nil {
		return 0
	}
	return b.img.Bounds().Dx()
}

// Height 返回原始高度。
func (b *Bitmap) Height() int {
	if b == nil || b.img == nil {
		return 0
	}
	return b.img.Bounds().Dy()
}

// Rect 为像素坐标下的矩形，Max 不包含。
type Rect struct {
	X, Y, W, H int
}

// Action 是一次渲染中产生、按顺序消费一次的声明式绘制指令。
type Action interface {
	Paint(dst Target)
}

// Fill 用纯色填满矩形。
type Fill struct {
	Rect  Rect
	Color Color
}

func (f *Fill) Paint(dst Target) {
	for y := f.Rect.Y; y < f.Rect.Y+f.Rect.H; y++ {
		for x := f.Rect.X; x < f.Rect.X+f.Rect.W; x++ {
			dst.Blend(x, y, f.Color.R, f.Color.G, f.Color.B, 1)
		}
	}
}

// Line 绘制 P1→P2 的直线（终点不含）。
type Line struct {
	P1, P2 image.Point
	Color  Color
}

func (l *Line) Paint(dst Target) {
	dx := l.P2.X - l.P1.X
	dy := l.P2.Y - l.P1.Y
	c := l.Color
	if absInt(dx) > absInt(dy) {
		s, e := l.P1, l.P2
		if s.X > e.X {
			s, e = e, s
		}
		for x := s.X; x < e.X; x++ {
			y := s.Y + (x-s.X)*(e.Y-s.Y)/(e.X-s.X)
			dst.Blend(x, y, c.R, c.G, c.B, 1)
		}
		return
	}
	s, e := l.P1, l.P2
	if s.Y > e.Y {
		s, e = e, s
	}
	for y := s.Y; y < e.Y; y++ {
		x := s.X + (y-s.Y)*(e.X-s.X)/(e.Y-s.Y)
		dst.Blend(x, y, c.R, c.G, c.B, 1)
	}
}

// RectOutline 绘制一像素宽的矩形边框。
type RectOutline struct {
	Rect  Rect
	Color Color
}

func (r *RectOutline) Paint(dst Target) {
	if r.Rect.W <= 0 || r.Rect.H <= 0 {
		return
	}
	c := r.Color
	x0, y0 := r.Rect.X, r.Rect.Y
	x1, y1 := r.Rect.X+r.Rect.W-1, r.Rect.Y+r.Rect.H-1
	for x := x0; x <= x1; x++ {
		dst.Blend(x, y0, c.R, c.G, c.B, 1)
		dst.Blend(x, y1, c.R, c.G, c.B, 1)
	}
	for y := y0 + 1; y < y1; y++ {
		dst.Blend(x0, y, c.R, c.G, c.B, 1)
		dst.Blend(x1, y, c.R, c.G, c.B, 1)
	}
}

// Blit 把位图最近邻缩放到 Rect 后逐像素按 alpha 混合。
type Blit struct {
	Rect   Rect
	Bitmap *Bitmap
}

func (b *Blit) Paint(dst Target) {
	if b.Bitmap == nil || b.Bitmap.img == nil || b.Rect.W <= 0 || b.Rect.H <= 0 {
		return
	}
	src := b.Bitmap.img
	scaled := image.NewNRGBA(image.Rect(0, 0, b.Rect.W, b.Rect.H))
	if src.Bounds().Dx() == b.Rect.W && src.Bounds().Dy() == b.Rect.H {
		draw.Draw(scaled, scaled.Bounds(), src, src.Bounds().Min, draw.Src)
	} else {
		xdraw.NearestNeighbor.Scale(scaled, scaled.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	}
	for y := 0; y < b.Rect.H; y++ {
		for x := 0; x < b.Rect.W; x++ {
			i := scaled.PixOffset(x, y)
			a := scaled.Pix[i+3]
			if a == 0 {
				continue
			}
			dst.Blend(b.Rect.X+x, b.Rect.Y+y, scaled.Pix[i], scaled.Pix[i+1], scaled.Pix[i+2], float64(a)/255)
		}
	}
}

// Glyphs 从 Origin 开始逐行绘制文本，每行下移一个行高，所有行的横向起点相同。
type Glyphs struct {
	Lines  []string
	Face   Face
	Color  Color
	Origin image.Point
}

func (g *Glyphs) Paint(dst Target) {
	if g.Face == nil {
		return
	}
	c := g.Color
	y := g.Origin.Y
	lh := g.Face.LineHeight()
	for _, line := range g.Lines {
		mask := g.Face.Mask(line)
		if mask != nil {
			bounds := mask.Bounds()
			for my := bounds.Min.Y; my < bounds.Max.Y; my++ {
				for mx := bounds.Min.X; mx < bounds.Max.X; mx++ {
					v := mask.AlphaAt(mx, my).A
					if v == 0 {
						continue
					}
					dst.Blend(g.Origin.X+mx, y+my, c.R, c.G, c.B, float64(v)/255)
				}
			}
		}
		y += lh
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
