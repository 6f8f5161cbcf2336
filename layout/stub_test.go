package layout

import (
	"errors"
	"image"

	"github.com/ByLCY/tableau/paint"
)

// stubNode 测量为固定尺寸；fill 为 true 时直接占满分到的空间。
type stubNode struct {
	leaf
	w, h           int
	fill           bool
	availW, availH int
}

func newStub(w, h int) *stubNode { return &stubNode{w: w, h: h} }

func growStub(weightW, weightH int) *stubNode {
	s := &stubNode{fill: true}
	s.geo.SetGrow(weightW, weightH)
	return s
}

func (s *stubNode) Kind() string { return "Stub" }

func (s *stubNode) Measure(availW, availH int) {
	s.availW, s.availH = availW, availH
	if s.fill {
		s.geo.SetSize(availW, availH)
		return
	}
	s.geo.SetSize(s.w, s.h)
}

func (s *stubNode) Position(x, y int) error { return s.position(s.Kind(), x, y) }

func (s *stubNode) PaintActions() []paint.Action {
	return []paint.Action{&paint.Fill{Rect: s.geo.Rect()}}
}

// stubFace 每个字符宽 advance 像素，行高固定。
type stubFace struct {
	advance, height int
}

func (f stubFace) Family() string  { return "stub" }
func (f stubFace) Size() float64   { return float64(f.height) }
func (f stubFace) LineHeight() int { return f.height }
func (f stubFace) Advance(s string) int {
	return len([]rune(s)) * f.advance
}
func (f stubFace) Mask(s string) *image.Alpha {
	return image.NewAlpha(image.Rect(0, 0, f.Advance(s), f.height))
}

var errMissingFont = errors.New("missing font")

// stubFonts 为所有字体族返回同一个 stubFace，可按族名模拟失败。
type stubFonts struct {
	face    stubFace
	missing map[string]bool
	calls   []float64
}

func (s *stubFonts) Face(family string, size float64) (paint.Face, error) {
	s.calls = append(s.calls, size)
	if s.missing[family] {
		return nil, errMissingFont
	}
	return s.face, nil
}
