package layout

import (
	"image"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/ByLCY/tableau/paint"
)

// Text 是按字体度量自动折行的单色文本。
type Text struct {
	leaf
	content string
	face    paint.Face
	color   paint.Color
	lines   []string
}

// NewText 创建文本节点；face 为 nil 时节点测量为 0 且不绘制。
// 文本默认横向伸展（权重 1），纵向不伸展。
func NewText(content string, face paint.Face, color paint.Color) *Text {
	t := &Text{content: norm.NFC.String(content), face: face, color: color}
	t.geo.SetGrow(1, 0)
	return t
}

func (t *Text) Kind() string     { return "Textbox" }
func (t *Text) Content() string  { return t.content }
func (t *Text) Face() paint.Face { return t.face }

// Lines 返回最近一次 Measure 产生的行。
func (t *Text) Lines() []string { return t.lines }

func (t *Text) Measure(availW, availH int) {
	if t.face == nil {
		t.lines = nil
		t.geo.SetSize(0, 0)
		return
	}
	lines, w, h := Wrap(t.face, t.content, availW, availH)
	t.lines = lines
	t.geo.SetSize(w, h)
}

func (t *Text) Position(x, y int) error { return t.position(t.Kind(), x, y) }

// PaintActions 输出一个 Glyphs 动作，各行左对齐、依次下移一个行高。
func (t *Text) PaintActions() []paint.Action {
	if t.face == nil || len(t.lines) == 0 {
		return nil
	}
	return []paint.Action{&paint.Glyphs{
		Lines:  t.lines,
		Face:   t.face,
		Color:  t.color,
		Origin: image.Pt(t.geo.X, t.geo.Y),
	}}
}

// Wrap 贪心折行：每行尽量长，在最后一个能放下的空格处断开；
// 单个词比可用宽度还长时按字符硬断（每行至少一个字符）。
// 显式换行符总会断行，末尾的换行符忽略。下一行放不下时停止，剩余文本直接丢弃。
// 返回各行、最大行宽与总高度（行数 × 行高）。
func Wrap(face paint.Face, text string, availW, availH int) ([]string, int, int) {
	lh := face.LineHeight()
	if text == "" || lh <= 0 {
		return nil, 0, 0
	}
	var lines []string
	width, height := 0, 0
	paras := strings.Split(text, "\n")
	// 结尾的换行符不产生额外的空行。
	if n := len(paras); n > 1 && paras[n-1] == "" {
		paras = paras[:n-1]
	}
	for _, para := range paras {
		rest := strings.TrimLeft(para, " ")
		for first := true; first || rest != ""; first = false {
			if height+lh > availH {
				return lines, width, height
			}
			var line string
			line, rest = breakLine(face, rest, availW)
			rest = strings.TrimLeft(rest, " ")
			lines = append(lines, line)
			width = max(width, face.Advance(line))
			height += lh
		}
	}
	return lines, width, height
}

// breakLine 从 s 开头切出一行，返回该行（去掉尾部空格）与剩余部分。
func breakLine(face paint.Face, s string, availW int) (string, string) {
	whole := strings.TrimRight(s, " ")
	if face.Advance(whole) <= availW {
		return whole, ""
	}

	best := -1
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' {
			continue
		}
		cand := strings.TrimRight(s[:i], " ")
		if cand == "" {
			continue
		}
		if face.Advance(cand) > availW {
			break
		}
		best = i
	}
	if best >= 0 {
		return strings.TrimRight(s[:best], " "), s[best:]
	}

	// 没有可用的空格：按字符硬断。
	_, size := utf8.DecodeRuneInString(s)
	cut := size
	for i := size; i < len(s); {
		_, n := utf8.DecodeRuneInString(s[i:])
		if face.Advance(s[:i+n]) > availW {
			break
		}
		i += n
		cut = i
	}
	return s[:cut], s[cut:]
}
