package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/tableau/fonts"
	"github.com/ByLCY/tableau/paint"
	"github.com/ByLCY/tableau/renderer"
)

// 像素与物理尺寸的换算，按 96 DPI 计。
const (
	PxToMm = 25.4 / 96
	PxToPt = 72.0 / 96
)

// lineWidth 为一像素宽的线条（mm）。
const lineWidth = PxToMm

// FontSource 提供字体文件原始数据，fonts.Cache 实现了它。
type FontSource interface {
	Bytes(family string) ([]byte, error)
}

// Renderer 把绘制动作回放为矢量 PDF，坐标与光栅输出一致。
type Renderer struct {
	fonts FontSource
	meta  Meta

	fontMu         sync.Mutex
	fontFamilies   map[string]*fontFamilyEntry
	fallbackFamily *canvas.FontFamily
}

var _ renderer.Renderer = (*Renderer)(nil)

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

// Meta 写入 PDF 文档信息。
type Meta struct {
	Title    string
	Subject  string
	Keywords []string
	Author   string
	Creator  string
}

// Options configures the canvas renderer.
type Options struct {
	Fonts FontSource
	Meta  Meta
}

// Page 是一页的全部绘制动作。
type Page struct {
	Name    string
	Actions []paint.Action
}

// NewRenderer creates a canvas-based renderer.
func NewRenderer(opts Options) *Renderer {
	return &Renderer{
		fonts:        opts.Fonts,
		meta:         opts.Meta,
		fontFamilies: map[string]*fontFamilyEntry{},
	}
}

// Render 把一帧输出为单页 PDF。
func (r *Renderer) Render(actions []paint.Action, width, height int) ([]byte, error) {
	return r.RenderPages([]Page{{Actions: actions}}, width, height)
}

// RenderPages 每个 Page 输出为 PDF 中的一页，页面尺寸相同。
func (r *Renderer) RenderPages(pages []Page, width, height int) ([]byte, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("画布尺寸无效: %dx%d", width, height)
	}
	w, h := toMm(width), toMm(height)

	var buf bytes.Buffer
	writer := pdf.New(&buf, w, h, nil)
	r.applyMeta(writer)
	for i, page := range pages {
		if i > 0 {
			writer.NewPage(w, h)
		}
		c := canvas.New(w, h)
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

		if err := r.drawPage(ctx, page.Actions); err != nil {
			return nil, fmt.Errorf("页面 %s: %w", page.Name, err)
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF) {
	if writer == nil {
		return
	}
	keywords := strings.Join(r.meta.Keywords, ", ")
	writer.SetInfo(r.meta.Title, r.meta.Subject, keywords, r.meta.Author, r.meta.Creator)
}

// drawPage 按顺序回放动作，后画的覆盖先画的。
func (r *Renderer) drawPage(ctx *canvas.Context, actions []paint.Action) error {
	for _, action := range actions {
		switch a := action.(type) {
		case *paint.Fill:
			r.drawFill(ctx, a)
		case *paint.RectOutline:
			r.drawOutline(ctx, a)
		case *paint.Line:
			r.drawLine(ctx, a)
		case *paint.Blit:
			r.drawBlit(ctx, a)
		case *paint.Glyphs:
			if err := r.drawGlyphs(ctx, a); err != nil {
				return err
			}
		case nil:
		default:
			return fmt.Errorf("不支持的绘制动作 %T", action)
		}
	}
	return nil
}

func (r *Renderer) drawFill(ctx *canvas.Context, f *paint.Fill) {
	if f.Rect.W <= 0 || f.Rect.H <= 0 {
		return
	}
	ctx.SetFillColor(colorFromPaint(f.Color))
	ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
	ctx.DrawPath(toMm(f.Rect.X), toMm(f.Rect.Y), canvas.Rectangle(toMm(f.Rect.W), toMm(f.Rect.H)))
}

// drawOutline 描边画在最外一圈像素的中心线上。
func (r *Renderer) drawOutline(ctx *canvas.Context, o *paint.RectOutline) {
	if o.Rect.W <= 0 || o.Rect.H <= 0 {
		return
	}
	half := lineWidth / 2
	ctx.SetFillColor(color.RGBA{0, 0, 0, 0})
	ctx.SetStrokeColor(colorFromPaint(o.Color))
	ctx.SetStrokeWidth(lineWidth)
	ctx.DrawPath(toMm(o.Rect.X)+half, toMm(o.Rect.Y)+half,
		canvas.Rectangle(toMm(o.Rect.W)-lineWidth, toMm(o.Rect.H)-lineWidth))
}

func (r *Renderer) drawLine(ctx *canvas.Context, ln *paint.Line) {
	if ln.P1 == ln.P2 {
		return
	}
	half := lineWidth / 2
	ctx.SetFillColor(color.RGBA{0, 0, 0, 0})
	ctx.SetStrokeColor(colorFromPaint(ln.Color))
	ctx.SetStrokeWidth(lineWidth)
	p := &canvas.Path{}
	p.MoveTo(0, 0)
	p.LineTo(toMm(ln.P2.X-ln.P1.X), toMm(ln.P2.Y-ln.P1.Y))
	ctx.DrawPath(toMm(ln.P1.X)+half, toMm(ln.P1.Y)+half, p)
}

// drawBlit 以目标宽度换算分辨率，图片保持原始像素嵌入。
func (r *Renderer) drawBlit(ctx *canvas.Context, b *paint.Blit) {
	if b.Bitmap == nil || b.Bitmap.Image() == nil || b.Rect.W <= 0 || b.Rect.H <= 0 {
		return
	}
	dpmm := float64(b.Bitmap.Width()) / toMm(b.Rect.W)
	if dpmm <= 0 {
		dpmm = 1
	}
	ctx.DrawImage(toMm(b.Rect.X), toMm(b.Rect.Y), b.Bitmap.Image(), canvas.DPMM(dpmm))
}

// drawGlyphs 每行左对齐，行距使用排版时的像素行高，保证与光栅输出的位置一致。
func (r *Renderer) drawGlyphs(ctx *canvas.Context, g *paint.Glyphs) error {
	if g.Face == nil || len(g.Lines) == 0 {
		return nil
	}
	face, err := r.fontFace(g.Face.Family(), g.Face.Size()*PxToPt, g.Color)
	if err != nil {
		return err
	}
	// 基线位置：行顶部加上字体上升部（mm）
	ascent := face.Metrics().Ascent
	lineHeight := toMm(g.Face.LineHeight())
	x := toMm(g.Origin.X)
	cursorY := toMm(g.Origin.Y)
	for _, line := range g.Lines {
		if line != "" {
			ctx.DrawText(x, cursorY+ascent, canvas.NewTextLine(face, line, canvas.Left))
		}
		cursorY += lineHeight
	}
	return nil
}

func (r *Renderer) fontFace(family string, sizePt float64, col paint.Color) (*canvas.FontFace, error) {
	fam, style, err := r.ensureFontFamily(family)
	if err != nil {
		return nil, err
	}
	return fam.Face(sizePt, colorFromPaint(col), style, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(name string) (*canvas.FontFamily, canvas.FontStyle, error) {
	if name == "" {
		name = fonts.DefaultFamily
	}
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if entry, ok := r.fontFamilies[name]; ok {
		return entry.family, entry.style, nil
	}

	style := parseFontStyle(name)
	family := canvas.NewFontFamily(name)
	if err := r.loadFontIntoFamily(family, name, style); err != nil {
		fallback, fbStyle, fbErr := r.fallback()
		if fbErr != nil {
			return nil, canvas.FontRegular, err
		}
		r.fontFamilies[name] = &fontFamilyEntry{family: fallback, style: fbStyle}
		return fallback, fbStyle, nil
	}

	entry := &fontFamilyEntry{family: family, style: style}
	r.fontFamilies[name] = entry
	return family, style, nil
}

func (r *Renderer) loadFontIntoFamily(family *canvas.FontFamily, name string, style canvas.FontStyle) error {
	var (
		data []byte
		err  error
	)
	if r.fonts != nil {
		data, err = r.fonts.Bytes(name)
	} else {
		data, err = fonts.Load(name)
	}
	if err != nil {
		return err
	}
	return family.LoadFont(data, 0, style)
}

func (r *Renderer) fallback() (*canvas.FontFamily, canvas.FontStyle, error) {
	if r.fallbackFamily != nil {
		return r.fallbackFamily, canvas.FontRegular, nil
	}
	data, err := fonts.Load(fonts.DefaultFamily)
	if err != nil {
		return nil, canvas.FontRegular, err
	}
	family := canvas.NewFontFamily("tableau-fallback")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, canvas.FontRegular, err
	}
	r.fallbackFamily = family
	return family, canvas.FontRegular, nil
}

// parseFontStyle 从字体族名的后缀推断字重与斜体，例如 "Go-Bold"、"Inter-SemiBoldItalic"。
func parseFontStyle(family string) canvas.FontStyle {
	i := strings.LastIndexByte(family, '-')
	if i < 0 {
		return canvas.FontRegular
	}
	s := strings.ToLower(family[i+1:])
	result := canvas.FontRegular
	switch {
	case strings.Contains(s, "black"):
		result = canvas.FontBlack
	case strings.Contains(s, "extrabold"):
		result = canvas.FontExtraBold
	case strings.Contains(s, "semibold"), strings.Contains(s, "demibold"):
		result = canvas.FontSemiBold
	case strings.Contains(s, "bold"):
		result = canvas.FontBold
	case strings.Contains(s, "medium"):
		result = canvas.FontMedium
	case strings.Contains(s, "light"):
		result = canvas.FontLight
	}
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		result |= canvas.FontItalic
	}
	return result
}

func colorFromPaint(c paint.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// toMm 将像素转换为毫米。
func toMm(px int) float64 { return float64(px) * PxToMm }
