package layout

import (
	"fmt"
	"image"

	"github.com/ByLCY/tableau/fonts"
	"github.com/ByLCY/tableau/paint"
)

// 内置节点类型的构造函数。

const (
	defaultFontSize  = 18
	clockTimeSize    = 200
	clockDateSize    = 40
	defaultRuleColor = "#F0F0F0"

	defaultRepeatName = "item"
)

// containerKind 返回默认方向为 dir 的容器构造函数（row/column 为 container 的别名）。
func containerKind(dir Direction) Constructor {
	return func(ctx *Context, el *Element) (Node, error) {
		c := newContainer(ctx, el, dir)
		children, err := ctx.BuildChildren(el)
		if err != nil {
			return nil, err
		}
		c.Append(children...)
		return c, nil
	}
}

// newContainer 按元素属性创建不含子节点的容器。
func newContainer(ctx *Context, el *Element, dir Direction) *Container {
	c := NewContainer(
		ctx.Direction(el, dir),
		ctx.Alignment(el, "align"),
		ctx.Alignment(el, "justify"),
		ctx.Int(el, "grow", 0),
		ctx.Pixels(el, "pad", ctx.opts.Width, 0),
	)
	for _, key := range []string{"background", "color"} {
		if v, ok := el.Attr(key); ok {
			col := ctx.Color(v)
			c.Background = &col
			break
		}
	}
	if v, ok := el.Attr("border"); ok {
		col := ctx.Color(v)
		c.Border = &col
	}
	if v, ok := el.Attr("background-image"); ok {
		c.BackgroundImage = ctx.Bitmap(ctx.Interpolate(v))
	}
	_, hasW := el.Attr("width")
	_, hasH := el.Attr("height")
	if hasW && hasH {
		c.Fixed = &image.Point{
			X: ctx.Pixels(el, "width", ctx.opts.Width, 0),
			Y: ctx.Pixels(el, "height", ctx.opts.Height, 0),
		}
	}
	return c
}

// buildRepeat 对 each 指向的数组逐项构建一次子块。当前元素以 as（默认 item）命名，
// 序号以 index 命名，二者都可在插值中引用；limit 大于 0 时最多展开 limit 项。
func buildRepeat(ctx *Context, el *Element) (Node, error) {
	c := newContainer(ctx, el, Column)
	path, ok := el.Attr("each")
	if !ok {
		Logger().Warn("repeat 缺少 each", "page", ctx.page)
		return c, nil
	}
	val, found := ctx.Lookup(path)
	items, isList := val.([]any)
	if !found || !isList {
		Logger().Warn("repeat 的数据不是数组", "page", ctx.page, "each", path, "found", found)
		return c, nil
	}
	if limit := ctx.Int(el, "limit", 0); limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	name := defaultRepeatName
	if v, ok := el.Attr("as"); ok {
		name = v
	}
	for i, item := range items {
		children, err := ctx.With(name, item, i).BuildChildren(el)
		if err != nil {
			return nil, fmt.Errorf("%s 第 %d 项: %w", path, i, err)
		}
		c.Append(children...)
	}
	return c, nil
}

func buildText(ctx *Context, el *Element) (Node, error) {
	content := el.Text
	if content == "" {
		if v, ok := el.Attr("content"); ok {
			content = v
		} else {
			content = el.Arg
		}
	}
	face := ctx.Face(fontFamily(el), fontSize(ctx, el, "size", defaultFontSize))
	t := NewText(ctx.Interpolate(content), face, ctx.ColorAttr(el, "color", paint.LightGray))
	if _, ok := el.Attr("grow"); ok {
		t.geo.SetGrow(ctx.Int(el, "grow", 1), 0)
	}
	return t, nil
}

// buildImage 的 src 与 folder 支持插值；图片不可用且设置了 alt 时改为显示 alt 文本。
func buildImage(ctx *Context, el *Element) (Node, error) {
	var bmp *paint.Bitmap
	if dir, ok := el.Attr("folder"); ok {
		dir = ctx.Interpolate(dir)
		path, err := PickImage(ctx.resolvePath(dir), ctx.Rand())
		if err != nil {
			Logger().Warn("随机图片不可用", "page", ctx.page, "folder", dir, "err", err)
		} else {
			bmp = ctx.Bitmap(path)
		}
	} else {
		src, ok := el.Attr("src")
		if !ok {
			src = el.Arg
		}
		if src == "" {
			Logger().Warn("image 缺少 src", "page", ctx.page)
		} else {
			bmp = ctx.Bitmap(ctx.Interpolate(src))
		}
	}
	if alt, ok := el.Attr("alt"); ok && bmp == nil {
		return buildText(ctx, &Element{Kind: "text", Text: alt, Attrs: el.Attrs})
	}
	maxW := ctx.Pixels(el, "max-width", ctx.opts.Width, 0)
	maxH := ctx.Pixels(el, "max-height", ctx.opts.Height, 0)
	return NewImage(bmp, maxW, maxH), nil
}

func buildRule(ctx *Context, el *Element) (Node, error) {
	return NewRule(ctx.Direction(el, Row), ctx.ColorAttr(el, "color", paint.ParseColor(defaultRuleColor))), nil
}

// buildClock 生成 "时:分" 大字与可选的 "星期, 日 月" 日期，纵向居中排列。
func buildClock(ctx *Context, el *Element) (Node, error) {
	now := ctx.Now()
	family := fontFamily(el)
	color := ctx.ColorAttr(el, "color", paint.LightGray)

	c := NewContainer(Column, Center, Start, 0, 0)
	timeStr := fmt.Sprintf("%d:%02d", now.Hour(), now.Minute())
	c.Append(NewText(timeStr, ctx.Face(family, fontSize(ctx, el, "time-size", clockTimeSize)), color))
	if ctx.Bool(el, "showdate", true) {
		dateStr := fmt.Sprintf("%s, %d %s", now.Weekday(), now.Day(), now.Month())
		c.Append(NewText(dateStr, ctx.Face(family, fontSize(ctx, el, "date-size", clockDateSize)), color))
	}
	return c, nil
}

func fontFamily(el *Element) string {
	if v, ok := el.Attr("font"); ok {
		return v
	}
	return fonts.DefaultFamily
}

func fontSize(ctx *Context, el *Element, key string, def int) float64 {
	if _, ok := el.Attr(key); !ok {
		if key == "size" {
			if _, ok := el.Attr("fontsize"); ok {
				key = "fontsize"
			}
		}
	}
	size := ctx.Pixels(el, key, def, def)
	if size <= 0 {
		return float64(def)
	}
	return float64(size)
}
