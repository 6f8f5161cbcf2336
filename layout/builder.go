package layout

import (
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ByLCY/tableau/binding"
	"github.com/ByLCY/tableau/dsl"
	"github.com/ByLCY/tableau/paint"
)

// Page 是一个页面的构建结果。
type Page struct {
	Name    string
	Seconds int
	Root    *Container
}

// defaultSeconds 为页面未设置 seconds 时的展示时长。
const defaultSeconds = 30

// Style 用于描述可继承的属性集合。
type Style struct {
	Name    string            `json:"name"`
	Extends string            `json:"extends,omitempty"`
	Props   map[string]string `json:"props"`
}

// ResourceSet 记录文档中的颜色与样式定义。
type ResourceSet struct {
	Colors map[string]paint.Color `json:"colors"`
	Styles map[string]Style       `json:"styles"`
}

// Element 是 DSL 命令合并样式后的中间形式，供各类节点的构造函数使用。
type Element struct {
	Kind string
	// Arg 为属性对之前的位置参数，例如 text "Hello" 中的 "Hello"。
	Arg      string
	Attrs    map[string]string
	Text     string
	Children []*Element
}

// Attr 返回属性值（去掉首尾空白）。
func (e *Element) Attr(key string) (string, bool) {
	v, ok := e.Attrs[key]
	return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
}

// Build 根据文档中名为 name 的页面构建节点树。
func Build(doc *dsl.Document, name string, opts BuildOptions) (*Page, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	section := doc.Page(name)
	if section == nil {
		return nil, fmt.Errorf("文档中缺少 page %s", name)
	}
	res, err := collectResources(doc)
	if err != nil {
		return nil, err
	}
	ctx := newContext(name, res, opts)
	return ctx.buildPage(section)
}

// Context 保存一次页面构建过程中的共享状态。
type Context struct {
	page string
	opts BuildOptions
	res  ResourceSet
	rng  *rand.Rand
}

func newContext(page string, res ResourceSet, opts BuildOptions) *Context {
	if opts.Bitmaps == nil {
		opts.Bitmaps = NewBitmapCache()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Context{page: page, opts: opts, res: res, rng: rng}
}

func (c *Context) buildPage(section *dsl.PageSection) (*Page, error) {
	if section.Block == nil {
		return nil, fmt.Errorf("page %s 缺少内容", section.Name)
	}
	page := &Page{Name: section.Name, Seconds: defaultSeconds}

	root := &Element{Kind: "container", Attrs: map[string]string{}}
	for _, stmt := range section.Block.Statements {
		switch {
		case stmt.Assignment != nil:
			root.Attrs[stmt.Assignment.Key] = valueToString(stmt.Assignment.Value)
		case stmt.Command != nil:
			root.Children = append(root.Children, c.element(stmt.Command))
		case stmt.Text != nil:
			root.Children = append(root.Children, &Element{Kind: "text", Text: string(stmt.Text.Value), Attrs: map[string]string{}})
		}
	}
	if v, ok := root.Attr("seconds"); ok {
		page.Seconds = c.intValue("page", "seconds", v, defaultSeconds)
	}
	// 根容器撑满整个屏幕。
	if _, ok := root.Attr("grow"); !ok {
		root.Attrs["grow"] = "1"
	}

	node, err := c.Build(root)
	if err != nil {
		return nil, err
	}
	container, ok := node.(*Container)
	if !ok {
		return nil, fmt.Errorf("page %s 根节点必须是容器", section.Name)
	}
	page.Root = container
	return page, nil
}

// element 把 DSL 命令转换为 Element：样式属性 < 命令参数 < 块内赋值。
func (c *Context) element(cmd *dsl.Command) *Element {
	arg, attrs := parseArgs(cmd.Args)
	if name, ok := attrs["style"]; ok {
		delete(attrs, "style")
		attrs = mergeStyleAttributes(name, attrs, c.res.Styles)
	}
	el := &Element{Kind: cmd.Name, Arg: arg, Attrs: attrs}
	if cmd.Block == nil {
		return el
	}
	var texts []string
	for _, stmt := range cmd.Block.Statements {
		switch {
		case stmt.Assignment != nil:
			el.Attrs[stmt.Assignment.Key] = valueToString(stmt.Assignment.Value)
		case stmt.Command != nil:
			el.Children = append(el.Children, c.element(stmt.Command))
		case stmt.Text != nil:
			texts = append(texts, string(stmt.Text.Value))
		}
	}
	el.Text = strings.Join(texts, "\n")
	return el
}

// Build 按 kind 查找构造函数创建节点；未知类型按容器处理。
func (c *Context) Build(el *Element) (Node, error) {
	ctor, ok := lookupKind(el.Kind)
	if !ok {
		Logger().Warn("未知节点类型，按容器处理", "page", c.page, "kind", el.Kind)
		ctor = containerKind(Column)
	}
	node, err := ctor(c, el)
	if err != nil {
		return nil, fmt.Errorf("构建 %s 失败: %w", el.Kind, err)
	}
	return node, nil
}

// BuildChildren 依次构建子元素。
func (c *Context) BuildChildren(el *Element) ([]Node, error) {
	nodes := make([]Node, 0, len(el.Children))
	for _, child := range el.Children {
		n, err := c.Build(child)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// Color 解析命名颜色或 #RRGGBB，无法识别时为黑色。
func (c *Context) Color(value string) paint.Color {
	if col, ok := c.res.Colors[value]; ok {
		return col
	}
	col := paint.ParseColor(value)
	if col == paint.Black && !strings.EqualFold(value, "#000000") {
		Logger().Warn("颜色无效，使用黑色", "page", c.page, "value", value)
	}
	return col
}

// ColorAttr 读取颜色属性，未设置时返回 def。
func (c *Context) ColorAttr(el *Element, key string, def paint.Color) paint.Color {
	if v, ok := el.Attr(key); ok {
		return c.Color(v)
	}
	return def
}

// Face 返回字体；失败时记录警告并返回 nil，使节点测量为 0。
func (c *Context) Face(family string, size float64) paint.Face {
	if c.opts.Fonts == nil {
		Logger().Warn("未配置字体来源", "page", c.page, "family", family)
		return nil
	}
	face, err := c.opts.Fonts.Face(family, size)
	if err != nil {
		Logger().Warn("字体不可用", "page", c.page, "family", family, "size", size, "err", err)
		return nil
	}
	return face
}

// Bitmap 加载相对 BaseDir 的图片；失败时记录警告并返回 nil。
func (c *Context) Bitmap(path string) *paint.Bitmap {
	bmp, err := c.opts.Bitmaps.Load(c.resolvePath(path))
	if err != nil {
		Logger().Warn("图片不可用", "page", c.page, "src", path, "err", err)
		return nil
	}
	return bmp
}

// Interpolate 把 ${record.path|filter} 替换为数据源中的值。
func (c *Context) Interpolate(s string) string {
	return binding.Interpolate(s, c.opts.Data)
}

// Lookup 按 record.path 从数据源取值。
func (c *Context) Lookup(path string) (any, bool) {
	if c.opts.Data == nil {
		return nil, false
	}
	return binding.Resolve(c.opts.Data, path)
}

// With 返回一个数据源额外带有 name 与 index 两条记录的子上下文，其余状态共享。
func (c *Context) With(name string, value any, index int) *Context {
	child := *c
	child.opts.Data = binding.With(binding.With(c.opts.Data, name, value), "index", index)
	return &child
}

// Now 返回构建时刻。
func (c *Context) Now() time.Time { return c.opts.Now() }

// Rand 返回本次构建使用的随机数源。
func (c *Context) Rand() *rand.Rand { return c.rng }

func (c *Context) resolvePath(p string) string {
	if filepath.IsAbs(p) || c.opts.BaseDir == "" {
		return p
	}
	return filepath.Join(c.opts.BaseDir, p)
}

// Pixels 解析长度属性，百分比相对 reference；未设置或无效时返回 def。
func (c *Context) Pixels(el *Element, key string, reference, def int) int {
	v, ok := el.Attr(key)
	if !ok {
		return def
	}
	l, ok := ParseLength(v)
	if !ok {
		Logger().Warn("长度无效", "page", c.page, "kind", el.Kind, "key", key, "value", v)
		return def
	}
	return l.Pixels(reference)
}

// Int 解析整数属性，未设置或无效时返回 def。
func (c *Context) Int(el *Element, key string, def int) int {
	v, ok := el.Attr(key)
	if !ok {
		return def
	}
	return c.intValue(el.Kind, key, v, def)
}

func (c *Context) intValue(kind, key, v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSuffix(v, "px"))
	if err != nil || n < 0 {
		Logger().Warn("整数无效", "page", c.page, "kind", kind, "key", key, "value", v)
		return def
	}
	return n
}

// Bool 解析 true/false/yes/no，未设置或无效时返回 def。
func (c *Context) Bool(el *Element, key string, def bool) bool {
	v, ok := el.Attr(key)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "true", "yes", "on", "1":
		return true
	case "false", "no", "off", "0":
		return false
	}
	Logger().Warn("布尔值无效", "page", c.page, "kind", el.Kind, "key", key, "value", v)
	return def
}

// Alignment 解析对齐属性，无法识别时使用 Start。
func (c *Context) Alignment(el *Element, key string) Alignment {
	v, ok := el.Attr(key)
	if !ok {
		return Start
	}
	a, ok := ParseAlignment(strings.ToLower(v))
	if !ok {
		Logger().Warn("对齐方式无效", "page", c.page, "kind", el.Kind, "key", key, "value", v)
	}
	return a
}

// Direction 解析方向属性，未设置时返回 def，无法识别时使用 Column。
func (c *Context) Direction(el *Element, def Direction) Direction {
	v, ok := el.Attr("dir")
	if !ok {
		return def
	}
	d, ok := ParseDirection(strings.ToLower(v))
	if !ok {
		Logger().Warn("方向无效", "page", c.page, "kind", el.Kind, "value", v)
	}
	return d
}

func collectResources(doc *dsl.Document) (ResourceSet, error) {
	res := ResourceSet{
		Colors: map[string]paint.Color{},
		Styles: map[string]Style{},
	}
	rawStyles := map[string]Style{}
	for _, section := range doc.Sections {
		switch {
		case section.Color != nil:
			res.Colors[section.Color.Name] = paint.ParseColor(section.Color.Value)
		case section.Style != nil:
			style := parseStyleResource(section.Style)
			rawStyles[style.Name] = style
		}
	}
	resolved, err := resolveStyles(rawStyles)
	if err != nil {
		return res, err
	}
	res.Styles = resolved
	return res, nil
}

func parseStyleResource(s *dsl.StyleSection) Style {
	style := Style{Name: s.Name, Extends: s.Extends, Props: map[string]string{}}
	if s.Block == nil {
		return style
	}
	for _, stmt := range s.Block.Statements {
		if stmt.Assignment == nil {
			continue
		}
		if val := valueToString(stmt.Assignment.Value); val != "" {
			style.Props[stmt.Assignment.Key] = val
		}
	}
	return style
}

func resolveStyles(styles map[string]Style) (map[string]Style, error) {
	resolved := map[string]Style{}
	visiting := map[string]bool{}

	var dfs func(name string) (Style, error)
	dfs = func(name string) (Style, error) {
		if style, ok := resolved[name]; ok {
			return style, nil
		}
		style, ok := styles[name]
		if !ok {
			return Style{}, fmt.Errorf("style %s 未定义", name)
		}
		if visiting[name] {
			return Style{}, fmt.Errorf("style 继承存在循环：%s", name)
		}
		visiting[name] = true

		props := map[string]string{}
		if style.Extends != "" {
			parent, err := dfs(style.Extends)
			if err != nil {
				return Style{}, err
			}
			for k, v := range parent.Props {
				props[k] = v
			}
		}
		for k, v := range style.Props {
			props[k] = v
		}
		style.Props = props
		resolved[name] = style
		delete(visiting, name)
		return style, nil
	}

	for name := range styles {
		if _, err := dfs(name); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

// parseArgs 把命令参数拆成可选的位置参数与 key value 属性对。
func parseArgs(args []*dsl.Lexeme) (string, map[string]string) {
	result := map[string]string{}
	cursor := 0
	var positional string
	if len(args)%2 == 1 {
		positional = args[0].Value
		cursor = 1
	}
	for cursor < len(args)-1 {
		result[args[cursor].Value] = args[cursor+1].Value
		cursor += 2
	}
	return positional, result
}

func mergeStyleAttributes(style string, inline map[string]string, styles map[string]Style) map[string]string {
	out := make(map[string]string)
	if s, ok := styles[style]; ok {
		for k, v := range s.Props {
			out[k] = v
		}
	} else {
		Logger().Warn("style 未定义", "style", style)
	}
	for k, v := range inline {
		out[k] = v
	}
	return out
}

func valueToString(val *dsl.Value) string {
	if val == nil {
		return ""
	}
	switch {
	case val.String != nil:
		return string(*val.String)
	case val.Number != nil:
		return *val.Number
	case val.Color != nil:
		return *val.Color
	case val.Expr != nil:
		var builder strings.Builder
		for _, part := range val.Expr.Parts {
			builder.WriteString(part.Value)
		}
		return builder.String()
	default:
		return ""
	}
}
