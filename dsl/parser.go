// Package dsl 解析页面描述文件（.page）。
package dsl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	pageLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{3}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{8})`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `-?(?:\d+\.\d+|\d+)(?:px|%)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[][(),.=+\-*/%<>!?;:|$]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	tokenNames  = invertSymbols(pageLexer.Symbols())
	newlineType = mustTokenType("Newline")
	lbraceType  = mustTokenType("LBrace")
	rbraceType  = mustTokenType("RBrace")
	symbolType  = mustTokenType("Symbol")
	stringType  = mustTokenType("String")

	documentParser = participle.MustBuild[Document](
		participle.Lexer(pageLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
		participle.UseLookahead(2),
	)
)

// Document 是一个 .page 文件：若干页面以及它们共享的 style/color 定义。
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Sections []*Section     `parser:"Newline* ( @@ Newline* )*"`
}

// Section 是顶层定义之一。
type Section struct {
	Style *StyleSection `parser:"  @@"`
	Color *ColorSection `parser:"| @@"`
	Page  *PageSection  `parser:"| @@"`
}

// Kind returns the human-readable section type.
func (s *Section) Kind() string {
	switch {
	case s == nil:
		return "unknown"
	case s.Style != nil:
		return "style"
	case s.Color != nil:
		return "color"
	case s.Page != nil:
		return "page"
	default:
		return "unknown"
	}
}

func (s *Section) name() (string, lexer.Position) {
	switch {
	case s.Style != nil:
		return s.Style.Name, s.Style.Pos
	case s.Color != nil:
		return s.Color.Name, s.Color.Pos
	case s.Page != nil:
		return s.Page.Name, s.Page.Pos
	}
	return "", lexer.Position{}
}

// StyleSection 定义可复用的属性集合，可继承另一个 style。
type StyleSection struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Name    string         `parser:"'style' @Ident"`
	Extends string         `parser:"( 'extends' @Ident )?"`
	Block   *Block         `parser:"@@"`
}

// ColorSection 为 #RRGGBB 颜色命名，例如 color Accent = #0F62FE。
type ColorSection struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"'color' @Ident '='?"`
	Value string         `parser:"@Color"`
}

// PageSection 是一个可展示的页面，块内赋值为页面属性，命令为根容器的子节点。
type PageSection struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"'page' @Ident"`
	Block *Block         `parser:"@@"`
}

// Pages 按声明顺序返回所有页面。
func (d *Document) Pages() []*PageSection {
	if d == nil {
		return nil
	}
	var pages []*PageSection
	for _, s := range d.Sections {
		if s.Page != nil {
			pages = append(pages, s.Page)
		}
	}
	return pages
}

// Page 按名称查找页面，不存在时返回 nil。
func (d *Document) Page(name string) *PageSection {
	for _, p := range d.Pages() {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Validate 检查同类定义是否重名，所有问题合并返回。
func (d *Document) Validate() error {
	if d == nil {
		return errors.New("文档为空")
	}
	seen := map[string]lexer.Position{}
	var errs []error
	for _, s := range d.Sections {
		name, pos := s.name()
		key := s.Kind() + " " + name
		if prev, ok := seen[key]; ok {
			errs = append(errs, fmt.Errorf("%s: %s 重复定义（首次出现于 %s）", pos, key, prev))
			continue
		}
		seen[key] = pos
	}
	return errors.Join(errs...)
}

// Block 是花括号包围的语句列表。
type Block struct {
	Statements []*Statement `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Statement 为块内的一条语句：赋值、节点命令或文本字面量。
type Statement struct {
	Assignment *Assignment  `parser:"  @@"`
	Command    *Command     `parser:"| @@"`
	Text       *TextLiteral `parser:"| @@"`
}

// Assignment uses colon syntax (key: value).
type Assignment struct {
	Key   string `parser:"@Ident"`
	Value *Value `parser:"':' Newline* @@"`
}

// Command 是一个节点：类型名、可选的位置参数与 key value 属性对，以及可选的子块。
type Command struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"@Ident"`
	Args  []*Lexeme      `parser:"@@*"`
	Block *Block         `parser:"( Newline* @@ )?"`
}

// TextLiteral 是块内单独成行的字符串，作为文本内容。
type TextLiteral struct {
	Value StringLiteral `parser:"@String"`
}

// Value 是属性值；无法归类的写法（例如命名颜色 Accent）按原始记号保存。
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	Expr   *Expression    `parser:"| @@"`
}

// Expression 保存一串原始记号，直到行尾、分号或块边界。
type Expression struct {
	Parts []*Lexeme
}

// Parse implements participle.Parseable for Expression.
func (e *Expression) Parse(lex *lexer.PeekingLexer) error {
	var parts []*Lexeme
	depth := 0
	for {
		tok := lex.Peek()
		if atBoundary(tok, depth) {
			break
		}
		lexeme, err := consumeLexeme(lex)
		if err != nil {
			return err
		}
		switch lexeme.Raw {
		case "(", "[":
			depth++
		case ")", "]":
			depth = max(depth-1, 0)
		}
		parts = append(parts, lexeme)
	}
	if len(parts) == 0 {
		return participle.NextMatch
	}
	e.Parts = parts
	return nil
}

// Lexeme 是单个记号，用作命令参数与表达式的组成部分。
type Lexeme struct {
	Type string `json:"type"`
	// Value 对字符串为去引号后的内容，其余与 Raw 相同。
	Value string         `json:"value"`
	Raw   string         `json:"raw"`
	Pos   lexer.Position `json:"-"`
}

// Parse implements participle.Parseable so Lexeme can act as a grammar atom.
func (l *Lexeme) Parse(lex *lexer.PeekingLexer) error {
	if endsArgs(lex.Peek()) {
		return participle.NextMatch
	}
	lexeme, err := consumeLexeme(lex)
	if err != nil {
		return err
	}
	*l = *lexeme
	return nil
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// Parse 从 r 解析页面文档。
func Parse(r io.Reader) (*Document, error) {
	return documentParser.Parse("", r)
}

// ParseString parses page content from a string.
func ParseString(input string) (*Document, error) {
	return documentParser.ParseString("", input)
}

// ParseFile 解析并校验 path 指向的 .page 文件，错误位置带文件名。
func ParseFile(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开页面文件 %s: %w", path, err)
	}
	defer file.Close()
	doc, err := documentParser.Parse(path, file)
	if err != nil {
		return nil, fmt.Errorf("解析页面文件失败: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func consumeLexeme(lex *lexer.PeekingLexer) (*Lexeme, error) {
	tok := lex.Next()
	if tok.EOF() {
		return nil, participle.NextMatch
	}
	val := tok.Value
	if tok.Type == stringType {
		unquoted, err := strconv.Unquote(tok.Value)
		if err != nil {
			return nil, err
		}
		val = unquoted
	}
	name, ok := tokenNames[tok.Type]
	if !ok {
		name = fmt.Sprintf("#%d", tok.Type)
	}
	return &Lexeme{Type: name, Value: val, Raw: tok.Value, Pos: tok.Pos}, nil
}

// endsArgs 报告 tok 是否结束命令的参数列表。
func endsArgs(tok *lexer.Token) bool {
	if tok == nil || tok.EOF() {
		return true
	}
	switch tok.Type {
	case newlineType, lbraceType, rbraceType:
		return true
	case symbolType:
		return tok.Value == ";"
	}
	return false
}

// atBoundary 报告 tok 是否结束当前表达式；括号内部（depth > 0）只有文件结束算边界。
func atBoundary(tok *lexer.Token, depth int) bool {
	if tok == nil || tok.EOF() {
		return true
	}
	if depth > 0 {
		return false
	}
	if endsArgs(tok) {
		return true
	}
	return tok.Type == symbolType && (tok.Value == "," || tok.Value == "]")
}

func invertSymbols(symbols map[string]lexer.TokenType) map[lexer.TokenType]string {
	out := make(map[lexer.TokenType]string, len(symbols))
	for name, tt := range symbols {
		out[tt] = name
	}
	return out
}

func mustTokenType(name string) lexer.TokenType {
	tt, ok := pageLexer.Symbols()[name]
	if !ok {
		panic(fmt.Sprintf("token %s not defined", name))
	}
	return tt
}
