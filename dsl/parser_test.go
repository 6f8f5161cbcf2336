package dsl_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ByLCY/tableau/dsl"
)

const samplePages = `
// 共享资源
color Accent = #0F62FE

style Base {
  size: 18
  color: #F0F0F0
}

style Title extends Base {
  size: 40px
}

page clock {
  seconds: 30
  background: #000000

  column align center justify center grow 1 {
    clock showdate true
    text style Title { "Hello, ${weather.name}!\nsecond line" }
    rule dir horizontal color Accent
  }
}

page photos {
  seconds: 15
  image folder "photos" max-width 800
}
`

func TestParseDocument(t *testing.T) {
	doc, err := dsl.ParseString(samplePages)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(doc.Sections) != 5 {
		t.Fatalf("expected 5 sections, got %d", len(doc.Sections))
	}

	accent := doc.Sections[0].Color
	if accent == nil || accent.Name != "Accent" || accent.Value != "#0F62FE" {
		t.Fatalf("unexpected color section: %+v", doc.Sections[0])
	}

	title := doc.Sections[2].Style
	if title == nil || title.Name != "Title" || title.Extends != "Base" {
		t.Fatalf("unexpected style section: %+v", doc.Sections[2])
	}
	size := title.Block.Statements[0].Assignment
	if size == nil || size.Key != "size" || size.Value.Number == nil || *size.Value.Number != "40px" {
		t.Fatalf("expected size assignment, got %+v", title.Block.Statements[0])
	}

	pages := doc.Pages()
	if len(pages) != 2 || pages[0].Name != "clock" || pages[1].Name != "photos" {
		t.Fatalf("unexpected pages: %+v", pages)
	}
	if doc.Page("photos") != pages[1] || doc.Page("missing") != nil {
		t.Fatalf("Page lookup mismatch")
	}

	page := pages[0]
	seconds := page.Block.Statements[0].Assignment
	if seconds == nil || seconds.Key != "seconds" || *seconds.Value.Number != "30" {
		t.Fatalf("expected seconds assignment, got %+v", page.Block.Statements[0])
	}
	bg := page.Block.Statements[1].Assignment
	if bg == nil || bg.Value.Color == nil || *bg.Value.Color != "#000000" {
		t.Fatalf("expected background color, got %+v", page.Block.Statements[1])
	}

	column := page.Block.Statements[2].Command
	if column == nil || column.Name != "column" {
		t.Fatalf("expected column command, got %+v", page.Block.Statements[2])
	}
	if got := tokensToString(column.Args); got != "align center justify center grow 1" {
		t.Fatalf("unexpected column args: %s", got)
	}
	if column.Block == nil || len(column.Block.Statements) != 3 {
		t.Fatalf("column body should have 3 statements")
	}

	textCmd := column.Block.Statements[1].Command
	if textCmd == nil || textCmd.Name != "text" {
		t.Fatalf("expected text command, got %+v", column.Block.Statements[1])
	}
	if textCmd.Block == nil || textCmd.Block.Statements[0].Text == nil {
		t.Fatalf("text command missing literal content")
	}
	got := string(textCmd.Block.Statements[0].Text.Value)
	if !strings.Contains(got, "${weather.name}") || !strings.Contains(got, "\n") {
		t.Fatalf("text literal should keep placeholder and newline, got %q", got)
	}

	rule := column.Block.Statements[2].Command
	if rule == nil || rule.Args[3].Value != "Accent" {
		t.Fatalf("unexpected rule command: %+v", rule)
	}

	img := pages[1].Block.Statements[1].Command
	if img == nil || img.Name != "image" {
		t.Fatalf("expected image command, got %+v", pages[1].Block.Statements[1])
	}
	if img.Args[1].Type != "String" || img.Args[1].Value != "photos" {
		t.Fatalf("string arg should be unquoted: %+v", img.Args[1])
	}
}

func TestParseRejectsUnknownSection(t *testing.T) {
	if _, err := dsl.ParseString("widget foo {}"); err == nil {
		t.Fatalf("expected error for unknown top-level section")
	}
}

func TestValidateReportsDuplicates(t *testing.T) {
	doc, err := dsl.ParseString(`
color Accent #FF0000
color Accent #00FF00
page home {
  seconds: 5
}
page home {
  seconds: 6
}
style home {
  size: 10
}
`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	err = doc.Validate()
	if err == nil {
		t.Fatalf("expected duplicate definitions to fail validation")
	}
	msg := err.Error()
	if !strings.Contains(msg, "color Accent") || !strings.Contains(msg, "page home") {
		t.Fatalf("missing duplicate report: %s", msg)
	}
	// 不同种类的同名定义互不冲突。
	if strings.Contains(msg, "style home") {
		t.Fatalf("style and page with the same name should not clash: %s", msg)
	}
}

func TestExpressionValue(t *testing.T) {
	doc, err := dsl.ParseString("page p {\n  background: Accent\n  title: f(a, b) tail\n}\n")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	stmts := doc.Page("p").Block.Statements
	bg := stmts[0].Assignment.Value.Expr
	if bg == nil || len(bg.Parts) != 1 || bg.Parts[0].Value != "Accent" {
		t.Fatalf("expected single-token expression, got %+v", stmts[0].Assignment.Value)
	}
	title := stmts[1].Assignment.Value.Expr
	if title == nil || tokensToString(title.Parts) != "f ( a , b ) tail" {
		t.Fatalf("comma inside parentheses should not end the expression: %+v", title)
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.page")
	if err := os.WriteFile(good, []byte(samplePages), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := dsl.ParseFile(good)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if len(doc.Pages()) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(doc.Pages()))
	}

	bad := filepath.Join(dir, "bad.page")
	if err := os.WriteFile(bad, []byte("page broken {\n  text \"x\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := dsl.ParseFile(bad); err == nil || !strings.Contains(err.Error(), "bad.page") {
		t.Fatalf("expected error mentioning the file name, got %v", err)
	}
	if _, err := dsl.ParseFile(filepath.Join(dir, "missing.page")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func tokensToString(parts []*dsl.Lexeme) string {
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		values = append(values, p.Value)
	}
	return strings.Join(values, " ")
}
