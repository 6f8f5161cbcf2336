package main

import (
	"bytes"
	"context"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ByLCY/tableau/config"
)

const testPages = `
page hello {
  seconds: 10
  background: #202020
  column align center justify center {
    text "Hello ${greeting.who|upper}" size 16
    rule
  }
}

page blank {
  background: #FFFFFF
}
`

func newTestApp(t *testing.T) (*app, string) {
	t.Helper()
	dir := t.TempDir()
	pagesDir := filepath.Join(dir, "pages")
	dataDir := filepath.Join(dir, "data")
	for _, d := range []string{pagesDir, dataDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(pagesDir, "main.page"), []byte(testPages), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "greeting.json"), []byte(`{"who":"world"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Width, cfg.Height = 200, 60
	cfg.PagesDir = pagesDir
	cfg.DataDir = dataDir
	cfg.FontDirs = nil
	return newApp(cfg, slog.New(slog.DiscardHandler)), dir
}

func TestRunWritesSelectedPage(t *testing.T) {
	a, dir := newTestApp(t)
	out := filepath.Join(dir, "out", "hello.png")
	pdfPath := filepath.Join(dir, "out", "hello.pdf")
	debugPath := filepath.Join(dir, "out", "hello.json")
	if err := a.run(context.Background(), options{page: "hello", out: out, pdf: pdfPath, debug: debugPath}); err != nil {
		t.Fatalf("run 返回错误: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("未生成 PNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("PNG 无法解码: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 60 {
		t.Fatalf("PNG 尺寸 %v，期望 200x60", b)
	}
	// 导出图像垂直翻转，(0,0) 对应缓冲区最底行，只有背景色。
	r, g, bl, _ := img.At(0, 0).RGBA()
	// 0x20 在 565 下量化为最近级别，允许一个级别的误差。
	near := func(v uint32) bool { return v>>8 >= 0x20-8 && v>>8 <= 0x20+8 }
	if !near(r) || !near(g) || !near(bl) {
		t.Fatalf("背景色错误: %d %d %d", r>>8, g>>8, bl>>8)
	}

	pdf, err := os.ReadFile(pdfPath)
	if err != nil || !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("未生成 PDF: %v", err)
	}
	debug, err := os.ReadFile(debugPath)
	if err != nil || !strings.Contains(string(debug), `"Hello WORLD"`) {
		t.Fatalf("调试 JSON 缺少插值后的文本: %s", debug)
	}
}

func TestRunAllRendersEveryPage(t *testing.T) {
	a, dir := newTestApp(t)
	out := filepath.Join(dir, "frames")
	if err := a.run(context.Background(), options{all: true, out: out}); err != nil {
		t.Fatalf("run -all 返回错误: %v", err)
	}
	for _, name := range []string{"hello", "blank"} {
		if _, err := os.Stat(filepath.Join(out, name+".png")); err != nil {
			t.Fatalf("缺少页面 %s 的输出: %v", name, err)
		}
	}
}

func TestRunUnknownPage(t *testing.T) {
	a, dir := newTestApp(t)
	err := a.run(context.Background(), options{page: "nope", out: filepath.Join(dir, "x.png")})
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("期望找不到页面的错误，得到 %v", err)
	}
}

func TestDuplicatePageNames(t *testing.T) {
	a, _ := newTestApp(t)
	dup := filepath.Join(a.cfg.PagesDir, "other.page")
	if err := os.WriteFile(dup, []byte("page hello {\n  seconds: 5\n}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := a.loadPages(); err == nil {
		t.Fatalf("重复的页面名应报错")
	}
}

func TestRenderTreeListsKinds(t *testing.T) {
	a, _ := newTestApp(t)
	pages, err := a.loadPages()
	if err != nil {
		t.Fatal(err)
	}
	f, err := a.layoutPage(pages[0])
	if err != nil {
		t.Fatal(err)
	}
	tree := renderTree(f.page.Root)
	for _, kind := range []string{"Container", "Textbox", "Rule"} {
		if !strings.Contains(tree, kind) {
			t.Fatalf("布局树缺少 %s:\n%s", kind, tree)
		}
	}
}
