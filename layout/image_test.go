package layout

import (
	"errors"
	"image"
	"image/png"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/ByLCY/tableau/paint"
)

func TestFitSize(t *testing.T) {
	cases := []struct {
		name                         string
		w, h, availW, availH, mw, mh int
		wantW, wantH                 int
	}{
		{"fits", 100, 50, 200, 200, 0, 0, 100, 50},
		{"no upscale", 10, 10, 1000, 1000, 0, 0, 10, 10},
		{"width bound", 400, 200, 200, 1000, 0, 0, 200, 100},
		{"height bound", 400, 200, 1000, 50, 0, 0, 100, 50},
		{"max width", 400, 200, 1000, 1000, 100, 0, 100, 50},
		{"max height tighter than avail", 400, 400, 300, 300, 0, 120, 120, 120},
		{"max larger than avail", 400, 200, 100, 1000, 300, 0, 100, 50},
		{"empty", 0, 0, 100, 100, 0, 0, 0, 0},
	}
	for _, tc := range cases {
		w, h := FitSize(tc.w, tc.h, tc.availW, tc.availH, tc.mw, tc.mh)
		if w != tc.wantW || h != tc.wantH {
			t.Fatalf("%s: got %dx%d want %dx%d", tc.name, w, h, tc.wantW, tc.wantH)
		}
		if w > tc.w || h > tc.h {
			t.Fatalf("%s: 不应放大", tc.name)
		}
	}
}

func TestImageNodeNilBitmap(t *testing.T) {
	img := NewImage(nil, 0, 0)
	img.Measure(100, 100)
	if img.Geometry().Width != 0 || img.Geometry().Height != 0 {
		t.Fatalf("nil 位图应测量为 0")
	}
	if err := img.Position(0, 0); err != nil {
		t.Fatal(err)
	}
	if len(img.PaintActions()) != 0 {
		t.Fatalf("nil 位图不应绘制")
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
}

func TestBitmapCacheSharesHandle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	writePNG(t, path, 8, 4)

	cache := NewBitmapCache()
	a, err := cache.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	b, err := cache.Load(filepath.Join(dir, ".", "a.png"))
	if err != nil {
		t.Fatal(err)
	}
	if a != b || cache.Len() != 1 {
		t.Fatalf("同一路径应共享同一个位图句柄")
	}
	n1, n2 := NewImage(a, 0, 0), NewImage(b, 2, 0)
	n1.Measure(100, 100)
	n2.Measure(100, 100)
	if n2.Geometry().Width != 2 || n2.Geometry().Height != 1 || a.Width() != 8 {
		t.Fatalf("测量不应修改共享位图")
	}
	if _, err := cache.Load(filepath.Join(dir, "missing.png")); err == nil {
		t.Fatalf("缺失文件应报错")
	}
}

func TestPickImage(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "one.png"), 1, 1)
	writePNG(t, filepath.Join(dir, "two.png"), 1, 1)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewPCG(1, 2))
	seen := map[string]bool{}
	for range 32 {
		p, err := PickImage(dir, rng)
		if err != nil {
			t.Fatal(err)
		}
		if filepath.Ext(p) != ".png" {
			t.Fatalf("不应选中非图片文件: %s", p)
		}
		seen[filepath.Base(p)] = true
	}
	if len(seen) != 2 {
		t.Fatalf("32 次抽取应覆盖两个文件: %v", seen)
	}
	if _, err := PickImage(t.TempDir(), rng); !errors.Is(err, ErrNoImages) {
		t.Fatalf("空目录应返回 ErrNoImages，实际 %v", err)
	}
}

func TestImagePaintsBlit(t *testing.T) {
	bmp := paint.NewBitmap("mem", image.NewNRGBA(image.Rect(0, 0, 4, 4)))
	c := NewContainer(Row, Start, Start, 0, 1)
	img := NewImage(bmp, 0, 0)
	c.Append(img)
	actions, err := Render(c, 100, 100)
	if err != nil {
		t.Fatal(err)
	}
	blit, ok := actions[0].(*paint.Blit)
	if !ok || blit.Rect != (paint.Rect{X: 1, Y: 1, W: 4, H: 4}) || blit.Bitmap != bmp {
		t.Fatalf("Blit 动作错误: %#v", actions[0])
	}
}
