package layout

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/ByLCY/tableau/paint"
)

// Image 按比例缩放到可用空间内的位图，不放大。
type Image struct {
	leaf
	bitmap *paint.Bitmap
	// MaxWidth/MaxHeight 为 0 表示该方向不额外限制。
	MaxWidth  int
	MaxHeight int
}

// NewImage 创建图片节点；bitmap 为 nil 时节点测量为 0 且不绘制。
func NewImage(bitmap *paint.Bitmap, maxW, maxH int) *Image {
	return &Image{bitmap: bitmap, MaxWidth: max(maxW, 0), MaxHeight: max(maxH, 0)}
}

func (i *Image) Kind() string          { return "Image" }
func (i *Image) Bitmap() *paint.Bitmap { return i.bitmap }

func (i *Image) Measure(availW, availH int) {
	w, h := FitSize(i.bitmap.Width(), i.bitmap.Height(), availW, availH, i.MaxWidth, i.MaxHeight)
	i.geo.SetSize(w, h)
}

func (i *Image) Position(x, y int) error { return i.position(i.Kind(), x, y) }

func (i *Image) PaintActions() []paint.Action {
	if i.bitmap == nil || i.geo.Width <= 0 || i.geo.Height <= 0 {
		return nil
	}
	return []paint.Action{&paint.Blit{Rect: i.geo.Rect(), Bitmap: i.bitmap}}
}

// FitSize 计算原始尺寸 (w, h) 在限制内的等比缩放结果。
// 每个方向的上限为可用空间与 max（>0 时）中的较小者；只缩小不放大。
func FitSize(w, h, availW, availH, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	boundW, boundH := max(availW, 0), max(availH, 0)
	if maxW > 0 {
		boundW = min(boundW, maxW)
	}
	if maxH > 0 {
		boundH = min(boundH, maxH)
	}
	if w <= boundW && h <= boundH {
		return w, h
	}
	// 取更紧的一边作为缩放依据，整数运算向下取整。
	if boundW*h <= boundH*w {
		return boundW, h * boundW / w
	}
	return w * boundH / h, boundH
}

// ErrNoImages 表示目录中没有可用的图片文件。
var ErrNoImages = errors.New("目录中没有图片")

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".bmp": true}

// BitmapCache 按路径缓存已解码的位图，首次加载后只读，不淘汰。
type BitmapCache struct {
	mu      sync.Mutex
	bitmaps map[string]*paint.Bitmap
}

// NewBitmapCache 创建空缓存。
func NewBitmapCache() *BitmapCache {
	return &BitmapCache{bitmaps: map[string]*paint.Bitmap{}}
}

// Load 返回 path 对应的位图，同一路径总是返回同一个句柄。
func (c *BitmapCache) Load(path string) (*paint.Bitmap, error) {
	clean := filepath.Clean(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	if bmp, ok := c.bitmaps[clean]; ok {
		return bmp, nil
	}
	bmp, err := decodeFile(clean)
	if err != nil {
		return nil, err
	}
	c.bitmaps[clean] = bmp
	return bmp, nil
}

// Len 返回已缓存的位图数量。
func (c *BitmapCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bitmaps)
}

func decodeFile(path string) (*paint.Bitmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开图片 %s: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("解码图片 %s 失败: %w", path, err)
	}
	return paint.NewBitmap(path, img), nil
}

// PickImage 从 dir 中随机挑选一个图片文件（仅当前层，按文件名排序后抽取）。
func PickImage(dir string, rng *rand.Rand) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("读取图片目录 %s 失败: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoImages, dir)
	}
	sort.Strings(paths)
	if rng == nil {
		return paths[rand.IntN(len(paths))], nil
	}
	return paths[rng.IntN(len(paths))], nil
}
