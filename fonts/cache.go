package fonts

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ByLCY/tableau/paint"
)

// ErrFontNotFound 表示字体族既不在内置字体中，也不在扫描目录里。
var ErrFontNotFound = errors.New("字体未找到")

// Options configures the font cache.
type Options struct {
	// Dirs 为递归扫描 .ttf/.otf 的目录，文件名（去掉扩展名）即字体族名。
	Dirs []string
	// Fallback 非空时，找不到的字体族改用该字体。
	Fallback string
	Logger   *slog.Logger
}

// Cache 是按字体族名缓存的字体提供者：首次使用时加载，之后只读，不淘汰。
// 可被多个渲染并发使用。
type Cache struct {
	opts Options
	log  *slog.Logger

	scanOnce sync.Once
	paths    map[string]string

	mu    sync.RWMutex
	raw   map[string][]byte
	fonts map[string]*opentype.Font
	faces map[faceKey]*Face
}

type faceKey struct {
	family string
	size   float64
}

// NewCache 创建字体缓存；目录扫描延迟到第一次未命中内置字体时进行。
func NewCache(opts Options) *Cache {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		opts:  opts,
		log:   log,
		raw:   map[string][]byte{},
		fonts: map[string]*opentype.Font{},
		faces: map[faceKey]*Face{},
	}
}

// Face 返回指定字体族与像素字号的字体面。
func (c *Cache) Face(family string, size float64) (paint.Face, error) {
	if family == "" {
		family = DefaultFamily
	}
	if size <= 0 {
		return nil, fmt.Errorf("字体 %s 字号无效: %g", family, size)
	}
	key := faceKey{family: family, size: size}
	c.mu.RLock()
	face, ok := c.faces[key]
	c.mu.RUnlock()
	if ok {
		return face, nil
	}

	resolved, parsed, err := c.font(family)
	if err != nil {
		return nil, err
	}
	xface, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("创建字体面 %s@%g 失败: %w", resolved, size, err)
	}
	face = &Face{family: resolved, size: size, face: xface, metrics: xface.Metrics()}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.faces[key]; ok {
		return existing, nil
	}
	c.faces[key] = face
	return face, nil
}

// Bytes 返回字体族的原始字体文件数据（供矢量渲染器加载）。
func (c *Cache) Bytes(family string) ([]byte, error) {
	if family == "" {
		family = DefaultFamily
	}
	resolved, _, err := c.font(family)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.raw[resolved], nil
}

// font 解析字体族，必要时退回 Fallback，返回实际使用的字体族名。
func (c *Cache) font(family string) (string, *opentype.Font, error) {
	parsed, err := c.load(family)
	if err == nil {
		return family, parsed, nil
	}
	fb := c.opts.Fallback
	if fb == "" || fb == family {
		return "", nil, err
	}
	c.log.Warn("字体不可用，改用备用字体", "family", family, "fallback", fb, "err", err)
	parsed, fbErr := c.load(fb)
	if fbErr != nil {
		return "", nil, err
	}
	return fb, parsed, nil
}

func (c *Cache) load(family string) (*opentype.Font, error) {
	c.mu.RLock()
	parsed, ok := c.fonts[family]
	c.mu.RUnlock()
	if ok {
		return parsed, nil
	}

	data, err := c.readFamily(family)
	if err != nil {
		return nil, err
	}
	parsed, err = opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("解析字体 %s 失败: %w", family, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.fonts[family]; ok {
		return existing, nil
	}
	c.fonts[family] = parsed
	c.raw[family] = data
	return parsed, nil
}

func (c *Cache) readFamily(family string) ([]byte, error) {
	if data, err := Load(family); err == nil {
		return data, nil
	}
	c.scanOnce.Do(c.scan)
	path, ok := c.paths[family]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFontNotFound, family)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取字体文件 %s 失败: %w", path, err)
	}
	c.log.Debug("加载字体文件", "family", family, "path", path)
	return data, nil
}

// scan 建立 字体族名 → 文件路径 的索引，先出现的同名文件优先。
func (c *Cache) scan() {
	c.paths = map[string]string{}
	for _, dir := range c.opts.Dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if ext != ".ttf" && ext != ".otf" {
				return nil
			}
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			if _, exists := c.paths[name]; !exists {
				c.paths[name] = path
			}
			return nil
		})
		if err != nil {
			c.log.Debug("扫描字体目录失败", "dir", dir, "err", err)
		}
	}
	c.log.Debug("字体目录扫描完成", "count", len(c.paths))
}

// Face 是某字体族在固定像素字号下的度量与光栅化实现。
// x/image 的 font.Face 不是并发安全的，这里用互斥锁串行化。
type Face struct {
	family  string
	size    float64
	mu      sync.Mutex
	face    font.Face
	metrics font.Metrics
}

var _ paint.Face = (*Face)(nil)

func (f *Face) Family() string { return f.family }
func (f *Face) Size() float64  { return f.size }

// Advance 返回字形前进宽度之和（含字距调整），向上取整到像素。
func (f *Face) Advance(s string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.advance(s)
}

func (f *Face) advance(s string) int {
	if s == "" {
		return 0
	}
	return font.MeasureString(f.face, s).Ceil()
}

// LineHeight 返回 ascent - descent。
func (f *Face) LineHeight() int {
	return (f.metrics.Ascent + f.metrics.Descent).Floor()
}

// Mask 把一行文本光栅化为覆盖度蒙版。坐标原点为该行左上角（基线位于 y=ascent），
// 蒙版范围取字形墨迹的实际包围盒，可能超出 [0,advance)×[0,lineHeight)，Min 可为负。
func (f *Face) Mask(s string) *image.Alpha {
	if s == "" {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	dot := fixed.Point26_6{X: 0, Y: f.metrics.Ascent}
	ink, _ := font.BoundString(f.face, s)
	bounds := image.Rect(
		(ink.Min.X + dot.X).Floor(), (ink.Min.Y + dot.Y).Floor(),
		(ink.Max.X + dot.X).Ceil(), (ink.Max.Y + dot.Y).Ceil(),
	)
	if bounds.Empty() {
		return nil
	}
	mask := image.NewAlpha(bounds)
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: f.face,
		Dot:  dot,
	}
	d.DrawString(s)
	return mask
}
