package layout

import (
	"math/rand/v2"
	"time"

	"github.com/ByLCY/tableau/binding"
	"github.com/ByLCY/tableau/paint"
)

// BuildOptions 配置由页面文档构建节点树所需的依赖。
type BuildOptions struct {
	Fonts FontSource
	// Data 为文本插值 ${record.path} 的数据源，可为空。
	Data binding.Source
	// BaseDir 为 image src/folder 等相对路径的根目录。
	BaseDir string
	// Bitmaps 为空时每次 Build 使用新的缓存。
	Bitmaps *BitmapCache
	// Width/Height 为百分比长度的参考尺寸（通常即屏幕分辨率）。
	Width, Height int
	// Now 为空时使用 time.Now。
	Now  func() time.Time
	Rand *rand.Rand
}

// FontSource 按字体族名与像素字号提供字体。
type FontSource interface {
	Face(family string, size float64) (paint.Face, error)
}
