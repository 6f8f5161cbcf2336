package framebuffer

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
)

// BytesPerPixel 为 RGB565 打包格式的像素字节数。
const BytesPerPixel = 2

// Surface 持有一块连续的 RGB565 像素内存（小端，每像素 2 字节）。
// 除 Blend 外没有任何直接写像素的入口。
type Surface struct {
	buf    []byte
	width  int
	height int
}

// New 创建 width×height 的像素表面，初始为全黑。
func New(width, height int) *Surface {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Surface{
		buf:    make([]byte, width*height*BytesPerPixel),
		width:  width,
		height: height,
	}
}

// Width 返回表面宽度（像素）。
func (s *Surface) Width() int { return s.width }

// Height 返回表面高度（像素）。
func (s *Surface) Height() int { return s.height }

// Bytes 返回底层打包缓冲区，调用方不得修改。
func (s *Surface) Bytes() []byte { return s.buf }

// Clear 将整个缓冲区清零。
func (s *Surface) Clear() {
	clear(s.buf)
}

// Blend 将 (x, y) 处的像素按 coverage 线性插值到 (r, g, b)。
// 越界坐标静默忽略；coverage 会被钳制到 [0, 1]。
func (s *Surface) Blend(x, y int, r, g, b uint8, coverage float64) {
	if x < 0 || y < 0 || x >= s.width || y >= s.height {
		return
	}
	if coverage <= 0 || math.IsNaN(coverage) {
		return
	}
	if coverage > 1 {
		coverage = 1
	}
	i := (y*s.width + x) * BytesPerPixel
	lo, hi := s.buf[i], s.buf[i+1]
	er, eg, eb := unpack(lo, hi)

	nr := mix(er, r, coverage)
	ng := mix(eg, g, coverage)
	nb := mix(eb, b, coverage)
	s.buf[i], s.buf[i+1] = pack(nr, ng, nb)
}

// WriteRaw 原样输出打包缓冲区（不翻转、不转换格式），用于写入帧缓冲设备。
func (s *Surface) WriteRaw(w io.Writer) error {
	if _, err := w.Write(s.buf); err != nil {
		return fmt.Errorf("写入原始帧数据失败: %w", err)
	}
	return nil
}

// Send 将原始缓冲区写入设备文件（例如 /dev/fb0）。
func (s *Surface) Send(device string) error {
	f, err := os.OpenFile(device, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("打开帧缓冲设备 %s 失败: %w", device, err)
	}
	defer f.Close()
	return s.WriteRaw(f)
}

// Image 将缓冲区解包为 8 位 RGBA（alpha 恒为不透明），并做垂直翻转：
// 缓冲区第一行对应导出图像的最底行。
func (s *Surface) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	for y := 0; y < s.height; y++ {
		outRow := s.height - 1 - y
		for x := 0; x < s.width; x++ {
			in := (y*s.width + x) * BytesPerPixel
			r, g, b := unpack(s.buf[in], s.buf[in+1])
			out := img.PixOffset(x, outRow)
			img.Pix[out+0] = r
			img.Pix[out+1] = g
			img.Pix[out+2] = b
			img.Pix[out+3] = 0xff
		}
	}
	return img
}

// EncodePNG 以无损 PNG 形式写出表面内容。
func (s *Surface) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, s.Image()); err != nil {
		return fmt.Errorf("编码 PNG 失败: %w", err)
	}
	return nil
}

// ExportPNG 将表面导出为 PNG 文件，必要时创建目录。
func (s *Surface) ExportPNG(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
	}
	var buf bytes.Buffer
	if err := s.EncodePNG(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("写入 PNG 文件 %s 失败: %w", path, err)
	}
	return nil
}

// unpack 把 RGB565 还原为 8 位通道，高位复制到低位，使 31/63 级还原为 255。
func unpack(lo, hi byte) (r, g, b uint8) {
	r5 := hi >> 3
	g6 := (hi&0x07)<<3 | lo>>5
	b5 := lo & 0x1f
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2
}

// pack 把 8 位通道量化到最近的 5/6/5 级别。
func pack(r, g, b uint8) (lo, hi byte) {
	r5 := byte((uint16(r)*31 + 127) / 255)
	g6 := byte((uint16(g)*63 + 127) / 255)
	b5 := byte((uint16(b)*31 + 127) / 255)
	hi = r5<<3 | g6>>3
	lo = (g6&0x07)<<5 | b5
	return lo, hi
}

// mix 在归一化浮点空间里插值，量化时四舍五入。
func mix(dst, src uint8, coverage float64) uint8 {
	d := float64(dst) / 255
	t := float64(src) / 255
	v := d + coverage*(t-d)
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
