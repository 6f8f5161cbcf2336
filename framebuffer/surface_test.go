package framebuffer

import (
	"bytes"
	"image/png"
	"path/filepath"
	"testing"
)

func within(a, b uint8, tol int) bool {
	d := int(a) - int(b)
	if d < 0 {
		d = -d
	}
	return d <= tol
}

// quantize565 返回 8 位通道在 5/6/5 格式下的量化级别。
func quantize565(r, g, b uint8) (int, int, int) {
	return int(r >> 3), int(g >> 2), int(b >> 3)
}

// TestBlendIdentity 验证 coverage=1 时目标像素被覆盖为源色（在 565 量化误差内）。
func TestBlendIdentity(t *testing.T) {
	s := New(4, 4)
	samples := [][3]uint8{
		{255, 0, 0}, {0, 255, 0}, {0, 0, 255}, {8, 4, 8}, {240, 240, 240}, {17, 99, 203}, {255, 255, 255},
	}
	for _, c := range samples {
		s.Blend(1, 2, c[0], c[1], c[2], 1.0)
		i := (2*s.Width() + 1) * BytesPerPixel
		r, g, b := unpack(s.buf[i], s.buf[i+1])
		gr, gg, gb := quantize565(r, g, b)
		wr, wg, wb := quantize565(c[0], c[1], c[2])
		if abs(gr-wr) > 1 || abs(gg-wg) > 1 || abs(gb-wb) > 1 {
			t.Fatalf("blend 恒等性不成立: in=%v got=(%d,%d,%d) levels got=(%d,%d,%d) want=(%d,%d,%d)",
				c, r, g, b, gr, gg, gb, wr, wg, wb)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestPackRoundsToNearestLevel(t *testing.T) {
	// 每个量化级别解包再打包后保持不变。
	for r5 := byte(0); r5 < 32; r5++ {
		lo, hi := r5, r5<<3 // 红、蓝同为 r5，绿为 0
		r, g, b := unpack(lo, hi)
		if gotLo, gotHi := pack(r, g, b); gotLo != lo || gotHi != hi {
			t.Fatalf("5 位级别 %d 往返失败: (%d,%d,%d) -> %02x%02x", r5, r, g, b, gotHi, gotLo)
		}
	}
	for g6 := byte(0); g6 < 64; g6++ {
		lo, hi := (g6&0x07)<<5, g6>>3
		r, g, b := unpack(lo, hi)
		if gotLo, gotHi := pack(r, g, b); gotLo != lo || gotHi != hi {
			t.Fatalf("6 位级别 %d 往返失败: (%d,%d,%d)", g6, r, g, b)
		}
	}

	// 暗色不应被截断为黑色。
	s := New(1, 1)
	s.Blend(0, 0, 7, 3, 7, 1.0)
	r, g, b := unpack(s.buf[0], s.buf[1])
	if r == 0 || g == 0 || b == 0 {
		t.Fatalf("(7,3,7) 应量化到最近的非零级别，得到 (%d,%d,%d)", r, g, b)
	}
}

func TestLowCoverageAccumulatesOnEveryChannel(t *testing.T) {
	s := New(1, 1)
	for i := 0; i < 50; i++ {
		s.Blend(0, 0, 255, 255, 255, 0.02)
	}
	r, g, b := unpack(s.buf[0], s.buf[1])
	if r == 0 || b == 0 || g == 0 {
		t.Fatalf("白色低覆盖度叠加后各通道都应变亮，得到 (%d,%d,%d)", r, g, b)
	}
	if r != b {
		t.Fatalf("红蓝两个 5 位通道应一致，得到 (%d,%d,%d)", r, g, b)
	}
}

func TestBlendHalfCoverage(t *testing.T) {
	s := New(1, 1)
	s.Blend(0, 0, 248, 0, 0, 0.5)
	r, g, b := unpack(s.buf[0], s.buf[1])
	if !within(r, 124, 8) || g != 0 || b != 0 {
		t.Fatalf("半覆盖混合结果异常: (%d,%d,%d)", r, g, b)
	}
}

func TestBlendOutOfBoundsIsNoop(t *testing.T) {
	s := New(2, 2)
	s.Blend(-1, 0, 255, 255, 255, 1)
	s.Blend(0, -1, 255, 255, 255, 1)
	s.Blend(2, 0, 255, 255, 255, 1)
	s.Blend(0, 2, 255, 255, 255, 1)
	for i, v := range s.Bytes() {
		if v != 0 {
			t.Fatalf("越界写入不应修改缓冲区: byte %d = %d", i, v)
		}
	}
}

func TestClearZeroFills(t *testing.T) {
	s := New(3, 2)
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			s.Blend(x, y, 200, 100, 50, 1)
		}
	}
	s.Clear()
	if len(s.Bytes()) != 3*2*BytesPerPixel {
		t.Fatalf("缓冲区大小错误: %d", len(s.Bytes()))
	}
	for i, v := range s.Bytes() {
		if v != 0 {
			t.Fatalf("Clear 后 byte %d = %d", i, v)
		}
	}
}

// TestExportFlipsVertically 对应场景 C：第 0 行红色、第 1 行蓝色，导出后最底行为红色。
func TestExportFlipsVertically(t *testing.T) {
	s := New(2, 2)
	for x := 0; x < 2; x++ {
		s.Blend(x, 0, 255, 0, 0, 1)
		s.Blend(x, 1, 0, 0, 255, 1)
	}
	var buf bytes.Buffer
	if err := s.EncodePNG(&buf); err != nil {
		t.Fatalf("EncodePNG error: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	for x := 0; x < 2; x++ {
		r, g, b, a := img.At(x, 1).RGBA()
		if r>>8 < 240 || g != 0 || b != 0 || a>>8 != 255 {
			t.Fatalf("底行 (%d,1) 应为红色，实际 (%d,%d,%d,%d)", x, r>>8, g>>8, b>>8, a>>8)
		}
		r, g, b, _ = img.At(x, 0).RGBA()
		if b>>8 < 240 || r != 0 || g != 0 {
			t.Fatalf("顶行 (%d,0) 应为蓝色，实际 (%d,%d,%d)", x, r>>8, g>>8, b>>8)
		}
	}
}

func TestWriteRawIsUnchanged(t *testing.T) {
	s := New(2, 1)
	s.Blend(0, 0, 255, 255, 255, 1)
	var buf bytes.Buffer
	if err := s.WriteRaw(&buf); err != nil {
		t.Fatalf("WriteRaw error: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), s.Bytes()) {
		t.Fatalf("原始输出应与缓冲区一致: got=%v want=%v", buf.Bytes(), s.Bytes())
	}
	// 白色在 565 下为 0xFFFF，小端存储
	if buf.Bytes()[0] != 0xff || buf.Bytes()[1] != 0xff {
		t.Fatalf("白色像素打包错误: %v", buf.Bytes()[:2])
	}
}

func TestExportPNGWritesFile(t *testing.T) {
	s := New(3, 3)
	path := filepath.Join(t.TempDir(), "nested", "out.png")
	if err := s.ExportPNG(path); err != nil {
		t.Fatalf("ExportPNG error: %v", err)
	}
}
