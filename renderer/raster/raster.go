// Package raster 把绘制动作回放到 RGB565 帧缓冲并导出 PNG。
package raster

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/ByLCY/tableau/framebuffer"
	"github.com/ByLCY/tableau/paint"
)

// Renderer 持有一块长期复用的帧缓冲，每次渲染前清空。
type Renderer struct {
	mu      sync.Mutex
	surface *framebuffer.Surface
}

// New 创建指定尺寸的光栅渲染器。
func New(width, height int) *Renderer {
	return &Renderer{surface: framebuffer.New(width, height)}
}

// Surface 返回最近一次渲染所用的帧缓冲，可直接写入设备。
func (r *Renderer) Surface() *framebuffer.Surface {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.surface
}

// Paint 清空帧缓冲并按顺序执行 actions；尺寸变化时重新分配。
func (r *Renderer) Paint(actions []paint.Action, width, height int) (*framebuffer.Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("画布尺寸无效: %dx%d", width, height)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.surface == nil || r.surface.Width() != width || r.surface.Height() != height {
		r.surface = framebuffer.New(width, height)
	} else {
		r.surface.Clear()
	}
	paint.Apply(actions, r.surface)
	return r.surface, nil
}

// Render 实现 renderer.Renderer，返回 PNG 编码结果。
func (r *Renderer) Render(actions []paint.Action, width, height int) ([]byte, error) {
	surface, err := r.Paint(actions, width, height)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := surface.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("编码 PNG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// Send 把最近一帧原样写入设备文件（例如 /dev/fb0）。
func (r *Renderer) Send(device string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.surface.Send(device)
}
