package layout

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Snapshot 是节点树布局结果的可序列化副本，便于调试或可视化。
type Snapshot struct {
	Kind       string      `json:"kind"`
	X          int         `json:"x"`
	Y          int         `json:"y"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	WidthGrow  int         `json:"widthGrow,omitempty"`
	HeightGrow int         `json:"heightGrow,omitempty"`
	Lines      []string    `json:"lines,omitempty"`
	Source     string      `json:"source,omitempty"`
	Children   []*Snapshot `json:"children,omitempty"`
}

// Snap 复制节点树当前的几何信息，未计算的字段记为 -1。
func Snap(n Node) *Snapshot {
	if n == nil {
		return nil
	}
	s := snapNode(n)
	for _, child := range n.Children() {
		s.Children = append(s.Children, Snap(child))
	}
	return s
}

func snapNode(n Node) *Snapshot {
	g := n.Geometry()
	s := &Snapshot{
		Kind:       n.Kind(),
		X:          -1,
		Y:          -1,
		Width:      -1,
		Height:     -1,
		WidthGrow:  g.WidthGrow,
		HeightGrow: g.HeightGrow,
	}
	if g.Measured() {
		s.Width, s.Height = g.Width, g.Height
	}
	if g.Positioned() {
		s.X, s.Y = g.X, g.Y
	}
	switch v := n.(type) {
	case *Text:
		s.Lines = v.Lines()
	case *Image:
		if v.Bitmap() != nil {
			s.Source = v.Bitmap().Source
		}
	}
	return s
}

// Describe 返回单个节点的一行描述，例如 "Container x:0, y:0, w:80, h:60"。
func Describe(n Node) string {
	s := snapNode(n)
	return fmt.Sprintf("%s x:%d, y:%d, w:%d, h:%d", s.Kind, s.X, s.Y, s.Width, s.Height)
}

// Dump 按层级缩进输出节点树，每层缩进一个空格。
func Dump(root Node) string {
	var b strings.Builder
	_ = Walk(root, func(n Node, depth int) error {
		b.WriteString(strings.Repeat(" ", depth))
		b.WriteString("-")
		b.WriteString(Describe(n))
		b.WriteString("\n")
		return nil
	})
	return b.String()
}

// WriteDebugJSON 将布局结果输出为 JSON，便于调试或可视化。
func WriteDebugJSON(root Node, path string) error {
	if root == nil {
		return nil
	}
	data, err := json.MarshalIndent(Snap(root), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建调试输出目录失败: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
