package layout

import (
	"errors"
	"fmt"

	"github.com/ByLCY/tableau/paint"
)

// Render 对节点树执行完整的一次布局：测量、定位，然后收集绘制动作。
func Render(root Node, width, height int) ([]paint.Action, error) {
	if root == nil {
		return nil, errors.New("layout: 根节点为空")
	}
	root.Measure(width, height)
	if err := root.Position(0, 0); err != nil {
		return nil, fmt.Errorf("定位失败: %w", err)
	}
	return Collect(root), nil
}

// Collect 先序遍历已定位的节点树：容器自身的背景先于子节点加入，保证背景在下、内容在上。
func Collect(root Node) []paint.Action {
	p := paint.NewPainter()
	_ = Walk(root, func(n Node, _ int) error {
		p.Add(n.PaintActions()...)
		return nil
	})
	return p.Actions()
}

// Walk 以先序遍历节点树，depth 从 0 开始；fn 返回错误时立即停止。
func Walk(root Node, fn func(n Node, depth int) error) error {
	var visit func(n Node, depth int) error
	visit = func(n Node, depth int) error {
		if err := fn(n, depth); err != nil {
			return err
		}
		for _, child := range n.Children() {
			if err := visit(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if root == nil {
		return nil
	}
	return visit(root, 0)
}
