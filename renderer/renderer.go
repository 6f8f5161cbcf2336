package renderer

import "github.com/ByLCY/tableau/paint"

// Renderer 将一帧绘制动作输出为最终文件，例如 PNG 或 PDF。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(actions []paint.Action, width, height int) ([]byte, error)
}
