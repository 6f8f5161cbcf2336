package paint

// Painter 按加入顺序保存绘制动作，后写覆盖先写，不做排序。
type Painter struct {
	actions []Action
}

// NewPainter 创建空的 Painter。
func NewPainter() *Painter { return &Painter{} }

// Add 追加一个或多个动作。
func (p *Painter) Add(actions ...Action) {
	p.actions = append(p.actions, actions...)
}

// Actions 返回动作列表。
func (p *Painter) Actions() []Action { return p.actions }

// PaintOn 依次把所有动作应用到目标上。
func (p *Painter) PaintOn(dst Target) {
	Apply(p.actions, dst)
}

// Apply 依次执行动作。
func Apply(actions []Action, dst Target) {
	for _, a := range actions {
		if a == nil {
			continue
		}
		a.Paint(dst)
	}
}
