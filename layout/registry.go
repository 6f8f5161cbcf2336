package layout

import (
	"sort"
	"sync"
)

// Constructor 根据元素描述创建节点。
type Constructor func(ctx *Context, el *Element) (Node, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// Register 注册（或覆盖）一种节点类型，kind 即 DSL 中的命令名。
func Register(kind string, ctor Constructor) {
	if kind == "" || ctor == nil {
		panic("layout: Register 需要非空的 kind 与构造函数")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = ctor
}

func lookupKind(kind string) (Constructor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ctor, ok := registry[kind]
	return ctor, ok
}

// Kinds 列出已注册的节点类型。
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func init() {
	Register("container", containerKind(Column))
	Register("column", containerKind(Column))
	Register("row", containerKind(Row))
	Register("text", buildText)
	Register("image", buildImage)
	Register("rule", buildRule)
	Register("clock", buildClock)
	Register("repeat", buildRepeat)
}
