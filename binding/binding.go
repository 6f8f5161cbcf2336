package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Source 按记录名提供已解码的 JSON 数据。
type Source interface {
	Record(name string) (any, bool)
}

// MapSource 直接以内存 map 作为数据源。
type MapSource map[string]any

// Record implements Source.
func (m MapSource) Record(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// With 返回在 parent 之上追加一条名为 name 的记录的数据源，同名记录遮蔽 parent。
func With(parent Source, name string, value any) Source {
	return scoped{parent: parent, name: name, value: value}
}

type scoped struct {
	parent Source
	name   string
	value  any
}

func (s scoped) Record(name string) (any, bool) {
	if name == s.name {
		return s.value, true
	}
	if s.parent == nil {
		return nil, false
	}
	return s.parent.Record(name)
}

// Interpolate 将文本中的 ${record.path|filter} 替换为 src 中的值。
// 路径第一段为记录名；若 src 为空、路径不存在或过滤器无法应用，则保留原占位符。
func Interpolate(text string, src Source) string {
	if src == nil || !strings.Contains(text, "${") {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		expr := strings.Split(groups[1], "|")
		path := strings.TrimSpace(expr[0])
		if path == "" {
			return match
		}
		val, ok := Resolve(src, path)
		if !ok {
			return match
		}
		for _, name := range expr[1:] {
			val, ok = applyFilter(strings.TrimSpace(name), val)
			if !ok {
				return match
			}
		}
		return format(val)
	})
}

// Resolve 按 record.field[0].name 形式的路径取值。
func Resolve(src Source, path string) (any, bool) {
	record, rest, _ := strings.Cut(path, ".")
	name, indexes := parseSegment(record)
	data, ok := src.Record(name)
	if !ok {
		return nil, false
	}
	if len(indexes) > 0 {
		// 把记录名后的下标并入剩余路径
		prefix := ""
		for _, idx := range indexes {
			prefix += "[" + idx + "]"
		}
		if rest == "" {
			rest = prefix
		} else {
			rest = prefix + "." + rest
		}
	}
	if rest == "" {
		return data, true
	}
	return resolvePath(data, rest)
}

func format(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func resolvePath(data any, path string) (any, bool) {
	current := data
	segments := strings.Split(path, ".")
	for _, segment := range segments {
		name, indexes := parseSegment(segment)
		if name != "" {
			var ok bool
			current, ok = descendMap(current, name)
			if !ok {
				return nil, false
			}
		}
		for _, idxStr := range indexes {
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, false
			}
			var ok bool
			current, ok = descendArray(current, idx)
			if !ok {
				return nil, false
			}
		}
	}
	return current, true
}

func parseSegment(segment string) (string, []string) {
	name := segment
	indexes := []string{}
	if i := strings.Index(segment, "["); i != -1 {
		name = segment[:i]
		rest := segment[i:]
		for len(rest) > 0 {
			if rest[0] != '[' {
				break
			}
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				break
			}
			indexes = append(indexes, rest[1:end])
			rest = rest[end+1:]
		}
	}
	return name, indexes
}

func descendMap(current any, key string) (any, bool) {
	switch c := current.(type) {
	case map[string]interface{}:
		val, ok := c[key]
		return val, ok
	default:
		return nil, false
	}
}

func descendArray(current any, idx int) (any, bool) {
	switch c := current.(type) {
	case []interface{}:
		if idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	default:
		return nil, false
	}
}
