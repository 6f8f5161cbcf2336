package binding

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Filter 对插值结果做一次转换；第二个返回值为 false 表示无法转换。
type Filter func(any) (any, bool)

var filters = map[string]Filter{
	"celsius": func(v any) (any, bool) {
		k, ok := toFloat(v)
		if !ok {
			return nil, false
		}
		return int64(math.Round(k - 273.15)), true
	},
	"round": func(v any) (any, bool) {
		f, ok := toFloat(v)
		if !ok {
			return nil, false
		}
		return int64(math.Round(f)), true
	},
	"int": func(v any) (any, bool) {
		f, ok := toFloat(v)
		if !ok {
			return nil, false
		}
		return int64(f), true
	},
	"compass": func(v any) (any, bool) {
		deg, ok := toFloat(v)
		if !ok {
			return nil, false
		}
		return compassPoints[int(math.Round(math.Mod(math.Mod(deg, 360)+360, 360)/45))%len(compassPoints)], true
	},
	// date、weekday 与 time 按本地时区格式化 Unix 秒，例如 date 得到 "5 March"。
	"date": func(v any) (any, bool) {
		t, ok := unixTime(v)
		if !ok {
			return nil, false
		}
		return fmt.Sprintf("%d %s", t.Day(), t.Month()), true
	},
	"weekday": func(v any) (any, bool) {
		t, ok := unixTime(v)
		if !ok {
			return nil, false
		}
		return t.Weekday().String(), true
	},
	"time": func(v any) (any, bool) {
		t, ok := unixTime(v)
		if !ok {
			return nil, false
		}
		return fmt.Sprintf("%d:%02d", t.Hour(), t.Minute()), true
	},
	"upper": func(v any) (any, bool) { return strings.ToUpper(format(v)), true },
	"lower": func(v any) (any, bool) { return strings.ToLower(format(v)), true },
}

var compassPoints = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

func unixTime(v any) (time.Time, bool) {
	f, ok := toFloat(v)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(int64(f), 0).Local(), true
}

// RegisterFilter 注册或覆盖一个命名过滤器，需在渲染开始前调用。
func RegisterFilter(name string, f Filter) {
	filters[name] = f
}

func applyFilter(name string, v any) (any, bool) {
	f, ok := filters[name]
	if !ok {
		return nil, false
	}
	return f(v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
