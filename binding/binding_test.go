package binding

import (
	"encoding/json"
	"testing"
	"time"
)

func sampleSource(t *testing.T) MapSource {
	t.Helper()
	var weather, news any
	if err := json.Unmarshal([]byte(`{"name":"Berlin","main":{"temp":293.4},"weather":[{"description":"light rain"}]}`), &weather); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(`[{"title":"First"},{"title":"Second"}]`), &news); err != nil {
		t.Fatal(err)
	}
	return MapSource{"weather": weather, "news": news}
}

func TestInterpolate(t *testing.T) {
	src := sampleSource(t)
	cases := []struct {
		in, want string
	}{
		{"${weather.name}", "Berlin"},
		{"${weather.main.temp|celsius}°C", "20°C"},
		{"${weather.main.temp|round}", "293"},
		{"${weather.weather[0].description|upper}", "LIGHT RAIN"},
		{"${news[1].title|lower}", "second"},
		{"${news[5].title}", "${news[5].title}"},
		{"${missing.value}", "${missing.value}"},
		{"${weather.name|nosuch}", "${weather.name|nosuch}"},
		{"${weather.name|celsius}", "${weather.name|celsius}"},
		{"no placeholders", "no placeholders"},
	}
	for _, tc := range cases {
		if got := Interpolate(tc.in, src); got != tc.want {
			t.Fatalf("Interpolate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestInterpolateNilSource(t *testing.T) {
	if got := Interpolate("${a.b}", nil); got != "${a.b}" {
		t.Fatalf("nil source should keep placeholder, got %q", got)
	}
}

func TestRegisterFilter(t *testing.T) {
	RegisterFilter("exclaim", func(v any) (any, bool) { return format(v) + "!", true })
	if got := Interpolate("${weather.name|exclaim}", sampleSource(t)); got != "Berlin!" {
		t.Fatalf("custom filter not applied: %q", got)
	}
}

func TestWithShadowsParent(t *testing.T) {
	base := sampleSource(t)
	item := map[string]any{"title": "Inner"}
	src := With(With(base, "item", item), "index", 2)

	cases := []struct {
		in, want string
	}{
		{"${index}. ${item.title}", "2. Inner"},
		{"${weather.name}", "Berlin"},
		{"${item.missing}", "${item.missing}"},
	}
	for _, tc := range cases {
		if got := Interpolate(tc.in, src); got != tc.want {
			t.Fatalf("Interpolate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if got := Interpolate("${weather.name}", With(src, "weather", "Oslo")); got != "Oslo" {
		t.Fatalf("同名记录应遮蔽外层，实际 %q", got)
	}
	if _, ok := With(nil, "item", 1).Record("other"); ok {
		t.Fatalf("无外层数据源时不应找到其他记录")
	}
}

func TestForecastFilters(t *testing.T) {
	ts := float64(time.Date(2024, time.March, 5, 12, 0, 0, 0, time.Local).Unix())
	src := MapSource{"day": map[string]any{"ts": ts, "temp": 285.9, "wind_dir": 350.0, "speed": 12.7}}
	cases := []struct {
		in, want string
	}{
		{"${day.ts|date}", "5 March"},
		{"${day.ts|weekday}", "Tuesday"},
		{"${day.ts|time}", "12:00"},
		{"${day.temp|int}", "285"},
		{"${day.speed|int}km/h", "12km/h"},
		{"${day.wind_dir|compass}", "N"},
	}
	for _, tc := range cases {
		if got := Interpolate(tc.in, src); got != tc.want {
			t.Fatalf("Interpolate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCompassPoints(t *testing.T) {
	cases := map[float64]string{
		0: "N", 22: "N", 23: "NE", 90: "E", 135: "SE", 180: "S",
		225: "SW", 270: "W", 315: "NW", 338: "N", 360: "N", -90: "W",
	}
	for deg, want := range cases {
		got, ok := applyFilter("compass", deg)
		if !ok || got != want {
			t.Fatalf("compass(%v) = %v, want %s", deg, got, want)
		}
	}
	if _, ok := applyFilter("date", "soon"); ok {
		t.Fatalf("非数字时间戳应无法转换")
	}
}
