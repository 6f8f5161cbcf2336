// Package config loads the runtime settings of the renderer from a TOML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config 为渲染进程的运行参数。
type Config struct {
	Width        int      `toml:"width"`
	Height       int      `toml:"height"`
	Device       string   `toml:"device"`
	PagesDir     string   `toml:"pages_dir"`
	DataDir      string   `toml:"data_dir"`
	FontDirs     []string `toml:"font_dirs"`
	FallbackFont string   `toml:"fallback_font"`
	LogLevel     string   `toml:"log_level"`
}

// Default 返回内置默认值。
func Default() Config {
	return Config{
		Width:    1920,
		Height:   1080,
		Device:   "/dev/fb0",
		PagesDir: "pages",
		DataDir:  "data",
		FontDirs: []string{"/usr/share/fonts/truetype"},
		LogLevel: "info",
	}
}

// Load 在默认值之上叠加 path 指定的 TOML 文件；path 为空时直接返回默认值。
// 文件中出现未知字段视为错误。
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return cfg, fmt.Errorf("配置文件 %s 含未知字段: %s", path, strings.Join(keys, ", "))
	}
	return cfg, cfg.Validate()
}

// Validate 检查配置是否可用。
func (c Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("分辨率无效: %dx%d", c.Width, c.Height))
	}
	if c.PagesDir == "" {
		errs = append(errs, errors.New("pages_dir 不能为空"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel 把 debug/info/warn/error 转为 slog.Level，空串视为 info。
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("日志级别无效: %q", s)
	}
	return lvl, nil
}
