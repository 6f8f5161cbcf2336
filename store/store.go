// Package store keeps the JSON records that data providers persist and
// that page text binds to.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DataStore 以 <dir>/<name>.json 保存记录。读取结果首次加载后缓存，
// 之后只读；Store 会同时刷新文件与缓存。
type DataStore struct {
	dir string

	mu      sync.RWMutex
	records map[string]any
	missing map[string]bool
}

// New 创建以 dir 为根目录的 DataStore，不会访问磁盘。
func New(dir string) *DataStore {
	return &DataStore{
		dir:     dir,
		records: map[string]any{},
		missing: map[string]bool{},
	}
}

// Dir 返回数据目录。
func (s *DataStore) Dir() string { return s.dir }

// Record 返回名为 name 的记录，文件不存在或无法解析时返回 false。
func (s *DataStore) Record(name string) (any, bool) {
	s.mu.RLock()
	v, ok := s.records[name]
	miss := s.missing[name]
	s.mu.RUnlock()
	if ok {
		return v, true
	}
	if miss {
		return nil, false
	}

	v, err := s.Load(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.missing[name] = true
		return nil, false
	}
	s.records[name] = v
	return v, true
}

// Load 直接从磁盘读取并解码记录，不经过缓存。
func (s *DataStore) Load(name string) (any, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取数据记录 %s 失败: %w", name, err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("解析数据记录 %s 失败: %w", name, err)
	}
	return v, nil
}

// Store 写入一条 JSON 记录并更新缓存。
func (s *DataStore) Store(name string, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("数据记录 %s 不是合法 JSON: %w", name, err)
	}
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("创建数据目录失败: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("写入数据记录 %s 失败: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[name] = v
	delete(s.missing, name)
	return nil
}

// Names 列出目录中所有记录名（已排序）。
func (s *DataStore) Names() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("读取数据目录失败: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func (s *DataStore) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("非法的数据记录名: %q", name)
	}
	return filepath.Join(s.dir, name+".json"), nil
}
