package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"NetScopeGo/internal/portscan"
)

const jsonIndent = "    "

// JSONFile 整个结果写成一个 JSON 文档, 覆盖已有文件
type JSONFile struct {
	path   string
	logger *zap.Logger
}

func NewJSONFile(path string, logger *zap.Logger) *JSONFile {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONFile{path: path, logger: logger.With(zap.String("sink", "json"))}
}

func (j *JSONFile) Write(_ context.Context, results *portscan.ScanResults) error {
	if results == nil {
		results = portscan.NewScanResults()
	}
	data, err := json.MarshalIndent(results, "", jsonIndent)
	if err != nil {
		return fmt.Errorf("%w: encode results: %w", ErrOutputWrite, err)
	}
	data = append(data, '\n')
	if err := writeAtomic(j.path, data); err != nil {
		return fmt.Errorf("%w: %w", ErrOutputWrite, err)
	}
	j.logger.Debug("results written", zap.String("path", j.path), zap.Int("hosts", results.Len()))
	return nil
}

func (j *JSONFile) Close() error { return nil }

func (j *JSONFile) Describe() string { return j.path }

// ReadJSONFile 读回 JSONFile 写出的文档
func ReadJSONFile(path string) (*portscan.ScanResults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	results := portscan.NewScanResults()
	if err := json.Unmarshal(data, results); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return results, nil
}

// writeAtomic 临时文件 + fsync + rename, 失败时原文件保持不变
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".netscope-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	// CreateTemp 默认 0600
	_ = os.Chmod(tmpPath, 0o644)
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
