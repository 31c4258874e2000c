// Package sink 把扫描结果写到 JSON 文件, SQLite 或 MongoDB
package sink

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"NetScopeGo/internal/portscan"
)

const (
	DefaultOutput        = "scan_results.json"
	DefaultMongoDatabase = "netscope"
)

var ErrOutputWrite = errors.New("output write failed")

// Sink 扫描结果落地
type Sink interface {
	Write(ctx context.Context, results *portscan.ScanResults) error
	Close() error
	Describe() string
}

// Options 扫描元数据, 数据库类 sink 会一并保存
type Options struct {
	Target        string
	StartedAt     time.Time
	MongoDatabase string
	Logger        *zap.Logger
}

type kind int

const (
	kindJSON kind = iota
	kindSQLite
	kindMongo
)

func route(dest string) kind {
	lower := strings.ToLower(dest)
	if strings.HasPrefix(lower, "mongodb://") || strings.HasPrefix(lower, "mongodb+srv://") {
		return kindMongo
	}
	switch filepath.Ext(lower) {
	case ".db", ".sqlite", ".sqlite3":
		return kindSQLite
	}
	return kindJSON
}

// Open 按目标地址选择 sink, 空地址写默认 JSON 文件
func Open(ctx context.Context, dest string, opts Options) (Sink, error) {
	if dest == "" {
		dest = DefaultOutput
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	switch route(dest) {
	case kindMongo:
		return OpenMongo(ctx, dest, opts)
	case kindSQLite:
		return OpenSQLite(ctx, dest, opts)
	default:
		return NewJSONFile(dest, opts.Logger), nil
	}
}
