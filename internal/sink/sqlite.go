package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"NetScopeGo/internal/portscan"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS scans (
		id TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		started_at TIMESTAMP,
		finished_at TIMESTAMP NOT NULL,
		host_count INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS hosts (
		scan_id TEXT NOT NULL,
		ip TEXT NOT NULL,
		scanned_at TIMESTAMP NOT NULL,
		total_open_ports INTEGER NOT NULL,
		PRIMARY KEY (scan_id, ip),
		FOREIGN KEY (scan_id) REFERENCES scans(id)
	)`,
	`CREATE TABLE IF NOT EXISTS ports (
		scan_id TEXT NOT NULL,
		ip TEXT NOT NULL,
		port INTEGER NOT NULL,
		protocol TEXT NOT NULL,
		state TEXT NOT NULL,
		service TEXT NOT NULL,
		PRIMARY KEY (scan_id, ip, port),
		FOREIGN KEY (scan_id, ip) REFERENCES hosts(scan_id, ip)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_hosts_ip ON hosts(ip)`,
}

type scanRow struct {
	ID         string    `db:"id"`
	Target     string    `db:"target"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
	HostCount  int       `db:"host_count"`
}

type hostRow struct {
	ScanID    string    `db:"scan_id"`
	IP        string    `db:"ip"`
	ScannedAt time.Time `db:"scanned_at"`
	TotalOpen int       `db:"total_open_ports"`
}

type portRow struct {
	ScanID   string `db:"scan_id"`
	IP       string `db:"ip"`
	Port     int    `db:"port"`
	Protocol string `db:"protocol"`
	State    string `db:"state"`
	Service  string `db:"service"`
}

// SQLite 每次 Write 记录一次扫描, 三张表在同一事务里写入
type SQLite struct {
	db     *sqlx.DB
	path   string
	opts   Options
	logger *zap.Logger
	lastID string
}

func OpenSQLite(ctx context.Context, path string, opts Options) (*SQLite, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: mkdir %s: %w", ErrOutputWrite, dir, err)
		}
	}
	db, err := sqlx.ConnectContext(ctx, "sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite %s: %w", ErrOutputWrite, path, err)
	}
	// sqlite 单写者
	db.SetMaxOpenConns(1)
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: init schema: %w", ErrOutputWrite, err)
		}
	}
	return &SQLite{
		db:     db,
		path:   path,
		opts:   opts,
		logger: opts.Logger.With(zap.String("sink", "sqlite")),
	}, nil
}

func (s *SQLite) Write(ctx context.Context, results *portscan.ScanResults) (err error) {
	if results == nil {
		results = portscan.NewScanResults()
	}
	scanID := uuid.NewString()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrOutputWrite, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	scan := scanRow{
		ID:         scanID,
		Target:     s.opts.Target,
		StartedAt:  s.opts.StartedAt,
		FinishedAt: time.Now(),
		HostCount:  results.Len(),
	}
	if _, err = tx.NamedExecContext(ctx,
		`INSERT INTO scans (id, target, started_at, finished_at, host_count)
		 VALUES (:id, :target, :started_at, :finished_at, :host_count)`, scan); err != nil {
		return fmt.Errorf("%w: insert scan: %w", ErrOutputWrite, err)
	}

	for ip, h := range results.All() {
		host := hostRow{ScanID: scanID, IP: ip, ScannedAt: h.Timestamp, TotalOpen: h.TotalOpen}
		if _, err = tx.NamedExecContext(ctx,
			`INSERT INTO hosts (scan_id, ip, scanned_at, total_open_ports)
			 VALUES (:scan_id, :ip, :scanned_at, :total_open_ports)`, host); err != nil {
			return fmt.Errorf("%w: insert host %s: %w", ErrOutputWrite, ip, err)
		}
		for _, p := range h.OpenPorts {
			row := portRow{
				ScanID:   scanID,
				IP:       ip,
				Port:     p.Port,
				Protocol: portscan.Protocol,
				State:    string(p.State),
				Service:  p.Service,
			}
			if _, err = tx.NamedExecContext(ctx,
				`INSERT INTO ports (scan_id, ip, port, protocol, state, service)
				 VALUES (:scan_id, :ip, :port, :protocol, :state, :service)`, row); err != nil {
				return fmt.Errorf("%w: insert port %s:%d: %w", ErrOutputWrite, ip, p.Port, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrOutputWrite, err)
	}
	s.lastID = scanID
	s.logger.Debug("results written",
		zap.String("path", s.path),
		zap.String("scan_id", scanID),
		zap.Int("hosts", results.Len()))
	return nil
}

// ScanID 最近一次成功写入的扫描 ID
func (s *SQLite) ScanID() string { return s.lastID }

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Describe() string { return s.path }
