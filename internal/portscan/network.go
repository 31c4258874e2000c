package portscan

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"NetScopeGo/internal/netrange"
	"NetScopeGo/internal/services"
)

// State NetworkScanner 的生命周期
type State int32

const (
	StateIdle State = iota
	StateEnumerating
	StateScanning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEnumerating:
		return "enumerating"
	case StateScanning:
		return "scanning"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Reporter 接收扫描进度, 由控制台等外部组件实现
// 所有回调都在扫描 goroutine 上同步调用
type Reporter interface {
	ScanStarted(network string, hosts uint64, ports PortSet, at time.Time)
	HostStarted(ip string)
	HostFound(host HostResult)
	HostFinished(ip string)
	ScanFinished(results *ScanResults, elapsed time.Duration, err error)
}

// NopReporter 丢弃所有进度
type NopReporter struct{}

func (NopReporter) ScanStarted(string, uint64, PortSet, time.Time)  {}
func (NopReporter) HostStarted(string)                              {}
func (NopReporter) HostFound(HostResult)                            {}
func (NopReporter) HostFinished(string)                             {}
func (NopReporter) ScanFinished(*ScanResults, time.Duration, error) {}

type options struct {
	dialer      Dialer
	timeout     time.Duration
	concurrency int
	catalog     ServiceLookup
	reporter    Reporter
	logger      *zap.Logger
	maxHosts    uint64
}

// Option 配置 NetworkScanner
type Option func(*options)

func WithDialer(d Dialer) Option { return func(o *options) { o.dialer = d } }

func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

func WithConcurrency(n int) Option { return func(o *options) { o.concurrency = n } }

func WithCatalog(c ServiceLookup) Option { return func(o *options) { o.catalog = c } }

func WithReporter(r Reporter) Option { return func(o *options) { o.reporter = r } }

func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// WithMaxHosts 可用主机数上限, 0 表示不限制
func WithMaxHosts(n uint64) Option { return func(o *options) { o.maxHosts = n } }

// NetworkScanner 逐台主机顺序扫描整个网段
// 主机之间不并发, 只有同一主机的端口并发
type NetworkScanner struct {
	hosts    *HostScanner
	reporter Reporter
	logger   *zap.Logger
	maxHosts uint64

	state atomic.Int32
	last  atomic.Pointer[ScanResults]
}

// NewNetworkScanner 端口集合在构造时确定, 之后不再变化
func NewNetworkScanner(ports PortSet, opts ...Option) *NetworkScanner {
	o := options{
		timeout:     DefaultTimeout,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.catalog == nil {
		o.catalog = services.New()
	}
	if o.reporter == nil {
		o.reporter = NopReporter{}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	prober := NewProber(o.dialer, o.timeout, o.catalog)
	return &NetworkScanner{
		hosts:    NewHostScanner(prober, ports, o.concurrency),
		reporter: o.reporter,
		logger:   o.logger.With(zap.String("component", "network-scanner")),
		maxHosts: o.maxHosts,
	}
}

func (s *NetworkScanner) State() State { return State(s.state.Load()) }

// Results 最近一次完整扫描的结果, 尚未完成过则为 nil
func (s *NetworkScanner) Results() *ScanResults { return s.last.Load() }

func (s *NetworkScanner) begin() error {
	for {
		cur := State(s.state.Load())
		if cur == StateEnumerating || cur == StateScanning {
			return ErrScanInProgress
		}
		if s.state.CompareAndSwap(int32(cur), int32(StateEnumerating)) {
			return nil
		}
	}
}

func (s *NetworkScanner) setState(st State) { s.state.Store(int32(st)) }

// Scan 扫描 target 网段并返回结果
// 目标非法时返回空结果和 netrange.ErrInvalidNetworkSpec, 不会探测任何主机
// ctx 结束时在主机之间停止, 返回已有结果和 ctx.Err()
func (s *NetworkScanner) Scan(ctx context.Context, target string) (*ScanResults, error) {
	results := NewScanResults()
	if err := s.begin(); err != nil {
		return results, err
	}

	network, err := netrange.Parse(target)
	if err != nil {
		s.setState(StateFailed)
		s.logger.Debug("rejecting target", zap.String("target", target), zap.Error(err))
		return results, err
	}

	count := network.HostCount()
	if s.maxHosts > 0 && count > s.maxHosts {
		s.setState(StateFailed)
		return results, fmt.Errorf("%w: %s has %d usable hosts, limit is %d", ErrTooManyHosts, network, count, s.maxHosts)
	}

	ports := s.hosts.Ports()
	start := time.Now()
	s.reporter.ScanStarted(network.String(), count, ports, start)
	s.logger.Debug("starting network scan",
		zap.Stringer("network", network),
		zap.Uint64("hosts", count),
		zap.Int("ports", ports.Len()),
	)

	s.setState(StateScanning)
	var scanErr error
	for addr := range network.Hosts() {
		if err := ctx.Err(); err != nil {
			scanErr = err
			break
		}
		ip := addr.String()
		s.reporter.HostStarted(ip)

		hostStart := time.Now()
		host, err := s.hosts.ScanHost(ctx, ip)
		if err != nil {
			s.reporter.HostFinished(ip)
			scanErr = fmt.Errorf("scan host %s: %w", ip, err)
			break
		}
		if host.TotalOpen > 0 {
			results.add(host)
			s.reporter.HostFound(host)
		}
		s.reporter.HostFinished(ip)
		s.logger.Debug("host scanned",
			zap.String("ip", ip),
			zap.Int("open", host.TotalOpen),
			zap.Duration("elapsed", time.Since(hostStart)),
		)
	}

	elapsed := time.Since(start)
	if scanErr != nil {
		s.setState(StateFailed)
		s.logger.Warn("network scan aborted",
			zap.Stringer("network", network),
			zap.Int("hosts_found", results.Len()),
			zap.Error(scanErr),
		)
		s.reporter.ScanFinished(results, elapsed, scanErr)
		return results, scanErr
	}

	s.last.Store(results)
	s.setState(StateCompleted)
	s.logger.Debug("network scan completed",
		zap.Stringer("network", network),
		zap.Int("hosts_found", results.Len()),
		zap.Duration("elapsed", elapsed),
	)
	s.reporter.ScanFinished(results, elapsed, nil)
	return results, nil
}
