package portscan

import (
	"context"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// fakeDialer 模拟一个网段: open 中的地址握手成功, 其余返回 ECONNREFUSED
type fakeDialer struct {
	open  map[string]bool
	delay time.Duration
	fail  error // 非空时所有拨号都返回该错误

	mu    sync.Mutex
	calls []string

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func newFakeDialer(open ...string) *fakeDialer {
	d := &fakeDialer{open: make(map[string]bool)}
	for _, a := range open {
		d.open[a] = true
	}
	return d
}

func (d *fakeDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	n := d.inflight.Add(1)
	defer d.inflight.Add(-1)
	for {
		m := d.maxInflight.Load()
		if n <= m || d.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}

	d.mu.Lock()
	d.calls = append(d.calls, address)
	d.mu.Unlock()

	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return nil, &net.OpError{Op: "dial", Net: network, Err: ctx.Err()}
		}
	}
	if d.fail != nil {
		return nil, d.fail
	}
	if d.open[address] {
		client, server := net.Pipe()
		_ = server.Close()
		return client, nil
	}
	return nil, &net.OpError{Op: "dial", Net: network, Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
}

func (d *fakeDialer) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.calls))
	copy(out, d.calls)
	return out
}

// recordingReporter 记录回调顺序
type recordingReporter struct {
	started  []string
	found    []HostResult
	finished []string
	scans    int
	done     int
	lastErr  error
}

func (r *recordingReporter) ScanStarted(string, uint64, PortSet, time.Time) { r.scans++ }
func (r *recordingReporter) HostStarted(ip string)                          { r.started = append(r.started, ip) }
func (r *recordingReporter) HostFound(h HostResult)                         { r.found = append(r.found, h) }
func (r *recordingReporter) HostFinished(ip string)                         { r.finished = append(r.finished, ip) }
func (r *recordingReporter) ScanFinished(_ *ScanResults, _ time.Duration, err error) {
	r.done++
	r.lastErr = err
}

// staticCatalog 测试用服务表
type staticCatalog map[int]string

func (c staticCatalog) Lookup(port int) string {
	if name, ok := c[port]; ok {
		return name
	}
	return "unknown"
}
