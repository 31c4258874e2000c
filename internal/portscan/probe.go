package portscan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"
	"time"

	"NetScopeGo/internal/services"
)

// DefaultTimeout 单次连接超时
const DefaultTimeout = time.Second

// Dialer 建立 TCP 连接, *net.Dialer 即满足
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ServiceLookup 端口 -> 服务名
type ServiceLookup interface {
	Lookup(port int) string
}

// Prober 对单个 (host, port) 做一次 TCP 全连接探测
type Prober struct {
	dialer  Dialer
	timeout time.Duration
	catalog ServiceLookup
}

func NewProber(dialer Dialer, timeout time.Duration, catalog ServiceLookup) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if dialer == nil {
		dialer = &net.Dialer{
			Timeout:   timeout,
			KeepAlive: -1, // 扫描不需要保持连接
		}
	}
	if catalog == nil {
		catalog = services.New()
	}
	return &Prober{dialer: dialer, timeout: timeout, catalog: catalog}
}

// Probe 不重试; 所有网络层错误都折叠为 NotOpen
// 只有本机资源耗尽会返回 error
func (p *Prober) Probe(ctx context.Context, host string, port int) (ProbeOutcome, error) {
	address := net.JoinHostPort(host, strconv.Itoa(port))

	dctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(dctx, "tcp", address)
	if err != nil {
		if resourceExhausted(err) {
			return NotOpen, fmt.Errorf("%w: dial %s: %v", ErrResourceExhausted, address, err)
		}
		return NotOpen, nil
	}
	_ = conn.Close()

	return Open(port, p.catalog.Lookup(port)), nil
}

func resourceExhausted(err error) bool {
	return errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE) ||
		errors.Is(err, syscall.ENOBUFS) ||
		errors.Is(err, syscall.ENOMEM)
}
