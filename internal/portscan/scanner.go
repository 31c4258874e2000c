package portscan

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency 单台主机同时在途的探测数上限
const DefaultConcurrency = 50

// HostScanner 对单台主机并发探测一组端口
type HostScanner struct {
	prober      *Prober
	ports       PortSet
	concurrency int
}

// NewHostScanner 创建一个单主机扫描器
func NewHostScanner(prober *Prober, ports PortSet, concurrency int) *HostScanner {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &HostScanner{
		prober:      prober,
		ports:       ports,
		concurrency: concurrency,
	}
}

func (s *HostScanner) Ports() PortSet { return s.ports }

// ScanHost 探测 PortSet 中的全部端口, 等所有探测结束后返回
// 开放端口按完成先后排列; 工作池与收集器只属于这一次调用
func (s *HostScanner) ScanHost(ctx context.Context, host string) (HostResult, error) {
	var (
		mu   sync.Mutex
		open []PortResult
	)

	// 不用 WithContext: 一个探测出错不应取消其余探测
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for port := range s.ports.All() {
		// 达到上限时 Go 会阻塞, 等待空位
		g.Go(func() error {
			outcome, err := s.prober.Probe(ctx, host, port)
			if err != nil {
				return err
			}
			if outcome.IsOpen() {
				mu.Lock()
				open = append(open, outcome.Result())
				mu.Unlock()
			}
			return nil
		})
	}
	err := g.Wait()

	if open == nil {
		open = []PortResult{}
	}
	return HostResult{
		IP:        host,
		Timestamp: time.Now(),
		OpenPorts: open,
		TotalOpen: len(open),
	}, err
}
