package portscan

import (
	"errors"
	"time"
)

var (
	// ErrResourceExhausted 本机文件描述符/缓冲区耗尽, 唯一会穿透探测层的错误
	ErrResourceExhausted = errors.New("local resources exhausted")
	// ErrTooManyHosts 网段可用主机数超过 MaxHosts 上限
	ErrTooManyHosts = errors.New("network exceeds host limit")
	// ErrScanInProgress 同一个 NetworkScanner 上已有扫描在运行
	ErrScanInProgress = errors.New("scan already in progress")
)

// PortState 端口状态, 结果里只会出现 open
type PortState string

const (
	StateOpen PortState = "open"
)

// Protocol 控制台输出用的协议标签
const Protocol = "tcp"

// PortResult 单个开放端口
type PortResult struct {
	Port    int       `json:"port"`
	State   PortState `json:"state"`
	Service string    `json:"service"`
}

// HostResult 单台主机的扫描结果
// OpenPorts 按探测完成顺序排列, 不是端口号顺序
type HostResult struct {
	IP        string       `json:"ip"`
	Timestamp time.Time    `json:"timestamp"`
	OpenPorts []PortResult `json:"open_ports"`
	TotalOpen int          `json:"total_open_ports"`
}

// ProbeOutcome 单次探测结果: Open(port, service) 或 NotOpen
// 拒绝/超时/不可达统一折叠为 NotOpen
type ProbeOutcome struct {
	open    bool
	port    int
	service string
}

// NotOpen 未开放 (关闭、过滤、不可达都不区分)
var NotOpen = ProbeOutcome{}

// Open 构造开放结果
func Open(port int, service string) ProbeOutcome {
	return ProbeOutcome{open: true, port: port, service: service}
}

func (o ProbeOutcome) IsOpen() bool { return o.open }

func (o ProbeOutcome) Port() int { return o.port }

func (o ProbeOutcome) Service() string { return o.service }

// Result 转成结果记录, 仅对 Open 有意义
func (o ProbeOutcome) Result() PortResult {
	return PortResult{Port: o.port, State: StateOpen, Service: o.service}
}
