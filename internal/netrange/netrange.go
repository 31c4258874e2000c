package netrange

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"net/netip"
	"strings"
)

// ErrInvalidNetworkSpec 表示目标不是合法的 网络/前缀 组合
var ErrInvalidNetworkSpec = errors.New("invalid network spec")

// Network 一个已解析的 CIDR 网段
type Network struct {
	prefix netip.Prefix
}

// Parse 解析 CIDR 字符串
// 不带前缀长度的单个地址按 /32 (IPv6 为 /128) 处理
// 主机位不为零的写法 (如 192.168.1.5/24) 视为非法
func Parse(spec string) (*Network, error) {
	s := strings.TrimSpace(spec)
	if s == "" {
		return nil, fmt.Errorf("%w: empty target", ErrInvalidNetworkSpec)
	}

	var prefix netip.Prefix
	if !strings.Contains(s, "/") {
		addr, err := netip.ParseAddr(s)
		if err != nil || addr.Zone() != "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidNetworkSpec, spec)
		}
		prefix = netip.PrefixFrom(addr, addr.BitLen())
	} else {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidNetworkSpec, spec, err)
		}
		prefix = p
	}

	if masked := prefix.Masked(); masked != prefix {
		return nil, fmt.Errorf("%w: %q has host bits set (network is %s)", ErrInvalidNetworkSpec, spec, masked)
	}
	return &Network{prefix: prefix}, nil
}

// MustParse 用于测试和常量网段
func MustParse(spec string) *Network {
	n, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return n
}

func (n *Network) Prefix() netip.Prefix { return n.prefix }

func (n *Network) String() string { return n.prefix.String() }

func (n *Network) hostBits() int {
	return n.prefix.Addr().BitLen() - n.prefix.Bits()
}

// HostCount 返回可用主机数, IPv6 大网段饱和到 MaxUint64
func (n *Network) HostCount() uint64 {
	h := n.hostBits()
	switch {
	case h == 0:
		return 0
	case h == 1:
		return 2
	case h >= 64:
		return math.MaxUint64
	}
	total := uint64(1) << h
	if n.prefix.Addr().Is4() {
		return total - 2 // 网络地址 + 广播地址
	}
	return total - 1 // Subnet-Router anycast
}

// Hosts 按地址升序惰性产出可用主机地址, 可重复遍历
func (n *Network) Hosts() iter.Seq[netip.Addr] {
	return func(yield func(netip.Addr) bool) {
		first, last, ok := n.bounds()
		if !ok {
			return
		}
		for a := first; ; a = a.Next() {
			if !yield(a) {
				return
			}
			if a == last {
				return
			}
		}
	}
}

// bounds 计算首尾可用地址 (闭区间)
func (n *Network) bounds() (first, last netip.Addr, ok bool) {
	h := n.hostBits()
	if h == 0 {
		return netip.Addr{}, netip.Addr{}, false
	}
	network := n.prefix.Addr()
	top := lastAddr(n.prefix)
	// /31 与 /127 为点对点链路, 两个地址都可用
	if h == 1 {
		return network, top, true
	}
	if network.Is4() {
		return network.Next(), top.Prev(), true
	}
	return network.Next(), top, true
}

// lastAddr 把主机位全部置 1
func lastAddr(p netip.Prefix) netip.Addr {
	a := p.Addr()
	bits := p.Bits()
	if a.Is4() {
		b := a.As4()
		setHostBits(b[:], bits)
		return netip.AddrFrom4(b)
	}
	b := a.As16()
	setHostBits(b[:], bits)
	return netip.AddrFrom16(b)
}

func setHostBits(b []byte, bits int) {
	for i := range b {
		switch {
		case bits >= 8:
			bits -= 8
		case bits > 0:
			b[i] |= 0xff >> bits
			bits = 0
		default:
			b[i] = 0xff
		}
	}
}
