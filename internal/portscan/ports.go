package portscan

import (
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"
)

// commonPorts 默认扫描的常用端口
var commonPorts = []int{20, 21, 22, 23, 25, 53, 80, 443, 445, 3389}

const (
	allPortsStart = 1
	allPortsEnd   = 1024
)

type portSetKind uint8

const (
	kindEnumerated portSetKind = iota
	kindRange
)

// PortSet 端口集合: 枚举列表或连续区间, 构造后不可变
type PortSet struct {
	kind       portSetKind
	list       []int
	start, end int
}

// CommonPorts 常用端口列表
func CommonPorts() PortSet {
	return PortSet{kind: kindEnumerated, list: slices.Clone(commonPorts)}
}

// AllPorts 1-1024 全范围
func AllPorts() PortSet {
	return PortSet{kind: kindRange, start: allPortsStart, end: allPortsEnd}
}

// SelectPorts 对应命令行 --all-ports 开关
func SelectPorts(all bool) PortSet {
	if all {
		return AllPorts()
	}
	return CommonPorts()
}

// PortList 自定义端口列表, 保持给定顺序并去重
func PortList(ports ...int) (PortSet, error) {
	if len(ports) == 0 {
		return PortSet{}, fmt.Errorf("empty port list")
	}
	seen := make(map[int]struct{}, len(ports))
	list := make([]int, 0, len(ports))
	for _, p := range ports {
		if err := validPort(p); err != nil {
			return PortSet{}, err
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		list = append(list, p)
	}
	return PortSet{kind: kindEnumerated, list: list}, nil
}

// PortRange 闭区间 [start, end]
func PortRange(start, end int) (PortSet, error) {
	if err := validPort(start); err != nil {
		return PortSet{}, err
	}
	if err := validPort(end); err != nil {
		return PortSet{}, err
	}
	if start > end {
		return PortSet{}, fmt.Errorf("range start %d greater than end %d", start, end)
	}
	return PortSet{kind: kindRange, start: start, end: end}, nil
}

func validPort(p int) error {
	if p < 1 || p > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", p)
	}
	return nil
}

// All 统一的遍历接口
func (s PortSet) All() iter.Seq[int] {
	return func(yield func(int) bool) {
		if s.kind == kindRange {
			for p := s.start; p <= s.end; p++ {
				if !yield(p) {
					return
				}
			}
			return
		}
		for _, p := range s.list {
			if !yield(p) {
				return
			}
		}
	}
}

func (s PortSet) Len() int {
	if s.kind == kindRange {
		return s.end - s.start + 1
	}
	return len(s.list)
}

func (s PortSet) String() string {
	if s.kind == kindRange {
		return fmt.Sprintf("%d-%d", s.start, s.end)
	}
	parts := make([]string, len(s.list))
	for i, p := range s.list {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}
