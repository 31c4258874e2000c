package portscan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"slices"
)

// ScanResults 主机地址 -> HostResult, 保留发现顺序
// 只收录至少有一个开放端口的主机
type ScanResults struct {
	order []string
	hosts map[string]HostResult
}

func NewScanResults() *ScanResults {
	return &ScanResults{hosts: make(map[string]HostResult)}
}

// add 仅由 NetworkScanner 在单主机扫描结束后调用
func (r *ScanResults) add(h HostResult) {
	if h.TotalOpen == 0 {
		return
	}
	if _, ok := r.hosts[h.IP]; !ok {
		r.order = append(r.order, h.IP)
	}
	r.hosts[h.IP] = h
}

func (r *ScanResults) Len() int { return len(r.order) }

// Get 返回副本, 调用方修改不会影响快照
func (r *ScanResults) Get(ip string) (HostResult, bool) {
	h, ok := r.hosts[ip]
	if !ok {
		return HostResult{}, false
	}
	h.OpenPorts = slices.Clone(h.OpenPorts)
	return h, true
}

// Addresses 按发现顺序返回主机地址
func (r *ScanResults) Addresses() []string {
	return slices.Clone(r.order)
}

// All 按发现顺序遍历
func (r *ScanResults) All() iter.Seq2[string, HostResult] {
	return func(yield func(string, HostResult) bool) {
		for _, ip := range r.order {
			h := r.hosts[ip]
			h.OpenPorts = slices.Clone(h.OpenPorts)
			if !yield(ip, h) {
				return
			}
		}
	}
}

// TotalOpenPorts 所有主机开放端口数之和
func (r *ScanResults) TotalOpenPorts() int {
	n := 0
	for _, h := range r.hosts {
		n += h.TotalOpen
	}
	return n
}

// MarshalJSON 按发现顺序输出对象键
func (r *ScanResults) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ip := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(ip)
		if err != nil {
			return nil, err
		}
		h := r.hosts[ip]
		if h.OpenPorts == nil {
			h.OpenPorts = []PortResult{}
		}
		val, err := json.Marshal(h)
		if err != nil {
			return nil, fmt.Errorf("marshal host %s: %w", ip, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON 保留文档里的键顺序, 并校验每条记录
func (r *ScanResults) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	fresh := NewScanResults()
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("scan results: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		ip, ok := tok.(string)
		if !ok {
			return fmt.Errorf("scan results: expected host key, got %v", tok)
		}
		var h HostResult
		if err := dec.Decode(&h); err != nil {
			return fmt.Errorf("scan results: host %s: %w", ip, err)
		}
		if h.IP == "" {
			h.IP = ip
		}
		if h.IP != ip {
			return fmt.Errorf("scan results: key %s holds host %s", ip, h.IP)
		}
		if h.TotalOpen != len(h.OpenPorts) {
			return fmt.Errorf("scan results: host %s total_open_ports %d != %d entries", ip, h.TotalOpen, len(h.OpenPorts))
		}
		if h.TotalOpen == 0 {
			return fmt.Errorf("scan results: host %s has no open ports", ip)
		}
		if _, dup := fresh.hosts[ip]; dup {
			return fmt.Errorf("scan results: duplicate host %s", ip)
		}
		fresh.add(h)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = *fresh
	return nil
}
