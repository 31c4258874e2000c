package services

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/gopacket/layers"
)

// Unknown 未登记端口的服务名
const Unknown = "unknown"

// DefaultServicesFile 系统 services(5) 文件
const DefaultServicesFile = "/etc/services"

// wellKnown 与 netdb 保持一致的常用名称, IANA 注册表里这几个端口的首选名不同
var wellKnown = map[int]string{
	20:   "ftp-data",
	21:   "ftp",
	22:   "ssh",
	23:   "telnet",
	25:   "smtp",
	53:   "domain",
	80:   "http",
	110:  "pop3",
	143:  "imap",
	443:  "https",
	445:  "microsoft-ds",
	3306: "mysql",
	3389: "ms-wbt-server",
	5432: "postgresql",
}

// Catalog 端口 -> 服务名 的静态映射, 构建后只读
type Catalog struct {
	overrides map[int]string
}

// New 只使用内置表 (常用名 + gopacket 携带的 IANA TCP 注册表)
func New() *Catalog {
	return &Catalog{overrides: map[int]string{}}
}

// Load 在内置表之上叠加 services(5) 文件里的 tcp 条目
// path 为空时等同于 New
func Load(path string) (*Catalog, error) {
	if path == "" {
		return New(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open services file: %w", err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse services file %s: %w", path, err)
	}
	return &Catalog{overrides: entries}, nil
}

// Lookup 返回端口对应的服务名, 未知返回 "unknown"
func (c *Catalog) Lookup(port int) string {
	if port < 1 || port > 65535 {
		return Unknown
	}
	if name, ok := c.overrides[port]; ok {
		return name
	}
	if name, ok := wellKnown[port]; ok {
		return name
	}
	return ianaName(port)
}

// Len 叠加表条目数
func (c *Catalog) Len() int { return len(c.overrides) }

// ianaName 借用 gopacket 的端口名表, String() 形如 "631(ipp)"
func ianaName(port int) string {
	s := layers.TCPPort(port).String()
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return Unknown
	}
	name := strings.ToLower(s[open+1 : len(s)-1])
	if name == "" {
		return Unknown
	}
	return name
}

// Parse 读取 services(5) 格式: "name port/proto [aliases...] [# comment]"
// 只保留 tcp, 同一端口以首次出现为准
func Parse(r io.Reader) (map[int]string, error) {
	out := make(map[int]string)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: missing port/protocol", lineNo)
		}
		portStr, proto, ok := strings.Cut(fields[1], "/")
		if !ok {
			return nil, fmt.Errorf("line %d: malformed %q", lineNo, fields[1])
		}
		if proto != "tcp" {
			continue
		}
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("line %d: invalid port %q", lineNo, portStr)
		}
		if _, dup := out[port]; !dup {
			out[port] = fields[0]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
