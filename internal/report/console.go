package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"NetScopeGo/internal/portscan"
)

const separatorWidth = 50

// Console 把扫描进度输出到终端
// progressBar 为 true 时用进度条代替逐台主机的 "Scanning host" 行
type Console struct {
	out         io.Writer
	useColor    bool
	progressBar bool

	info  *color.Color
	good  *color.Color
	bad   *color.Color
	plain *color.Color

	bar *progressbar.ProgressBar
}

// NewConsole 创建控制台输出
func NewConsole(out io.Writer, useColor, progressBar bool) *Console {
	c := &Console{
		out:         out,
		useColor:    useColor,
		progressBar: progressBar,
		info:        color.New(color.FgCyan),
		good:        color.New(color.FgGreen),
		bad:         color.New(color.FgRed),
		plain:       color.New(color.Reset),
	}
	if !useColor {
		for _, col := range []*color.Color{c.info, c.good, c.bad, c.plain} {
			col.DisableColor()
		}
	} else {
		// 输出不一定是终端, 显式打开颜色
		for _, col := range []*color.Color{c.info, c.good, c.bad, c.plain} {
			col.EnableColor()
		}
	}
	return c
}

func (c *Console) ScanStarted(network string, hosts uint64, ports portscan.PortSet, at time.Time) {
	c.info.Fprintf(c.out, "\n--- 开始扫描网段: %s ---\n", network)
	c.info.Fprintf(c.out, "--- 主机数: %d | 端口: %s (%d) ---\n", hosts, ports, ports.Len())
	c.plain.Fprintf(c.out, "Time started: %s\n\n", at.Format(time.DateTime))

	if !c.progressBar || hosts == 0 {
		return
	}
	total := int64(-1) // 超大 IPv6 网段退化为计数器
	if hosts <= math.MaxInt64 {
		total = int64(hosts)
	}
	theme := progressbar.Theme{
		Saucer:        "=",
		SaucerHead:    ">",
		SaucerPadding: " ",
		BarStart:      "[",
		BarEnd:        "]",
	}
	if c.useColor {
		theme.Saucer = "[green]=[reset]"
		theme.SaucerHead = "[green]>[reset]"
	}
	c.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionEnableColorCodes(c.useColor),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(c.barLabel()),
		progressbar.OptionSetTheme(theme),
	)
}

// barLabel 关闭颜色时不能带 [cyan] 之类的标记, 否则会原样输出
func (c *Console) barLabel() string {
	if c.useColor {
		return "[cyan][扫描中][reset]"
	}
	return "[扫描中]"
}

func (c *Console) HostStarted(ip string) {
	if c.bar != nil {
		c.bar.Describe(fmt.Sprintf("%s %-15s", c.barLabel(), ip))
		return
	}
	c.plain.Fprintf(c.out, "Scanning host: %s\n", ip)
}

// HostFound 打印一台主机的开放端口
func (c *Console) HostFound(h portscan.HostResult) {
	if c.bar != nil {
		_ = c.bar.Clear()
	}
	c.good.Fprintf(c.out, "\r[+]Host: %s\n", h.IP)
	c.plain.Fprintf(c.out, "Scanned at: %s\n", h.Timestamp.Format(time.RFC3339))
	c.plain.Fprintf(c.out, "Open ports: %d\n", h.TotalOpen)
	c.plain.Fprintln(c.out, "Port details:")
	for _, p := range h.OpenPorts {
		c.good.Fprintf(c.out, "  %d/%s - %s\n", p.Port, portscan.Protocol, p.Service)
	}
	c.plain.Fprintln(c.out, strings.Repeat("-", separatorWidth))
}

func (c *Console) HostFinished(string) {
	if c.bar != nil {
		_ = c.bar.Add(1)
	}
}

func (c *Console) ScanFinished(results *portscan.ScanResults, elapsed time.Duration, err error) {
	if c.bar != nil {
		_ = c.bar.Finish()
		c.bar = nil
		fmt.Fprintln(c.out)
	}
	fmt.Fprintln(c.out, "============================")
	if err != nil {
		c.bad.Fprintf(c.out, "[-]扫描中断: %v\n", err)
	}
	c.info.Fprintf(c.out, "[+]扫描完成!耗时: %s\n", elapsed.Round(time.Millisecond))
	c.info.Fprintf(c.out, "[+]存活主机: %d | 开放端口: %d\n", results.Len(), results.TotalOpenPorts())
}

// Saved 结果写入成功
func (c *Console) Saved(dest string) {
	c.good.Fprintf(c.out, "\nResults saved to %s\n", dest)
}

// Error 打印一条错误
func (c *Console) Error(format string, args ...any) {
	c.bad.Fprintf(c.out, "[-]"+format+"\n", args...)
}
