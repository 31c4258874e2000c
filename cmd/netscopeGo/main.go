package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"NetScopeGo/internal/config"
	"NetScopeGo/internal/logging"
	"NetScopeGo/internal/netrange"
	"NetScopeGo/internal/portscan"
	"NetScopeGo/internal/report"
	"NetScopeGo/internal/services"
	"NetScopeGo/internal/sink"
)

const (
	exitOK          = 0
	exitError       = 1
	exitUsage       = 2
	exitInterrupted = 130
)

var errUsage = errors.New("usage")

type cliArgs struct {
	target   string
	noBanner bool
	verbose  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	errOut := report.NewConsole(stderr, isTerminal(stderr), false)

	cfg, err := config.Load(os.Getenv("NETSCOPE_ENV_FILE"))
	if err != nil {
		errOut.Error("配置错误: %v", err)
		return exitUsage
	}
	cli, err := parseArgs(args, cfg, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		// flag 包已经打印过自己的解析错误
		if errors.Is(err, errUsage) {
			errOut.Error("%v", err)
		}
		return exitUsage
	}
	if cli.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		errOut.Error("配置错误: %v", err)
		return exitUsage
	}

	useColor := !cfg.NoColor && isTerminal(stdout)
	if cfg.NoColor {
		errOut = report.NewConsole(stderr, false, false)
	}
	if !cli.noBanner {
		report.PrintBanner(stdout, useColor)
	}

	logger, err := logging.New(cfg.LogLevel, stderr)
	if err != nil {
		errOut.Error("%v", err)
		return exitUsage
	}
	defer func() { _ = logger.Sync() }()

	catalog, err := services.Load(cfg.ServicesFile)
	if err != nil {
		errOut.Error("服务表加载失败: %v", err)
		return exitUsage
	}
	if cfg.ServicesFile != "" {
		logger.Debug("services file loaded",
			zap.String("path", cfg.ServicesFile),
			zap.Int("entries", catalog.Len()))
	}

	console := report.NewConsole(stdout, useColor, isTerminal(stdout))
	scanner := portscan.NewNetworkScanner(portscan.SelectPorts(cfg.AllPorts),
		portscan.WithCatalog(catalog),
		portscan.WithReporter(console),
		portscan.WithLogger(logger),
		portscan.WithMaxHosts(cfg.MaxHosts),
	)

	started := time.Now()
	results, err := scanner.Scan(ctx, cli.target)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		console.Error("扫描被中断, 结果未保存")
		return exitInterrupted
	case errors.Is(err, netrange.ErrInvalidNetworkSpec):
		console.Error("Invalid network format: %v", err)
		return exitError
	default:
		console.Error("%v", err)
		return exitError
	}

	out, err := sink.Open(ctx, cfg.Output, sink.Options{
		Target:        cli.target,
		StartedAt:     started,
		MongoDatabase: cfg.MongoDatabase,
		Logger:        logger,
	})
	if err != nil {
		console.Error("%v", err)
		return exitError
	}
	defer out.Close()

	if err := out.Write(ctx, results); err != nil {
		logger.Error("write results", zap.String("dest", out.Describe()), zap.Error(err))
		console.Error("%v", err)
		return exitError
	}
	console.Saved(out.Describe())
	return exitOK
}

// parseArgs 允许参数和目标网段交错出现, 例如 "10.0.0.0/24 -a -o out.json"
func parseArgs(args []string, cfg *config.Config, stderr io.Writer) (cliArgs, error) {
	var cli cliArgs
	fs := flag.NewFlagSet("netscopeGo", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.Output, "output", cfg.Output, "结果输出位置: JSON 文件, .db/.sqlite 文件或 mongodb:// URI")
	fs.StringVar(&cfg.Output, "o", cfg.Output, "同 --output")
	fs.BoolVar(&cfg.AllPorts, "all-ports", cfg.AllPorts, "扫描 1-1024 全部端口")
	fs.BoolVar(&cfg.AllPorts, "a", cfg.AllPorts, "同 --all-ports")
	fs.Uint64Var(&cfg.MaxHosts, "max-hosts", cfg.MaxHosts, "可用主机数上限, 0 不限制")
	fs.StringVar(&cfg.ServicesFile, "services-file", cfg.ServicesFile, "services(5) 格式的端口服务表")
	fs.BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "关闭彩色输出")
	fs.BoolVar(&cli.noBanner, "no-banner", false, "不显示启动横幅")
	fs.BoolVar(&cli.verbose, "verbose", false, "输出调试日志")
	fs.BoolVar(&cli.verbose, "v", false, "同 --verbose")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "用法: netscopeGo [选项] <网段CIDR>\n\n")
		fs.PrintDefaults()
	}

	for {
		if err := fs.Parse(args); err != nil {
			return cli, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			break
		}
		if cli.target != "" {
			return cli, fmt.Errorf("%w: unexpected argument %q", errUsage, rest[0])
		}
		cli.target = rest[0]
		args = rest[1:]
	}
	if cli.target == "" {
		fs.Usage()
		return cli, fmt.Errorf("%w: missing target network (e.g. 192.168.1.0/24)", errUsage)
	}
	return cli, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
