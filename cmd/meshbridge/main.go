// Package main 提供网状电台桥接器的命令行入口
//
// 使用方法:
//
//	meshbridge                        自动发现两台电台
//	meshbridge <端点A> <端点B>         使用指定的两个电台端点
//
// 可选参数:
//
//	-config <path>    JSON 配置文件
//	-status <path>    状态文件路径
//	-log <level>      日志级别（debug/info/warn/error）
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dep2p/go-meshbridge"
	"github.com/dep2p/go-meshbridge/internal/util/logger"
	"github.com/dep2p/go-meshbridge/pkg/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "用法: %s [选项] [<端点A> <端点B>]\n", os.Args[0])
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "不带位置参数时通过 mDNS 自动发现两台电台；")
	fmt.Fprintln(os.Stderr, "带两个位置参数时使用指定端点（host:port）。")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "选项:")
	flag.PrintDefaults()
}

func run() error {
	configPath := flag.String("config", "", "JSON 配置文件路径")
	statusPath := flag.String("status", "", "状态文件路径（覆盖配置）")
	logLevel := flag.String("log", "", "日志级别（debug/info/warn/error）")
	flag.Usage = usage
	flag.Parse()

	if *logLevel != "" {
		level, err := parseLogLevel(*logLevel)
		if err != nil {
			return err
		}
		logger.SetGlobalLevel(level)
	}

	var opts []meshbridge.Option
	if *configPath != "" {
		opts = append(opts, meshbridge.WithConfigFile(*configPath))
	}
	if *statusPath != "" {
		opts = append(opts, meshbridge.WithStatusPath(*statusPath))
	}

	// 位置参数：0 个走自动发现，恰好 2 个为显式端点，其余报用法
	switch flag.NArg() {
	case 0:
		fmt.Println("未指定端点，正在通过 mDNS 自动发现电台...")
	case 2:
		opts = append(opts, meshbridge.WithEndpoints(flag.Arg(0), flag.Arg(1)))
		fmt.Printf("使用指定端点: %s 和 %s\n", flag.Arg(0), flag.Arg(1))
	default:
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 捕获中断信号
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signalCh
		fmt.Printf("\n收到信号 %v，正在关闭...\n", sig)
		cancel()
	}()

	bridge, err := meshbridge.New(opts...)
	if err != nil {
		return fmt.Errorf("创建桥接器失败: %w", err)
	}
	defer func() { _ = bridge.Close() }()

	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("启动桥接器失败: %w", err)
	}

	printBridgeInfo(bridge)

	// 等待关闭
	<-ctx.Done()

	fmt.Println("正在关闭桥接器...")
	return nil
}

// parseLogLevel 解析日志级别名称
func parseLogLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("未知的日志级别: %s", name)
	}
}

// printBridgeInfo 打印桥接信息
func printBridgeInfo(bridge *meshbridge.Bridge) {
	fmt.Println()
	fmt.Println("桥接器已启动:")
	for _, id := range types.Links() {
		info := bridge.NodeInfo(id)
		fmt.Printf("  链路 %s: %s", id, bridge.Endpoint(id))
		if info.NodeID != "" {
			fmt.Printf("  (节点 %s, %s)", info.NodeID, info.HWModel)
		}
		fmt.Println()
	}
	fmt.Println()
	fmt.Println("按 Ctrl+C 停止。")
}
