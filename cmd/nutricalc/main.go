// nutricalc 計算菜餚每 100 克的營養成分
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nutrition-calculator/internal/core/nutrition"
	"nutrition-calculator/internal/core/service"
	"nutrition-calculator/internal/infrastructure/config"
	"nutrition-calculator/internal/pkg/common"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// 結束代碼
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// jsonOutput --format json 的輸出
type jsonOutput struct {
	Path         string             `json:"path"`
	ResolutionID string             `json:"resolution_id"`
	Facts        nutrition.Facts    `json:"facts"`
	Nutrients    []nutrition.Amount `json:"nutrients"`
	Basis        float64            `json:"basis"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("nutricalc", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	recipeFile := fs.StringP("recipe-file", "r", "", "path or URL of the recipe document")
	format := fs.String("format", "text", "output format: text or json")
	trace := fs.Bool("trace", false, "log every ingredient contribution at debug level")
	timeout := fs.Duration("timeout", 30*time.Second, "overall resolution timeout (0 disables)")
	logLevel := fs.String("log-level", "warn", "log level: debug, info, warn, error")
	baseDir := fs.String("base-dir", "", "only load documents under this directory (default: no restriction)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if *recipeFile == "" {
		fmt.Fprintln(stderr, "Error: --recipe-file is required")
		fs.Usage()
		return exitUsage
	}
	if *format != "text" && *format != "json" {
		fmt.Fprintf(stderr, "Error: unknown format %q\n", *format)
		return exitUsage
	}

	v := viper.New()
	v.Set("loader.base_dir", *baseDir)
	if *trace {
		v.Set("resolver.trace", true)
	}
	cfg, err := config.Load(v)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	level := *logLevel
	if *trace {
		level = "debug"
	}
	if err := common.InitLogger(common.LogOptions{
		Level:   level,
		File:    cfg.LogFile,
		Console: stderr,
		Service: "nutricalc",
	}); err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialize logger: %v\n", err)
		return exitError
	}
	defer common.Sync()

	svc, err := service.NewService(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer func() {
		if err := svc.Close(); err != nil {
			common.LogWarn("failed to close service", zap.Error(err))
		}
	}()

	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	res, err := svc.ResolveLocation(ctx, *recipeFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	if *format == "json" {
		out, err := common.ToJSONIndent(jsonOutput{
			Path:         *recipeFile,
			ResolutionID: res.ID,
			Facts:        res.Facts,
			Nutrients:    res.Facts.Ordered(),
			Basis:        res.Basis,
		})
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		fmt.Fprintln(stdout, out)
		return exitOK
	}

	fmt.Fprintf(stdout, "Facts: %s\n", *recipeFile)
	fmt.Fprint(stdout, nutrition.Format(res.Facts))
	return exitOK
}
