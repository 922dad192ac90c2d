package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawlgate/internal/clock/system"
	"github.com/JakeFAU/crawlgate/internal/config"
	"github.com/JakeFAU/crawlgate/internal/gate"
	"github.com/JakeFAU/crawlgate/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := NewMain()
	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Logger overrides the logger built from configuration. Set before Run().
	Logger *zap.Logger

	// GateOptions are appended to the options used to build the gate.
	GateOptions []gate.Option
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("crawlgate"),
		kong.Description("Admission gate for polite crawling: allow/deny lists, robots.txt and per-domain rate limits."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'crawlgate --help' to see available commands")
	}
	switch args[0] {
	case "help", "--help", "-h":
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	deps.Config = cfg

	logger := m.Logger
	if logger == nil {
		logger, err = logging.New(cfg.Logging.Development)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() {
			// Sync on a console sink returns EINVAL on some platforms.
			_ = logger.Sync()
		}()
		zap.ReplaceGlobals(logger)
	}
	deps.Logger = logger

	opts := []gate.Option{
		gate.WithLogger(logger.Named("gate")),
		gate.WithClock(system.New()),
	}
	opts = append(opts, m.GateOptions...)
	g, err := gate.New(cfg.Gate(), opts...)
	if err != nil {
		return fmt.Errorf("build gate: %w", err)
	}
	deps.Gate = g

	return kongCtx.Run(deps)
}
