package main

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawlgate/internal/config"
	"github.com/JakeFAU/crawlgate/internal/gate"
)

// Dependencies holds the values bound into every command's Run method.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Config config.Config
	Logger *zap.Logger
	Gate   *gate.Gate
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config string `short:"c" type:"path" help:"Path to config file (YAML, JSON or TOML)"`

	Serve ServeCmd `cmd:"" help:"Run the HTTP admission service"`
	Check CheckCmd `cmd:"" help:"Check URLs against the gate and print one decision per line"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Port            int           `short:"p" help:"Listen port; overrides server.port"`
	ShutdownTimeout time.Duration `default:"10s" help:"Grace period for in-flight requests on shutdown"`
}

// CheckCmd is the "check" subcommand.
type CheckCmd struct {
	URLs []string `arg:"" name:"url" help:"URLs to check, in order"`
	JSON bool     `help:"Print decisions as JSON lines"`
}
