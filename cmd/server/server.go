package main

import (
	"context"
	"flag"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cjdenio/webbridge/pkg/app"
	"github.com/cjdenio/webbridge/pkg/bridge/devserver"
	"github.com/cjdenio/webbridge/pkg/config"
	"github.com/cjdenio/webbridge/pkg/example"
	"github.com/cjdenio/webbridge/pkg/logging"
	"github.com/cjdenio/webbridge/pkg/navigation"
	"github.com/cjdenio/webbridge/pkg/router"
)

func main() {
	configPath := flag.String("config", "", "path to a webbridge.toml")
	addr := flag.String("addr", "", "address for the dev transport (overrides dev.addr)")
	static := flag.String("static", "", "static asset root (overrides static.root)")
	open := flag.Bool("open", false, "open the app in the system browser")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *addr != "" {
		cfg.Dev.Addr = *addr
	}
	if *static != "" {
		cfg.Static.Root = *static
	}

	logger, closer, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatal(err)
	}
	defer closer.Close()

	flags, err := app.ParseWindowFlags(cfg.Window.Flags)
	if err != nil {
		log.Fatal(err)
	}

	srv := devserver.New(cfg.Dev.Addr, logger)
	r := router.New()
	ctx := app.New(app.Options{
		StaticRoot: cfg.Static.Root,
		Preload:    cfg.Static.Preload,
		Router:     r,
		Bridge:     srv,
		Logger:     logger,
		Window: app.WindowOptions{
			Title:  cfg.Window.Title,
			Width:  cfg.Window.Width,
			Height: cfg.Window.Height,
			Flags:  flags,
		},
	})
	example.Register(r, ctx, logger)

	if err := ctx.Init(); err != nil {
		log.Fatal(err)
	}
	defer ctx.Shutdown()

	if err := srv.Listen(); err != nil {
		log.Fatal(err)
	}
	logger.Info("starting...", "url", srv.URL(), "title", cfg.Window.Title)

	if *open || cfg.Dev.Open {
		if err := navigation.SystemOpener.Open(srv.URL() + "/"); err != nil {
			logger.Warn("could not open browser", "err", err)
		}
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ctx.Run(runCtx); err != nil {
		logger.Error("stopped", "err", err)
	}
}

func newLogger(cfg config.LogConfig) (*slog.Logger, io.Closer, error) {
	level := logging.LevelFromString(cfg.Level)
	if cfg.File == "" {
		return logging.New(os.Stderr, level), io.NopCloser(nil), nil
	}
	return logging.NewFile(cfg.File, level)
}
