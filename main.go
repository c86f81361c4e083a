package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	Ld "github.com/maroda/livedemo/display"
	Lo "github.com/maroda/livedemo/obvy"
	Ls "github.com/maroda/livedemo/server"
)

var (
	configFile = flag.String("config", "", "JSON config file, defaults are used when empty")
	mode       = flag.String("mode", "serve", "serve, view, or both")
	wsURL      = flag.String("ws", "", "server stream for view mode, e.g. ws://localhost:4000/ws")
)

func loadConfig() (*Ls.Config, error) {
	c := Ls.DefaultConfig()
	if *configFile != "" {
		var err error
		c, err = Ls.LoadConfigFileName(*configFile)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", *configFile, err)
		}
	}
	c.ApplyEnv()
	return c, nil
}

// setupLogging keeps the TTY free for tcell when a terminal host runs
func setupLogging(tty bool) (func(), error) {
	level := slog.LevelInfo
	if Ls.FillEnvVarBool("LIVEDEMO_DEBUG", false) {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if !tty {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, opts)))
		return func() {}, nil
	}

	name := Ls.FillEnvVar("LIVEDEMO_LOG_FILE")
	if name == "ENOENT" {
		name = "livedemo.log"
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(f, opts)))
	return func() { f.Close() }, nil
}

// upstreamURL is -ws, or the local server's stream
func upstreamURL(c *Ls.Config) string {
	if *wsURL != "" {
		return *wsURL
	}
	return Ls.UrlCat("ws://localhost:", strconv.Itoa(c.HTTPPort), "/ws")
}

func run(ctx context.Context) error {
	switch *mode {
	case "serve", "view", "both":
	default:
		return fmt.Errorf("%w: unknown mode %q", Ls.ErrConfigInvalid, *mode)
	}

	closeLog, err := setupLogging(*mode != "serve")
	if err != nil {
		return err
	}
	defer closeLog()

	c, err := loadConfig()
	if err != nil {
		return err
	}

	otelShutdown, err := Lo.InitOTel(ctx, Ls.FillEnvVar("LIVEDEMO_OTEL"))
	if err != nil {
		slog.Error("Tracing disabled", slog.Any("Error", err))
	} else {
		defer otelShutdown()
	}

	if *mode == "view" {
		if err := c.ValidateView(); err != nil {
			return err
		}
		return Ld.StartView(ctx, c, upstreamURL(c), nil)
	}

	srv, err := Ld.NewServer(c)
	if err != nil {
		return err
	}

	if *mode == "serve" {
		return srv.Start(ctx)
	}

	// both: the terminal host follows the local server
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.Start(ctx) }()

	viewErr := Ld.StartView(ctx, c, upstreamURL(c), srv.Stats)
	cancel()
	return errors.Join(viewErr, <-srvErr)
}

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("livedemo stopped", slog.Any("Error", err))
		fmt.Fprintln(os.Stderr, "livedemo:", err)
		os.Exit(1)
	}
}
