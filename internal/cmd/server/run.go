package server

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/alessiodelgadillo/Worth/internal/config"
	"github.com/alessiodelgadillo/Worth/internal/daemon"
	"github.com/alessiodelgadillo/Worth/internal/logging"
	"github.com/alessiodelgadillo/Worth/internal/version"
)

// Run starts the server subcommand: flag parsing, config load, and
// the daemon main loop until SIGINT/SIGTERM.
func Run(args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	var (
		configPath  = fs.String("config", "", "path to worth.yaml (file values override flag defaults)")
		showVersion = fs.Bool("version", false, "print version and exit")
		logLevel    = fs.String("log-level", "", "log level: debug|info|warning|error")
		dataDir     = fs.String("data-dir", "", "snapshot directory for recovery")
		bind        = fs.String("bind", "", "bind address")
		port        = fs.Int("port", 0, "request port")
		notifyPort  = fs.Int("notify-port", 0, "registration/subscription port")
		chatPort    = fs.Int("chat-port", 0, "UDP chat port shared by all project groups")
		mcastBase   = fs.String("multicast-base", "", "bottom of the multicast address range")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Printf("worth server %s\n", version.Version)
		return nil
	}

	c := config.Default()
	if *configPath != "" {
		var err error
		c, err = config.Load(*configPath)
		if err != nil {
			return err
		}
	}
	// CLI overrides config.
	if *logLevel != "" {
		c.Log.Level = *logLevel
	}
	if *dataDir != "" {
		c.DataDir = *dataDir
	}
	if *bind != "" {
		c.Server.Bind = *bind
	}
	if *port != 0 {
		c.Server.Port = *port
	}
	if *notifyPort != 0 {
		c.Server.NotifyPort = *notifyPort
	}
	if *chatPort != 0 {
		c.Chat.Port = *chatPort
	}
	if *mcastBase != "" {
		c.Chat.MulticastBase = *mcastBase
	}

	lg, err := logging.New(logging.Options{Level: c.Log.Level, JSON: c.Log.JSON, DefaultSlog: true})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return daemon.Run(ctx, daemon.Options{
		DataDir:       c.DataDir,
		BindAddr:      c.Server.Bind,
		Port:          c.Server.Port,
		NotifyPort:    c.Server.NotifyPort,
		ChatPort:      c.Chat.Port,
		MulticastBase: c.Chat.MulticastBase,
		Logger:        lg,
	})
}
