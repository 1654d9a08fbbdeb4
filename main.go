package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/prism/engine"
	"github.com/spaghettifunk/prism/engine/config"
	"github.com/spaghettifunk/prism/engine/core"
)

func main() {
	configPath := flag.String("config", "prism.toml", "path to the configuration file")
	debug := flag.Bool("debug", false, "enable validation layers and debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		core.LogFatal("invalid configuration %s: %s", *configPath, err)
	}

	app, err := engine.New(cfg, *debug)
	if err != nil {
		core.LogFatal("failed to create application: %s", err)
	}

	if err := app.Initialize(); err != nil {
		core.LogFatal("failed to initialize: %s", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		<-sigCh
		_ = app.Shutdown()
	}()

	if err := app.Run(); err != nil {
		core.LogFatal("application error: %s", err)
	}
}
