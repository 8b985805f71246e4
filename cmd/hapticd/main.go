package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"hapticd/internal/config"
	"hapticd/internal/haptic"
	"hapticd/internal/web"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to YAML config (empty uses built-in defaults)")
	flag.Parse()

	logs := web.NewLogBuffer(1000)
	log.SetOutput(io.MultiWriter(os.Stderr, logs))

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			log.Fatalf("config load failed: %v", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dev, err := haptic.Attach(cfg.Platform(), hardware{cfg: cfg}, haptic.Options{})
	if err != nil {
		log.Fatalf("haptic attach failed: %v", err)
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.Printf("haptic detach: %v", err)
		}
	}()

	if suspendSignal != nil {
		sigs := make(chan os.Signal, 2)
		signal.Notify(sigs, suspendSignal, resumeSignal)
		defer signal.Stop(sigs)
		go runPowerSignals(ctx, dev, sigs)
	}

	log.Printf("hapticd starting")
	log.Printf("web listen=%s", cfg.Web.Listen)

	if err := web.Serve(ctx, cfg.Web.Listen, dev, logs); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("web server stopped: %v", err)
	}
	log.Printf("hapticd stopping")
}
