package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	configPath := flag.String("config", "", "config file path (default config.json)")
	flag.Parse()

	cfg := loadConfig(*configPath)
	defaultLogger = initLogger(cfg.Logging, cfg.baseDir)
	defer defaultLogger.Close()

	registry := newTicketRegistry()

	bot, err := newTicketBot(cfg, registry)
	if err != nil {
		logError("bot setup failed", "error", err)
		fmt.Fprintf(os.Stderr, "bot setup failed: %v\n", err)
		os.Exit(1)
	}

	if err := bot.Run(); err != nil {
		logError("gateway connection failed", "error", err)
		fmt.Fprintf(os.Stderr, "gateway connection failed: %v\n", err)
		os.Exit(1)
	}
	logInfo("ticket bot started", "guild", cfg.GuildID, "closeDelay", cfg.closeDelayOrDefault().String())

	var ops *http.Server
	if cfg.ListenAddr != "" {
		ops = startOpsServer(cfg, bot.mgr.ActiveTickets)
	}

	// Run until interrupted.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logInfo("shutting down", "signal", sig.String())

	bot.Stop()
	if ops != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ops.Shutdown(ctx); err != nil {
			logWarn("ops server shutdown failed", "error", err)
		}
	}
}
