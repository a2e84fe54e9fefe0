package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"tda/internal/config"
	"tda/internal/store"
	"tda/internal/util"
	"tda/pkg/ameritrade"
	"tda/pkg/ameritrade/stream"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	symbols := flag.String("symbols", "", "comma-separated symbols to subscribe for quotes")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tokens, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		logger.Error("opening token store", "error", err)
		os.Exit(1)
	}
	defer tokens.Close()

	rec, err := tokens.LoadTokens(ctx, cfg.Ameritrade.ClientID)
	if err != nil {
		logger.Error("loading tokens", "error", err)
		os.Exit(1)
	}
	if rec == nil {
		logger.Error("no stored tokens, run tda-auth first")
		os.Exit(1)
	}

	session := ameritrade.NewSession(ameritrade.SessionOpts{
		ClientID:           cfg.Ameritrade.ClientID,
		CallbackHost:       cfg.Ameritrade.CallbackHost,
		CallbackPort:       cfg.Ameritrade.CallbackPort,
		BaseURL:            cfg.Ameritrade.BaseURL,
		RefreshToken:       rec.RefreshToken,
		RefreshTokenExpiry: rec.RefreshExpiry,
	})

	if err := session.RenewTokens(ctx, false); err != nil {
		logger.Error("renewing tokens", "error", err)
		os.Exit(1)
	}

	qos := cfg.Stream.QOS
	if qos == 0 {
		qos = stream.QOSFast
	}

	channel, err := session.OpenStream(ctx, qos)
	if err != nil {
		logger.Error("opening stream", "error", err)
		os.Exit(1)
	}

	if *symbols != "" {
		keys := strings.Split(strings.ToUpper(*symbols), ",")
		// Field ids 0-8: symbol, bid, ask, last, bid size, ask size,
		// ask id, bid id, total volume.
		if err := channel.Subscribe(ctx, "QUOTE", keys, []int{0, 1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
			logger.Error("subscribing", "error", err)
			os.Exit(1)
		}
		logger.Info("subscribed", "symbols", keys)
	}

	// Dump raw frames until interrupted.
	sock := channel.Transport()
	for {
		data, err := sock.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Error("reading frame", "error", err)
			break
		}
		fmt.Println(string(data))
	}

	// Best-effort logout on a fresh context; ctx is already cancelled.
	if err := channel.Logout(context.Background()); err != nil {
		logger.Warn("logout failed", "error", err)
	}
	sock.Close()
}
