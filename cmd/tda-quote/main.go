package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"tda/internal/config"
	"tda/internal/store"
	"tda/internal/util"
	"tda/pkg/ameritrade"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	symbols := flag.Args()
	if len(symbols) == 0 {
		fmt.Fprintln(os.Stderr, "usage: tda-quote [-config path] SYMBOL [SYMBOL...]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	ctx := context.Background()

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

	var raw []byte
	if len(symbols) == 1 {
		raw, err = session.GetQuote(ctx, strings.ToUpper(symbols[0]))
	} else {
		for i := range symbols {
			symbols[i] = strings.ToUpper(symbols[i])
		}
		raw, err = session.GetQuotes(ctx, symbols)
	}
	if err != nil {
		logger.Error("fetching quotes", "error", err)
		os.Exit(1)
	}

	fmt.Println(string(raw))
}
