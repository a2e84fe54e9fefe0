package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"tda/internal/config"
	"tda/internal/store"
	"tda/internal/util"
	"tda/pkg/ameritrade"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	code := flag.String("code", "", "authorization code from the OAuth redirect")
	decoded := flag.Bool("decoded", false, "authorization code is already percent-decoded")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	session := ameritrade.NewSession(ameritrade.SessionOpts{
		ClientID:     cfg.Ameritrade.ClientID,
		CallbackHost: cfg.Ameritrade.CallbackHost,
		CallbackPort: cfg.Ameritrade.CallbackPort,
		BaseURL:      cfg.Ameritrade.BaseURL,
	})

	// Without a code, print the consent URL the account holder must visit.
	if *code == "" {
		fmt.Println(session.AuthorizationURL())
		return
	}

	ctx := context.Background()
	if err := session.RequestTokens(ctx, *code, *decoded); err != nil {
		logger.Error("exchanging authorization code", "error", err)
		os.Exit(1)
	}

	tokens, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		logger.Error("opening token store", "error", err)
		os.Exit(1)
	}
	defer tokens.Close()

	rec := &store.TokenRecord{
		AccessToken:   session.AccessToken(),
		RefreshToken:  session.RefreshToken(),
		AccessExpiry:  session.AccessTokenExpiration(),
		RefreshExpiry: session.RefreshTokenExpiration(),
	}
	if err := tokens.SaveTokens(ctx, cfg.Ameritrade.ClientID, rec); err != nil {
		logger.Error("saving tokens", "error", err)
		os.Exit(1)
	}

	logger.Info("authorized",
		"accessExpiry", rec.AccessExpiry,
		"refreshExpiry", rec.RefreshExpiry)
}
