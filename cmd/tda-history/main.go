package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"tda/internal/config"
	"tda/internal/store"
	"tda/internal/util"
	"tda/pkg/ameritrade"
)

// historyResponse is the price-history endpoint body.
type historyResponse struct {
	Symbol  string `json:"symbol"`
	Empty   bool   `json:"empty"`
	Candles []struct {
		Datetime int64   `json:"datetime"` // Unix ms
		Open     float64 `json:"open"`
		High     float64 `json:"high"`
		Low      float64 `json:"low"`
		Close    float64 `json:"close"`
		Volume   int64   `json:"volume"`
	} `json:"candles"`
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	symbol := flag.String("symbol", "", "symbol to fetch history for")
	periodType := flag.String("period-type", "month", "period type: day, month, year, ytd")
	period := flag.Int("period", 6, "number of periods")
	freqType := flag.String("freq-type", "daily", "frequency type: minute, daily, weekly, monthly")
	freq := flag.Int("freq", 1, "frequency within the period")
	flag.Parse()

	if *symbol == "" {
		fmt.Fprintln(os.Stderr, "usage: tda-history -symbol SYMBOL [options]")
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

	sym := strings.ToUpper(*symbol)
	raw, err := session.GetPriceHistory(ctx, sym, ameritrade.HistoryQuery{
		Frequency: ameritrade.Frequency{Type: *freqType, N: *freq},
		Period:    ameritrade.Period{Type: *periodType, N: *period},
	})
	if err != nil {
		logger.Error("fetching price history", "error", err)
		os.Exit(1)
	}

	var hist historyResponse
	if err := json.Unmarshal(raw, &hist); err != nil {
		logger.Error("decoding price history", "error", err)
		os.Exit(1)
	}
	if hist.Empty || len(hist.Candles) == 0 {
		logger.Info("no candles returned", "symbol", sym)
		return
	}

	candles := make([]store.Candle, 0, len(hist.Candles))
	for _, c := range hist.Candles {
		candles = append(candles, store.Candle{
			Symbol:    sym,
			Timestamp: time.UnixMilli(c.Datetime),
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
		})
	}

	candleStore := store.NewParquetStore(cfg.Storage.DataDir)
	if err := candleStore.WriteCandles(ctx, candles); err != nil {
		logger.Error("writing candles", "error", err)
		os.Exit(1)
	}

	logger.Info("history written", "symbol", sym, "candles", len(candles))
}
