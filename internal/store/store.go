// Package store defines storage interfaces for persisting OAuth token state
// between runs and for archiving historical candle data.
package store

import (
	"context"
	"time"
)

// TokenRecord is the persisted credential state of a session. The access
// token is short-lived; persisting it alongside the refresh token lets a
// restarted command skip a renewal when the old token is still valid.
type TokenRecord struct {
	AccessToken   string
	RefreshToken  string
	AccessExpiry  time.Time
	RefreshExpiry time.Time
	UpdatedAt     time.Time
}

// TokenStore persists and retrieves the single token record of a client id.
type TokenStore interface {
	// SaveTokens replaces the stored record for the given client id.
	SaveTokens(ctx context.Context, clientID string, rec *TokenRecord) error

	// LoadTokens returns the stored record, or (nil, nil) when none exists.
	LoadTokens(ctx context.Context, clientID string) (*TokenRecord, error)
}

// Candle is one OHLCV bar of price history.
type Candle struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// CandleStore persists and retrieves price-history candles.
type CandleStore interface {
	// WriteCandles persists a batch of candles, merging with existing data.
	WriteCandles(ctx context.Context, candles []Candle) error

	// ReadCandles returns candles for the given symbol within [start, end].
	ReadCandles(ctx context.Context, symbol string, start, end time.Time) ([]Candle, error)
}
