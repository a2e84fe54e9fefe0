package ameritrade

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// REST resource wrappers. These return the raw JSON body of each endpoint;
// callers unmarshal into whatever subset they need.

const dateLayout = "2006-01-02"

// accountFields builds the fields= value shared by account endpoints.
func accountFields(orders, positions bool) url.Values {
	var fields []string
	if orders {
		fields = append(fields, "orders")
	}
	if positions {
		fields = append(fields, "positions")
	}
	return url.Values{"fields": {strings.Join(fields, ",")}}
}

// GetAccount fetches one account, optionally including its orders and
// positions.
func (s *Session) GetAccount(ctx context.Context, accountID int64, orders, positions bool) (json.RawMessage, error) {
	return s.get(ctx, accountsPath(accountID), accountFields(orders, positions))
}

// GetAccounts fetches all linked accounts.
func (s *Session) GetAccounts(ctx context.Context, orders, positions bool) (json.RawMessage, error) {
	return s.get(ctx, accountsPath(0), accountFields(orders, positions))
}

// OrderQuery narrows order listings. Zero values are omitted from the query.
type OrderQuery struct {
	From       time.Time
	To         time.Time
	MaxResults int
	Status     string
}

func (q OrderQuery) values() url.Values {
	v := url.Values{}
	if !q.From.IsZero() {
		v.Set("fromEnteredTime", q.From.Format(dateLayout))
	}
	if q.MaxResults > 0 {
		v.Set("maxResults", strconv.Itoa(q.MaxResults))
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if !q.To.IsZero() {
		v.Set("toEnteredTime", q.To.Format(dateLayout))
	}
	return v
}

// GetOrder fetches a single order.
func (s *Session) GetOrder(ctx context.Context, accountID, orderID int64) (json.RawMessage, error) {
	return s.get(ctx, ordersPath(accountID, orderID), nil)
}

// GetOrdersByPath lists orders for one account.
func (s *Session) GetOrdersByPath(ctx context.Context, accountID int64, q OrderQuery) (json.RawMessage, error) {
	return s.get(ctx, ordersPath(accountID, 0), q.values())
}

// GetOrdersByQuery lists orders across all linked accounts.
func (s *Session) GetOrdersByQuery(ctx context.Context, q OrderQuery) (json.RawMessage, error) {
	return s.get(ctx, ordersPath(0, 0), q.values())
}

// CancelOrder requests cancellation of an open order.
func (s *Session) CancelOrder(ctx context.Context, accountID, orderID int64) error {
	_, err := s.call(ctx, http.MethodDelete, ordersPath(accountID, orderID), nil)
	return err
}

// PlaceOrder is not supported by this client.
func (s *Session) PlaceOrder(ctx context.Context, accountID int64) error {
	return ErrNotImplemented
}

// ReplaceOrder is not supported by this client.
func (s *Session) ReplaceOrder(ctx context.Context, accountID, orderID int64) error {
	return ErrNotImplemented
}

// GetQuote fetches the quote for one symbol.
func (s *Session) GetQuote(ctx context.Context, symbol string) (json.RawMessage, error) {
	return s.get(ctx, quotesPath(symbol), nil)
}

// GetQuotes fetches quotes for several symbols in one call.
func (s *Session) GetQuotes(ctx context.Context, symbols []string) (json.RawMessage, error) {
	return s.get(ctx, quotesPath(""), url.Values{"symbol": {strings.Join(symbols, ",")}})
}

// Frequency is the candle granularity of a price-history request, such as
// {"minute", 5} or {"daily", 1}.
type Frequency struct {
	Type string
	N    int
}

// Period is the overall span of a price-history request, such as
// {"month", 6}.
type Period struct {
	Type string
	N    int
}

// HistoryQuery shapes a price-history request. Set either Period or the
// Start/End range; Frequency is required.
type HistoryQuery struct {
	Frequency     Frequency
	Period        Period
	Start         time.Time
	End           time.Time
	ExtendedHours bool
}

func (q HistoryQuery) values() url.Values {
	v := url.Values{
		"frequency":     {strconv.Itoa(q.Frequency.N)},
		"frequencyType": {q.Frequency.Type},
	}
	if q.ExtendedHours {
		v.Set("needExtendedHoursData", "true")
	}
	if !q.Start.IsZero() {
		v.Set("startDate", strconv.FormatInt(q.Start.UnixMilli(), 10))
	}
	if q.Period.Type != "" {
		v.Set("period", strconv.Itoa(q.Period.N))
		v.Set("periodType", q.Period.Type)
	}
	if !q.End.IsZero() {
		v.Set("endDate", strconv.FormatInt(q.End.UnixMilli(), 10))
	}
	return v
}

// GetPriceHistory fetches historical candles for a symbol.
func (s *Session) GetPriceHistory(ctx context.Context, symbol string, q HistoryQuery) (json.RawMessage, error) {
	return s.get(ctx, historicalsPath(symbol), q.values())
}

// GetPreferences fetches the preferences for one account.
func (s *Session) GetPreferences(ctx context.Context, accountID int64) (json.RawMessage, error) {
	return s.get(ctx, preferencesPath(accountID), nil)
}

// UpdatePreferences is not supported by this client.
func (s *Session) UpdatePreferences(ctx context.Context, accountID int64) error {
	return ErrNotImplemented
}

// PrincipalField selects optional sections of the user-principals document.
type PrincipalField string

const (
	FieldPreferences  PrincipalField = "preferences"
	FieldStreamerInfo PrincipalField = "streamerConnectionInfo"
	FieldStreamerKeys PrincipalField = "streamerSubscriptionKeys"
	FieldSurrogateIDs PrincipalField = "surrogateIds"
)

// GetUserPrincipals fetches the user-principals document with the requested
// optional sections.
func (s *Session) GetUserPrincipals(ctx context.Context, fields ...PrincipalField) (json.RawMessage, error) {
	fs := make([]string, len(fields))
	for i, f := range fields {
		fs[i] = string(f)
	}
	return s.get(ctx, userPrincipalsPath(false), url.Values{"fields": {strings.Join(fs, ",")}})
}

// GetStreamerKeys fetches streamer subscription keys for the given accounts.
func (s *Session) GetStreamerKeys(ctx context.Context, accountIDs []int64) (json.RawMessage, error) {
	ids := make([]string, len(accountIDs))
	for i, id := range accountIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return s.get(ctx, userPrincipalsPath(true), url.Values{"accountIds": {strings.Join(ids, ",")}})
}
