// Package ameritrade is a client for the TD Ameritrade REST and streaming
// APIs. A Session owns the OAuth2 credential lifecycle and issues
// authenticated REST calls; a streaming channel is bootstrapped from the
// user-principals endpoint via Session.OpenStream.
package ameritrade

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tda/pkg/ameritrade/stream"
)

// oauthSuffix is appended to the raw consumer key to form the OAuth client id.
const oauthSuffix = "@AMER.OAUTHAP"

// tokenTimestampLayout parses streamerInfo.tokenTimestamp values such as
// "2021-03-04T18:47:01+0000".
const tokenTimestampLayout = "2006-01-02T15:04:05-0700"

// SessionOpts configures a Session. ClientID, CallbackHost, and CallbackPort
// are required; the rest default sensibly.
type SessionOpts struct {
	// ClientID is the raw consumer key, without the OAuth suffix.
	ClientID     string
	CallbackHost string
	CallbackPort int

	// RefreshToken seeds a previously persisted refresh token so the
	// session can renew without a fresh authorization-code exchange.
	RefreshToken       string
	RefreshTokenExpiry time.Time

	// BaseURL overrides the default REST API origin.
	BaseURL string
	// Transport overrides the default HTTP transport entirely.
	Transport Transport
	// Dialer overrides the default websocket dialer.
	Dialer stream.Dialer
}

// Session is an authenticated client for the TD Ameritrade API.
//
// Credential state is mutated only by RequestTokens and RenewTokens, and
// atomically per call: on success every relevant field is replaced together,
// on failure none are. The session never persists tokens and never retries
// or re-authorizes on its own; a 401 surfaces as *AuthError and the caller
// decides when to renew. Session is not safe for unsynchronized concurrent
// token calls.
type Session struct {
	clientID     string
	callbackHost string
	callbackPort int

	transport Transport
	dialer    stream.Dialer
	log       *slog.Logger
	now       func() time.Time

	accessToken   string
	refreshToken  string
	accessExpiry  time.Time
	refreshExpiry time.Time
}

// NewSession creates a Session from opts.
func NewSession(opts SessionOpts) *Session {
	s := &Session{
		clientID:      opts.ClientID,
		callbackHost:  opts.CallbackHost,
		callbackPort:  opts.CallbackPort,
		transport:     opts.Transport,
		dialer:        opts.Dialer,
		log:           slog.Default().With("component", "session"),
		now:           time.Now,
		refreshToken:  opts.RefreshToken,
		refreshExpiry: opts.RefreshTokenExpiry,
	}
	if s.transport == nil {
		base := opts.BaseURL
		if base == "" {
			base = BaseURL
		}
		s.transport = NewHTTPTransport(base)
	}
	if s.dialer == nil {
		s.dialer = stream.WebSocketDialer{}
	}
	return s
}

// AuthorizationID returns the full OAuth client id.
func (s *Session) AuthorizationID() string {
	return s.clientID + oauthSuffix
}

// CallbackURL returns the redirect address in "host:port" form, as
// registered with the consumer key.
func (s *Session) CallbackURL() string {
	return fmt.Sprintf("%s:%d", s.callbackHost, s.callbackPort)
}

// AuthorizationURL returns the interactive consent URL the account holder
// must visit to obtain an authorization code. Pure derivation, no network.
func (s *Session) AuthorizationURL() string {
	return fmt.Sprintf(authURL,
		url.QueryEscape(s.AuthorizationID()),
		url.QueryEscape(s.CallbackURL()))
}

// AccessToken returns the current bearer token, empty until authorized.
func (s *Session) AccessToken() string { return s.accessToken }

// RefreshToken returns the current refresh token, empty until an
// authorization-code exchange has completed (or one was seeded via opts).
func (s *Session) RefreshToken() string { return s.refreshToken }

// AccessTokenExpiration returns when the access token lapses; zero if no
// token has been issued.
func (s *Session) AccessTokenExpiration() time.Time { return s.accessExpiry }

// RefreshTokenExpiration returns when the refresh token lapses; zero if none
// is held.
func (s *Session) RefreshTokenExpiration() time.Time { return s.refreshExpiry }

// RequestTokens exchanges a one-time authorization code for access and
// refresh tokens. The code arrives percent-encoded from the OAuth redirect;
// pass alreadyDecoded when the caller has decoded it first.
func (s *Session) RequestTokens(ctx context.Context, code string, alreadyDecoded bool) error {
	if !alreadyDecoded {
		decoded, err := url.QueryUnescape(code)
		if err != nil {
			return fmt.Errorf("decoding authorization code: %w", err)
		}
		code = decoded
	}
	return s.authorize(ctx, url.Values{
		"grant_type":   {"authorization_code"},
		"access_type":  {"offline"},
		"code":         {code},
		"redirect_uri": {s.CallbackURL()},
	})
}

// RenewTokens obtains a fresh access token using the held refresh token.
// With rotateRefreshToken set, the server is asked to also rotate and extend
// the refresh token. Fails with *StateError, without touching the network,
// when no refresh token is held.
func (s *Session) RenewTokens(ctx context.Context, rotateRefreshToken bool) error {
	if s.refreshToken == "" {
		return &StateError{Op: "renew tokens", Reason: "not authorized"}
	}
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {s.refreshToken},
	}
	if rotateRefreshToken {
		form.Set("access_type", "offline")
	}
	return s.authorize(ctx, form)
}

// authorize runs one token-endpoint exchange. Both grant types share it
// because the response contract is identical: the access token always
// updates, the refresh token only when the server sent one. The new
// credential state is computed in full before any field is committed.
func (s *Session) authorize(ctx context.Context, form url.Values) error {
	form.Set("client_id", s.AuthorizationID())

	resp, err := s.transport.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   oauthPath,
		Form:   form,
	})
	if err != nil {
		return fmt.Errorf("token request: %w", err)
	}
	issuedAt := s.now().UTC()
	if !resp.OK() {
		return &AuthError{Status: resp.Status, Body: string(resp.Body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp.Body, &tr); err != nil {
		return &ProtocolError{Reason: "decoding token response", Err: err}
	}
	if tr.AccessToken == "" || tr.ExpiresIn <= 0 {
		return &ProtocolError{Reason: "token response missing access_token or expires_in"}
	}

	newRefreshToken := s.refreshToken
	newRefreshExpiry := s.refreshExpiry
	if tr.RefreshToken != "" {
		newRefreshToken = tr.RefreshToken
	}
	if tr.RefreshTokenExpiresIn > 0 {
		newRefreshExpiry = issuedAt.Add(time.Duration(tr.RefreshTokenExpiresIn) * time.Second)
	}

	s.accessToken = tr.AccessToken
	s.accessExpiry = issuedAt.Add(time.Duration(tr.ExpiresIn) * time.Second)
	s.refreshToken = newRefreshToken
	s.refreshExpiry = newRefreshExpiry

	s.log.Debug("tokens updated",
		"accessExpiry", s.accessExpiry,
		"refreshRotated", tr.RefreshToken != "")
	return nil
}

// call issues one authenticated REST exchange, attaching the current bearer
// token per request.
func (s *Session) call(ctx context.Context, method, path string, query url.Values) (json.RawMessage, error) {
	if s.accessToken == "" {
		return nil, &AuthError{Body: "no access token held"}
	}
	resp, err := s.transport.Do(ctx, &Request{
		Method: method,
		Path:   path,
		Query:  query,
		Header: http.Header{"Authorization": {"Bearer " + s.accessToken}},
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if !resp.OK() {
		return nil, &AuthError{Status: resp.Status, Body: string(resp.Body)}
	}
	return json.RawMessage(resp.Body), nil
}

func (s *Session) get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return s.call(ctx, http.MethodGet, path, query)
}

// OpenStream bootstraps an authenticated streaming channel: it fetches the
// user-principals document, dials the advertised streamer socket, and runs
// the login handshake at the given QOS level. Multi-account principals use
// the first listed account. The returned channel is bound and logged in;
// closing its socket is the caller's responsibility via the channel's
// transport.
func (s *Session) OpenStream(ctx context.Context, qos int) (*stream.Channel, error) {
	raw, err := s.get(ctx, userPrincipalsPath(false), url.Values{
		"fields": {"streamerConnectionInfo,streamerSubscriptionKeys"},
	})
	if err != nil {
		return nil, err
	}

	var up UserPrincipals
	if err := json.Unmarshal(raw, &up); err != nil {
		return nil, &ProtocolError{Reason: "decoding user principals", Err: err}
	}
	if len(up.Accounts) == 0 {
		return nil, &ProtocolError{Reason: "user principals has no accounts"}
	}
	info := up.StreamerInfo
	if info.StreamerSocketURL == "" || info.AppID == "" || info.Token == "" {
		return nil, &ProtocolError{Reason: "user principals missing streamer connection info"}
	}
	issued, err := time.Parse(tokenTimestampLayout, info.TokenTimestamp)
	if err != nil {
		return nil, &ProtocolError{Reason: "parsing streamer token timestamp", Err: err}
	}
	acct := up.Accounts[0]
	accountID, err := strconv.ParseInt(acct.AccountID, 10, 64)
	if err != nil {
		return nil, &ProtocolError{Reason: "parsing account id", Err: err}
	}

	socketURL := "wss://" + info.StreamerSocketURL + "/ws"
	sock, err := s.dialer.Dial(ctx, socketURL)
	if err != nil {
		return nil, fmt.Errorf("dialing streamer socket: %w", err)
	}

	ch := stream.NewChannel(sock)
	if err := ch.Login(ctx, stream.LoginParams{
		AppID:       info.AppID,
		AccountID:   accountID,
		Token:       info.Token,
		Company:     acct.Company,
		Segment:     acct.Segment,
		Domain:      acct.AccountCdDomainID,
		UserGroup:   info.UserGroup,
		AccessLevel: info.AccessLevel,
		Timestamp:   issued,
		ACL:         info.ACL,
	}, qos); err != nil {
		sock.Close()
		return nil, fmt.Errorf("streamer login: %w", err)
	}

	s.log.Info("streaming channel opened", "appID", info.AppID, "qos", qos)
	return ch, nil
}
