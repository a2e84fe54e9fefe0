// Package stream implements the outbound half of the TD Ameritrade streamer
// protocol: request framing, sequencing, and the ADMIN login handshake that
// binds a channel to an authenticated identity.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Quality-of-service levels accepted by ADMIN/QOS. The streamer delivers
// pushes roughly every 500ms at QOSExpress up to every 5000ms at QOSDelayed.
// Levels are passed through uninterpreted; the server rejects what it
// dislikes.
const (
	QOSExpress  = 0
	QOSRealTime = 1
	QOSFast     = 2
	QOSModerate = 3
	QOSSlow     = 4
	QOSDelayed  = 5
)

// Message is one streamer request. RequestID is the wire-level correlation
// id assigned by the owning Channel.
type Message struct {
	Service    string            `json:"service"`
	Command    string            `json:"command"`
	RequestID  int64             `json:"requestid"`
	Account    string            `json:"account"`
	Source     int64             `json:"source"`
	Parameters map[string]string `json:"parameters"`
}

// frame is the envelope the streamer expects on every text frame.
type frame struct {
	Requests []Message `json:"requests"`
}

// LoginParams carries the identity and credential fields extracted from a
// user-principals document, as consumed by Channel.Login.
type LoginParams struct {
	AppID       string
	AccountID   int64
	Token       string
	Company     string
	Segment     string
	Domain      string
	UserGroup   string
	AccessLevel string
	Timestamp   time.Time
	ACL         string
}

// Channel frames and sequences outbound streamer requests over a Socket.
//
// A Channel is created unbound; Login binds the app and account identity
// that every later message carries. Request ids are assigned strictly in
// order and never reused; ids of messages whose send failed are skipped, not
// recycled. Methods are not safe for concurrent use — callers sharing a
// Channel across goroutines must serialize access themselves.
type Channel struct {
	sock      Socket
	counter   int64
	appID     string
	accountID int64
	loggedIn  bool
}

// NewChannel wraps an open socket. The channel takes over all outbound
// traffic on it; closing the socket remains the caller's concern.
func NewChannel(sock Socket) *Channel {
	return &Channel{sock: sock}
}

// LoggedIn reports whether the login handshake has been sent.
func (c *Channel) LoggedIn() bool { return c.loggedIn }

// Transport returns the underlying socket, for reading inbound frames and
// closing the connection.
func (c *Channel) Transport() Socket { return c.sock }

// CreateMessage builds the next sequenced request. Each call consumes one
// request id; call it exactly once per logical outbound message. A nil
// params map encodes as an empty parameters object.
func (c *Channel) CreateMessage(service, command string, params map[string]string) Message {
	if params == nil {
		params = map[string]string{}
	}
	msg := Message{
		Service:    service,
		Command:    command,
		RequestID:  c.counter,
		Account:    c.appID,
		Source:     c.accountID,
		Parameters: params,
	}
	c.counter++
	return msg
}

// Send wraps the given messages in a single {"requests":[...]} envelope and
// writes it as one text frame. There is no batching across calls and no
// retry; a send failure surfaces unmodified from the socket.
func (c *Channel) Send(ctx context.Context, msgs ...Message) error {
	data, err := json.Marshal(frame{Requests: msgs})
	if err != nil {
		return fmt.Errorf("encoding stream frame: %w", err)
	}
	return c.sock.SendText(ctx, data)
}

// Login binds the channel to the given identity and sends the ADMIN/LOGIN
// handshake. The identity is bound before the message is framed, so the
// login request itself already carries the account and source fields.
func (c *Channel) Login(ctx context.Context, p LoginParams, qos int) error {
	c.appID = p.AppID
	c.accountID = p.AccountID

	credential := url.Values{
		"userid":      {strconv.FormatInt(p.AccountID, 10)},
		"token":       {p.Token},
		"company":     {p.Company},
		"segment":     {p.Segment},
		"cddomain":    {p.Domain},
		"usergroup":   {p.UserGroup},
		"accesslevel": {p.AccessLevel},
		"authorized":  {"Y"},
		"timestamp":   {strconv.FormatInt(p.Timestamp.UnixMilli(), 10)},
		"appid":       {p.AppID},
		"acl":         {p.ACL},
	}

	msg := c.CreateMessage("ADMIN", "LOGIN", map[string]string{
		"token":      p.Token,
		"version":    "1.0",
		"qoslevel":   strconv.Itoa(qos),
		"credential": credential.Encode(),
	})
	if err := c.Send(ctx, msg); err != nil {
		return err
	}
	c.loggedIn = true
	return nil
}

// Logout sends the ADMIN/LOGOUT request.
func (c *Channel) Logout(ctx context.Context) error {
	return c.Send(ctx, c.CreateMessage("ADMIN", "LOGOUT", nil))
}

// SetQualityOfService requests a new push cadence for the channel.
func (c *Channel) SetQualityOfService(ctx context.Context, qos int) error {
	return c.Send(ctx, c.CreateMessage("ADMIN", "QOS", map[string]string{
		"qoslevel": strconv.Itoa(qos),
	}))
}

// Subscribe sends a SUBS request for the given service, replacing any prior
// subscription on that service. Keys are the instruments to subscribe and
// fields the numeric field ids to deliver.
func (c *Channel) Subscribe(ctx context.Context, service string, keys []string, fields []int) error {
	fs := make([]string, len(fields))
	for i, f := range fields {
		fs[i] = strconv.Itoa(f)
	}
	return c.Send(ctx, c.CreateMessage(service, "SUBS", map[string]string{
		"keys":   strings.Join(keys, ","),
		"fields": strings.Join(fs, ","),
	}))
}
