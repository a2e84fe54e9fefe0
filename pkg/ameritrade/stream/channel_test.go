package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"
)

// fakeSocket records every text frame written to it.
type fakeSocket struct {
	frames  [][]byte
	sendErr error
}

func (s *fakeSocket) SendText(_ context.Context, data []byte) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.frames = append(s.frames, data)
	return nil
}

func (s *fakeSocket) Read(_ context.Context) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeSocket) Close() error { return nil }

// decodeFrame unwraps one {"requests":[...]} envelope.
func decodeFrame(t *testing.T, data []byte) []Message {
	t.Helper()
	var f struct {
		Requests []Message `json:"requests"`
	}
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("decoding frame: %v", err)
	}
	return f.Requests
}

func TestCreateMessageSequence(t *testing.T) {
	ch := NewChannel(&fakeSocket{})

	msgs := []Message{
		ch.CreateMessage("ADMIN", "QOS", map[string]string{"qoslevel": "1"}),
		ch.CreateMessage("QUOTE", "SUBS", nil),
		ch.CreateMessage("ADMIN", "LOGOUT", nil),
		ch.CreateMessage("TIMESALE_EQUITY", "SUBS", nil),
	}

	for i, msg := range msgs {
		if msg.RequestID != int64(i) {
			t.Errorf("message %d: RequestID = %d, want %d", i, msg.RequestID, i)
		}
	}
}

func TestCreateMessageNilParameters(t *testing.T) {
	ch := NewChannel(&fakeSocket{})

	msg := ch.CreateMessage("ADMIN", "LOGOUT", nil)
	if msg.Parameters == nil {
		t.Fatal("Parameters = nil, want empty map")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshaling message: %v", err)
	}
	if want := `"parameters":{}`; !strings.Contains(string(data), want) {
		t.Errorf("encoded message %s does not contain %q", data, want)
	}
}

func TestSendWrapsRequests(t *testing.T) {
	sock := &fakeSocket{}
	ch := NewChannel(sock)

	msg := ch.CreateMessage("ADMIN", "LOGOUT", nil)
	if err := ch.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send() returned error: %v", err)
	}

	if len(sock.frames) != 1 {
		t.Fatalf("frames sent = %d, want 1", len(sock.frames))
	}
	reqs := decodeFrame(t, sock.frames[0])
	if len(reqs) != 1 {
		t.Fatalf("requests in frame = %d, want 1", len(reqs))
	}
	if reqs[0].Service != "ADMIN" || reqs[0].Command != "LOGOUT" {
		t.Errorf("frame request = %s/%s, want ADMIN/LOGOUT", reqs[0].Service, reqs[0].Command)
	}
}

func TestLoginBindsIdentityBeforeFraming(t *testing.T) {
	sock := &fakeSocket{}
	ch := NewChannel(sock)

	params := LoginParams{
		AppID:     "A1",
		AccountID: 42,
		Token:     "TOK",
		Timestamp: time.Unix(1700000000, 0),
	}
	if err := ch.Login(context.Background(), params, QOSFast); err != nil {
		t.Fatalf("Login() returned error: %v", err)
	}
	if !ch.LoggedIn() {
		t.Error("LoggedIn() = false after Login")
	}

	// The login frame itself must already carry the bound identity.
	reqs := decodeFrame(t, sock.frames[0])
	if reqs[0].Account != "A1" {
		t.Errorf("login Account = %q, want %q", reqs[0].Account, "A1")
	}
	if reqs[0].Source != 42 {
		t.Errorf("login Source = %d, want 42", reqs[0].Source)
	}

	// And so must the very next message.
	if err := ch.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() returned error: %v", err)
	}
	reqs = decodeFrame(t, sock.frames[1])
	if reqs[0].Account != "A1" || reqs[0].Source != 42 {
		t.Errorf("logout identity = (%q, %d), want (%q, %d)",
			reqs[0].Account, reqs[0].Source, "A1", 42)
	}
	if reqs[0].RequestID != 1 {
		t.Errorf("logout RequestID = %d, want 1", reqs[0].RequestID)
	}
}

func TestLoginCredentialEncoding(t *testing.T) {
	sock := &fakeSocket{}
	ch := NewChannel(sock)

	params := LoginParams{
		AppID:       "APP",
		AccountID:   7,
		Token:       "TOK",
		Company:     "C",
		Segment:     "S",
		Domain:      "D",
		UserGroup:   "UG",
		AccessLevel: "AL",
		Timestamp:   time.Unix(1700000000, 0),
		ACL:         "ACL",
	}
	if err := ch.Login(context.Background(), params, 2); err != nil {
		t.Fatalf("Login() returned error: %v", err)
	}

	reqs := decodeFrame(t, sock.frames[0])
	p := reqs[0].Parameters
	if p["token"] != "TOK" {
		t.Errorf("parameters token = %q, want %q", p["token"], "TOK")
	}
	if p["version"] != "1.0" {
		t.Errorf("parameters version = %q, want %q", p["version"], "1.0")
	}
	if p["qoslevel"] != "2" {
		t.Errorf("parameters qoslevel = %q, want %q", p["qoslevel"], "2")
	}

	cred, err := url.ParseQuery(p["credential"])
	if err != nil {
		t.Fatalf("parsing credential query: %v", err)
	}
	want := map[string]string{
		"userid":      "7",
		"token":       "TOK",
		"company":     "C",
		"segment":     "S",
		"cddomain":    "D",
		"usergroup":   "UG",
		"accesslevel": "AL",
		"authorized":  "Y",
		"timestamp":   "1700000000000",
		"appid":       "APP",
		"acl":         "ACL",
	}
	if len(cred) != len(want) {
		t.Errorf("credential has %d keys, want %d", len(cred), len(want))
	}
	for k, v := range want {
		if got := cred.Get(k); got != v {
			t.Errorf("credential %s = %q, want %q", k, got, v)
		}
	}
}

func TestSetQualityOfService(t *testing.T) {
	sock := &fakeSocket{}
	ch := NewChannel(sock)

	if err := ch.SetQualityOfService(context.Background(), QOSDelayed); err != nil {
		t.Fatalf("SetQualityOfService() returned error: %v", err)
	}

	reqs := decodeFrame(t, sock.frames[0])
	if reqs[0].Service != "ADMIN" || reqs[0].Command != "QOS" {
		t.Errorf("request = %s/%s, want ADMIN/QOS", reqs[0].Service, reqs[0].Command)
	}
	if got := reqs[0].Parameters["qoslevel"]; got != "5" {
		t.Errorf("qoslevel = %q, want %q", got, "5")
	}
}

func TestSubscribe(t *testing.T) {
	sock := &fakeSocket{}
	ch := NewChannel(sock)

	err := ch.Subscribe(context.Background(), "QUOTE", []string{"SPY", "QQQ"}, []int{0, 1, 2})
	if err != nil {
		t.Fatalf("Subscribe() returned error: %v", err)
	}

	reqs := decodeFrame(t, sock.frames[0])
	if reqs[0].Service != "QUOTE" || reqs[0].Command != "SUBS" {
		t.Errorf("request = %s/%s, want QUOTE/SUBS", reqs[0].Service, reqs[0].Command)
	}
	if got := reqs[0].Parameters["keys"]; got != "SPY,QQQ" {
		t.Errorf("keys = %q, want %q", got, "SPY,QQQ")
	}
	if got := reqs[0].Parameters["fields"]; got != "0,1,2" {
		t.Errorf("fields = %q, want %q", got, "0,1,2")
	}
}

func TestFailedSendSkipsRequestID(t *testing.T) {
	sock := &fakeSocket{sendErr: errors.New("socket closed")}
	ch := NewChannel(sock)

	if err := ch.Logout(context.Background()); err == nil {
		t.Fatal("Logout() on broken socket returned nil error")
	}

	// The failed message consumed id 0; the next message must use id 1,
	// never reuse 0.
	sock.sendErr = nil
	if err := ch.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() returned error: %v", err)
	}
	reqs := decodeFrame(t, sock.frames[0])
	if reqs[0].RequestID != 1 {
		t.Errorf("RequestID after failed send = %d, want 1", reqs[0].RequestID)
	}
}
