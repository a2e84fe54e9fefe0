package ameritrade

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Request describes one REST call. Exactly one of Form and JSON may be set;
// both nil means no body.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Form   url.Values
	JSON   any
	Header http.Header
}

// Response is the raw result of a REST call. Status is always populated;
// callers decide what a non-2xx status means for them.
type Response struct {
	Status int
	Body   []byte
}

// OK reports whether the response status is in the 2xx range.
func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Transport performs HTTP exchanges on behalf of a Session. An error return
// means the exchange itself failed (connection, timeout, cancellation); an
// HTTP-level rejection comes back as a Response with its non-2xx status.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HTTPTransport is the default Transport, a thin wrapper over net/http
// resolving request paths against a fixed base URL.
type HTTPTransport struct {
	Base   string
	Client *http.Client
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a transport rooted at base with a 30 second
// request timeout.
func NewHTTPTransport(base string) *HTTPTransport {
	return &HTTPTransport{
		Base:   base,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Do executes one HTTP exchange and drains the response body.
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	u := strings.TrimRight(t.Base, "/") + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	resp, err := t.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &Response{Status: resp.StatusCode, Body: data}, nil
}
