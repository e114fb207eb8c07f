package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/near/workspaces-harness/backend"
	"github.com/near/workspaces-harness/framework"
	"github.com/near/workspaces-harness/framework/helpers"
)

// DefaultSettleDelay is how long SendTx waits after a terminal response so that the
// node's indexes catch up before the caller issues follow-up queries.
const DefaultSettleDelay = time.Second * 3

const jsonRPCVersion = "2.0"

// Client is a JSON-RPC client for one backend endpoint. It is safe for concurrent use.
type Client struct {
	addr        string
	httpClient  *http.Client
	settleDelay time.Duration
	logger      framework.Logger
}

// ClientOption configures a Client.
type ClientOption helpers.ConfigOption[Client]

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return helpers.ConfigOptionFunc[Client](func(c *Client) error {
		c.httpClient = hc
		return nil
	})
}

// WithAddr overrides the endpoint address, for a backend served somewhere other than its
// usual location.
func WithAddr(addr string) ClientOption {
	return helpers.ConfigOptionFunc[Client](func(c *Client) error {
		c.addr = addr
		return nil
	})
}

// WithSettleDelay overrides DefaultSettleDelay.
func WithSettleDelay(d time.Duration) ClientOption {
	return helpers.ConfigOptionFunc[Client](func(c *Client) error {
		c.settleDelay = d
		return nil
	})
}

// WithLogger sets the logger used to report retried submissions.
func WithLogger(logger framework.Logger) ClientOption {
	return helpers.ConfigOptionFunc[Client](func(c *Client) error {
		c.logger = logger
		return nil
	})
}

// NewClient returns a client for the JSON-RPC endpoint at addr.
func NewClient(addr string, options ...ClientOption) (*Client, error) {
	c := &Client{
		addr:        addr,
		httpClient:  http.DefaultClient,
		settleDelay: DefaultSettleDelay,
		logger:      framework.NullLogger(),
	}
	if err := helpers.ApplyOptions(c, options...); err != nil {
		return nil, err
	}
	return c, nil
}

type clientOptionsKey struct{}

// WithClientOptions returns a copy of ctx carrying options that ClientFor applies to every
// client it builds within that context.
func WithClientOptions(ctx context.Context, options ...ClientOption) context.Context {
	existing, _ := ctx.Value(clientOptionsKey{}).([]ClientOption)
	combined := append(append([]ClientOption(nil), existing...), options...)
	return context.WithValue(ctx, clientOptionsKey{}, combined)
}

// ClientFor returns a client for the backend that is current in ctx.
func ClientFor(ctx context.Context) (*Client, error) {
	flavor, err := backend.Require(ctx)
	if err != nil {
		return nil, err
	}
	addr, err := flavor.RPCAddr()
	if err != nil {
		return nil, err
	}
	options := []ClientOption{WithLogger(backend.LoggerFrom(ctx))}
	if extra, ok := ctx.Value(clientOptionsKey{}).([]ClientOption); ok {
		options = append(options, extra...)
	}
	return NewClient(addr, options...)
}

// httpClientFor returns the HTTP client that clients built from ctx would use, for requests
// that go somewhere other than the RPC endpoint.
func httpClientFor(ctx context.Context) (*http.Client, error) {
	extra, _ := ctx.Value(clientOptionsKey{}).([]ClientOption)
	c, err := NewClient("", extra...)
	if err != nil {
		return nil, err
	}
	return c.httpClient, nil
}

// Addr returns the endpoint URL.
func (c *Client) Addr() string { return c.addr }

type request struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error"`
}

// Call invokes method with params (marshaled as-is, normally an object of named
// parameters) and decodes the result into resultOut unless it is nil.
func (c *Client) Call(ctx context.Context, method string, params interface{}, resultOut interface{}) error {
	body, err := json.Marshal(request{JSONRPC: jsonRPCVersion, ID: "dontcare", Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.addr, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Method: method, Err: err}
	}
	respBody, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return &TransportError{Method: method, Err: err}
	}

	// Nodes report handler errors such as timeouts with a non-200 status but a normal
	// JSON-RPC body, so the body is always tried first.
	var parsed response
	if err := json.Unmarshal(respBody, &parsed); err != nil || (parsed.Error == nil && parsed.Result == nil) {
		if resp.StatusCode != http.StatusOK {
			return &TransportError{Method: method, Err: &HTTPStatusError{Status: resp.StatusCode, Body: string(respBody)}}
		}
		return &TransportError{Method: method, Err: fmt.Errorf("malformed response: %s", string(respBody))}
	}
	if parsed.Error != nil {
		parsed.Error.Method = method
		return parsed.Error
	}
	if resultOut != nil {
		if err := json.Unmarshal(parsed.Result, resultOut); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}
	return nil
}
