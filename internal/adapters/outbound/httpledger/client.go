package httpledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sufield/didchain/internal/chain"
	"github.com/sufield/didchain/internal/domain"
	"github.com/sufield/didchain/internal/dto"
	"github.com/sufield/didchain/internal/logging"
	"github.com/sufield/didchain/internal/ports"
)

// maxResponseBytes bounds every response body.
const maxResponseBytes = 16 << 20

// Client is a ports.Client talking to a ledger API over HTTP.
//
// The server is not trusted: chains are rebuilt and verified locally from
// the raw message list.
type Client struct {
	base   *url.URL
	client *http.Client
	dialer *websocket.Dialer
	logger *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for the API at baseURL, e.g. "http://localhost:8780".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger url %q: %w", baseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid ledger url %q: want http(s)://host[:port]", baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	c := &Client{
		base:   u,
		client: &http.Client{Transport: transport, Timeout: 30 * time.Second},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNop(c.logger)
	return c, nil
}

// PublishIntegration implements ports.Client.
func (c *Client) PublishIntegration(ctx context.Context, doc *domain.Document) (domain.MessageID, error) {
	if doc == nil {
		return domain.NullMessageID, fmt.Errorf("%w: nil document", ports.ErrClient)
	}
	var resp dto.PublishResponse
	if err := c.do(ctx, http.MethodPost, "/v1/integration", doc, &resp); err != nil {
		return domain.NullMessageID, err
	}
	c.logger.Debug("integration message published", "did", doc.ID.String(), "message_id", resp.MessageID.String())
	return resp.MessageID, nil
}

// PublishDiff implements ports.Client.
func (c *Client) PublishDiff(ctx context.Context, integrationID domain.MessageID, diff *domain.DiffMessage) (domain.MessageID, error) {
	if diff == nil {
		return domain.NullMessageID, fmt.Errorf("%w: nil diff", ports.ErrClient)
	}
	if integrationID.IsNull() {
		return domain.NullMessageID, fmt.Errorf("%w: diff index is the null message id", ports.ErrClient)
	}
	var resp dto.PublishResponse
	if err := c.do(ctx, http.MethodPost, "/v1/diff/"+integrationID.String(), diff, &resp); err != nil {
		return domain.NullMessageID, err
	}
	c.logger.Debug("diff message published", "did", diff.DID.String(), "message_id", resp.MessageID.String())
	return resp.MessageID, nil
}

// ReadDocumentChain implements ports.Client.
func (c *Client) ReadDocumentChain(ctx context.Context, did domain.DID) (*chain.DocumentChain, error) {
	var msgs dto.Messages
	if err := c.do(ctx, http.MethodGet, "/v1/identities/"+url.PathEscape(did.String())+"/messages", nil, &msgs); err != nil {
		return nil, err
	}
	integration, diffs := msgs.Entries()
	dc, err := chain.Build(did, integration, diffs)
	if errors.Is(err, chain.ErrNoValidGenesis) {
		return nil, fmt.Errorf("%w: %v", ports.ErrIdentityNotFound, err)
	}
	return dc, err
}

// ReadDocument implements ports.Client. The document is folded locally.
func (c *Client) ReadDocument(ctx context.Context, did domain.DID) (*domain.ResolvedDocument, error) {
	dc, err := c.ReadDocumentChain(ctx, did)
	if err != nil {
		return nil, err
	}
	return dc.Fold()
}

// Watch implements ports.Watcher over the websocket route of the API. It
// calls notify for every message published for did until ctx is done.
func (c *Client) Watch(ctx context.Context, did domain.DID, notify func(domain.MessageID)) error {
	ws := *c.base
	if ws.Scheme == "https" {
		ws.Scheme = "wss"
	} else {
		ws.Scheme = "ws"
	}
	target := ws.String() + "/v1/identities/" + url.PathEscape(did.String()) + "/watch"

	conn, resp, err := c.dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: ledger at %s does not stream notifications", ports.ErrClient, c.base)
		}
		return fmt.Errorf("%w: watch %s: %v", ports.ErrClient, did, err)
	}
	defer conn.Close()
	c.logger.Debug("watching identity", "did", did.String())

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var n dto.Notification
		if err := conn.ReadJSON(&n); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: watch %s: %v", ports.ErrClient, did, err)
		}
		if n.DID != did {
			continue
		}
		notify(n.MessageID)
	}
}

// Health checks the API is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// do sends body as JSON and decodes a 2xx response into out. A 404 maps to
// ports.ErrIdentityNotFound; every other failure wraps ports.ErrClient.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", ports.ErrClient, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return fmt.Errorf("%w: failed to create %s request: %v", ports.ErrClient, method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ports.ErrClient, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ports.ErrClient, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(data))
		var apiErr dto.Error
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ports.ErrIdentityNotFound, msg)
		}
		return fmt.Errorf("%w: %s %s: status %d: %s", ports.ErrClient, method, path, resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ports.ErrClient, err)
	}
	return nil
}

var (
	_ ports.Client  = (*Client)(nil)
	_ ports.Watcher = (*Client)(nil)
)
