// ABOUTME: HTTP client for the blog API
// ABOUTME: Routes every call through the credential pipeline and discards stale results

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"github.com/ToniTF/clientcd/internal/session"
	"github.com/ToniTF/clientcd/internal/storage"
)

// DefaultTimeout bounds every request when Options.Timeout is zero
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an error response is read
const maxErrorBody = 64 << 10

// Session is the part of the session store the client depends on
type Session interface {
	Generation() uint64
	Snapshot() session.Snapshot
	Guard(generation uint64, fn func() error) error
	Invalidate(generation uint64) bool
	Login(identity session.Identity) error
	Logout() error
}

// Options configures a Client
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Storage   storage.Storage
	Session   Session
	Logger    zerolog.Logger
	Transport http.RoundTripper
}

// Client is the API client for the blog backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	storage    storage.Storage
	session    Session
	log        zerolog.Logger
	reads      singleflight.Group
}

// New creates a new API client
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	log := opts.Logger.With().Str("component", "client").Logger()

	return &Client{
		baseURL: opts.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &authTransport{
				base:    base,
				storage: opts.Storage,
				session: opts.Session,
				log:     log,
			},
		},
		storage: opts.Storage,
		session: opts.Session,
		log:     log,
	}
}

// BaseURL returns the API base URL requests are sent to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HasCredential reports whether a credential is currently stored
func (c *Client) HasCredential() bool {
	token, err := c.storage.Get(storage.KeyCredential)
	return err == nil && token != ""
}

// do sends one request issued under generation. body may be nil, raw JSON
// bytes, or a value to encode. out may be nil.
func (c *Client) do(ctx context.Context, generation uint64, method, path string, body, out any) error {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	case json.RawMessage:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(withGeneration(ctx, generation), method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.handleRequestError(ctx, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.handleErrorResponse(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("invalid response from backend: %w", err)
		}
	}

	if c.session.Generation() != generation {
		c.log.Debug().Str("method", method).Str("path", path).Msg("Discarding result from earlier session")
		return session.ErrStaleSession
	}
	return nil
}

// handleRequestError wraps failures that produced no response.
// Context cancellation and deadlines stay visible through errors.Is.
func (c *Client) handleRequestError(ctx context.Context, method, path string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	} else {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
	}
	return &TransportError{Op: method, URL: c.baseURL + path, Err: err}
}

// handleErrorResponse parses API error responses
func (c *Client) handleErrorResponse(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || !gjson.ValidBytes(body) {
		return apiErr
	}
	for _, field := range []string{"message", "error"} {
		if v := gjson.GetBytes(body, field); v.Type == gjson.String && v.Str != "" {
			apiErr.Message = v.Str
			break
		}
	}
	return apiErr
}
