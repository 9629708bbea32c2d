// Package rest talks to the remote note store over HTTP.
//
// Client implements core.Store against the notes API; Handler serves the
// same API from any core.Store.
package rest

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

	"github.com/aretw0/quire/pkg/core"
)

// DefaultTimeout bounds every request made by a Client.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failure response is read for its message.
const maxErrorBody = 64 << 10

// Client is a core.Store backed by the notes REST API.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client for the API rooted at baseURL (e.g.
// "https://notes.example.com/api").
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid endpoint %q: scheme must be http or https", baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List returns every note of the caller.
func (c *Client) List(ctx context.Context, credential string) ([]core.Note, error) {
	var out []wireNote
	if err := c.do(ctx, core.OpList, http.MethodGet, "/notes", credential, nil, &out); err != nil {
		return nil, err
	}
	notes := make([]core.Note, 0, len(out))
	for _, w := range out {
		notes = append(notes, w.note())
	}
	return notes, nil
}

// Get retrieves a note by its ID.
func (c *Client) Get(ctx context.Context, credential, id string) (core.Note, error) {
	var out wireNote
	if err := c.do(ctx, core.OpGet, http.MethodGet, notePath(id), credential, nil, &out); err != nil {
		return core.Note{}, err
	}
	return out.note(), nil
}

// Create posts a new note.
func (c *Client) Create(ctx context.Context, credential string, p core.Patch) (core.Note, error) {
	var out wireNote
	if err := c.do(ctx, core.OpCreate, http.MethodPost, "/notes", credential, &p, &out); err != nil {
		return core.Note{}, err
	}
	return out.note(), nil
}

// Update sends the set fields of p.
func (c *Client) Update(ctx context.Context, credential, id string, p core.Patch) (core.Note, error) {
	var out wireNote
	if err := c.do(ctx, core.OpUpdate, http.MethodPut, notePath(id), credential, &p, &out); err != nil {
		return core.Note{}, err
	}
	return out.note(), nil
}

// Trash marks a note as deleted.
func (c *Client) Trash(ctx context.Context, credential, id string) error {
	return c.do(ctx, core.OpTrash, http.MethodPut, notePath(id)+"/trash", credential, nil, nil)
}

// Restore clears the deleted mark.
func (c *Client) Restore(ctx context.Context, credential, id string) error {
	return c.do(ctx, core.OpRestore, http.MethodPut, notePath(id)+"/restore", credential, nil, nil)
}

// Purge removes a note permanently.
func (c *Client) Purge(ctx context.Context, credential, id string) error {
	return c.do(ctx, core.OpPurge, http.MethodDelete, notePath(id), credential, nil, nil)
}

// ComponentType implements introspection.Component.
func (c *Client) ComponentType() string {
	return "rest"
}

// Endpoint returns the base URL of the API.
func (c *Client) Endpoint() string {
	return c.base.String()
}

func notePath(id string) string {
	return "/notes/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, op core.Op, method, path, credential string, body *core.Patch, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := encodePatch(*body)
		if err != nil {
			return &core.RemoteError{Op: op, Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return &core.RemoteError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "op", op, "method", method, "path", path, "error", err)
		return &core.RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	c.logger.Debug("request done", "op", op, "method", method, "path", path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return core.NewRemoteError(op, resp.StatusCode, readMessage(resp.Body))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return &core.RemoteError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// readMessage extracts the optional "message" field of a failure body.
func readMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.Message
}

var _ core.Store = (*Client)(nil)
