// Package remote implements types.Tabular over HTTP against a Drive-style
// file metadata API and a Sheets-style value range API. Every request
// carries the bearer token set on the client.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/mesh-intelligence/habits/pkg/types"
)

// Default endpoints.
const (
	DefaultDriveURL  = "https://www.googleapis.com/drive/v3"
	DefaultSheetsURL = "https://sheets.googleapis.com/v4"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 * 1024

// Options configures a Client. Empty URLs select the defaults; a zero
// Timeout leaves requests unbounded.
type Options struct {
	DriveURL  string
	SheetsURL string
	Token     string
	Timeout   time.Duration

	// Transport is the base round tripper; nil means
	// http.DefaultTransport.
	Transport http.RoundTripper
}

// Client is a types.Tabular backed by the remote HTTP APIs.
type Client struct {
	driveURL  string
	sheetsURL string
	tokens    *staticSource
	cli       *http.Client
}

var _ types.Tabular = (*Client)(nil)

// New returns a client for opts.
func New(opts Options) *Client {
	drive := strings.TrimRight(opts.DriveURL, "/")
	if drive == "" {
		drive = DefaultDriveURL
	}
	sheets := strings.TrimRight(opts.SheetsURL, "/")
	if sheets == "" {
		sheets = DefaultSheetsURL
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	tokens := &staticSource{token: opts.Token}
	return &Client{
		driveURL:  drive,
		sheetsURL: sheets,
		tokens:    tokens,
		cli: &http.Client{
			Timeout:   opts.Timeout,
			Transport: &oauth2.Transport{Source: tokens, Base: base},
		},
	}
}

// SetToken replaces the bearer token used by later requests.
func (c *Client) SetToken(token string) {
	c.tokens.set(token)
}

// staticSource is an oauth2.TokenSource whose token is replaced by the
// caller. It never refreshes.
type staticSource struct {
	mu    sync.RWMutex
	token string
}

func (s *staticSource) set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *staticSource) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return nil, types.ErrTokenMissing
	}
	return &oauth2.Token{AccessToken: s.token, TokenType: "Bearer"}, nil
}

// apiError is the error envelope of the remote APIs.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// do sends a request and decodes a JSON response into out when out is
// non-nil. Failures are returned as *types.StoreError.
func (c *Client) do(ctx context.Context, op, method, rawURL string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &types.StoreError{Kind: types.KindValidation, Op: op, Message: err.Error(), Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return &types.StoreError{Kind: types.KindValidation, Op: op, Message: err.Error(), Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.cli.Do(req)
	if err != nil {
		if errors.Is(err, types.ErrTokenMissing) {
			return &types.StoreError{Kind: types.KindAuthentication, Op: op, Message: "Access token is not configured", Err: err}
		}
		return &types.StoreError{Kind: types.KindNetwork, Op: op, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &types.StoreError{
			Kind:    types.KindServer,
			Op:      op,
			Message: "Unexpected response body",
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("%w: %v", types.ErrUnexpectedBody, err),
		}
	}
	return nil
}

// statusError maps a failed response to the error taxonomy.
func statusError(op string, resp *http.Response) *types.StoreError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var envelope apiError
	detail := ""
	if json.Unmarshal(data, &envelope) == nil {
		detail = envelope.Error.Message
	}

	se := &types.StoreError{Op: op, Status: resp.StatusCode}
	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized:
		se.Kind, se.Err, se.Message = types.KindAuthentication, types.ErrUnauthorized, "Invalid credentials"
	case code == http.StatusForbidden:
		se.Kind, se.Err, se.Message = types.KindAuthorization, types.ErrForbidden, "Insufficient permissions"
	case code == http.StatusNotFound:
		se.Kind, se.Err, se.Message = types.KindNotFound, types.ErrItemNotFound, "Item not found"
	case code >= http.StatusInternalServerError:
		se.Kind, se.Err, se.Message = types.KindServer, types.ErrServerFailure, "Backend server error"
	case code == http.StatusBadRequest:
		se.Kind, se.Err, se.Message = types.KindValidation, errors.New(resp.Status), "Bad request"
	default:
		se.Kind, se.Err, se.Message = types.KindUnknown, errors.New(resp.Status), resp.Status
	}
	if detail != "" {
		se.Message = se.Message + ": " + detail
	}
	return se
}

// endpoint joins base and path segments, escaping each segment, and
// appends query.
func endpoint(base string, query url.Values, segments ...string) string {
	var b strings.Builder
	b.WriteString(base)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	if len(query) > 0 {
		b.WriteByte('?')
		b.WriteString(query.Encode())
	}
	return b.String()
}
