// Package remote talks to the CityTeam Guests REST server, the store of
// record for facilities, guests, templates and registrations.
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
	"time"

	"github.com/rs/zerolog"

	"github.com/craigmcc/cityteam-guests-client/pkg/utils/errs"
)

const DefaultServerURI = "http://localhost:8082/api"

// StatusError is a non-2xx answer of the server.
type StatusError struct {
	Op      string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

// Observer receives the outcome of every request. status is 0 when no
// response was received.
type Observer interface {
	ObserveRequest(op string, status int, elapsed time.Duration)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

type Client struct {
	baseURL  string
	http     *http.Client
	logger   zerolog.Logger
	observer Observer
}

// New builds a client for serverURI, e.g. "http://localhost:8082/api".
func New(serverURI string, timeout time.Duration, opts ...Option) *Client {
	if serverURI == "" {
		serverURI = DefaultServerURI
	}
	c := &Client{
		baseURL: strings.TrimRight(serverURI, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends body (if any) as JSON and decodes the response into out (if any).
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errs.New("encode request").Arg("op", op).Wrap(err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errs.New("build request").Arg("op", op).Arg("path", path).Wrap(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(op, 0, start)
		return errs.New("request failed").Arg("op", op).Arg("path", path).Wrap(err)
	}
	defer resp.Body.Close()
	c.observe(op, resp.StatusCode, start)

	c.logger.Debug().Str("op", op).Str("method", method).Str("path", path).
		Int("status", resp.StatusCode).Dur("elapsed", time.Since(start)).Msg("remote call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: op, Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.New("decode response").Arg("op", op).Arg("path", path).Wrap(err)
	}
	return nil
}

func (c *Client) observe(op string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(op, status, time.Since(start))
	}
}

// errorMessage extracts {"message": "..."} from an error body, falling back
// to the raw text.
func errorMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(data))
}

type param struct {
	key   string
	value string
}

// queryParameters renders "?a=1&b" style query strings. A param with an
// empty value is rendered as its bare key.
func queryParameters(params ...param) string {
	var b strings.Builder
	for _, p := range params {
		if b.Len() == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		if p.value != "" {
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(p.value))
		}
	}
	return b.String()
}

func pathf(format string, args ...any) string {
	for i, a := range args {
		if s, ok := a.(string); ok {
			args[i] = url.PathEscape(s)
		}
	}
	return fmt.Sprintf(format, args...)
}
