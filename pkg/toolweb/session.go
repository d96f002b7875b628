// Package toolweb implements the HTTP session used to talk to MKS ToolWeb devices.
package toolweb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	DefaultPath    = "/ToolWeb/Cmd"
	DefaultTimeout = time.Second
	ContentType    = "text/xml"
)

type Connection interface {
	Connect(ctx context.Context) error
	Send(ctx context.Context, body []byte) ([]byte, error)
	IsConnected() bool
	Disconnect() error
	io.Closer
}

// Session is a single request/response channel to one device. It is not
// meant to multiplex concurrent requests.
type Session struct {
	mu         sync.Mutex
	client     *http.Client // nil while disconnected
	httpClient *http.Client
	address    string
	path       string
	timeout    time.Duration
	onError    func(err error)
}

var _ Connection = (*Session)(nil)

func New(address string, opts ...func(*Session)) *Session {
	s := &Session{
		address: normalize(address),
		path:    DefaultPath,
		timeout: DefaultTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func normalize(address string) string {
	address = strings.TrimSpace(address)
	address = strings.TrimPrefix(address, "http://")
	return strings.TrimRight(address, "/")
}

// URL is the endpoint every poll is posted to.
func (s *Session) URL() string {
	return "http://" + s.address + s.path
}

// Connect opens the session. Connecting an open session is a no-op.
func (s *Session) Connect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return nil
	}
	if s.httpClient != nil {
		s.client = s.httpClient
		return nil
	}
	s.client = &http.Client{
		Transport: http.DefaultTransport.(*http.Transport).Clone(),
	}
	return nil
}

func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil
}

// Disconnect releases the session. It is safe to call when not connected.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	s.client.CloseIdleConnections()
	s.client = nil
	return nil
}

func (s *Session) Close() error {
	return s.Disconnect()
}

func (s *Session) current() *http.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// Send posts body and returns the raw response body. The session is
// opened first when needed. Timeouts and network failures close it.
func (s *Session) Send(ctx context.Context, body []byte) ([]byte, error) {
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	client := s.current()
	if client == nil {
		return nil, fmt.Errorf("%w: session closed", ErrConnection)
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, s.URL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	req.Header.Set("Content-Type", ContentType)

	res, err := client.Do(req)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	if res.StatusCode != http.StatusOK || len(data) == 0 {
		return nil, &ProtocolError{
			Address:    s.URL(),
			StatusCode: res.StatusCode,
			Empty:      res.StatusCode == http.StatusOK,
		}
	}
	return data, nil
}

func (s *Session) fail(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("request to %s: %w", s.URL(), context.Canceled)
	}

	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		err = fmt.Errorf("%w: no response from %s within %s", ErrTimeout, s.URL(), s.timeout)
	} else {
		err = fmt.Errorf("%w: %s: %w", ErrConnection, s.URL(), err)
	}

	_ = s.Disconnect()
	if s.onError != nil {
		s.onError(err)
	}
	return err
}
