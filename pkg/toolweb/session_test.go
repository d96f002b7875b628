package toolweb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pollBody = `<PollRequest><V Name="EVID_100"/></PollRequest>`

func TestSession_Send(t *testing.T) {
	var gotMethod, gotPath, gotType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotMethod, gotPath, gotType, gotBody = r.Method, r.URL.Path, r.Header.Get("Content-Type"), string(data)
		_, _ = w.Write([]byte(`<PollResponse><V Name="EVID_100">1.0</V></PollResponse>`))
	}))
	defer srv.Close()

	s := New(srv.URL)
	assert.False(t, s.IsConnected())

	res, err := s.Send(context.Background(), []byte(pollBody))
	require.NoError(t, err)

	assert.True(t, s.IsConnected(), "send connects lazily")
	assert.Equal(t, `<PollResponse><V Name="EVID_100">1.0</V></PollResponse>`, string(res))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, DefaultPath, gotPath)
	assert.Equal(t, "text/xml", gotType)
	assert.Equal(t, pollBody, gotBody)
}

func TestSession_ProtocolErrors(t *testing.T) {
	tests := map[string]struct {
		status int
		body   string
		empty  bool
	}{
		"server error": {status: http.StatusInternalServerError, body: "boom"},
		"not found":    {status: http.StatusNotFound, body: "missing"},
		"accepted":     {status: http.StatusAccepted, body: "<a/>"},
		"empty body":   {status: http.StatusOK, body: "", empty: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			s := New(srv.URL)
			_, err := s.Send(context.Background(), []byte(pollBody))
			require.ErrorIs(t, err, ErrProtocol)

			var perr *ProtocolError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, srv.URL+DefaultPath, perr.Address)
			assert.Equal(t, tt.status, perr.StatusCode)
			assert.Equal(t, tt.empty, perr.Empty)
			assert.Contains(t, err.Error(), srv.URL)
			assert.True(t, s.IsConnected(), "protocol errors keep the session")
		})
	}
}

func TestSession_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	var reported error
	s := New(srv.URL, WithTimeout(100*time.Millisecond), OnError(func(err error) { reported = err }))

	start := time.Now()
	_, err := s.Send(context.Background(), []byte(pollBody))
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, elapsed, time.Second)
	assert.False(t, s.IsConnected(), "timeouts invalidate the session")
	assert.ErrorIs(t, reported, ErrTimeout)
}

func TestSession_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	s := New(url)
	_, err := s.Send(context.Background(), []byte(pollBody))
	require.ErrorIs(t, err, ErrConnection)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.False(t, s.IsConnected())
}

func TestSession_Cancel(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	s := New(srv.URL, WithTimeout(5*time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := s.Send(ctx, []byte(pollBody))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestSession_ReconnectAfterFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			time.Sleep(200 * time.Millisecond)
		}
		_, _ = w.Write([]byte("<R/>"))
	}))
	defer srv.Close()

	s := New(srv.URL, WithTimeout(50*time.Millisecond))
	_, err := s.Send(context.Background(), []byte(pollBody))
	require.ErrorIs(t, err, ErrTimeout)
	require.False(t, s.IsConnected())

	s.timeout = time.Second
	res, err := s.Send(context.Background(), []byte(pollBody))
	require.NoError(t, err)
	assert.Equal(t, "<R/>", string(res))
	assert.True(t, s.IsConnected())
}

func TestSession_ConnectDisconnectIdempotent(t *testing.T) {
	s := New("192.168.1.100")

	require.NoError(t, s.Disconnect())
	require.NoError(t, s.Connect(context.Background()))
	first := s.current()
	require.NoError(t, s.Connect(context.Background()))
	assert.Same(t, first, s.current(), "connect keeps the open session")

	require.NoError(t, s.Disconnect())
	require.NoError(t, s.Close())
	assert.False(t, s.IsConnected())
}

func TestSession_WithHTTPClient(t *testing.T) {
	c := &http.Client{}
	s := New("device", WithHTTPClient(c))
	require.NoError(t, s.Connect(context.Background()))
	assert.Same(t, c, s.current())
}

func TestSession_URL(t *testing.T) {
	tests := map[string]struct {
		address string
		opts    []func(*Session)
		want    string
	}{
		"bare ip":        {address: "192.168.1.100", want: "http://192.168.1.100/ToolWeb/Cmd"},
		"with scheme":    {address: "http://192.168.1.100", want: "http://192.168.1.100/ToolWeb/Cmd"},
		"trailing slash": {address: "http://10.0.0.2:8080/", want: "http://10.0.0.2:8080/ToolWeb/Cmd"},
		"hostname":       {address: " baratron.lan ", want: "http://baratron.lan/ToolWeb/Cmd"},
		"custom path":    {address: "10.0.0.2", opts: []func(*Session){WithPath("/Cmd")}, want: "http://10.0.0.2/Cmd"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.address, tt.opts...).URL())
		})
	}
}

func TestWithTimeout_IgnoresNonPositive(t *testing.T) {
	assert.Equal(t, DefaultTimeout, New("x", WithTimeout(0)).timeout)
	assert.Equal(t, 3*time.Second, New("x", WithTimeout(3*time.Second)).timeout)
}
