package toolweb

import (
	"net/http"
	"time"
)

func WithTimeout(d time.Duration) func(*Session) {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithHTTPClient makes the session reuse c instead of building its own transport.
func WithHTTPClient(c *http.Client) func(*Session) {
	return func(s *Session) {
		s.httpClient = c
	}
}

func WithPath(p string) func(*Session) {
	return func(s *Session) {
		s.path = p
	}
}

// OnError is called with every transport failure that invalidates the session.
func OnError(f func(error)) func(*Session) {
	return func(s *Session) {
		s.onError = f
	}
}
