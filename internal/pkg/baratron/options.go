package baratron

import (
	"github.com/anicoll/baratron-integration/internal/pkg/registry"
	"github.com/anicoll/baratron-integration/pkg/toolweb"
)

type Option func(*Client)

// WithRegistry replaces the default eBaratron field set.
func WithRegistry(r *registry.Registry) Option {
	return func(c *Client) {
		c.registry = r
	}
}

// WithConnection replaces the ToolWeb session, mostly for tests.
func WithConnection(conn toolweb.Connection) Option {
	return func(c *Client) {
		c.session = conn
	}
}
