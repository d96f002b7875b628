// Package baratron is a driver for MKS eBaratron capacitance manometers.
package baratron

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/baratron-integration/internal/pkg/config"
	"github.com/anicoll/baratron-integration/internal/pkg/decoder"
	"github.com/anicoll/baratron-integration/internal/pkg/model"
	"github.com/anicoll/baratron-integration/internal/pkg/registry"
	"github.com/anicoll/baratron-integration/pkg/toolweb"
)

// Client polls one device. It owns its session and must not be shared
// between goroutines without external locking.
type Client struct {
	cfg      *config.BaratronConfig
	session  toolweb.Connection
	registry *registry.Registry
	decoder  *decoder.Decoder
	request  []byte
	logger   *zap.Logger
}

// New does not connect. The session opens on Connect or on the first Get.
func New(cfg *config.BaratronConfig, opts ...Option) *Client {
	if cfg == nil {
		cfg = &config.BaratronConfig{Address: config.DefaultAddress}
	}
	local := *cfg
	if local.Timeout <= 0 {
		local.Timeout = config.DefaultTimeout
	}
	cfg = &local
	c := &Client{
		cfg:      cfg,
		registry: registry.Default(),
		logger:   zap.L(), // returns the global logger.
	}
	for _, o := range opts {
		o(c)
	}
	if c.session == nil {
		c.session = toolweb.New(cfg.Address,
			toolweb.WithTimeout(cfg.Timeout),
			toolweb.OnError(c.onTransportError),
		)
	}
	c.decoder = decoder.New(c.registry)
	c.request = c.registry.PollRequest()
	return c
}

// With connects a client, runs fn and always closes the client afterwards.
func With(ctx context.Context, cfg *config.BaratronConfig, fn func(*Client) error, opts ...Option) (err error) {
	c := New(cfg, opts...)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, c.Close())
	}()
	return fn(c)
}

func (c *Client) onTransportError(err error) {
	c.logger.Warn("session dropped", zap.String("address", c.cfg.Address), zap.Error(err))
}

func (c *Client) Address() string {
	return c.cfg.Address
}

func (c *Client) Registry() *registry.Registry {
	return c.registry
}

func (c *Client) Connect(ctx context.Context) error {
	c.logger.Debug("connecting", zap.String("address", c.cfg.Address))
	return c.session.Connect(ctx)
}

// Close releases the session. Calling it more than once is harmless.
func (c *Client) Close() error {
	return c.session.Disconnect()
}

// Get performs one poll and returns the decoded device state.
func (c *Client) Get(ctx context.Context) (model.State, error) {
	payload, err := c.session.Send(ctx, c.request)
	if err != nil {
		return nil, err
	}
	state, err := c.decoder.Decode(payload)
	if err != nil {
		c.logger.Warn("failed to decode response", zap.String("address", c.cfg.Address), zap.ByteString("payload", payload), zap.Error(err))
		return nil, err
	}
	c.logger.Debug("received state", zap.String("address", c.cfg.Address), zap.Any("state", state))
	return state, nil
}

// Read is Get with the time and duration of the poll attached.
func (c *Client) Read(ctx context.Context) (model.Reading, error) {
	start := time.Now()
	state, err := c.Get(ctx)
	if err != nil {
		return model.Reading{}, err
	}
	now := time.Now()
	return model.Reading{
		Address:   c.cfg.Address,
		State:     state,
		Timestamp: now,
		Latency:   now.Sub(start),
	}, nil
}
