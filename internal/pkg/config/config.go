package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DefaultAddress      = "192.168.1.100"
	DefaultTimeout      = time.Second
	DefaultListenAddr   = "0.0.0.0:8000"
	DefaultPollSchedule = "@every 5s"
)

var (
	errNoAddress = errors.New("baratron address is required")
	errTimeout   = errors.New("baratron timeout must be positive")
	errSchedule  = errors.New("poll schedule is required")
)

type Config struct {
	BaratronCfg *BaratronConfig
	MqttCfg     *MqttConfig
	ServerCfg   *ServerConfig
	LogLevel    string `env:"LOG_LEVEL" envDefault:"INFO"`
}

type BaratronConfig struct {
	Address string        `env:"BARATRON_ADDRESS" envDefault:"192.168.1.100"`
	Timeout time.Duration `env:"BARATRON_TIMEOUT" envDefault:"1s"`
}

type MqttConfig struct {
	Host     string `env:"MQTT_HOST"`
	Username string `env:"MQTT_USER"`
	Password string `env:"MQTT_PASS"`
}

func (c *MqttConfig) Enabled() bool {
	return c != nil && c.Host != ""
}

type ServerConfig struct {
	ListenAddr   string `env:"LISTEN_ADDR" envDefault:"0.0.0.0:8000"`
	PollSchedule string `env:"POLL_SCHEDULE" envDefault:"@every 5s"`
}

// Load reads configuration from the environment, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		BaratronCfg: &BaratronConfig{},
		MqttCfg:     &MqttConfig{},
		ServerCfg:   &ServerConfig{},
	}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *BaratronConfig) Validate() error {
	if c == nil || c.Address == "" {
		return errNoAddress
	}
	if c.Timeout <= 0 {
		return errTimeout
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.BaratronCfg.Validate(); err != nil {
		return err
	}
	if c.ServerCfg != nil && c.ServerCfg.PollSchedule == "" {
		return errSchedule
	}
	return nil
}
