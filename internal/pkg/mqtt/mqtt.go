package mqtt

import (
	"errors"
	"sync"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/anicoll/baratron-integration/internal/pkg/config"
)

const (
	connectTimeout = time.Second * 5
	publishTimeout = time.Second * 10
)

var errConnectTimeout = errors.New("unable to connect in time")

type service struct {
	client            paho_mqtt.Client
	mu                sync.Mutex
	configuredSensors map[string]struct{}
}

func New(client paho_mqtt.Client) *service {
	return &service{
		client:            client,
		configuredSensors: make(map[string]struct{}),
	}
}

// NewClient builds a paho client for the configured broker.
func NewClient(cfg *config.MqttConfig, clientID string) paho_mqtt.Client {
	opts := paho_mqtt.NewClientOptions().
		AddBroker(cfg.Host).
		SetClientID(clientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)
	return paho_mqtt.NewClient(opts)
}

func (s *service) Connect() error {
	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return errConnectTimeout
	}
	return token.Error()
}

func (s *service) Disconnect() {
	s.client.Disconnect(250)
}
