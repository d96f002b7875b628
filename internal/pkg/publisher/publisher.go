package publisher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/anicoll/baratron-integration/internal/pkg/model"
	"github.com/anicoll/baratron-integration/internal/pkg/registry"
)

const DeviceModel = "eBaratron"

var errAlreadyRegistered = errors.New("publisher already registered")

type publisher interface {
	// Write receives the sensors whose value changed since the last successful write.
	Write(ctx context.Context, data []map[string]any) error
	// RegisterDevice is called for every reading and must skip sensors it already configured.
	RegisterDevice(device *model.Device, sensors []model.DeviceStatus) error
}

// Publisher fans readings out to the registered adapters, skipping sensors
// whose value has not changed for that adapter.
type Publisher struct {
	mu         sync.Mutex
	registry   *registry.Registry
	publishers map[string]publisher
	sent       map[string]string // last written value per publisher and sensor
	logger     *zap.Logger
}

func New(reg *registry.Registry) *Publisher {
	return &Publisher{
		registry:   reg,
		publishers: make(map[string]publisher),
		sent:       make(map[string]string),
		logger:     zap.L(),
	}
}

func (p *Publisher) RegisterPublisher(name string, pub publisher) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.publishers[name]; ok {
		return errAlreadyRegistered
	}
	p.publishers[name] = pub
	return nil
}

func Slug(name string) string {
	return strings.ReplaceAll(slug.Make(name), "-", "_")
}

func DeviceFor(address string) model.Device {
	return model.Device{
		ID:      Slug(DeviceModel + " " + address),
		Model:   DeviceModel,
		Address: address,
	}
}

// Statuses flattens a reading into one status per field, in registry order.
func (p *Publisher) Statuses(reading model.Reading) []model.DeviceStatus {
	pressureUnit, _ := reading.State.String(registry.PressureUnits)

	statuses := make([]model.DeviceStatus, 0, len(reading.State))
	for _, field := range p.registry.Fields() {
		raw, ok := reading.State[field.Name]
		if !ok {
			continue
		}
		status := model.DeviceStatus{
			Name: field.Name,
			Slug: Slug(field.Name),
		}
		switch v := raw.(type) {
		case float64:
			s := strconv.FormatFloat(v, 'g', -1, 64)
			status.Value = &s
		case string:
			s := v
			status.Value = &s
			status.Text = true
		default:
			s := fmt.Sprint(v)
			status.Value = &s
			status.Text = true
		}
		switch field.Unit {
		case model.UnitDynamic:
			status.Unit = pressureUnit
		default:
			status.Unit = string(field.Unit)
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// PublishReading registers the device with every publisher and writes the
// sensors each publisher has not yet seen at their current value. A failed
// write is retried with the next reading.
func (p *Publisher) PublishReading(ctx context.Context, reading model.Reading) error {
	device := DeviceFor(reading.Address)
	statuses := p.Statuses(reading)

	p.mu.Lock()
	defer p.mu.Unlock()
	for name, pub := range p.publishers {
		// sensors can first appear in a later reading.
		if err := pub.RegisterDevice(&device, statuses); err != nil {
			p.logger.Error("failed to register device", zap.Error(err), zap.String("publisher", name))
		}

		changed := p.changed(name, device.ID, statuses)
		if len(changed) == 0 {
			continue
		}
		data := make([]map[string]any, 0, len(changed))
		for _, status := range changed {
			data = append(data, map[string]any{
				"value":               *status.Value,
				"slug":                status.Slug,
				"timestamp":           reading.Timestamp,
				"identifier":          device.ID,
				"unit_of_measurement": status.Unit,
				"text":                status.Text,
			})
		}
		if err := pub.Write(ctx, data); err != nil {
			p.logger.Error("failed to publish data", zap.Error(err), zap.String("publisher", name))
			continue
		}
		p.commit(name, device.ID, changed)
		p.logger.Debug("updated sensors", zap.Int("count", len(changed)), zap.String("publisher", name))
	}
	return nil
}

func sentKey(publisher, identifier, slug string) string {
	return fmt.Sprintf("%s/%s_%s", publisher, identifier, slug)
}

// changed returns the statuses whose value differs from what publisher last wrote.
func (p *Publisher) changed(publisher, identifier string, statuses []model.DeviceStatus) []model.DeviceStatus {
	out := make([]model.DeviceStatus, 0, len(statuses))
	for _, status := range statuses {
		old, exists := p.sent[sentKey(publisher, identifier, status.Slug)]
		if exists && strings.EqualFold(old, *status.Value) {
			continue
		}
		out = append(out, status)
	}
	return out
}

func (p *Publisher) commit(publisher, identifier string, statuses []model.DeviceStatus) {
	for _, status := range statuses {
		key := sentKey(publisher, identifier, status.Slug)
		if _, exists := p.sent[key]; !exists {
			p.logger.Info("configured sensor", zap.String("publisher", publisher), zap.String("device", identifier), zap.String("sensor", status.Slug), zap.String("value", *status.Value))
		}
		p.sent[key] = *status.Value
	}
}
