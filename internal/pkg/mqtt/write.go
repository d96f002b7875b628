package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anicoll/baratron-integration/internal/pkg/model"
)

const manufacturer = "MKS Instruments"

func sensorTopic(identifier, slug string) string {
	return fmt.Sprintf("homeassistant/sensor/%s_%s", identifier, slug)
}

func (s *service) Write(ctx context.Context, data []map[string]any) error {
	for _, d := range data {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.PublishData(d); err != nil {
			return err
		}
	}
	return nil
}

// RegisterDevice publishes a retained Home Assistant config for every sensor of the device.
func (s *service) RegisterDevice(device *model.Device, sensors []model.DeviceStatus) error {
	for _, sensor := range sensors {
		key := device.ID + "_" + sensor.Slug
		s.mu.Lock()
		_, exists := s.configuredSensors[key]
		s.mu.Unlock()
		if exists {
			continue
		}

		payload, err := json.Marshal(registerMsg(device, sensor))
		if err != nil {
			return err
		}
		token := s.client.Publish(sensorTopic(device.ID, sensor.Slug)+"/config", 1, true, payload)
		if !token.WaitTimeout(publishTimeout) {
			return fmt.Errorf("register %s: timed out", key)
		}
		if err := token.Error(); err != nil {
			return err
		}
		s.mu.Lock()
		s.configuredSensors[key] = struct{}{}
		s.mu.Unlock()
	}
	return nil
}

func (s *service) PublishData(data map[string]any) error {
	identifier, _ := data["identifier"].(string)
	slug, _ := data["slug"].(string)
	value, _ := data["value"].(string)
	isText, _ := data["text"].(bool)

	payload := map[string]string{
		"value": value,
	}
	if unit, _ := data["unit_of_measurement"].(string); !isText && unit != "" {
		payload["unit_of_measurement"] = unit
	}

	publishData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	token := s.client.Publish(sensorTopic(identifier, slug)+"/state", 0, false, publishData)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s_%s: timed out", identifier, slug)
	}
	return token.Error()
}

func registerMsg(device *model.Device, sensor model.DeviceStatus) model.RegisterMessage {
	name := fmt.Sprintf("%s %s", device.Model, device.Address)

	msg := model.RegisterMessage{
		Tilda:         sensorTopic(device.ID, sensor.Slug),
		Name:          sensor.Name,
		ID:            device.ID + "_" + sensor.Slug,
		StateTopic:    "~/state",
		ValueTemplate: "{{ value_json.value }}",
		Device: model.RegisterDevice{
			Name:         name,
			Identifiers:  []string{device.ID},
			Model:        device.Model,
			Manufacturer: manufacturer,
		},
	}
	if !sensor.Text {
		msg.UnitOfMeasurement = sensor.Unit
	}
	return msg
}
