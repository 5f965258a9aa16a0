package hass

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Jmi2020/Presence-Sensor/internal/infrastructure/config"
	"github.com/Jmi2020/Presence-Sensor/internal/pod"
)

// Device metadata advertised in discovery messages.
const (
	deviceModel        = "ESP32C3 + mmWave"
	deviceManufacturer = "Custom"

	// statePayloadOn/Off are the binary_sensor state values Home
	// Assistant expects.
	statePayloadOn  = "ON"
	statePayloadOff = "OFF"

	availabilityOnline = "online"
)

// Logger defines the logging interface used by the Adapter.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Publisher is the slice of the MQTT client the adapter needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// discoveryConfig is the MQTT discovery payload for a pod's occupancy
// binary_sensor. See the Home Assistant MQTT discovery documentation
// for the field semantics.
type discoveryConfig struct {
	Name                string          `json:"name"`
	UniqueID            string          `json:"unique_id"`
	DeviceClass         string          `json:"device_class"`
	StateTopic          string          `json:"state_topic"`
	PayloadOn           string          `json:"payload_on"`
	PayloadOff          string          `json:"payload_off"`
	AvailabilityTopic   string          `json:"availability_topic"`
	JSONAttributesTopic string          `json:"json_attributes_topic"`
	Device              discoveryDevice `json:"device"`
}

type discoveryDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer"`
}

// stateAttributes is the json_attributes payload accompanying the
// binary state.
type stateAttributes struct {
	LastUpdated    time.Time `json:"last_updated"`
	OccupantID     *string   `json:"occupant_id"`
	MmwaveDetected bool      `json:"mmwave_detected"`
	BleDetected    bool      `json:"ble_detected"`
	RSSI           *int      `json:"rssi"`
	Location       string    `json:"location"`

	StaticDistance  *float64 `json:"static_distance,omitempty"`
	MotionDistance  *float64 `json:"motion_distance,omitempty"`
	ExistenceEnergy *float64 `json:"existence_energy,omitempty"`
	MotionEnergy    *float64 `json:"motion_energy,omitempty"`
	MotionSpeed     *float64 `json:"motion_speed,omitempty"`
	BodyMovement    *float64 `json:"body_movement,omitempty"`
}

// Adapter mirrors pod occupancy into Home Assistant via MQTT discovery.
//
// Each snapshot produces four publishes under
// <prefix>/binary_sensor/pod_<id>/: the ON/OFF state, the discovery
// config, a JSON attributes document, and an availability marker.
//
// Delivery is best effort: a failed publish is logged and the remaining
// messages are still attempted. The adapter implements fanout.Sink.
type Adapter struct {
	pub    Publisher
	cfg    config.HomeAssistantConfig
	logger Logger
}

// New creates a Home Assistant adapter.
func New(pub Publisher, cfg config.HomeAssistantConfig) *Adapter {
	return &Adapter{
		pub:    pub,
		cfg:    cfg,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the adapter.
func (a *Adapter) SetLogger(logger Logger) {
	a.logger = logger
}

// Name identifies the adapter as a fanout sink.
func (a *Adapter) Name() string {
	return "home_assistant"
}

// Send publishes the discovery quadruple for one snapshot.
//
// Individual publish failures are logged and skipped; Send only returns
// an error when every message failed, so the dispatcher can tell a dead
// broker from a transient drop.
func (a *Adapter) Send(_ context.Context, p *pod.Pod) error {
	base := a.baseTopic(p.PodID)
	stateTopic := base + "/state"
	configTopic := base + "/config"
	attributesTopic := base + "/attributes"
	availabilityTopic := base + "/availability"

	state := statePayloadOff
	if p.IsOccupied {
		state = statePayloadOn
	}

	cfg := discoveryConfig{
		Name:                p.Name,
		UniqueID:            fmt.Sprintf("pod_%s_occupancy", p.PodID),
		DeviceClass:         "occupancy",
		StateTopic:          stateTopic,
		PayloadOn:           statePayloadOn,
		PayloadOff:          statePayloadOff,
		AvailabilityTopic:   availabilityTopic,
		JSONAttributesTopic: attributesTopic,
		Device: discoveryDevice{
			Identifiers:  []string{fmt.Sprintf("pod_%s", p.PodID)},
			Name:         p.Name,
			Model:        deviceModel,
			Manufacturer: deviceManufacturer,
		},
	}
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling discovery config: %w", err)
	}

	attrs := stateAttributes{
		LastUpdated:     p.LastUpdated,
		OccupantID:      p.LastOccupantID,
		MmwaveDetected:  p.LastMmwaveDetection,
		BleDetected:     p.LastBleDetection,
		RSSI:            p.LastRSSI,
		Location:        p.Location,
		StaticDistance:  p.StaticDistance,
		MotionDistance:  p.MotionDistance,
		ExistenceEnergy: p.ExistenceEnergy,
		MotionEnergy:    p.MotionEnergy,
		MotionSpeed:     p.MotionSpeed,
		BodyMovement:    p.BodyMovement,
	}
	attrsJSON, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("marshalling attributes: %w", err)
	}

	messages := []struct {
		topic   string
		payload []byte
	}{
		{stateTopic, []byte(state)},
		{configTopic, configJSON},
		{attributesTopic, attrsJSON},
		{availabilityTopic, []byte(availabilityOnline)},
	}

	failed := 0
	for _, m := range messages {
		if err := a.pub.Publish(m.topic, m.payload, 0, false); err != nil {
			failed++
			a.logger.Warn("home assistant publish failed",
				"topic", m.topic,
				"error", err,
			)
		}
	}

	if failed == len(messages) {
		return fmt.Errorf("all %d home assistant publishes failed for pod %s", failed, p.PodID)
	}

	a.logger.Debug("home assistant state mirrored",
		"pod_id", p.PodID,
		"state", state,
	)
	return nil
}

// baseTopic builds the discovery topic base for a pod.
//
// Example: homeassistant/binary_sensor/pod_desk-01
func (a *Adapter) baseTopic(podID string) string {
	return fmt.Sprintf("%s/binary_sensor/pod_%s", a.cfg.DiscoveryPrefix, podID)
}
