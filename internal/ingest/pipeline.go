package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Jmi2020/Presence-Sensor/internal/infrastructure/config"
	"github.com/Jmi2020/Presence-Sensor/internal/infrastructure/mqtt"
	"github.com/Jmi2020/Presence-Sensor/internal/pod"
)

// Logger defines the logging interface used by the Pipeline.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Subscriber is the slice of the MQTT client the pipeline needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Observer processes a validated observation. Implemented by *pod.Tracker.
type Observer interface {
	Observe(ctx context.Context, podID string, obs pod.Observation) (*pod.Pod, error)
}

// Dispatcher pushes an updated snapshot to the fanout sinks.
// Implemented by *fanout.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, p *pod.Pod)
}

// observationWire is the raw MQTT payload shape.
//
// Occupied is a *bool so a missing or non-boolean field is
// distinguishable from false; it is the only required field.
type observationWire struct {
	PodID      string  `json:"pod_id"`
	Occupied   *bool   `json:"occupied"`
	OccupantID *string `json:"occupant_id"`

	MmwaveDetected bool `json:"mmwave_detected"`
	BleDetected    bool `json:"ble_detected"`
	RSSI           *int `json:"rssi"`

	StaticDistance  *float64 `json:"static_distance"`
	MotionDistance  *float64 `json:"motion_distance"`
	ExistenceEnergy *float64 `json:"existence_energy"`
	MotionEnergy    *float64 `json:"motion_energy"`
	MotionSpeed     *float64 `json:"motion_speed"`
	BodyMovement    *float64 `json:"body_movement"`

	// ObservedAt is the device/event time; absent means the service
	// stamps the reading with processing time.
	ObservedAt time.Time `json:"observed_at"`
}

// Pipeline subscribes to pod telemetry and drives the observe path:
// validate the payload, resolve the pod id, hand the observation to the
// tracker, and dispatch the updated snapshot exactly once.
//
// Malformed messages are logged and dropped; they never stop the
// subscription or affect other pods.
type Pipeline struct {
	sub      Subscriber
	observer Observer
	dispatch Dispatcher
	cfg      config.IngestConfig
	qos      byte
	logger   Logger
}

// New creates an ingest pipeline. Call Start to begin consuming.
func New(sub Subscriber, observer Observer, dispatch Dispatcher, cfg config.IngestConfig, qos byte) *Pipeline {
	return &Pipeline{
		sub:      sub,
		observer: observer,
		dispatch: dispatch,
		cfg:      cfg,
		qos:      qos,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the pipeline.
func (p *Pipeline) SetLogger(logger Logger) {
	p.logger = logger
}

// Start subscribes to the configured telemetry prefix.
//
// The subscription is restored automatically by the MQTT client on
// reconnect; Start only needs to be called once.
func (p *Pipeline) Start(ctx context.Context) error {
	topic := mqtt.Topics{}.PodsWildcard(p.cfg.TopicPrefix)

	handler := func(topic string, payload []byte) error {
		return p.handleMessage(ctx, topic, payload)
	}

	if err := p.sub.Subscribe(topic, p.qos, handler); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}

	p.logger.Info("ingest pipeline started", "topic", topic)
	return nil
}

// handleMessage processes one raw telemetry message.
//
// The external pod id is the final topic segment; a payload pod_id
// overrides it. Validation failures drop the message with a warning,
// storage failures return an error.
func (p *Pipeline) handleMessage(ctx context.Context, topic string, payload []byte) error {
	externalID, ok := p.podIDFromTopic(topic)
	if !ok {
		p.logger.Warn("dropping message with no pod id in topic", "topic", topic)
		return nil
	}

	obs, podID, err := parseObservation(payload)
	if err != nil {
		p.logger.Warn("dropping malformed observation",
			"topic", topic,
			"error", err,
		)
		return nil
	}
	if podID != "" {
		externalID = podID
	}

	updated, err := p.observer.Observe(ctx, externalID, obs)
	if err != nil {
		return fmt.Errorf("observing pod %s: %w", externalID, err)
	}

	p.dispatch.Dispatch(ctx, updated)
	return nil
}

// podIDFromTopic extracts the external pod id from a telemetry topic.
// For "presence/pod/desk-01" the id is "desk-01". A message on the bare
// prefix has no id.
func (p *Pipeline) podIDFromTopic(topic string) (string, bool) {
	prefix := p.cfg.TopicPrefix + "/"
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}

	rest := strings.TrimPrefix(topic, prefix)
	segments := strings.Split(rest, "/")
	id := segments[len(segments)-1]
	if id == "" {
		return "", false
	}
	return id, true
}

// parseObservation validates a raw payload into a pod.Observation.
// Returns the payload's pod_id override (may be empty) alongside it.
func parseObservation(payload []byte) (pod.Observation, string, error) {
	var wire observationWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return pod.Observation{}, "", fmt.Errorf("decoding payload: %w", err)
	}
	if wire.Occupied == nil {
		return pod.Observation{}, "", fmt.Errorf("missing required occupied field")
	}

	obs := pod.Observation{
		Occupied:        *wire.Occupied,
		OccupantID:      wire.OccupantID,
		MmwaveDetected:  wire.MmwaveDetected,
		BleDetected:     wire.BleDetected,
		RSSI:            wire.RSSI,
		StaticDistance:  wire.StaticDistance,
		MotionDistance:  wire.MotionDistance,
		ExistenceEnergy: wire.ExistenceEnergy,
		MotionEnergy:    wire.MotionEnergy,
		MotionSpeed:     wire.MotionSpeed,
		BodyMovement:    wire.BodyMovement,
		ObservedAt:      wire.ObservedAt,
	}
	return obs, wire.PodID, nil
}
