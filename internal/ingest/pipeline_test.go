package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Jmi2020/Presence-Sensor/internal/infrastructure/config"
	"github.com/Jmi2020/Presence-Sensor/internal/infrastructure/mqtt"
	"github.com/Jmi2020/Presence-Sensor/internal/pod"
)

// fakeSubscriber records subscriptions and lets tests inject messages.
type fakeSubscriber struct {
	topic   string
	qos     byte
	handler mqtt.MessageHandler
	err     error
}

func (f *fakeSubscriber) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	if f.err != nil {
		return f.err
	}
	f.topic = topic
	f.qos = qos
	f.handler = handler
	return nil
}

// fakeObserver records observations.
type fakeObserver struct {
	mu      sync.Mutex
	calls   []observeCall
	err     error
	lastPod *pod.Pod
}

type observeCall struct {
	podID string
	obs   pod.Observation
}

func (f *fakeObserver) Observe(_ context.Context, podID string, obs pod.Observation) (*pod.Pod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, observeCall{podID: podID, obs: obs})
	f.lastPod = &pod.Pod{ID: int64(len(f.calls)), PodID: podID, IsOccupied: obs.Occupied}
	return f.lastPod, nil
}

// fakeDispatcher counts dispatches.
type fakeDispatcher struct {
	mu   sync.Mutex
	pods []*pod.Pod
}

func (f *fakeDispatcher) Dispatch(_ context.Context, p *pod.Pod) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pods = append(f.pods, p)
}

func newTestPipeline() (*Pipeline, *fakeSubscriber, *fakeObserver, *fakeDispatcher) {
	sub := &fakeSubscriber{}
	obs := &fakeObserver{}
	disp := &fakeDispatcher{}
	p := New(sub, obs, disp, config.IngestConfig{TopicPrefix: "presence/pod"}, 0)
	return p, sub, obs, disp
}

func TestStart_SubscribesToWildcard(t *testing.T) {
	p, sub, _, _ := newTestPipeline()

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if sub.topic != "presence/pod/#" {
		t.Errorf("subscribed topic = %q, want presence/pod/#", sub.topic)
	}
}

func TestStart_SubscribeError(t *testing.T) {
	p, sub, _, _ := newTestPipeline()
	sub.err = errors.New("broker gone")

	if err := p.Start(context.Background()); err == nil {
		t.Fatal("Start() expected error")
	}
}

func TestHandleMessage_ValidObservation(t *testing.T) {
	p, sub, obs, disp := newTestPipeline()
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	payload := []byte(`{"occupied":true,"occupant_id":"badge-42","mmwave_detected":true,"rssi":-61,"static_distance":1.4}`)
	if err := sub.handler("presence/pod/desk-01", payload); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	if len(obs.calls) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(obs.calls))
	}
	call := obs.calls[0]
	if call.podID != "desk-01" {
		t.Errorf("podID = %q, want desk-01", call.podID)
	}
	if !call.obs.Occupied {
		t.Error("Occupied = false, want true")
	}
	if call.obs.OccupantID == nil || *call.obs.OccupantID != "badge-42" {
		t.Errorf("OccupantID = %v, want badge-42", call.obs.OccupantID)
	}
	if !call.obs.MmwaveDetected {
		t.Error("MmwaveDetected = false, want true")
	}
	if call.obs.RSSI == nil || *call.obs.RSSI != -61 {
		t.Errorf("RSSI = %v, want -61", call.obs.RSSI)
	}
	if call.obs.StaticDistance == nil || *call.obs.StaticDistance != 1.4 {
		t.Errorf("StaticDistance = %v, want 1.4", call.obs.StaticDistance)
	}

	if len(disp.pods) != 1 {
		t.Fatalf("expected exactly 1 dispatch, got %d", len(disp.pods))
	}
	if disp.pods[0].PodID != "desk-01" {
		t.Errorf("dispatched pod = %q, want desk-01", disp.pods[0].PodID)
	}
}

func TestHandleMessage_ObservedAt(t *testing.T) {
	p, sub, obs, _ := newTestPipeline()
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	payload := []byte(`{"occupied":true,"observed_at":"2026-03-01T12:00:00Z"}`)
	if err := sub.handler("presence/pod/desk-01", payload); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	if len(obs.calls) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(obs.calls))
	}
	want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if !obs.calls[0].obs.ObservedAt.Equal(want) {
		t.Errorf("ObservedAt = %v, want %v", obs.calls[0].obs.ObservedAt, want)
	}
}

func TestHandleMessage_PodIDOverride(t *testing.T) {
	p, sub, obs, _ := newTestPipeline()
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	payload := []byte(`{"pod_id":"real-id","occupied":false}`)
	if err := sub.handler("presence/pod/topic-id", payload); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	if len(obs.calls) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(obs.calls))
	}
	if obs.calls[0].podID != "real-id" {
		t.Errorf("podID = %q, want real-id (payload override)", obs.calls[0].podID)
	}
}

func TestHandleMessage_MalformedDropped(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{"empty payload", "presence/pod/desk-01", ""},
		{"invalid json", "presence/pod/desk-01", `{"occupied":`},
		{"missing occupied", "presence/pod/desk-01", `{"rssi":-60}`},
		{"non-boolean occupied", "presence/pod/desk-01", `{"occupied":"yes"}`},
		{"numeric occupied", "presence/pod/desk-01", `{"occupied":1}`},
		{"topic without pod id", "presence/pod", `{"occupied":true}`},
		{"foreign topic", "other/prefix/desk-01", `{"occupied":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, sub, obs, disp := newTestPipeline()
			if err := p.Start(context.Background()); err != nil {
				t.Fatalf("Start() error = %v", err)
			}

			// Drops are silent: no error, no observation, no dispatch.
			if err := sub.handler(tt.topic, []byte(tt.payload)); err != nil {
				t.Errorf("handler error = %v, want nil (drop)", err)
			}
			if len(obs.calls) != 0 {
				t.Errorf("expected no observations, got %d", len(obs.calls))
			}
			if len(disp.pods) != 0 {
				t.Errorf("expected no dispatches, got %d", len(disp.pods))
			}
		})
	}
}

func TestHandleMessage_NestedTopicUsesFinalSegment(t *testing.T) {
	p, sub, obs, _ := newTestPipeline()
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := sub.handler("presence/pod/floor-3/desk-01", []byte(`{"occupied":true}`)); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if len(obs.calls) != 1 || obs.calls[0].podID != "desk-01" {
		t.Errorf("podID = %v, want final segment desk-01", obs.calls)
	}
}

func TestHandleMessage_ObserveErrorPropagates(t *testing.T) {
	p, sub, obs, disp := newTestPipeline()
	obs.err = errors.New("database locked")
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	err := sub.handler("presence/pod/desk-01", []byte(`{"occupied":true}`))
	if err == nil {
		t.Fatal("handler expected error when observe fails")
	}
	if len(disp.pods) != 0 {
		t.Errorf("expected no dispatch after failed observe, got %d", len(disp.pods))
	}
}

func TestHandleMessage_DispatchExactlyOncePerReading(t *testing.T) {
	p, sub, _, disp := newTestPipeline()
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := sub.handler("presence/pod/desk-01", []byte(`{"occupied":true}`)); err != nil {
			t.Fatalf("handler error = %v", err)
		}
	}
	if len(disp.pods) != 3 {
		t.Errorf("expected 3 dispatches for 3 readings, got %d", len(disp.pods))
	}
}
