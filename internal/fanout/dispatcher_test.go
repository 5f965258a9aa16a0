package fanout

import (
	"context"
	"errors"
	"testing"

	"github.com/Jmi2020/Presence-Sensor/internal/pod"
)

func TestDispatch_AllSinksReceive(t *testing.T) {
	d := NewDispatcher()

	var got []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		d.Register(SinkFunc(name, func(_ context.Context, _ *pod.Pod) error {
			got = append(got, name)
			return nil
		}))
	}

	d.Dispatch(context.Background(), &pod.Pod{PodID: "desk-01"})

	if len(got) != 3 {
		t.Fatalf("expected 3 deliveries, got %d", len(got))
	}
	for i, want := range []string{"first", "second", "third"} {
		if got[i] != want {
			t.Errorf("delivery[%d] = %q, want %q (registration order)", i, got[i], want)
		}
	}
}

func TestDispatch_FailingSinkIsolated(t *testing.T) {
	d := NewDispatcher()

	var delivered []string
	d.Register(SinkFunc("broken", func(_ context.Context, _ *pod.Pod) error {
		return errors.New("connection refused")
	}))
	d.Register(SinkFunc("healthy", func(_ context.Context, _ *pod.Pod) error {
		delivered = append(delivered, "healthy")
		return nil
	}))

	d.Dispatch(context.Background(), &pod.Pod{PodID: "desk-01"})

	if len(delivered) != 1 {
		t.Errorf("healthy sink did not receive snapshot after broken sink failed")
	}
}

func TestDispatch_PanickingSinkIsolated(t *testing.T) {
	d := NewDispatcher()

	var delivered bool
	d.Register(SinkFunc("panicky", func(_ context.Context, _ *pod.Pod) error {
		panic("nil map write")
	}))
	d.Register(SinkFunc("healthy", func(_ context.Context, _ *pod.Pod) error {
		delivered = true
		return nil
	}))

	d.Dispatch(context.Background(), &pod.Pod{PodID: "desk-01"})

	if !delivered {
		t.Error("healthy sink did not receive snapshot after panic in earlier sink")
	}
}

func TestDispatch_SinksGetIndependentCopies(t *testing.T) {
	d := NewDispatcher()

	d.Register(SinkFunc("mutator", func(_ context.Context, p *pod.Pod) error {
		p.Name = "corrupted"
		if p.LastRSSI != nil {
			*p.LastRSSI = 0
		}
		return nil
	}))

	var seen *pod.Pod
	d.Register(SinkFunc("reader", func(_ context.Context, p *pod.Pod) error {
		seen = p
		return nil
	}))

	rssi := -60
	original := &pod.Pod{PodID: "desk-01", Name: "Window desk", LastRSSI: &rssi}
	d.Dispatch(context.Background(), original)

	if original.Name != "Window desk" {
		t.Error("dispatch mutated the caller's pod")
	}
	if seen == nil {
		t.Fatal("reader sink never called")
	}
	if seen.Name != "Window desk" {
		t.Errorf("reader saw %q, mutator leaked into another sink's copy", seen.Name)
	}
	if seen.LastRSSI == nil || *seen.LastRSSI != -60 {
		t.Errorf("reader saw RSSI %v, want -60", seen.LastRSSI)
	}
}

func TestDispatch_NoSinks(t *testing.T) {
	d := NewDispatcher()
	// Must not panic.
	d.Dispatch(context.Background(), &pod.Pod{PodID: "desk-01"})
}
