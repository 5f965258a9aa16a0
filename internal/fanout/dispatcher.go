package fanout

import (
	"context"

	"github.com/Jmi2020/Presence-Sensor/internal/pod"
)

// Logger defines the logging interface used by the Dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Sink receives updated pod snapshots. Implementations must tolerate
// being called concurrently for different pods.
type Sink interface {
	// Name identifies the sink in logs.
	Name() string

	// Send delivers one snapshot. Errors are logged by the dispatcher
	// and never affect other sinks.
	Send(ctx context.Context, p *pod.Pod) error
}

// sinkFunc adapts a plain function to the Sink interface.
type sinkFunc struct {
	name string
	fn   func(ctx context.Context, p *pod.Pod) error
}

func (s sinkFunc) Name() string { return s.name }

func (s sinkFunc) Send(ctx context.Context, p *pod.Pod) error { return s.fn(ctx, p) }

// SinkFunc wraps a function as a named Sink.
func SinkFunc(name string, fn func(ctx context.Context, p *pod.Pod) error) Sink {
	return sinkFunc{name: name, fn: fn}
}

// Dispatcher delivers updated snapshots to every registered sink.
//
// Sinks are isolated from each other: an error or panic in one sink is
// logged and the remaining sinks still receive the snapshot. Delivery
// order follows registration order.
type Dispatcher struct {
	sinks  []Sink
	logger Logger
}

// NewDispatcher creates a dispatcher with no sinks.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{logger: noopLogger{}}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// Register adds a sink. Not safe to call after Dispatch is in use;
// register everything during startup.
func (d *Dispatcher) Register(s Sink) {
	d.sinks = append(d.sinks, s)
}

// Dispatch sends the snapshot to every sink in registration order.
// Each sink receives its own copy so one sink cannot corrupt another's
// view of the pod.
func (d *Dispatcher) Dispatch(ctx context.Context, p *pod.Pod) {
	for _, sink := range d.sinks {
		d.send(ctx, sink, p.Copy())
	}
}

// send delivers to one sink with panic absorption.
func (d *Dispatcher) send(ctx context.Context, sink Sink, p *pod.Pod) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("sink panic recovered",
				"sink", sink.Name(),
				"pod_id", p.PodID,
				"panic", r,
			)
		}
	}()

	if err := sink.Send(ctx, p); err != nil {
		d.logger.Warn("sink delivery failed",
			"sink", sink.Name(),
			"pod_id", p.PodID,
			"error", err,
		)
		return
	}

	d.logger.Debug("snapshot delivered",
		"sink", sink.Name(),
		"pod_id", p.PodID,
	)
}
