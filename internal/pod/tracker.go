package pod

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Logger defines the logging interface used by the Tracker.
// This allows different logging implementations to be used.
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

// Tracker is the occupancy state service. It owns the observe path:
// load the prior snapshot, reconcile the observation into it, persist
// the result, and append the history row.
//
// History is best effort. A failed log append is logged and swallowed;
// the pod snapshot update always wins.
//
// All public methods are thread-safe.
type Tracker struct {
	repo   Repository
	logger Logger
	now    func() time.Time
}

// NewTracker creates a new occupancy tracker backed by the given repository.
func NewTracker(repo Repository) *Tracker {
	return &Tracker{
		repo:   repo,
		logger: noopLogger{},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetLogger sets the logger for the tracker.
func (t *Tracker) SetLogger(logger Logger) {
	t.logger = logger
}

// Observe processes one validated occupancy reading for a pod.
//
// The pod is created on first observation with default name and location.
// The returned pod is the persisted snapshot including the database ID.
//
// Returns:
//   - *Pod: The updated snapshot (nil on error)
//   - error: If loading the prior state or persisting the snapshot fails.
//     A failed history append is NOT an error; it is logged and the
//     updated snapshot is still returned.
func (t *Tracker) Observe(ctx context.Context, podID string, obs Observation) (*Pod, error) {
	if podID == "" {
		return nil, ErrInvalidPodID
	}

	prior, err := t.repo.GetByPodID(ctx, podID)
	if err != nil && !errors.Is(err, ErrPodNotFound) {
		return nil, fmt.Errorf("loading pod %s: %w", podID, err)
	}

	next, log := Reconcile(podID, obs, prior, t.now())

	updated, err := t.repo.Upsert(ctx, &next)
	if err != nil {
		return nil, fmt.Errorf("persisting pod %s: %w", podID, err)
	}

	// Append history with the resolved internal key. The snapshot update
	// already succeeded, so a failure here must not surface to the caller.
	log.PodID = updated.ID
	if err := t.repo.AppendLog(ctx, &log); err != nil {
		t.logger.Error("occupancy log append failed, pod state was updated",
			"pod_id", podID,
			"error", err,
		)
	}

	t.logger.Debug("observation processed",
		"pod_id", podID,
		"occupied", obs.Occupied,
	)

	return updated, nil
}

// UpdateDetails changes a pod's display name, location, and active flag.
//
// Empty name/location are left unchanged; there is no way to blank a
// name or location once set. A nil active leaves the flag untouched.
// Returns ErrPodNotFound for unknown pods.
func (t *Tracker) UpdateDetails(ctx context.Context, podID, name, location string, active *bool) (*Pod, error) {
	if podID == "" {
		return nil, ErrInvalidPodID
	}

	p, err := t.repo.GetByPodID(ctx, podID)
	if err != nil {
		return nil, err
	}

	if name != "" {
		p.Name = name
	}
	if location != "" {
		p.Location = location
	}
	if active != nil {
		p.IsActive = *active
	}
	p.UpdatedAt = t.now()

	updated, err := t.repo.Upsert(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("updating pod %s: %w", podID, err)
	}

	t.logger.Info("pod details updated",
		"pod_id", podID,
		"name", updated.Name,
		"location", updated.Location,
		"active", updated.IsActive,
	)

	return updated, nil
}

// Get retrieves a pod by its external identifier.
// Returns ErrPodNotFound if the pod does not exist.
func (t *Tracker) Get(ctx context.Context, podID string) (*Pod, error) {
	if podID == "" {
		return nil, ErrInvalidPodID
	}
	return t.repo.GetByPodID(ctx, podID)
}

// List retrieves all known pods ordered by external identifier.
func (t *Tracker) List(ctx context.Context) ([]Pod, error) {
	return t.repo.List(ctx)
}

// RecentLogs retrieves the newest history entries for a pod, newest first.
// A limit of 0 applies the repository default.
func (t *Tracker) RecentLogs(ctx context.Context, podID string, limit int) ([]OccupantLog, error) {
	if podID == "" {
		return nil, ErrInvalidPodID
	}
	return t.repo.RecentLogs(ctx, podID, limit)
}
