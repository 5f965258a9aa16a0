package pod

import (
	"fmt"
	"time"
)

// Default presentation values applied when a pod is first observed.
const (
	// DefaultLocation is assigned to newly discovered pods until an
	// operator sets a real one.
	DefaultLocation = "Unknown"
)

// DefaultName returns the display name assigned to a newly discovered pod.
//
// Example: "Pod desk-01"
func DefaultName(podID string) string {
	return fmt.Sprintf("Pod %s", podID)
}

// Reconcile merges an observation into a pod snapshot.
//
// It is a pure function: prior is never mutated, and the returned Pod and
// OccupantLog are fully derived from the inputs. Persistence and fanout are
// the Tracker's job.
//
// Semantics:
//   - If prior is nil the pod is being discovered; defaults apply for name
//     ("Pod <id>") and location ("Unknown") unless the observation carries
//     non-empty values.
//   - Snapshot fields are overwritten wholesale (last write wins). Optional
//     fields absent from the observation clear the stored values rather
//     than keeping the old ones.
//   - Name and location are only overwritten when the observation supplies
//     non-empty values.
//   - The observation's event time stamps LastUpdated and the log entry,
//     falling back to now when the sensor sends none.
//   - The active flag is owned by the CRUD surface; observations never
//     touch it.
//   - There is no ordering check: a late or retransmitted reading
//     overwrites newer state. Sensors have no reliable clock, so the
//     service treats arrival order as truth.
//
// The returned OccupantLog carries the same snapshot for the history
// table. Its PodID is zero until the Tracker resolves the internal key
// after the upsert.
func Reconcile(podID string, obs Observation, prior *Pod, now time.Time) (Pod, OccupantLog) {
	var p Pod
	if prior != nil {
		p = *prior.Copy()
	} else {
		p.PodID = podID
		p.Name = DefaultName(podID)
		p.Location = DefaultLocation
		p.IsActive = true
		p.CreatedAt = now
	}

	// Event time falls back to processing time when the sensor sends none.
	observedAt := obs.ObservedAt
	if observedAt.IsZero() {
		observedAt = now
	}

	if obs.Name != "" {
		p.Name = obs.Name
	}
	if obs.Location != "" {
		p.Location = obs.Location
	}

	p.IsOccupied = obs.Occupied
	p.LastOccupantID = copyStringPtr(obs.OccupantID)
	p.LastMmwaveDetection = obs.MmwaveDetected
	p.LastBleDetection = obs.BleDetected
	p.LastRSSI = copyIntPtr(obs.RSSI)
	p.StaticDistance = copyFloatPtr(obs.StaticDistance)
	p.MotionDistance = copyFloatPtr(obs.MotionDistance)
	p.ExistenceEnergy = copyFloatPtr(obs.ExistenceEnergy)
	p.MotionEnergy = copyFloatPtr(obs.MotionEnergy)
	p.MotionSpeed = copyFloatPtr(obs.MotionSpeed)
	p.BodyMovement = copyFloatPtr(obs.BodyMovement)
	p.LastUpdated = observedAt
	p.UpdatedAt = now

	log := OccupantLog{
		PodExternalID:   podID,
		OccupantID:      copyStringPtr(obs.OccupantID),
		IsOccupied:      obs.Occupied,
		MmwaveDetected:  obs.MmwaveDetected,
		BleDetected:     obs.BleDetected,
		RSSI:            copyIntPtr(obs.RSSI),
		StaticDistance:  copyFloatPtr(obs.StaticDistance),
		MotionDistance:  copyFloatPtr(obs.MotionDistance),
		ExistenceEnergy: copyFloatPtr(obs.ExistenceEnergy),
		MotionEnergy:    copyFloatPtr(obs.MotionEnergy),
		MotionSpeed:     copyFloatPtr(obs.MotionSpeed),
		BodyMovement:    copyFloatPtr(obs.BodyMovement),
		Timestamp:       observedAt,
	}

	return p, log
}
