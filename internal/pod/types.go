package pod

import "time"

// Pod represents the current state of a single occupancy sensor pod.
// This matches the database schema in migrations/20250301_120000_initial_schema.up.sql.
//
// PodID is the external identifier reported by the sensor itself (the final
// segment of its MQTT topic); ID is the internal database key.
type Pod struct {
	// Identity
	ID    int64  `json:"id"`
	PodID string `json:"pod_id"`

	// Presentation. IsActive is owned by the CRUD surface; created as
	// true, never touched by observations.
	Name     string `json:"name"`
	Location string `json:"location"`
	IsActive bool   `json:"is_active"`

	// Latest observation snapshot
	IsOccupied          bool    `json:"is_occupied"`
	LastOccupantID      *string `json:"last_occupant_id,omitempty"`
	LastMmwaveDetection bool    `json:"last_mmwave_detection"`
	LastBleDetection    bool    `json:"last_ble_detection"`
	LastRSSI            *int    `json:"last_rssi,omitempty"`

	// mmWave radar scalars. All optional; a reading that omits them
	// clears the stored values.
	StaticDistance  *float64 `json:"static_distance,omitempty"`
	MotionDistance  *float64 `json:"motion_distance,omitempty"`
	ExistenceEnergy *float64 `json:"existence_energy,omitempty"`
	MotionEnergy    *float64 `json:"motion_energy,omitempty"`
	MotionSpeed     *float64 `json:"motion_speed,omitempty"`
	BodyMovement    *float64 `json:"body_movement,omitempty"`

	// Timestamps
	LastUpdated time.Time `json:"last_updated"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Copy creates an independent copy of the Pod.
// Pointer fields are cloned so modifications to the copy do not
// affect the original.
func (p *Pod) Copy() *Pod {
	if p == nil {
		return nil
	}

	cpy := *p // Shallow copy of value fields

	cpy.LastOccupantID = copyStringPtr(p.LastOccupantID)
	cpy.LastRSSI = copyIntPtr(p.LastRSSI)
	cpy.StaticDistance = copyFloatPtr(p.StaticDistance)
	cpy.MotionDistance = copyFloatPtr(p.MotionDistance)
	cpy.ExistenceEnergy = copyFloatPtr(p.ExistenceEnergy)
	cpy.MotionEnergy = copyFloatPtr(p.MotionEnergy)
	cpy.MotionSpeed = copyFloatPtr(p.MotionSpeed)
	cpy.BodyMovement = copyFloatPtr(p.BodyMovement)

	return &cpy
}

// Observation is a single validated occupancy reading for a pod.
//
// Occupied is the only required field. All other fields are optional and
// absent values are recorded as absent, a reading never merges with the
// previous one.
type Observation struct {
	Occupied       bool    `json:"occupied"`
	OccupantID     *string `json:"occupant_id,omitempty"`
	MmwaveDetected bool    `json:"mmwave_detected"`
	BleDetected    bool    `json:"ble_detected"`
	RSSI           *int    `json:"rssi,omitempty"`

	StaticDistance  *float64 `json:"static_distance,omitempty"`
	MotionDistance  *float64 `json:"motion_distance,omitempty"`
	ExistenceEnergy *float64 `json:"existence_energy,omitempty"`
	MotionEnergy    *float64 `json:"motion_energy,omitempty"`
	MotionSpeed     *float64 `json:"motion_speed,omitempty"`
	BodyMovement    *float64 `json:"body_movement,omitempty"`

	// ObservedAt is the device/event time. Zero means the sensor sent
	// none and processing time is used instead.
	ObservedAt time.Time `json:"observed_at"`

	// Name and Location are only honoured when non-empty. Sensors never
	// send them; they arrive via the HTTP occupancy endpoint.
	Name     string `json:"name,omitempty"`
	Location string `json:"location,omitempty"`
}

// OccupantLog is one row of the append-only observation history.
//
// PodID is the internal database key of the pod; PodExternalID is
// denormalised so history survives even if the pod row is renamed.
type OccupantLog struct {
	ID            int64   `json:"id"`
	PodID         int64   `json:"pod_id"`
	PodExternalID string  `json:"pod_external_id"`
	OccupantID    *string `json:"occupant_id,omitempty"`
	IsOccupied    bool    `json:"is_occupied"`

	MmwaveDetected bool `json:"mmwave_detected"`
	BleDetected    bool `json:"ble_detected"`
	RSSI           *int `json:"rssi,omitempty"`

	StaticDistance  *float64 `json:"static_distance,omitempty"`
	MotionDistance  *float64 `json:"motion_distance,omitempty"`
	ExistenceEnergy *float64 `json:"existence_energy,omitempty"`
	MotionEnergy    *float64 `json:"motion_energy,omitempty"`
	MotionSpeed     *float64 `json:"motion_speed,omitempty"`
	BodyMovement    *float64 `json:"body_movement,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

func copyStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyIntPtr(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

func copyFloatPtr(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
