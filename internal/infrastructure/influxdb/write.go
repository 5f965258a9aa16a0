package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/Jmi2020/Presence-Sensor/internal/pod"
)

// WriteObservation writes a pod occupancy snapshot to InfluxDB.
//
// This is the primary method for recording occupancy history.
// The write is non-blocking; data is batched and sent asynchronously.
// The point is timestamped with the pod's last update time so delayed
// readings land at their observation time rather than their arrival time.
//
// Example:
//
//	client.WriteObservation(p)
func (c *Client) WriteObservation(p *pod.Pod) {
	if !c.IsConnected() || p == nil {
		return
	}

	fields := map[string]interface{}{
		"occupied":         boolField(p.IsOccupied),
		"mmwave_detection": boolField(p.LastMmwaveDetection),
		"ble_detection":    boolField(p.LastBleDetection),
	}
	if p.LastRSSI != nil {
		fields["rssi"] = *p.LastRSSI
	}
	if p.LastOccupantID != nil {
		fields["occupant_id"] = *p.LastOccupantID
	}
	addFloatField(fields, "static_distance", p.StaticDistance)
	addFloatField(fields, "motion_distance", p.MotionDistance)
	addFloatField(fields, "existence_energy", p.ExistenceEnergy)
	addFloatField(fields, "motion_energy", p.MotionEnergy)
	addFloatField(fields, "motion_speed", p.MotionSpeed)
	addFloatField(fields, "body_movement", p.BodyMovement)

	point := write.NewPoint(
		"occupancy",
		map[string]string{
			"pod_id": p.PodID,
		},
		fields,
		p.LastUpdated,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit WriteObservation, such as
// service-level stats.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// boolField maps a bool onto 0/1 so occupancy can be graphed and
// aggregated as a numeric series.
func boolField(v bool) int {
	if v {
		return 1
	}
	return 0
}

func addFloatField(fields map[string]interface{}, name string, v *float64) {
	if v != nil {
		fields[name] = *v
	}
}
