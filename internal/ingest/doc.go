// Package ingest consumes pod telemetry from MQTT and feeds the
// occupancy tracker.
//
// One pipeline subscribes to <topic_prefix>/# and processes every
// reading: the external pod id comes from the final topic segment
// (overridable by a pod_id payload field), the payload is validated
// (occupied must be a JSON boolean), and the resulting observation is
// applied and fanned out. A malformed message is logged and dropped
// without affecting the subscription.
package ingest
