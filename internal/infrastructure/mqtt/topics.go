package mqtt

import "fmt"

// Topic prefixes for the presence service.
//
// Sensor pods publish telemetry under presence/pod/{pod_id}. The service
// itself publishes lifecycle status under presence/system.
const (
	// TopicPrefixPods is the base for pod telemetry topics.
	TopicPrefixPods = "presence/pod"

	// TopicPrefixSystem is the base for service lifecycle topics.
	TopicPrefixSystem = "presence/system"
)

// Topics provides builders for presence MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.Pod("desk-01")
//	// Returns: "presence/pod/desk-01"
type Topics struct{}

// Pod returns the telemetry topic for a specific pod.
//
// Example: presence/pod/desk-01
func (Topics) Pod(podID string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixPods, podID)
}

// AllPods returns a pattern matching all pod telemetry on the default prefix.
//
// Pattern: presence/pod/#
func (Topics) AllPods() string {
	return fmt.Sprintf("%s/#", TopicPrefixPods)
}

// PodsWildcard returns a pattern matching all pod telemetry under a
// configured prefix. The ingest pipeline uses this with the prefix from
// config, which defaults to TopicPrefixPods.
func (Topics) PodsWildcard(prefix string) string {
	return fmt.Sprintf("%s/#", prefix)
}

// SystemStatus returns the service status topic.
// Online, offline, and LWT payloads are all published here, retained.
//
// Example: presence/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
