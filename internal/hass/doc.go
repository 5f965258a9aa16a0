// Package hass bridges pod occupancy into Home Assistant using MQTT
// discovery.
//
// Every updated snapshot is mirrored as a binary_sensor with
// device_class occupancy, so pods appear in Home Assistant without any
// manual configuration. The adapter plugs into the fanout dispatcher
// as a sink.
package hass
