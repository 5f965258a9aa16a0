// Package fanout delivers updated pod snapshots to downstream consumers.
//
// Consumers register as sinks (websocket hub, Home Assistant bridge,
// InfluxDB mirror). Delivery is best effort and isolated per sink; a
// slow, failing, or panicking sink never blocks the others or the
// ingest path.
package fanout
