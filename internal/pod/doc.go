// Package pod implements occupancy state tracking for sensor pods.
//
// A pod is an ESP32-class device with an mmWave radar and BLE scanner
// that reports occupancy readings over MQTT. This package owns the
// canonical snapshot per pod and the append-only observation history.
//
// # Components
//
//   - Reconcile: pure merge of an observation into a snapshot
//   - Repository / SQLiteRepository: persistence with an atomic
//     find-or-create upsert keyed on the external pod id
//   - Tracker: the observe path (load, reconcile, persist, log)
//
// # Semantics
//
// Observations apply last-write-wins: the newest arrival overwrites the
// snapshot wholesale, including clearing optional fields the reading
// omitted. Arrival order is trusted; there is no timestamp ordering
// check. History appends are best effort and never roll back a snapshot
// update.
package pod
