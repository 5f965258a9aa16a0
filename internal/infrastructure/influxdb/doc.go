// Package influxdb provides InfluxDB connectivity for occupancy history.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, observation writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series storage for pod occupancy snapshots.
// SQLite holds the current state and a bounded recent history; InfluxDB
// holds the long-tail series for dashboards and retention policies.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8086",
//	    Token:   "your-token",
//	    Org:     "presence",
//	    Bucket:  "occupancy",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteObservation(p)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size,
// flush_interval). This reduces network overhead when many pods report
// at high frequency.
package influxdb
