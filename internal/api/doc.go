// Package api implements the HTTP REST API and WebSocket server.
//
// This package provides:
//   - REST endpoints for pod state, occupancy history, and metadata
//   - An occupancy submission endpoint that feeds the same observe and
//     fanout path as MQTT ingestion
//   - WebSocket hub for real-time pod update broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The API server sits between user interfaces (dashboards, admin tools)
// and the pod tracker. Reads come straight from SQLite via the tracker;
// occupancy submissions run through the tracker and dispatcher so HTTP
// and MQTT observations are indistinguishable downstream. Every accepted
// observation is broadcast to all connected WebSocket clients as a
// podUpdate event.
//
// # Graceful Degradation
//
// The server operates without a dispatcher. Reads and WebSocket
// connections work; HTTP-submitted observations are stored but not
// fanned out.
package api
