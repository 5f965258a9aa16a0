// Package logging provides structured logging for the presence service.
//
// It wraps the standard library's log/slog package with service-wide
// defaults: a configurable handler (JSON or text), level filtering, and
// default attributes (service name, version) attached to every record.
//
// Components should derive a scoped logger rather than using the root:
//
//	log := logging.New(cfg.Logging, version)
//	ingestLog := log.With("component", "ingest")
package logging
