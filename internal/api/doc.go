// Package api implements the HTTP REST API and WebSocket server for tunerwatch.
//
// This package provides:
//   - REST endpoints for device discovery and per-tuner reads
//   - Tuner commands (tune, step, clear, select program, scan)
//   - WebSocket monitoring sessions, one per connected client
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Routes
//
// All routes live under /api/v1:
//
//	GET    /health
//	GET    /metrics
//	GET    /devices?refresh=true
//	GET    /devices/{id}
//	GET    /devices/{id}/scans?limit=20
//	GET    /devices/{id}/tuners/{n}/status
//	GET    /devices/{id}/tuners/{n}/programs
//	GET    /devices/{id}/tuners/{n}/plp
//	GET    /devices/{id}/tuners/{n}/l1
//	PUT    /devices/{id}/tuners/{n}/channel     {"channel": 8, "atsc3": false}
//	DELETE /devices/{id}/tuners/{n}/channel
//	POST   /devices/{id}/tuners/{n}/channel/up
//	POST   /devices/{id}/tuners/{n}/channel/down
//	PUT    /devices/{id}/tuners/{n}/program     {"program": 3}
//	POST   /devices/{id}/tuners/{n}/scan
//	GET    /devices/{id}/tuners/{n}/scan/latest
//	GET    /ws
//
// The scan history routes answer 404 unless a scan store is configured.
//
// # WebSocket
//
// Each connection gets a client id in its welcome message. Sending
// start_monitoring or start_antenna replaces whatever session the client had;
// tuner_status and antenna_status events then arrive as "event" messages.
// Closing the connection stops the session.
//
// # Errors
//
// Tuner failures are reported as 502, invalid tuner or channel numbers as
// 400, and a step on an untuned tuner as 409.
package api
