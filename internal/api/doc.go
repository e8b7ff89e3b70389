// Package api implements the HTTP REST API and live reading stream for
// sensorhub.
//
// This package provides:
//   - account endpoints (register, password recovery, password change, login)
//   - reading endpoints (list, ingest, clear) and the availability switch
//   - a WebSocket hub that pushes stored readings to connected clients
//   - the audit log query for administrators
//   - the middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Wire format
//
// Route paths, JSON field names and client messages keep the names existing
// sensor clients already use (/dados-sensores, temperatura, "Acesso negado").
// Failures are always a JSON Error body.
//
// # Security
//
// Session tokens travel as the second word of the Authorization header.
// WebSocket connections authenticate with a single-use ticket obtained from
// POST /stream/ticket so the session token never appears in a URL.
package api
