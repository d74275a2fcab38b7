// Package http serves the custody ledger REST API under /api/v1.
//
// Requests pass through trace id, access log, gzip, body hashing and bearer
// authentication middleware before reaching the evidence, bundle, batch and
// verification handlers. Service errors are mapped to status codes and the
// {"code","message"} error body in errors_mapper.go.
package http
