// Package server runs the ledger's transports: the HTTP API and the gRPC
// health endpoint. It starts every configured transport and shuts all of them
// down on SIGINT, SIGTERM or SIGQUIT.
package server
