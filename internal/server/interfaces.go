package server

// Server is a transport the ledger serves on.
type Server interface {
	// RunServer blocks until the transport stops.
	RunServer()

	// Shutdown drains in-flight requests and stops the transport.
	Shutdown()
}
