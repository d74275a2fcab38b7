package adapter

import "errors"

// Errors mapped from HTTP status codes of the ledger server and the hold
// service.
var (
	ErrBadRequest          = errors.New("bad request")
	ErrUnauthorized        = errors.New("client unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrUnprocessable       = errors.New("unprocessable entity")
	ErrLocked              = errors.New("locked")
	ErrBadGateway          = errors.New("bad gateway")
	ErrInternalServerError = errors.New("internal server error")
)

// Fetcher errors.
var (
	// ErrFetchStatus is returned when the source answers with a non-2xx status.
	ErrFetchStatus = errors.New("document source returned an error status")
	// ErrFetchTooLarge is returned when the body exceeds the configured cap.
	ErrFetchTooLarge = errors.New("document exceeds the fetch size limit")
	// ErrInvalidURL is returned for URLs that are not absolute http(s) URLs.
	ErrInvalidURL = errors.New("invalid document url")
)

// ErrHoldUnavailable is returned when the hold service cannot answer.
var ErrHoldUnavailable = errors.New("hold service unavailable")
