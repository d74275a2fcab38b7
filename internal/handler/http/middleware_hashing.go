package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/MKhiriev/go-custody-ledger/internal/hashing"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/service"
)

// bodyHashHeader carries the hex SHA-256 of the request body as sent.
const bodyHashHeader = "X-Body-SHA256"

// bodyHashing rejects a request whose body does not match the digest in
// X-Body-SHA256. Requests without the header pass unchecked.
func (h *Handler) bodyHashing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromRequest(r)

		asserted := r.Header.Get(bodyHashHeader)
		if asserted == "" {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
		if err != nil {
			log.Err(err).Str("func", "*Handler.bodyHashing").Msg("failed to read request body")
			writeBodyReadError(w, err)
			return
		}
		// restore request body
		r.Body = io.NopCloser(bytes.NewReader(body))

		computed := hashing.HashBytes(body)
		if !hashing.Matches(asserted, computed) {
			log.Error().Str("func", "*Handler.bodyHashing").
				Str("hash from request", asserted).
				Str("hashed body", computed).
				Msg("hashes are not equal")
			writeCodedError(w, http.StatusBadRequest, service.CodeInvalidRequest, ErrBodyIntegrity.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeBodyReadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeCodedError(w, http.StatusRequestEntityTooLarge, service.CodeInvalidRequest, "request body too large")
		return
	}
	writeCodedError(w, http.StatusBadRequest, service.CodeInvalidRequest, "failed to read request body")
}
