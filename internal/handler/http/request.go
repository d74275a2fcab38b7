package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/service"
)

// decodeJSON decodes a bounded JSON body into dst or answers 400.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, fn string, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		logger.FromRequest(r).Err(err).Str("func", fn).Msg("Invalid JSON was passed")
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeBodyReadError(w, err)
			return false
		}
		writeCodedError(w, http.StatusBadRequest, service.CodeInvalidRequest, "Invalid JSON was passed")
		return false
	}
	return true
}

// readBody reads a bounded raw body or answers 400/413.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request, fn string) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		logger.FromRequest(r).Err(err).Str("func", fn).Msg("failed to read request body")
		writeBodyReadError(w, err)
		return nil, false
	}
	return data, true
}
