package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/service"
	"github.com/MKhiriev/go-custody-ledger/internal/utils"
	"github.com/MKhiriev/go-custody-ledger/models"
)

// errorStatusMap maps stable error codes to HTTP statuses. State conflicts
// are 409, a failed client hash assertion is 422 and a legal hold is 423.
var errorStatusMap = map[string]int{
	service.CodeHashMismatch:        http.StatusUnprocessableEntity,
	service.CodeOnHold:              http.StatusLocked,
	service.CodePendingBytes:        http.StatusConflict,
	service.CodeNotPending:          http.StatusConflict,
	service.CodeAlreadySealed:       http.StatusConflict,
	service.CodeNotOpen:             http.StatusConflict,
	service.CodeNotSealed:           http.StatusConflict,
	service.CodeChainBroken:         http.StatusConflict,
	service.CodeBatchConflict:       http.StatusConflict,
	service.CodeBundleEmpty:         http.StatusConflict,
	service.CodeBundleItemNotSealed: http.StatusConflict,
	service.CodeConflict:            http.StatusConflict,
	service.CodeNotFound:            http.StatusNotFound,
	service.CodeInvalidRequest:      http.StatusBadRequest,
	service.CodeInvalidItem:         http.StatusBadRequest,
	service.CodeUnauthorized:        http.StatusUnauthorized,
	service.CodeFetchFailed:         http.StatusBadGateway,
}

func statusFromError(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	if status, ok := errorStatusMap[service.ErrorCode(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// writeError reports err as an [models.ErrorResponse]. Internal failures are
// logged in full and answered with the status text only.
func writeError(w http.ResponseWriter, r *http.Request, fn string, err error) {
	log := logger.FromRequest(r)

	status := statusFromError(err)
	resp := models.ErrorResponse{Code: service.ErrorCode(err), Message: err.Error()}
	if status >= http.StatusInternalServerError {
		log.Err(err).Str("func", fn).Int("status", status).Msg("request failed")
		resp.Message = http.StatusText(status)
	} else {
		log.Info().Str("func", fn).Str("code", resp.Code).Str("reason", err.Error()).Msg("request rejected")
	}

	utils.WriteJSON(w, resp, status)
}

// writeCodedError answers with an explicit status and code, for failures
// detected before a service is called.
func writeCodedError(w http.ResponseWriter, status int, code, message string) {
	utils.WriteJSON(w, models.ErrorResponse{Code: code, Message: message}, status)
}
