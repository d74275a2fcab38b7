package http

import (
	"net/http"

	"github.com/MKhiriev/go-custody-ledger/internal/utils"
	"github.com/MKhiriev/go-custody-ledger/models"
)

// submitBatch ingests an offline batch. A replay answers with the recorded
// item results, byte for byte.
func (h *Handler) submitBatch(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var batch models.OfflineBatch
	if !h.decodeJSON(w, r, "*Handler.submitBatch", &batch) {
		return
	}

	res, err := h.services.ReconcileService.IngestBatch(r.Context(), caller, batch)
	if err != nil {
		writeError(w, r, "*Handler.submitBatch", err)
		return
	}

	utils.WriteJSON(w, res, http.StatusOK)
}
