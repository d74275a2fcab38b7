package http

import (
	"net/http"

	"github.com/MKhiriev/go-custody-ledger/internal/service"
	"github.com/MKhiriev/go-custody-ledger/internal/utils"
	"github.com/MKhiriev/go-custody-ledger/models"
	"github.com/go-chi/chi/v5"
)

// contentHashHeader carries the client's asserted content hash on byte
// uploads.
const contentHashHeader = "X-Content-SHA256"

func (h *Handler) createEvidence(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var body models.CreateEvidenceRequest
	if !h.decodeJSON(w, r, "*Handler.createEvidence", &body) {
		return
	}
	req, valid := body.ToCreateRequest()
	if !valid {
		writeCodedError(w, http.StatusBadRequest, service.CodeInvalidRequest, "unknown source kind")
		return
	}

	obj, err := h.services.EvidenceService.Create(r.Context(), caller, req)
	if err != nil {
		writeError(w, r, "*Handler.createEvidence", err)
		return
	}

	utils.WriteJSON(w, obj, http.StatusCreated)
}

func (h *Handler) getEvidence(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	obj, err := h.services.EvidenceService.Get(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "*Handler.getEvidence", err)
		return
	}

	utils.WriteJSON(w, obj, http.StatusOK)
}

// uploadBytes completes a pending object with the raw request body. An
// X-Content-SHA256 header is checked against the computed content hash.
func (h *Handler) uploadBytes(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	data, ok := h.readBody(w, r, "*Handler.uploadBytes")
	if !ok {
		return
	}

	var clientHash *string
	if asserted := r.Header.Get(contentHashHeader); asserted != "" {
		clientHash = &asserted
	}

	obj, err := h.services.EvidenceService.CompleteBytes(r.Context(), caller, chi.URLParam(r, "id"), data, clientHash)
	if err != nil {
		writeError(w, r, "*Handler.uploadBytes", err)
		return
	}

	utils.WriteJSON(w, obj, http.StatusOK)
}

func (h *Handler) fetchDocument(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	obj, err := h.services.EvidenceService.FetchDocument(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "*Handler.fetchDocument", err)
		return
	}

	utils.WriteJSON(w, obj, http.StatusOK)
}

func (h *Handler) sealEvidence(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	obj, err := h.services.EvidenceService.Seal(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "*Handler.sealEvidence", err)
		return
	}

	utils.WriteJSON(w, obj, http.StatusOK)
}

func (h *Handler) supersedeEvidence(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req models.SupersedeRequest
	if !h.decodeJSON(w, r, "*Handler.supersedeEvidence", &req) {
		return
	}

	obj, err := h.services.EvidenceService.Supersede(r.Context(), caller, chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, "*Handler.supersedeEvidence", err)
		return
	}

	utils.WriteJSON(w, obj, http.StatusOK)
}

func (h *Handler) revokeEvidence(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req models.RevokeRequest
	if !h.decodeJSON(w, r, "*Handler.revokeEvidence", &req) {
		return
	}

	obj, err := h.services.EvidenceService.Revoke(r.Context(), caller, chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, "*Handler.revokeEvidence", err)
		return
	}

	utils.WriteJSON(w, obj, http.StatusOK)
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	objectID := chi.URLParam(r, "id")
	events, err := h.services.EvidenceService.Events(r.Context(), caller, objectID)
	if err != nil {
		writeError(w, r, "*Handler.listEvents", err)
		return
	}

	utils.WriteJSON(w, models.EventsResponse{
		ObjectID: objectID,
		Events:   events,
		Length:   len(events),
	}, http.StatusOK)
}

// verifyEvidence answers 200 with the report whether or not the chain
// verifies.
func (h *Handler) verifyEvidence(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	res, err := h.services.VerifyService.VerifyObject(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "*Handler.verifyEvidence", err)
		return
	}

	utils.WriteJSON(w, res, http.StatusOK)
}
