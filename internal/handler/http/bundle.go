package http

import (
	"net/http"

	"github.com/MKhiriev/go-custody-ledger/internal/artifact"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/internal/service"
	"github.com/MKhiriev/go-custody-ledger/internal/utils"
	"github.com/MKhiriev/go-custody-ledger/models"
	"github.com/go-chi/chi/v5"
)

const manifestHashHeader = "X-Manifest-Hash"

func (h *Handler) createBundle(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req models.CreateBundleRequest
	if !h.decodeJSON(w, r, "*Handler.createBundle", &req) {
		return
	}

	b, err := h.services.BundleService.Create(r.Context(), caller, req)
	if err != nil {
		writeError(w, r, "*Handler.createBundle", err)
		return
	}

	utils.WriteJSON(w, b, http.StatusCreated)
}

func (h *Handler) getBundle(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	b, err := h.services.BundleService.Get(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "*Handler.getBundle", err)
		return
	}

	utils.WriteJSON(w, b, http.StatusOK)
}

func (h *Handler) addBundleItem(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req models.AddBundleItemRequest
	if !h.decodeJSON(w, r, "*Handler.addBundleItem", &req) {
		return
	}
	if req.ObjectID == "" {
		writeCodedError(w, http.StatusBadRequest, service.CodeInvalidRequest, "object_id is required")
		return
	}

	b, err := h.services.BundleService.AddItem(r.Context(), caller, chi.URLParam(r, "id"), req.ObjectID)
	if err != nil {
		writeError(w, r, "*Handler.addBundleItem", err)
		return
	}

	utils.WriteJSON(w, b, http.StatusOK)
}

func (h *Handler) removeBundleItem(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	b, err := h.services.BundleService.RemoveItem(r.Context(), caller, chi.URLParam(r, "id"), chi.URLParam(r, "objectID"))
	if err != nil {
		writeError(w, r, "*Handler.removeBundleItem", err)
		return
	}

	utils.WriteJSON(w, b, http.StatusOK)
}

func (h *Handler) sealBundle(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	bundleID := chi.URLParam(r, "id")
	manifestHash, err := h.services.BundleService.Seal(r.Context(), caller, bundleID)
	if err != nil {
		writeError(w, r, "*Handler.sealBundle", err)
		return
	}

	utils.WriteJSON(w, models.SealBundleResponse{BundleID: bundleID, ManifestHash: manifestHash}, http.StatusOK)
}

// exportBundle streams the artifact bytes. The manifest hash and the blob
// pointer of the stored copy travel in headers.
func (h *Handler) exportBundle(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	res, err := h.services.BundleService.Export(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "*Handler.exportBundle", err)
		return
	}

	w.Header().Set("Content-Type", artifact.MediaType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+res.BundleID+`.cbor.zst"`)
	w.Header().Set(manifestHashHeader, res.ManifestHash)
	w.Header().Set("X-Artifact-Pointer", res.Pointer)
	w.WriteHeader(http.StatusOK)
	if _, err = w.Write(res.Data); err != nil {
		logger.FromRequest(r).Err(err).Str("func", "*Handler.exportBundle").Msg("failed to write artifact")
	}
}

func (h *Handler) verifyBundle(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	res, err := h.services.VerifyService.VerifyBundle(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "*Handler.verifyBundle", err)
		return
	}

	utils.WriteJSON(w, res, http.StatusOK)
}

// verifyArtifact checks uploaded export bytes without touching storage.
func (h *Handler) verifyArtifact(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerFrom(w, r); !ok {
		return
	}

	data, ok := h.readBody(w, r, "*Handler.verifyArtifact")
	if !ok {
		return
	}

	res, err := h.services.VerifyService.VerifyArtifact(r.Context(), data)
	if err != nil {
		writeError(w, r, "*Handler.verifyArtifact", err)
		return
	}

	utils.WriteJSON(w, res, http.StatusOK)
}
