package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/inkstore/internal/domain/product"
)

type downloadResponse struct {
	URL string `json:"url"`
}

// Download issues a short-lived signed URL for a product file, provided the
// user holds a download entitlement for the file's product. Each issued link
// is counted against the entitlement.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	fileID := r.PathValue("fileID")
	if fileID == "" {
		respondError(w, http.StatusBadRequest, "file id required")
		return
	}

	f, err := h.products.GetFileByID(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondError(w, http.StatusNotFound, "file not found")
			return
		}
		respondInternal(w, r, err)
		return
	}

	owned, err := h.access.Exists(r.Context(), id.UserID, f.ProductID)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	if !owned {
		respondError(w, http.StatusForbidden, "no download access for this product")
		return
	}

	url, err := h.files.SignURL(f.Path, h.now().Add(h.cfg.DownloadTTL))
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	// Counting is bookkeeping; the user still gets the link if it fails.
	if err := h.access.RecordDownload(r.Context(), id.UserID, f.ProductID); err != nil {
		zctx.From(r.Context()).Error("record download failed", zap.Error(err))
	}

	respondJSON(w, http.StatusOK, downloadResponse{URL: url})
}
