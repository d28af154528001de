package httptransport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	rollmodels "parrainage/internal/rollimport/models"
	importservice "parrainage/internal/rollimport/service"
	id "parrainage/pkg/domain"
	dErrors "parrainage/pkg/domain-errors"
	"parrainage/pkg/platform/httputil"
	"parrainage/pkg/requestcontext"
)

const (
	HeaderChecksum = "X-Checksum"
	HeaderEncoding = "X-Encoding"
	HeaderBatchID  = "X-Batch-ID"
)

// ImportService is the roll import pipeline as seen by the adapter.
type ImportService interface {
	StageImportBatch(ctx context.Context, cmd importservice.StageCommand) (*rollmodels.StageResult, error)
	PromoteImportBatch(ctx context.Context, batchID id.BatchID) (*rollmodels.Batch, error)
	RejectImportBatch(ctx context.Context, batchID id.BatchID) (*rollmodels.Batch, error)
	GetBatch(ctx context.Context, batchID id.BatchID) (*rollmodels.Batch, error)
	ListAttempts(ctx context.Context, uploadedBy string) ([]*rollmodels.ImportAttempt, error)
}

type attemptsResponse struct {
	Attempts []*rollmodels.ImportAttempt `json:"attempts"`
}

// handleStageImport reads the raw CSV body. A batch rejected at row
// validation answers 422 with its row errors; a batch rejected at a gate
// answers with the gate error and the batch id in X-Batch-ID.
func (h *Handler) handleStageImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
		} else {
			err = dErrors.Wrap(err, dErrors.CodeBadRequest, "could not read upload")
		}
		h.fail(ctx, w, "stage_import", err)
		return
	}
	if len(raw) == 0 {
		h.fail(ctx, w, "stage_import", dErrors.New(dErrors.CodeBadRequest, "upload is empty"))
		return
	}

	res, err := h.svc.Imports.StageImportBatch(ctx, importservice.StageCommand{
		Raw:        raw,
		Checksum:   r.Header.Get(HeaderChecksum),
		Encoding:   r.Header.Get(HeaderEncoding),
		UploadedBy: requestcontext.CallerID(ctx).String(),
	})
	if res != nil {
		w.Header().Set(HeaderBatchID, res.BatchID.String())
	}
	if err != nil {
		h.fail(ctx, w, "stage_import", err)
		return
	}
	if res.State == rollmodels.BatchRejected {
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	h.withBatch(w, r, "get_batch", h.svc.Imports.GetBatch)
}

func (h *Handler) handlePromoteImport(w http.ResponseWriter, r *http.Request) {
	h.withBatch(w, r, "promote_import", h.svc.Imports.PromoteImportBatch)
}

func (h *Handler) handleRejectImport(w http.ResponseWriter, r *http.Request) {
	h.withBatch(w, r, "reject_import", h.svc.Imports.RejectImportBatch)
}

func (h *Handler) withBatch(w http.ResponseWriter, r *http.Request, op string,
	call func(context.Context, id.BatchID) (*rollmodels.Batch, error)) {
	ctx := r.Context()
	batchID, err := id.ParseBatchID(pathParam(r, "batchID"))
	if err != nil {
		h.fail(ctx, w, op, err)
		return
	}
	batch, err := call(ctx, batchID)
	if err != nil {
		h.fail(ctx, w, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, batch)
}

// handleListAttempts lists upload attempts of ?uploaded_by, defaulting to the caller.
func (h *Handler) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uploadedBy := r.URL.Query().Get("uploaded_by")
	if uploadedBy == "" {
		uploadedBy = requestcontext.CallerID(ctx).String()
	}
	attempts, err := h.svc.Imports.ListAttempts(ctx, uploadedBy)
	if err != nil {
		h.fail(ctx, w, "list_attempts", err)
		return
	}
	if attempts == nil {
		attempts = []*rollmodels.ImportAttempt{}
	}
	httputil.WriteJSON(w, http.StatusOK, attemptsResponse{Attempts: attempts})
}
