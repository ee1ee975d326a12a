package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carteret/internal/verification"
	id "carteret/pkg/domain"
	"carteret/pkg/platform/httputil"
	"carteret/pkg/requestcontext"
)

// VerificationHandler serves verification submission and review.
type VerificationHandler struct {
	verifications *verification.Service
	logger        *slog.Logger
}

func NewVerificationHandler(verifications *verification.Service, logger *slog.Logger) *VerificationHandler {
	return &VerificationHandler{verifications: verifications, logger: logger}
}

// Register mounts the verification endpoints.
func (h *VerificationHandler) Register(r chi.Router) {
	r.Post("/verifications", h.HandleSubmit)
	r.Post("/verifications/{verificationID}/approve", h.HandleApprove)
	r.Post("/verifications/{verificationID}/reject", h.HandleReject)
}

type submitVerificationRequest struct {
	ListingID     string   `json:"listing_id"`
	EntityType    string   `json:"entity_type"`
	Notes         string   `json:"notes"`
	DocumentPaths []string `json:"document_paths"`
}

// HandleSubmit handles POST /verifications.
func (h *VerificationHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[submitVerificationRequest](w, r, h.logger)
	if !ok {
		return
	}

	listingID, err := id.ParseListingID(req.ListingID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	v, err := h.verifications.Submit(ctx, IdentityFrom(ctx), verification.SubmitInput{
		ListingID:     listingID,
		EntityType:    req.EntityType,
		Notes:         req.Notes,
		DocumentPaths: req.DocumentPaths,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "verification submit failed",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toVerificationResponse(v))
}

// HandleApprove handles POST /verifications/{verificationID}/approve.
func (h *VerificationHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(verificationID id.VerificationID) error {
		return h.verifications.Approve(r.Context(), IdentityFrom(r.Context()), verificationID)
	})
}

type rejectVerificationRequest struct {
	Notes string `json:"notes"`
}

// HandleReject handles POST /verifications/{verificationID}/reject.
func (h *VerificationHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	var notes string
	if r.ContentLength > 0 {
		req, ok := httputil.Decode[rejectVerificationRequest](w, r, h.logger)
		if !ok {
			return
		}
		notes = req.Notes
	}
	h.decide(w, r, func(verificationID id.VerificationID) error {
		return h.verifications.Reject(r.Context(), IdentityFrom(r.Context()), verificationID, notes)
	})
}

func (h *VerificationHandler) decide(w http.ResponseWriter, r *http.Request, decide func(id.VerificationID) error) {
	verificationID, err := id.ParseVerificationID(chi.URLParam(r, "verificationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := decide(verificationID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
