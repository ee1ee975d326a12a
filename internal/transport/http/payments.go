package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carteret/internal/listing"
	"carteret/internal/platform/secrets"
	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
	"carteret/pkg/platform/httputil"
	"carteret/pkg/requestcontext"
)

// callbackTokenHeader carries the shared secret the payment provider was
// configured with. Only its bcrypt hash is known to this process.
const callbackTokenHeader = "X-Callback-Token"

// PaymentHandler receives the provider's payment confirmation callback.
type PaymentHandler struct {
	listings           *listing.Service
	callbackSecretHash string
	logger             *slog.Logger
}

// NewPaymentHandler builds the callback handler. callbackSecretHash is the
// bcrypt hash of the provider's shared secret; when it is empty the callback
// is disabled and every delivery is refused.
func NewPaymentHandler(listings *listing.Service, callbackSecretHash string, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{listings: listings, callbackSecretHash: callbackSecretHash, logger: logger}
}

// Register mounts the payment callback endpoint.
func (h *PaymentHandler) Register(r chi.Router) {
	r.Post("/payments/confirm", h.HandleConfirm)
}

type confirmPaymentRequest struct {
	ListingID string `json:"listingId"`
}

// HandleConfirm handles POST /payments/confirm. The provider may deliver the
// callback more than once; repeats are acknowledged without effect. The
// delivery must carry the shared callback secret; anything else is refused
// before the listing is touched.
func (h *PaymentHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.verifyCallback(r); err != nil {
		h.logger.WarnContext(ctx, "rejected payment callback",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodePermissionDenied, "not allowed"))
		return
	}

	req, ok := httputil.Decode[confirmPaymentRequest](w, r, h.logger)
	if !ok {
		return
	}

	listingID, err := id.ParseListingID(req.ListingID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.listings.ConfirmPayment(ctx, listingID); err != nil {
		h.logger.ErrorContext(ctx, "payment confirmation failed",
			"request_id", requestcontext.RequestID(ctx),
			"listing_id", listingID.String(), "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *PaymentHandler) verifyCallback(r *http.Request) error {
	if h.callbackSecretHash == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "payment callback is not configured")
	}
	token := r.Header.Get(callbackTokenHeader)
	if token == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "missing callback token")
	}
	return secrets.Verify(token, h.callbackSecretHash)
}
