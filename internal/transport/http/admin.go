package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carteret/internal/admin"
	"carteret/internal/identity"
	"carteret/internal/listing"
	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
	"carteret/pkg/platform/httputil"
	"carteret/pkg/requestcontext"
)

// AdminHandler serves the moderation dashboard and user management. The
// authorization decision itself lives in the services; these handlers only
// translate HTTP.
type AdminHandler struct {
	admin    *admin.Service
	listings *listing.Service
	logger   *slog.Logger
}

func NewAdminHandler(adminSvc *admin.Service, listings *listing.Service, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admin: adminSvc, listings: listings, logger: logger}
}

// Register mounts the admin endpoints.
func (h *AdminHandler) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Get("/dashboard", h.HandleDashboard)
		r.Post("/listings/{listingID}/approve", h.transition(h.listings.Approve))
		r.Post("/listings/{listingID}/reject", h.transition(h.listings.Reject))
		r.Post("/listings/{listingID}/suspend", h.transition(h.listings.Suspend))
		r.Post("/listings/{listingID}/reactivate", h.transition(h.listings.Reactivate))
		r.Delete("/listings/{listingID}", h.HandleDeleteListing)
		r.Put("/users/{userID}/role", h.HandleChangeRole)
		r.Delete("/users/{userID}", h.HandleDeleteUser)
	})
}

// HandleDashboard handles GET /admin/dashboard.
func (h *AdminHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dash, err := h.admin.Dashboard(ctx, IdentityFrom(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"listings":      toListingResponses(dash.Listings),
		"verifications": toVerificationResponses(dash.Verifications),
		"users":         toUserResponses(dash.Users),
	})
}

func (h *AdminHandler) transition(apply func(ctx context.Context, ident *identity.Identity, listingID id.ListingID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		listingID, err := id.ParseListingID(chi.URLParam(r, "listingID"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		if err := apply(ctx, IdentityFrom(ctx), listingID); err != nil {
			h.logger.WarnContext(ctx, "listing transition failed",
				"request_id", requestcontext.RequestID(ctx),
				"listing_id", listingID.String(), "error", err)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// HandleDeleteListing handles DELETE /admin/listings/{listingID}.
func (h *AdminHandler) HandleDeleteListing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	listingID, err := id.ParseListingID(chi.URLParam(r, "listingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.admin.DeleteListing(ctx, IdentityFrom(ctx), listingID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

// HandleChangeRole handles PUT /admin/users/{userID}/role.
func (h *AdminHandler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[changeRoleRequest](w, r, h.logger)
	if !ok {
		return
	}
	role, err := identity.ParseRole(req.Role)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid role"))
		return
	}

	if err := h.admin.ChangeRole(ctx, IdentityFrom(ctx), userID, role); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleDeleteUser handles DELETE /admin/users/{userID}.
func (h *AdminHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.admin.DeleteUser(ctx, IdentityFrom(ctx), userID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
