package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carteret/internal/jwttoken"
	"carteret/internal/listing"
	photostore "carteret/internal/photo/store"
	"carteret/internal/submission"
	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
	"carteret/pkg/platform/httputil"
	"carteret/pkg/requestcontext"
)

const (
	maxSubmissionBytes  = 32 << 20
	maxPhotosPerListing = 10
)

// ListingHandler serves public browsing and the submit flow.
type ListingHandler struct {
	listings     *listing.Service
	photos       photostore.PhotoStore
	orchestrator *submission.Orchestrator
	tokens       *jwttoken.JWTService
	photoBaseURL string
	logger       *slog.Logger
}

func NewListingHandler(listings *listing.Service, photos photostore.PhotoStore,
	orchestrator *submission.Orchestrator, tokens *jwttoken.JWTService,
	photoBaseURL string, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{
		listings:     listings,
		photos:       photos,
		orchestrator: orchestrator,
		tokens:       tokens,
		photoBaseURL: photoBaseURL,
		logger:       logger,
	}
}

// Register mounts the public listing endpoints.
func (h *ListingHandler) Register(r chi.Router) {
	r.Get("/listings", h.HandleBrowse)
	r.Get("/listings/{listingID}", h.HandleGet)
	r.Post("/listings", h.HandleSubmit)
}

// HandleBrowse handles GET /listings?city=&q=.
func (h *ListingHandler) HandleBrowse(w http.ResponseWriter, r *http.Request) {
	listings, err := h.listings.Browse(r.Context(),
		r.URL.Query().Get("city"), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "browse failed",
			"request_id", requestcontext.RequestID(r.Context()), "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"listings": toListingResponses(listings),
	})
}

// HandleGet handles GET /listings/{listingID}. Only active listings are
// visible here; everything else answers 404.
func (h *ListingHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	listingID, err := id.ParseListingID(chi.URLParam(r, "listingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	l, err := h.listings.GetPublic(ctx, listingID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	photos, err := h.photos.ListByListing(ctx, listingID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if len(photos) > maxPhotosPerListing {
		photos = photos[:maxPhotosPerListing]
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"listing": toListingResponse(l),
		"photos":  toPhotoResponses(photos, h.photoBaseURL),
	})
}

type submitListingRequest struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	City         string            `json:"city"`
	AddressLine1 string            `json:"address_line1"`
	Phone        string            `json:"phone"`
	Website      string            `json:"website"`
	Email        string            `json:"email"`
	Hours        map[string]string `json:"hours"`
	Attributes   map[string]bool   `json:"attributes"`
	PriceLevel   int               `json:"price_level"`
	PreparedFor  string            `json:"prepared_for"`
}

func (req *submitListingRequest) toSubmission() (submission.Request, error) {
	out := submission.Request{
		Listing: listing.NewListingInput{
			Name:         req.Name,
			Description:  req.Description,
			City:         req.City,
			AddressLine1: req.AddressLine1,
			Phone:        req.Phone,
			Website:      req.Website,
			Email:        req.Email,
			Hours:        req.Hours,
			Attributes:   req.Attributes,
			PriceLevel:   req.PriceLevel,
		},
	}
	if req.PreparedFor != "" {
		userID, err := id.ParseUserID(req.PreparedFor)
		if err != nil {
			return submission.Request{}, err
		}
		out.PreparedFor = &userID
	}
	return out, nil
}

// HandleSubmit handles POST /listings. Plain JSON submits a listing without
// photos; multipart/form-data carries a "listing" JSON field plus any number
// of "photos" files.
func (h *ListingHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, uploads, ok := h.decodeSubmission(w, r)
	if !ok {
		return
	}

	submitReq, err := req.toSubmission()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	submitReq.Photos = uploads

	token, _ := bearerToken(r)
	result, err := h.orchestrator.Submit(ctx, newRequestProvider(h.tokens, token), submitReq)
	if err != nil {
		if result != nil && result.Listing != nil {
			// The listing was created before the failure and stays pending.
			h.logger.ErrorContext(ctx, "submission failed after listing creation",
				"request_id", requestcontext.RequestID(ctx),
				"listing_id", result.Listing.ID.String(), "error", err)
		} else {
			h.logger.ErrorContext(ctx, "submission failed",
				"request_id", requestcontext.RequestID(ctx), "error", err)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toSubmissionResponse(result, h.photoBaseURL))
}

func (h *ListingHandler) decodeSubmission(w http.ResponseWriter, r *http.Request) (*submitListingRequest, []submission.PhotoUpload, bool) {
	contentType := r.Header.Get("Content-Type")
	if !isMultipart(contentType) {
		req, ok := httputil.Decode[submitListingRequest](w, r, h.logger)
		if !ok {
			return nil, nil, false
		}
		return &req, nil, true
	}

	if err := r.ParseMultipartForm(maxSubmissionBytes); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid multipart body"))
		return nil, nil, false
	}

	var req submitListingRequest
	if err := json.Unmarshal([]byte(r.FormValue("listing")), &req); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid listing field"))
		return nil, nil, false
	}

	var uploads []submission.PhotoUpload
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["photos"] {
			file, err := header.Open()
			if err != nil {
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable photo upload"))
				return nil, nil, false
			}
			uploads = append(uploads, submission.PhotoUpload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        file,
			})
		}
	}
	return &req, uploads, true
}

func isMultipart(contentType string) bool {
	return len(contentType) >= 19 && contentType[:19] == "multipart/form-data"
}
