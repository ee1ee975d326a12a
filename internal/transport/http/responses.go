package http

import (
	"time"

	"carteret/internal/identity"
	"carteret/internal/listing"
	"carteret/internal/photo"
	"carteret/internal/submission"
	"carteret/internal/verification"
)

type listingResponse struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	City         string            `json:"city"`
	AddressLine1 string            `json:"address_line1,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	Website      string            `json:"website,omitempty"`
	Email        string            `json:"email,omitempty"`
	Hours        map[string]string `json:"hours,omitempty"`
	Attributes   map[string]bool   `json:"attributes,omitempty"`
	PriceLevel   int               `json:"price_level"`
	Status       string            `json:"status"`
	Badge        string            `json:"badge"`
	OwnerID      string            `json:"owner_id,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

func toListingResponse(l *listing.Listing) listingResponse {
	resp := listingResponse{
		ID:           l.ID.String(),
		Name:         l.Name,
		Description:  l.Description,
		City:         l.City,
		AddressLine1: l.AddressLine1,
		Phone:        l.Phone,
		Website:      l.Website,
		Email:        l.Email,
		Hours:        l.Hours,
		Attributes:   l.Attributes,
		PriceLevel:   l.PriceLevel,
		Status:       string(l.Status),
		Badge:        string(l.Badge),
		CreatedAt:    l.CreatedAt,
	}
	if l.OwnerID != nil {
		resp.OwnerID = l.OwnerID.String()
	}
	return resp
}

func toListingResponses(listings []*listing.Listing) []listingResponse {
	out := make([]listingResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, toListingResponse(l))
	}
	return out
}

type photoResponse struct {
	ID          string `json:"id"`
	StoragePath string `json:"storage_path"`
	URL         string `json:"url,omitempty"`
	IsPrimary   bool   `json:"is_primary"`
}

func toPhotoResponses(photos []*photo.Photo, baseURL string) []photoResponse {
	out := make([]photoResponse, 0, len(photos))
	for _, p := range photos {
		out = append(out, photoResponse{
			ID:          p.ID.String(),
			StoragePath: p.StoragePath,
			URL:         p.PublicURL(baseURL),
			IsPrimary:   p.IsPrimary,
		})
	}
	return out
}

type submissionResponse struct {
	Listing      listingResponse `json:"listing"`
	Photos       []photoResponse `json:"photos,omitempty"`
	FailedPhotos []string        `json:"failed_photos,omitempty"`
	CheckoutURL  string          `json:"checkout_url,omitempty"`
	Activated    bool            `json:"activated"`
}

func toSubmissionResponse(result *submission.Result, photoBaseURL string) submissionResponse {
	return submissionResponse{
		Listing:      toListingResponse(result.Listing),
		Photos:       toPhotoResponses(result.Photos, photoBaseURL),
		FailedPhotos: result.FailedPhotos,
		CheckoutURL:  result.CheckoutURL,
		Activated:    result.Activated,
	}
}

type verificationResponse struct {
	ID         string     `json:"id"`
	ListingID  string     `json:"listing_id"`
	Requester  string     `json:"requester_id"`
	EntityType string     `json:"entity_type"`
	Notes      string     `json:"notes,omitempty"`
	Status     string     `json:"status"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toVerificationResponse(v *verification.Verification) verificationResponse {
	return verificationResponse{
		ID:         v.ID.String(),
		ListingID:  v.ListingID.String(),
		Requester:  v.RequesterID.String(),
		EntityType: v.EntityType,
		Notes:      v.Notes,
		Status:     string(v.Status),
		ReviewedAt: v.ReviewedAt,
		CreatedAt:  v.CreatedAt,
	}
}

func toVerificationResponses(verifications []*verification.Verification) []verificationResponse {
	out := make([]verificationResponse, 0, len(verifications))
	for _, v := range verifications {
		out = append(out, toVerificationResponse(v))
	}
	return out
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponses(users []*identity.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{
			ID:        u.ID.String(),
			Email:     u.Email,
			FullName:  u.FullName,
			Role:      string(u.Role),
			CreatedAt: u.CreatedAt,
		})
	}
	return out
}
