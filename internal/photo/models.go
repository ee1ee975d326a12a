// Package photo tracks listing photos. The bytes live in object storage;
// rows here map listings to storage paths.
package photo

import (
	"strings"
	"time"

	id "carteret/pkg/domain"
)

// Photo is one stored listing photo.
type Photo struct {
	ID          id.PhotoID
	ListingID   id.ListingID
	StoragePath string
	ContentType string
	IsPrimary   bool
	CreatedAt   time.Time
}

// PublicURL returns the browser-facing URL for the photo, or an empty
// string when no public base is configured.
func (p *Photo) PublicURL(baseURL string) string {
	if baseURL == "" {
		return ""
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + p.StoragePath
}
