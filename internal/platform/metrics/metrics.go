// Package metrics registers the process-wide Prometheus collectors. Feature
// packages receive this struct and increment what they own.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RoleRecordsCreated  prometheus.Counter
	IdentityResolutions *prometheus.CounterVec
	ListingsCreated     prometheus.Counter
	ListingTransitions  *prometheus.CounterVec
	VerificationReviews *prometheus.CounterVec
	CheckoutFailures    prometheus.Counter
	PhotoUploadRetries  prometheus.Counter
	AuthorizationDenied prometheus.Counter
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on the given registry. Tests pass a fresh
// registry so construction stays idempotent within one binary.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RoleRecordsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "carteret_role_records_created_total",
			Help: "Total number of role records created on first sign-in",
		}),
		IdentityResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "carteret_identity_resolutions_total",
			Help: "Identity resolutions by outcome (resolved, absent, degraded, discarded)",
		}, []string{"outcome"}),
		ListingsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "carteret_listings_created_total",
			Help: "Total number of listings created through the submission flow",
		}),
		ListingTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "carteret_listing_transitions_total",
			Help: "Listing status transitions by edge (from, to)",
		}, []string{"from", "to"}),
		VerificationReviews: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "carteret_verification_reviews_total",
			Help: "Verification request decisions by outcome",
		}, []string{"decision"}),
		CheckoutFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "carteret_checkout_failures_total",
			Help: "Failed checkout-session creations (listing left pending)",
		}),
		PhotoUploadRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "carteret_photo_upload_retries_total",
			Help: "Photo uploads retried after a storage path collision",
		}),
		AuthorizationDenied: factory.NewCounter(prometheus.CounterOpts{
			Name: "carteret_authorization_denied_total",
			Help: "Privileged actions rejected by the moderation gate",
		}),
	}
}
