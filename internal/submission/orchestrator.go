// Package submission stitches the full submit flow together: re-validate the
// caller, create the listing, upload photos, then collect the listing fee.
// The guiding rule is that a created listing is never rolled back; pending is
// the safe default, and a later failure surfaces without undoing the listing.
package submission

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"carteret/internal/identity"
	"carteret/internal/listing"
	"carteret/internal/objectstore"
	"carteret/internal/payment"
	"carteret/internal/photo"
	photostore "carteret/internal/photo/store"
	"carteret/internal/platform/metrics"
	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
)

// PhotoUpload is one photo attached to a submission.
type PhotoUpload struct {
	Filename    string
	ContentType string
	Data        io.Reader
}

// Request is a prepared submission. PreparedFor pins the identity the
// submitter saw while filling in the form; nil means the form was filled in
// anonymously.
type Request struct {
	Listing     listing.NewListingInput
	Photos      []PhotoUpload
	PreparedFor *id.UserID
}

// Result reports what the submission produced. FailedPhotos lists uploads
// that were dropped; the listing itself survives any photo failure.
type Result struct {
	Listing      *listing.Listing
	Photos       []*photo.Photo
	FailedPhotos []string
	CheckoutURL  string
	Activated    bool
}

// Config holds the payment knobs for the submit flow.
type Config struct {
	FeeCents    int
	RedirectURL string
	MockMode    bool
}

// Orchestrator runs the submit flow end to end.
//
// Submissions are deliberately not deduplicated: a submitter who retries
// after a timeout gets a second pending listing, and moderators weed out the
// duplicate. That is cheaper than a dedupe scheme that might eat a genuine
// second business.
type Orchestrator struct {
	resolver *identity.Resolver
	listings *listing.Service
	photos   photostore.PhotoStore
	objects  objectstore.Store
	checkout payment.Checkout
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

func NewOrchestrator(resolver *identity.Resolver, listings *listing.Service, photos photostore.PhotoStore,
	objects objectstore.Store, checkout payment.Checkout, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		resolver: resolver,
		listings: listings,
		photos:   photos,
		objects:  objects,
		checkout: checkout,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		tracer:   otel.Tracer("carteret/submission"),
	}
}

// Submit runs the flow. The provider is queried for the caller's identity
// immediately before writing; a cached identity from form-preparation time
// is never trusted.
//
// A checkout failure after the listing is created returns the error together
// with the partial result. The listing stays pending; nothing is rolled back.
func (o *Orchestrator) Submit(ctx context.Context, provider identity.Provider, req Request) (*Result, error) {
	ctx, span := o.tracer.Start(ctx, "submission.Submit")
	defer span.End()

	ident, err := o.revalidate(ctx, provider, req.PreparedFor)
	if err != nil {
		return nil, err
	}

	in := req.Listing
	if ident != nil {
		ownerID := ident.ID
		in.OwnerID = &ownerID
	}

	created, err := o.listings.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("listing.id", created.ID.String()))

	result := &Result{Listing: created}
	o.uploadPhotos(ctx, created.ID, req.Photos, result)
	if err := o.collectFee(ctx, created, result); err != nil {
		return result, err
	}
	return result, nil
}

// revalidate asks the provider who is signed in right now and checks it
// against the identity the submission was prepared for.
func (o *Orchestrator) revalidate(ctx context.Context, provider identity.Provider, preparedFor *id.UserID) (*identity.Identity, error) {
	ctx, span := o.tracer.Start(ctx, "submission.revalidate")
	defer span.End()

	principal, err := provider.CurrentPrincipal(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeAuthUnavailable, "cannot confirm identity before submitting")
	}

	if preparedFor != nil && (principal == nil || principal.ID != *preparedFor) {
		return nil, dErrors.New(dErrors.CodeStaleSession, "signed-in identity changed since the form was prepared")
	}

	return o.resolver.Resolve(ctx, principal)
}

// uploadPhotos stores each photo under <listingID>/<uuid>-<filename>. A path
// collision gets exactly one retry with a fresh prefix; any further failure
// drops that photo and moves on.
func (o *Orchestrator) uploadPhotos(ctx context.Context, listingID id.ListingID, uploads []PhotoUpload, result *Result) {
	if len(uploads) == 0 {
		return
	}
	ctx, span := o.tracer.Start(ctx, "submission.uploadPhotos",
		trace.WithAttributes(attribute.Int("photos.count", len(uploads))))
	defer span.End()

	for i, upload := range uploads {
		stored, err := o.uploadOne(ctx, listingID, upload, i == 0)
		if err != nil {
			o.logger.Warn("photo upload dropped",
				"listing_id", listingID.String(), "filename", upload.Filename, "error", err)
			result.FailedPhotos = append(result.FailedPhotos, upload.Filename)
			continue
		}
		result.Photos = append(result.Photos, stored)
	}
}

func (o *Orchestrator) uploadOne(ctx context.Context, listingID id.ListingID, upload PhotoUpload, primary bool) (*photo.Photo, error) {
	// Buffer once so a retry does not re-read a spent reader.
	data, err := io.ReadAll(upload.Data)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable photo data")
	}

	key := photoKey(listingID, upload.Filename)
	err = o.objects.Put(ctx, key, upload.ContentType, bytes.NewReader(data))
	if dErrors.HasCode(err, dErrors.CodeConflict) {
		o.metrics.PhotoUploadRetries.Inc()
		key = photoKey(listingID, upload.Filename)
		err = o.objects.Put(ctx, key, upload.ContentType, bytes.NewReader(data))
	}
	if err != nil {
		return nil, err
	}

	p := &photo.Photo{
		ID:          id.NewPhotoID(),
		ListingID:   listingID,
		StoragePath: key,
		ContentType: upload.ContentType,
		IsPrimary:   primary,
	}
	if err := o.photos.Insert(ctx, p); err != nil {
		if delErr := o.objects.Delete(ctx, key); delErr != nil {
			o.logger.Warn("failed to clean up orphaned object", "key", key, "error", delErr)
		}
		return nil, err
	}
	return p, nil
}

// collectFee activates directly in demo mode, otherwise creates a checkout
// session. A checkout failure is returned to the caller; the listing stays
// pending either way, so the submitter can be sent back to pay later.
func (o *Orchestrator) collectFee(ctx context.Context, created *listing.Listing, result *Result) error {
	ctx, span := o.tracer.Start(ctx, "submission.collectFee")
	defer span.End()

	if o.cfg.MockMode {
		if err := o.listings.ConfirmPayment(ctx, created.ID); err != nil {
			o.logger.Warn("demo activation failed, listing stays pending",
				"listing_id", created.ID.String(), "error", err)
			return nil
		}
		result.Activated = true
		return nil
	}

	url, err := o.checkout.CreateSession(ctx, payment.CheckoutRequest{
		ListingID:   created.ID,
		AmountCents: o.cfg.FeeCents,
		Description: payment.FeeDescription(created.Name),
		RedirectURL: o.cfg.RedirectURL,
	})
	if err != nil {
		o.metrics.CheckoutFailures.Inc()
		o.logger.Warn("checkout session failed, listing stays pending",
			"listing_id", created.ID.String(), "error", err)
		return dErrors.Wrap(err, dErrors.CodeUpstream, "failed to create checkout link")
	}
	result.CheckoutURL = url
	return nil
}

// photoKey builds the storage path for one upload. The random prefix keeps
// same-named files from different uploads apart.
func photoKey(listingID id.ListingID, filename string) string {
	name := strings.ReplaceAll(filename, "/", "_")
	return fmt.Sprintf("%s/%s-%s", listingID.String(), uuid.NewString(), name)
}
