// Package payment creates checkout sessions with the external payment
// provider for the basic listing fee.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
)

// CheckoutRequest describes one listing fee to collect.
type CheckoutRequest struct {
	ListingID   id.ListingID
	AmountCents int
	Description string
	RedirectURL string
}

// Checkout creates hosted checkout sessions. CreateSession returns the URL
// the submitter is sent to; any provider trouble is CodeUpstream.
type Checkout interface {
	CreateSession(ctx context.Context, req CheckoutRequest) (string, error)
}

// Client talks to the provider's session endpoint over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type sessionRequest struct {
	ListingID   string `json:"listingId"`
	AmountCents int    `json:"amountCents"`
	Description string `json:"description"`
	RedirectURL string `json:"redirectUrl"`
}

type sessionResponse struct {
	URL string `json:"url"`
}

func (c *Client) CreateSession(ctx context.Context, req CheckoutRequest) (string, error) {
	payload, err := json.Marshal(sessionRequest{
		ListingID:   req.ListingID.String(),
		AmountCents: req.AmountCents,
		Description: req.Description,
		RedirectURL: req.RedirectURL,
	})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode checkout request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to build checkout request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUpstream, "checkout provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", dErrors.New(dErrors.CodeUpstream,
			fmt.Sprintf("checkout provider answered %d", resp.StatusCode))
	}

	var session sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUpstream, "failed to decode checkout response")
	}
	if session.URL == "" {
		return "", dErrors.New(dErrors.CodeUpstream, "checkout provider returned no session URL")
	}

	c.logger.Debug("checkout session created", "listing_id", req.ListingID.String())
	return session.URL, nil
}

// FeeDescription is the human description attached to the listing fee.
func FeeDescription(listingName string) string {
	return "Basic listing fee for " + listingName
}
