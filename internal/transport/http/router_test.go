package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carteret/internal/admin"
	"carteret/internal/audit"
	auditstore "carteret/internal/audit/store"
	"carteret/internal/authz"
	"carteret/internal/identity"
	identitystore "carteret/internal/identity/store"
	"carteret/internal/jwttoken"
	"carteret/internal/listing"
	liststore "carteret/internal/listing/store"
	"carteret/internal/objectstore"
	"carteret/internal/payment"
	photostore "carteret/internal/photo/store"
	"carteret/internal/platform/logger"
	"carteret/internal/platform/metrics"
	"carteret/internal/platform/secrets"
	"carteret/internal/submission"
	transporthttp "carteret/internal/transport/http"
	"carteret/internal/verification"
	verifstore "carteret/internal/verification/store"
	id "carteret/pkg/domain"
)

const testCallbackSecret = "test-callback-secret"

// Hashed once; bcrypt is too slow to re-run per test.
var testCallbackSecretHash = func() string {
	hash, err := secrets.Hash(testCallbackSecret)
	if err != nil {
		panic(err)
	}
	return hash
}()

// stubCheckout always returns the same session URL.
type stubCheckout struct {
	url string
	err error
}

func (s *stubCheckout) CreateSession(context.Context, payment.CheckoutRequest) (string, error) {
	return s.url, s.err
}

type env struct {
	server   *httptest.Server
	tokens   *jwttoken.JWTService
	users    *identitystore.MemoryStore
	listings *liststore.MemoryStore
	listSvc  *listing.Service
	verifSvc *verification.Service
	admin    *identity.Identity
}

func newEnv(t *testing.T, mockPayments bool) *env {
	t.Helper()
	log := logger.New()
	m := metrics.NewWith(prometheus.NewRegistry())
	gate := authz.NewGate(log, m)
	recorder := audit.NewRecorder(auditstore.NewMemoryStore(), log)
	tokens := jwttoken.NewJWTService("test-secret", "carteret-test")

	users := identitystore.NewMemoryStore()
	listings := liststore.NewMemoryStore()
	photos := photostore.NewMemoryStore()
	objects := objectstore.NewMemoryStore()

	resolver := identity.NewResolver(users, log, m)
	listSvc := listing.NewService(listings, nil, gate, recorder, log, m)
	verifSvc := verification.NewService(verifstore.NewMemoryStore(listings), gate, recorder, log, m)
	adminSvc := admin.NewService(users, listSvc, verifSvc, photos, objects, gate, recorder, log)

	orchestrator := submission.NewOrchestrator(resolver, listSvc, photos, objects,
		&stubCheckout{url: "https://pay.example.com/s/abc"},
		submission.Config{FeeCents: 300, RedirectURL: "https://example.com/done", MockMode: mockPayments},
		log, m)

	router := transporthttp.NewRouter(tokens, resolver, log, nil,
		transporthttp.NewListingHandler(listSvc, photos, orchestrator, tokens, "https://photos.carteret.test", log),
		transporthttp.NewVerificationHandler(verifSvc, log),
		transporthttp.NewPaymentHandler(listSvc, testCallbackSecretHash, log),
		transporthttp.NewAdminHandler(adminSvc, listSvc, log),
	)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	adminID := id.NewUserID()
	require.NoError(t, users.Insert(context.Background(), &identity.User{
		ID: adminID, Email: "admin@example.com", Role: identity.RoleAdmin,
	}))

	return &env{
		server:   server,
		tokens:   tokens,
		users:    users,
		listings: listings,
		listSvc:  listSvc,
		verifSvc: verifSvc,
		admin:    &identity.Identity{ID: adminID, Role: identity.RoleAdmin},
	}
}

func (e *env) tokenFor(t *testing.T, userID id.UserID) string {
	t.Helper()
	token, err := e.tokens.GenerateToken(userID, "someone@example.com", "", time.Minute)
	require.NoError(t, err)
	return token
}

func (e *env) do(t *testing.T, method, path, token string, body any) *nethttp.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := nethttp.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := nethttp.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *env) confirmPayment(t *testing.T, listingID, secret string) *nethttp.Response {
	t.Helper()
	raw, err := json.Marshal(map[string]string{"listingId": listingID})
	require.NoError(t, err)
	req, err := nethttp.NewRequest(nethttp.MethodPost, e.server.URL+"/payments/confirm", bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Callback-Token", secret)
	}
	resp, err := nethttp.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *nethttp.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthz(t *testing.T) {
	e := newEnv(t, false)
	resp := e.do(t, nethttp.MethodGet, "/healthz", "", nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
}

func TestBrowse_Empty(t *testing.T) {
	e := newEnv(t, false)
	resp := e.do(t, nethttp.MethodGet, "/listings", "", nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Empty(t, body["listings"])
}

func TestSubmit_AnonymousJSON(t *testing.T) {
	e := newEnv(t, false)

	resp := e.do(t, nethttp.MethodPost, "/listings", "", map[string]any{
		"name": "Harbor Grill",
		"city": "Beaufort",
	})
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "https://pay.example.com/s/abc", body["checkout_url"])
	created := body["listing"].(map[string]any)
	assert.Equal(t, "pending", created["status"])
	assert.Empty(t, created["owner_id"])
}

func TestSubmit_SignedInOwnsListing(t *testing.T) {
	e := newEnv(t, true)
	userID := id.NewUserID()
	token := e.tokenFor(t, userID)

	resp := e.do(t, nethttp.MethodPost, "/listings", token, map[string]any{
		"name":         "Owned Oysters",
		"city":         "Beaufort",
		"prepared_for": userID.String(),
	})
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["activated"])
	created := body["listing"].(map[string]any)
	assert.Equal(t, userID.String(), created["owner_id"])
}

func TestSubmit_PreparedForMismatch(t *testing.T) {
	e := newEnv(t, false)
	token := e.tokenFor(t, id.NewUserID())

	resp := e.do(t, nethttp.MethodPost, "/listings", token, map[string]any{
		"name":         "Mismatched Mattresses",
		"city":         "Beaufort",
		"prepared_for": id.NewUserID().String(),
	})
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
}

func TestSubmit_Multipart(t *testing.T) {
	e := newEnv(t, true)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("listing", `{"name":"Photo Finish Framing","city":"Beaufort"}`))
	part, err := form.CreateFormFile("photos", "front.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg bytes"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req, err := nethttp.NewRequest(nethttp.MethodPost, e.server.URL+"/listings", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", form.FormDataContentType())
	resp, err := nethttp.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	photos := body["photos"].([]any)
	require.Len(t, photos, 1)
}

func TestGetListing_HiddenUntilActive(t *testing.T) {
	e := newEnv(t, false)
	l, err := e.listSvc.Create(context.Background(), listing.NewListingInput{Name: "Hidden Gem", City: "Beaufort"})
	require.NoError(t, err)

	resp := e.do(t, nethttp.MethodGet, "/listings/"+l.ID.String(), "", nil)
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)

	require.NoError(t, e.listSvc.Approve(context.Background(), e.admin, l.ID))
	resp = e.do(t, nethttp.MethodGet, "/listings/"+l.ID.String(), "", nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
}

func TestAdmin_DeniedUniformly(t *testing.T) {
	e := newEnv(t, false)

	userToken := e.tokenFor(t, id.NewUserID())
	anonymous := e.do(t, nethttp.MethodGet, "/admin/dashboard", "", nil)
	asUser := e.do(t, nethttp.MethodGet, "/admin/dashboard", userToken, nil)

	assert.Equal(t, nethttp.StatusForbidden, anonymous.StatusCode)
	assert.Equal(t, nethttp.StatusForbidden, asUser.StatusCode)

	anonBody := decodeBody(t, anonymous)
	userBody := decodeBody(t, asUser)
	assert.Equal(t, anonBody, userBody)
}

func TestAdmin_ApproveFlow(t *testing.T) {
	e := newEnv(t, false)
	adminToken := e.tokenFor(t, e.admin.ID)

	l, err := e.listSvc.Create(context.Background(), listing.NewListingInput{Name: "Approved Apparel", City: "Beaufort"})
	require.NoError(t, err)

	resp := e.do(t, nethttp.MethodPost, "/admin/listings/"+l.ID.String()+"/approve", adminToken, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	// A second approve conflicts.
	resp = e.do(t, nethttp.MethodPost, "/admin/listings/"+l.ID.String()+"/approve", adminToken, nil)
	assert.Equal(t, nethttp.StatusConflict, resp.StatusCode)
}

func TestAdmin_RoleChangeTakesEffectNextRequest(t *testing.T) {
	e := newEnv(t, false)
	adminToken := e.tokenFor(t, e.admin.ID)

	userID := id.NewUserID()
	userToken := e.tokenFor(t, userID)

	// First request creates the role record with the default role.
	resp := e.do(t, nethttp.MethodGet, "/admin/dashboard", userToken, nil)
	require.Equal(t, nethttp.StatusForbidden, resp.StatusCode)

	resp = e.do(t, nethttp.MethodPut, "/admin/users/"+userID.String()+"/role", adminToken,
		map[string]string{"role": "admin"})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	// Same token, new privileges: the role is resolved per request.
	resp = e.do(t, nethttp.MethodGet, "/admin/dashboard", userToken, nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
}

func TestAdmin_DeleteAdminBlocked(t *testing.T) {
	e := newEnv(t, false)
	adminToken := e.tokenFor(t, e.admin.ID)

	resp := e.do(t, nethttp.MethodDelete, "/admin/users/"+e.admin.ID.String(), adminToken, nil)
	assert.Equal(t, nethttp.StatusConflict, resp.StatusCode)
}

func TestVerification_SubmitAndApprove(t *testing.T) {
	e := newEnv(t, false)
	adminToken := e.tokenFor(t, e.admin.ID)
	ownerID := id.NewUserID()
	ownerToken := e.tokenFor(t, ownerID)

	l, err := e.listSvc.Create(context.Background(), listing.NewListingInput{Name: "Verified Vinyl", City: "Beaufort"})
	require.NoError(t, err)
	require.NoError(t, e.listSvc.Approve(context.Background(), e.admin, l.ID))

	resp := e.do(t, nethttp.MethodPost, "/verifications", ownerToken, map[string]any{
		"listing_id":     l.ID.String(),
		"entity_type":    "business",
		"document_paths": []string{"docs/license.pdf"},
	})
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	verificationID := body["id"].(string)

	// Anonymous submission is refused.
	resp = e.do(t, nethttp.MethodPost, "/verifications", "", map[string]any{
		"listing_id":     l.ID.String(),
		"entity_type":    "business",
		"document_paths": []string{"docs/license.pdf"},
	})
	assert.Equal(t, nethttp.StatusForbidden, resp.StatusCode)

	resp = e.do(t, nethttp.MethodPost, "/verifications/"+verificationID+"/approve", adminToken, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	got, err := e.listings.FindByID(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, listing.BadgeVerified, got.Badge)
}

func TestPaymentConfirm_Idempotent(t *testing.T) {
	e := newEnv(t, false)

	l, err := e.listSvc.Create(context.Background(), listing.NewListingInput{Name: "Callback Cafe", City: "Beaufort"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		resp := e.confirmPayment(t, l.ID.String(), testCallbackSecret)
		require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	}

	got, err := e.listings.FindByID(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, listing.StatusActive, got.Status)
}

func TestPaymentConfirm_UnverifiedCallbackRejected(t *testing.T) {
	e := newEnv(t, false)

	l, err := e.listSvc.Create(context.Background(), listing.NewListingInput{Name: "Gatecrash Grocers", City: "Beaufort"})
	require.NoError(t, err)

	missing := e.confirmPayment(t, l.ID.String(), "")
	assert.Equal(t, nethttp.StatusForbidden, missing.StatusCode)

	wrong := e.confirmPayment(t, l.ID.String(), "not-the-secret")
	assert.Equal(t, nethttp.StatusForbidden, wrong.StatusCode)

	// Neither delivery touched the listing.
	got, err := e.listings.FindByID(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, listing.StatusPending, got.Status)
}

func TestAuthenticate_BadTokenRejected(t *testing.T) {
	e := newEnv(t, false)
	resp := e.do(t, nethttp.MethodGet, "/listings", "garbage-token", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
}

func TestAuthenticate_ExpiredTokenOnSubmitReadsAsSignedOut(t *testing.T) {
	e := newEnv(t, false)
	userID := id.NewUserID()
	expired, err := e.tokens.GenerateToken(userID, "x@example.com", "", -time.Minute)
	require.NoError(t, err)

	resp := e.do(t, nethttp.MethodPost, "/listings", expired, map[string]any{
		"name": "Expired Emporium",
		"city": "Beaufort",
	})
	// The middleware rejects the expired token before the flow starts.
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
}
