package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"carparts-storefront/internal/client"
	"carparts-storefront/internal/config"
	"carparts-storefront/internal/mailer"
	"carparts-storefront/internal/model"
	"carparts-storefront/internal/repository"
	"carparts-storefront/internal/service"
	"carparts-storefront/internal/session"
	"carparts-storefront/internal/storage"
	"carparts-storefront/internal/testutil"
	"carparts-storefront/internal/validate"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const webhookSecret = "whsec_server_test"

type testApp struct {
	t       *testing.T
	db      *gorm.DB
	handler http.Handler
	cfg     *config.Config
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.NewDB(t)
	logger := testutil.Logger()
	v := validate.New()

	cfg := &config.Config{
		Session: config.Session{CookieName: "carparts_session", TTL: time.Hour},
		Stripe: config.Stripe{
			BaseApiURL:       "http://127.0.0.1:1",
			WebhookSecret:    webhookSecret,
			Currency:         "eur",
			Timeout:          time.Second,
			WebhookTolerance: 300 * time.Second,
		},
		Upload: config.Upload{Dir: t.TempDir(), PublicPath: "/assets/products", MaxBytes: 1 << 20},
		CORS:   config.CORS{AllowOrigins: []string{"http://localhost:5173"}},
		Auth:   config.Auth{VerificationTTL: time.Hour, VerifyURL: "http://localhost:5173/verify-email", LoginRateLimit: 1000},
	}

	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	sessions := session.NewMemoryStore(session.Options{TTL: cfg.Session.TTL})

	couponService := service.NewCouponService(couponRepo, v)
	services := Services{
		Guard: service.NewAuthGuard(sessions, userRepo),
		Auth: service.NewAuthService(db, service.AuthConfig{VerificationTTL: time.Hour, VerifyURL: cfg.Auth.VerifyURL},
			sessions, userRepo, repository.NewProfileRepository(db), repository.NewEmailVerificationRepository(db),
			&mailer.Recorder{}, v, logger),
		Products: service.NewProductService(productRepo, storage.NewLocalImageStore(cfg.Upload.Dir, cfg.Upload.PublicPath, cfg.Upload.MaxBytes), cfg.Upload.MaxBytes, v),
		Coupons:  couponService,
		Checkout: service.NewCheckoutService(db, service.CheckoutConfig{
			Currency:         cfg.Stripe.Currency,
			WebhookSecret:    cfg.Stripe.WebhookSecret,
			WebhookTolerance: cfg.Stripe.WebhookTolerance,
		}, client.NewStripeClient(&cfg.Stripe), productRepo, orderRepo, couponRepo,
			repository.NewCheckoutSessionRepository(db), repository.NewWebhookEventRepository(db),
			couponService, v, logger),
		Users:  service.NewUserService(userRepo, orderRepo, v, logger),
		Orders: service.NewOrderService(orderRepo, logger),
	}

	srv := NewServer(cfg, logger, services)
	return &testApp{t: t, db: db, handler: srv.Handler(), cfg: cfg}
}

func (a *testApp) do(method, path, body string, cookie *http.Cookie, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// login registers a user, optionally promotes them, and returns their session cookie.
func (a *testApp) login(email string, admin bool) (*http.Cookie, int64) {
	t := a.t
	t.Helper()

	rec := a.do(http.MethodPost, "/api/auth/register", fmt.Sprintf(`{"name":"N","email":%q,"password":"secret1"}`, email), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	if admin {
		require.NoError(t, a.db.Model(&model.User{}).Where("email = ?", email).Update("role", model.RoleAdmin).Error)
	}

	rec = a.do(http.MethodPost, "/api/auth/login", fmt.Sprintf(`{"email":%q,"password":"secret1"}`, email), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data model.User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	for _, c := range rec.Result().Cookies() {
		if c.Name == a.cfg.Session.CookieName {
			assert.True(t, c.HttpOnly)
			return c, body.Data.ID
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil, 0
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndUnknownRoute(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = app.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error", decode(t, rec)["status"])
}

func TestAdminRoutesRequireAdminSession(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/api/admin/ping", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Authentication required", body["message"])

	userCookie, _ := app.login("user@example.com", false)
	rec = app.do(http.MethodGet, "/api/admin/ping", "", userCookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Admin privileges required", decode(t, rec)["message"])

	adminCookie, _ := app.login("admin@example.com", true)
	rec = app.do(http.MethodGet, "/api/admin/ping", "", adminCookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(http.MethodPost, "/api/auth/logout", "", adminCookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = app.do(http.MethodGet, "/api/admin/ping", "", adminCookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminSelfDeleteIsRejected(t *testing.T) {
	app := newTestApp(t)
	adminCookie, adminID := app.login("admin@example.com", true)

	rec := app.do(http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", adminID), "", adminCookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "You cannot delete your own account from admin panel", decode(t, rec)["message"])
}

func TestProductListingEnvelope(t *testing.T) {
	app := newTestApp(t)

	for i := 0; i < 45; i++ {
		require.NoError(t, app.db.Create(&model.Product{
			Name: fmt.Sprintf("Part %02d", i), Brand: "Bosch", Category: "Brakes",
			Price: decimal.NewFromInt(int64(10 + i)), Stock: 1,
		}).Error)
	}

	rec := app.do(http.MethodGet, "/api/products?page=4&limit=20", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 4, body["page"])
	assert.EqualValues(t, 20, body["per_page"])
	assert.EqualValues(t, 45, body["total"])
	assert.EqualValues(t, 3, body["total_pages"])
	assert.Equal(t, []interface{}{}, body["data"])

	rec = app.do(http.MethodGet, "/api/products?sort=price_desc&limit=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["data"].([]interface{})
	require.Len(t, items, 1)
	assert.EqualValues(t, 54, items[0].(map[string]interface{})["price"])
}

func TestValidationErrorsAreListed(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/api/auth/register", `{"email":"bad"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Validation failed", body["message"])
	assert.Len(t, body["errors"], 3)

	rec = app.do(http.MethodPost, "/api/auth/register", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStripeWebhookEndpoint(t *testing.T) {
	app := newTestApp(t)
	payload := `{"id":"evt_1","type":"customer.created","data":{"object":{}}}`

	rec := app.do(http.MethodPost, "/api/payments/webhook", payload, nil, "Stripe-Signature", "t=1,v1=00")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", decode(t, rec)["status"])

	now := time.Now()
	header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), client.ComputeWebhookSignature([]byte(payload), now.Unix(), webhookSecret))
	rec = app.do(http.MethodPost, "/api/payments/webhook", payload, nil, "Stripe-Signature", header)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"status": "ok"}, decode(t, rec))
}

func TestCheckoutRequiresLoginAndReportsProviderFailure(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/api/payments/checkout", `{"items":[{"product_id":1,"quantity":1}]}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cookie, _ := app.login("buyer@example.com", false)
	rec = app.do(http.MethodPost, "/api/payments/checkout", `{"items":[{"product_id":99,"quantity":1}]}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Product not found: id=99", decode(t, rec)["message"])

	// no secret key configured
	require.NoError(t, app.db.Create(&model.Product{Name: "Pad", Brand: "B", Category: "C", Price: decimal.NewFromInt(5), Stock: 1}).Error)
	rec = app.do(http.MethodPost, "/api/payments/checkout", `{"items":[{"product_id":1,"quantity":1}]}`, cookie)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Stripe is not configured", decode(t, rec)["message"])
}
