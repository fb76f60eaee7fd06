package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"carparts-storefront/internal/client"
	"carparts-storefront/internal/model"
	"carparts-storefront/internal/repository"
	"carparts-storefront/internal/testutil"
	"carparts-storefront/internal/validate"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db            *gorm.DB
	users         repository.UserRepository
	products      repository.ProductRepository
	orders        repository.OrderRepository
	coupons       repository.CouponRepository
	checkouts     repository.CheckoutSessionRepository
	events        repository.WebhookEventRepository
	profiles      repository.ProfileRepository
	verifications repository.EmailVerificationRepository
	validator     *validate.Validator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	return &fixture{
		db:            db,
		users:         repository.NewUserRepository(db),
		products:      repository.NewProductRepository(db),
		orders:        repository.NewOrderRepository(db),
		coupons:       repository.NewCouponRepository(db),
		checkouts:     repository.NewCheckoutSessionRepository(db),
		events:        repository.NewWebhookEventRepository(db),
		profiles:      repository.NewProfileRepository(db),
		verifications: repository.NewEmailVerificationRepository(db),
		validator:     validate.New(),
	}
}

func (f *fixture) user(t *testing.T, email string, role model.Role) *model.User {
	t.Helper()

	u := &model.User{Name: "Test " + string(role), Email: email, PasswordHash: "x", Role: role, IsVerified: true}
	require.NoError(t, f.users.Create(context.Background(), nil, u))
	return u
}

func (f *fixture) product(t *testing.T, name, price string, stock int) *model.Product {
	t.Helper()

	p := &model.Product{
		Name:     name,
		Brand:    "Bosch",
		Category: "Brakes",
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
	}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

func (f *fixture) coupon(t *testing.T, c *model.Coupon) *model.Coupon {
	t.Helper()

	require.NoError(t, f.coupons.Create(context.Background(), c))
	return c
}

// fakeStripe records requests and hands out sequential session ids.
type fakeStripe struct {
	mu       sync.Mutex
	requests []*client.CreateCheckoutSessionRequest
	coupons  []int64
	sessions map[string]*model.StripeCheckoutObject
	err      error
}

func newFakeStripe() *fakeStripe {
	return &fakeStripe{sessions: make(map[string]*model.StripeCheckoutObject)}
}

func (f *fakeStripe) CreateCheckoutSession(ctx context.Context, req *client.CreateCheckoutSessionRequest) (*model.StripeCheckoutObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, req)
	id := fmt.Sprintf("cs_test_%d", len(f.requests))
	obj := &model.StripeCheckoutObject{ID: id, URL: "https://checkout.stripe.test/" + id, PaymentStatus: "unpaid"}
	f.sessions[id] = obj
	return obj, nil
}

func (f *fakeStripe) GetCheckoutSession(ctx context.Context, sessionID string) (*model.StripeCheckoutObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	obj, ok := f.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("stripe error 404 (invalid_request_error): No such checkout.session")
	}
	return obj, nil
}

func (f *fakeStripe) CreateOneTimeCoupon(ctx context.Context, amountOff int64, currency string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	f.coupons = append(f.coupons, amountOff)
	return fmt.Sprintf("coupon_%d", len(f.coupons)), nil
}

func (f *fakeStripe) lastRequest() *client.CreateCheckoutSessionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func intPtr(v int) *int { return &v }
