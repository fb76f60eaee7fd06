package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"carparts-storefront/internal/apperr"
	"carparts-storefront/internal/client"
	"carparts-storefront/internal/dto"
	"carparts-storefront/internal/model"
	"carparts-storefront/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test_secret"

var webhookNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newCheckoutService(f *fixture, stripe client.StripeClient) *checkoutServiceImpl {
	coupons := newCouponService(f)
	svc := NewCheckoutService(
		f.db,
		CheckoutConfig{
			Currency:         "EUR",
			SuccessURL:       "http://shop.test/success",
			CancelURL:        "http://shop.test/cart",
			WebhookSecret:    testWebhookSecret,
			WebhookTolerance: 300 * time.Second,
		},
		stripe,
		f.products,
		f.orders,
		f.coupons,
		f.checkouts,
		f.events,
		coupons,
		f.validator,
		testutil.Logger(),
	).(*checkoutServiceImpl)
	svc.now = func() time.Time { return webhookNow }
	return svc
}

func signedHeader(payload []byte, ts time.Time, secret string) string {
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), client.ComputeWebhookSignature(payload, ts.Unix(), secret))
}

func checkoutEvent(t *testing.T, eventID, eventType, sessionID string, amount int64, currency string) []byte {
	t.Helper()

	obj, err := json.Marshal(map[string]interface{}{
		"id":             sessionID,
		"payment_status": "paid",
		"amount_total":   amount,
		"currency":       currency,
	})
	require.NoError(t, err)

	payload, err := json.Marshal(map[string]interface{}{
		"id":   eventID,
		"type": eventType,
		"data": map[string]json.RawMessage{"object": obj},
	})
	require.NoError(t, err)
	return payload
}

func TestCreateCheckoutComputesMinorUnits(t *testing.T) {
	f := newFixture(t)
	stripe := newFakeStripe()
	svc := newCheckoutService(f, stripe)
	ctx := context.Background()

	user := f.user(t, "buyer@example.com", model.RoleUser)
	pad := f.product(t, "Brake pad set", "49.99", 10)

	resp, err := svc.CreateCheckout(ctx, user, &dto.CheckoutRequest{
		Items: []dto.CheckoutItem{{ProductID: pad.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9998), resp.AmountTotal)
	assert.Equal(t, "eur", resp.Currency)
	assert.Equal(t, "cs_test_1", resp.StripeSessionID)
	assert.NotEmpty(t, resp.CheckoutURL)
	assert.Empty(t, resp.TrackingError)

	req := stripe.lastRequest()
	require.NotNil(t, req)
	require.Len(t, req.LineItems, 1)
	assert.Equal(t, int64(4999), req.LineItems[0].UnitAmount)
	assert.Equal(t, 2, req.LineItems[0].Quantity)
	assert.Equal(t, "http://shop.test/success", req.SuccessURL)
	assert.Equal(t, "user_"+fmt.Sprint(user.ID), req.ClientReference)
	assert.Equal(t, fmt.Sprint(user.ID), req.Metadata["user_id"])
	assert.NotEmpty(t, req.Metadata["local_checkout_id"])
	assert.Empty(t, req.DiscountCouponID)

	local, err := f.checkouts.FindByStripeID(ctx, nil, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, model.CheckoutCreated, local.Status)
	require.NotNil(t, local.AmountTotal)
	assert.Equal(t, int64(9998), *local.AmountTotal)

	items, err := f.checkouts.GetItems(ctx, nil, local.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Brake pad set", items[0].NameSnapshot)
	assert.Equal(t, int64(4999), items[0].UnitAmount)
}

func TestCreateCheckoutMergesDuplicateItems(t *testing.T) {
	f := newFixture(t)
	stripe := newFakeStripe()
	svc := newCheckoutService(f, stripe)

	user := f.user(t, "buyer@example.com", model.RoleUser)
	a := f.product(t, "Oil filter", "8.50", 10)
	b := f.product(t, "Air filter", "12.00", 10)

	resp, err := svc.CreateCheckout(context.Background(), user, &dto.CheckoutRequest{
		Items: []dto.CheckoutItem{
			{ProductID: b.ID, Quantity: 1},
			{ProductID: a.ID, Quantity: 1},
			{ProductID: b.ID, Quantity: 2},
		},
		SuccessURL: "https://front.test/ok",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3*1200+850), resp.AmountTotal)

	req := stripe.lastRequest()
	require.Len(t, req.LineItems, 2)
	assert.Equal(t, "Air filter", req.LineItems[0].Name)
	assert.Equal(t, 3, req.LineItems[0].Quantity)
	assert.Equal(t, "Oil filter", req.LineItems[1].Name)
	assert.Equal(t, "https://front.test/ok", req.SuccessURL)
	assert.Equal(t, "http://shop.test/cart", req.CancelURL)
}

func TestCreateCheckoutUnknownProductWritesNothing(t *testing.T) {
	f := newFixture(t)
	stripe := newFakeStripe()
	svc := newCheckoutService(f, stripe)
	ctx := context.Background()

	user := f.user(t, "buyer@example.com", model.RoleUser)
	pad := f.product(t, "Brake pad set", "49.99", 10)

	_, err := svc.CreateCheckout(ctx, user, &dto.CheckoutRequest{
		Items: []dto.CheckoutItem{{ProductID: pad.ID, Quantity: 1}, {ProductID: 424242, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrProductNotFound)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "Product not found: id=424242", e.Message)

	assert.Nil(t, stripe.lastRequest())

	var sessions, items int64
	require.NoError(t, f.db.Model(&model.CheckoutSession{}).Count(&sessions).Error)
	require.NoError(t, f.db.Model(&model.CheckoutSessionItem{}).Count(&items).Error)
	assert.Zero(t, sessions)
	assert.Zero(t, items)
}

func TestCreateCheckoutRejectsBadItems(t *testing.T) {
	f := newFixture(t)
	svc := newCheckoutService(f, newFakeStripe())
	user := f.user(t, "buyer@example.com", model.RoleUser)

	_, err := svc.CreateCheckout(context.Background(), user, &dto.CheckoutRequest{})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind)

	_, err = svc.CreateCheckout(context.Background(), user, &dto.CheckoutRequest{
		Items: []dto.CheckoutItem{{ProductID: 0, Quantity: 1}, {ProductID: 3, Quantity: 0}},
	})
	e, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Contains(t, e.Fields, "items[0].product_id must be a positive integer")
	assert.Contains(t, e.Fields, "items[1].quantity must be at least 1")
}

func TestCreateCheckoutProviderFailure(t *testing.T) {
	f := newFixture(t)
	stripe := newFakeStripe()
	stripe.err = errors.New("stripe error 500 (api_error): boom")
	svc := newCheckoutService(f, stripe)

	user := f.user(t, "buyer@example.com", model.RoleUser)
	pad := f.product(t, "Brake pad set", "49.99", 10)

	_, err := svc.CreateCheckout(context.Background(), user, &dto.CheckoutRequest{
		Items: []dto.CheckoutItem{{ProductID: pad.ID, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrPaymentProvider)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, 500, e.Status())
	assert.NotContains(t, e.Message, "boom")

	stripe.err = client.ErrStripeNotConfigured
	_, err = svc.CreateCheckout(context.Background(), user, &dto.CheckoutRequest{
		Items: []dto.CheckoutItem{{ProductID: pad.ID, Quantity: 1}},
	})
	assert.Equal(t, ErrStripeNotReady, err)
}

func TestCreateCheckoutAppliesCoupon(t *testing.T) {
	f := newFixture(t)
	stripe := newFakeStripe()
	svc := newCheckoutService(f, stripe)

	user := f.user(t, "buyer@example.com", model.RoleUser)
	pad := f.product(t, "Brake pad set", "49.99", 10)
	f.coupon(t, &model.Coupon{Code: "TEN", DiscountType: model.DiscountPercent, DiscountValue: dec("10"), IsActive: true})

	resp, err := svc.CreateCheckout(context.Background(), user, &dto.CheckoutRequest{
		Items:      []dto.CheckoutItem{{ProductID: pad.ID, Quantity: 2}},
		CouponCode: "TEN",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), resp.DiscountAmount)
	assert.Equal(t, int64(8998), resp.AmountTotal)
	assert.Equal(t, []int64{1000}, stripe.coupons)
	assert.Equal(t, "coupon_1", stripe.lastRequest().DiscountCouponID)

	_, err = svc.CreateCheckout(context.Background(), user, &dto.CheckoutRequest{
		Items:      []dto.CheckoutItem{{ProductID: pad.ID, Quantity: 1}},
		CouponCode: "MISSING",
	})
	assert.ErrorIs(t, err, ErrCouponNotFound)
}

func TestSessionStatus(t *testing.T) {
	f := newFixture(t)
	stripe := newFakeStripe()
	svc := newCheckoutService(f, stripe)
	ctx := context.Background()

	_, err := svc.SessionStatus(ctx, " ")
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind)

	_, err = svc.SessionStatus(ctx, "cs_missing")
	assert.ErrorIs(t, err, ErrPaymentProvider)

	user := f.user(t, "buyer@example.com", model.RoleUser)
	pad := f.product(t, "Brake pad set", "10", 10)
	created, err := svc.CreateCheckout(ctx, user, &dto.CheckoutRequest{Items: []dto.CheckoutItem{{ProductID: pad.ID, Quantity: 1}}})
	require.NoError(t, err)

	status, err := svc.SessionStatus(ctx, created.StripeSessionID)
	require.NoError(t, err)
	assert.Equal(t, created.StripeSessionID, status.ID)
	assert.Equal(t, "unpaid", status.PaymentStatus)
}

func TestHandleWebhookRejectsBadSignatures(t *testing.T) {
	f := newFixture(t)
	svc := newCheckoutService(f, newFakeStripe())
	ctx := context.Background()

	payload := checkoutEvent(t, "evt_1", model.StripeEventCheckoutCompleted, "cs_test_1", 100, "eur")
	good := signedHeader(payload, webhookNow, testWebhookSecret)
	require.NoError(t, svc.HandleWebhook(ctx, payload, good))

	sig := client.ComputeWebhookSignature(payload, webhookNow.Unix(), testWebhookSecret)
	flipped := []byte(sig)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}
	err := svc.HandleWebhook(ctx, payload, fmt.Sprintf("t=%d,v1=%s", webhookNow.Unix(), flipped))
	assert.ErrorIs(t, err, ErrSignatureInvalid)

	err = svc.HandleWebhook(ctx, payload, signedHeader(payload, webhookNow.Add(-301*time.Second), testWebhookSecret))
	assert.ErrorIs(t, err, ErrTimestampExpired)

	err = svc.HandleWebhook(ctx, payload, "garbage")
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, 400, e.Status())

	svc.cfg.WebhookSecret = ""
	err = svc.HandleWebhook(ctx, payload, good)
	assert.Equal(t, ErrStripeNotReady, err)
}

func TestHandleWebhookCompletedIsIdempotent(t *testing.T) {
	f := newFixture(t)
	stripe := newFakeStripe()
	svc := newCheckoutService(f, stripe)
	ctx := context.Background()

	user := f.user(t, "buyer@example.com", model.RoleUser)
	pad := f.product(t, "Brake pad set", "49.99", 5)
	f.coupon(t, &model.Coupon{Code: "FIVE", DiscountType: model.DiscountFixed, DiscountValue: dec("5"), IsActive: true, UsageLimit: intPtr(10)})

	created, err := svc.CreateCheckout(ctx, user, &dto.CheckoutRequest{
		Items:      []dto.CheckoutItem{{ProductID: pad.ID, Quantity: 2}},
		CouponCode: "FIVE",
	})
	require.NoError(t, err)
	require.Equal(t, int64(9498), created.AmountTotal)

	payload := checkoutEvent(t, "evt_paid", model.StripeEventCheckoutCompleted, created.StripeSessionID, 9498, "eur")
	header := signedHeader(payload, webhookNow, testWebhookSecret)
	require.NoError(t, svc.HandleWebhook(ctx, payload, header))

	local, err := f.checkouts.FindByStripeID(ctx, nil, created.StripeSessionID)
	require.NoError(t, err)
	assert.Equal(t, model.CheckoutPaid, local.Status)
	require.NotNil(t, local.OrderID)

	// replay of the same event plus a fresh event id for the same session
	require.NoError(t, svc.HandleWebhook(ctx, payload, header))
	other := checkoutEvent(t, "evt_paid_again", model.StripeEventCheckoutCompleted, created.StripeSessionID, 1, "usd")
	require.NoError(t, svc.HandleWebhook(ctx, other, signedHeader(other, webhookNow, testWebhookSecret)))

	again, err := f.checkouts.FindByStripeID(ctx, nil, created.StripeSessionID)
	require.NoError(t, err)
	assert.Equal(t, model.CheckoutPaid, again.Status)
	assert.Equal(t, int64(9498), *again.AmountTotal)
	assert.Equal(t, "eur", *again.Currency)
	assert.Equal(t, *local.OrderID, *again.OrderID)

	var orders int64
	require.NoError(t, f.db.Model(&model.Order{}).Count(&orders).Error)
	assert.Equal(t, int64(1), orders)

	order, err := f.orders.FindByID(ctx, *local.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPaid, order.Status)
	assert.True(t, dec("94.98").Equal(order.TotalAmount))

	items, err := f.orders.GetOrderItems(ctx, nil, order.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, dec("49.99").Equal(items[0].UnitPrice))

	product, err := f.products.FindByID(ctx, pad.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, product.Stock)

	coupon, err := f.coupons.FindByCode(ctx, nil, "FIVE")
	require.NoError(t, err)
	assert.Equal(t, 1, coupon.UsedCount)
}

func TestHandleWebhookExpiredNeverDowngradesPaid(t *testing.T) {
	f := newFixture(t)
	svc := newCheckoutService(f, newFakeStripe())
	ctx := context.Background()

	user := f.user(t, "buyer@example.com", model.RoleUser)
	pad := f.product(t, "Spark plug", "4.20", 50)

	first, err := svc.CreateCheckout(ctx, user, &dto.CheckoutRequest{Items: []dto.CheckoutItem{{ProductID: pad.ID, Quantity: 4}}})
	require.NoError(t, err)
	second, err := svc.CreateCheckout(ctx, user, &dto.CheckoutRequest{Items: []dto.CheckoutItem{{ProductID: pad.ID, Quantity: 1}}})
	require.NoError(t, err)

	expire := func(eventID, sessionID string) {
		payload := checkoutEvent(t, eventID, model.StripeEventCheckoutExpired, sessionID, 0, "eur")
		require.NoError(t, svc.HandleWebhook(ctx, payload, signedHeader(payload, webhookNow, testWebhookSecret)))
	}

	paid := checkoutEvent(t, "evt_p", model.StripeEventCheckoutCompleted, first.StripeSessionID, 1680, "eur")
	require.NoError(t, svc.HandleWebhook(ctx, paid, signedHeader(paid, webhookNow, testWebhookSecret)))
	expire("evt_e1", first.StripeSessionID)
	expire("evt_e2", second.StripeSessionID)

	s1, err := f.checkouts.FindByStripeID(ctx, nil, first.StripeSessionID)
	require.NoError(t, err)
	assert.Equal(t, model.CheckoutPaid, s1.Status)

	s2, err := f.checkouts.FindByStripeID(ctx, nil, second.StripeSessionID)
	require.NoError(t, err)
	assert.Equal(t, model.CheckoutExpired, s2.Status)
}

func TestHandleWebhookAcksUnknownAndMalformedEvents(t *testing.T) {
	f := newFixture(t)
	svc := newCheckoutService(f, newFakeStripe())
	ctx := context.Background()

	for _, payload := range [][]byte{
		[]byte(`{"id":"evt_x","type":"invoice.paid","data":{"object":{}}}`),
		[]byte(`not json`),
		checkoutEvent(t, "evt_ghost", model.StripeEventCheckoutCompleted, "cs_unknown", 100, "eur"),
		[]byte(`{"id":"evt_noid","type":"checkout.session.completed","data":{"object":{}}}`),
	} {
		assert.NoError(t, svc.HandleWebhook(ctx, payload, signedHeader(payload, webhookNow, testWebhookSecret)))
	}

	var orders int64
	require.NoError(t, f.db.Model(&model.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
}
