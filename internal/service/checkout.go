package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"carparts-storefront/internal/apperr"
	"carparts-storefront/internal/client"
	"carparts-storefront/internal/dto"
	"carparts-storefront/internal/model"
	"carparts-storefront/internal/money"
	"carparts-storefront/internal/repository"
	"carparts-storefront/internal/validate"

	"github.com/labstack/gommon/log"
	"gorm.io/gorm"
)

type CheckoutConfig struct {
	Currency         string
	SuccessURL       string
	CancelURL        string
	WebhookSecret    string
	WebhookTolerance time.Duration
}

type CheckoutService interface {
	CreateCheckout(ctx context.Context, user *model.User, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error)
	SessionStatus(ctx context.Context, stripeSessionID string) (*dto.SessionStatusResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error
}

type checkoutServiceImpl struct {
	db               *gorm.DB
	cfg              CheckoutConfig
	stripeClient     client.StripeClient
	productRepo      repository.ProductRepository
	orderRepo        repository.OrderRepository
	couponRepo       repository.CouponRepository
	checkoutRepo     repository.CheckoutSessionRepository
	webhookEventRepo repository.WebhookEventRepository
	coupons          CouponService
	validator        *validate.Validator
	logger           *log.Logger
	now              func() time.Time
}

func NewCheckoutService(
	db *gorm.DB,
	cfg CheckoutConfig,
	stripeClient client.StripeClient,
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	couponRepo repository.CouponRepository,
	checkoutRepo repository.CheckoutSessionRepository,
	webhookEventRepo repository.WebhookEventRepository,
	coupons CouponService,
	validator *validate.Validator,
	logger *log.Logger,
) CheckoutService {
	cfg.Currency = strings.ToLower(cfg.Currency)
	return &checkoutServiceImpl{
		db:               db,
		cfg:              cfg,
		stripeClient:     stripeClient,
		productRepo:      productRepo,
		orderRepo:        orderRepo,
		couponRepo:       couponRepo,
		checkoutRepo:     checkoutRepo,
		webhookEventRepo: webhookEventRepo,
		coupons:          coupons,
		validator:        validator,
		logger:           logger,
		now:              time.Now,
	}
}

type cartLine struct {
	productID int64
	quantity  int
}

func (s *checkoutServiceImpl) CreateCheckout(ctx context.Context, user *model.User, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	lines, err := s.cartLines(req)
	if err != nil {
		return nil, err
	}

	productIDs := make([]int64, len(lines))
	for i, line := range lines {
		productIDs[i] = line.productID
	}
	products, err := s.productRepo.FindMany(ctx, nil, productIDs)
	if err != nil {
		return nil, storageErr("Failed to load products", err)
	}
	productByID := make(map[int64]*model.Product, len(products))
	for _, p := range products {
		productByID[p.ID] = p
	}

	var (
		lineItems = make([]client.StripeLineItem, len(lines))
		subtotal  int64
	)
	for i, line := range lines {
		product, ok := productByID[line.productID]
		if !ok {
			return nil, productNotFound(line.productID)
		}
		unit := money.ToMinor(product.Price)
		lineItems[i] = client.StripeLineItem{
			Name:       product.Name,
			UnitAmount: unit,
			Quantity:   line.quantity,
		}
		subtotal += unit * int64(line.quantity)
	}

	var (
		couponCode *string
		discount   int64
	)
	if code := strings.TrimSpace(req.CouponCode); code != "" {
		eval, err := s.coupons.Evaluate(ctx, code, money.FromMinor(subtotal))
		if err != nil {
			return nil, err
		}
		couponCode = &eval.Coupon.Code
		discount = min(money.ToMinor(eval.DiscountAmount), subtotal)
	}
	amountTotal := subtotal - discount
	currency := s.cfg.Currency

	var trackingError string
	local := &model.CheckoutSession{
		UserID:         user.ID,
		Status:         model.CheckoutCreated,
		AmountTotal:    &amountTotal,
		Currency:       &currency,
		CouponCode:     couponCode,
		DiscountAmount: discount,
	}
	if err := s.checkoutRepo.Create(ctx, local); err != nil {
		s.logger.Warnf("create local checkout record for user %d: %v", user.ID, err)
		trackingError = "Failed to record checkout session locally"
		local = nil
	}

	stripeReq := &client.CreateCheckoutSessionRequest{
		SuccessURL:      firstNonEmpty(req.SuccessURL, s.cfg.SuccessURL),
		CancelURL:       firstNonEmpty(req.CancelURL, s.cfg.CancelURL),
		Currency:        currency,
		ClientReference: "user_" + strconv.FormatInt(user.ID, 10),
		Metadata:        map[string]string{"user_id": strconv.FormatInt(user.ID, 10)},
		LineItems:       lineItems,
	}
	if local != nil {
		stripeReq.Metadata["local_checkout_id"] = strconv.FormatInt(local.ID, 10)
	}

	if discount > 0 {
		couponID, err := s.stripeClient.CreateOneTimeCoupon(ctx, discount, currency)
		if err != nil {
			return nil, s.providerErr(err)
		}
		stripeReq.DiscountCouponID = couponID
	}

	stripeSession, err := s.stripeClient.CreateCheckoutSession(ctx, stripeReq)
	if err != nil {
		return nil, s.providerErr(err)
	}

	if local != nil {
		items := make([]*model.CheckoutSessionItem, len(lines))
		for i, li := range lineItems {
			items[i] = &model.CheckoutSessionItem{
				CheckoutSessionID: local.ID,
				ProductID:         lines[i].productID,
				NameSnapshot:      li.Name,
				UnitAmount:        li.UnitAmount,
				Quantity:          li.Quantity,
			}
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.checkoutRepo.AttachStripeSession(ctx, tx, local.ID, stripeSession.ID); err != nil {
				return fmt.Errorf("attach stripe session: %w", err)
			}
			if err := s.checkoutRepo.CreateItems(ctx, tx, items); err != nil {
				return fmt.Errorf("store checkout items: %w", err)
			}
			return nil
		})
		if err != nil {
			s.logger.Warnf("track checkout %d (stripe %s): %v", local.ID, stripeSession.ID, err)
			trackingError = "Failed to record checkout session locally"
		}
	}

	return &dto.CheckoutResponse{
		CheckoutURL:     stripeSession.URL,
		StripeSessionID: stripeSession.ID,
		AmountTotal:     amountTotal,
		Currency:        currency,
		DiscountAmount:  discount,
		TrackingError:   trackingError,
	}, nil
}

// cartLines validates the requested items and merges repeated product ids,
// keeping first-seen order.
func (s *checkoutServiceImpl) cartLines(req *dto.CheckoutRequest) ([]cartLine, error) {
	msgs := s.validator.Messages(req)
	for i, item := range req.Items {
		if item.ProductID <= 0 {
			msgs = append(msgs, fmt.Sprintf("items[%d].product_id must be a positive integer", i))
		}
		if item.Quantity <= 0 {
			msgs = append(msgs, fmt.Sprintf("items[%d].quantity must be at least 1", i))
		}
	}
	if err := validationErr(msgs); err != nil {
		return nil, err
	}

	lines := make([]cartLine, 0, len(req.Items))
	index := make(map[int64]int, len(req.Items))
	for _, item := range req.Items {
		if i, ok := index[item.ProductID]; ok {
			lines[i].quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(lines)
		lines = append(lines, cartLine{productID: item.ProductID, quantity: item.Quantity})
	}
	return lines, nil
}

func (s *checkoutServiceImpl) SessionStatus(ctx context.Context, stripeSessionID string) (*dto.SessionStatusResponse, error) {
	stripeSessionID = strings.TrimSpace(stripeSessionID)
	if stripeSessionID == "" {
		return nil, apperr.Validation("session_id is required")
	}

	session, err := s.stripeClient.GetCheckoutSession(ctx, stripeSessionID)
	if err != nil {
		return nil, s.providerErr(err)
	}

	return &dto.SessionStatusResponse{
		ID:            session.ID,
		PaymentStatus: session.PaymentStatus,
		AmountTotal:   session.AmountTotal,
		Currency:      session.Currency,
	}, nil
}

// HandleWebhook authenticates the payload and reconciles local state. Only
// authentication failures are returned; anything after that is logged and
// acknowledged so the provider does not retry.
func (s *checkoutServiceImpl) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	if s.cfg.WebhookSecret == "" {
		return ErrStripeNotReady
	}

	err := client.VerifyWebhookSignature(payload, signatureHeader, s.cfg.WebhookSecret, s.cfg.WebhookTolerance, s.now())
	switch {
	case errors.Is(err, client.ErrTimestampExpired):
		return ErrTimestampExpired
	case errors.Is(err, client.ErrSignatureHeader):
		return ErrSignatureHeader
	case err != nil:
		return ErrSignatureInvalid
	}

	var event model.StripeWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warnf("decode stripe webhook payload: %v", err)
		return nil
	}

	switch event.Type {
	case model.StripeEventCheckoutCompleted:
		err = s.handleCheckoutCompleted(ctx, &event)
	case model.StripeEventCheckoutExpired:
		err = s.handleCheckoutExpired(ctx, &event)
	default:
		s.logger.Debugf("ignoring stripe event %s (%s)", event.ID, event.Type)
		return nil
	}
	if err != nil {
		s.logger.Errorf("reconcile stripe event %s (%s): %v", event.ID, event.Type, err)
	}
	return nil
}

func (s *checkoutServiceImpl) handleCheckoutCompleted(ctx context.Context, event *model.StripeWebhookEvent) error {
	obj, err := decodeCheckoutObject(event)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen, err := s.seen(ctx, tx, event)
		if err != nil || seen {
			return err
		}

		session, err := s.checkoutRepo.FindByStripeID(ctx, tx, obj.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warnf("stripe event %s references unknown checkout session %s", event.ID, obj.ID)
			return s.markProcessed(ctx, tx, event)
		}
		if err != nil {
			return fmt.Errorf("find checkout session: %w", err)
		}

		transitioned, err := s.checkoutRepo.MarkPaid(ctx, tx, obj.ID, obj.AmountTotal, obj.Currency)
		if err != nil {
			return fmt.Errorf("mark checkout paid: %w", err)
		}
		if transitioned {
			if err := s.finalizeOrder(ctx, tx, session, obj); err != nil {
				return err
			}
		}

		return s.markProcessed(ctx, tx, event)
	})
}

// finalizeOrder turns a freshly paid checkout into an order. It runs once per
// checkout, inside the transaction that performed the paid transition.
func (s *checkoutServiceImpl) finalizeOrder(ctx context.Context, tx *gorm.DB, session *model.CheckoutSession, obj *model.StripeCheckoutObject) error {
	items, err := s.checkoutRepo.GetItems(ctx, tx, session.ID)
	if err != nil {
		return fmt.Errorf("get checkout items: %w", err)
	}

	var amount int64
	switch {
	case session.AmountTotal != nil:
		amount = *session.AmountTotal
	case obj.AmountTotal != nil:
		amount = *obj.AmountTotal
	default:
		for _, item := range items {
			amount += item.UnitAmount * int64(item.Quantity)
		}
	}

	currency := s.cfg.Currency
	if session.Currency != nil {
		currency = *session.Currency
	} else if obj.Currency != nil {
		currency = strings.ToLower(*obj.Currency)
	}

	order := &model.Order{
		UserID:            session.UserID,
		Status:            model.OrderPaid,
		TotalAmount:       money.FromMinor(amount),
		Currency:          currency,
		CheckoutSessionID: &session.ID,
	}
	if err := s.orderRepo.Create(ctx, tx, order); err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	orderItems := make([]*model.OrderItem, len(items))
	for i, item := range items {
		orderItems[i] = &model.OrderItem{
			OrderID:     order.ID,
			ProductID:   item.ProductID,
			ProductName: item.NameSnapshot,
			Quantity:    item.Quantity,
			UnitPrice:   money.FromMinor(item.UnitAmount),
		}
	}
	if err := s.orderRepo.CreateOrderItems(ctx, tx, orderItems); err != nil {
		return fmt.Errorf("create order items: %w", err)
	}

	for _, item := range items {
		if err := s.productRepo.DecrementStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return fmt.Errorf("decrement stock of product %d: %w", item.ProductID, err)
		}
	}

	if session.CouponCode != nil {
		redeemed, err := s.couponRepo.Redeem(ctx, tx, *session.CouponCode)
		if err != nil {
			return fmt.Errorf("redeem coupon: %w", err)
		}
		if !redeemed {
			s.logger.Warnf("coupon %s was no longer redeemable when checkout %d was paid", *session.CouponCode, session.ID)
		}
	}

	if err := s.checkoutRepo.LinkOrder(ctx, tx, session.ID, order.ID); err != nil {
		return fmt.Errorf("link order: %w", err)
	}
	return nil
}

func (s *checkoutServiceImpl) handleCheckoutExpired(ctx context.Context, event *model.StripeWebhookEvent) error {
	obj, err := decodeCheckoutObject(event)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen, err := s.seen(ctx, tx, event)
		if err != nil || seen {
			return err
		}

		if _, err := s.checkoutRepo.MarkExpired(ctx, tx, obj.ID); err != nil {
			return fmt.Errorf("mark checkout expired: %w", err)
		}

		return s.markProcessed(ctx, tx, event)
	})
}

func (s *checkoutServiceImpl) seen(ctx context.Context, tx *gorm.DB, event *model.StripeWebhookEvent) (bool, error) {
	if event.ID == "" {
		return false, nil
	}
	exists, err := s.webhookEventRepo.Exists(ctx, tx, event.ID)
	if err != nil {
		return false, fmt.Errorf("check webhook event: %w", err)
	}
	return exists, nil
}

func (s *checkoutServiceImpl) markProcessed(ctx context.Context, tx *gorm.DB, event *model.StripeWebhookEvent) error {
	if event.ID == "" {
		return nil
	}
	if err := s.webhookEventRepo.MarkProcessed(ctx, tx, event.ID, event.Type); err != nil {
		return fmt.Errorf("record webhook event: %w", err)
	}
	return nil
}

func (s *checkoutServiceImpl) providerErr(err error) error {
	if errors.Is(err, client.ErrStripeNotConfigured) {
		return ErrStripeNotReady
	}
	s.logger.Errorf("stripe request failed: %v", err)
	return ErrPaymentProvider.Wrap(err)
}

func decodeCheckoutObject(event *model.StripeWebhookEvent) (*model.StripeCheckoutObject, error) {
	var obj model.StripeCheckoutObject
	if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
		return nil, fmt.Errorf("decode checkout session object: %w", err)
	}
	if obj.ID == "" {
		return nil, fmt.Errorf("checkout session object has no id")
	}
	return &obj, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
