package repository

import (
	"carparts-storefront/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

// CheckoutSessionRepository owns the local Stripe checkout tracking records.
type CheckoutSessionRepository interface {
	Create(ctx context.Context, session *model.CheckoutSession) error
	AttachStripeSession(ctx context.Context, tx *gorm.DB, checkoutID int64, stripeSessionID string) error
	CreateItems(ctx context.Context, tx *gorm.DB, items []*model.CheckoutSessionItem) error
	FindByStripeID(ctx context.Context, tx *gorm.DB, stripeSessionID string) (*model.CheckoutSession, error)
	GetItems(ctx context.Context, tx *gorm.DB, checkoutID int64) ([]*model.CheckoutSessionItem, error)
	MarkPaid(ctx context.Context, tx *gorm.DB, stripeSessionID string, amountTotal *int64, currency *string) (bool, error)
	MarkExpired(ctx context.Context, tx *gorm.DB, stripeSessionID string) (bool, error)
	LinkOrder(ctx context.Context, tx *gorm.DB, checkoutID, orderID int64) error
}

type checkoutSessionRepoImpl struct {
	db *gorm.DB
}

func NewCheckoutSessionRepository(db *gorm.DB) CheckoutSessionRepository {
	return &checkoutSessionRepoImpl{db: db}
}

func (r *checkoutSessionRepoImpl) Create(ctx context.Context, session *model.CheckoutSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *checkoutSessionRepoImpl) AttachStripeSession(ctx context.Context, tx *gorm.DB, checkoutID int64, stripeSessionID string) error {
	return conn(r.db, tx).WithContext(ctx).Model(&model.CheckoutSession{}).
		Where("id = ?", checkoutID).
		Updates(map[string]interface{}{
			"stripe_session_id": stripeSessionID,
			"updated_at":        time.Now().UTC(),
		}).Error
}

func (r *checkoutSessionRepoImpl) CreateItems(ctx context.Context, tx *gorm.DB, items []*model.CheckoutSessionItem) error {
	if len(items) == 0 {
		return nil
	}
	return conn(r.db, tx).WithContext(ctx).Create(&items).Error
}

func (r *checkoutSessionRepoImpl) FindByStripeID(ctx context.Context, tx *gorm.DB, stripeSessionID string) (*model.CheckoutSession, error) {
	var session model.CheckoutSession
	err := conn(r.db, tx).WithContext(ctx).
		Where("stripe_session_id = ?", stripeSessionID).
		First(&session).Error

	if err != nil {
		return nil, err
	}

	return &session, nil
}

func (r *checkoutSessionRepoImpl) GetItems(ctx context.Context, tx *gorm.DB, checkoutID int64) ([]*model.CheckoutSessionItem, error) {
	var items []*model.CheckoutSessionItem
	err := conn(r.db, tx).WithContext(ctx).
		Where("checkout_session_id = ?", checkoutID).
		Order("id ASC").
		Find(&items).Error

	if err != nil {
		return nil, err
	}

	return items, nil
}

// MarkPaid moves a session to paid and fills amount/currency only where they
// are still NULL. It reports whether this call performed the transition;
// replays of an already-paid session change nothing and return false.
func (r *checkoutSessionRepoImpl) MarkPaid(ctx context.Context, tx *gorm.DB, stripeSessionID string, amountTotal *int64, currency *string) (bool, error) {
	res := conn(r.db, tx).WithContext(ctx).Model(&model.CheckoutSession{}).
		Where("stripe_session_id = ? AND status <> ?", stripeSessionID, model.CheckoutPaid).
		Updates(map[string]interface{}{
			"status":       model.CheckoutPaid,
			"amount_total": gorm.Expr("COALESCE(amount_total, ?)", amountTotal),
			"currency":     gorm.Expr("COALESCE(currency, ?)", currency),
			"updated_at":   time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

// MarkExpired only moves sessions that are still created; a paid session is
// never downgraded.
func (r *checkoutSessionRepoImpl) MarkExpired(ctx context.Context, tx *gorm.DB, stripeSessionID string) (bool, error) {
	res := conn(r.db, tx).WithContext(ctx).Model(&model.CheckoutSession{}).
		Where("stripe_session_id = ? AND status = ?", stripeSessionID, model.CheckoutCreated).
		Updates(map[string]interface{}{
			"status":     model.CheckoutExpired,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *checkoutSessionRepoImpl) LinkOrder(ctx context.Context, tx *gorm.DB, checkoutID, orderID int64) error {
	return conn(r.db, tx).WithContext(ctx).Model(&model.CheckoutSession{}).
		Where("id = ?", checkoutID).
		Update("order_id", orderID).Error
}
