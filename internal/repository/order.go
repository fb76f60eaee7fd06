package repository

import (
	"carparts-storefront/internal/model"
	"carparts-storefront/internal/query"
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
)

var orderListSpec = &query.Spec{
	Table: "orders o",
	Select: []string{
		"o.id", "o.user_id", "u.name AS user_name", "u.email AS user_email",
		"o.status", "o.total_amount", "o.currency", "o.created_at",
	},
	Joins: []string{"LEFT JOIN users u ON u.id = o.user_id"},
	Filters: []query.Filter{
		{Param: "status", Column: "o.status", Kind: query.Enum, Allowed: orderStatusValues()},
		{Param: "user_id", Column: "o.user_id", Kind: query.ID},
		{Param: "date_from", Column: "o.created_at", Kind: query.DateFrom},
		{Param: "date_to", Column: "o.created_at", Kind: query.DateTo},
		{Param: "q", Kind: query.Custom, Apply: func(db *gorm.DB, raw string) (*gorm.DB, bool) {
			pattern := "%" + query.EscapeLike(strings.ToLower(raw)) + "%"
			return db.Where(
				"o.user_id IN (SELECT id FROM users WHERE LOWER(name) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!')",
				pattern, pattern,
			), true
		}},
	},
	Sorts: map[string]string{
		"newest":     "o.created_at DESC",
		"oldest":     "o.created_at ASC",
		"total_desc": "o.total_amount DESC",
		"total_asc":  "o.total_amount ASC",
	},
	DefaultSort: "newest",
	TieBreaker:  "o.id DESC",
}

func orderStatusValues() []string {
	out := make([]string, len(model.OrderStatuses))
	for i, s := range model.OrderStatuses {
		out[i] = string(s)
	}
	return out
}

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	FindByID(ctx context.Context, orderID int64) (*model.Order, error)
	FindSummary(ctx context.Context, orderID int64) (*model.OrderSummary, error)
	List(ctx context.Context, params query.Params) (*query.Page[model.OrderSummary], error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]*model.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error
	CreateOrderItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error
	GetOrderItems(ctx context.Context, tx *gorm.DB, orderID int64) ([]*model.OrderItem, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	return conn(r.db, tx).WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) FindByID(ctx context.Context, orderID int64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindSummary(ctx context.Context, orderID int64) (*model.OrderSummary, error) {
	var summary model.OrderSummary
	err := r.db.WithContext(ctx).Table(orderListSpec.Table).
		Select(orderListSpec.Select).
		Joins(orderListSpec.Joins[0]).
		Where("o.id = ?", orderID).
		Take(&summary).Error

	if err != nil {
		return nil, err
	}

	return &summary, nil
}

func (r *orderRepoImpl) List(ctx context.Context, params query.Params) (*query.Page[model.OrderSummary], error) {
	return query.Run[model.OrderSummary](ctx, r.db, orderListSpec, params)
}

func (r *orderRepoImpl) ListByUser(ctx context.Context, userID int64, limit int) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&orders).Error

	if err != nil {
		return nil, err
	}

	return orders, nil
}

// UpdateStatus sets any status regardless of the current one.
func (r *orderRepoImpl) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	found, err := exists(ctx, r.db, &model.Order{}, orderID)
	if err != nil {
		return err
	}
	if !found {
		return gorm.ErrRecordNotFound
	}

	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *orderRepoImpl) CreateOrderItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return conn(r.db, tx).WithContext(ctx).Create(&items).Error
}

func (r *orderRepoImpl) GetOrderItems(ctx context.Context, tx *gorm.DB, orderID int64) ([]*model.OrderItem, error) {
	var items []*model.OrderItem
	err := conn(r.db, tx).WithContext(ctx).Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&items).Error

	if err != nil {
		return nil, err
	}

	return items, nil
}
