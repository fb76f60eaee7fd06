package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderCancelled OrderStatus = "cancelled"
	OrderRefunded  OrderStatus = "refunded"
)

var OrderStatuses = []OrderStatus{OrderPending, OrderPaid, OrderShipped, OrderCancelled, OrderRefunded}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type Order struct {
	ID                int64           `gorm:"primaryKey" json:"id"`
	UserID            int64           `gorm:"index;not null" json:"user_id"`
	Status            OrderStatus     `gorm:"size:16;index;not null" json:"status"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Currency          string          `gorm:"size:8" json:"currency,omitempty"`
	CheckoutSessionID *int64          `gorm:"index" json:"-"`
	CreatedAt         time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time       `json:"-"`
}

type OrderItem struct {
	ID          int64           `gorm:"primaryKey" json:"id"`
	OrderID     int64           `gorm:"index;not null" json:"-"`
	ProductID   int64           `gorm:"index;not null" json:"product_id"`
	ProductName string          `gorm:"size:255" json:"product_name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
}

type CheckoutStatus string

const (
	CheckoutCreated CheckoutStatus = "created"
	CheckoutPaid    CheckoutStatus = "paid"
	CheckoutExpired CheckoutStatus = "expired"
)

// CheckoutSession tracks one hosted Stripe checkout from creation to reconciliation.
// Amounts are in minor units.
type CheckoutSession struct {
	ID              int64          `gorm:"primaryKey"`
	UserID          int64          `gorm:"index;not null"`
	StripeSessionID string         `gorm:"size:255;index;not null"`
	Status          CheckoutStatus `gorm:"size:16;index;not null"`
	AmountTotal     *int64
	Currency        *string `gorm:"size:8"`
	CouponCode      *string `gorm:"size:64"`
	DiscountAmount  int64   `gorm:"not null"`
	OrderID         *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (CheckoutSession) TableName() string { return "stripe_checkout_sessions" }

type CheckoutSessionItem struct {
	ID                int64  `gorm:"primaryKey"`
	CheckoutSessionID int64  `gorm:"index;not null"`
	ProductID         int64  `gorm:"not null"`
	NameSnapshot      string `gorm:"size:255;not null"`
	UnitAmount        int64  `gorm:"not null"`
	Quantity          int    `gorm:"not null"`
}

func (CheckoutSessionItem) TableName() string { return "stripe_checkout_session_items" }

// OrderSummary is an order joined with its owner's name and email.
type OrderSummary struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	UserName    *string         `json:"user_name"`
	UserEmail   *string         `json:"user_email"`
	Status      OrderStatus     `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CategorySummary is one row of the public categories listing.
type CategorySummary struct {
	Category     string `json:"category"`
	Slug         string `json:"slug" gorm:"-"`
	ProductCount int64  `json:"product_count"`
}
