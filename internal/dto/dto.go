package dto

import (
	"carparts-storefront/internal/model"

	"github.com/shopspring/decimal"
)

// -------- auth / account --------

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email,max=191"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProfileInput struct {
	Gender      string `json:"gender" validate:"omitempty,oneof=male female other"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
}

type VehicleInput struct {
	Year   int    `json:"year" validate:"omitempty,gte=1900,lte=2100"`
	Make   string `json:"make" validate:"max=64"`
	Model  string `json:"model" validate:"max=64"`
	Engine string `json:"engine" validate:"max=64"`
}

type AddressInput struct {
	AddressLine1 string `json:"address_line1" validate:"max=255"`
	Apartment    string `json:"apartment" validate:"max=64"`
	City         string `json:"city" validate:"max=120"`
	PostalCode   string `json:"postal_code" validate:"max=32"`
	Country      string `json:"country" validate:"max=64"`
}

type UpdateMeRequest struct {
	Name    string        `json:"name" validate:"required,max=120"`
	Profile *ProfileInput `json:"profile"`
	Vehicle *VehicleInput `json:"vehicle"`
	Address *AddressInput `json:"address"`
}

type MeResponse struct {
	User    *model.User        `json:"user"`
	Profile *model.UserProfile `json:"profile"`
	Vehicle *model.UserVehicle `json:"vehicle"`
	Address *model.UserAddress `json:"address"`
}

// -------- coupons --------

type CouponValidateRequest struct {
	Code       string          `json:"code" validate:"required"`
	OrderTotal decimal.Decimal `json:"order_total"`
}

type CouponValidateResponse struct {
	Code           string             `json:"code"`
	DiscountType   model.DiscountType `json:"discount_type"`
	DiscountValue  decimal.Decimal    `json:"discount_value"`
	OrderTotal     decimal.Decimal    `json:"order_total"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	FinalTotal     decimal.Decimal    `json:"final_total"`
}

// CouponRequest serves both create and update. Dates accept YYYY-MM-DD,
// "YYYY-MM-DD HH:MM:SS" or RFC 3339; empty means unbounded.
type CouponRequest struct {
	Code          string          `json:"code" validate:"required,max=64"`
	DiscountType  string          `json:"discount_type" validate:"required,oneof=percent fixed"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	ValidFrom     string          `json:"valid_from"`
	ValidTo       string          `json:"valid_to"`
	IsActive      *bool           `json:"is_active"`
	UsageLimit    *int            `json:"usage_limit"`
}

// -------- checkout --------

type CheckoutItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type CheckoutRequest struct {
	Items      []CheckoutItem `json:"items" validate:"required,min=1"`
	SuccessURL string         `json:"success_url" validate:"omitempty,url"`
	CancelURL  string         `json:"cancel_url" validate:"omitempty,url"`
	CouponCode string         `json:"coupon_code" validate:"max=64"`
}

type CheckoutResponse struct {
	CheckoutURL     string `json:"checkout_url"`
	StripeSessionID string `json:"stripe_session_id"`
	AmountTotal     int64  `json:"amount_total"`
	Currency        string `json:"currency"`
	DiscountAmount  int64  `json:"discount_amount,omitempty"`
	// TrackingError reports a failed local bookkeeping write; the checkout
	// itself succeeded at the provider.
	TrackingError string `json:"tracking_error,omitempty"`
}

type SessionStatusResponse struct {
	ID            string  `json:"id"`
	PaymentStatus string  `json:"payment_status"`
	AmountTotal   *int64  `json:"amount_total"`
	Currency      *string `json:"currency"`
}

// -------- admin --------

type ProductRequest struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Brand       string          `json:"brand" validate:"required,max=120"`
	Category    string          `json:"category" validate:"required,max=120"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    *string         `json:"image_url" validate:"omitempty,max=512"`
}

type UserUpdateRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	Email      string `json:"email" validate:"required,email,max=191"`
	Role       string `json:"role" validate:"omitempty,oneof=user admin"`
	IsVerified *bool  `json:"is_verified"`
}

type OrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type OrderDetailResponse struct {
	Order      *model.OrderSummary `json:"order"`
	Items      []*model.OrderItem  `json:"items"`
	ItemsError string              `json:"items_error,omitempty"`
}

type UserDetailResponse struct {
	User        *model.User    `json:"user"`
	Orders      []*model.Order `json:"orders"`
	OrdersError string         `json:"orders_error,omitempty"`
}

// -------- envelopes --------

type PageResponse struct {
	Status     string      `json:"status"`
	Page       int         `json:"page"`
	PerPage    int         `json:"per_page"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"total_pages"`
	Data       interface{} `json:"data"`
}

type ErrorResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}
