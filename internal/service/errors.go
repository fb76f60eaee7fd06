package service

import (
	"fmt"
	"strings"

	"carparts-storefront/internal/apperr"
)

const (
	CodeCouponNotFound       = "coupon_not_found"
	CodeUsageLimitReached    = "usage_limit_reached"
	CodeInvalidCoupon        = "invalid_coupon"
	CodeProductNotFound      = "product_not_found"
	CodePaymentProviderError = "payment_provider_error"
	CodeSignatureInvalid     = "signature_invalid"
	CodeTimestampExpired     = "timestamp_expired"
)

var (
	ErrAuthRequired       = apperr.Unauthenticated("Authentication required")
	ErrSessionUserGone    = apperr.Unauthenticated("User not found")
	ErrAdminRequired      = apperr.Forbidden("Admin privileges required")
	ErrInvalidCredentials = apperr.Unauthenticated("Invalid email or password")
	ErrEmailTaken         = apperr.Conflict("Email is already registered")

	ErrCouponNotFound    = apperr.New(apperr.KindNotFound, CodeCouponNotFound, "Coupon not found or not currently valid")
	ErrUsageLimitReached = apperr.New(apperr.KindValidation, CodeUsageLimitReached, "Coupon usage limit reached")
	ErrInvalidCoupon     = apperr.New(apperr.KindValidation, CodeInvalidCoupon, "Coupon has invalid discount value")

	ErrProductNotFound  = apperr.New(apperr.KindValidation, CodeProductNotFound, "Product not found")
	ErrPaymentProvider  = apperr.New(apperr.KindUpstream, CodePaymentProviderError, "Payment provider error")
	ErrStripeNotReady   = apperr.New(apperr.KindUpstream, CodePaymentProviderError, "Stripe is not configured")
	ErrSignatureInvalid = apperr.New(apperr.KindValidation, CodeSignatureInvalid, "Signature verification failed")
	ErrSignatureHeader  = apperr.New(apperr.KindValidation, CodeSignatureInvalid, "Invalid Stripe-Signature header")
	ErrTimestampExpired = apperr.New(apperr.KindValidation, CodeTimestampExpired, "Webhook timestamp outside tolerance")
)

func productNotFound(productID int64) error {
	return apperr.New(apperr.KindValidation, CodeProductNotFound, fmt.Sprintf("Product not found: id=%d", productID))
}

func storageErr(message string, err error) error {
	return apperr.Storage(message, err)
}

// validationErr returns nil when msgs is empty.
func validationErr(msgs []string) error {
	if len(msgs) == 0 {
		return nil
	}
	return apperr.Validation("Validation failed", msgs...)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
