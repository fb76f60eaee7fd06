package model

import "encoding/json"

const (
	StripeEventCheckoutCompleted = "checkout.session.completed"
	StripeEventCheckoutExpired   = "checkout.session.expired"
)

type StripeCheckoutObject struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"payment_status"`
	Status        string            `json:"status"`
	AmountTotal   *int64            `json:"amount_total"`
	Currency      *string           `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

type StripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type StripeWebhookEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    StripeEventData `json:"data"`
}

type StripeError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
