package client

import (
	"carparts-storefront/internal/config"
	"carparts-storefront/internal/model"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

var ErrStripeNotConfigured = errors.New("stripe is not configured (missing STRIPE_SECRET_KEY)")

type StripeClient interface {
	CreateCheckoutSession(ctx context.Context, req *CreateCheckoutSessionRequest) (*model.StripeCheckoutObject, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*model.StripeCheckoutObject, error)
	CreateOneTimeCoupon(ctx context.Context, amountOff int64, currency string) (string, error)
}

type StripeLineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int
}

type CreateCheckoutSessionRequest struct {
	SuccessURL       string
	CancelURL        string
	Currency         string
	ClientReference  string
	Metadata         map[string]string
	LineItems        []StripeLineItem
	DiscountCouponID string
}

type stripeClientImpl struct {
	httpClient *http.Client
	baseApiURL string
	secretKey  string
}

func NewStripeClient(stripeCfg *config.Stripe) StripeClient {
	return &stripeClientImpl{
		httpClient: &http.Client{
			Timeout: stripeCfg.Timeout,
		},
		baseApiURL: strings.TrimRight(stripeCfg.BaseApiURL, "/"),
		secretKey:  stripeCfg.SecretKey,
	}
}

func (c *stripeClientImpl) CreateCheckoutSession(ctx context.Context, req *CreateCheckoutSessionRequest) (*model.StripeCheckoutObject, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	if req.ClientReference != "" {
		form.Set("client_reference_id", req.ClientReference)
	}
	for k, v := range req.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}
	for i, li := range req.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[price_data][currency]", req.Currency)
		form.Set(prefix+"[price_data][product_data][name]", li.Name)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(li.UnitAmount, 10))
		form.Set(prefix+"[quantity]", strconv.Itoa(li.Quantity))
	}
	if req.DiscountCouponID != "" {
		form.Set("discounts[0][coupon]", req.DiscountCouponID)
	}

	var result model.StripeCheckoutObject
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, &result); err != nil {
		return nil, fmt.Errorf("stripe create checkout session: %w", err)
	}
	if result.ID == "" || result.URL == "" {
		return nil, fmt.Errorf("stripe create checkout session: response missing id or url")
	}

	return &result, nil
}

func (c *stripeClientImpl) GetCheckoutSession(ctx context.Context, sessionID string) (*model.StripeCheckoutObject, error) {
	var result model.StripeCheckoutObject
	path := "/v1/checkout/sessions/" + url.PathEscape(sessionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("stripe get checkout session: %w", err)
	}
	return &result, nil
}

func (c *stripeClientImpl) CreateOneTimeCoupon(ctx context.Context, amountOff int64, currency string) (string, error) {
	form := url.Values{}
	form.Set("amount_off", strconv.FormatInt(amountOff, 10))
	form.Set("currency", currency)
	form.Set("duration", "once")
	form.Set("max_redemptions", "1")

	var result struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/coupons", form, &result); err != nil {
		return "", fmt.Errorf("stripe create coupon: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("stripe create coupon: response missing id")
	}
	return result.ID, nil
}

func (c *stripeClientImpl) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	if c.secretKey == "" {
		return ErrStripeNotConfigured
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseApiURL+path, body)
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var stripeErr model.StripeError
		if json.Unmarshal(respBody, &stripeErr) == nil && stripeErr.Error.Message != "" {
			return fmt.Errorf("stripe error %d (%s): %s", resp.StatusCode, stripeErr.Error.Type, stripeErr.Error.Message)
		}
		return fmt.Errorf("stripe error %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode stripe response: %w", err)
	}
	return nil
}
