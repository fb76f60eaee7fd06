package client

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrSignatureHeader  = errors.New("invalid Stripe-Signature header")
	ErrSignatureInvalid = errors.New("signature verification failed")
	ErrTimestampExpired = errors.New("webhook timestamp outside tolerance")
)

// VerifyWebhookSignature checks a Stripe-Signature header ("t=...,v1=...,v1=...")
// against HMAC-SHA256(secret, "{t}.{payload}").
func VerifyWebhookSignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	// compared as a window in seconds so far-off timestamps cannot overflow
	skew := int64(tolerance / time.Second)
	if timestamp < now.Unix()-skew || timestamp > now.Unix()+skew {
		return ErrTimestampExpired
	}

	expected := ComputeWebhookSignature(payload, timestamp, secret)
	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return ErrSignatureInvalid
}

// ComputeWebhookSignature returns the hex v1 signature for payload at timestamp.
func ComputeWebhookSignature(payload []byte, timestamp int64, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func parseSignatureHeader(header string) (int64, []string, error) {
	var (
		timestamp  int64
		haveTS     bool
		signatures []string
	)

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, ErrSignatureHeader
			}
			timestamp, haveTS = ts, true
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if !haveTS || len(signatures) == 0 {
		return 0, nil, ErrSignatureHeader
	}
	return timestamp, signatures, nil
}
