package coupon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-tiket/internal/obs"
	"github.com/noah-isme/backend-tiket/internal/pricing"
	"github.com/noah-isme/backend-tiket/internal/resilience"
)

var (
	// ErrRejected means the validation service refused the code for this cart.
	ErrRejected = errors.New("coupon rejected")
	// ErrUnavailable means the validation service could not be reached.
	ErrUnavailable = errors.New("coupon validation unavailable")
)

// Request is the cart snapshot sent along with a coupon code.
type Request struct {
	Code      string        `json:"code"`
	CartID    string        `json:"cartId,omitempty"`
	Currency  string        `json:"currency"`
	Subtotal  pricing.Money `json:"subtotal"`
	ItemCount int           `json:"itemCount"`
	EventIDs  []string      `json:"eventIds"`
}

// Validator resolves a coupon code into an applied coupon.
type Validator interface {
	Validate(ctx context.Context, req Request) (pricing.AppliedCoupon, error)
}

// Disabled is used when no validation service is configured.
type Disabled struct{}

func (Disabled) Validate(context.Context, Request) (pricing.AppliedCoupon, error) {
	return pricing.AppliedCoupon{}, fmt.Errorf("no validation endpoint configured: %w", ErrUnavailable)
}

// HTTPValidator calls a remote coupon validation endpoint.
type HTTPValidator struct {
	Endpoint string
	Client   resilience.HTTPClient
	Logger   zerolog.Logger
}

// Options configures NewHTTPValidator.
type Options struct {
	Endpoint    string
	Timeout     time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	Logger      zerolog.Logger
}

// NewHTTPValidator builds a validator with an instrumented transport and a circuit breaker.
func NewHTTPValidator(opts Options) *HTTPValidator {
	breaker := resilience.NewBreaker(5, 0.5, 30*time.Second).
		WithTarget("coupon_validation").
		WithLogger(opts.Logger)
	return &HTTPValidator{
		Endpoint: strings.TrimSpace(opts.Endpoint),
		Logger:   opts.Logger,
		Client: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker:     breaker,
			MaxAttempts: opts.MaxAttempts,
			BaseBackoff: opts.BaseBackoff,
			Jitter:      0.2,
			Timeout:     opts.Timeout,
		},
	}
}

type validateResponse struct {
	Valid  bool                   `json:"valid"`
	Reason string                 `json:"reason"`
	Coupon *pricing.AppliedCoupon `json:"coupon"`
}

// Validate posts the request and decodes the verdict. A coupon counts as
// applied only once this returns without error.
func (v *HTTPValidator) Validate(ctx context.Context, req Request) (pricing.AppliedCoupon, error) {
	start := time.Now()
	coupon, err := v.validate(ctx, req)
	observe(err, time.Since(start))
	if err != nil {
		v.Logger.Warn().Err(err).Str("code", req.Code).Str("cart_id", req.CartID).Msg("coupon_validation_failed")
	}
	return coupon, err
}

func (v *HTTPValidator) validate(ctx context.Context, req Request) (pricing.AppliedCoupon, error) {
	if v.Endpoint == "" {
		return pricing.AppliedCoupon{}, fmt.Errorf("no validation endpoint configured: %w", ErrUnavailable)
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return pricing.AppliedCoupon{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return pricing.AppliedCoupon{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := v.Client.Do(ctx, httpReq)
	if err != nil {
		return pricing.AppliedCoupon{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var body validateResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnprocessableEntity:
		return pricing.AppliedCoupon{}, rejection(body.Reason)
	case resp.StatusCode >= 300:
		return pricing.AppliedCoupon{}, fmt.Errorf("%w: unexpected status %s", ErrUnavailable, resp.Status)
	case decodeErr != nil:
		return pricing.AppliedCoupon{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, decodeErr)
	case !body.Valid:
		return pricing.AppliedCoupon{}, rejection(body.Reason)
	case body.Coupon == nil:
		return pricing.AppliedCoupon{}, fmt.Errorf("%w: response missing coupon", ErrUnavailable)
	}

	coupon := *body.Coupon
	if coupon.Code == "" {
		coupon.Code = req.Code
	}
	if err := pricing.ValidateCoupon(coupon); err != nil {
		return pricing.AppliedCoupon{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return coupon, nil
}

func rejection(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrRejected
	}
	return fmt.Errorf("%w: %s", ErrRejected, reason)
}

func observe(err error, elapsed time.Duration) {
	result := "applied"
	switch {
	case errors.Is(err, ErrRejected):
		result = "rejected"
	case err != nil:
		result = "error"
	}
	if obs.CouponValidationTotal != nil {
		obs.CouponValidationTotal.WithLabelValues(result).Inc()
	}
	if obs.CouponValidationLatency != nil {
		obs.CouponValidationLatency.Observe(obs.DurationMillis(elapsed))
	}
}
