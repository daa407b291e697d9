package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/backend-tiket/internal/coupon"
	"github.com/noah-isme/backend-tiket/internal/obs"
	"github.com/noah-isme/backend-tiket/internal/pricing"
)

var tracer = otel.Tracer("cart")

// Locker serialises mutations of one cart.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// View is a cart together with the totals computed from it.
type View struct {
	Cart    Cart                  `json:"cart"`
	Pricing pricing.PricingResult `json:"pricing"`
}

// Service loads, mutates and re-prices carts. Every mutation returns a freshly
// priced view so callers never show totals computed from an older cart.
type Service struct {
	Store   Store
	Locker  Locker
	LockTTL time.Duration
	Coupons coupon.Validator
	Logger  zerolog.Logger
	Now     func() time.Time
	NewID   func() string
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) lockTTL() time.Duration {
	if s.LockTTL <= 0 {
		return 5 * time.Second
	}
	return s.LockTTL
}

// Create stores a new empty cart.
func (s *Service) Create(ctx context.Context) (View, error) {
	if s == nil || s.Store == nil {
		return View{}, errors.New("cart service not configured")
	}
	now := s.now()
	c := Cart{ID: s.newID(), Items: []pricing.TicketLineItem{}, CreatedAt: now, UpdatedAt: now}
	err := s.Store.Save(ctx, c)
	obs.ObserveCartMutation("create", err)
	if err != nil {
		return View{}, fmt.Errorf("save cart: %w", err)
	}
	return s.view(ctx, c)
}

// Get loads and prices a cart.
func (s *Service) Get(ctx context.Context, cartID string) (View, error) {
	if s == nil || s.Store == nil {
		return View{}, errors.New("cart service not configured")
	}
	c, err := s.load(ctx, cartID)
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, c)
}

// AddItem adds tickets to the cart, merging with an existing line for the same
// event and ticket type.
func (s *Service) AddItem(ctx context.Context, cartID string, item pricing.TicketLineItem) (View, error) {
	return s.mutate(ctx, "add_item", cartID, func(c *Cart) error {
		return c.AddItem(item)
	})
}

// UpdateQuantity sets a line's quantity; zero or less removes it.
func (s *Service) UpdateQuantity(ctx context.Context, cartID string, key pricing.LineKey, qty int) (View, error) {
	return s.mutate(ctx, "update_quantity", cartID, func(c *Cart) error {
		return c.UpdateQuantity(key, qty)
	})
}

// RemoveItem drops a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, cartID string, key pricing.LineKey) (View, error) {
	return s.mutate(ctx, "remove_item", cartID, func(c *Cart) error {
		return c.RemoveItem(key)
	})
}

// Clear empties the cart. The coupon is kept unless clearCoupon is true.
func (s *Service) Clear(ctx context.Context, cartID string, clearCoupon bool) (View, error) {
	return s.mutate(ctx, "clear", cartID, func(c *Cart) error {
		c.Clear(clearCoupon)
		if c.Coupon != nil {
			s.logger(ctx).Warn().
				Str("cart_id", c.ID).
				Str("coupon", c.Coupon.Code).
				Msg("cart_cleared_coupon_kept")
		}
		return nil
	})
}

// ApplyCoupon asks the validation service about code and stores the accepted
// coupon. Nothing changes when validation fails. The call runs outside the
// cart lock, so the coupon is only stored if the cart still prices the same as
// the snapshot that was validated; otherwise ErrChanged is returned.
func (s *Service) ApplyCoupon(ctx context.Context, cartID, code string) (View, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return View{}, fmt.Errorf("coupon code is required: %w", ErrInvalidInput)
	}
	if s == nil || s.Store == nil {
		return View{}, errors.New("cart service not configured")
	}
	validator := s.Coupons
	if validator == nil {
		validator = coupon.Disabled{}
	}

	snapshot, err := s.Get(ctx, cartID)
	if err != nil {
		return View{}, err
	}
	req := coupon.Request{
		Code:      code,
		CartID:    cartID,
		Currency:  snapshot.Pricing.Currency,
		Subtotal:  snapshot.Pricing.BulkDiscountedSubtotal(),
		ItemCount: snapshot.Pricing.ItemCount,
		EventIDs:  make([]string, 0, len(snapshot.Pricing.Events)),
	}
	for _, ev := range snapshot.Pricing.Events {
		req.EventIDs = append(req.EventIDs, ev.EventID)
	}
	applied, err := validator.Validate(ctx, req)
	if err != nil {
		obs.ObserveCartMutation("apply_coupon", err)
		return View{}, err
	}
	return s.mutate(ctx, "apply_coupon", cartID, func(c *Cart) error {
		current, err := c.Price()
		if err != nil {
			return err
		}
		if current.Currency != req.Currency ||
			current.BulkDiscountedSubtotal() != req.Subtotal ||
			current.ItemCount != req.ItemCount {
			return fmt.Errorf("%w: subtotal %d, validated %d", ErrChanged, current.BulkDiscountedSubtotal(), req.Subtotal)
		}
		c.SetCoupon(applied)
		return nil
	})
}

// RemoveCoupon detaches the applied coupon.
func (s *Service) RemoveCoupon(ctx context.Context, cartID string) (View, error) {
	return s.mutate(ctx, "remove_coupon", cartID, func(c *Cart) error {
		c.ClearCoupon()
		return nil
	})
}

// Delete removes the cart from the store.
func (s *Service) Delete(ctx context.Context, cartID string) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	err := s.Store.Delete(ctx, cartID)
	obs.ObserveCartMutation("delete", err)
	return err
}

// mutate applies fn to a copy of the stored cart under the cart's lock. The copy
// is saved only if fn succeeds and the result still prices.
func (s *Service) mutate(ctx context.Context, op, cartID string, fn func(*Cart) error) (View, error) {
	if s == nil || s.Store == nil {
		return View{}, errors.New("cart service not configured")
	}
	ctx, span := tracer.Start(ctx, "cart."+op)
	span.SetAttributes(attribute.String("cart.id", cartID))
	defer span.End()

	var out View
	run := func(ctx context.Context) error {
		stored, err := s.load(ctx, cartID)
		if err != nil {
			return err
		}
		next := stored.clone()
		if err := fn(&next); err != nil {
			return err
		}
		result, err := next.Price()
		if err != nil {
			return err
		}
		next.UpdatedAt = s.now()
		if err := s.Store.Save(ctx, next); err != nil {
			return fmt.Errorf("save cart: %w", err)
		}
		s.observe(ctx, "cart", next.ID, result)
		out = View{Cart: next, Pricing: result}
		return nil
	}

	var err error
	if s.Locker != nil {
		err = s.Locker.WithLock(ctx, cartID, s.lockTTL(), run)
	} else {
		err = run(ctx)
	}
	obs.ObserveCartMutation(op, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return View{}, err
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, cartID string) (Cart, error) {
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return Cart{}, fmt.Errorf("cart id is required: %w", ErrInvalidInput)
	}
	c, err := s.Store.Load(ctx, cartID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Cart{}, err
		}
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}
	return c, nil
}

func (s *Service) view(ctx context.Context, c Cart) (View, error) {
	result, err := c.Price()
	if err != nil {
		obs.ObservePricing("cart", "invalid", "", 0, nil)
		return View{Cart: c}, err
	}
	s.observe(ctx, "cart", c.ID, result)
	return View{Cart: c, Pricing: result}, nil
}

func (s *Service) observe(ctx context.Context, surface, cartID string, result pricing.PricingResult) {
	ObservePricing(s.logger(ctx), surface, cartID, result)
}

func (s *Service) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.Logger
}

// ObservePricing logs skipped discount rules and records pricing metrics.
func ObservePricing(logger *zerolog.Logger, surface, cartID string, result pricing.PricingResult) {
	kinds := make([]string, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		kinds = append(kinds, w.Rule)
		logger.Warn().
			Str("surface", surface).
			Str("cart_id", cartID).
			Str("event_id", w.EventID).
			Str("ticket_type_id", w.TicketTypeID).
			Str("rule_type", w.Rule).
			Int("rule_index", w.Index).
			Str("reason", w.Reason).
			Msg("discount_rule_misconfigured")
	}
	obs.ObservePricing(surface, "ok", result.Currency, int64(result.GrandTotal), kinds)
}
