package checkout

import (
	"context"
	"errors"

	"github.com/noah-isme/backend-tiket/internal/cart"
	"github.com/noah-isme/backend-tiket/internal/pricing"
)

// Reasons checkout can be blocked.
const (
	BlockEmptyCart         = "EMPTY_CART"
	BlockPricingValidation = "PRICING_VALIDATION"
)

// Carts is the part of the cart service checkout depends on.
type Carts interface {
	Get(ctx context.Context, cartID string) (cart.View, error)
}

// Totals is what gets attached to a submitted order.
type Totals struct {
	Currency       string        `json:"currency"`
	Subtotal       pricing.Money `json:"subtotal"`
	BulkDiscount   pricing.Money `json:"bulkDiscount"`
	Commission     pricing.Money `json:"commission"`
	CouponDiscount pricing.Money `json:"couponDiscount"`
	GrandTotal     pricing.Money `json:"grandTotal"`
	CouponCode     string        `json:"couponCode,omitempty"`
}

// Summary is the checkout view of a cart.
type Summary struct {
	CartID          string                   `json:"cartId"`
	Items           []pricing.TicketLineItem `json:"items"`
	Coupon          *pricing.AppliedCoupon   `json:"coupon,omitempty"`
	Pricing         *pricing.PricingResult   `json:"pricing,omitempty"`
	Totals          *Totals                  `json:"totals,omitempty"`
	CheckoutEnabled bool                     `json:"checkoutEnabled"`
	BlockReason     string                   `json:"blockReason,omitempty"`
	Validation      *pricing.ValidationError `json:"validation,omitempty"`
}

// Service builds checkout summaries. A cart that fails pricing validation is
// never offered for checkout.
type Service struct {
	Carts Carts
}

// Summary prices the cart and decides whether checkout may proceed. Only
// failures to load the cart are returned as errors.
func (s *Service) Summary(ctx context.Context, cartID string) (Summary, error) {
	if s == nil || s.Carts == nil {
		return Summary{}, errors.New("checkout service not configured")
	}
	view, err := s.Carts.Get(ctx, cartID)
	out := Summary{CartID: view.Cart.ID, Items: view.Cart.Items, Coupon: view.Cart.Coupon}
	if out.Items == nil {
		out.Items = []pricing.TicketLineItem{}
	}
	if err != nil {
		var ve *pricing.ValidationError
		if errors.As(err, &ve) {
			out.BlockReason = BlockPricingValidation
			out.Validation = ve
			return out, nil
		}
		return Summary{}, err
	}

	result := view.Pricing
	out.Pricing = &result
	if len(view.Cart.Items) == 0 {
		out.BlockReason = BlockEmptyCart
		return out, nil
	}
	out.Totals = &Totals{
		Currency:       result.Currency,
		Subtotal:       result.Subtotal,
		BulkDiscount:   result.BulkDiscountTotal,
		Commission:     result.CommissionTotal,
		CouponDiscount: result.CouponDiscountTotal,
		GrandTotal:     result.GrandTotal,
	}
	if view.Cart.Coupon != nil {
		out.Totals.CouponCode = view.Cart.Coupon.Code
	}
	out.CheckoutEnabled = true
	return out, nil
}
