package pricing

import "github.com/shopspring/decimal"

// TicketLineItem is one (event, ticket type) entry in a cart.
type TicketLineItem struct {
	EventID      string `json:"eventId" validate:"required"`
	TicketTypeID string `json:"ticketTypeId" validate:"required"`
	Name         string `json:"name,omitempty"`
	BasePrice    Money  `json:"basePrice" validate:"min=0"`
	// SalePrice, when set, replaces BasePrice for discount resolution only.
	SalePrice          *Money          `json:"salePrice,omitempty" validate:"omitempty,min=0"`
	Quantity           int             `json:"quantity" validate:"min=1"`
	Currency           string          `json:"currency" validate:"required,len=3,alpha"`
	CommissionRate     decimal.Decimal `json:"commissionRate" validate:"min=0,max=100"`
	CommissionFixed    Money           `json:"commissionFixed,omitempty" validate:"min=0"`
	HasCommissionOnTop bool            `json:"hasCommissionOnTop"`
	BulkDiscounts      Rules           `json:"bulkDiscounts"`
}

// Key identifies the line inside a cart.
func (it TicketLineItem) Key() LineKey {
	return LineKey{EventID: it.EventID, TicketTypeID: it.TicketTypeID}
}

// UnitPrice is the sale price when one is set, the base price otherwise.
func (it TicketLineItem) UnitPrice() Money {
	if it.SalePrice != nil {
		return *it.SalePrice
	}
	return it.BasePrice
}

// LineKey is the identity of a line item.
type LineKey struct {
	EventID      string `json:"eventId"`
	TicketTypeID string `json:"ticketTypeId"`
}

// CouponType selects how a coupon's discount is computed.
type CouponType string

const (
	CouponPercentage CouponType = "percentage"
	CouponFixed      CouponType = "fixed"
)

// AppliedCoupon is a coupon already accepted by the coupon-validation service.
type AppliedCoupon struct {
	Code string     `json:"code" validate:"required"`
	Name string     `json:"name,omitempty"`
	Type CouponType `json:"type" validate:"required,oneof=percentage fixed"`
	// Value is the percentage for percentage coupons. Fixed coupons may carry
	// their amount here too; only DiscountAmount is used to price them.
	Value decimal.Decimal `json:"value" validate:"min=0"`
	// DiscountAmount is the amount for fixed coupons.
	DiscountAmount Money `json:"discountAmount" validate:"min=0"`
	// MaxDiscount caps a percentage coupon when positive.
	MaxDiscount Money `json:"maxDiscount,omitempty" validate:"min=0"`
}

// AppliedRule describes the bulk discount that won for a line.
type AppliedRule struct {
	Kind        RuleKind `json:"kind"`
	Description string   `json:"description"`
}

// LineResult is the per-line breakdown of a priced cart.
type LineResult struct {
	EventID         string       `json:"eventId"`
	TicketTypeID    string       `json:"ticketTypeId"`
	Name            string       `json:"name,omitempty"`
	Quantity        int          `json:"quantity"`
	UnitPrice       Money        `json:"unitPrice"`
	Subtotal        Money        `json:"subtotal"`
	BulkDiscount    Money        `json:"bulkDiscount"`
	DiscountedTotal Money        `json:"discountedTotal"`
	Commission      Money        `json:"commission"`
	SaleSavings     Money        `json:"saleSavings"`
	AppliedRule     *AppliedRule `json:"appliedRule,omitempty"`
}

// EventTotal groups line totals per event, in the order events first appear in the cart.
type EventTotal struct {
	EventID         string `json:"eventId"`
	ItemCount       int    `json:"itemCount"`
	Subtotal        Money  `json:"subtotal"`
	BulkDiscount    Money  `json:"bulkDiscount"`
	DiscountedTotal Money  `json:"discountedTotal"`
	Commission      Money  `json:"commission"`
}

// PricingResult is the single authoritative total of a cart.
type PricingResult struct {
	Subtotal            Money                `json:"subtotal"`
	BulkDiscountTotal   Money                `json:"bulkDiscountTotal"`
	CommissionTotal     Money                `json:"commissionTotal"`
	CouponDiscountTotal Money                `json:"couponDiscountTotal"`
	GrandTotal          Money                `json:"grandTotal"`
	Currency            string               `json:"currency"`
	HasCommission       bool                 `json:"hasCommission"`
	SaleSavingsTotal    Money                `json:"saleSavingsTotal"`
	ItemCount           int                  `json:"itemCount"`
	Lines               []LineResult         `json:"lines"`
	Events              []EventTotal         `json:"events"`
	Warnings            []ConfigurationError `json:"warnings,omitempty"`
}

// BulkDiscountedSubtotal is the subtotal after bulk discounts and before commission and coupon.
func (r PricingResult) BulkDiscountedSubtotal() Money {
	return r.Subtotal - r.BulkDiscountTotal
}
