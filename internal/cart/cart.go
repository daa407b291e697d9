package cart

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/backend-tiket/internal/pricing"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrItemNotFound indicates the cart holds no line for the given event and ticket type.
var ErrItemNotFound = errors.New("cart item not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// ErrChanged means the cart was modified while a coupon was being validated
// against an earlier snapshot of it.
var ErrChanged = errors.New("cart changed during coupon validation")

// Cart is the stored state of one shopper's ticket selection. At most one line
// exists per (event, ticket type).
type Cart struct {
	ID        string                   `json:"id"`
	Items     []pricing.TicketLineItem `json:"items"`
	Coupon    *pricing.AppliedCoupon   `json:"coupon,omitempty"`
	CreatedAt time.Time                `json:"createdAt"`
	UpdatedAt time.Time                `json:"updatedAt"`
}

func (c *Cart) indexOf(key pricing.LineKey) int {
	for i, it := range c.Items {
		if it.Key() == key {
			return i
		}
	}
	return -1
}

// Currency returns the currency shared by the cart's lines, or "" for an empty cart.
func (c *Cart) Currency() string {
	if len(c.Items) == 0 {
		return ""
	}
	return strings.ToUpper(c.Items[0].Currency)
}

// AddItem appends a line, or merges it into the existing line for the same key by
// summing quantities. A merge takes the incoming prices and rules since they are
// the freshest catalog data.
func (c *Cart) AddItem(item pricing.TicketLineItem) error {
	if item.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive: %w", ErrInvalidInput)
	}
	if err := pricing.ValidateItem(item); err != nil {
		return err
	}
	if cur := c.Currency(); cur != "" && !strings.EqualFold(cur, item.Currency) {
		return &pricing.ValidationError{
			Field:  "currency",
			Reason: fmt.Sprintf("%s does not match cart currency %s", strings.ToUpper(item.Currency), cur),
		}
	}
	if idx := c.indexOf(item.Key()); idx >= 0 {
		item.Quantity += c.Items[idx].Quantity
		c.Items[idx] = item
		return nil
	}
	c.Items = append(c.Items, item)
	return nil
}

// UpdateQuantity sets the quantity of an existing line. A quantity of zero or
// less removes the line.
func (c *Cart) UpdateQuantity(key pricing.LineKey, qty int) error {
	idx := c.indexOf(key)
	if idx < 0 {
		return ErrItemNotFound
	}
	if qty <= 0 {
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
		return nil
	}
	c.Items[idx].Quantity = qty
	return nil
}

// RemoveItem drops the line for key.
func (c *Cart) RemoveItem(key pricing.LineKey) error {
	idx := c.indexOf(key)
	if idx < 0 {
		return ErrItemNotFound
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	return nil
}

// Clear empties the cart. The applied coupon survives unless clearCoupon is set.
func (c *Cart) Clear(clearCoupon bool) {
	c.Items = nil
	if clearCoupon {
		c.Coupon = nil
	}
}

// SetCoupon replaces the applied coupon.
func (c *Cart) SetCoupon(coupon pricing.AppliedCoupon) {
	c.Coupon = &coupon
}

// ClearCoupon removes the applied coupon.
func (c *Cart) ClearCoupon() {
	c.Coupon = nil
}

// Price computes the cart's totals.
func (c *Cart) Price() (pricing.PricingResult, error) {
	return pricing.Price(c.Items, c.Coupon)
}

// clone copies the cart so a failed mutation leaves the original untouched.
func (c Cart) clone() Cart {
	out := c
	out.Items = append([]pricing.TicketLineItem(nil), c.Items...)
	if c.Coupon != nil {
		cp := *c.Coupon
		out.Coupon = &cp
	}
	return out
}
