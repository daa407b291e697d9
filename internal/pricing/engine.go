package pricing

import (
	"fmt"
	"strings"
)

// Price computes the authoritative totals of a cart. It is pure: the same items
// and coupon always produce the same result.
//
// The unit price used for discounts is the sale price when set. Commission is
// always computed from the base price, independently of sale prices and bulk
// discounts. The coupon applies to the bulk-discounted subtotal and the grand
// total never drops below zero.
func Price(items []TicketLineItem, coupon *AppliedCoupon) (PricingResult, error) {
	res := PricingResult{Lines: []LineResult{}, Events: []EventTotal{}}
	if coupon != nil {
		if err := ValidateCoupon(*coupon); err != nil {
			return PricingResult{}, err
		}
	}
	if len(items) == 0 {
		return res, nil
	}

	seen := make(map[LineKey]struct{}, len(items))
	eventIdx := make(map[string]int)
	for i, it := range items {
		if err := ValidateItem(it); err != nil {
			return PricingResult{}, indexed(i, err)
		}
		currency := strings.ToUpper(it.Currency)
		if res.Currency == "" {
			res.Currency = currency
		} else if currency != res.Currency {
			return PricingResult{}, invalid(fmt.Sprintf("items[%d].currency", i),
				"%s does not match cart currency %s", currency, res.Currency)
		}
		if _, dup := seen[it.Key()]; dup {
			return PricingResult{}, invalid(fmt.Sprintf("items[%d]", i),
				"duplicate line for event %s ticket type %s", it.EventID, it.TicketTypeID)
		}
		seen[it.Key()] = struct{}{}

		line, warnings, err := priceLine(it)
		if err != nil {
			return PricingResult{}, indexed(i, err)
		}
		res.Warnings = append(res.Warnings, warnings...)
		res.Lines = append(res.Lines, line)

		res.Subtotal += line.Subtotal
		res.BulkDiscountTotal += line.BulkDiscount
		res.CommissionTotal += line.Commission
		res.SaleSavingsTotal += line.SaleSavings
		if chargesCommission(it) {
			res.HasCommission = true
		}
		res.ItemCount += line.Quantity

		idx, ok := eventIdx[it.EventID]
		if !ok {
			idx = len(res.Events)
			eventIdx[it.EventID] = idx
			res.Events = append(res.Events, EventTotal{EventID: it.EventID})
		}
		ev := &res.Events[idx]
		ev.ItemCount += line.Quantity
		ev.Subtotal += line.Subtotal
		ev.BulkDiscount += line.BulkDiscount
		ev.DiscountedTotal += line.DiscountedTotal
		ev.Commission += line.Commission
	}

	discounted := res.BulkDiscountedSubtotal()
	if coupon != nil {
		res.CouponDiscountTotal = couponDiscount(*coupon, discounted)
	}
	res.GrandTotal = maxMoney(0, discounted+res.CommissionTotal-res.CouponDiscountTotal)
	return res, nil
}

func priceLine(it TicketLineItem) (LineResult, []ConfigurationError, error) {
	unit := it.UnitPrice()
	resolved, err := Resolve(it.Quantity, unit, it.BulkDiscounts)
	if err != nil {
		return LineResult{}, nil, err
	}
	for i := range resolved.Warnings {
		resolved.Warnings[i].EventID = it.EventID
		resolved.Warnings[i].TicketTypeID = it.TicketTypeID
	}

	line := LineResult{
		EventID:         it.EventID,
		TicketTypeID:    it.TicketTypeID,
		Name:            it.Name,
		Quantity:        it.Quantity,
		UnitPrice:       unit,
		Subtotal:        unit.Times(it.Quantity),
		BulkDiscount:    resolved.DiscountAmount,
		DiscountedTotal: resolved.DiscountedTotal,
		Commission:      commission(it),
	}
	if unit < it.BasePrice {
		line.SaleSavings = (it.BasePrice - unit).Times(it.Quantity)
	}
	if resolved.Applied != nil {
		line.AppliedRule = &AppliedRule{
			Kind:        resolved.Applied.Kind(),
			Description: resolved.Applied.Describe(it.Currency),
		}
	}
	return line, resolved.Warnings, nil
}

// commission is charged on top of the ticket price from the base price only.
func commission(it TicketLineItem) Money {
	if !chargesCommission(it) {
		return 0
	}
	return percentOf(it.BasePrice.Times(it.Quantity), it.CommissionRate) + it.CommissionFixed.Times(it.Quantity)
}

// chargesCommission reports whether the line is configured for commission on
// top, whatever the amount rounds to.
func chargesCommission(it TicketLineItem) bool {
	return it.HasCommissionOnTop && (it.CommissionRate.IsPositive() || it.CommissionFixed > 0)
}

func couponDiscount(c AppliedCoupon, base Money) Money {
	switch c.Type {
	case CouponPercentage:
		d := percentOf(base, c.Value)
		if c.MaxDiscount > 0 {
			d = minMoney(d, c.MaxDiscount)
		}
		return d
	case CouponFixed:
		return c.DiscountAmount
	}
	return 0
}

func indexed(i int, err error) error {
	if ve, ok := err.(*ValidationError); ok {
		field := fmt.Sprintf("items[%d]", i)
		if ve.Field != "" {
			field += "." + ve.Field
		}
		return &ValidationError{Field: field, Reason: ve.Reason}
	}
	return err
}
