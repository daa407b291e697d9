package pricing

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func money(v Money) *Money { return &v }

func line(event, ticket string, qty int, base Money) TicketLineItem {
	return TicketLineItem{
		EventID:      event,
		TicketTypeID: ticket,
		BasePrice:    base,
		Quantity:     qty,
		Currency:     "RON",
	}
}

func TestPriceSaleCommissionFromBasePrice(t *testing.T) {
	it := line("ev-1", "vip", 3, 100)
	it.SalePrice = money(80)
	it.HasCommissionOnTop = true
	it.CommissionRate = decimal.NewFromInt(10)

	res, err := Price([]TicketLineItem{it}, nil)
	require.NoError(t, err)
	require.Equal(t, Money(240), res.Subtotal)
	require.Equal(t, Money(30), res.CommissionTotal)
	require.Equal(t, Money(270), res.GrandTotal)
	require.True(t, res.HasCommission)
	require.Equal(t, Money(60), res.SaleSavingsTotal)
	require.Equal(t, "RON", res.Currency)
}

func TestPriceFixedCouponClampsGrandTotal(t *testing.T) {
	it := line("ev-1", "ga", 2, 100)
	coupon := &AppliedCoupon{Code: "BIG", Type: CouponFixed, DiscountAmount: 500}

	res, err := Price([]TicketLineItem{it}, coupon)
	require.NoError(t, err)
	require.Equal(t, Money(200), res.BulkDiscountedSubtotal())
	require.Equal(t, Money(500), res.CouponDiscountTotal)
	require.Zero(t, res.GrandTotal)
}

func TestPriceMixedCurrenciesRejected(t *testing.T) {
	a := line("ev-1", "ga", 1, 100)
	b := line("ev-2", "ga", 1, 100)
	b.Currency = "EUR"

	_, err := Price([]TicketLineItem{a, b}, nil)
	require.ErrorIs(t, err, ErrValidation)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "items[1].currency", ve.Field)
}

func TestPriceCouponAppliesAfterBulkDiscount(t *testing.T) {
	it := line("ev-1", "ga", 10, 50)
	it.BulkDiscounts = Rules{PercentOff{MinQty: 5, PercentOff: decimal.NewFromInt(20)}}
	coupon := &AppliedCoupon{Code: "TEN", Type: CouponPercentage, Value: decimal.NewFromInt(10)}

	res, err := Price([]TicketLineItem{it}, coupon)
	require.NoError(t, err)
	require.Equal(t, Money(500), res.Subtotal)
	require.Equal(t, Money(100), res.BulkDiscountTotal)
	require.Equal(t, Money(40), res.CouponDiscountTotal)
	require.Equal(t, Money(360), res.GrandTotal)
	require.Equal(t, KindPercentOff, res.Lines[0].AppliedRule.Kind)
}

func TestPricePercentageCouponMaxDiscount(t *testing.T) {
	it := line("ev-1", "ga", 10, 1000)
	coupon := &AppliedCoupon{Code: "HALF", Type: CouponPercentage, Value: decimal.NewFromInt(50), MaxDiscount: 750}

	res, err := Price([]TicketLineItem{it}, coupon)
	require.NoError(t, err)
	require.Equal(t, Money(750), res.CouponDiscountTotal)
	require.Equal(t, Money(9250), res.GrandTotal)
}

func TestPriceCommissionIgnoresDiscounts(t *testing.T) {
	base := line("ev-1", "ga", 4, 2500)
	base.HasCommissionOnTop = true
	base.CommissionRate = decimal.NewFromInt(5)

	discounted := base
	discounted.SalePrice = money(2000)
	discounted.BulkDiscounts = Rules{BuyXGetY{BuyQty: 2, GetQty: 1}}

	plain, err := Price([]TicketLineItem{base}, nil)
	require.NoError(t, err)
	withDiscounts, err := Price([]TicketLineItem{discounted}, nil)
	require.NoError(t, err)
	require.Equal(t, plain.CommissionTotal, withDiscounts.CommissionTotal)
	require.Equal(t, Money(500), withDiscounts.CommissionTotal)
}

func TestPriceCommissionRequiresOnTopFlag(t *testing.T) {
	it := line("ev-1", "ga", 2, 1000)
	it.CommissionRate = decimal.NewFromInt(10)

	res, err := Price([]TicketLineItem{it}, nil)
	require.NoError(t, err)
	require.Zero(t, res.CommissionTotal)
	require.False(t, res.HasCommission)
}

func TestPriceFixedCommissionPerTicket(t *testing.T) {
	it := line("ev-1", "ga", 3, 1000)
	it.HasCommissionOnTop = true
	it.CommissionRate = decimal.NewFromInt(5)
	it.CommissionFixed = 150

	res, err := Price([]TicketLineItem{it}, nil)
	require.NoError(t, err)
	require.Equal(t, Money(150+450), res.CommissionTotal)
	require.Equal(t, Money(3600), res.GrandTotal)
}

func TestPriceHasCommissionFollowsLineConfiguration(t *testing.T) {
	free := line("ev-1", "free", 2, 0)
	free.HasCommissionOnTop = true
	free.CommissionRate = decimal.NewFromInt(10)

	cheap := line("ev-1", "cheap", 1, 4)
	cheap.HasCommissionOnTop = true
	cheap.CommissionRate = decimal.NewFromInt(10)

	for name, it := range map[string]TicketLineItem{"free ticket": free, "rounds to zero": cheap} {
		t.Run(name, func(t *testing.T) {
			res, err := Price([]TicketLineItem{it}, nil)
			require.NoError(t, err)
			require.Zero(t, res.CommissionTotal)
			require.True(t, res.HasCommission)
		})
	}
}

func TestPriceFixedCouponAmountCarriedInValue(t *testing.T) {
	items := []TicketLineItem{line("ev-1", "ga", 2, 10000)}
	coupon := &AppliedCoupon{Code: "FIFTY", Type: CouponFixed, Value: decimal.NewFromInt(5000), DiscountAmount: 5000}

	res, err := Price(items, coupon)
	require.NoError(t, err)
	require.Equal(t, Money(5000), res.CouponDiscountTotal)
	require.Equal(t, Money(15000), res.GrandTotal)
}

func TestPriceEmptyCartIsZeroEvenWithCoupon(t *testing.T) {
	coupon := &AppliedCoupon{Code: "BIG", Type: CouponFixed, DiscountAmount: 500}
	res, err := Price(nil, coupon)
	require.NoError(t, err)
	require.Zero(t, res.Subtotal)
	require.Zero(t, res.CouponDiscountTotal)
	require.Zero(t, res.GrandTotal)
	require.Empty(t, res.Lines)
	require.False(t, res.HasCommission)
}

func TestPriceRuleExclusivityAcrossLines(t *testing.T) {
	rules := Rules{
		PercentOff{MinQty: 2, PercentOff: decimal.NewFromInt(10)},
		AmountOffPerTicket{MinQty: 2, AmountOff: 30},
	}
	a := line("ev-1", "ga", 2, 100)
	a.BulkDiscounts = rules
	b := line("ev-1", "vip", 2, 500)
	b.BulkDiscounts = rules

	res, err := Price([]TicketLineItem{a, b}, nil)
	require.NoError(t, err)
	// ga: 10% = 20, 30/ticket = 60 → 60. vip: 10% = 100, 30/ticket = 60 → 100.
	require.Equal(t, Money(60), res.Lines[0].BulkDiscount)
	require.Equal(t, Money(100), res.Lines[1].BulkDiscount)
	require.Equal(t, Money(160), res.BulkDiscountTotal)
}

func TestPriceGroupsByEventInFirstAppearanceOrder(t *testing.T) {
	items := []TicketLineItem{
		line("ev-2", "ga", 1, 100),
		line("ev-1", "ga", 2, 100),
		line("ev-2", "vip", 1, 300),
	}
	res, err := Price(items, nil)
	require.NoError(t, err)
	require.Len(t, res.Events, 2)
	require.Equal(t, "ev-2", res.Events[0].EventID)
	require.Equal(t, Money(400), res.Events[0].Subtotal)
	require.Equal(t, 2, res.Events[0].ItemCount)
	require.Equal(t, "ev-1", res.Events[1].EventID)
	require.Equal(t, 4, res.ItemCount)
}

func TestPriceWarningsCarryLineIdentity(t *testing.T) {
	it := line("ev-1", "ga", 2, 100)
	it.BulkDiscounts = Rules{BuyXGetY{BuyQty: 0, GetQty: 1}}

	res, err := Price([]TicketLineItem{it}, nil)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	require.Equal(t, "ev-1", res.Warnings[0].EventID)
	require.Equal(t, "ga", res.Warnings[0].TicketTypeID)
	require.Equal(t, Money(200), res.GrandTotal)
}

func TestPriceRejectsInvalidItems(t *testing.T) {
	cases := map[string]func(*TicketLineItem){
		"zero quantity":   func(it *TicketLineItem) { it.Quantity = 0 },
		"negative price":  func(it *TicketLineItem) { it.BasePrice = -1 },
		"negative sale":   func(it *TicketLineItem) { it.SalePrice = money(-5) },
		"missing event":   func(it *TicketLineItem) { it.EventID = "" },
		"bad currency":    func(it *TicketLineItem) { it.Currency = "RO" },
		"commission >100": func(it *TicketLineItem) { it.CommissionRate = decimal.NewFromInt(101) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			it := line("ev-1", "ga", 1, 100)
			mutate(&it)
			_, err := Price([]TicketLineItem{it}, nil)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestPriceRejectsDuplicateLines(t *testing.T) {
	_, err := Price([]TicketLineItem{line("ev-1", "ga", 1, 100), line("ev-1", "ga", 2, 100)}, nil)
	require.ErrorIs(t, err, ErrValidation)
}

func TestPriceRejectsMalformedCoupon(t *testing.T) {
	items := []TicketLineItem{line("ev-1", "ga", 1, 100)}
	_, err := Price(items, &AppliedCoupon{Code: "X", Type: "bogus"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = Price(items, &AppliedCoupon{Code: "X", Type: CouponPercentage, Value: decimal.NewFromInt(120)})
	require.ErrorIs(t, err, ErrValidation)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "coupon.value", ve.Field)

	_, err = Price(items, &AppliedCoupon{Code: "X", Type: CouponFixed, Value: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, ErrValidation)
}

func TestPriceIsDeterministic(t *testing.T) {
	it := line("ev-1", "ga", 7, 1999)
	it.SalePrice = money(1499)
	it.HasCommissionOnTop = true
	it.CommissionRate = decimal.RequireFromString("7.5")
	it.BulkDiscounts = Rules{
		BuyXGetY{BuyQty: 3, GetQty: 1},
		PercentOff{MinQty: 5, PercentOff: decimal.NewFromInt(15)},
	}
	coupon := &AppliedCoupon{Code: "P", Type: CouponPercentage, Value: decimal.NewFromInt(5)}

	first, err := Price([]TicketLineItem{it}, coupon)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Price([]TicketLineItem{it}, coupon)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestPriceDecodesWireRules(t *testing.T) {
	payload := `[{
		"eventId": "ev-1", "ticketTypeId": "ga", "basePrice": 5000, "quantity": 4, "currency": "ron",
		"commissionRate": 5, "hasCommissionOnTop": true,
		"bulkDiscounts": [
			{"rule_type": "buy_x_percent_off", "min_qty": 3, "percent_off": 10},
			{"rule_type": "amount_off_per_ticket", "min_qty": 4, "amount_off": 600}
		]
	}]`
	var items []TicketLineItem
	require.NoError(t, json.Unmarshal([]byte(payload), &items))

	res, err := Price(items, nil)
	require.NoError(t, err)
	require.Equal(t, "RON", res.Currency)
	require.Equal(t, Money(2400), res.BulkDiscountTotal)
	require.Equal(t, Money(1000), res.CommissionTotal)
	require.Equal(t, Money(18600), res.GrandTotal)
}
