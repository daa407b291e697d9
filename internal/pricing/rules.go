package pricing

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// RuleKind is the wire name of a bulk discount rule.
type RuleKind string

const (
	KindBuyXGetY           RuleKind = "buy_x_get_y"
	KindAmountOffPerTicket RuleKind = "amount_off_per_ticket"
	KindPercentOff         RuleKind = "buy_x_percent_off"
	KindBundlePrice        RuleKind = "bundle_price"
)

// DiscountRule is a bulk discount attached to a ticket type. The set of
// implementations is closed: BuyXGetY, AmountOffPerTicket, PercentOff and BundlePrice.
type DiscountRule interface {
	Kind() RuleKind
	// Describe renders a short human label, e.g. "Buy 2, get 1 free".
	Describe(currency string) string

	// misconfigured returns a non-empty reason when the thresholds make no sense.
	misconfigured() string
	// total returns the discounted line total, or ok=false when the quantity
	// does not reach the rule's threshold.
	total(qty int, unit Money) (Money, bool)
}

// BuyXGetY gives getQty free tickets for every full set of buyQty tickets.
type BuyXGetY struct {
	BuyQty int `json:"buy_qty"`
	GetQty int `json:"get_qty"`
}

func (BuyXGetY) Kind() RuleKind { return KindBuyXGetY }

func (r BuyXGetY) Describe(string) string {
	return fmt.Sprintf("Buy %d, get %d free", r.BuyQty, r.GetQty)
}

func (r BuyXGetY) misconfigured() string {
	switch {
	case r.BuyQty < 1:
		return fmt.Sprintf("buy_qty must be at least 1, got %d", r.BuyQty)
	case r.GetQty < 1:
		return fmt.Sprintf("get_qty must be at least 1, got %d", r.GetQty)
	}
	return ""
}

func (r BuyXGetY) total(qty int, unit Money) (Money, bool) {
	if qty < r.BuyQty {
		return 0, false
	}
	free := (qty / r.BuyQty) * r.GetQty
	if free > qty {
		free = qty
	}
	return unit.Times(qty - free), true
}

// AmountOffPerTicket takes a fixed amount off every ticket once minQty is reached.
// The amount is capped at the unit price.
type AmountOffPerTicket struct {
	MinQty    int   `json:"min_qty"`
	AmountOff Money `json:"amount_off"`
}

func (AmountOffPerTicket) Kind() RuleKind { return KindAmountOffPerTicket }

func (r AmountOffPerTicket) Describe(currency string) string {
	return fmt.Sprintf("%s off per ticket from %d tickets", r.AmountOff.Format(currency), r.MinQty)
}

func (r AmountOffPerTicket) misconfigured() string {
	switch {
	case r.MinQty < 1:
		return fmt.Sprintf("min_qty must be at least 1, got %d", r.MinQty)
	case r.AmountOff < 0:
		return fmt.Sprintf("amount_off must not be negative, got %d", r.AmountOff)
	}
	return ""
}

func (r AmountOffPerTicket) total(qty int, unit Money) (Money, bool) {
	if qty < r.MinQty {
		return 0, false
	}
	off := minMoney(r.AmountOff, unit)
	return unit.Times(qty) - off.Times(qty), true
}

// PercentOff takes a percentage off the whole line once minQty is reached.
type PercentOff struct {
	MinQty     int             `json:"min_qty"`
	PercentOff decimal.Decimal `json:"percent_off"`
}

func (PercentOff) Kind() RuleKind { return KindPercentOff }

func (r PercentOff) Describe(string) string {
	return fmt.Sprintf("%s%% off from %d tickets", r.PercentOff.String(), r.MinQty)
}

func (r PercentOff) misconfigured() string {
	switch {
	case r.MinQty < 1:
		return fmt.Sprintf("min_qty must be at least 1, got %d", r.MinQty)
	case !r.PercentOff.IsPositive() || r.PercentOff.GreaterThan(hundred):
		return fmt.Sprintf("percent_off must be in (0, 100], got %s", r.PercentOff.String())
	}
	return ""
}

func (r PercentOff) total(qty int, unit Money) (Money, bool) {
	if qty < r.MinQty {
		return 0, false
	}
	gross := unit.Times(qty)
	return gross - percentOf(gross, r.PercentOff), true
}

// BundlePrice sells every full group of bundleQty tickets for bundleTotal.
// Tickets left over after the last full group pay the unit price.
type BundlePrice struct {
	BundleQty   int   `json:"bundle_qty"`
	BundleTotal Money `json:"bundle_total"`
}

func (BundlePrice) Kind() RuleKind { return KindBundlePrice }

func (r BundlePrice) Describe(currency string) string {
	return fmt.Sprintf("%d tickets for %s", r.BundleQty, r.BundleTotal.Format(currency))
}

func (r BundlePrice) misconfigured() string {
	switch {
	case r.BundleQty < 1:
		return fmt.Sprintf("bundle_qty must be at least 1, got %d", r.BundleQty)
	case r.BundleTotal < 0:
		return fmt.Sprintf("bundle_total must not be negative, got %d", r.BundleTotal)
	}
	return ""
}

func (r BundlePrice) total(qty int, unit Money) (Money, bool) {
	if qty < r.BundleQty {
		return 0, false
	}
	bundles := qty / r.BundleQty
	return r.BundleTotal.Times(bundles) + unit.Times(qty%r.BundleQty), true
}

// Rules is an ordered list of discount rules. Its JSON form is an array of
// objects tagged by "rule_type".
type Rules []DiscountRule

type wireRule struct {
	RuleType    RuleKind         `json:"rule_type"`
	BuyQty      *int             `json:"buy_qty,omitempty"`
	GetQty      *int             `json:"get_qty,omitempty"`
	MinQty      *int             `json:"min_qty,omitempty"`
	AmountOff   *Money           `json:"amount_off,omitempty"`
	PercentOff  *decimal.Decimal `json:"percent_off,omitempty"`
	BundleQty   *int             `json:"bundle_qty,omitempty"`
	BundleTotal *Money           `json:"bundle_total,omitempty"`
}

func intOr0(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func moneyOr0(p *Money) Money {
	if p == nil {
		return 0
	}
	return *p
}

// DecodeRule converts a tagged wire object into its rule. Unknown tags are a
// ValidationError; missing fields decode as zero and surface later as
// configuration warnings.
func DecodeRule(data []byte) (DiscountRule, error) {
	var w wireRule
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return nil, invalid("bulkDiscounts", "malformed rule: %v", err)
	}
	switch w.RuleType {
	case KindBuyXGetY:
		return BuyXGetY{BuyQty: intOr0(w.BuyQty), GetQty: intOr0(w.GetQty)}, nil
	case KindAmountOffPerTicket:
		return AmountOffPerTicket{MinQty: intOr0(w.MinQty), AmountOff: moneyOr0(w.AmountOff)}, nil
	case KindPercentOff:
		r := PercentOff{MinQty: intOr0(w.MinQty)}
		if w.PercentOff != nil {
			r.PercentOff = *w.PercentOff
		}
		return r, nil
	case KindBundlePrice:
		return BundlePrice{BundleQty: intOr0(w.BundleQty), BundleTotal: moneyOr0(w.BundleTotal)}, nil
	case "":
		return nil, invalid("bulkDiscounts", "rule_type is required")
	default:
		return nil, invalid("bulkDiscounts", "unknown rule_type %q", w.RuleType)
	}
}

// EncodeRule produces the tagged wire object for a rule.
func EncodeRule(r DiscountRule) ([]byte, error) {
	w := wireRule{}
	switch v := r.(type) {
	case BuyXGetY:
		w.RuleType, w.BuyQty, w.GetQty = v.Kind(), &v.BuyQty, &v.GetQty
	case AmountOffPerTicket:
		w.RuleType, w.MinQty, w.AmountOff = v.Kind(), &v.MinQty, &v.AmountOff
	case PercentOff:
		w.RuleType, w.MinQty, w.PercentOff = v.Kind(), &v.MinQty, &v.PercentOff
	case BundlePrice:
		w.RuleType, w.BundleQty, w.BundleTotal = v.Kind(), &v.BundleQty, &v.BundleTotal
	default:
		return nil, invalid("bulkDiscounts", "unsupported rule %T", r)
	}
	return json.Marshal(w)
}

func (rs Rules) MarshalJSON() ([]byte, error) {
	if rs == nil {
		return []byte("[]"), nil
	}
	raw := make([]json.RawMessage, 0, len(rs))
	for _, r := range rs {
		b, err := EncodeRule(r)
		if err != nil {
			return nil, err
		}
		raw = append(raw, b)
	}
	return json.Marshal(raw)
}

func (rs *Rules) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return invalid("bulkDiscounts", "must be an array of rules")
	}
	out := make(Rules, 0, len(raw))
	for i, item := range raw {
		r, err := DecodeRule(item)
		if err != nil {
			if ve, ok := err.(*ValidationError); ok {
				ve.Field = fmt.Sprintf("bulkDiscounts[%d]", i)
			}
			return err
		}
		out = append(out, r)
	}
	*rs = out
	return nil
}
