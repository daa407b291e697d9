package pricing

// Resolution is the outcome of picking the best bulk discount for one line.
type Resolution struct {
	DiscountedTotal Money
	DiscountAmount  Money
	// Applied is nil when no rule beat the undiscounted total.
	Applied  DiscountRule
	Warnings []ConfigurationError
}

// Resolve evaluates every rule against quantity × unitPrice and keeps the one
// giving the strictly lowest total. The first rule wins a tie. Rules never stack.
//
// Misconfigured rules are skipped and reported in Warnings.
func Resolve(quantity int, unitPrice Money, rules []DiscountRule) (Resolution, error) {
	if quantity <= 0 {
		return Resolution{}, invalid("quantity", "must be at least 1, got %d", quantity)
	}
	if unitPrice < 0 {
		return Resolution{}, invalid("unitPrice", "must not be negative, got %d", unitPrice)
	}

	gross := unitPrice.Times(quantity)
	res := Resolution{DiscountedTotal: gross}
	for i, rule := range rules {
		if rule == nil {
			return Resolution{}, invalid("bulkDiscounts", "rule %d is empty", i)
		}
		if reason := rule.misconfigured(); reason != "" {
			res.Warnings = append(res.Warnings, ConfigurationError{
				Rule:   string(rule.Kind()),
				Index:  i,
				Reason: reason,
			})
			continue
		}
		total, ok := rule.total(quantity, unitPrice)
		if !ok {
			continue
		}
		total = maxMoney(total, 0)
		if total < res.DiscountedTotal {
			res.DiscountedTotal = total
			res.Applied = rule
		}
	}
	res.DiscountAmount = gross - res.DiscountedTotal
	return res, nil
}
