package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PricingComputationsTotal counts pricing runs per surface and outcome.
	PricingComputationsTotal *prometheus.CounterVec
	// PricingRuleMisconfiguredTotal counts discount rules skipped because of bad thresholds.
	PricingRuleMisconfiguredTotal *prometheus.CounterVec
	// PricingGrandTotal records priced grand totals in minor units.
	PricingGrandTotal *prometheus.HistogramVec
	// CartMutationsTotal counts cart mutations by operation and outcome.
	CartMutationsTotal *prometheus.CounterVec
	// CouponValidationTotal counts calls to the coupon validation service by outcome.
	CouponValidationTotal *prometheus.CounterVec
	// CouponValidationLatency records coupon validation latency in milliseconds.
	CouponValidationLatency prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PricingComputationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_computations_total",
			Help:      "Count of cart pricing computations by surface and result.",
		}, []string{"surface", "result"})
		PricingRuleMisconfiguredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_rule_misconfigured_total",
			Help:      "Count of bulk discount rules skipped due to invalid thresholds.",
		}, []string{"rule_type"})
		PricingGrandTotal = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_grand_total_minor",
			Help:      "Distribution of priced grand totals in minor currency units.",
			Buckets:   []float64{0, 1000, 5000, 10000, 25000, 50000, 100000, 250000, 1000000},
		}, []string{"currency"})
		CartMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of cart mutations by operation and result.",
		}, []string{"op", "result"})
		CouponValidationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_validation_total",
			Help:      "Count of coupon validation outcomes.",
		}, []string{"result"})
		CouponValidationLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "coupon_validation_duration_ms",
			Help:      "Latency of coupon validation calls in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		})

		PricingComputationsTotal = register(reg, PricingComputationsTotal)
		PricingRuleMisconfiguredTotal = register(reg, PricingRuleMisconfiguredTotal)
		PricingGrandTotal = register(reg, PricingGrandTotal)
		CartMutationsTotal = register(reg, CartMutationsTotal)
		CouponValidationTotal = register(reg, CouponValidationTotal)
		CouponValidationLatency = register(reg, CouponValidationLatency)
	})
}

// ObservePricing records the outcome of a pricing computation. It is a no-op
// until MustRegisterDomainMetrics has run.
func ObservePricing(surface, result, currency string, grandTotal int64, misconfigured []string) {
	if PricingComputationsTotal != nil {
		PricingComputationsTotal.WithLabelValues(surface, result).Inc()
	}
	if PricingGrandTotal != nil && result == "ok" && currency != "" {
		PricingGrandTotal.WithLabelValues(currency).Observe(float64(grandTotal))
	}
	if PricingRuleMisconfiguredTotal != nil {
		for _, kind := range misconfigured {
			PricingRuleMisconfiguredTotal.WithLabelValues(kind).Inc()
		}
	}
}

// ObserveCartMutation records a cart mutation outcome.
func ObserveCartMutation(op string, err error) {
	if CartMutationsTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	CartMutationsTotal.WithLabelValues(op, result).Inc()
}
