package obs_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-tiket/internal/obs"
)

func TestDomainMetricsRecordPricingAndMutations(t *testing.T) {
	obs.MustRegisterDomainMetrics("tiket", prometheus.NewRegistry())

	obs.ObservePricing("cart", "ok", "RON", 12500, []string{"buy_x_get_y", "buy_x_get_y"})
	obs.ObservePricing("quote", "invalid", "", 0, nil)
	obs.ObserveCartMutation("add_item", nil)
	obs.ObserveCartMutation("add_item", errors.New("boom"))

	require.Equal(t, 1.0, testutil.ToFloat64(obs.PricingComputationsTotal.WithLabelValues("cart", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.PricingComputationsTotal.WithLabelValues("quote", "invalid")))
	require.Equal(t, 2.0, testutil.ToFloat64(obs.PricingRuleMisconfiguredTotal.WithLabelValues("buy_x_get_y")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.CartMutationsTotal.WithLabelValues("add_item", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.CartMutationsTotal.WithLabelValues("add_item", "error")))
	require.Equal(t, 1, testutil.CollectAndCount(obs.PricingGrandTotal))
}
