package checkout

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-tiket/internal/cart"
	"github.com/noah-isme/backend-tiket/internal/common"
)

type Handler struct {
	Svc *Service
}

// Summary returns the checkout summary. A cart that cannot be priced is
// answered with 422 and checkoutEnabled=false.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "checkout service not configured", nil)
		return
	}
	summary, err := h.Svc.Summary(r.Context(), chi.URLParam(r, "cartId"))
	if err != nil {
		cart.WriteError(w, err)
		return
	}
	status := http.StatusOK
	if summary.BlockReason == BlockPricingValidation {
		status = http.StatusUnprocessableEntity
	}
	payload := map[string]any{
		"cartId":          summary.CartID,
		"items":           summary.Items,
		"coupon":          summary.Coupon,
		"totals":          summary.Totals,
		"checkoutEnabled": summary.CheckoutEnabled,
	}
	if summary.Pricing != nil {
		payload["pricing"] = cart.PricingPayload(*summary.Pricing)
	}
	if summary.BlockReason != "" {
		payload["blockReason"] = summary.BlockReason
	}
	if summary.Validation != nil {
		payload["validation"] = map[string]any{"field": summary.Validation.Field, "reason": summary.Validation.Reason}
	}
	common.Data(w, status, payload)
}
