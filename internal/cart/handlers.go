package cart

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-tiket/internal/common"
	"github.com/noah-isme/backend-tiket/internal/coupon"
	"github.com/noah-isme/backend-tiket/internal/lock"
	"github.com/noah-isme/backend-tiket/internal/obs"
	"github.com/noah-isme/backend-tiket/internal/pricing"
)

// Handler wires cart services to HTTP.
type Handler struct {
	Svc *Service
}

// Create starts an empty cart.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "cart service not configured", nil)
		return
	}
	view, err := h.Svc.Create(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	writeView(w, http.StatusCreated, view)
}

// Get returns the cart with freshly computed totals.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "cart service not configured", nil)
		return
	}
	view, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeView(w, http.StatusOK, view)
}

// AddItem adds tickets to the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "cart service not configured", nil)
		return
	}
	var item pricing.TicketLineItem
	if err := common.DecodeJSON(w, r, &item); err != nil {
		WriteError(w, err)
		return
	}
	view, err := h.Svc.AddItem(r.Context(), chi.URLParam(r, "id"), item)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeView(w, http.StatusOK, view)
}

// UpdateItem sets the quantity of a line. A quantity of zero removes it.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "cart service not configured", nil)
		return
	}
	var payload struct {
		Quantity *int `json:"quantity"`
	}
	if err := common.DecodeJSON(w, r, &payload); err != nil {
		WriteError(w, err)
		return
	}
	if payload.Quantity == nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "quantity is required", nil)
		return
	}
	view, err := h.Svc.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), lineKey(r), *payload.Quantity)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeView(w, http.StatusOK, view)
}

// RemoveItem drops a line.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "cart service not configured", nil)
		return
	}
	view, err := h.Svc.RemoveItem(r.Context(), chi.URLParam(r, "id"), lineKey(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeView(w, http.StatusOK, view)
}

// Clear empties the cart. ?clearCoupon=true also drops the coupon.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "cart service not configured", nil)
		return
	}
	clearCoupon := false
	if raw := strings.TrimSpace(r.URL.Query().Get("clearCoupon")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "clearCoupon must be a boolean", nil)
			return
		}
		clearCoupon = v
	}
	view, err := h.Svc.Clear(r.Context(), chi.URLParam(r, "id"), clearCoupon)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeView(w, http.StatusOK, view)
}

// ApplyCoupon validates a coupon code and attaches it to the cart.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "cart service not configured", nil)
		return
	}
	var payload struct {
		Code string `json:"code"`
	}
	if err := common.DecodeJSON(w, r, &payload); err != nil {
		WriteError(w, err)
		return
	}
	view, err := h.Svc.ApplyCoupon(r.Context(), chi.URLParam(r, "id"), payload.Code)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeView(w, http.StatusOK, view)
}

// RemoveCoupon detaches the coupon.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "cart service not configured", nil)
		return
	}
	view, err := h.Svc.RemoveCoupon(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeView(w, http.StatusOK, view)
}

// Quote prices a ticket selection that is not in a cart yet. When cartId is
// given, that cart's coupon is applied so the selector shows the same figure
// the cart would.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Items  []pricing.TicketLineItem `json:"items"`
		CartID string                   `json:"cartId"`
	}
	if err := common.DecodeJSON(w, r, &payload); err != nil {
		WriteError(w, err)
		return
	}
	var applied *pricing.AppliedCoupon
	if id := strings.TrimSpace(payload.CartID); id != "" {
		if h.Svc == nil {
			common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "cart service not configured", nil)
			return
		}
		view, err := h.Svc.Get(r.Context(), id)
		if err != nil {
			WriteError(w, err)
			return
		}
		applied = view.Cart.Coupon
	}
	result, err := pricing.Price(payload.Items, applied)
	if err != nil {
		obs.ObservePricing("quote", "invalid", "", 0, nil)
		WriteError(w, err)
		return
	}
	ObservePricing(zerolog.Ctx(r.Context()), "quote", payload.CartID, result)
	common.Data(w, http.StatusOK, PricingPayload(result))
}

func lineKey(r *http.Request) pricing.LineKey {
	return pricing.LineKey{
		EventID:      chi.URLParam(r, "eventId"),
		TicketTypeID: chi.URLParam(r, "ticketTypeId"),
	}
}

func writeView(w http.ResponseWriter, status int, view View) {
	common.Data(w, status, map[string]any{
		"id":        view.Cart.ID,
		"items":     view.Cart.Items,
		"coupon":    view.Cart.Coupon,
		"updatedAt": view.Cart.UpdatedAt,
		"pricing":   PricingPayload(view.Pricing),
	})
}

// PricingPayload renders a pricing result together with display strings in major units.
func PricingPayload(res pricing.PricingResult) map[string]any {
	return map[string]any{
		"subtotal":            res.Subtotal,
		"bulkDiscountTotal":   res.BulkDiscountTotal,
		"commissionTotal":     res.CommissionTotal,
		"couponDiscountTotal": res.CouponDiscountTotal,
		"grandTotal":          res.GrandTotal,
		"currency":            res.Currency,
		"hasCommission":       res.HasCommission,
		"saleSavingsTotal":    res.SaleSavingsTotal,
		"itemCount":           res.ItemCount,
		"lines":               res.Lines,
		"events":              res.Events,
		"display": map[string]string{
			"subtotal":            res.Subtotal.Format(res.Currency),
			"bulkDiscountTotal":   res.BulkDiscountTotal.Format(res.Currency),
			"commissionTotal":     res.CommissionTotal.Format(res.Currency),
			"couponDiscountTotal": res.CouponDiscountTotal.Format(res.Currency),
			"grandTotal":          res.GrandTotal.Format(res.Currency),
		},
	}
}

// WriteError maps cart, pricing and coupon errors onto the canonical error body.
func WriteError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "unknown error", nil)
		return
	}
	if common.WriteAppError(w, err) {
		return
	}
	var ve *pricing.ValidationError
	switch {
	case errors.As(err, &ve):
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodePricingValidation, ve.Error(),
			map[string]any{"field": ve.Field, "reason": ve.Reason})
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, err.Error(), nil)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrItemNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, err.Error(), nil)
	case errors.Is(err, coupon.ErrRejected):
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeCouponRejected, err.Error(), nil)
	case errors.Is(err, coupon.ErrUnavailable):
		common.JSONError(w, http.StatusServiceUnavailable, common.CodeUnavailable, "coupon validation is unavailable", nil)
	case errors.Is(err, ErrChanged):
		common.JSONError(w, http.StatusConflict, common.CodeConflict, "cart changed while the coupon was validated, retry", nil)
	case errors.Is(err, lock.ErrNotAcquired):
		common.JSONError(w, http.StatusConflict, common.CodeConflict, "cart is being updated, retry shortly", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "internal error", nil)
	}
}
