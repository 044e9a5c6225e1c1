package api

import (
	"net/http"
	"strings"

	"github.com/safar/beach-pdv/internal/access"
	"github.com/safar/beach-pdv/internal/lifecycle"
	"github.com/safar/beach-pdv/internal/models"
	"github.com/safar/beach-pdv/internal/store"
)

type createOrderRequest struct {
	SellerID      string                  `json:"seller_id"`
	TableID       string                  `json:"table_id"`
	CustomerPhone string                  `json:"customer_phone"`
	Items         []lifecycle.ItemRequest `json:"items"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	p, err := h.principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req createOrderRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.SellerID == "" || req.TableID == "" {
		h.writeError(w, r, badRequest("seller_id and table_id are required"))
		return
	}

	order, err := h.engine.CreateOrder(r.Context(), p, lifecycle.CreateOrderRequest{
		SellerID:      req.SellerID,
		TableID:       req.TableID,
		CustomerPhone: req.CustomerPhone,
		Items:         req.Items,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	p, err := h.principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	order, err := h.catalog.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := access.TouchOrder(p, order).Err(); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// listOrders lists the caller's cart orders, optionally ?status=a,b.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	p, ok := h.admin(w, r)
	if !ok {
		return
	}

	var statuses []models.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := models.OrderStatus(strings.TrimSpace(s))
			if !status.Valid() {
				h.writeError(w, r, badRequest("unknown status %q", status))
				return
			}
			statuses = append(statuses, status)
		}
	}

	orders, err := h.catalog.ListOrdersBySeller(r.Context(), p.ID, statuses...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(orders))
}

func (h *Handler) transitionOrder(w http.ResponseWriter, r *http.Request) {
	p, err := h.principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	order, err := h.engine.TransitionOrder(r.Context(), p, r.PathValue("id"), req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) replaceItems(w http.ResponseWriter, r *http.Request) {
	p, err := h.principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req struct {
		Items []lifecycle.ItemRequest `json:"items"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	order, err := h.engine.ReplaceOrderItems(r.Context(), p, r.PathValue("id"), req.Items)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	p, err := h.principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req struct {
		PaymentMethod models.PaymentMethod `json:"payment_method"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	order, err := h.engine.MarkOrderPaid(r.Context(), p, r.PathValue("id"), req.PaymentMethod)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	p, err := h.principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.engine.DeleteOrder(r.Context(), p, r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// orderHistory pages a user's orders newest first with ?cursor=&limit=.
func (h *Handler) orderHistory(w http.ResponseWriter, r *http.Request) {
	p, err := h.principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	userID := r.PathValue("id")
	if err := access.ViewHistory(p, userID).Err(); err != nil {
		h.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	limit := atoiDefault(q.Get("limit"), store.DefaultPageSize)

	page, err := h.catalog.ListOrdersCursor(r.Context(), userID, access.HistoryScope(p), q.Get("cursor"), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
