package api

import (
	"context"
	"net/http"
	"time"

	"github.com/safar/beach-pdv/internal/models"
)

const reportTimeout = 10 * time.Second

// revenue serves /stats/revenue/{summary|daily|monthly|yearly} for the
// caller's cart.
func (h *Handler) revenue(w http.ResponseWriter, r *http.Request) {
	p, ok := h.admin(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reportTimeout)
	defer cancel()

	var series func(context.Context, string) ([]models.RevenuePoint, error)
	switch r.PathValue("period") {
	case "summary":
		summary, err := h.catalog.RevenueSummary(ctx, p.ID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
		return
	case "daily":
		series = h.catalog.DailyRevenue
	case "monthly":
		series = h.catalog.MonthlyRevenue
	case "yearly":
		series = h.catalog.YearlyRevenue
	default:
		writeMessage(w, http.StatusNotFound, "unknown revenue period")
		return
	}

	points, err := series(ctx, p.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (h *Handler) dailyOrders(w http.ResponseWriter, r *http.Request) {
	p, ok := h.admin(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reportTimeout)
	defer cancel()

	daily, err := h.catalog.DailyOrders(ctx, p.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, daily)
}
