package api

import (
	"net/http"

	"github.com/safar/beach-pdv/internal/access"
	"github.com/safar/beach-pdv/internal/models"
)

func (h *Handler) listTables(w http.ResponseWriter, r *http.Request) {
	p, ok := h.admin(w, r)
	if !ok {
		return
	}

	tables, err := h.catalog.ListTablesBySeller(r.Context(), p.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tables))
}

// createTables takes {quantity} to append numbered tables, or {number} to
// add one table with an explicit number.
func (h *Handler) createTables(w http.ResponseWriter, r *http.Request) {
	p, err := h.principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
		Number   int `json:"number"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if req.Number != 0 {
		h.createTable(w, r, p, req.Quantity, req.Number)
		return
	}

	tables, err := h.engine.CreateTables(r.Context(), p, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tables)
}

func (h *Handler) createTable(w http.ResponseWriter, r *http.Request, p access.Principal, quantity, number int) {
	if err := access.RequireAdmin(p).Err(); err != nil {
		h.writeError(w, r, err)
		return
	}
	if quantity != 0 {
		h.writeError(w, r, badRequest("send either quantity or number"))
		return
	}
	if number < 1 {
		h.writeError(w, r, badRequest("number must be positive"))
		return
	}

	table, err := h.catalog.CreateTable(r.Context(), p.ID, p.Name, number)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, table)
}

// deleteTable refuses with 409 while any order still references the table.
func (h *Handler) deleteTable(w http.ResponseWriter, r *http.Request) {
	p, ok := h.admin(w, r)
	if !ok {
		return
	}

	table, err := h.catalog.GetTable(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := access.ManageTable(p, table).Err(); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.catalog.DeleteTable(r.Context(), table.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reconcileTable(w http.ResponseWriter, r *http.Request) {
	p, err := h.principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	table, err := h.engine.ReconcileTable(r.Context(), p, r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

type releaseResponse struct {
	Table    *models.Table     `json:"table"`
	Archived []string          `json:"archived"`
	Failed   map[string]string `json:"failed,omitempty"`
}

// releaseTable answers 207 when the table was freed but some delivered orders
// could not be archived.
func (h *Handler) releaseTable(w http.ResponseWriter, r *http.Request) {
	p, err := h.principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.engine.ReleaseTable(r.Context(), p, r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := releaseResponse{Table: res.Table, Archived: nonNil(res.Archived)}
	if res.Err() == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.Failed = make(map[string]string, len(res.Failed))
	for id, ferr := range res.Failed {
		resp.Failed[id] = ferr.Error()
	}
	writeJSON(w, http.StatusMultiStatus, resp)
}

func (h *Handler) reconcileSeller(w http.ResponseWriter, r *http.Request) {
	p, err := h.principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tables, err := h.engine.ReconcileSeller(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tables))
}

func (h *Handler) tableOrders(w http.ResponseWriter, r *http.Request) {
	p, ok := h.admin(w, r)
	if !ok {
		return
	}

	table, err := h.catalog.GetTable(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := access.ManageTable(p, table).Err(); err != nil {
		h.writeError(w, r, err)
		return
	}

	orders, err := h.catalog.ListOrdersByTable(r.Context(), table.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(orders))
}
