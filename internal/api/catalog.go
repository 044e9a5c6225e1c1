package api

import (
	"net/http"

	"github.com/safar/beach-pdv/internal/access"
	"github.com/safar/beach-pdv/internal/models"
	"github.com/safar/beach-pdv/internal/store"
)

type registerRequest struct {
	Username string      `json:"username"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role"`
	SellerID string      `json:"seller_id"`
	TableID  string      `json:"table_id"`
	Phone    string      `json:"phone"`
}

type registerResponse struct {
	User  *models.User  `json:"user"`
	Table *models.Table `json:"table,omitempty"`
}

// registerUser creates an admin (a seller) or a client. A client may pick a
// seller and one of its tables; the table becomes occupied right away.
func (h *Handler) registerUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if req.Username == "" {
		h.writeError(w, r, badRequest("username is required"))
		return
	}
	if req.Role == "" {
		req.Role = models.RoleClient
	}
	if !req.Role.Valid() {
		h.writeError(w, r, badRequest("unknown role %q", req.Role))
		return
	}
	if req.Role == models.RoleAdmin && (req.SellerID != "" || req.TableID != "") {
		h.writeError(w, r, badRequest("sellers cannot be bound to a seller or table"))
		return
	}
	if req.TableID != "" && req.SellerID == "" {
		h.writeError(w, r, badRequest("table_id needs seller_id"))
		return
	}

	create := store.CreateUserRequest{
		Username: req.Username,
		Name:     req.Name,
		Role:     req.Role,
		SellerID: req.SellerID,
		TableID:  req.TableID,
		Phone:    req.Phone,
	}

	if req.SellerID != "" {
		seller, err := h.catalog.GetUser(r.Context(), req.SellerID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if seller.Role != models.RoleAdmin {
			h.writeError(w, r, badRequest("%s is not a seller", req.SellerID))
			return
		}
		create.SellerName = seller.DisplayName()
	}
	if req.TableID != "" {
		table, err := h.catalog.GetTable(r.Context(), req.TableID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if table.SellerID != req.SellerID {
			h.writeError(w, r, badRequest("table %s does not belong to seller %s", req.TableID, req.SellerID))
			return
		}
	}

	user, err := h.catalog.CreateUser(r.Context(), create)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	table, err := h.engine.OccupyForClient(r.Context(), user)
	if err != nil {
		h.log.Error("occupy table for new client", "user_id", user.ID, "table_id", user.TableID, "error", err)
	}

	writeJSON(w, http.StatusCreated, registerResponse{User: user, Table: table})
}

func (h *Handler) listSellers(w http.ResponseWriter, r *http.Request) {
	sellers, err := h.catalog.ListSellers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(sellers))
}

func (h *Handler) availableTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.catalog.ListAvailableTablesBySeller(r.Context(), r.PathValue("sellerID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tables))
}

func (h *Handler) menu(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProductsBySeller(r.Context(), r.PathValue("sellerID"), true)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(products))
}

// admin resolves the caller and requires the admin role.
func (h *Handler) admin(w http.ResponseWriter, r *http.Request) (access.Principal, bool) {
	p, err := h.principal(r)
	if err == nil {
		err = access.RequireAdmin(p).Err()
	}
	if err != nil {
		h.writeError(w, r, err)
		return access.Principal{}, false
	}
	return p, true
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := h.admin(w, r)
	if !ok {
		return
	}

	var in store.ProductInput
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := in.Validate(); err != nil {
		h.writeError(w, r, badRequest("%v", err))
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), p.ID, p.Name, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := h.admin(w, r)
	if !ok {
		return
	}

	var in store.ProductInput
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := in.Validate(); err != nil {
		h.writeError(w, r, badRequest("%v", err))
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), r.PathValue("id"), p.ID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := h.admin(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), r.PathValue("id"), p.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// nonNil keeps empty listings encoded as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
