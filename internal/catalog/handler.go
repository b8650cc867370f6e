package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/codesagecoder/digital-marketplace/internal/platform/httpx"
	"github.com/codesagecoder/digital-marketplace/internal/shared"
)

// Handler wires the product JSON endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// productResponse is the wire form of a product. Admin-only fields are
// omitted for principals that may not read them.
type productResponse struct {
	ID              string   `json:"id"`
	User            string   `json:"user"`
	Name            string   `json:"name"`
	Description     *string  `json:"description,omitempty"`
	Price           float64  `json:"price"`
	Category        string   `json:"category"`
	ProductFileID   string   `json:"productFileId"`
	ImageIDs        []string `json:"imageIds"`
	ApprovedForSale *string  `json:"approvedForSale,omitempty"`
	StripeID        *string  `json:"stripeId,omitempty"`
	PriceID         *string  `json:"priceId,omitempty"`
	CreatedAt       string   `json:"createdAt"`
	UpdatedAt       string   `json:"updatedAt"`
}

func renderProduct(p Product, principal *shared.Principal) productResponse {
	resp := productResponse{
		ID:            p.ID,
		User:          p.UserID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		Category:      string(p.Category),
		ProductFileID: p.ProductFileID,
		ImageIDs:      p.ImageIDs,
		CreatedAt:     p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if FieldVisible(principal, FieldApprovedForSale) {
		status := string(p.ApprovedForSale)
		resp.ApprovedForSale = &status
	}
	if FieldVisible(principal, FieldStripeID) {
		resp.StripeID = &p.StripeID
	}
	if FieldVisible(principal, FieldPriceID) {
		resp.PriceID = &p.PriceID
	}
	return resp
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())

	var req CreateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body is not valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}

	product, err := h.service.Create(r.Context(), principal, req)
	if err != nil {
		h.logger.Error("create product", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, renderProduct(*product, principal))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")

	product, err := h.service.Get(r.Context(), principal, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, renderProduct(*product, principal))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())

	var req ListProductsRequest
	if v := r.URL.Query().Get("category"); v != "" {
		category := Category(v)
		if !category.Valid() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown category")
			return
		}
		req.Category = &category
	}
	if v := r.URL.Query().Get("approved"); v != "" {
		if !FieldVisible(principal, FieldApprovedForSale) {
			httpx.RespondError(w, httpx.ErrForbidden)
			return
		}
		status := ApprovalStatus(v)
		if !status.Valid() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown approval status")
			return
		}
		req.Approved = &status
	}
	req.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	req.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	products, total, err := h.service.List(r.Context(), principal, req)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, renderProduct(p, principal))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": out, "total": total})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req UpdateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body is not valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}

	product, err := h.service.Update(r.Context(), principal, id, req)
	if err != nil {
		h.logger.Error("update product", slog.Any("error", err), slog.String("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, renderProduct(*product, principal))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), principal, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func validationDetail(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fieldErrs[0].Error()
	}
	return "invalid request"
}
