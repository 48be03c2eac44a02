package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sokoline/sokoline/internal/platform/httpx"
	"github.com/sokoline/sokoline/internal/rbac"
	"github.com/sokoline/sokoline/internal/shared"
)

type productRequest struct {
	Name           string  `json:"name" validate:"required"`
	Description    string  `json:"description"`
	Category       string  `json:"category"`
	Price          float64 `json:"price" validate:"required,gt=0"`
	WholesalePrice float64 `json:"wholesale_price" validate:"gte=0"`
	ImageURL       string  `json:"image_url" validate:"omitempty,url"`
}

// Handler manages catalog endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validate, rbac: rbac}
}

// MountRoutes registers catalog routes. Listing and detail are public; the
// wholesale listing needs a wholesale account; mutations are back-office.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products", h.listLive)
	r.Get("/products/{id}", h.getProduct)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleWholesale, rbac.RoleEmployee, rbac.RoleAdmin))
		r.Get("/wholesale/products", h.listWholesale)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleEmployee, rbac.RoleAdmin))
		r.Get("/admin/products", h.listAll)
		r.Post("/admin/products", h.createProduct)
		r.Put("/admin/products/{id}", h.updateProduct)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleAdmin))
		r.Post("/admin/products/{id}/approve", h.approveProduct)
		r.Post("/admin/products/{id}/archive", h.archiveProduct)
	})
}

func (h *Handler) listLive(w http.ResponseWriter, r *http.Request) {
	filters := filtersFromQuery(r)
	products, total, err := h.service.ListLive(r.Context(), filters)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"products":   products,
		"pagination": shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

// listWholesale mirrors the storefront listing; the wholesale price column is
// part of the product payload, so the only difference is who may see it.
func (h *Handler) listWholesale(w http.ResponseWriter, r *http.Request) {
	h.listLive(w, r)
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	filters := filtersFromQuery(r)
	filters.Status = ProductStatus(r.URL.Query().Get("status"))
	products, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list all products", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"products":   products,
		"pagination": shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	product, err := h.service.Create(r.Context(), Product{
		Name:           req.Name,
		Description:    req.Description,
		Category:       req.Category,
		Price:          req.Price,
		WholesalePrice: req.WholesalePrice,
		ImageURL:       req.ImageURL,
	}, currentUser(r))
	if err != nil {
		h.logger.Error("create product", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	err := h.service.Update(r.Context(), id, Product{
		Name:           req.Name,
		Description:    req.Description,
		Category:       req.Category,
		Price:          req.Price,
		WholesalePrice: req.WholesalePrice,
		ImageURL:       req.ImageURL,
	}, currentUser(r))
	if err != nil {
		h.logger.Error("update product", slog.Any("error", err), slog.Int64("id", id))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (h *Handler) approveProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.service.Approve(r.Context(), id, currentUser(r)); err != nil {
		h.logger.Error("approve product", slog.Any("error", err), slog.Int64("id", id))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": string(StatusLive)})
}

func (h *Handler) archiveProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.service.Archive(r.Context(), id, currentUser(r)); err != nil {
		h.logger.Error("archive product", slog.Any("error", err), slog.Int64("id", id))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": string(StatusArchived)})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidName), errors.Is(err, ErrInvalidPrice), errors.Is(err, ErrInvalidStatus):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func filtersFromQuery(r *http.Request) ListFilters {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	return ListFilters{
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("search"),
		Limit:    limit,
		Page:     page,
	}
}

func currentUser(r *http.Request) int64 {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0
	}
	id, _ := strconv.ParseInt(sess.User(), 10, 64)
	return id
}
