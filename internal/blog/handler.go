package blog

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

type postRequest struct {
	Title    string `json:"title" validate:"required"`
	Slug     string `json:"slug"`
	Body     string `json:"body" validate:"required"`
	CoverURL string `json:"cover_url" validate:"omitempty,url"`
}

// Handler manages blog endpoints.
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

// MountRoutes registers blog routes. Reading is public, writing is staff.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/posts", h.listPublished)
	r.Get("/posts/{slug}", h.getBySlug)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleEmployee, rbac.RoleAdmin))
		r.Get("/admin/posts", h.listAll)
		r.Post("/admin/posts", h.create)
		r.Put("/admin/posts/{id}", h.update)
		r.Post("/admin/posts/{id}/publish", h.publish)
		r.Delete("/admin/posts/{id}", h.delete)
	})
}

func (h *Handler) listPublished(w http.ResponseWriter, r *http.Request) {
	limit, page := pageParams(r)
	posts, total, err := h.service.ListPublished(r.Context(), limit, page)
	if err != nil {
		h.logger.Error("list posts", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"posts":      posts,
		"pagination": shared.NewPagination(page, limit, total),
	})
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	limit, page := pageParams(r)
	posts, total, err := h.service.ListAll(r.Context(), limit, page)
	if err != nil {
		h.logger.Error("list all posts", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"posts":      posts,
		"pagination": shared.NewPagination(page, limit, total),
	})
}

func (h *Handler) getBySlug(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, post)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	post, err := h.service.Create(r.Context(), Post{
		Title:    req.Title,
		Slug:     req.Slug,
		Body:     req.Body,
		CoverURL: req.CoverURL,
	}, currentUser(r))
	if err != nil {
		h.logger.Error("create post", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, post)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req postRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	err := h.service.Update(r.Context(), id, Post{
		Title:    req.Title,
		Slug:     req.Slug,
		Body:     req.Body,
		CoverURL: req.CoverURL,
	})
	if err != nil {
		h.logger.Error("update post", slog.Any("error", err), slog.Int64("id", id))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.service.Publish(r.Context(), id); err != nil {
		h.logger.Error("publish post", slog.Any("error", err), slog.Int64("id", id))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": string(StatusPublished)})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete post", slog.Any("error", err), slog.Int64("id", id))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrPostNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidPost):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func pageParams(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 10
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	return limit, page
}

func currentUser(r *http.Request) int64 {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0
	}
	id, _ := strconv.ParseInt(sess.User(), 10, 64)
	return id
}
