package pharmacy

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	model "github.com/zhouzirui/medassist/backend/internal/model/pharmacy"
	pharmacyService "github.com/zhouzirui/medassist/backend/internal/service/pharmacy"
	"github.com/zhouzirui/medassist/backend/pkg/utils"
)

// Handler 药房管理的HTTP处理器
type Handler struct {
	svc *pharmacyService.Service
}

// New 创建药房处理器
func New(svc *pharmacyService.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes 注册药房相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/pharmacies", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
}

// pharmacyInput 请求体；isActive 缺省为 true
type pharmacyInput struct {
	model.Pharmacy
	IsActive *bool `json:"isActive"`
}

func (in pharmacyInput) toModel() model.Pharmacy {
	p := in.Pharmacy
	p.IsActive = in.IsActive == nil || *in.IsActive
	return p
}

// handleList 列出药房，支持 name、city、isActive 过滤
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := pharmacyService.Filter{
		Name: q.Get("name"),
		City: q.Get("city"),
	}
	if raw := q.Get("isActive"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "isActive must be true or false")
			return
		}
		filter.IsActive = &active
	}

	items, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, items)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in pharmacyInput
	if err := utils.DecodeJSON(r, &in, false); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.svc.Create(r.Context(), in.toModel())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var in pharmacyInput
	if err := utils.DecodeJSON(r, &in, false); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), in.toModel())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pharmacyService.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, pharmacyService.ErrValidation):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pharmacyService.ErrDuplicateLicense):
		utils.RespondError(w, http.StatusConflict, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
