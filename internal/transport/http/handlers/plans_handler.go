package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	catalogsvc "github.com/xulioguimaraes/sportstips/internal/services/catalog"
	"github.com/xulioguimaraes/sportstips/internal/transport/http/dto"
	httperrors "github.com/xulioguimaraes/sportstips/internal/transport/http/errors"
)

type PlansHandler struct {
	catalog *catalogsvc.Service
}

func NewPlansHandler(catalog *catalogsvc.Service) *PlansHandler {
	return &PlansHandler{catalog: catalog}
}

func (h *PlansHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeInternal(w, "CATALOG_SERVICE_UNAVAILABLE", "catalog service is unavailable")
		return
	}

	plans, err := h.catalog.List(r.Context())
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to list plans")
		return
	}

	responses := make([]dto.PlanResponse, 0, len(plans))
	for _, plan := range plans {
		responses = append(responses, planToResponse(plan))
	}

	httperrors.Write(w, http.StatusOK, dto.PlanListResponse{Success: true, Plans: responses})
}

func (h *PlansHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeInternal(w, "CATALOG_SERVICE_UNAVAILABLE", "catalog service is unavailable")
		return
	}

	plan, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, catalogsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "plan id is required")
		case errors.Is(err, catalogsvc.ErrPlanNotFound):
			writeNotFound(w, "PLAN_NOT_FOUND", "plan not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load plan")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PlanItemResponse{Success: true, Plan: planToResponse(plan)})
}

func planToResponse(plan catalogsvc.Plan) dto.PlanResponse {
	return dto.PlanResponse{
		ID:           plan.ID,
		Name:         plan.Name,
		Type:         plan.Type,
		Price:        plan.Price,
		TipsIncluded: plan.TipsIncluded,
		DurationDays: plan.DurationDays,
		Features:     plan.Features,
		IsPopular:    plan.IsPopular,
	}
}
