package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	planssvc "github.com/Kingestif/Talak-kinash-backend/internal/services/plans"
	"github.com/Kingestif/Talak-kinash-backend/internal/transport/http/dto"
	httperrors "github.com/Kingestif/Talak-kinash-backend/internal/transport/http/errors"
)

type PlanHandler struct {
	plans *planssvc.Service
}

func NewPlanHandler(plans *planssvc.Service) *PlanHandler {
	return &PlanHandler{plans: plans}
}

func (h *PlanHandler) UpdateSubscriptionPrice(w http.ResponseWriter, r *http.Request) {
	if h.plans == nil {
		writeInternal(w, "PLANS_SERVICE_UNAVAILABLE", "plans service is unavailable")
		return
	}

	var req dto.SubscriptionPriceUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	plan, err := h.plans.UpdateSubscriptionPrice(r.Context(), req.PlanType, req.Price)
	if err != nil {
		handlePlanError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, toPlanResponse(plan))
}

func (h *PlanHandler) AddPromotionPlan(w http.ResponseWriter, r *http.Request) {
	if h.plans == nil {
		writeInternal(w, "PLANS_SERVICE_UNAVAILABLE", "plans service is unavailable")
		return
	}

	var req dto.PromotionPlanCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	plan, err := h.plans.AddPromotionPlan(r.Context(), req.PlanType, req.Price, req.DurationDays)
	if err != nil {
		handlePlanError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, toPlanResponse(plan))
}

func (h *PlanHandler) UpdatePromotionPlan(w http.ResponseWriter, r *http.Request) {
	if h.plans == nil {
		writeInternal(w, "PLANS_SERVICE_UNAVAILABLE", "plans service is unavailable")
		return
	}

	var req dto.PromotionPlanUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	plan, err := h.plans.UpdatePromotionPlan(r.Context(), chi.URLParam(r, "id"), req.Price, req.DurationDays)
	if err != nil {
		handlePlanError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, toPlanResponse(plan))
}

func (h *PlanHandler) DeletePromotionPlan(w http.ResponseWriter, r *http.Request) {
	if h.plans == nil {
		writeInternal(w, "PLANS_SERVICE_UNAVAILABLE", "plans service is unavailable")
		return
	}

	if err := h.plans.DeletePromotionPlan(r.Context(), chi.URLParam(r, "id")); err != nil {
		handlePlanError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, map[string]bool{"ok": true})
}

func handlePlanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, planssvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid plan payload")
	case errors.Is(err, planssvc.ErrPlanNotFound):
		httperrors.Write(w, http.StatusNotFound, httperrors.APIError{
			Code:    "PLAN_NOT_FOUND",
			Message: "plan not found",
		})
	case errors.Is(err, planssvc.ErrPlanExists):
		httperrors.Write(w, http.StatusConflict, httperrors.APIError{
			Code:    "PLAN_EXISTS",
			Message: "plan type already exists",
		})
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to modify plan")
	}
}
