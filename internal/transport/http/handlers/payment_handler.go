package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/Kingestif/Talak-kinash-backend/internal/services/auth"
	paymentsvc "github.com/Kingestif/Talak-kinash-backend/internal/services/payments"
	planssvc "github.com/Kingestif/Talak-kinash-backend/internal/services/plans"
	"github.com/Kingestif/Talak-kinash-backend/internal/transport/http/dto"
	httperrors "github.com/Kingestif/Talak-kinash-backend/internal/transport/http/errors"
)

const signatureHeader = "x-chapa-signature"

// Webhook bodies above this size are not real gateway events.
const maxWebhookBodyBytes = 1 << 20

type PaymentHandler struct {
	payments *paymentsvc.Service
	plans    *planssvc.Service
}

func NewPaymentHandler(payments *paymentsvc.Service, plans *planssvc.Service) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		plans:    plans,
	}
}

func (h *PaymentHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.payments == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	var req dto.PaymentInitializeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	result, err := h.payments.InitiateSubscription(r.Context(), sellerFromIdentity(identity), paymentsvc.InitiateInput{
		Currency:  req.Currency,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		PlanType:  req.PlanType,
	})
	if err != nil {
		handleInitiateError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PaymentInitializeResponse{
		CheckoutURL: result.CheckoutURL,
		TxRef:       result.TxRef,
	})
}

func (h *PaymentHandler) PromoteProduct(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.payments == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	productID, err := strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
	if err != nil || productID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid product id")
		return
	}

	var req dto.PaymentInitializeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	result, err := h.payments.PromoteProduct(r.Context(), sellerFromIdentity(identity), productID, paymentsvc.InitiateInput{
		Currency:  req.Currency,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		PlanType:  req.PlanType,
	})
	if err != nil {
		handleInitiateError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PaymentInitializeResponse{
		CheckoutURL: result.CheckoutURL,
		TxRef:       result.TxRef,
	})
}

// Webhook acknowledges every delivery with 200 so the gateway stops
// retrying; whether the event applied is visible only in the message.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.payments == nil {
		httperrors.Write(w, http.StatusOK, dto.WebhookResponse{Message: "Internal server error"})
		return
	}

	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		httperrors.Write(w, http.StatusOK, dto.WebhookResponse{Message: "Invalid payload"})
		return
	}

	result := h.payments.ProcessWebhook(r.Context(), rawBody, r.Header.Get(signatureHeader))
	httperrors.Write(w, http.StatusOK, dto.WebhookResponse{Message: result.Message})
}

func (h *PaymentHandler) IsSubscribed(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.payments == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	subscribed, err := h.payments.IsSubscribed(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to check subscription")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.IsSubscribedResponse{IsSubscribed: subscribed})
}

func (h *PaymentHandler) Plans(w http.ResponseWriter, r *http.Request) {
	if h.plans == nil {
		writeInternal(w, "PLANS_SERVICE_UNAVAILABLE", "plans service is unavailable")
		return
	}

	plans, err := h.plans.List(r.Context(), chi.URLParam(r, "kind"))
	if err != nil {
		if errors.Is(err, planssvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "unknown plan kind")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to list plans")
		return
	}

	httperrors.Write(w, http.StatusOK, toPlanListResponse(plans))
}

func handleInitiateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, paymentsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid payment payload")
	case errors.Is(err, paymentsvc.ErrAlreadyFeatured):
		writeBadRequest(w, "ALREADY_FEATURED", "product is already featured")
	case errors.Is(err, paymentsvc.ErrPlanNotFound):
		httperrors.Write(w, http.StatusNotFound, httperrors.APIError{
			Code:    "PLAN_NOT_FOUND",
			Message: "plan not found",
		})
	case errors.Is(err, paymentsvc.ErrProductNotFound):
		httperrors.Write(w, http.StatusNotFound, httperrors.APIError{
			Code:    "PRODUCT_NOT_FOUND",
			Message: "product not found",
		})
	case errors.Is(err, paymentsvc.ErrActiveSubscription):
		httperrors.Write(w, http.StatusConflict, httperrors.APIError{
			Code:    "ACTIVE_SUBSCRIPTION",
			Message: "seller already has an active subscription",
		})
	case errors.Is(err, paymentsvc.ErrGateway):
		httperrors.Write(w, http.StatusBadGateway, httperrors.APIError{
			Code:    "GATEWAY_ERROR",
			Message: "payment gateway is unavailable",
		})
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to initiate payment")
	}
}

func sellerFromIdentity(identity authsvc.Identity) paymentsvc.Seller {
	return paymentsvc.Seller{
		ID:    identity.UserID,
		Email: identity.Email,
	}
}

func toPlanListResponse(plans []planssvc.Plan) dto.PlanListResponse {
	resp := dto.PlanListResponse{Plans: make([]dto.PlanResponse, 0, len(plans))}
	for _, plan := range plans {
		resp.Plans = append(resp.Plans, toPlanResponse(plan))
	}
	return resp
}

func toPlanResponse(plan planssvc.Plan) dto.PlanResponse {
	return dto.PlanResponse{
		ID:           plan.ID,
		Kind:         plan.Kind,
		Type:         plan.Type,
		Price:        plan.Price,
		DurationDays: int64(plan.Duration / (24 * time.Hour)),
	}
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}
