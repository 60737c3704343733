package handlers

import (
	"errors"
	"net/http"

	referralsvc "github.com/Kingestif/Talak-kinash-backend/internal/services/referrals"
	"github.com/Kingestif/Talak-kinash-backend/internal/transport/http/dto"
	httperrors "github.com/Kingestif/Talak-kinash-backend/internal/transport/http/errors"
)

type ReferralHandler struct {
	referrals *referralsvc.Service
}

func NewReferralHandler(referrals *referralsvc.Service) *ReferralHandler {
	return &ReferralHandler{referrals: referrals}
}

func (h *ReferralHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	if h.referrals == nil {
		writeInternal(w, "REFERRALS_SERVICE_UNAVAILABLE", "referrals service is unavailable")
		return
	}

	var req dto.ReferralRedeemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	result, err := h.referrals.Redeem(r.Context(), req.ReferralCode)
	if err != nil {
		switch {
		case errors.Is(err, referralsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "referral code is required")
		case errors.Is(err, referralsvc.ErrInvalidReferralCode):
			httperrors.Write(w, http.StatusNotFound, httperrors.APIError{
				Code:    "INVALID_REFERRAL_CODE",
				Message: "referral code not found",
			})
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to redeem referral")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ReferralRedeemResponse{
		Points:      result.Points,
		PromoIssued: result.PromoIssued,
	})
}
