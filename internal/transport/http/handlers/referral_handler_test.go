package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pgrepo "github.com/Kingestif/Talak-kinash-backend/internal/repo/postgres"
	referralsvc "github.com/Kingestif/Talak-kinash-backend/internal/services/referrals"
)

type referralStoreStub struct {
	users  map[string]pgrepo.UserRecord
	points map[int64]int
}

func (s *referralStoreStub) FindByReferralCode(_ context.Context, code string) (pgrepo.UserRecord, error) {
	user, ok := s.users[code]
	if !ok {
		return pgrepo.UserRecord{}, pgrepo.ErrUserNotFound
	}
	return user, nil
}

func (s *referralStoreStub) Redeem(_ context.Context, referrerID int64, award, threshold int, promoCode string, promoExpiresAt time.Time) (pgrepo.RedeemOutcome, error) {
	points := s.points[referrerID] + award
	if points >= threshold {
		s.points[referrerID] = 0
		return pgrepo.RedeemOutcome{
			Minted:    true,
			PromoCode: pgrepo.PromoCodeRecord{Code: promoCode, OwnerID: referrerID, ExpiresAt: promoExpiresAt},
		}, nil
	}
	s.points[referrerID] = points
	return pgrepo.RedeemOutcome{Points: points}, nil
}

func (s *referralStoreStub) ListActivePromoCodes(_ context.Context, _ int64, _ time.Time) ([]pgrepo.PromoCodeRecord, error) {
	return nil, nil
}

func newReferralHandlerForTest() *ReferralHandler {
	store := &referralStoreStub{
		users: map[string]pgrepo.UserRecord{
			"REF123": {ID: 1, Email: "referrer@example.com", ReferralCode: "REF123"},
		},
		points: map[int64]int{},
	}
	return NewReferralHandler(referralsvc.NewService(store, nil, referralsvc.Config{}, nil))
}

func performRedeem(t *testing.T, h *ReferralHandler, code string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(map[string]string{"referral_code": code})
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/referrals/redeem", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Redeem(rec, req)
	return rec
}

func TestRedeemReturnsPoints(t *testing.T) {
	h := newReferralHandlerForTest()

	rec := performRedeem(t, h, "REF123")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var payload struct {
		Points      int  `json:"points"`
		PromoIssued bool `json:"promo_issued"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Points != 100 || payload.PromoIssued {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestRedeemUnknownCodeReturns404(t *testing.T) {
	h := newReferralHandlerForTest()

	rec := performRedeem(t, h, "NOPE")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRedeemMissingCodeReturns400(t *testing.T) {
	h := newReferralHandlerForTest()

	rec := performRedeem(t, h, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusBadRequest)
	}
}
