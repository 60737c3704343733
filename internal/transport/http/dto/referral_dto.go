package dto

type ReferralRedeemRequest struct {
	ReferralCode string `json:"referral_code"`
}

type ReferralRedeemResponse struct {
	Points      int  `json:"points"`
	PromoIssued bool `json:"promo_issued"`
}
