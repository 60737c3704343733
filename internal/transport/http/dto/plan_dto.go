package dto

type PlanResponse struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Type         string `json:"type"`
	Price        int64  `json:"price"`
	DurationDays int64  `json:"duration_days"`
}

type PlanListResponse struct {
	Plans []PlanResponse `json:"plans"`
}

type SubscriptionPriceUpdateRequest struct {
	PlanType string `json:"plan_type"`
	Price    int64  `json:"price"`
}

type PromotionPlanCreateRequest struct {
	PlanType     string `json:"plan_type"`
	Price        int64  `json:"price"`
	DurationDays int64  `json:"duration_days"`
}

type PromotionPlanUpdateRequest struct {
	Price        *int64 `json:"price"`
	DurationDays *int64 `json:"duration_days"`
}
