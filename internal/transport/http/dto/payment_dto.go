package dto

type PaymentInitializeRequest struct {
	Currency  string `json:"currency"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	PlanType  string `json:"plan_type"`
}

type PaymentInitializeResponse struct {
	CheckoutURL string `json:"checkout_url"`
	TxRef       string `json:"tx_ref"`
}

type WebhookResponse struct {
	Message string `json:"message"`
}

type IsSubscribedResponse struct {
	IsSubscribed bool `json:"isSubscribed"`
}
