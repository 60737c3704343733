package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Kingestif/Talak-kinash-backend/internal/config"
	authsvc "github.com/Kingestif/Talak-kinash-backend/internal/services/auth"
	paymentsvc "github.com/Kingestif/Talak-kinash-backend/internal/services/payments"
	planssvc "github.com/Kingestif/Talak-kinash-backend/internal/services/plans"
	referralsvc "github.com/Kingestif/Talak-kinash-backend/internal/services/referrals"
	"github.com/Kingestif/Talak-kinash-backend/internal/transport/http/handlers"
)

type Dependencies struct {
	JWTManager      *authsvc.JWTManager
	PaymentService  *paymentsvc.Service
	PlanService     *planssvc.Service
	ReferralService *referralsvc.Service
	Logger          *zap.Logger
	Config          config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	paymentHandler := handlers.NewPaymentHandler(deps.PaymentService, deps.PlanService)
	planHandler := handlers.NewPlanHandler(deps.PlanService)
	referralHandler := handlers.NewReferralHandler(deps.ReferralService)

	authMW := AuthMiddleware(deps.JWTManager, deps.Logger)
	adminRoleMW := RequireRole("admin")

	r.Get("/healthz", healthHandler.Get)

	r.Route("/payment", func(r chi.Router) {
		r.With(authMW).Post("/initialize", paymentHandler.Initialize)
		r.With(authMW).Post("/promoteProduct/{productId}", paymentHandler.PromoteProduct)
		// The gateway authenticates webhook deliveries by signature, not by
		// bearer token.
		r.Post("/verify", paymentHandler.Webhook)
		r.With(authMW).Get("/isSubscribed", paymentHandler.IsSubscribed)
		r.Get("/plans/{kind}", paymentHandler.Plans)
	})

	r.Route("/admin/plans", func(r chi.Router) {
		r.Use(authMW, adminRoleMW)
		r.Patch("/subscription", planHandler.UpdateSubscriptionPrice)
		r.Post("/promotion", planHandler.AddPromotionPlan)
		r.Patch("/promotion/{id}", planHandler.UpdatePromotionPlan)
		r.Delete("/promotion/{id}", planHandler.DeletePromotionPlan)
	})

	r.Post("/referrals/redeem", referralHandler.Redeem)
}
