package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kingestif/Talak-kinash-backend/internal/infra/chapa"
	pgrepo "github.com/Kingestif/Talak-kinash-backend/internal/repo/postgres"
	planssvc "github.com/Kingestif/Talak-kinash-backend/internal/services/plans"
)

const (
	StatusPending   = "pending"
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
	StatusRefunded  = "refunded"
	StatusReversed  = "reversed"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrPlanNotFound       = errors.New("plan not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrActiveSubscription = errors.New("active subscription exists")
	ErrAlreadyFeatured    = errors.New("product already featured")
	ErrGateway            = errors.New("payment gateway error")
)

type PaymentStore interface {
	CreatePending(ctx context.Context, sellerID int64, productID *int64, txRef, kind, planType string, amount int64, currency string) (pgrepo.PaymentRecord, error)
	FindByTxRef(ctx context.Context, txRef string) (pgrepo.PaymentRecord, error)
	FindActiveSubscription(ctx context.Context, sellerID int64, at time.Time) (pgrepo.PaymentRecord, error)
	MarkTerminal(ctx context.Context, txRef, status string, expiresAt *time.Time) (pgrepo.PaymentRecord, bool, error)
}

type ProductStore interface {
	FindByID(ctx context.Context, productID int64) (pgrepo.ProductRecord, error)
	SetFeatured(ctx context.Context, productID int64, until time.Time) error
}

type PlanCatalog interface {
	Find(ctx context.Context, kind, planType string) (planssvc.Plan, error)
}

type Gateway interface {
	Initialize(ctx context.Context, in chapa.InitializeRequest) (chapa.InitializeResult, error)
}

type Notifier interface {
	SubscriptionConfirmed(to, planType string, amount int64)
	PromotionConfirmed(to, planType string)
	PaymentFailed(to string)
}

type DedupStore interface {
	Seen(ctx context.Context, txRef, event string) (bool, error)
	MarkProcessed(ctx context.Context, txRef, event string, ttl time.Duration) error
}

type Archive interface {
	Store(ctx context.Context, key string, body []byte) error
}

type Service struct {
	payments PaymentStore
	products ProductStore
	catalog  PlanCatalog
	gateway  Gateway
	notifier Notifier
	dedup    DedupStore
	archive  Archive
	cfg      Config
	now      func() time.Time
	logger   *zap.Logger
}

type Dependencies struct {
	Payments PaymentStore
	Products ProductStore
	Catalog  PlanCatalog
	Gateway  Gateway
	Notifier Notifier
	Dedup    DedupStore
	Archive  Archive
}

type Config struct {
	WebhookSecret           string
	SubscriptionCallbackURL string
	PromotionCallbackURL    string
	DedupTTL                time.Duration
}

type Seller struct {
	ID    int64
	Email string
}

type InitiateInput struct {
	Currency  string
	FirstName string
	LastName  string
	PlanType  string
}

type InitiateResult struct {
	CheckoutURL string
	TxRef       string
}

type WebhookResult struct {
	Message    string
	Applied    bool
	Idempotent bool
	Status     string
	TxRef      string
}

type webhookPayload struct {
	Event    string      `json:"event"`
	TxRef    string      `json:"tx_ref"`
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency"`
	Email    string      `json:"email"`
}

func NewService(deps Dependencies, cfg Config, logger *zap.Logger) *Service {
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 48 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		payments: deps.Payments,
		products: deps.Products,
		catalog:  deps.Catalog,
		gateway:  deps.Gateway,
		notifier: deps.Notifier,
		dedup:    deps.Dedup,
		archive:  deps.Archive,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// InitiateSubscription creates one pending payment per successful gateway
// call and nothing at all when the gateway call fails.
func (s *Service) InitiateSubscription(ctx context.Context, seller Seller, in InitiateInput) (InitiateResult, error) {
	if err := validateInitiate(seller, in); err != nil {
		return InitiateResult{}, err
	}
	if s.payments == nil || s.catalog == nil || s.gateway == nil {
		return InitiateResult{}, fmt.Errorf("payments dependencies are not configured")
	}

	now := s.now().UTC()
	_, err := s.payments.FindActiveSubscription(ctx, seller.ID, now)
	if err == nil {
		return InitiateResult{}, ErrActiveSubscription
	}
	if !errors.Is(err, pgrepo.ErrPaymentNotFound) {
		return InitiateResult{}, err
	}

	plan, err := s.catalog.Find(ctx, planssvc.KindSubscription, in.PlanType)
	if err != nil {
		if errors.Is(err, planssvc.ErrPlanNotFound) {
			return InitiateResult{}, ErrPlanNotFound
		}
		return InitiateResult{}, err
	}

	txRef := s.newTxRef(planssvc.KindSubscription, seller.ID)
	checkout, err := s.gateway.Initialize(ctx, chapa.InitializeRequest{
		Amount:      plan.Price,
		Currency:    in.Currency,
		Email:       seller.Email,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		TxRef:       txRef,
		CallbackURL: s.cfg.SubscriptionCallbackURL,
		Title:       "Subscription Payment",
		Description: "Secure Payment via Chapa",
	})
	if err != nil {
		return InitiateResult{}, fmt.Errorf("initialize subscription payment: %w: %w", ErrGateway, err)
	}

	if _, err := s.payments.CreatePending(ctx, seller.ID, nil, txRef, planssvc.KindSubscription, plan.Type, plan.Price, in.Currency); err != nil {
		return InitiateResult{}, err
	}

	return InitiateResult{
		CheckoutURL: checkout.CheckoutURL,
		TxRef:       txRef,
	}, nil
}

func (s *Service) PromoteProduct(ctx context.Context, seller Seller, productID int64, in InitiateInput) (InitiateResult, error) {
	if err := validateInitiate(seller, in); err != nil {
		return InitiateResult{}, err
	}
	if productID <= 0 {
		return InitiateResult{}, ErrValidation
	}
	if s.payments == nil || s.products == nil || s.catalog == nil || s.gateway == nil {
		return InitiateResult{}, fmt.Errorf("payments dependencies are not configured")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProductNotFound) {
			return InitiateResult{}, ErrProductNotFound
		}
		return InitiateResult{}, err
	}
	if product.IsFeatured {
		return InitiateResult{}, ErrAlreadyFeatured
	}

	plan, err := s.catalog.Find(ctx, planssvc.KindPromotion, in.PlanType)
	if err != nil {
		if errors.Is(err, planssvc.ErrPlanNotFound) {
			return InitiateResult{}, ErrPlanNotFound
		}
		return InitiateResult{}, err
	}

	txRef := s.newTxRef(planssvc.KindPromotion, seller.ID)
	checkout, err := s.gateway.Initialize(ctx, chapa.InitializeRequest{
		Amount:      plan.Price,
		Currency:    in.Currency,
		Email:       seller.Email,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		TxRef:       txRef,
		CallbackURL: s.cfg.PromotionCallbackURL,
		Title:       "Promotion Payment",
		Description: "Secure Payment via Chapa",
	})
	if err != nil {
		return InitiateResult{}, fmt.Errorf("initialize promotion payment: %w: %w", ErrGateway, err)
	}

	if _, err := s.payments.CreatePending(ctx, seller.ID, &productID, txRef, planssvc.KindPromotion, plan.Type, plan.Price, in.Currency); err != nil {
		return InitiateResult{}, err
	}

	return InitiateResult{
		CheckoutURL: checkout.CheckoutURL,
		TxRef:       txRef,
	}, nil
}

// IsSubscribed computes the seller's active status on read; subscription
// expiry never needs a background write.
func (s *Service) IsSubscribed(ctx context.Context, sellerID int64) (bool, error) {
	if sellerID <= 0 {
		return false, ErrValidation
	}
	if s.payments == nil {
		return false, fmt.Errorf("payment store is nil")
	}

	_, err := s.payments.FindActiveSubscription(ctx, sellerID, s.now().UTC())
	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgrepo.ErrPaymentNotFound) {
		return false, nil
	}
	return false, err
}

// ProcessWebhook applies at most one transition per tx_ref no matter how
// often the gateway redelivers. It never reports failure to the caller;
// the HTTP layer acknowledges every delivery with 200 and the message here
// is informational only.
func (s *Service) ProcessWebhook(ctx context.Context, rawBody []byte, signature string) WebhookResult {
	if !s.verifySignature(rawBody, signature) {
		s.logger.Warn("webhook signature verification failed")
		return WebhookResult{Message: "Invalid signature"}
	}

	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		s.logger.Warn("webhook payload is not valid json", zap.Error(err))
		return WebhookResult{Message: "Invalid payload"}
	}

	event := strings.ToLower(strings.TrimSpace(payload.Event))
	txRef := strings.TrimSpace(payload.TxRef)
	if event == "" || txRef == "" {
		s.logger.Warn("webhook payload misses event or tx_ref")
		return WebhookResult{Message: "Invalid payload"}
	}

	s.archiveBody(ctx, txRef, event, rawBody)

	if s.dedup != nil {
		seen, err := s.dedup.Seen(ctx, txRef, event)
		if err != nil {
			s.logger.Debug("webhook dedup lookup failed", zap.Error(err))
		} else if seen {
			return WebhookResult{Message: "Event already processed", Idempotent: true, TxRef: txRef}
		}
	}

	kind, ok := kindFromTxRef(txRef)
	if !ok {
		s.logger.Warn("unknown transaction reference type", zap.String("tx_ref", txRef))
		return WebhookResult{Message: "Unknown transaction reference type", TxRef: txRef}
	}

	status, ok := statusForEvent(event)
	if !ok {
		s.logger.Info("unknown webhook event", zap.String("event", event), zap.String("tx_ref", txRef))
		return WebhookResult{Message: "Unknown event", TxRef: txRef}
	}

	result := s.applyTransition(ctx, kind, status, txRef, payload)
	if (result.Applied || result.Idempotent) && s.dedup != nil {
		if err := s.dedup.MarkProcessed(ctx, txRef, event, s.cfg.DedupTTL); err != nil {
			s.logger.Debug("webhook dedup mark failed", zap.Error(err))
		}
	}

	return result
}

func (s *Service) applyTransition(ctx context.Context, kind, status, txRef string, payload webhookPayload) WebhookResult {
	if s.payments == nil {
		s.logger.Error("payment store is nil, webhook dropped", zap.String("tx_ref", txRef))
		return WebhookResult{Message: "Internal server error", TxRef: txRef}
	}

	payment, err := s.payments.FindByTxRef(ctx, txRef)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPaymentNotFound) {
			s.logger.Warn("webhook for unknown payment", zap.String("tx_ref", txRef))
			return WebhookResult{Message: "Payment not found", TxRef: txRef}
		}
		s.logger.Error("webhook payment lookup failed", zap.String("tx_ref", txRef), zap.Error(err))
		return WebhookResult{Message: "Internal server error", TxRef: txRef}
	}

	if payment.Status != StatusPending {
		return WebhookResult{Message: "Event already processed", Idempotent: true, Status: payment.Status, TxRef: txRef}
	}

	if paid, perr := payload.Amount.Int64(); perr == nil && paid > 0 && paid != payment.Amount {
		s.logger.Warn("webhook amount differs from recorded amount",
			zap.String("tx_ref", txRef),
			zap.Int64("paid", paid),
			zap.Int64("recorded", payment.Amount),
		)
	}

	if status != StatusSuccess {
		return s.applyNonSuccess(ctx, status, txRef, payload)
	}

	// The plan type was recorded at initiation time, so the paid amount is
	// never used to re-derive it.
	plan, err := s.catalog.Find(ctx, kind, payment.PlanType)
	if err != nil {
		s.logger.Error("webhook plan lookup failed",
			zap.String("tx_ref", txRef),
			zap.String("plan_type", payment.PlanType),
			zap.Error(err),
		)
		return WebhookResult{Message: "Internal server error", TxRef: txRef}
	}

	now := s.now().UTC()
	var expiresAt *time.Time
	if kind == planssvc.KindSubscription {
		exp := now.Add(plan.Duration)
		expiresAt = &exp
	}

	updated, changed, err := s.payments.MarkTerminal(ctx, txRef, StatusSuccess, expiresAt)
	if err != nil {
		s.logger.Error("webhook success transition failed", zap.String("tx_ref", txRef), zap.Error(err))
		return WebhookResult{Message: "Internal server error", TxRef: txRef}
	}
	if !changed {
		return WebhookResult{Message: "Event already processed", Idempotent: true, Status: updated.Status, TxRef: txRef}
	}

	if kind == planssvc.KindPromotion {
		if updated.ProductID == nil {
			s.logger.Error("promotion payment without product id", zap.String("tx_ref", txRef))
		} else if err := s.products.SetFeatured(ctx, *updated.ProductID, now.Add(plan.Duration)); err != nil {
			// Transition already committed; the archived body backs manual
			// reconciliation of the missing flag.
			s.logger.Error("set product featured failed",
				zap.String("tx_ref", txRef),
				zap.Int64("product_id", *updated.ProductID),
				zap.Error(err),
			)
		}
	}

	if s.notifier != nil && payload.Email != "" {
		if kind == planssvc.KindSubscription {
			s.notifier.SubscriptionConfirmed(payload.Email, plan.Type, updated.Amount)
		} else {
			s.notifier.PromotionConfirmed(payload.Email, plan.Type)
		}
	}

	s.logger.Info("payment confirmed",
		zap.String("tx_ref", txRef),
		zap.String("kind", kind),
		zap.String("plan_type", plan.Type),
	)
	return WebhookResult{Message: "Payment verified successfully", Applied: true, Status: StatusSuccess, TxRef: txRef}
}

func (s *Service) applyNonSuccess(ctx context.Context, status, txRef string, payload webhookPayload) WebhookResult {
	updated, changed, err := s.payments.MarkTerminal(ctx, txRef, status, nil)
	if err != nil {
		s.logger.Error("webhook terminal transition failed",
			zap.String("tx_ref", txRef),
			zap.String("status", status),
			zap.Error(err),
		)
		return WebhookResult{Message: "Internal server error", TxRef: txRef}
	}
	if !changed {
		return WebhookResult{Message: "Event already processed", Idempotent: true, Status: updated.Status, TxRef: txRef}
	}

	switch status {
	case StatusFailed, StatusCancelled:
		if s.notifier != nil && payload.Email != "" {
			s.notifier.PaymentFailed(payload.Email)
		}
	case StatusRefunded, StatusReversed:
		// An already-applied benefit is deliberately left in place.
		s.logger.Info("payment refunded or reversed, benefit not revoked",
			zap.String("tx_ref", txRef),
			zap.String("status", status),
		)
	}

	return WebhookResult{Message: "Payment " + status, Applied: true, Status: status, TxRef: txRef}
}

func (s *Service) verifySignature(rawBody []byte, signature string) bool {
	if s.cfg.WebhookSecret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(s.cfg.WebhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

func (s *Service) archiveBody(ctx context.Context, txRef, event string, rawBody []byte) {
	if s.archive == nil {
		return
	}

	key := fmt.Sprintf("%s/%s-%s.json", txRef, event, uuid.NewString())
	if err := s.archive.Store(ctx, key, rawBody); err != nil {
		s.logger.Debug("webhook archive failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) newTxRef(kind string, sellerID int64) string {
	return fmt.Sprintf("%s_%d_%d", kind, s.now().UnixMilli(), sellerID)
}

func validateInitiate(seller Seller, in InitiateInput) error {
	if seller.ID <= 0 || strings.TrimSpace(seller.Email) == "" {
		return ErrValidation
	}
	if strings.TrimSpace(in.Currency) == "" ||
		strings.TrimSpace(in.FirstName) == "" ||
		strings.TrimSpace(in.LastName) == "" ||
		strings.TrimSpace(in.PlanType) == "" {
		return ErrValidation
	}
	return nil
}

func kindFromTxRef(txRef string) (string, bool) {
	switch {
	case strings.HasPrefix(txRef, planssvc.KindSubscription+"_"):
		return planssvc.KindSubscription, true
	case strings.HasPrefix(txRef, planssvc.KindPromotion+"_"):
		return planssvc.KindPromotion, true
	default:
		return "", false
	}
}

func statusForEvent(event string) (string, bool) {
	switch event {
	case "charge.success":
		return StatusSuccess, true
	case "charge.failed":
		return StatusFailed, true
	case "charge.cancelled":
		return StatusCancelled, true
	case "charge.refunded":
		return StatusRefunded, true
	case "charge.reversed":
		return StatusReversed, true
	default:
		return "", false
	}
}
