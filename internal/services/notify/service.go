package notify

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// Service sends the lifecycle emails. A failed send is logged and never
// propagated into the payment or referral state.
type Service struct {
	mailer Mailer
	logger *zap.Logger
}

func NewService(mailer Mailer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		mailer: mailer,
		logger: logger,
	}
}

func (s *Service) SubscriptionConfirmed(to, planType string, amount int64) {
	body := fmt.Sprintf(`
		<p>Congratulations! you have successfully subscribed to the <strong>%s</strong> plan.</p>
		<p><strong>Amount Paid:</strong> %d birr</p>
		<br>
		<p>Your subscription is now active. Enjoy all the benefits of your new plan!</p>
	`, planType, amount)
	s.send(to, fmt.Sprintf("Subscription Confirmation - %s Plan", planType), body)
}

func (s *Service) PromotionConfirmed(to, planType string) {
	body := fmt.Sprintf(`
		<p>Congratulations! you have successfully Promoted your product.</p>
		<p>Your Promotion is now active for <strong>%s</strong>. you can track your product status right from the app!! Enjoy your new plan!</p>
	`, planType)
	s.send(to, "Promotion Confirmation", body)
}

func (s *Service) PaymentFailed(to string) {
	body := `
		<p>We're sorry, but your attempt to subscribe to one of our plans was unsuccessful.</p>
		<p>Please try again, or contact our support team if the issue persists.</p>
		<p>We apologize for the inconvenience and appreciate your interest in our services.</p>
	`
	s.send(to, "Subscription Failed", body)
}

func (s *Service) PromoCodeIssued(to, code string, expiresAt time.Time) {
	body := fmt.Sprintf(`
		<p>You reached the referral reward milestone!</p>
		<p>Your promo code: <strong>%s</strong></p>
		<p>It is valid until %s.</p>
	`, code, expiresAt.UTC().Format(time.RFC1123))
	s.send(to, "Your Referral Promo Code", body)
}

func (s *Service) ReferralThanks(to string, points int) {
	body := fmt.Sprintf(`
		<p>Thank you for inviting a friend to Talak Kinash!</p>
		<p>You now have <strong>%d</strong> reward points.</p>
	`, points)
	s.send(to, "Referral Reward Points", body)
}

func (s *Service) send(to, subject, body string) {
	if s.mailer == nil || to == "" {
		return
	}

	if err := s.mailer.Send(to, subject, body); err != nil {
		s.logger.Warn("email delivery failed",
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}
