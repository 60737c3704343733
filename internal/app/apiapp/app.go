package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Kingestif/Talak-kinash-backend/internal/config"
	"github.com/Kingestif/Talak-kinash-backend/internal/infra/chapa"
	"github.com/Kingestif/Talak-kinash-backend/internal/infra/httpclient"
	"github.com/Kingestif/Talak-kinash-backend/internal/infra/mailer"
	s3infra "github.com/Kingestif/Talak-kinash-backend/internal/infra/s3"
	"github.com/Kingestif/Talak-kinash-backend/internal/jobs/sweeper"
	pgrepo "github.com/Kingestif/Talak-kinash-backend/internal/repo/postgres"
	redrepo "github.com/Kingestif/Talak-kinash-backend/internal/repo/redis"
	authsvc "github.com/Kingestif/Talak-kinash-backend/internal/services/auth"
	notifysvc "github.com/Kingestif/Talak-kinash-backend/internal/services/notify"
	paymentsvc "github.com/Kingestif/Talak-kinash-backend/internal/services/payments"
	planssvc "github.com/Kingestif/Talak-kinash-backend/internal/services/plans"
	referralsvc "github.com/Kingestif/Talak-kinash-backend/internal/services/referrals"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	sweeper    *sweeper.Sweeper
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	dedupRepo := redrepo.NewWebhookDedupRepo(redisClient)
	planCacheRepo := redrepo.NewPlanCacheRepo(redisClient)

	paymentRepo := pgrepo.NewPaymentRepo(pool)
	planRepo := pgrepo.NewPlanRepo(pool)
	productRepo := pgrepo.NewProductRepo(pool)
	referralRepo := pgrepo.NewReferralRepo(pool)

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}
	webhookArchive := s3infra.NewWebhookArchive(s3Client, cfg.S3.Bucket)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret)
	chapaClient := chapa.NewClient(chapa.Config{
		BaseURL:   cfg.Chapa.BaseURL,
		SecretKey: cfg.Chapa.SecretKey,
	}, httpclient.New(cfg.Chapa.Timeout))
	smtpMailer := mailer.NewSMTPMailer(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})

	notifyService := notifysvc.NewService(smtpMailer, log)
	planService := planssvc.NewService(planRepo, planCacheRepo, log)
	paymentService := paymentsvc.NewService(paymentsvc.Dependencies{
		Payments: paymentRepo,
		Products: productRepo,
		Catalog:  planService,
		Gateway:  chapaClient,
		Notifier: notifyService,
		Dedup:    dedupRepo,
		Archive:  webhookArchive,
	}, paymentsvc.Config{
		WebhookSecret:           cfg.Chapa.WebhookSecret,
		SubscriptionCallbackURL: cfg.Chapa.SubscriptionCallbackURL,
		PromotionCallbackURL:    cfg.Chapa.PromotionCallbackURL,
	}, log)
	referralService := referralsvc.NewService(referralRepo, notifyService, referralsvc.Config{
		Award:        cfg.Referral.Award,
		Threshold:    cfg.Referral.Threshold,
		PromoCodeTTL: cfg.Referral.PromoCodeTTL,
	}, log)

	RegisterRoutes(r, Dependencies{
		JWTManager:      jwtManager,
		PaymentService:  paymentService,
		PlanService:     planService,
		ReferralService: referralService,
		Logger:          log,
		Config:          cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		sweeper:    sweeper.New(productRepo, cfg.Sweep.Interval, log),
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// StartSweeper launches the feature expiry loop; it stops when ctx is
// cancelled.
func (a *App) StartSweeper(ctx context.Context) {
	go a.sweeper.Run(ctx)
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
