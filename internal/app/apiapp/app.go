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

	"github.com/xulioguimaraes/sportstips/internal/config"
	"github.com/xulioguimaraes/sportstips/internal/infra/asaas"
	s3infra "github.com/xulioguimaraes/sportstips/internal/infra/s3"
	"github.com/xulioguimaraes/sportstips/internal/infra/telegram"
	pgrepo "github.com/xulioguimaraes/sportstips/internal/repo/postgres"
	redrepo "github.com/xulioguimaraes/sportstips/internal/repo/redis"
	catalogsvc "github.com/xulioguimaraes/sportstips/internal/services/catalog"
	entsvc "github.com/xulioguimaraes/sportstips/internal/services/entitlements"
	paymentsvc "github.com/xulioguimaraes/sportstips/internal/services/payments"
	pixsvc "github.com/xulioguimaraes/sportstips/internal/services/pix"
	tipsvc "github.com/xulioguimaraes/sportstips/internal/services/tips"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
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
	planRepo := pgrepo.NewPlanRepo(pool)
	userRepo := pgrepo.NewUserRepo(pool)
	transactionRepo := pgrepo.NewTransactionRepo(pool)
	entitlementRepo := pgrepo.NewEntitlementRepo(pool)
	tipRepo := pgrepo.NewTipRepo(pool)
	planCacheRepo := redrepo.NewPlanCacheRepo(redisClient, cfg.Catalog.CacheTTL)

	catalogService := catalogsvc.NewService(planRepo, log)
	catalogService.AttachCache(planCacheRepo)

	var gateway pixsvc.Gateway
	if client, err := asaas.NewClient(asaas.Config{
		BaseURL:     cfg.Asaas.APIURL,
		APIKey:      cfg.Asaas.APIKey,
		HTTPTimeout: cfg.Asaas.HTTPTimeout,
	}); err != nil {
		log.Warn("asaas init failed, pix charges disabled", zap.Error(err))
	} else {
		gateway = client
	}

	pixService := pixsvc.NewService(pixsvc.Dependencies{
		Catalog: catalogService,
		Gateway: gateway,
		Ledger:  transactionRepo,
	}, pixsvc.Config{
		PixAddressKey: cfg.Asaas.PixAddressKey,
		ChargeTTL:     cfg.Asaas.ChargeTTL,
	}, log)

	paymentService := paymentsvc.NewService(paymentsvc.Dependencies{
		Ledger:       transactionRepo,
		Entitlements: entitlementRepo,
		Users:        userRepo,
		Catalog:      catalogService,
	}, log)

	entitlementService := entsvc.NewService(entsvc.Dependencies{
		Users:        userRepo,
		Entitlements: entitlementRepo,
		Tips:         tipRepo,
		Ledger:       transactionRepo,
	}, log)

	tipsService := tipsvc.NewService(tipRepo, log)

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
		pixService.AttachArchive(c, cfg.S3.Bucket)
	}

	if notifier, err := telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.OpsChatID); err != nil {
		log.Warn("telegram init failed, ops notifications disabled", zap.Error(err))
	} else {
		paymentService.AttachNotifier(notifier)
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		CatalogService:     catalogService,
		PixService:         pixService,
		PaymentService:     paymentService,
		EntitlementService: entitlementService,
		TipsService:        tipsService,
		Logger:             log,
		Config:             cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
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
