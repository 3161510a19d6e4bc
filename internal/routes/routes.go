package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/scanearn/coinvault/internal/admin"
	"github.com/scanearn/coinvault/internal/auth"
	"github.com/scanearn/coinvault/internal/claims"
	"github.com/scanearn/coinvault/internal/clock"
	"github.com/scanearn/coinvault/internal/config"
	"github.com/scanearn/coinvault/internal/fingerprint"
	"github.com/scanearn/coinvault/internal/identity"
	"github.com/scanearn/coinvault/internal/ledger"
	"github.com/scanearn/coinvault/internal/metrics"
	"github.com/scanearn/coinvault/internal/middleware"
	"github.com/scanearn/coinvault/internal/notification"
	"github.com/scanearn/coinvault/internal/receipt"
	"github.com/scanearn/coinvault/internal/support"
	"github.com/scanearn/coinvault/internal/tiers"
	"github.com/scanearn/coinvault/internal/wallet"
	"github.com/scanearn/coinvault/internal/withdrawal"
)

// Deps aggregates shared dependencies required to wire routes. DB and Cache
// may be nil in development, in which case in-memory backends are used.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Logger  *slog.Logger
	Metrics *prometheus.Registry
	Clock   clock.Clock
}

// Background holds the workers started alongside the HTTP server.
type Background struct {
	sweeper *claims.Sweeper
}

// Start runs the workers until ctx is cancelled.
func (b *Background) Start(ctx context.Context) {
	go b.sweeper.Run(ctx)
}

type services struct {
	identityRepo identity.Repository
	identity     *identity.Service
	auth         *auth.Service
	wallets      *wallet.Service
	receipts     *receipt.Service
	claims       *claims.Service
	withdrawals  *withdrawal.Service
	support      *support.Service
	console      *admin.Console
	catalog      *tiers.Catalog
}

func buildServices(ctx context.Context, d Deps, m *metrics.Metrics) (services, error) {
	var (
		ledgerBackend ledger.Ledger
		registry      fingerprint.Registry
		identityRepo  identity.Repository
		walletRepo    wallet.Repository
		receiptStore  receipt.Store
		claimRepo     claims.Repository
		supportRepo   support.Repository
		counter       withdrawal.DailyCounter
	)
	if d.DB != nil {
		pg := ledger.NewPostgresLedger(d.DB)
		if err := pg.EnsureSystemAccounts(ctx); err != nil {
			return services{}, fmt.Errorf("ensure system accounts: %w", err)
		}
		ledgerBackend = pg
		registry = fingerprint.NewPostgresRegistry(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
		walletRepo = wallet.NewPostgresRepository(d.DB)
		receiptStore = receipt.NewPostgresStore(d.DB)
		claimRepo = claims.NewPostgresRepository(d.DB)
		supportRepo = support.NewPostgresRepository(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
		registry = fingerprint.NewMemoryRegistry()
		identityRepo = identity.NewMemoryRepository()
		walletRepo = wallet.NewMemoryRepository()
		receiptStore = receipt.NewMemoryStore()
		claimRepo = claims.NewMemoryRepository()
		supportRepo = support.NewMemoryRepository()
	}
	if d.Cache != nil {
		counter = withdrawal.NewRedisCounter(d.Cache)
	} else {
		counter = withdrawal.NewMemoryCounter()
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	catalog := tiers.Default()
	identitySvc := identity.NewService(identityRepo, d.Cfg.AdminPhones, d.Logger)
	receiptSvc := receipt.NewService(receiptStore, receipt.DefaultMaxBytes)
	supportSvc := support.NewService(supportRepo, notifier, d.Clock, d.Logger)

	claimCfg := claims.DefaultConfig()
	claimCfg.RequireConfirmation = d.Cfg.RequireConfirmation
	claimCfg.PendingTTL = d.Cfg.PendingTTL
	claimSvc := claims.NewService(claims.Deps{
		Repo:     claimRepo,
		Registry: registry,
		Catalog:  catalog,
		Ledger:   ledgerBackend,
		Blocks:   identitySvc,
		Receipts: receiptSvc,
		Notifier: notifier,
		Metrics:  m,
		Clock:    d.Clock,
		Logger:   d.Logger,
	}, claimCfg)

	withdrawalSvc := withdrawal.NewService(withdrawal.Deps{
		Ledger:   ledgerBackend,
		Registry: registry,
		Counter:  counter,
		Blocks:   identitySvc,
		Notifier: notifier,
		Metrics:  m,
		Clock:    d.Clock,
		Logger:   d.Logger,
	}, withdrawal.Config{DailyLimit: d.Cfg.DailyWithdrawals, MinAmount: d.Cfg.MinWithdrawal})

	return services{
		identityRepo: identityRepo,
		identity:     identitySvc,
		auth:         auth.NewService(d.Cfg, identityRepo, d.Clock),
		wallets:      wallet.NewService(walletRepo, ledgerBackend, d.Clock),
		receipts:     receiptSvc,
		claims:       claimSvc,
		withdrawals:  withdrawalSvc,
		support:      supportSvc,
		console:      admin.NewConsole(claimSvc, identitySvc, supportSvc, d.Logger),
		catalog:      catalog,
	}, nil
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) (*Background, error) {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Clock == nil {
		d.Clock = clock.RealClock{}
	}
	if d.Metrics == nil {
		d.Metrics = prometheus.NewRegistry()
	}
	m := metrics.New(d.Metrics)

	svc, err := buildServices(context.Background(), d, m)
	if err != nil {
		return nil, err
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.Cfg.IsDev() {
		// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	jwtmw := middleware.JWTAuth(svc.auth)
	idem := middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)

	// Public routes
	RegisterTierRoutes(api, svc.catalog, tiers.Payee{ID: d.Cfg.UPIPayeeID, Name: d.Cfg.UPIPayeeName})
	RegisterIdentityRoutes(api, svc.identity, svc.wallets, d.Logger)
	RegisterAuthRoutes(api, auth.NewHandler(svc.identity, svc.auth), middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimit), jwtmw)

	// Protected routes. The group middleware also covers /admin.
	protected := api.Group("", jwtmw, idem)
	RegisterMeRoutes(protected, svc.identity)
	RegisterWalletRoutes(protected, wallet.NewHandler(svc.wallets))
	RegisterClaimRoutes(protected, claims.NewHandler(svc.claims), receipt.NewHandler(svc.receipts, d.Logger))
	RegisterWithdrawalRoutes(protected, withdrawal.NewHandler(svc.withdrawals))
	RegisterSupportRoutes(protected, support.NewHandler(svc.support))

	adminGroup := protected.Group("/admin", middleware.RequireAdmin())
	RegisterAdminRoutes(adminGroup, admin.NewHandler(svc.console))

	return &Background{sweeper: claims.NewSweeper(svc.claims, d.Cfg.SweepInterval, d.Logger)}, nil
}
