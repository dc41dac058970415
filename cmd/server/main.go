package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cartapp "github.com/freely/backend/internal/application/cart"
	catalogapp "github.com/freely/backend/internal/application/catalog"
	chatapp "github.com/freely/backend/internal/application/chat"
	checkoutapp "github.com/freely/backend/internal/application/checkout"
	identityapp "github.com/freely/backend/internal/application/identity"
	"github.com/freely/backend/internal/domain/chat"
	"github.com/freely/backend/internal/domain/order"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/freely/backend/internal/infrastructure/auth"
	"github.com/freely/backend/internal/infrastructure/cache"
	"github.com/freely/backend/internal/infrastructure/config"
	"github.com/freely/backend/internal/infrastructure/event"
	"github.com/freely/backend/internal/infrastructure/llm"
	"github.com/freely/backend/internal/infrastructure/logger"
	"github.com/freely/backend/internal/infrastructure/migration"
	"github.com/freely/backend/internal/infrastructure/payment"
	"github.com/freely/backend/internal/infrastructure/persistence"
	"github.com/freely/backend/internal/infrastructure/search"
	"github.com/freely/backend/internal/infrastructure/storage"
	"github.com/freely/backend/internal/infrastructure/telemetry"
	"github.com/freely/backend/internal/interfaces/http/handler"
	"github.com/freely/backend/internal/interfaces/http/middleware"
	"github.com/freely/backend/internal/interfaces/http/router"
	"github.com/freely/backend/migrations"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}, cfg.App.Name)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize logger:", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("Server exited gracefully")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting Freely backend",
		zap.String("version", version),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return fmt.Errorf("tracer provider: %w", err)
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return fmt.Errorf("meter provider: %w", err)
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return fmt.Errorf("logger provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("Error shutting down meter provider", zap.Error(err))
		}
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("Error shutting down tracer provider", zap.Error(err))
		}
		if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("Error shutting down logger provider", zap.Error(err))
		}
	}()
	log = telemetry.NewBridgedLogger(log, telemetry.NewZapOTELCore(loggerProvider, cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level)))
	meter := meterProvider.Meter("freely")

	// Database
	var gormOpts []logger.GormLoggerOption
	if cfg.Telemetry.DBSlowQueryThresh > 0 {
		gormOpts = append(gormOpts, logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	}
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), gormOpts...)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFrom(cfg), log).Register(db.DB); err != nil {
		log.Warn("Database tracing not installed", zap.Error(err))
	}
	dbMetrics, err := telemetry.NewDBMetrics(meterProvider.Meter("db.client"), telemetry.DBMetricsConfigFrom(cfg), log)
	if err != nil {
		return fmt.Errorf("database metrics: %w", err)
	}
	defer dbMetrics.Stop()
	if err := dbMetrics.Register(db.DB); err != nil {
		log.Warn("Database metrics not installed", zap.Error(err))
	}
	log.Info("Database connected")

	if cfg.App.AutoMigrate {
		if err := migrateUp(db, log); err != nil {
			return err
		}
	}

	// Redis backs the webhook ledger and conversation locks when configured
	cacheOpts := []cache.FactoryOption{
		cache.WithLogger(log),
		cache.WithLockTiming(cfg.Redis.LockLease, cfg.Redis.LockRetryInterval),
	}
	if cfg.Redis.Enabled() {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() {
			_ = client.Close()
		}()
		cacheOpts = append(cacheOpts, cache.WithRedisClient(client))
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}
	caches := cache.NewFactory(cacheOpts...)
	idempotency := caches.IdempotencyStore()
	defer func() {
		_ = idempotency.Close()
	}()

	// Repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	sessionRepo := persistence.NewGormSessionRepository(db.DB)
	orgRepo := persistence.NewGormOrganizationRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	cartRepo := persistence.NewGormCartRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	conversationRepo := persistence.NewGormConversationRepository(db.DB)

	// Domain events
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(ctx); err != nil {
		return fmt.Errorf("event bus: %w", err)
	}
	defer func() {
		_ = eventBus.Stop(context.Background())
	}()

	var chatMetrics chatapp.ChatMetrics
	if commerceMetrics, err := telemetry.NewCommerceMetrics(meter, log); err != nil {
		log.Warn("Commerce metrics disabled", zap.Error(err))
	} else {
		eventBus.Subscribe(commerceMetrics)
		chatMetrics = commerceMetrics
	}

	var publisher *event.KafkaPublisher
	if cfg.Kafka.Enabled {
		publisher = event.NewKafkaPublisher(cfg.Kafka, log)
		eventBus.Subscribe(publisher)
		log.Info("Kafka event export enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	// Optional integrations. Each one stays a nil interface when disabled.
	var gateway order.PaymentGateway
	if cfg.Stripe.SecretKey != "" {
		gateway = payment.NewStripeGateway(cfg.Stripe, log)
	} else {
		log.Warn("Stripe is not configured; checkout is disabled")
	}

	var assistant chat.Assistant
	if cfg.Anthropic.APIKey != "" {
		assistant = llm.NewAnthropicAssistant(cfg.Anthropic, log)
	} else {
		log.Warn("Anthropic is not configured; the shopping assistant is disabled")
	}

	var imageStorage catalogapp.ImageStorage
	if cfg.Storage.Enabled {
		s3, err := storage.NewS3ImageStorage(cfg.Storage, storage.WithLogger(log), storage.WithPresignExpiry(cfg.Storage.PresignExpiry))
		if err != nil {
			return fmt.Errorf("image storage: %w", err)
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			log.Warn("Image bucket check failed", zap.String("bucket", s3.Bucket()), zap.Error(err))
		}
		imageStorage = s3
	}

	var searchIndex catalogapp.ProductSearchIndex
	if cfg.Elasticsearch.Enabled {
		client, err := search.NewClient(ctx, cfg.Elasticsearch)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		index := search.NewProductIndex(client, cfg.Elasticsearch.Index, log)
		if err := index.EnsureIndex(ctx); err != nil {
			return fmt.Errorf("search index: %w", err)
		}
		eventBus.Subscribe(search.NewIndexer(productRepo, index, log))
		searchIndex = index
	}

	// Application services
	cartService := cartapp.NewCartService(cartRepo, productRepo, db, eventBus, log)
	authService := identityapp.NewAuthService(
		userRepo,
		sessionRepo,
		auth.NewSessionTokens(cfg.Session.Secret),
		auth.NewJWTService(cfg.JWT),
		eventBus,
		cartService,
		identityapp.AuthServiceConfig{SessionTTL: cfg.Session.TTL},
		log,
	)
	organizationService := identityapp.NewOrganizationService(orgRepo, db, eventBus, log)
	productService := catalogapp.NewProductService(productRepo, categoryRepo, orgRepo, searchIndex, eventBus, log)
	categoryService := catalogapp.NewCategoryService(categoryRepo, eventBus, log)
	imageService := catalogapp.NewImageService(productRepo, imageStorage, eventBus, log)
	checkoutService := checkoutapp.NewCheckoutService(checkoutapp.Repositories{
		Orders:        orderRepo,
		Carts:         cartRepo,
		Products:      productRepo,
		Organizations: orgRepo,
		Users:         userRepo,
	}, gateway, db, eventBus, log)
	webhookService := checkoutapp.NewWebhookService(checkoutService, gateway, idempotency, shared.IdempotencyConfigWithTTL(cfg.Stripe.WebhookDedupTTL), log)
	chatService := chatapp.NewChatService(conversationRepo, assistant, caches.ConversationLocker(), chatMetrics, chatapp.ChatServiceConfig{
		SystemPrompt: cfg.Anthropic.SystemPrompt,
		MaxTokens:    int(cfg.Anthropic.MaxTokens),
	}, log)

	// HTTP handlers
	base := handler.BaseHandler{ExposeErrorDetails: !cfg.App.IsProduction()}
	cookies := handler.CookieConfig{
		SessionName: cfg.Session.CookieName,
		CartName:    cfg.Session.CartCookieName,
		Domain:      cfg.Session.CookieDomain,
		Secure:      cfg.Session.CookieSecure,
		SameSite:    handler.ParseSameSite(cfg.Session.CookieSameSite),
		SessionTTL:  cfg.Session.TTL,
		CartTTL:     cfg.Session.CartSessionTTL,
	}
	handlers := router.Handlers{
		Auth:         handler.NewAuthHandler(base, authService, cookies),
		Organization: handler.NewOrganizationHandler(base, organizationService, checkoutService),
		Cart:         handler.NewCartHandler(base, cartService, cookies),
		Checkout:     handler.NewCheckoutHandler(base, checkoutService, cookies),
		Product:      handler.NewProductHandler(base, productService, imageService),
		Category:     handler.NewCategoryHandler(base, categoryService),
		Chat:         handler.NewChatHandler(base, chatService),
		Webhook:      handler.NewStripeWebhookHandler(base, webhookService),
		Health:       handler.NewHealthHandler(db, version).WithEvents(eventBus),
	}

	sessionAuth := middleware.SessionAuthConfig{
		Authenticator: authService,
		CookieName:    cookies.SessionName,
		Logger:        log,
	}
	guards := router.Guards{
		OptionalAuth:        middleware.OptionalAuth(sessionAuth),
		RequireAuth:         middleware.RequireAuth(sessionAuth),
		RequireOrganization: middleware.RequireOrganization(organizationService),
	}
	if cfg.HTTP.AuthRateLimitEnabled {
		guards.AuthRateLimit = middleware.RateLimit(middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow))
	}

	engine := newEngine(cfg, log, meter)
	engine.GET("/health", handlers.Health.Check)
	router.RegisterAPI(router.NewRouter(engine, router.WithAPIVersion("v1")), handlers, guards).Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	if publisher != nil {
		g.Go(func() error {
			return publisher.Run(gctx)
		})
	}
	g.Go(func() error {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newEngine builds the gin engine with the global middleware stack
func newEngine(cfg *config.Config, log *zap.Logger, meter metric.Meter) *gin.Engine {
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine.Use(
		middleware.RequestID(),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.TracingAttributeInjector(),
		middleware.SpanErrorMarker(),
		logger.Recovery(log, !cfg.App.IsProduction()),
		logger.GinMiddleware(log),
		middleware.HTTPMetricsWithMeter(meter, cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled),
		middleware.Secure(),
		middleware.CORSWithConfig(cors),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	if cfg.HTTP.RateLimitEnabled {
		engine.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}
	return engine
}

func migrateUp(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	m, err := migration.NewEmbedded(sqlDB, migrations.FS, log)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	// Closing the migrator would close the shared pool
	return m.Up()
}
