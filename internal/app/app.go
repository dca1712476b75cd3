package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/sportsclub/server/cmd/server/docs" // swagger docs
	"github.com/sportsclub/server/internal/infra/events"
	"github.com/sportsclub/server/internal/infra/httpclient"
	"github.com/sportsclub/server/internal/module/auth"
	"github.com/sportsclub/server/internal/module/catalog"
	"github.com/sportsclub/server/internal/module/coursebooking"
	"github.com/sportsclub/server/internal/module/injurysolution"
	"github.com/sportsclub/server/internal/module/membership"
	"github.com/sportsclub/server/internal/module/notification"
	"github.com/sportsclub/server/internal/module/payment"
	"github.com/sportsclub/server/internal/module/payment/paynow"
	"github.com/sportsclub/server/internal/module/productorder"
	"github.com/sportsclub/server/internal/module/registration"
	"github.com/sportsclub/server/internal/module/trainingpackage"
	sharedcache "github.com/sportsclub/server/internal/shared/cache"
	"github.com/sportsclub/server/internal/shared/config"
	"github.com/sportsclub/server/internal/shared/database"
	sharedevents "github.com/sportsclub/server/internal/shared/events"
	"github.com/sportsclub/server/internal/shared/logger"
	"github.com/sportsclub/server/internal/utils/metrics"
	"github.com/sportsclub/server/internal/utils/middleware"
)

// routeRegistrar is implemented by every purchase domain handler.
type routeRegistrar interface {
	RegisterRoutes(r *gin.RouterGroup, requireAdmin gin.HandlerFunc)
}

// App represents the application.
type App struct {
	config    *config.Config
	db        *gorm.DB
	redis     redis.UniversalClient
	router    *gin.Engine
	logger    *logger.Logger
	zapLogger *zap.Logger
	metrics   *metrics.Metrics

	// Event infrastructure
	eventBus *events.Bus

	// Payment infrastructure
	jwt      *auth.JWTManager
	gateway  *paynow.Client
	registry *payment.Registry
	notifier *notification.Dispatcher
	amqp     *notification.AMQPSender
	callback *paynow.CallbackHandler

	// Domain handlers
	handlers []routeRegistrar
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	// Initialize logger
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	// Initialize zap logger for services and the payment engine
	zapLog, err := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init zap logger: %w", err)
	}

	app := &App{
		config:    cfg,
		logger:    log,
		zapLogger: zapLog,
		metrics:   metrics.New("sportsclub"),
	}

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	app.db = db

	if cfg.Database.AutoMigrate {
		sqlDB, err := db.DB()
		if err != nil {
			app.Stop()
			return nil, fmt.Errorf("get sql db: %w", err)
		}
		if err := database.Migrate(sqlDB); err != nil {
			app.Stop()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	// Initialize Redis (optional: locks fall back to in-process mutexes)
	if cfg.Redis.Address != "" {
		redisClient, err := sharedcache.NewRedisClient(&cfg.Redis)
		if err != nil {
			zapLog.Warn("redis unavailable, using in-process locks", zap.Error(err))
		} else {
			app.redis = redisClient
		}
	}

	// Initialize router
	app.router = app.setupRouter()

	// Initialize modules
	if err := app.initModules(); err != nil {
		app.Stop()
		return nil, fmt.Errorf("init modules: %w", err)
	}

	app.registerRoutes()
	return app, nil
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	// Set Gin mode based on environment
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Apply global middleware
	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger documentation endpoint
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	return r
}

// initModules initializes all application modules.
func (a *App) initModules() error {
	// Initialize event bus for domain events
	a.eventBus = events.NewBus(a.zapLogger)
	a.registerEventHandlers()

	a.jwt = auth.NewJWTManager(&auth.JWTConfig{
		Secret:            a.config.Auth.JWTSecret,
		AccessTokenExpiry: a.config.Auth.AccessTokenExpiry,
		Issuer:            a.config.Auth.Issuer,
	})

	gateway, err := paynow.New(a.config.Paynow, httpclient.New(a.config.HTTPClient), a.metrics, a.zapLogger.Named("paynow"))
	if err != nil {
		return fmt.Errorf("create paynow client: %w", err)
	}
	a.gateway = gateway

	if err := a.initNotifications(); err != nil {
		return fmt.Errorf("init notifications: %w", err)
	}

	fees, err := membership.ParseFees(a.config.Membership.Fees)
	if err != nil {
		return fmt.Errorf("parse membership fees: %w", err)
	}

	opts := a.engineOptions()
	storeOpts := []payment.StoreOption{payment.WithOutbox(a.config.Outbox.Enabled)}
	catalogRepo := catalog.NewRepository(a.db)
	a.registry = payment.NewRegistry()

	registrations := registration.NewService(
		registration.NewRepository(a.db, storeOpts...), catalogRepo, gateway, a.zapLogger.Named(registration.DomainName), opts...)
	memberships := membership.NewService(
		membership.NewRepository(a.db, storeOpts...), fees, gateway, a.zapLogger.Named(membership.DomainName), opts...)
	bookings := coursebooking.NewService(
		coursebooking.NewRepository(a.db, storeOpts...), catalogRepo, gateway, a.zapLogger.Named(coursebooking.DomainName), opts...)
	packages := trainingpackage.NewService(
		trainingpackage.NewRepository(a.db, storeOpts...), catalogRepo, gateway, a.zapLogger.Named(trainingpackage.DomainName), opts...)
	solutions := injurysolution.NewService(
		injurysolution.NewRepository(a.db, storeOpts...), catalogRepo, gateway, a.zapLogger.Named(injurysolution.DomainName), opts...)
	orders := productorder.NewService(
		productorder.NewRepository(a.db, storeOpts...), catalogRepo, gateway, a.zapLogger.Named(productorder.DomainName), opts...)

	a.registry.Register(registrations.Payments())
	a.registry.Register(memberships.Payments())
	a.registry.Register(bookings.Payments())
	a.registry.Register(packages.Payments())
	a.registry.Register(solutions.Payments())
	a.registry.Register(orders.Payments())

	a.handlers = []routeRegistrar{
		registration.NewHandler(registrations),
		membership.NewHandler(memberships),
		coursebooking.NewHandler(bookings),
		trainingpackage.NewHandler(packages),
		injurysolution.NewHandler(solutions),
		productorder.NewHandler(orders),
	}
	a.callback = paynow.NewCallbackHandler(gateway, a.registry, a.zapLogger.Named("paynow"))

	a.zapLogger.Info("payment domains registered", zap.Strings("domains", a.registry.List()))
	return nil
}

// engineOptions returns the payment engine options shared by every domain.
func (a *App) engineOptions() []payment.Option {
	var locker payment.Locker = payment.NewLocalLocker()
	if a.redis != nil {
		locker = sharedcache.NewRedisLocker(a.redis, a.config.Locks.TTL, a.config.Locks.Wait)
	}
	return []payment.Option{
		payment.WithLocker(locker),
		payment.WithNotifier(a.notifier),
		payment.WithEventPublisher(a.eventBus),
		payment.WithMetrics(a.metrics),
		payment.WithMethod(payment.MobileMethod(a.config.Paynow.Method)),
		payment.WithGatewayTimeout(a.config.Paynow.Timeout),
	}
}

// initNotifications builds the notification dispatcher from the email and
// messaging settings.
func (a *App) initNotifications() error {
	var senders []notification.Sender
	switch a.config.Email.Provider {
	case "smtp":
		senders = append(senders, notification.NewSMTPSender(&notification.SMTPConfig{
			Host:        a.config.Email.SMTP.Host,
			Port:        a.config.Email.SMTP.Port,
			User:        a.config.Email.SMTP.User,
			Password:    a.config.Email.SMTP.Password,
			FromAddress: a.config.Email.FromAddress,
			FromName:    a.config.Email.FromName,
		}, a.zapLogger.Named("smtp")))
	default:
		senders = append(senders, notification.NewNoOpSender(a.zapLogger.Named("email")))
	}

	if a.config.Messaging.AMQPURL != "" {
		sender, err := notification.NewAMQPSender(a.config.Messaging.AMQPURL, a.config.Messaging.Exchange, a.zapLogger.Named("amqp"))
		if err != nil {
			return fmt.Errorf("create amqp sender: %w", err)
		}
		a.amqp = sender
		senders = append(senders, sender)
	}

	a.notifier = notification.NewDispatcher(senders,
		notification.WithTimeout(a.config.Email.Timeout),
		notification.WithMetrics(a.metrics),
		notification.WithLogger(a.zapLogger.Named("notification")),
	)
	return nil
}

// registerEventHandlers registers in-process domain event handlers.
// Durable delivery goes through the outbox relay.
func (a *App) registerEventHandlers() {
	a.eventBus.Subscribe(sharedevents.PaymentSucceededType, func(e events.Event) error {
		a.zapLogger.Info("payment succeeded",
			zap.String("domain", e.AggregateType()),
			zap.String("id", e.AggregateID().String()),
		)
		return nil
	})
}

// registerRoutes registers routes for all modules.
func (a *App) registerRoutes() {
	// API v1 group
	v1 := a.router.Group("/api/v1")

	var limiter *sharedcache.RateLimiter
	if a.redis != nil {
		limiter = sharedcache.NewRateLimiter(a.redis)
	}

	// Gateway callbacks (no auth, verified by hash)
	callbacks := v1.Group("/payments")
	if limiter != nil {
		callbacks.Use(middleware.RateLimitByIP(limiter, 300, time.Minute))
	}
	a.callback.RegisterRoutes(callbacks)

	// Protected routes (requires auth)
	protected := v1.Group("")
	protected.Use(middleware.RequireAuth(a.jwt))
	if limiter != nil {
		protected.Use(middleware.RateLimitByUser(limiter, 120, time.Minute))
		protected.Use(middleware.Idempotency(a.redis, middleware.DefaultIdempotencyConfig()))
	}

	requireAdmin := middleware.RequireRole(middleware.RoleAdmin)
	for _, h := range a.handlers {
		h.RegisterRoutes(protected, requireAdmin)
	}
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop stops the application and releases resources.
func (a *App) Stop() {
	if a.amqp != nil {
		_ = a.amqp.Close()
	}

	// Sync zap logger
	if a.zapLogger != nil {
		_ = a.zapLogger.Sync()
	}

	// Close Redis connection
	if a.redis != nil {
		_ = sharedcache.Close(a.redis)
	}

	// Close database connection
	if a.db != nil {
		_ = database.Close(a.db)
	}
}
