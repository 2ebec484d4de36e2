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

	"rideshare/internal/ride-service/consumer"
	"rideshare/internal/ride-service/domain"
	"rideshare/internal/ride-service/handler"
	"rideshare/internal/ride-service/infrastructure/notification"
	"rideshare/internal/ride-service/infrastructure/repository/memory"
	"rideshare/internal/ride-service/infrastructure/repository/postgres"
	"rideshare/internal/ride-service/matching"
	"rideshare/internal/ride-service/service"
	"rideshare/pkg/auth"
	"rideshare/pkg/config"
	"rideshare/pkg/db"
	"rideshare/pkg/kafka"
	"rideshare/pkg/lock"
	"rideshare/pkg/logger"
	"rideshare/pkg/rabbitmq"
	"rideshare/pkg/redis"
	"rideshare/pkg/websocket"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log := logger.NewLoggerWithWriter("ride-service", os.Stdout, logger.ParseLevel(cfg.LogLevel))
	log.WithFields(logger.LogFields{
		"storage": cfg.Engine.StorageBackend,
		"notify":  cfg.Engine.NotifyBackends,
	}).Info("service_starting", fmt.Sprintf("Ride Service starting on port %d", cfg.HTTP.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	var st domain.TxStore
	switch cfg.Engine.StorageBackend {
	case config.StoragePostgres:
		pool, err := db.NewConnection(ctx, cfg, log)
		if err != nil {
			log.Error("db_connect_failed", err)
			os.Exit(1)
		}
		defer pool.Close()
		st = postgres.NewStore(pool)
	default:
		st = memory.NewStore()
	}

	loc, err := time.LoadLocation(cfg.Engine.Timezone)
	if err != nil {
		log.Error("timezone_load_failed", err)
		os.Exit(1)
	}

	locks := lock.NewRegistry()
	guard := lock.NewAvailabilityGuard()
	strategy := matching.NewAvailabilityStrategy(st.Drivers(), st.Availability(), guard, loc)
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.TTL)

	// Notifications
	notifiers := notification.Multi{}
	var opts []service.Option
	var ws http.Handler
	var rabbit *rabbitmq.Connection

	if cfg.NotifyEnabled("log") {
		notifiers = append(notifiers, notification.NewLogNotifier(log))
	}
	if cfg.NotifyEnabled("rabbitmq") {
		rabbit, err = rabbitmq.NewConnection(ctx, cfg, log)
		if err != nil {
			log.Error("rabbitmq_connect_failed", err)
			os.Exit(1)
		}
		defer rabbit.Close()
		notifiers = append(notifiers, notification.NewRabbitMQNotifier(rabbit))
		opts = append(opts, service.WithEventPublisher(notification.NewRabbitMQEventPublisher(rabbit, log)))
	}
	if cfg.NotifyEnabled("kafka") {
		writer := kafka.NewWriter(cfg)
		defer writer.Close()
		notifiers = append(notifiers, notification.NewKafkaNotifier(writer))
	}
	if cfg.NotifyEnabled("redis") {
		client, err := redis.NewClient(ctx, cfg)
		if err != nil {
			log.Error("redis_connect_failed", err)
			os.Exit(1)
		}
		defer client.Close()
		notifiers = append(notifiers, notification.NewRedisNotifier(client))
	}
	if cfg.NotifyEnabled("websocket") {
		hub := websocket.NewHub(jwtManager, log)
		defer hub.Close()
		notifiers = append(notifiers, notification.NewWebSocketNotifier(hub))
		ws = hub
	}

	// Delivery runs on its own workers so a slow transport never holds up a
	// committed operation. Deferred last so it drains before transports close.
	dispatcher := notification.NewDispatcher(notifiers, cfg.Engine.NotifyWorkers, cfg.Engine.NotifyQueueSize, cfg.Engine.NotifyTimeout, log)
	defer dispatcher.Close()

	// Services
	opts = append(opts, service.WithLockTimeout(cfg.Engine.LockTimeout))
	rides := service.NewRideService(st, locks, strategy, domain.NewFareTable(), dispatcher, log, opts...)
	people := service.NewParticipantService(st, locks, guard, log, cfg.Engine.LockTimeout)

	// Drivers persisted by an earlier run get their availability locks up front.
	drivers, err := people.ListDrivers(ctx)
	if err != nil {
		log.Error("load_drivers_failed", err)
		os.Exit(1)
	}
	for _, d := range drivers {
		guard.RegisterDriver(d.ID())
	}

	if rabbit != nil {
		consumer.New(rabbit, rides, log).StartConsuming(ctx)
	}

	// Setup routes
	if logger.ParseLevel(cfg.LogLevel) != logger.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Auth.DevTokens {
		log.Warn("dev_tokens_enabled", "POST /auth/token issues rider and driver tokens without credentials")
	}
	handler.New(rides, people, jwtManager, ws, log, handler.WithDevTokens(cfg.Auth.DevTokens)).Register(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server_failed", err)
			stop()
		}
	}()

	log.Info("server_running", fmt.Sprintf("Ride Service running on %s", srv.Addr))

	<-ctx.Done()

	log.Info("server_shutdown", "Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server_shutdown_failed", err)
	}
	log.Info("server_stopped", "Server stopped gracefully")
}
