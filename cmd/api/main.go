package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetcare/config"
	v1 "github.com/dmehra2102/prod-golang-projects/vetcare/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/notification"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/service"
	"github.com/dmehra2102/prod-golang-projects/vetcare/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/vetcare/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/vetcare/pkg/daylock"
	"github.com/dmehra2102/prod-golang-projects/vetcare/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/vetcare/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/vetcare/pkg/tracer"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	// A missing .env is fine; the real environment wins.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	zl = logger.WithService(zl, cfg.App)

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App.Version)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			zl.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, zl); err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	collector := metrics.NewCollector(cfg.App.Name, prometheus.DefaultRegisterer)

	auditSvc := service.NewAuditService(repository.NewAuditRepository(db), zl)
	auditSvc.OnDrop(collector.AuditBufferDropped.Inc)
	defer auditSvc.Shutdown()

	locker, closeLocker, err := newLocker(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer closeLocker()

	publisher := newPublisher(cfg.Kafka, zl)
	defer func() {
		if err := publisher.Close(); err != nil {
			zl.Warn("closing notification publisher", zap.Error(err))
		}
	}()

	jwtManager := auth.NewJWTManager(cfg.JWT)
	authSvc := service.NewAuthService(repository.NewUserRepository(db), jwtManager, auditSvc, zl)
	apptSvc := service.NewAppointmentService(
		repository.NewAppointmentRepository(db),
		repository.NewPetRepository(db),
		repository.NewCatalogRepository(db),
		locker,
		publisher,
		auditSvc,
		collector,
		zl,
	)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := v1.NewRouter(v1.RouterDeps{
		Appointments: apptSvc,
		Auth:         authSvc,
		Tokens:       jwtManager,
		Metrics:      collector,
		MetricsPage:  metrics.MetricsHandler(prometheus.DefaultGatherer),
		CORS:         cfg.CORS,
		Log:          zl,
		Ready:        sqlDB.PingContext,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      otelhttp.NewHandler(router, "vetcare-api"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLocker(ctx context.Context, cfg *config.Config, zl *zap.Logger) (daylock.Locker, func(), error) {
	if cfg.Scheduling.LockBackend != config.LockBackendRedis {
		return daylock.NewLocal(cfg.Scheduling.LockWait), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	zl.Info("using redis booking lock", zap.String("addr", cfg.Redis.Addr))

	l := daylock.NewRedis(rdb, "vetcare:lock", cfg.Scheduling.LockTTL, cfg.Scheduling.LockWait, zl)
	return l, func() { _ = rdb.Close() }, nil
}

func newPublisher(cfg config.KafkaConfig, zl *zap.Logger) notification.Publisher {
	if len(cfg.Brokers) == 0 {
		zl.Info("no kafka brokers configured, notifications will be logged")
		return notification.NewLogPublisher(zl)
	}
	return notification.NewKafkaPublisher(cfg.Brokers, cfg.NotificationTopic, cfg.WriteTimeout)
}
