// cmd/api/main.go
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

	"part-request-portal-api-server/config"
	"part-request-portal-api-server/internal/api/routes"
	"part-request-portal-api-server/internal/auth"
	"part-request-portal-api-server/internal/database"
	"part-request-portal-api-server/internal/export"
	"part-request-portal-api-server/internal/logger"
	"part-request-portal-api-server/internal/metrics"
	"part-request-portal-api-server/internal/notify"
	"part-request-portal-api-server/internal/requests"
	"part-request-portal-api-server/internal/s3"
	"part-request-portal-api-server/internal/session"
	"part-request-portal-api-server/internal/socket"
	"part-request-portal-api-server/internal/store"
	"part-request-portal-api-server/internal/store/memory"
	"part-request-portal-api-server/internal/store/mongostore"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}

	zlog := logger.New(cfg.Server.Environment, cfg.Log.Level)
	defer zlog.Sync()
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Request store
	var requestStore store.RequestStore
	switch cfg.Store.Driver {
	case "mongo":
		client, db, err := database.Connect(ctx, cfg.Mongo, zlog)
		if err != nil {
			zlog.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer client.Disconnect(context.Background())
		if err := database.EnsureIndexes(ctx, db, zlog); err != nil {
			zlog.Fatal("Failed to ensure indexes", zap.Error(err))
		}
		requestStore = mongostore.NewStore(db, zlog)
	default:
		zlog.Warn("Using in-memory request store; data is lost on restart")
		requestStore = memory.NewStore()
	}

	// 3. Sessions and tokens
	var sessions session.Store
	switch cfg.Session.Driver {
	case "redis":
		rs, err := session.NewRedisStore(ctx, session.RedisConfig{
			Addr:     cfg.Session.Redis.Addr,
			Password: cfg.Session.Redis.Password,
			DB:       cfg.Session.Redis.DB,
		}, cfg.JWT.TTL(), zlog)
		if err != nil {
			zlog.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer rs.Close()
		sessions = rs
	default:
		sessions = session.NewMemoryStore(cfg.JWT.TTL())
	}
	tokens, err := auth.NewTokens(cfg.JWT.Secret, cfg.JWT.TTL())
	if err != nil {
		zlog.Fatal("Invalid JWT configuration", zap.Error(err))
	}
	if cfg.Admin.PasswordHash == "" {
		zlog.Warn("No admin password hash configured; admin login is disabled")
	}

	// 4. Notifications
	var publisher notify.Publisher = notify.NewLogPublisher(zlog)
	if cfg.Kafka.Enabled {
		kp, err := notify.NewKafkaPublisher(notify.KafkaConfig{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.Topic,
			ClientID: cfg.Kafka.ClientID,
			Retries:  cfg.Kafka.Retries,
		}, zlog)
		if err != nil {
			zlog.Fatal("Failed to create Kafka publisher", zap.Error(err))
		}
		publisher = kp
	}
	defer publisher.Close()

	// 5. Metrics, controller and push hub
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	controller := requests.NewController(requestStore, publisher, metrics.New(registry), zlog)
	wsHub := socket.NewHub(controller, zlog)

	// 6. Optional CSV export to S3
	var exporter *export.Exporter
	if cfg.S3.Bucket != "" {
		uploader, err := s3.NewUploader(ctx, cfg.S3)
		if err != nil {
			zlog.Fatal("Failed to create S3 uploader", zap.Error(err))
		}
		exporter = export.NewExporter(uploader, cfg.S3.Prefix, zlog)
	}

	router := routes.SetupRouter(routes.Dependencies{
		Config:     cfg,
		Controller: controller,
		Sessions:   sessions,
		Tokens:     tokens,
		Hub:        wsHub,
		Exporter:   exporter,
		Gatherer:   registry,
		Logger:     zlog,
	})

	// 7. Start server
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zlog.Info("Starting API server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Server shutdown failed", zap.Error(err))
	}
}
