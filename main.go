package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/arkstudy/ms3-contenido/config"
	"github.com/arkstudy/ms3-contenido/database"
	"github.com/arkstudy/ms3-contenido/events"
	"github.com/arkstudy/ms3-contenido/handler"
	"github.com/arkstudy/ms3-contenido/health"
	"github.com/arkstudy/ms3-contenido/pkg/metrics"
	"github.com/arkstudy/ms3-contenido/registry"
	"github.com/arkstudy/ms3-contenido/repository"
	"github.com/arkstudy/ms3-contenido/router"
	"github.com/arkstudy/ms3-contenido/service"
	"github.com/arkstudy/ms3-contenido/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.App.Debug {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbManager := database.NewManager(cfg.MongoDB, logger)
	if err := dbManager.Connect(ctx); err != nil {
		logger.Fatalf("failed to connect to mongodb: %v", err)
	}
	db, err := dbManager.Database(ctx)
	if err != nil {
		logger.Fatalf("failed to open database: %v", err)
	}

	materialRepo := repository.NewMaterialRepository(db)
	if err := materialRepo.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Warn("failed to create indexes")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if brokers := cfg.Kafka.BrokerList(); len(brokers) > 0 {
		publisher = events.NewKafkaPublisher(brokers, cfg.Kafka.Topic)
		logger.WithField("topic", cfg.Kafka.Topic).Info("publishing material events to kafka")
	}

	var resolver storage.Resolver = storage.PassthroughResolver{}
	if cfg.MinIO.Endpoint != "" {
		minioResolver, err := storage.NewMinioResolver(cfg.MinIO)
		if err != nil {
			logger.Fatalf("failed to create minio client: %v", err)
		}
		resolver = minioResolver
	}

	materialService := service.NewMaterialService(
		materialRepo,
		registry.NewCourseClient(cfg.Upstream.CoursesURL, cfg.Upstream.Timeout),
		registry.NewEnrollmentClient(cfg.Upstream.EnrollmentsURL, cfg.Upstream.Timeout),
		publisher,
		resolver,
		logger,
	)
	materialHandler := handler.NewMaterialHandler(materialService, logger)

	srv := &http.Server{
		Addr:              cfg.Service.Addr(),
		Handler:           router.Setup(cfg.App, materialHandler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("%s listening on %s", cfg.App.Name, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server failed: %v", err)
		}
	}()

	var metricsSrv *http.Server
	if cfg.Service.MetricsPort != "" {
		metricsSrv = metrics.NewMetricsServer(cfg.Service.MetricsPort)
		go func() {
			logger.Infof("prometheus metrics server started on %s", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Error("metrics server failed")
			}
		}()
	}

	var healthSrv *health.Server
	if cfg.Service.GRPCHealthPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCHealthPort)
		if err != nil {
			logger.Fatalf("grpc health listen failed: %v", err)
		}
		healthSrv = health.NewServer(cfg.App.Name, dbManager, health.DefaultInterval, logger)
		go healthSrv.Run(ctx)
		go func() {
			logger.Infof("grpc health server listening on %s", lis.Addr())
			if err := healthSrv.Serve(lis); err != nil {
				logger.WithError(err).Error("grpc health server failed")
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if healthSrv != nil {
		healthSrv.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("http server shutdown failed")
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	if err := publisher.Close(); err != nil {
		logger.WithError(err).Warn("failed to close event publisher")
	}
	if err := dbManager.Close(shutdownCtx); err != nil {
		logger.WithError(err).Warn("failed to close mongodb connection")
	}
}
