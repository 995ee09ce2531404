package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/janpow77/flowinvoice-sub001/config"
	"github.com/janpow77/flowinvoice-sub001/handler"
	"github.com/janpow77/flowinvoice-sub001/middleware"
	"github.com/janpow77/flowinvoice-sub001/review"
	"github.com/janpow77/flowinvoice-sub001/service"
)

// app holds the wired services of one server instance
type app struct {
	cfg       *config.Config
	registry  *prometheus.Registry
	storage   service.Storage
	documents *service.DocumentService
	sweeper   *service.SessionSweeper
	publisher *service.EventPublisher
	handlers  *handler.Handlers
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := service.NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	storage, err := service.NewStorage(&cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a := &app{cfg: cfg, registry: registry, storage: storage}

	tokens := service.NewTokenStore(storage)
	if cfg.FlowAudit.APIToken != "" {
		if err := tokens.SetToken(ctx, cfg.FlowAudit.APIToken); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to seed session token: %w", err)
		}
	}

	client, err := service.NewFlowAuditClient(&cfg.FlowAudit, tokens, metrics)
	if err != nil {
		a.Close()
		return nil, err
	}

	cache := service.NewDocumentCache(storage, time.Duration(cfg.Storage.DocumentTTLSeconds)*time.Second)
	a.documents = service.NewDocumentService(client, cache, &cfg.FlowAudit, metrics)

	observers := []review.Observer{metrics}
	if cfg.Minio.Endpoint != "" {
		minioSvc, err := service.NewMinioService(&cfg.Minio)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize MINIO service: %w", err)
		}
		if err := minioSvc.EnsureBucket(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to ensure MINIO bucket: %w", err)
		}
		archive := service.NewArchive(minioSvc)
		a.documents.SetArchiver(archive)
		observers = append(observers, archive)
		slog.Info("feedback archive enabled", "bucket", cfg.Minio.Bucket)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		a.publisher = service.NewEventPublisher(&cfg.Kafka)
		observers = append(observers, a.publisher)
		slog.Info("feedback events enabled", "topic", cfg.Kafka.Topic)
	}

	store := service.NewReviewStore(&cfg.Store, metrics)
	reviews := service.NewReviewService(store, a.documents, client,
		review.NewRatingMap(cfg.FlowAudit.RatingMap), metrics, observers...)

	a.sweeper, err = service.NewSessionSweeper(store, cfg.Store.SweepCron,
		time.Duration(cfg.Store.SessionIdleMinutes)*time.Minute)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.handlers = &handler.Handlers{
		Auth:        handler.NewAuthHandler(cfg),
		Session:     handler.NewSessionHandler(tokens),
		Documents:   handler.NewDocumentHandler(a.documents),
		Reviews:     handler.NewReviewHandler(reviews),
		Preferences: handler.NewPreferenceHandler(service.NewPreferenceStore(storage, cfg.Layout)),
		Callbacks:   handler.NewCallbackHandler(client, a.documents),
	}
	return a, nil
}

// Router builds the gin engine with the middleware chain and all routes
func (a *app) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(corsMiddleware())
	router.Use(cacheMiddleware())
	router.Use(middleware.RateLimit(a.cfg.Server.RateLimit, time.Minute, middleware.ClientIPKey))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	a.handlers.Register(router.Group("/api"), &a.cfg.Auth)
	return router
}

// Start begins background work
func (a *app) Start() {
	if a.sweeper != nil {
		a.sweeper.Start()
	}
}

// Close stops background work and releases connections
func (a *app) Close() {
	if a.sweeper != nil {
		a.sweeper.Stop()
	}
	if a.documents != nil {
		a.documents.Wait()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			slog.Warn("failed to close event publisher", "error", err)
		}
	}
	if closer, ok := a.storage.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			slog.Warn("failed to close storage", "error", err)
		}
	}
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// cacheMiddleware keeps API responses out of browser and proxy caches
func cacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
		}
		c.Next()
	}
}
