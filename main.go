package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/yeremiapane/cafe-app/config"
	"github.com/yeremiapane/cafe-app/models"
	"github.com/yeremiapane/cafe-app/realtime"
	"github.com/yeremiapane/cafe-app/router"
	"github.com/yeremiapane/cafe-app/services"
	"github.com/yeremiapane/cafe-app/utils"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func main() {
	utils.InitLogger()

	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load config: %v", err)
	}
	utils.SetLogLevel(cfg.Server.LogLevel)
	utils.SetJWTSecret(cfg.Auth.JWTSecret)

	if cfg.Server.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg.Database)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	autoMigrate(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	hubMetrics := realtime.NewMetrics(registry)

	hub := realtime.NewHub(cfg.Realtime.QueueSize, hubMetrics)
	var broadcaster realtime.Broadcaster = hub

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	if relay := dialRelay(gctx, cfg.Realtime); relay != nil {
		defer relay.Close()
		rb := realtime.NewRelayBroadcaster(relay, hub, cfg.Realtime.QueueSize, hubMetrics)
		broadcaster = rb
		g.Go(func() error {
			return rb.Run(gctx)
		})
	}

	inventory := services.NewInventoryService(db)
	orders := services.NewOrderService(services.OrderServiceDeps{
		Repo:        services.NewOrderRepository(db),
		Ledger:      inventory,
		Broadcaster: broadcaster,
		Metrics:     services.NewOrderMetrics(registry),
		Notifier:    services.NewNotificationRecorder(db),
		QR:          services.TrackingLinker{BaseURL: cfg.Server.PublicBaseURL},
	}, orderOptions(cfg.Orders))

	r := router.SetupRouter(router.Deps{
		DB:        db,
		Config:    cfg,
		Orders:    orders,
		Inventory: inventory,
		Hub:       hub,
		Gatherer:  registry,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		utils.InfoLogger.Println("Shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		utils.ErrorLogger.Fatalf("Server stopped: %v", err)
	}
	utils.InfoLogger.Println("Server exited")
}

// dialRelay prefers Redis, then RabbitMQ. Without either the hub only serves
// clients connected to this instance.
func dialRelay(ctx context.Context, cfg config.RealtimeConfig) realtime.Relay {
	if cfg.RedisAddr != "" {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		relay, err := realtime.DialRedis(dialCtx, cfg.RedisAddr, cfg.RedisChannel)
		if err == nil {
			utils.InfoLogger.Printf("Relaying order events through Redis %s", cfg.RedisAddr)
			return relay
		}
		utils.ErrorLogger.Errorf("Redis relay unavailable: %v", err)
	}
	if cfg.AMQPURL != "" {
		relay, err := realtime.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err == nil {
			utils.InfoLogger.Printf("Relaying order events through exchange %s", cfg.AMQPExchange)
			return relay
		}
		utils.ErrorLogger.Errorf("AMQP relay unavailable: %v", err)
	}
	return nil
}

func orderOptions(cfg config.OrdersConfig) services.OrderOptions {
	opts := services.DefaultOrderOptions()
	opts.RequirePOSVerification = cfg.RequirePOSVerification
	if cfg.TakeoutPrepMinutes > 0 {
		opts.TakeoutPrep = time.Duration(cfg.TakeoutPrepMinutes) * time.Minute
	}
	if cfg.DineInPrepMinutes > 0 {
		opts.DineInPrep = time.Duration(cfg.DineInPrepMinutes) * time.Minute
	}
	if cfg.OrderNumberLength > 0 {
		opts.CodeLength = cfg.OrderNumberLength
	}
	if cfg.OrderNumberAttempts > 0 {
		opts.CodeAttempts = cfg.OrderNumberAttempts
	}
	return opts
}

func autoMigrate(db *gorm.DB) {
	if err := db.AutoMigrate(models.All()...); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
}
