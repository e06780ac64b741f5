package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/config"
	"storefront/internal/api"
	"storefront/internal/broker"
	"storefront/internal/identity"
	"storefront/internal/mail"
	"storefront/internal/payment"
	"storefront/internal/redisclient"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/util"
	"storefront/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront service")

	tp, err := util.InitTracer("storefront", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	paymentClient := payment.NewClient(
		cfg.Payment.APIURL, cfg.Payment.SecretKey,
		cfg.Payment.SuccessURL, cfg.Payment.CancelURL)
	idpClient := identity.NewClient(cfg.Identity.ClientID, cfg.Identity.TokenInfoURL)
	mailer := mail.NewLogMailer(cfg.Mail.From)

	authService := service.NewAuthService(db, paymentClient, idpClient, mailer, cfg.Auth)
	catalogService := service.NewCatalogService(db, cfg.Business.MaxPageSize)
	cartService := service.NewCartService(db, redisClient)
	checkoutService := service.NewCheckoutService(db, redisClient, paymentClient, eventPublisher, cfg.Business.TaxRateBps)
	orderService := service.NewOrderService(db, redisClient, eventPublisher)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	invoiceConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
	invoiceWorker := worker.NewInvoiceWorker(invoiceConsumer, db, mailer)
	go func() {
		if err := invoiceWorker.Start(workerCtx); err != nil {
			log.Printf("Invoice worker error: %v", err)
		}
	}()

	summaryWorker := worker.NewSummaryWorker(db,
		time.Duration(cfg.Business.SummaryIntervalSeconds)*time.Second)
	go func() {
		if err := summaryWorker.Start(workerCtx); err != nil && err != context.Canceled {
			log.Printf("Summary worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(
		authService, catalogService, cartService,
		checkoutService, orderService,
		cfg.Payment.WebhookSecret)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	invoiceWorker.Stop()

	log.Println("Server exited")
}
