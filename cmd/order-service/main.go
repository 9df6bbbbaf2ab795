package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/agamenonmacondo/avashop-sub000/internal/cache"
	"github.com/agamenonmacondo/avashop-sub000/internal/cart"
	"github.com/agamenonmacondo/avashop-sub000/internal/catalog"
	"github.com/agamenonmacondo/avashop-sub000/internal/checkout"
	"github.com/agamenonmacondo/avashop-sub000/internal/domain"
	"github.com/agamenonmacondo/avashop-sub000/internal/gateway"
	"github.com/agamenonmacondo/avashop-sub000/internal/httpapi"
	"github.com/agamenonmacondo/avashop-sub000/internal/identity"
	"github.com/agamenonmacondo/avashop-sub000/internal/notify"
	"github.com/agamenonmacondo/avashop-sub000/internal/orders"
	"github.com/agamenonmacondo/avashop-sub000/internal/query"
	"github.com/agamenonmacondo/avashop-sub000/internal/reconcile"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	PostgresHost      string
	PostgresPort      int
	PostgresUser      string
	PostgresPassword  string
	PostgresDB        string
	MigrationsDirPath string

	MongoURI  string
	MongoDB   string
	RedisAddr string

	KafkaBrokers []string

	CatalogBaseURL string

	GatewayBaseURL      string
	GatewaySecret       string
	GatewayEventsSecret string
	PaymentReturnURL    string

	MailEndpoint  string
	MailAPIKey    string
	MailFrom      string
	InternalCopy  string
	WhatsAppURL   string
	WhatsAppKey   string
	MerchantPhone string

	FreeShippingThreshold int64
	FlatShippingFee       int64
}

func loadConfig() *Config {
	pricing := domain.DefaultPricing()
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,

		PostgresHost:      getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:      getEnvInt("POSTGRES_PORT", 5432),
		PostgresUser:      getEnv("POSTGRES_USER", "orders"),
		PostgresPassword:  getEnv("POSTGRES_PASSWORD", "orders"),
		PostgresDB:        getEnv("POSTGRES_DB", "orders"),
		MigrationsDirPath: getEnv("MIGRATIONS_DIR", "migrations"),

		MongoURI:  getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:   getEnv("MONGO_DB", "storefront"),
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		KafkaBrokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),

		CatalogBaseURL: getEnv("CATALOG_BASE_URL", "http://localhost:8081"),

		GatewayBaseURL:      getEnv("GATEWAY_BASE_URL", "https://sandbox.payments.example.com"),
		GatewaySecret:       getEnv("GATEWAY_SECRET", ""),
		GatewayEventsSecret: getEnv("GATEWAY_EVENTS_SECRET", ""),
		PaymentReturnURL:    getEnv("PAYMENT_RETURN_URL", "http://localhost:8080/checkout/return"),

		MailEndpoint:  getEnv("MAIL_ENDPOINT", "https://api.mail.example.com/v1/send"),
		MailAPIKey:    getEnv("MAIL_API_KEY", ""),
		MailFrom:      getEnv("MAIL_FROM", "pedidos@avashop.co"),
		InternalCopy:  getEnv("MAIL_INTERNAL_COPY", "ventas@avashop.co"),
		WhatsAppURL:   getEnv("WHATSAPP_ENDPOINT", "https://api.messaging.example.com/v1/messages"),
		WhatsAppKey:   getEnv("WHATSAPP_API_KEY", ""),
		MerchantPhone: getEnv("MERCHANT_PHONE", ""),

		FreeShippingThreshold: getEnvInt64("FREE_SHIPPING_THRESHOLD", pricing.FreeShippingThreshold),
		FlatShippingFee:       getEnvInt64("FLAT_SHIPPING_FEE", pricing.FlatShippingFee),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	pricing := domain.DefaultPricing()
	pricing.FreeShippingThreshold = cfg.FreeShippingThreshold
	pricing.FlatShippingFee = cfg.FlatShippingFee

	// Orders store
	orderRepo, err := orders.NewRepository(&orders.Credentials{
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPassword,
		DBName:            cfg.PostgresDB,
		MigrationsDirPath: cfg.MigrationsDirPath,
	})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer orderRepo.Close()

	if err := orderRepo.RunMigrations(&orders.Credentials{MigrationsDirPath: cfg.MigrationsDirPath}); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Cart store
	mongoCtx, mongoCancel := context.WithTimeout(context.Background(), 10*time.Second)
	mongoClient, err := mongo.Connect(mongoCtx, options.Client().ApplyURI(cfg.MongoURI))
	mongoCancel()
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Printf("mongo disconnect error: %v", err)
		}
	}()

	indexCtx, indexCancel := context.WithTimeout(context.Background(), 10*time.Second)
	cartRepo, err := cart.NewMongoRepository(indexCtx, mongoClient.Database(cfg.MongoDB))
	indexCancel()
	if err != nil {
		log.Fatalf("failed to prepare cart collection: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	cartCache := cache.NewRedisCache(redisClient)

	catalogClient := catalog.NewHTTPClient(cfg.CatalogBaseURL, 5*time.Second)
	cartService := cart.NewService(cartRepo, cartCache, catalogClient)
	defer cartService.Close()

	// Payment flow
	signer := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewaySecret, 10*time.Second)
	intentService := checkout.NewIntentService(signer, orderRepo, cartService, catalogClient, pricing, cfg.PaymentReturnURL)

	mailer := notify.NewHTTPMailer(cfg.MailEndpoint, cfg.MailAPIKey, cfg.MailFrom, 10*time.Second)
	messenger := notify.NewWhatsAppMessenger(cfg.WhatsAppURL, cfg.WhatsAppKey, 10*time.Second)
	scheduler := notify.NewOutboxScheduler(orderRepo)
	notifier := notify.NewNotifier(mailer, messenger, scheduler, cfg.MerchantPhone, cfg.InternalCopy)

	reconciler := reconcile.NewReconciler(orderRepo, notifier, cartService)
	orderFacade := query.NewFacade(orderRepo)

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	reviewPoller := notify.NewReviewPoller(orderRepo, cfg.KafkaBrokers...)
	go reviewPoller.Run(workerCtx)

	// HTTP surface
	router := httpapi.NewRouter(
		identity.NewHeaderProvider(),
		httpapi.NewCartHandler(cartService, pricing),
		httpapi.NewCheckoutHandler(intentService, reconciler),
		httpapi.NewWebhookHandler(reconciler, cfg.GatewayEventsSecret),
		httpapi.NewOrdersHandler(orderFacade),
		cfg.RequestTimeout,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "order-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("order service starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
