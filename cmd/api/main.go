package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/ai"
	"storefront/internal/config"
	"storefront/internal/consumer"
	"storefront/internal/database"
	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/monitor"
	"storefront/internal/payment"
	"storefront/internal/realtime"
	"storefront/internal/redis"
	"storefront/internal/repository"
	"storefront/internal/service/auth"
	"storefront/internal/service/catalog"
	"storefront/internal/service/chat"
	"storefront/internal/service/checkout"
	"storefront/internal/service/newsletter"
	"storefront/internal/shipping"
	"storefront/internal/utils"
	"storefront/pkg/log"
	"storefront/pkg/queue"
	"storefront/pkg/snowflake"

	"github.com/gin-gonic/gin"
	redisv9 "github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to load config")
	}
	config.GlobalConfig = cfg

	logConfig := log.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxAge:     cfg.Log.MaxAge,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	}
	log.Init(logConfig)

	// database
	if err := database.Init(cfg); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to initialize database")
	}
	defer database.Close()

	if err := database.AutoMigrate(); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to migrate database")
	}

	// redis
	if err := redis.Init(cfg); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to initialize redis")
	}
	defer redis.Close()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	db := database.GetDB()

	// Redis v9 client for service-level locks and counters
	redisV9Client := redisv9.NewClient(&redisv9.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Repositories
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	chatRepo := repository.NewChatRepository(db)
	subscriberRepo := repository.NewSubscriberRepository(db)

	// Order number generator
	idGenerator, err := snowflake.NewIDGenerator(1)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to create ID generator")
	}

	messageQueue, err := newQueue(cfg)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error":  err.Error(),
			"driver": cfg.Queue.Driver,
		}).Fatal("Failed to create message queue")
	}
	defer messageQueue.Close()

	var metrics *monitor.MetricsCollector
	if cfg.Metrics.Enabled {
		metrics = monitor.NewMetricsCollector(cfg.Metrics.Namespace)
	}

	var tracer *monitor.Tracer
	if cfg.Tracing.Enabled {
		tracer, err = monitor.NewTracer(&monitor.TracerConfig{
			ServiceName:    cfg.Tracing.ServiceName,
			JaegerEndpoint: cfg.Tracing.Endpoint,
			SamplingRate:   cfg.Tracing.SampleRate,
			Enabled:        true,
		})
		if err != nil {
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Fatal("Failed to initialize tracer")
		}
		defer tracer.Shutdown(context.Background())
	}

	// AI reply generation for the support chat
	generator, err := ai.NewGeminiGenerator(context.Background(), &cfg.AI)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to create AI generator")
	}
	defer generator.Close()

	// External providers
	paymentClient := payment.NewClient(&cfg.Payment)
	shippingClient := shipping.NewDHLClient(&cfg.Shipping)

	// Realtime presence hub for chat rooms
	hub := realtime.NewHub()
	defer hub.Close()

	router := setupRouter(
		cfg,
		redisV9Client,
		productRepo,
		categoryRepo,
		orderRepo,
		chatRepo,
		subscriberRepo,
		idGenerator,
		messageQueue,
		hub,
		generator,
		paymentClient,
		shippingClient,
		metrics,
	)

	// Start newsletter dispatch consumer
	newsletterConsumer := consumer.NewNewsletterConsumer(messageQueue, consumer.LogMailer{}, cfg.Queue.NewsletterTopic)
	if err := newsletterConsumer.Start(context.Background()); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to start newsletter consumer")
	}

	server := &http.Server{
		Addr:           cfg.Server.GetAddr(),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderMB << 20,
	}

	go func() {
		log.WithFields(map[string]interface{}{
			"addr": server.Addr,
			"mode": cfg.Server.Mode,
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Server forced to shutdown")
	}

	log.Info("Server exited")
}

// newQueue selects the message queue driver from configuration.
func newQueue(cfg *config.Config) (queue.Queue, error) {
	switch cfg.Queue.Driver {
	case "kafka":
		return queue.NewKafkaQueue(&queue.KafkaQueueConfig{
			Brokers: cfg.Queue.Brokers,
			GroupID: cfg.Queue.GroupID,
		})
	default:
		return queue.NewMemoryQueue(nil)
	}
}

func setupRouter(
	cfg *config.Config,
	redisV9Client *redisv9.Client,
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	orderRepo repository.OrderRepository,
	chatRepo repository.ChatRepository,
	subscriberRepo repository.SubscriberRepository,
	idGenerator *snowflake.IDGenerator,
	messageQueue queue.Queue,
	hub *realtime.Hub,
	generator chat.Generator,
	paymentClient payment.Client,
	shippingClient shipping.Client,
	metrics *monitor.MetricsCollector,
) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	if metrics != nil {
		router.Use(metrics.GinMiddleware())
		router.GET(cfg.Metrics.Path, metrics.Handler())
	}

	router.GET("/health", healthCheck)
	router.GET("/ping", ping)

	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)

	jwtManager := utils.NewJWTManager(
		cfg.Security.JWT.Secret,
		cfg.Security.JWT.Issuer,
		cfg.Security.JWT.Expire,
		cfg.Security.JWT.RefreshTTL,
	)

	warehouse := shipping.Address{
		Name:        cfg.Shipping.Warehouse.Name,
		Street:      cfg.Shipping.Warehouse.Street,
		City:        cfg.Shipping.Warehouse.City,
		PostalCode:  cfg.Shipping.Warehouse.PostalCode,
		CountryCode: cfg.Shipping.Warehouse.CountryCode,
		Phone:       cfg.Shipping.Warehouse.Phone,
	}

	// Services
	authService := auth.NewAuthService(userRepo, jwtManager, redisV9Client)
	catalogService := catalog.NewCatalogService(productRepo, categoryRepo, cfg.Cache.Redis.DefaultTTL, metrics)
	checkoutService := checkout.NewCheckoutService(orderRepo, productRepo, paymentClient, shippingClient, idGenerator, warehouse, metrics)
	chatService := chat.NewChatService(chatRepo, hub, generator, redisV9Client, cfg.Chat, metrics)
	newsletterService := newsletter.NewNewsletterService(subscriberRepo, messageQueue, cfg.Queue.NewsletterTopic)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	discountHandler := handler.NewDiscountHandler(catalogService)
	checkoutHandler := handler.NewCheckoutHandler(checkoutService, shippingClient)
	chatHandler := handler.NewChatHandler(chatService)
	newsletterHandler := handler.NewNewsletterHandler(newsletterService)

	api := router.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/health", healthCheck)
			v1.GET("/ping", ping)

			// Public auth routes
			authGroup := v1.Group("/auth")
			{
				authGroup.POST("/register", authHandler.Register)
				authGroup.POST("/login", authHandler.Login)
				authGroup.POST("/refresh", authHandler.RefreshToken)
			}

			// Public storefront routes
			v1.GET("/products", catalogHandler.ListProducts)
			v1.GET("/products/:id", catalogHandler.GetProduct)
			v1.GET("/categories", catalogHandler.ListCategories)
			v1.POST("/newsletter/subscribe", newsletterHandler.Subscribe)
			v1.POST("/newsletter/unsubscribe", newsletterHandler.Unsubscribe)

			tokenValidator := func(token string) (*middleware.UserInfo, error) {
				claims, err := authService.ValidateToken(context.Background(), token)
				if err != nil {
					return nil, err
				}
				return &middleware.UserInfo{
					ID:   claims.UserID,
					Name: claims.Username,
					Role: claims.Role,
				}, nil
			}

			protected := v1.Group("")
			protected.Use(middleware.Auth(tokenValidator))
			{
				protected.POST("/auth/logout", authHandler.Logout)

				// Order routes
				protected.GET("/orders", checkoutHandler.ListOrders)
				protected.GET("/orders/:order_no", checkoutHandler.GetOrder)
				protected.POST("/orders/:order_no/refund", checkoutHandler.Refund)

				// Checkout routes
				checkoutGroup := protected.Group("/checkout")
				checkoutGroup.Use(middleware.CheckoutRateLimit())
				checkoutGroup.Use(middleware.CheckoutTimeout(10 * time.Second))
				{
					checkoutGroup.POST("/quote", checkoutHandler.Quote)
					checkoutGroup.POST("/orders", checkoutHandler.CreateOrder)
					checkoutGroup.POST("/orders/:order_no/confirm", checkoutHandler.ConfirmPayment)
				}

				// Support chat routes
				chatGroup := protected.Group("/chat")
				chatGroup.Use(middleware.ChatRateLimit())
				{
					chatGroup.GET("/rooms/:room_id/messages", chatHandler.History)
					chatGroup.POST("/rooms/:room_id/messages", chatHandler.Send)
					chatGroup.POST("/rooms/:room_id/read", chatHandler.MarkRead)
					chatGroup.GET("/rooms/:room_id/ws", chatHandler.Connect)
				}

				// Admin routes
				admin := protected.Group("/admin")
				admin.Use(middleware.RequireRole(tokenValidator, "admin"))
				{
					admin.POST("/discounts/bulk", discountHandler.BulkApply)
					admin.DELETE("/discounts/bulk", discountHandler.BulkRemove)
					admin.POST("/orders/:order_no/shipment", checkoutHandler.BookShipment)
					admin.GET("/shipments/:tracking_number", checkoutHandler.Track)
					admin.POST("/newsletter/campaigns", newsletterHandler.SendCampaign)
				}
			}
		}
	}

	return router
}

func healthCheck(c *gin.Context) {
	dbHealth := checkDatabase()

	redisHealth := checkRedis()

	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"version":   "1.0.0",
		"services": map[string]interface{}{
			"database": dbHealth,
			"redis":    redisHealth,
		},
	}

	if !dbHealth["healthy"].(bool) || !redisHealth["healthy"].(bool) {
		health["status"] = "error"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	c.JSON(http.StatusOK, health)
}

func ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "pong",
		"timestamp": time.Now().Unix(),
	})
}

func checkDatabase() map[string]interface{} {
	db := database.GetDB()
	if db == nil {
		return map[string]interface{}{
			"healthy": false,
			"error":   "database connection is nil",
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return map[string]interface{}{
			"healthy": false,
			"error":   err.Error(),
		}
	}

	if err := sqlDB.Ping(); err != nil {
		return map[string]interface{}{
			"healthy": false,
			"error":   err.Error(),
		}
	}

	return map[string]interface{}{
		"healthy": true,
	}
}

func checkRedis() map[string]interface{} {
	client := redis.GetClient()
	if client == nil {
		return map[string]interface{}{
			"healthy": false,
			"error":   "redis client is nil",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return map[string]interface{}{
			"healthy": false,
			"error":   err.Error(),
		}
	}

	return map[string]interface{}{
		"healthy": true,
	}
}
