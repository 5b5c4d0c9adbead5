// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"log"

	"checkout-service/internal/config"
	"checkout-service/internal/db"
	basketHandler "checkout-service/internal/handlers/basket"
	checkoutHandler "checkout-service/internal/handlers/checkoutapi"
	plansHandler "checkout-service/internal/handlers/plans"
	"checkout-service/internal/middleware"
	"checkout-service/internal/processor"
	"checkout-service/internal/repository/kv"
	"checkout-service/internal/repository/postgres"
	catalogUsecase "checkout-service/internal/service/catalog"
	checkoutUsecase "checkout-service/internal/service/checkout"
	"checkout-service/internal/service/identity"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.Default()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- PostgreSQL -----
	pool, err := postgres.ConnectDB()
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	// ----- Redis -----
	redisCfg := db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       0,
		PoolSize: 10,
	}

	redisClient, err := db.NewRedisClient(redisCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Println("[REDIS] ✅ Connected successfully")

	// ----- Logger -----
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	s.logger = logger

	// ----- Identity resolver -----
	pubKey, err := identity.LoadRSAPublicKeyFromPEM(s.cfg.SessionPubKeyPath)
	if err != nil {
		return fmt.Errorf("failed to load session public key: %w", err)
	}
	resolver := identity.NewResolver(pubKey, s.cfg.SessionIssuer, s.cfg.SessionAudience)

	// ----- Payment processor -----
	processorClient := processor.NewClient(s.cfg.ProcessorBaseURL, s.cfg.ProcessorAPIKey, logger)

	// ----- Repositories -----
	planRepo := postgres.NewPricingPlanRepository(pool)
	stateRepo := kv.NewRedisRepository(redisClient, logger)

	// ----- Services -----
	planService := catalogUsecase.NewPlanService(planRepo, logger)
	manager := checkoutUsecase.NewManager(processorClient, processorClient, stateRepo, logger)

	// ----- Handlers -----
	plansHandlerInst := plansHandler.NewPlansHandler(planService, logger)
	basketHandlerInst := basketHandler.NewBasketHandler(manager, planService, logger)
	checkoutHandlerInst := checkoutHandler.NewCheckoutHandler(manager, resolver, logger)

	// ----- Middlewares -----
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
		middleware.SessionMiddleware(),
	)

	// ----- Router -----
	handlers := &Handlers{
		PlansHandler:    plansHandlerInst,
		BasketHandler:   basketHandlerInst,
		CheckoutHandler: checkoutHandlerInst,
	}
	SetupRouter(s.engine, logger, handlers)

	// ----- Start HTTP -----
	log.Printf("🚀 Server running on %s", s.cfg.HTTPAddr)
	return s.engine.Run(s.cfg.HTTPAddr)
}
