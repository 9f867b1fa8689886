package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coinhatch/coinhatch/internal/cache"
	"github.com/coinhatch/coinhatch/internal/chat"
	"github.com/coinhatch/coinhatch/internal/config"
	"github.com/coinhatch/coinhatch/internal/domain"
	"github.com/coinhatch/coinhatch/internal/handler"
	"github.com/coinhatch/coinhatch/internal/hub"
	"github.com/coinhatch/coinhatch/internal/identity"
	"github.com/coinhatch/coinhatch/internal/market"
	"github.com/coinhatch/coinhatch/internal/repository"
	"github.com/coinhatch/coinhatch/pkg/database"
	"github.com/coinhatch/coinhatch/pkg/jwt"
	"github.com/coinhatch/coinhatch/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log)
	logger := log.L()

	// Database
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db,
		&domain.UserModel{},
		&domain.ChatMessageModel{},
		&domain.PriceSnapshotModel{},
	); err != nil {
		logger.Fatal().Err(err).Msg("database migration failed")
	}

	// Repositories
	userRepo := repository.NewGormUserRepository(db)
	messageRepo := repository.NewGormMessageRepository(db)
	priceRepo := repository.NewGormPriceRepository(db)

	// Response cache
	var responseCache cache.Cache
	switch cfg.Cache.Backend {
	case "redis":
		redisCache, err := cache.NewRedisCache(cfg.Redis, cfg.Cache.Prefix)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisCache.Close()
		responseCache = redisCache
	default:
		responseCache = cache.NewMemoryCache(cfg.Cache.MaxEntries)
	}

	// Market data gateway
	marketClient := market.NewClient(cfg.Market)
	marketService := market.NewMarketService(marketClient, responseCache, priceRepo, cfg.Market)

	// Identity
	verifier := jwt.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	resolver := identity.NewResolver(userRepo, cfg.Auth.ResolveTimeout)

	// Realtime hub and chat service
	roomHub := hub.NewHub()
	go roomHub.Run()

	chatService := chat.NewChatService(roomHub, messageRepo, marketService, cfg.Chat)

	// Retention sweeper
	sweeper := chat.NewSweeper(messageRepo, cfg.Chat)
	sweeperCtx, cancelSweeper := context.WithCancel(context.Background())
	sweeper.Start(sweeperCtx)

	// HTTP surface
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(log.GinMiddleware(logger))

	authMiddleware := handler.NewAuthMiddleware(verifier)
	httpHandler := handler.NewHTTPHandler(chatService, marketService, resolver, authMiddleware)
	httpHandler.RegisterRoutes(router)

	wsHandler := handler.NewWSHandler(roomHub, chatService, verifier, resolver, cfg.WebSocket)
	router.GET("/ws", wsHandler.HandleWebSocket)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	cancelSweeper()
	sweeper.Stop()
	<-sweeper.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("forced shutdown")
	}

	logger.Info().Msg("server exited")
}
