package main

import (
	"context"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	httpapi "github.com/channelswap/channelswap/internal/api/http"
	"github.com/channelswap/channelswap/internal/application/audit"
	"github.com/channelswap/channelswap/internal/application/fanout"
	"github.com/channelswap/channelswap/internal/application/guard"
	appMatch "github.com/channelswap/channelswap/internal/application/match"
	appOffer "github.com/channelswap/channelswap/internal/application/offer"
	appReview "github.com/channelswap/channelswap/internal/application/review"
	"github.com/channelswap/channelswap/internal/config"
	"github.com/channelswap/channelswap/internal/infrastructure/postgres"
	"github.com/channelswap/channelswap/internal/infrastructure/sse"
)

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	// repositories
	channelRepo := postgres.NewChannelRepository(pool)
	offerRepo := postgres.NewOfferRepository(pool)
	matchRepo := postgres.NewMatchRepository(pool)
	actionLogRepo := postgres.NewActionLogRepository(pool)
	chatRepo := postgres.NewChatRepository(pool)
	reviewRepo := postgres.NewReviewRepository(pool)
	txm := postgres.NewTxManager(pool)

	// infrastructure
	sseHub := sse.NewHub()

	// services
	auditSvc := audit.NewService(actionLogRepo, logger, loadHexKey(cfg.AuditSigningKey))
	guardSvc := guard.NewService(actionLogRepo, auditSvc, logger)
	fanoutSvc := fanout.NewService(channelRepo, sseHub, logger)
	offerSvc := appOffer.NewService(offerRepo, channelRepo, txm, guardSvc, auditSvc, logger)
	matchSvc := appMatch.NewService(matchRepo, offerRepo, channelRepo, chatRepo, txm, auditSvc, fanoutSvc, logger)
	reviewSvc := appReview.NewService(reviewRepo, matchRepo, channelRepo, txm, auditSvc, logger)

	// API server
	apiServer := httpapi.NewServer(offerSvc, matchSvc, reviewSvc, guardSvc, auditSvc, sseHub)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// background loops
	syncCtx, cancelSync := context.WithCancel(context.Background())
	go offerSvc.RunSynthesizer(syncCtx, cfg.OfferSyncInterval)

	// start server
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	cancelSync()
	sseHub.Stop()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}

func loadHexKey(hexStr string) []byte {
	if hexStr == "" {
		return nil
	}
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil
	}
	return b
}
