package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	channelrepository "community-platform/backend/internal/channel/repository"
	communityrepository "community-platform/backend/internal/community/repository"
	"community-platform/backend/internal/config"
	"community-platform/backend/internal/db"
	gatewayhandler "community-platform/backend/internal/gateway/handler"
	gatewayservice "community-platform/backend/internal/gateway/service"
	identityrepository "community-platform/backend/internal/identity/repository"
	identityservice "community-platform/backend/internal/identity/service"
	membershiprepository "community-platform/backend/internal/membership/repository"
	membershipservice "community-platform/backend/internal/membership/service"
	messagerepository "community-platform/backend/internal/message/repository"
	messageservice "community-platform/backend/internal/message/service"
	"community-platform/backend/internal/security"
	"community-platform/backend/internal/server"
	tokenrepository "community-platform/backend/internal/token/repository"
	tokenservice "community-platform/backend/internal/token/service"
	userrepository "community-platform/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger := zerolog.New(os.Stderr)
		logger.Fatal().Err(err).Msg("loading config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	accessPrivate, err := security.ParsePrivateKey(cfg.AccessPrivateKey)
	if err != nil {
		log.Fatal().Err(err).Msg("parsing access private key")
	}
	accessPublic, err := security.ParsePublicKey(cfg.AccessPublicKey)
	if err != nil {
		log.Fatal().Err(err).Msg("parsing access public key")
	}
	refreshPrivate, err := security.ParsePrivateKey(cfg.RefreshPrivateKey)
	if err != nil {
		log.Fatal().Err(err).Msg("parsing refresh private key")
	}
	refreshPublic, err := security.ParsePublicKey(cfg.RefreshPublicKey)
	if err != nil {
		log.Fatal().Err(err).Msg("parsing refresh public key")
	}

	tokens := security.NewTokenProvider(
		accessPrivate, accessPublic,
		refreshPrivate, refreshPublic,
		cfg.JWTIssuer, cfg.JWTAudience,
		cfg.AccessTTL(), cfg.RefreshTTL(),
	)

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("opening database")
	}
	defer database.Close()

	tokenRepo := tokenrepository.NewPostgresRepository(database)
	userRepo := userrepository.NewPostgresRepository(database)
	identityRepo := identityrepository.NewPostgresRepository(database)
	membershipRepo := membershiprepository.NewPostgresRepository(database)
	channelRepo := channelrepository.NewPostgresRepository(database)
	communityRepo := communityrepository.NewPostgresRepository(database)
	messageRepo := messagerepository.NewPostgresRepository(database)

	authority := tokenservice.NewAuthority(tokens, tokenRepo, cfg.StoreTimeout(), log)
	hasher := security.NewHasher(cfg.BcryptCost)
	auth := identityservice.NewAuthService(userRepo, identityRepo, hasher, authority)
	authorizer := membershipservice.NewAuthorizer(membershipRepo, channelRepo, cfg.StoreTimeout())
	messages := messageservice.NewService(messageRepo, authorizer, userRepo, cfg.StoreTimeout(), log)

	hub := gatewayservice.NewHub(log)
	hub.BindMessages(messages)
	messages.BindPusher(hub)
	go hub.Run()

	ws := gatewayhandler.New(hub, authority, cfg.AllowedOrigin, log)
	srv := server.New(cfg.HTTPAddr, server.Services{
		Auth:        auth,
		Tokens:      authority,
		Messages:    messages,
		Moderation:  authorizer,
		Channels:    channelRepo,
		Communities: communityRepo,
	}, ws.ServeWS, log)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := hub.Shutdown(cfg.ShutdownTimeout()); err != nil {
		log.Error().Err(err).Msg("gateway shutdown")
	}
	log.Info().Msg("stopped")
}
