package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/AbhayTopno/PopQuiz/auth"
	"github.com/AbhayTopno/PopQuiz/config"
	"github.com/AbhayTopno/PopQuiz/crypto"
	"github.com/AbhayTopno/PopQuiz/game"
	"github.com/AbhayTopno/PopQuiz/invite"
	"github.com/AbhayTopno/PopQuiz/logger"
	"github.com/AbhayTopno/PopQuiz/migrations"
	"github.com/AbhayTopno/PopQuiz/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// CreateServer builds the engine. Routes added by public, like /health, skip
// the origin allow-list and CORS so they work without an Origin header.
func CreateServer(allowedOrigins []string, public ...func(gin.IRoutes)) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware())
	r.SetTrustedProxies([]string{"127.0.0.1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})
	r.GET("/health", func(ctx *gin.Context) { ctx.String(200, "healthy") })
	for _, register := range public {
		register(r)
	}

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")

		if slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Authorization",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Setup("info", false)
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Setup(cfg.LogLevel, cfg.LogPretty)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := migrations.Migrate(cfg.PostgresURL); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	ctx := context.Background()
	pgRepo, err := storage.NewPostgresRepo(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres unavailable")
	}
	defer pgRepo.Close()

	store, err := storage.NewValkeyStore(ctx, storage.ValkeyConfig{
		Addr:           cfg.Valkey.Addr,
		Username:       cfg.Valkey.Username,
		Password:       cfg.Valkey.Password,
		DB:             cfg.Valkey.DB,
		RoomTTL:        cfg.Valkey.RoomTTL,
		CoopTTL:        cfg.Valkey.CoopTTL,
		ConnectTimeout: cfg.Valkey.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("valkey unavailable")
	}
	defer store.Close()

	tokenAge := time.Hour * 24 * 7 // 7 days
	tokenManager := crypto.NewJWTManager(cfg.JWTKey, tokenAge)
	authHandler := auth.NewHandler(tokenManager, pgRepo, cfg.Valkey.Timeout)

	clock := game.NewClock()
	tickerGen := game.NewTickerGen()

	opts := game.DefaultOptions()
	opts.EmptyRoomGrace = cfg.Game.EmptyRoomGrace
	opts.CountdownFrom = cfg.Game.CountdownFrom
	opts.StoreTimeout = cfg.Valkey.Timeout
	coordinator := game.NewCoordinator(store, pgRepo, clock, tickerGen, opts)

	reaperCtx, stopReaper := context.WithCancel(ctx)
	reaper := game.NewReaper(store, coordinator, clock, tickerGen, cfg.Game.ReapInterval, cfg.Game.EmptyRoomGrace)
	go reaper.Run(reaperCtx)

	gameHandler := game.NewGameHandler(coordinator, tickerGen, cfg.AllowedOrigins, cfg.Game.EventsPerSecond, cfg.Game.EventBurst)
	inviteHandler := invite.NewHandler(cfg.PublicURL, store)

	r := CreateServer(cfg.AllowedOrigins, func(public gin.IRoutes) {
		public.GET("/rooms/:roomId/invite.png", inviteHandler.QRCodeHandler)
	})
	r.GET("/ws", authHandler.RequireIdentity(), gameHandler.ConnectHandler)
	r.GET("/rooms/:roomId/leaderboard", gameHandler.LeaderboardHandler)

	srv := &http.Server{Addr: cfg.Address(), Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("addr", cfg.Address()).Msg("Server started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, os.Interrupt)
	<-sigCh
	log.Info().Msg("SIGTERM or SIGINT received, shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	stopReaper()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := coordinator.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("rooms did not stop in time")
	}
	log.Info().Msg("Shutting down now")
}
