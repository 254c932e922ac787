package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/tabletrade/api/rest"
	"github.com/kasuganosora/tabletrade/api/sse"
	"github.com/kasuganosora/tabletrade/audit"
	"github.com/kasuganosora/tabletrade/cache"
	"github.com/kasuganosora/tabletrade/config"
	dbadapter "github.com/kasuganosora/tabletrade/db"
	"github.com/kasuganosora/tabletrade/game/character"
	"github.com/kasuganosora/tabletrade/game/encumbrance"
	"github.com/kasuganosora/tabletrade/game/item"
	"github.com/kasuganosora/tabletrade/game/partner"
	"github.com/kasuganosora/tabletrade/game/rules"
	"github.com/kasuganosora/tabletrade/game/trade"
	mw "github.com/kasuganosora/tabletrade/middleware"
	"github.com/kasuganosora/tabletrade/model"
	"github.com/kasuganosora/tabletrade/scene"
	"github.com/kasuganosora/tabletrade/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Server.HostKey == "" {
		logger.Warn("server.host_key is not set; participant tokens cannot be issued")
	}
	if cfg.Security.JWTSecret == "" {
		log.Fatalf("security.jwt_secret must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Scene ----
	store := scene.NewCacheStore(c, pubsub, scene.StoreConfig{
		RoomID:       cfg.Scene.RoomID,
		Transport:    scene.Transport(cfg.Scene.Transport),
		PollInterval: cfg.Trade.PollInterval,
	}, logger)
	grid := scene.Grid{DPI: cfg.Scene.GridDPI, Measurement: scene.Measurement(cfg.Scene.Measurement)}

	// ---- Rules ----
	ruleSet, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		log.Fatalf("rules: %v", err)
	}

	// ---- Persistence ----
	repo, err := character.NewRepository(db, c, cfg.Cache.CharacterTTL, logger)
	if err != nil {
		log.Fatalf("character repository: %v", err)
	}
	defer repo.Close()

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Services ----
	resolver := item.NewResolver(encumbrance.New(ruleSet))
	items := item.NewService(store, resolver, repo, auditSvc, cfg.Scene.CampaignID, logger)
	coordinator := trade.NewCoordinator(store, grid, trade.Config{
		ProximityUnits: cfg.Trade.ProximityUnits,
		CompareAndSwap: cfg.Trade.CompareAndSwap,
	}, auditSvc, logger)
	discovery := partner.NewDiscovery(store, grid, cfg.Trade.ProximityUnits, logger)

	validator, err := apirest.NewValidator()
	if err != nil {
		log.Fatalf("schemas: %v", err)
	}

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(ctx, rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok", "room": cfg.Scene.RoomID})
	})

	sessionH := apirest.NewSessionHandler(cfg.Security, c, sched, validator, logger)
	charH := apirest.NewCharacterHandler(items, validator, logger)
	tradeH := apirest.NewTradeHandler(coordinator, discovery, validator, logger)
	sseH := sse.NewHandler(store, coordinator, sched, sse.Config{ClaimRefresh: cfg.Trade.ClaimRefreshInterval}, logger)

	api := r.Group("/api")
	{
		hostG := api.Group("/host", apirest.HostAuth(cfg.Server.HostKey))
		hostG.POST("/sessions", sessionH.Issue)
		hostG.GET("/tasks", sessionH.Tasks)

		authed := api.Group("", mw.Auth(cfg.Security, c))
		authed.GET("/session", sessionH.Me)
		authed.DELETE("/session", sessionH.Revoke)
		authed.GET("/trade/events", sseH.ServeSSE)
		apirest.Mount(authed, charH, tradeH)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Server listening", zap.String("addr", addr), zap.String("room", cfg.Scene.RoomID))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
}
