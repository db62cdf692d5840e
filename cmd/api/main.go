package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/emandor/pbe_journey/internal/analytics"
	"github.com/emandor/pbe_journey/internal/auth"
	"github.com/emandor/pbe_journey/internal/billing"
	"github.com/emandor/pbe_journey/internal/cache"
	"github.com/emandor/pbe_journey/internal/config"
	"github.com/emandor/pbe_journey/internal/db"
	"github.com/emandor/pbe_journey/internal/gamification"
	"github.com/emandor/pbe_journey/internal/middleware"
	"github.com/emandor/pbe_journey/internal/model"
	"github.com/emandor/pbe_journey/internal/quiz"
	"github.com/emandor/pbe_journey/internal/ratelimit"
	"github.com/emandor/pbe_journey/internal/state"
	"github.com/emandor/pbe_journey/internal/store"
	"github.com/emandor/pbe_journey/internal/team"
	"github.com/emandor/pbe_journey/internal/telemetry"
	"github.com/emandor/pbe_journey/internal/ws"
)

func main() {
	doMigrate := flag.Bool("migrate", false, "run migrations and exit")
	flag.Parse()

	cfg := config.Load()
	tlog := telemetry.Init(telemetry.FromEnv(config.GetEnv))

	sqlxDB := db.MustConnect(cfg.DBDSN)
	if *doMigrate {
		db.MustMigrate(sqlxDB)
		log.Println("migrations done")
		return
	}
	rdb := cache.MustConnect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	tlog.Info().Str("port", cfg.AppPort).Str("env", cfg.AppEnv).Msg("booting pbe_journey")

	st := store.New(sqlxDB)
	hub := ws.NewHub()
	board := cache.NewLeaderboard(rdb)
	registry := state.NewRegistry(st)
	updater := gamification.NewUpdater(st,
		gamification.WithNotifier(hub),
		gamification.WithLeaderboard(board),
	)
	limiter := ratelimit.NewChecker(ratelimit.NewRedisCounter(rdb), map[string]ratelimit.Rule{
		ratelimit.ActionLogin:        {Limit: cfg.LoginRateLimit, Window: cfg.RateLimitWindow},
		ratelimit.ActionSignup:       {Limit: cfg.SignupRateLimit, Window: cfg.RateLimitWindow},
		ratelimit.ActionResetRequest: {Limit: cfg.ResetRateLimit, Window: cfg.RateLimitWindow},
	})

	var gateway billing.Gateway
	if cfg.MidtransServerKey != "" {
		gateway = billing.NewSnapGateway(cfg.MidtransServerKey, cfg.MidtransEnv, cfg.MidtransRPS, cfg.MidtransBurst)
	} else {
		tlog.Warn().Msg("midtrans_disabled")
	}

	authReg := auth.NewRegistry(cfg, st, auth.NewRedisKV(rdb), registry, limiter)
	quizH := quiz.NewHandler(quiz.NewService(st, updater, registry))
	analyticsH := analytics.NewHandler(analytics.NewService(st))
	teamH := team.NewHandler(team.NewService(st))
	billingH := billing.NewHandler(billing.NewService(st, gateway, billing.DefaultCatalog(), billing.WithPlanListener(registry)))
	gameH := gamification.NewHandler(updater, st, board)

	app := fiber.New(fiber.Config{
		AppName:      "pbe_journey",
		ErrorHandler: middleware.ErrorHandler,
		BodyLimit:    (cfg.AllowedMaxFileSize + 1) * 1024 * 1024,
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Recover())
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecureHeaders())
	app.Use(middleware.RequestLog())
	app.Use(middleware.RateLimiter(cfg.GlobalRateLimitMax, cfg.GlobalRateWindow, cache.NewFiberStorage(rdb, "fiberlimit:")))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := st.Ping(ctx); err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "db unavailable")
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "redis unavailable")
		}
		return c.SendString("ok")
	})
	app.Static("/storage/avatars", cfg.AvatarDir)

	api := app.Group("/api/v1")
	authReg.RegisterPublic(api)

	protected := api.Group("", middleware.AuthSession(authReg))
	authReg.RegisterPrivate(protected)
	quizH.Register(protected)
	analyticsH.Register(protected)
	teamH.Register(protected)
	billingH.Register(protected)
	gameH.Register(protected)

	admin := protected.Group("/admin", middleware.RequireRole(st, model.RoleAdmin))
	gameH.RegisterAdmin(admin)
	billingH.RegisterAdmin(admin)

	app.Get("/ws", middleware.WSUpgrade(cfg.CORSOrigins), middleware.AuthSession(authReg), websocket.New(hub.Handler()))

	go func() {
		if err := app.Listen(":" + cfg.AppPort); err != nil {
			tlog.Fatal().Err(err).Msg("listen_failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	tlog.Info().Msg("shutting_down")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		tlog.Error().Err(err).Msg("shutdown_failed")
	}
	_ = rdb.Close()
	_ = sqlxDB.Close()
}
