package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/openvisit/visitor-portal/internal/config"
	"github.com/openvisit/visitor-portal/internal/database"
	"github.com/openvisit/visitor-portal/internal/handler"
	"github.com/openvisit/visitor-portal/internal/middleware"
	"github.com/openvisit/visitor-portal/internal/queue"
	"github.com/openvisit/visitor-portal/internal/repository"
	"github.com/openvisit/visitor-portal/internal/router"
	queue_publisher "github.com/openvisit/visitor-portal/internal/service"
)

func main() {
	// Local development reads a .env file; in production the variables
	// come from the deployment environment and the file is absent.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable: rate limiting and response cache disabled")
	}

	visitors := repository.NewVisitorRepo(db)
	visits := repository.NewVisitRepo(db)
	webhooks := repository.NewWebhookRepo(db)
	settings := repository.NewSettingsRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	checkIn := handler.NewCheckInHandler(visitors, visits, queue_publisher.PublishVisitEvent)
	settingsHandler := handler.NewSettingsHandler(settings)
	auth := handler.NewAuthHandler(cfg, users, tokens)
	adminVisits := handler.NewAdminVisitHandler(visits, visitors)
	webhookAdmin := handler.NewWebhookHandler(webhooks)

	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	e := echo.New()
	e.HideBanner = true
	router.RegisterHealth(e)
	router.RegisterKiosk(e, checkIn, settingsHandler, rateLimit, cache)
	router.RegisterAuth(e, auth, cfg.JWTSecret)
	router.RegisterAdmin(e, adminVisits, webhookAdmin, settingsHandler, cfg.JWTSecret)

	// Webhook delivery runs in-process; the consumer reconnects to the
	// broker on its own and only ever logs failures.
	dispatcher := queue.NewDispatcher(webhooks)
	go func() {
		if err := queue.StartConsumer(dispatcher); err != nil {
			log.Printf("visit-consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
