package main // Entry point package

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/uml-editor-backend/internal/access"
	"github.com/iliyamo/uml-editor-backend/internal/config"
	"github.com/iliyamo/uml-editor-backend/internal/database"
	"github.com/iliyamo/uml-editor-backend/internal/handler"
	"github.com/iliyamo/uml-editor-backend/internal/middleware"
	"github.com/iliyamo/uml-editor-backend/internal/queue"
	"github.com/iliyamo/uml-editor-backend/internal/realtime"
	"github.com/iliyamo/uml-editor-backend/internal/repository"
	"github.com/iliyamo/uml-editor-backend/internal/router"
	"github.com/iliyamo/uml-editor-backend/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories
	users := repository.NewUserRepo(db)
	projects := repository.NewProjectRepo(db)
	diagrams := repository.NewDiagramRepo(db)
	shares := repository.NewShareRepo(db)

	// Core services: share registry, version manager, resolver + gate, hub
	registry := service.NewShareRegistry(shares)
	versions := service.NewDiagramVersions(diagrams)
	resolver := access.NewResolver(registry)
	gate := access.NewGate(diagrams, projects, registry)
	hub := realtime.NewHub()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	// Redis-backed rate limiting; degrades to a pass-through when Redis
	// is unreachable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis: unavailable, rate limiting disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	// Handlers
	authH := handler.NewAuthHandler(cfg, users)
	projectH := handler.NewProjectHandler(projects, diagrams)
	diagramH := handler.NewDiagramHandler(projects, diagrams, versions, resolver, gate, hub)
	streamH := handler.NewStreamHandler(diagrams, resolver, gate, hub, time.Duration(cfg.KeepaliveSec)*time.Second)
	shareH := handler.NewShareHandler(diagrams, registry)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterProjects(e, projectH, cfg.JWTSecret)
	router.RegisterDiagrams(e, diagramH, streamH, cfg.JWTSecret)
	router.RegisterShares(e, shareH, cfg.JWTSecret)

	// Audit-log consumer; only started when a broker is configured.
	if os.Getenv("RABBITMQ_URL") != "" || os.Getenv("AMQP_URL") != "" {
		go func() {
			if err := queue.StartDiagramConsumer(); err != nil {
				log.Printf("diagram-consumer: %v", err)
			}
		}()
	}

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
