package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/mail-archiver/mail-archiver/internal/archive"
	"github.com/mail-archiver/mail-archiver/internal/config"
	"github.com/mail-archiver/mail-archiver/internal/database"
	"github.com/mail-archiver/mail-archiver/internal/handlers"
	"github.com/mail-archiver/mail-archiver/internal/jobs"
	"github.com/mail-archiver/mail-archiver/internal/middleware"
	"github.com/mail-archiver/mail-archiver/internal/models"
	"github.com/mail-archiver/mail-archiver/internal/provider"
	"github.com/mail-archiver/mail-archiver/internal/provider/graphadapter"
	"github.com/mail-archiver/mail-archiver/internal/provider/imapadapter"
	"github.com/mail-archiver/mail-archiver/internal/search"
	"github.com/mail-archiver/mail-archiver/internal/store"
	"github.com/mail-archiver/mail-archiver/internal/sync"
	"github.com/mail-archiver/mail-archiver/internal/utils"
)

func main() {
	log.Println("Starting mail-archiver...")

	cfg := config.Load()
	log.Printf("Environment: %s", cfg.NodeEnv)

	db := database.Init(cfg.DatabaseURL)
	gateway := store.NewGateway(db)
	if err := gateway.Migrate(context.Background()); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	writer := archive.NewWriter(gateway)
	engine := sync.NewEngine(gateway, writer)

	factory := provider.NewFactory(
		func(acc *models.MailAccount) provider.Adapter { return imapadapter.New(acc, cfg.IgnoreSelfSignedCert) },
		func(acc *models.MailAccount) provider.Adapter { return graphadapter.New(acc) },
	)

	orchestrator := jobs.NewOrchestrator(gateway, writer, engine, factory, cfg.ContentRoot)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	orchestrator.Start(ctx, cfg.JobSweepInterval)

	searchService := search.NewService(gateway)

	if cfg.NodeEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		utils.SuccessData(c, gin.H{"status": "ok"})
	})

	handlers.NewAccountHandler(gateway, factory, orchestrator.AccountDelete).
		RegisterRoutes(api.Group("/accounts"))
	handlers.NewJobHandler(gateway, orchestrator).
		RegisterRoutes(api.Group("/jobs"))
	handlers.NewSearchHandler(searchService).
		RegisterRoutes(api.Group("/search"))

	addr := ":" + cfg.Port
	log.Printf("mail-archiver API listening on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatal("failed to start server:", err)
	}
}
