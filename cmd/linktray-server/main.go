package main

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mpearce/linktray/pkg/linktray/api"
	"github.com/mpearce/linktray/pkg/linktray/config"
	"github.com/mpearce/linktray/pkg/linktray/database"
	"github.com/mpearce/linktray/pkg/linktray/fetch"
	"github.com/mpearce/linktray/pkg/linktray/logger"
	"github.com/mpearce/linktray/pkg/linktray/query"
	"github.com/mpearce/linktray/pkg/linktray/store"
	"github.com/mpearce/linktray/pkg/linktray/tags"
)

func main() {
	// Optional .env for local development; config and env vars take over.
	_ = godotenv.Load()

	log := logger.New()
	defer log.Sync()

	cfg, err := config.Load(os.Getenv("LINKTRAY_CONFIG"))
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Schema setup must complete before any query or mutation is served.
	st := store.New(db, log)
	if err := st.Init(); err != nil {
		log.Fatal("failed to initialize store", zap.Error(err))
	}
	log.Info("store ready", zap.String("path", cfg.Database.Path))

	engine := tags.NewEngine(st, log)
	queries := query.New(st, log)

	var fetchers []fetch.Fetcher
	if cfg.Feeds.HackerNews {
		fetchers = append(fetchers, fetch.NewHackerNews(nil, cfg.Feeds.Limit))
	}
	if cfg.Feeds.Lobsters {
		fetchers = append(fetchers, fetch.NewLobsters(nil, cfg.Feeds.Limit))
	}

	refresher := fetch.NewRefresher(st, log, fetchers...)
	if len(fetchers) > 0 {
		if err := refresher.Start(cfg.Refresh.Cron); err != nil {
			log.Fatal("failed to start refresh schedule", zap.Error(err))
		}
		defer refresher.Stop()
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler := api.NewHandler(st, engine, queries, log)
	handler.RegisterRoutes(r.Group("/api"))

	log.Info("starting linktray server", zap.String("addr", cfg.Server.Addr))
	if err := r.Run(cfg.Server.Addr); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
