package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mbolis/quick-fields/app"
	"github.com/mbolis/quick-fields/cache"
	"github.com/mbolis/quick-fields/config"
	"github.com/mbolis/quick-fields/database"
	"github.com/mbolis/quick-fields/httpx"
	"github.com/mbolis/quick-fields/log"
	"github.com/mbolis/quick-fields/routes"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	if cfg.AdminPassword != "" {
		err = database.EnsureAdmin(context.Background(), db, cfg.AdminUser, cfg.AdminPassword)
		if err != nil {
			log.Fatal("main.db.admin:", err)
		}
		log.Infof("Admin account %q ready", cfg.AdminUser)
	}

	rendered := cache.Nop
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatal("main.redis:", err)
		}
		rendered = cache.NewRendered(rdb, cfg.CacheTTL)
		log.Info("Caching rendered fields in redis at " + cfg.RedisAddr)
	}

	app := app.App{
		DB:           db,
		BearerServer: httpx.NewBearerServer(db, cfg),
		Config:       cfg,
		Fields:       database.NewFields(db),
		Rendered:     rendered,
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
