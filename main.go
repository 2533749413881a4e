package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/amirhf/imageSearch/services/gallery-go/api"
	"github.com/amirhf/imageSearch/services/gallery-go/config"
	"github.com/amirhf/imageSearch/services/gallery-go/session"
	"github.com/amirhf/imageSearch/services/gallery-go/storage"
)

var log = logrus.New()

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// .env from the working directory or the repo root, for local dev
	cfg, err := config.Load(*configPath, ".env", "../../.env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	configureLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var gateway storage.Gateway = storage.NewWeaviateStore(cfg.Weaviate, log.WithField("component", "weaviate"))

	var history api.HistoryReader
	if cfg.Storage.DatabaseURL != "" {
		store, err := storage.NewPostgresStore(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer store.Close()
		gateway = storage.WithSearchLog(gateway, store, log.WithField("component", "search-log"))
		history = store
		log.Info("search log enabled")
	}

	sessionLog := log.WithField("component", "session")
	sessions, err := session.NewRegistry(cfg.Sessions.MaxSessions, func() *session.Controller {
		return session.NewController(gateway, cfg.Search.PageSize, cfg.Weaviate.ClassName, sessionLog)
	})
	if err != nil {
		log.Fatalf("Failed to create session registry: %v", err)
	}

	handler := api.NewHandler(sessions, api.Options{
		PageSize:      cfg.Search.PageSize,
		MaxImageBytes: cfg.Search.MaxImageBytes,
		CookieName:    cfg.Sessions.CookieName,
		Debug:         cfg.Debug,
		History:       history,
		Log:           log.WithField("component", "api"),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewRouter(handler, *cfg, log.WithField("component", "http")),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"port":     cfg.Server.Port,
			"weaviate": cfg.Weaviate.Scheme + "://" + cfg.Weaviate.Host,
			"class":    cfg.Weaviate.ClassName,
		}).Info("Gallery service running")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Info("Server stopped")
}

func configureLogger(cfg config.LogConfig) {
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
}
