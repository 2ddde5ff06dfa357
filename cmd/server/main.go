package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bidforecast/server/config"
	"bidforecast/server/internal/api"
	"bidforecast/server/internal/classifier"
	"bidforecast/server/internal/database"
	"bidforecast/server/internal/history"
	"bidforecast/server/internal/predictor"
	"bidforecast/server/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithError(err).Warn("Invalid log level, using info")
	}

	store, closer, err := database.OpenStore(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open history store")
	}
	defer closer.Close()

	tables, err := classifier.LoadTables(classifier.TableFilesFrom(cfg))
	if err != nil {
		logger.WithError(err).Fatal("Failed to load keyword tables")
	}

	// Without models the server still answers /health; predictions fail until restart.
	router, err := predictor.LoadBundle(cfg.Model.Path)
	if err != nil {
		logger.WithError(err).WithField("path", cfg.Model.Path).Error("Failed to load models")
	}

	merger := history.NewMerger(store, cfg.History.Timeout, cfg.History.DegradeOnUnavailable, logger)
	svc := service.NewPredictionService(classifier.FromTables(tables), merger, router, cfg.Model.Path, logger)

	gin.SetMode(cfg.Server.GinMode)
	engine := api.NewRouter(svc, logger, api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Limiter:        api.NewLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst),
	})

	logger.Infof("Starting server on port %s", cfg.Server.Port)
	if err := engine.Run(":" + cfg.Server.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
