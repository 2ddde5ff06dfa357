package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RouterOptions configures the middleware stack
type RouterOptions struct {
	AllowedOrigins []string
	Limiter        *rate.Limiter
}

func NewRouter(svc PredictionService, logger *logrus.Logger, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), AccessLog(logger), CORS(opts.AllowedOrigins))
	SetupRoutes(router, NewHandler(svc, logger), opts.Limiter)
	return router
}

func SetupRoutes(router *gin.Engine, handler *Handler, limiter *rate.Limiter) {
	router.GET("/health", handler.Health)

	limited := router.Group("/", RateLimit(limiter))
	{
		limited.POST("/predict", handler.Predict)
		limited.POST("/prob_predict", handler.PredictProbability)
		limited.GET("/history/:id", handler.GetHistory)
	}
}
