package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/arkstudy/ms3-contenido/config"
	"github.com/arkstudy/ms3-contenido/handler"
	"github.com/arkstudy/ms3-contenido/middleware"
	"github.com/arkstudy/ms3-contenido/pkg/metrics"
	ginMetrics "github.com/arkstudy/ms3-contenido/pkg/metrics/gin"
)

func Setup(app config.AppConfig, materialHandler *handler.MaterialHandler, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		middleware.CORS(),
		ginMetrics.PrometheusMiddleware(app.Name),
	)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": app.Name,
			"status":  "running",
			"version": app.Version,
		})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	materialHandler.Register(r.Group("/materiales"))
	return r
}
