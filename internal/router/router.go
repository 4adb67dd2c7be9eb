package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rxscan/internal/handler"
	"rxscan/internal/metrics"
	"rxscan/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	logger *zap.Logger,
	m *metrics.Metrics,
	scanH *handler.ScanHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	// Health checks and metrics
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)
	r.GET("/metrics", gin.WrapH(m.Handler()))

	v1 := r.Group("/api/v1")

	scans := v1.Group("/scans")
	scans.POST("/product", scanH.ScanProduct)
	scans.POST("/bill", scanH.ScanBill)
	scans.POST("/prescription", scanH.ScanPrescription)
	scans.GET("", scanH.List)
	scans.GET("/export", scanH.ExportCSV)
	scans.GET("/:id", scanH.GetByID)
	scans.GET("/:id/export", scanH.ExportBill)
	scans.PUT("/:id/prescription", scanH.UpdatePrescription)
	scans.DELETE("/:id", scanH.Delete)

	return r
}
