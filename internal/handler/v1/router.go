package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetcare/config"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/vetcare/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Appointments AppointmentService
	Auth         AuthService
	Tokens       middleware.TokenValidator
	Metrics      *metrics.Collector
	MetricsPage  http.Handler
	CORS         config.CORSConfig
	Log          *zap.Logger
	// Ready reports whether backing stores are reachable.
	Ready func(ctx context.Context) error
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.Recovery(d.Log),
		middleware.RequestID(),
		middleware.CORS(d.CORS),
		middleware.Metrics(d.Metrics),
		middleware.Logger(d.Log),
	)

	r.GET("/healthz", func(c *gin.Context) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.MetricsPage != nil {
		r.GET("/metrics", gin.WrapH(d.MetricsPage))
	}

	api := r.Group("/api/v1")

	authH := NewAuthHandler(d.Auth)
	api.POST("/auth/login", authH.Login)
	api.POST("/auth/refresh", authH.Refresh)

	apptH := NewAppointmentHandler(d.Appointments)
	appts := api.Group("/appointments", middleware.Authenticate(d.Tokens))
	{
		appts.POST("", apptH.Create)
		appts.GET("/:id", apptH.Get)
		appts.GET("", middleware.RequireRole(domain.RoleAdmin, domain.RoleVet), apptH.List)

		adminOnly := appts.Group("", middleware.RequireRole(domain.RoleAdmin))
		adminOnly.PUT("/:id/approve", apptH.Approve)
		adminOnly.PUT("/:id/reject", apptH.Reject)
		adminOnly.PUT("/:id/complete", apptH.Complete)
		adminOnly.PUT("/:id/cancel", apptH.Cancel)
	}

	return r
}
