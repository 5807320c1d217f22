package handler

import (
	"coachpay/internal/adapter/http/middleware"
	"coachpay/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Reconciler     ports.Reconciler
	StatusCache    ports.CheckoutStatusCache // nil = status polling disabled
	WithdrawalSvc  ports.WithdrawalService   // nil = payout API disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	callbackHandler := NewCallbackHandler(deps.Reconciler, deps.Logger)

	payments := r.Group("/payments")
	{
		payments.GET("/vnpay/return", callbackHandler.VNPayReturn)
		payments.GET("/vnpay/ipn", callbackHandler.VNPayIPN)
		payments.POST("/momo/ipn", callbackHandler.MomoIPN)
		payments.POST("/payos/webhook", callbackHandler.PayOSWebhook)
	}

	if deps.StatusCache != nil {
		checkoutHandler := NewCheckoutHandler(deps.StatusCache)
		payments.GET("/checkout/:subscription_id", checkoutHandler.GetStatus)
	}

	if deps.WithdrawalSvc != nil {
		withdrawalHandler := NewWithdrawalHandler(deps.WithdrawalSvc)
		withdrawals := r.Group("/withdrawals")
		{
			withdrawals.POST("", withdrawalHandler.Request)
			withdrawals.POST("/:id/approve", withdrawalHandler.Approve)
			withdrawals.POST("/:id/reject", withdrawalHandler.Reject)
		}
	}

	return r
}
