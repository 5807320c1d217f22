package handler

import (
	"net/http"

	"coachpay/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CheckoutHandler serves the fast-path checkout status read model. Clients
// poll it after initiating a purchase instead of hitting the database.
type CheckoutHandler struct {
	cache ports.CheckoutStatusCache
}

// NewCheckoutHandler creates a CheckoutHandler.
func NewCheckoutHandler(cache ports.CheckoutStatusCache) *CheckoutHandler {
	return &CheckoutHandler{cache: cache}
}

// GetStatus returns the cached checkout artifacts for a subscription.
func (h *CheckoutHandler) GetStatus(c *gin.Context) {
	subscriptionID, err := uuid.Parse(c.Param("subscription_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_code": "VAL_001", "message": "invalid subscription id"})
		return
	}

	ready, err := h.cache.Get(c.Request.Context(), subscriptionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error_code": "SYS_001", "message": "Internal server error"})
		return
	}
	if ready == nil {
		c.JSON(http.StatusNotFound, gin.H{"error_code": "PAY_002", "message": "checkout not found"})
		return
	}

	c.JSON(http.StatusOK, ready)
}
