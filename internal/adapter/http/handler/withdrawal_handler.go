package handler

import (
	"context"
	"errors"
	"net/http"

	"coachpay/internal/core/domain"
	"coachpay/internal/core/ports"
	"coachpay/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WithdrawalHandler serves the internal payout API.
type WithdrawalHandler struct {
	svc ports.WithdrawalService
}

// NewWithdrawalHandler creates a WithdrawalHandler.
func NewWithdrawalHandler(svc ports.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{svc: svc}
}

type withdrawalRequestBody struct {
	WalletID    uuid.UUID `json:"wallet_id" binding:"required"`
	AmountVnd   int64     `json:"amount_vnd" binding:"required"`
	BankAccount string    `json:"bank_account" binding:"required"`
}

// Request records a new payout request.
func (h *WithdrawalHandler) Request(c *gin.Context) {
	var body withdrawalRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_code": "VAL_001", "message": "invalid request body"})
		return
	}

	w, err := h.svc.Request(c.Request.Context(), body.WalletID, body.AmountVnd, body.BankAccount)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

// Approve posts the payout journal for a pending request.
func (h *WithdrawalHandler) Approve(c *gin.Context) {
	h.process(c, h.svc.Approve)
}

// Reject closes a pending request without moving money.
func (h *WithdrawalHandler) Reject(c *gin.Context) {
	h.process(c, h.svc.Reject)
}

func (h *WithdrawalHandler) process(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_code": "VAL_001", "message": "invalid withdrawal id"})
		return
	}

	w, err := fn(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func renderError(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, gin.H{"error_code": appErr.Code, "message": appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error_code": "SYS_001", "message": "internal server error"})
}
