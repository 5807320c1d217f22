package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Gateway configuration (CFG) ----

func ErrGatewayNotConfigured(gateway string) *AppError {
	return New("CFG_001", fmt.Sprintf("Gateway %s is not configured for this flow", gateway), http.StatusServiceUnavailable)
}

func ErrUnknownGateway(gateway string) *AppError {
	return New("CFG_002", fmt.Sprintf("Unknown payment gateway: %s", gateway), http.StatusBadRequest)
}

// ---- Payment & checkout (PAY) ----

func ErrInvalidAmount() *AppError {
	return New("PAY_001", "Invalid amount", http.StatusBadRequest)
}

func ErrPaymentNotFound() *AppError {
	return New("PAY_002", "Payment not found", http.StatusNotFound)
}

func ErrWalletNotFound() *AppError {
	return New("PAY_003", "Wallet not found", http.StatusNotFound)
}

func ErrCheckoutFailed(err error) *AppError {
	return Wrap("PAY_004", "Gateway checkout request failed", http.StatusBadGateway, err)
}

func ErrInsufficientFunds() *AppError {
	return New("PAY_005", "Insufficient available balance", http.StatusUnprocessableEntity)
}

func ErrWithdrawalNotFound() *AppError {
	return New("PAY_006", "Withdrawal request not found", http.StatusNotFound)
}

func ErrWithdrawalProcessed() *AppError {
	return New("PAY_007", "Withdrawal request already processed", http.StatusConflict)
}

// ---- Ledger (LED) ----

func ErrUnbalancedJournal() *AppError {
	return New("LED_001", "Journal entries do not balance", http.StatusUnprocessableEntity)
}

func ErrJournalNotFound() *AppError {
	return New("LED_002", "Journal not found", http.StatusNotFound)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a PAY_001-style validation error.
func Validation(message string) *AppError {
	return New("PAY_001", message, http.StatusBadRequest)
}
