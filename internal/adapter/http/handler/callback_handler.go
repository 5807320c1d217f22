package handler

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strconv"

	"coachpay/internal/core/domain"
	"coachpay/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CallbackHandler terminates the gateway return/IPN surface. Each endpoint
// collects the raw parameters, hands them to the reconciler and renders the
// result in the calling gateway's own webhook vocabulary. Infrastructure
// errors answer 500 so the gateway retries; rejections answer 200 with the
// rejection code so it stops.
type CallbackHandler struct {
	reconciler ports.Reconciler
	log        zerolog.Logger
}

// NewCallbackHandler creates a CallbackHandler.
func NewCallbackHandler(reconciler ports.Reconciler, log zerolog.Logger) *CallbackHandler {
	return &CallbackHandler{reconciler: reconciler, log: log}
}

// VNPayReturn handles the browser redirect back from VNPay. It runs the same
// reconciliation as the IPN (whichever lands first wins, the other is the
// idempotent replay) and renders a human-readable status page.
func (h *CallbackHandler) VNPayReturn(c *gin.Context) {
	params := queryParams(c)

	result, err := h.reconciler.HandleCallback(c.Request.Context(), domain.GatewayVNPay, params)
	if err != nil {
		h.log.Error().Err(err).Msg("vnpay return reconciliation failed")
		c.Data(http.StatusInternalServerError, "text/html; charset=utf-8",
			statusPage("Payment status unavailable", "Please check your order history in a few minutes."))
		return
	}

	switch result.Outcome {
	case domain.OutcomeConfirmed, domain.OutcomeAlreadyConfirmed:
		c.Data(http.StatusOK, "text/html; charset=utf-8",
			statusPage("Payment successful", "Your payment has been confirmed."))
	case domain.OutcomeFailed:
		c.Data(http.StatusOK, "text/html; charset=utf-8",
			statusPage("Payment failed", "The payment was not completed. No money has been taken."))
	default:
		c.Data(http.StatusOK, "text/html; charset=utf-8",
			statusPage("Payment not verified", result.Message))
	}
}

// VNPayIPN handles the server-to-server VNPay notification.
// VNPay expects {"RspCode": "...", "Message": "..."} and retries on anything
// other than HTTP 200.
func (h *CallbackHandler) VNPayIPN(c *gin.Context) {
	params := queryParams(c)

	result, err := h.reconciler.HandleCallback(c.Request.Context(), domain.GatewayVNPay, params)
	if err != nil {
		h.log.Error().Err(err).Msg("vnpay ipn reconciliation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"RspCode": "99", "Message": "Unknown error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"RspCode": result.Code, "Message": result.Message})
}

// MomoIPN handles the MoMo server notification. The body is JSON with mixed
// string and numeric fields; everything is flattened to strings before
// reconciliation so signature payloads match what MoMo signed.
func (h *CallbackHandler) MomoIPN(c *gin.Context) {
	params, err := jsonParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"resultCode": 99, "message": "malformed body"})
		return
	}

	result, err := h.reconciler.HandleCallback(c.Request.Context(), domain.GatewayMomo, params)
	if err != nil {
		h.log.Error().Err(err).Msg("momo ipn reconciliation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"resultCode": 99, "message": "internal error"})
		return
	}

	code := 0
	if result.Outcome == domain.OutcomeRejected {
		if n, convErr := strconv.Atoi(result.Code); convErr == nil {
			code = n
		} else {
			code = 99
		}
	}
	c.JSON(http.StatusOK, gin.H{"resultCode": code, "message": result.Message})
}

// PayOSWebhook handles the PayOS notification. The nested data object is
// flattened into the parameter map; the adapter re-queries the status API
// anyway, so the body only needs to carry the order code.
func (h *CallbackHandler) PayOSWebhook(c *gin.Context) {
	params, err := jsonParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "99", "desc": "malformed body"})
		return
	}

	result, err := h.reconciler.HandleCallback(c.Request.Context(), domain.GatewayPayOS, params)
	if err != nil {
		h.log.Error().Err(err).Msg("payos webhook reconciliation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"code": "99", "desc": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": result.Code, "desc": result.Message})
}

// queryParams copies the query string into a flat map. Repeated keys keep
// the first value, matching what the gateways actually send.
func queryParams(c *gin.Context) map[string]string {
	params := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}

// jsonParams decodes a JSON body into a flat string map. Numbers keep their
// wire representation via json.Number so re-signed payloads round-trip; one
// level of object nesting is flattened.
func jsonParams(c *gin.Context) (map[string]string, error) {
	var raw map[string]any
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode callback body: %w", err)
	}

	params := make(map[string]string, len(raw))
	flattenInto(params, raw)
	return params, nil
}

func flattenInto(params map[string]string, raw map[string]any) {
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			params[key] = v
		case json.Number:
			params[key] = v.String()
		case bool:
			params[key] = strconv.FormatBool(v)
		case nil:
			params[key] = ""
		case map[string]any:
			flattenInto(params, v)
		}
	}
}

func statusPage(title, detail string) []byte {
	return []byte(fmt.Sprintf(
		`<!DOCTYPE html><html><head><meta charset="utf-8"><title>%s</title></head>`+
			`<body><h1>%s</h1><p>%s</p></body></html>`,
		html.EscapeString(title), html.EscapeString(title), html.EscapeString(detail),
	))
}
