package paynow

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sportsclub/server/internal/module/payment"
	"github.com/sportsclub/server/internal/shared/response"
)

// StatusParser verifies and decodes a status update posted by Paynow.
type StatusParser interface {
	ParseStatusUpdate(body string) (*payment.PollResult, error)
}

// CallbackHandler receives Paynow result-url posts and applies them to the
// purchase domain named in the url.
type CallbackHandler struct {
	parser   StatusParser
	registry *payment.Registry
	logger   *zap.Logger
}

// NewCallbackHandler creates a callback handler.
func NewCallbackHandler(parser StatusParser, registry *payment.Registry, logger *zap.Logger) *CallbackHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CallbackHandler{parser: parser, registry: registry, logger: logger}
}

// RegisterRoutes registers the result url. It must not sit behind auth:
// Paynow authenticates with the response hash.
func (h *CallbackHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/paynow/result/:domain", h.Result)
}

// Result applies a Paynow status update.
// @Summary Paynow result callback
// @Tags payments
// @Accept x-www-form-urlencoded
// @Produce json
// @Param domain path string true "Purchase domain"
// @Success 200 {object} payment.ReconcileResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /payments/paynow/result/{domain} [post]
func (h *CallbackHandler) Result(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxResponseBytes))
	if err != nil {
		response.BadRequest(c, "unreadable body")
		return
	}

	update, err := h.parser.ParseStatusUpdate(string(body))
	if err != nil {
		h.logger.Warn("rejected paynow status update", zap.Error(err), zap.String("client_ip", c.ClientIP()))
		response.ErrorWithCode(c, http.StatusBadRequest, "INVALID_SIGNATURE", "invalid status update")
		return
	}

	ops, err := h.registry.Get(c.Param("domain"))
	if err != nil {
		payment.HandleError(c, err)
		return
	}

	result, err := ops.ApplyGatewayStatus(c.Request.Context(), update.PollURL, update.Status)
	if err != nil {
		h.logger.Warn("apply paynow status update",
			zap.String("domain", ops.Name()),
			zap.String("poll_url", update.PollURL),
			zap.Error(err),
		)
		payment.HandleError(c, err)
		return
	}

	h.logger.Info("applied paynow status update",
		zap.String("domain", ops.Name()),
		zap.String("id", result.ResourceID.String()),
		zap.String("status", string(result.Status)),
	)
	c.JSON(http.StatusOK, payment.ReconcileResponse{Success: true, Reconciliation: result})
}
