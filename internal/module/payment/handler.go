package payment

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sportsclub/server/internal/shared/response"
	"github.com/sportsclub/server/internal/utils/middleware"
)

// InitiateRequest is the body of a payment initiation.
type InitiateRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// ReconcileRequest is the body of a status check.
type ReconcileRequest struct {
	PollURL string `json:"poll_url"`
}

// SetStatusRequest is the body of a manual status update.
type SetStatusRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required"`
	PollURL       string `json:"poll_url"`
}

// ReconcileResponse is returned by status checks.
type ReconcileResponse struct {
	Success bool `json:"success"`
	*Reconciliation
}

// Handler exposes the payment lifecycle of one domain over HTTP.
type Handler struct {
	ops Operations
}

// NewHandler creates a handler for ops.
func NewHandler(ops Operations) *Handler {
	return &Handler{ops: ops}
}

// RegisterRoutes adds payment routes to a domain group such as /registrations.
// requireAdmin guards the manual status update.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, requireAdmin gin.HandlerFunc) {
	r.POST("/payment-status", h.ReconcileByHandle)
	r.GET("/:id/payment", h.GetPayment)
	r.POST("/:id/pay", h.Initiate)
	r.POST("/:id/payment-status", h.Reconcile)
	r.PATCH("/:id/payment-status", requireAdmin, h.SetStatus)
}

// Initiate sends a mobile money push for a purchase.
// @Summary Initiate mobile money payment
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "Purchase ID"
// @Param request body InitiateRequest true "Payer phone"
// @Success 200 {object} Initiation
// @Failure 402 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 502 {object} response.ErrorResponse
// @Router /{domain}/{id}/pay [post]
func (h *Handler) Initiate(c *gin.Context) {
	id, ok := h.authorize(c)
	if !ok {
		return
	}

	var req InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.ops.Initiate(c.Request.Context(), id, req.Phone)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Reconcile checks the gateway for a purchase's payment status.
// @Summary Check payment status
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "Purchase ID"
// @Param request body ReconcileRequest false "Poll URL returned at initiation"
// @Success 200 {object} ReconcileResponse
// @Router /{domain}/{id}/payment-status [post]
func (h *Handler) Reconcile(c *gin.Context) {
	id, ok := h.authorize(c)
	if !ok {
		return
	}

	var req ReconcileRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	result, err := h.ops.Reconcile(c.Request.Context(), id, req.PollURL)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, ReconcileResponse{Success: true, Reconciliation: result})
}

// ReconcileByHandle checks the status of the purchase holding a poll url.
// @Summary Check payment status by poll URL
// @Tags payments
// @Accept json
// @Produce json
// @Param request body ReconcileRequest true "Poll URL"
// @Success 200 {object} ReconcileResponse
// @Router /{domain}/payment-status [post]
func (h *Handler) ReconcileByHandle(c *gin.Context) {
	if middleware.GetUserID(c) == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PollURL == "" {
		response.BadRequest(c, "poll_url is required")
		return
	}

	ctx := c.Request.Context()
	snap, err := h.ops.SnapshotByHandle(ctx, req.PollURL)
	if err != nil {
		HandleError(c, err)
		return
	}
	if !canAccess(c, snap.OwnerID) {
		response.ErrorWithCode(c, http.StatusForbidden, "FORBIDDEN", "access denied")
		return
	}

	result, err := h.ops.Reconcile(ctx, snap.ID, req.PollURL)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, ReconcileResponse{Success: true, Reconciliation: result})
}

// GetPayment returns the stored payment state of a purchase.
// @Summary Get payment state
// @Tags payments
// @Produce json
// @Param id path string true "Purchase ID"
// @Success 200 {object} Snapshot
// @Router /{domain}/{id}/payment [get]
func (h *Handler) GetPayment(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	snap, err := h.ops.Snapshot(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	if !canAccess(c, snap.OwnerID) {
		response.ErrorWithCode(c, http.StatusForbidden, "FORBIDDEN", "access denied")
		return
	}
	c.JSON(http.StatusOK, snap)
}

// SetStatus sets a payment status by hand.
// @Summary Set payment status (admin)
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "Purchase ID"
// @Param request body SetStatusRequest true "New status"
// @Success 200 {object} Snapshot
// @Router /{domain}/{id}/payment-status [patch]
func (h *Handler) SetStatus(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	snap, err := h.ops.SetStatus(c.Request.Context(), id, Status(req.PaymentStatus), req.PollURL)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// authorize parses the id and checks the caller may act on the purchase.
func (h *Handler) authorize(c *gin.Context) (uuid.UUID, bool) {
	id, ok := h.parseID(c)
	if !ok {
		return uuid.Nil, false
	}
	if middleware.GetUserID(c) == uuid.Nil {
		response.Unauthorized(c, "")
		return uuid.Nil, false
	}

	snap, err := h.ops.Snapshot(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return uuid.Nil, false
	}
	if !canAccess(c, snap.OwnerID) {
		response.ErrorWithCode(c, http.StatusForbidden, "FORBIDDEN", "access denied")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func canAccess(c *gin.Context, owner uuid.UUID) bool {
	return middleware.GetUserID(c) == owner || middleware.HasRole(c, middleware.RoleAdmin)
}

// ErrorMappings maps payment errors to HTTP responses. Domain handlers
// append their own mappings to it.
var ErrorMappings = []response.ErrorMapping{
	{Err: ErrNotFound, Status: http.StatusNotFound, Code: "NOT_FOUND"},
	{Err: ErrTargetNotFound, Status: http.StatusNotFound, Code: "TARGET_NOT_FOUND"},
	{Err: ErrOwnerNotFound, Status: http.StatusNotFound, Code: "OWNER_NOT_FOUND"},
	{Err: ErrDomainNotFound, Status: http.StatusNotFound, Code: "DOMAIN_NOT_FOUND"},
	{Err: ErrDuplicatePurchase, Status: http.StatusConflict, Code: "DUPLICATE_PURCHASE", Message: ErrDuplicatePurchase.Error()},
	{Err: ErrAlreadyPaid, Status: http.StatusConflict, Code: "ALREADY_PAID"},
	{Err: ErrPaymentCancelled, Status: http.StatusConflict, Code: "PAYMENT_CANCELLED"},
	{Err: ErrInvalidTransition, Status: http.StatusConflict, Code: "INVALID_TRANSITION"},
	{Err: ErrConcurrentUpdate, Status: http.StatusConflict, Code: "CONCURRENT_UPDATE"},
	{Err: ErrResourceBusy, Status: http.StatusConflict, Code: "RESOURCE_BUSY"},
	{Err: ErrPollHandleMismatch, Status: http.StatusConflict, Code: "POLL_URL_MISMATCH"},
	{Err: ErrNoPollHandle, Status: http.StatusBadRequest, Code: "PAYMENT_NOT_INITIATED"},
	{Err: ErrPhoneRequired, Status: http.StatusBadRequest, Code: "PHONE_REQUIRED"},
	{Err: ErrInvalidAmount, Status: http.StatusBadRequest, Code: "INVALID_AMOUNT"},
	{Err: ErrStatusNotAllowed, Status: http.StatusBadRequest, Code: "STATUS_NOT_ALLOWED"},
	{Err: ErrGatewayRejected, Status: http.StatusPaymentRequired, Code: "GATEWAY_REJECTED"},
	{Err: ErrGatewayTransport, Status: http.StatusBadGateway, Code: "GATEWAY_UNAVAILABLE"},
	{Err: ErrAmountMismatch, Status: http.StatusInternalServerError, Code: "AMOUNT_MISMATCH"},
}

// HandleError writes err using ErrorMappings plus any extra mappings.
func HandleError(c *gin.Context, err error, extra ...response.ErrorMapping) {
	if len(extra) > 0 && response.HandleError(c, err, extra) {
		return
	}
	if errors.Is(err, ErrGatewayTransport) {
		_ = c.Error(err)
	}
	response.HandleErrorWithDefault(c, err, ErrorMappings)
}
