package injurysolution

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sportsclub/server/internal/module/payment"
	"github.com/sportsclub/server/internal/shared/response"
	"github.com/sportsclub/server/internal/utils/middleware"
	"github.com/sportsclub/server/internal/utils/pagination"
)

// BuyRequest represents a request to buy a injury solution.
type BuyRequest struct {
	SolutionID string `json:"solution_id" binding:"required,uuid"`
	Email      string `json:"email" binding:"omitempty,email"`
}

// PurchaseListResponse represents a page of purchases.
type PurchaseListResponse struct {
	Purchases  []*Purchase         `json:"purchases"`
	Pagination pagination.PageInfo `json:"pagination"`
}

// Handler handles HTTP requests for injury solution purchases.
type Handler struct {
	service  *Service
	payments *payment.Handler
}

// NewHandler creates a new injury solution handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, payments: payment.NewHandler(service.Payments())}
}

// RegisterRoutes registers purchase routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, requireAdmin gin.HandlerFunc) {
	purchases := r.Group("/injury-solutions/purchases")
	{
		purchases.POST("", h.Buy)
		purchases.GET("", h.List)
		purchases.GET("/:id", h.Get)
	}
	h.payments.RegisterRoutes(purchases, requireAdmin)
}

// Buy buys a injury solution.
//
//	@Summary		Buy an injury solution
//	@Tags			InjurySolution
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		BuyRequest	true	"Solution"
//	@Success		201		{object}	Purchase
//	@Failure		404		{object}	response.ErrorResponse
//	@Failure		409		{object}	response.ErrorResponse
//	@Router			/injury-solutions/purchases [post]
func (h *Handler) Buy(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	var req BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	email := req.Email
	if email == "" {
		email = middleware.GetEmail(c)
	}

	p, err := h.service.Buy(c.Request.Context(), userID, uuid.MustParse(req.SolutionID), email)
	if err != nil {
		payment.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// List returns the caller's purchases.
//
//	@Summary		List injury solution purchases
//	@Tags			InjurySolution
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	PurchaseListResponse
//	@Router			/injury-solutions/purchases [get]
func (h *Handler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	page := pagination.New()
	if err := c.ShouldBindQuery(page); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	items, total, err := h.service.List(c.Request.Context(), userID, page)
	if err != nil {
		payment.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, PurchaseListResponse{Purchases: items, Pagination: page.Info(total)})
}

// Get returns a purchase.
//
//	@Summary		Get injury solution purchase
//	@Tags			InjurySolution
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Purchase ID"
//	@Success		200	{object}	Purchase
//	@Router			/injury-solutions/purchases/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}

	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		payment.HandleError(c, err)
		return
	}
	if middleware.GetUserID(c) != p.OwnerID && !middleware.HasRole(c, middleware.RoleAdmin) {
		response.ErrorWithCode(c, http.StatusForbidden, "FORBIDDEN", "access denied")
		return
	}
	c.JSON(http.StatusOK, p)
}
