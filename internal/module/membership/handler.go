package membership

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sportsclub/server/internal/module/payment"
	"github.com/sportsclub/server/internal/shared/response"
	"github.com/sportsclub/server/internal/utils/middleware"
	"github.com/sportsclub/server/internal/utils/pagination"
)

// Handler handles HTTP requests for memberships.
type Handler struct {
	service  *Service
	payments *payment.Handler
}

// NewHandler creates a new membership handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:  service,
		payments: payment.NewHandler(service.Payments()),
	}
}

// RegisterRoutes registers membership routes. requireAdmin guards the review routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, requireAdmin gin.HandlerFunc) {
	memberships := r.Group("/memberships")
	{
		memberships.POST("", h.Apply)
		memberships.GET("", h.List)
		memberships.GET("/me", h.Current)
		memberships.GET("/:id", h.Get)
		memberships.POST("/:id/approve", requireAdmin, h.Approve)
		memberships.POST("/:id/reject", requireAdmin, h.Reject)
		memberships.POST("/:id/graduate", requireAdmin, h.Graduate)
	}
	h.payments.RegisterRoutes(memberships, requireAdmin)
}

var errorMappings = []response.ErrorMapping{
	{Err: ErrMembershipNotFound, Status: http.StatusNotFound, Code: "MEMBERSHIP_NOT_FOUND"},
	{Err: ErrInvalidType, Status: http.StatusBadRequest, Code: "INVALID_MEMBERSHIP_TYPE"},
	{Err: ErrFeeNotConfigured, Status: http.StatusUnprocessableEntity, Code: "FEE_NOT_CONFIGURED"},
	{Err: ErrInvalidTransition, Status: http.StatusConflict, Code: "INVALID_MEMBERSHIP_TRANSITION"},
}

// Apply applies for a membership.
//
//	@Summary		Apply for membership
//	@Tags			Membership
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateMembershipRequest	true	"Membership type"
//	@Success		201		{object}	Membership
//	@Failure		400		{object}	response.ErrorResponse
//	@Failure		409		{object}	response.ErrorResponse
//	@Router			/memberships [post]
func (h *Handler) Apply(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	var req CreateMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	email := req.Email
	if email == "" {
		email = middleware.GetEmail(c)
	}

	m, err := h.service.Apply(c.Request.Context(), userID, Type(req.MembershipType), email)
	if err != nil {
		payment.HandleError(c, err, errorMappings...)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// List returns the caller's memberships.
//
//	@Summary		List memberships
//	@Tags			Membership
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page		query		int	false	"Page number"	default(1)
//	@Param			page_size	query		int	false	"Page size"		default(20)
//	@Success		200			{object}	MembershipListResponse
//	@Router			/memberships [get]
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
		payment.HandleError(c, err, errorMappings...)
		return
	}
	c.JSON(http.StatusOK, MembershipListResponse{Memberships: items, Pagination: page.Info(total)})
}

// Current returns the caller's active membership.
//
//	@Summary		Get current membership
//	@Tags			Membership
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	Membership
//	@Failure		404	{object}	response.ErrorResponse
//	@Router			/memberships/me [get]
func (h *Handler) Current(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	m, err := h.service.Current(c.Request.Context(), userID)
	if err != nil {
		payment.HandleError(c, err, errorMappings...)
		return
	}
	c.JSON(http.StatusOK, m)
}

// Get returns a membership.
//
//	@Summary		Get membership
//	@Tags			Membership
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Membership ID"
//	@Success		200	{object}	Membership
//	@Router			/memberships/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	m, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		payment.HandleError(c, err, errorMappings...)
		return
	}
	if middleware.GetUserID(c) != m.OwnerID && !middleware.HasRole(c, middleware.RoleAdmin) {
		response.ErrorWithCode(c, http.StatusForbidden, "FORBIDDEN", "access denied")
		return
	}
	c.JSON(http.StatusOK, m)
}

// Approve activates a membership.
//
//	@Summary		Approve membership (admin)
//	@Tags			Membership
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Membership ID"
//	@Success		200	{object}	Membership
//	@Failure		409	{object}	response.ErrorResponse
//	@Router			/memberships/{id}/approve [post]
func (h *Handler) Approve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	m, err := h.service.Approve(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		payment.HandleError(c, err, errorMappings...)
		return
	}
	c.JSON(http.StatusOK, m)
}

// Reject rejects a membership.
//
//	@Summary		Reject membership (admin)
//	@Tags			Membership
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string					true	"Membership ID"
//	@Param			request	body		RejectMembershipRequest	true	"Remarks"
//	@Success		200		{object}	Membership
//	@Router			/memberships/{id}/reject [post]
func (h *Handler) Reject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req RejectMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	m, err := h.service.Reject(c.Request.Context(), id, req.Remarks)
	if err != nil {
		payment.HandleError(c, err, errorMappings...)
		return
	}
	c.JSON(http.StatusOK, m)
}

// Graduate marks a membership as graduated.
//
//	@Summary		Graduate membership (admin)
//	@Tags			Membership
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string						true	"Membership ID"
//	@Param			request	body		GraduateMembershipRequest	false	"Graduation date"
//	@Success		200		{object}	Membership
//	@Router			/memberships/{id}/graduate [post]
func (h *Handler) Graduate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req GraduateMembershipRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	m, err := h.service.Graduate(c.Request.Context(), id, req.GraduationDate)
	if err != nil {
		payment.HandleError(c, err, errorMappings...)
		return
	}
	c.JSON(http.StatusOK, m)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
