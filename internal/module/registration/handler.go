package registration

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sportsclub/server/internal/module/payment"
	"github.com/sportsclub/server/internal/shared/response"
	"github.com/sportsclub/server/internal/utils/middleware"
	"github.com/sportsclub/server/internal/utils/pagination"
)

// Handler handles HTTP requests for race registrations.
type Handler struct {
	service  *Service
	payments *payment.Handler
}

// NewHandler creates a new registration handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:  service,
		payments: payment.NewHandler(service.Payments()),
	}
}

// RegisterRoutes registers registration routes. All routes require authentication.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, requireAdmin gin.HandlerFunc) {
	registrations := r.Group("/registrations")
	{
		registrations.POST("", h.Create)
		registrations.GET("", h.List)
		registrations.GET("/number/:number", h.GetByNumber)
		registrations.GET("/:id", h.Get)
	}
	h.payments.RegisterRoutes(registrations, requireAdmin)
}

var errorMappings = []response.ErrorMapping{
	{Err: ErrRegistrationNotFound, Status: http.StatusNotFound, Code: "REGISTRATION_NOT_FOUND"},
	{Err: ErrNumberUnavailable, Status: http.StatusServiceUnavailable, Code: "NUMBER_UNAVAILABLE"},
}

// Create registers the caller for a race.
//
//	@Summary		Register for a race
//	@Tags			Registration
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateRegistrationRequest	true	"Registration details"
//	@Success		201		{object}	Registration
//	@Failure		400		{object}	response.ErrorResponse
//	@Failure		404		{object}	response.ErrorResponse
//	@Failure		409		{object}	response.ErrorResponse
//	@Router			/registrations [post]
func (h *Handler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	var req CreateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	email := req.Email
	if email == "" {
		email = middleware.GetEmail(c)
	}

	reg, err := h.service.Create(c.Request.Context(), userID, CreateInput{
		RaceID:    uuid.MustParse(req.RaceID),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     email,
	})
	if err != nil {
		payment.HandleError(c, err, errorMappings...)
		return
	}
	c.JSON(http.StatusCreated, reg)
}

// List returns the caller's registrations.
//
//	@Summary		List registrations
//	@Tags			Registration
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page		query		int	false	"Page number"	default(1)
//	@Param			page_size	query		int	false	"Page size"		default(20)
//	@Success		200			{object}	RegistrationListResponse
//	@Router			/registrations [get]
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

	regs, total, err := h.service.List(c.Request.Context(), userID, page)
	if err != nil {
		payment.HandleError(c, err, errorMappings...)
		return
	}
	c.JSON(http.StatusOK, RegistrationListResponse{
		Registrations: regs,
		Pagination:    page.Info(total),
	})
}

// Get returns a registration.
//
//	@Summary		Get registration
//	@Tags			Registration
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Registration ID"
//	@Success		200	{object}	Registration
//	@Failure		404	{object}	response.ErrorResponse
//	@Router			/registrations/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}

	reg, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		payment.HandleError(c, err, errorMappings...)
		return
	}
	h.respond(c, reg)
}

// GetByNumber returns a registration by registration number.
//
//	@Summary		Get registration by number
//	@Tags			Registration
//	@Produce		json
//	@Security		BearerAuth
//	@Param			number	path		string	true	"Registration number, e.g. MPR0123456789"
//	@Success		200		{object}	Registration
//	@Failure		404		{object}	response.ErrorResponse
//	@Router			/registrations/number/{number} [get]
func (h *Handler) GetByNumber(c *gin.Context) {
	reg, err := h.service.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		payment.HandleError(c, err, errorMappings...)
		return
	}
	h.respond(c, reg)
}

func (h *Handler) respond(c *gin.Context, reg *Registration) {
	if middleware.GetUserID(c) != reg.OwnerID && !middleware.HasRole(c, middleware.RoleAdmin) {
		response.ErrorWithCode(c, http.StatusForbidden, "FORBIDDEN", "access denied")
		return
	}
	c.JSON(http.StatusOK, reg)
}
