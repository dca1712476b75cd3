package coursebooking

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sportsclub/server/internal/module/payment"
	"github.com/sportsclub/server/internal/shared/response"
	"github.com/sportsclub/server/internal/utils/middleware"
	"github.com/sportsclub/server/internal/utils/pagination"
)

// Handler handles HTTP requests for course bookings.
type Handler struct {
	service  *Service
	payments *payment.Handler
}

// NewHandler creates a new course booking handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:  service,
		payments: payment.NewHandler(service.Payments()),
	}
}

// RegisterRoutes registers course booking routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, requireAdmin gin.HandlerFunc) {
	bookings := r.Group("/course-bookings")
	{
		bookings.POST("", h.Book)
		bookings.GET("", h.List)
		bookings.GET("/:id", h.Get)
		bookings.PATCH("/:id/attendance", requireAdmin, h.SetAttendance)
	}
	h.payments.RegisterRoutes(bookings, requireAdmin)
}

var errorMappings = []response.ErrorMapping{
	{Err: ErrBookingNotFound, Status: http.StatusNotFound, Code: "BOOKING_NOT_FOUND"},
	{Err: ErrInvalidAttendance, Status: http.StatusBadRequest, Code: "INVALID_ATTENDANCE"},
}

// Book books a coaching course.
//
//	@Summary		Book a coaching course
//	@Tags			CourseBooking
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateBookingRequest	true	"Course"
//	@Success		201		{object}	Booking
//	@Failure		404		{object}	response.ErrorResponse
//	@Failure		409		{object}	response.ErrorResponse
//	@Router			/course-bookings [post]
func (h *Handler) Book(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	email := req.Email
	if email == "" {
		email = middleware.GetEmail(c)
	}

	b, err := h.service.Book(c.Request.Context(), userID, uuid.MustParse(req.CourseID), email)
	if err != nil {
		payment.HandleError(c, err, errorMappings...)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// List returns the caller's course bookings.
//
//	@Summary		List course bookings
//	@Tags			CourseBooking
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page		query		int	false	"Page number"	default(1)
//	@Param			page_size	query		int	false	"Page size"		default(20)
//	@Success		200			{object}	BookingListResponse
//	@Router			/course-bookings [get]
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
	c.JSON(http.StatusOK, BookingListResponse{Bookings: items, Pagination: page.Info(total)})
}

// Get returns a course booking.
//
//	@Summary		Get course booking
//	@Tags			CourseBooking
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Booking ID"
//	@Success		200	{object}	Booking
//	@Router			/course-bookings/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}

	b, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		payment.HandleError(c, err, errorMappings...)
		return
	}
	if middleware.GetUserID(c) != b.OwnerID && !middleware.HasRole(c, middleware.RoleAdmin) {
		response.ErrorWithCode(c, http.StatusForbidden, "FORBIDDEN", "access denied")
		return
	}
	c.JSON(http.StatusOK, b)
}

// SetAttendance records attendance of a booked course.
//
//	@Summary		Update attendance (admin)
//	@Tags			CourseBooking
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string					true	"Booking ID"
//	@Param			request	body		UpdateAttendanceRequest	true	"Attendance"
//	@Success		200		{object}	Booking
//	@Router			/course-bookings/{id}/attendance [patch]
func (h *Handler) SetAttendance(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}

	var req UpdateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	b, err := h.service.SetAttendance(c.Request.Context(), id, req.AttendanceStatus)
	if err != nil {
		payment.HandleError(c, err, errorMappings...)
		return
	}
	c.JSON(http.StatusOK, b)
}
