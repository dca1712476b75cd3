package productorder

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sportsclub/server/internal/module/payment"
	"github.com/sportsclub/server/internal/shared/response"
	"github.com/sportsclub/server/internal/utils/middleware"
	"github.com/sportsclub/server/internal/utils/pagination"
)

// Handler handles HTTP requests for product orders.
type Handler struct {
	service  *Service
	payments *payment.Handler
}

// NewHandler creates a new product order handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:  service,
		payments: payment.NewHandler(service.Payments()),
	}
}

// RegisterRoutes registers product order routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, requireAdmin gin.HandlerFunc) {
	orders := r.Group("/orders")
	{
		orders.POST("", h.Place)
		orders.GET("", h.List)
		orders.GET("/:id", h.Get)
		orders.PATCH("/:id/order-status", requireAdmin, h.UpdateOrderStatus)
	}
	h.payments.RegisterRoutes(orders, requireAdmin)
}

var errorMappings = []response.ErrorMapping{
	{Err: ErrOrderNotFound, Status: http.StatusNotFound, Code: "ORDER_NOT_FOUND"},
	{Err: ErrEmptyOrder, Status: http.StatusBadRequest, Code: "EMPTY_ORDER"},
	{Err: ErrInvalidQuantity, Status: http.StatusBadRequest, Code: "INVALID_QUANTITY"},
	{Err: ErrOutOfStock, Status: http.StatusConflict, Code: "OUT_OF_STOCK"},
	{Err: ErrInvalidDeliveryFee, Status: http.StatusBadRequest, Code: "INVALID_DELIVERY_FEE"},
	{Err: ErrAddressRequired, Status: http.StatusBadRequest, Code: "ADDRESS_REQUIRED"},
	{Err: ErrInvalidTransition, Status: http.StatusConflict, Code: "INVALID_TRANSITION"},
}

// Place places a shop order.
//
//	@Summary		Place an order
//	@Tags			ProductOrder
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateOrderRequest	true	"Order"
//	@Success		201		{object}	Order
//	@Failure		400		{object}	response.ErrorResponse
//	@Failure		404		{object}	response.ErrorResponse
//	@Failure		409		{object}	response.ErrorResponse
//	@Router			/orders [post]
func (h *Handler) Place(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	in := PlaceInput{
		CheckoutRef:     req.CheckoutRef,
		CustomerName:    req.CustomerName,
		Email:           req.Email,
		NeedsDelivery:   req.NeedsDelivery,
		DeliveryFee:     req.DeliveryFee,
		ShippingAddress: req.ShippingAddress,
		PaymentOption:   PaymentOption(req.PaymentOption),
	}
	if in.Email == "" {
		in.Email = middleware.GetEmail(c)
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, ItemInput{
			ProductID: uuid.MustParse(item.ProductID),
			Quantity:  item.Quantity,
			Size:      item.Size,
			Color:     item.Color,
		})
	}

	o, err := h.service.Place(c.Request.Context(), userID, in)
	if err != nil {
		payment.HandleError(c, err, errorMappings...)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// List returns the caller's orders.
//
//	@Summary		List orders
//	@Tags			ProductOrder
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page		query		int	false	"Page number"	default(1)
//	@Param			page_size	query		int	false	"Page size"		default(20)
//	@Success		200			{object}	OrderListResponse
//	@Router			/orders [get]
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

	orders, total, err := h.service.List(c.Request.Context(), userID, page)
	if err != nil {
		payment.HandleError(c, err, errorMappings...)
		return
	}
	c.JSON(http.StatusOK, OrderListResponse{Orders: orders, Pagination: page.Info(total)})
}

// Get returns an order.
//
//	@Summary		Get order
//	@Tags			ProductOrder
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Order ID"
//	@Success		200	{object}	Order
//	@Failure		404	{object}	response.ErrorResponse
//	@Router			/orders/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}

	o, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		payment.HandleError(c, err, errorMappings...)
		return
	}
	if middleware.GetUserID(c) != o.OwnerID && !middleware.HasRole(c, middleware.RoleAdmin) {
		response.ErrorWithCode(c, http.StatusForbidden, "FORBIDDEN", "access denied")
		return
	}
	c.JSON(http.StatusOK, o)
}

// UpdateOrderStatus moves an order along its fulfilment flow.
//
//	@Summary		Update order status (admin)
//	@Tags			ProductOrder
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string						true	"Order ID"
//	@Param			request	body		UpdateOrderStatusRequest	true	"Status"
//	@Success		200		{object}	Order
//	@Failure		409		{object}	response.ErrorResponse
//	@Router			/orders/{id}/order-status [patch]
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	o, err := h.service.UpdateOrderStatus(c.Request.Context(), id, OrderStatus(req.OrderStatus))
	if err != nil {
		payment.HandleError(c, err, errorMappings...)
		return
	}
	c.JSON(http.StatusOK, o)
}
