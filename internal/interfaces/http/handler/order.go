package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	apporder "github.com/salepoint/backend/internal/application/order"
	"github.com/salepoint/backend/internal/interfaces/http/dto"
)

// OrderHandler exposes the order lifecycle over HTTP
type OrderHandler struct {
	BaseHandler
	orders *apporder.Service
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders *apporder.Service) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// RegisterRoutes registers order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	{
		orders.GET("", h.List)
		orders.GET("/:id", h.Get)
		orders.POST("/bills", h.CreateBill)
		orders.POST("/pre-bills", h.CreatePreBill)
		orders.PUT("/:id", h.Edit)
		orders.POST("/:id/payments", h.RegisterPayment)
		orders.POST("/:id/transform", h.TransformToBill)
		orders.POST("/:id/cancel", h.Cancel)
		orders.POST("/:id/refund", h.Refund)
		orders.POST("/overdue-sweep", h.MarkOverdue)
	}
}

// List pages through the orders of the business
func (h *OrderHandler) List(c *gin.Context) {
	businessID, _, ok := scope(c)
	if !ok {
		h.Unauthorized(c, "Missing authentication")
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.Normalize()

	orders, total, err := h.orders.ListOrders(c.Request.Context(), businessID, toFilter(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, orders, total, req.Page, req.PageSize)
}

// Get returns one order with all its lines and payments
func (h *OrderHandler) Get(c *gin.Context) {
	businessID, _, ok := scope(c)
	if !ok {
		h.Unauthorized(c, "Missing authentication")
		return
	}
	orderID, ok := bindID(c)
	if !ok {
		h.BadRequest(c, "Invalid order id")
		return
	}

	resp, err := h.orders.GetOrder(c.Request.Context(), businessID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CreateBill creates and immediately bills an order, moving stock
func (h *OrderHandler) CreateBill(c *gin.Context) {
	businessID, userID, ok := scope(c)
	if !ok {
		h.Unauthorized(c, "Missing authentication")
		return
	}

	var req apporder.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.orders.CreateBill(c.Request.Context(), businessID, userID, &req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// CreatePreBill creates an order with no payment obligation and no stock movement
func (h *OrderHandler) CreatePreBill(c *gin.Context) {
	businessID, userID, ok := scope(c)
	if !ok {
		h.Unauthorized(c, "Missing authentication")
		return
	}

	var req apporder.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.orders.CreatePreBill(c.Request.Context(), businessID, userID, &req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Edit adds and removes line items on an open order
func (h *OrderHandler) Edit(c *gin.Context) {
	businessID, userID, ok := scope(c)
	if !ok {
		h.Unauthorized(c, "Missing authentication")
		return
	}
	orderID, ok := bindID(c)
	if !ok {
		h.BadRequest(c, "Invalid order id")
		return
	}

	var req apporder.EditOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.orders.EditOrder(c.Request.Context(), businessID, userID, orderID, &req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RegisterPayment settles (or partially pays) an order
func (h *OrderHandler) RegisterPayment(c *gin.Context) {
	businessID, userID, ok := scope(c)
	if !ok {
		h.Unauthorized(c, "Missing authentication")
		return
	}
	orderID, ok := bindID(c)
	if !ok {
		h.BadRequest(c, "Invalid order id")
		return
	}

	var req apporder.RegisterPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.orders.RegisterPayment(c.Request.Context(), businessID, userID, orderID, &req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// TransformToBill converts a pre-bill into a bill, moving stock
func (h *OrderHandler) TransformToBill(c *gin.Context) {
	businessID, userID, ok := scope(c)
	if !ok {
		h.Unauthorized(c, "Missing authentication")
		return
	}
	orderID, ok := bindID(c)
	if !ok {
		h.BadRequest(c, "Invalid order id")
		return
	}

	var req apporder.TransformToBillRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	resp, err := h.orders.TransformPreBillToBill(c.Request.Context(), businessID, userID, orderID, &req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel voids an open (or same-cycle billed) order, restoring stock
func (h *OrderHandler) Cancel(c *gin.Context) {
	businessID, userID, ok := scope(c)
	if !ok {
		h.Unauthorized(c, "Missing authentication")
		return
	}
	orderID, ok := bindID(c)
	if !ok {
		h.BadRequest(c, "Invalid order id")
		return
	}

	var req apporder.CancelOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	resp, err := h.orders.CancelOrder(c.Request.Context(), businessID, userID, orderID, &req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Refund reverses a billed order with a compensating ledger entry
func (h *OrderHandler) Refund(c *gin.Context) {
	businessID, userID, ok := scope(c)
	if !ok {
		h.Unauthorized(c, "Missing authentication")
		return
	}
	orderID, ok := bindID(c)
	if !ok {
		h.BadRequest(c, "Invalid order id")
		return
	}

	resp, err := h.orders.RefundOrder(c.Request.Context(), businessID, userID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// MarkOverdueResponse reports how many orders a sweep marked
type MarkOverdueResponse struct {
	Marked int `json:"marked"`
}

// MarkOverdue flags payment-pending orders whose deadline passed
func (h *OrderHandler) MarkOverdue(c *gin.Context) {
	businessID, _, ok := scope(c)
	if !ok {
		h.Unauthorized(c, "Missing authentication")
		return
	}

	marked, err := h.orders.MarkOverdueOrders(c.Request.Context(), businessID, time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MarkOverdueResponse{Marked: marked})
}
