package handler

import (
	"github.com/gin-gonic/gin"

	appsd "github.com/sapflow/backend/internal/application/sd"
	"github.com/sapflow/backend/internal/domain/sd"
)

// SalesOrderHandler exposes sales order operations
type SalesOrderHandler struct {
	BaseHandler
	sales *appsd.SalesOrders
}

// NewSalesOrderHandler creates a sales order handler
func NewSalesOrderHandler(sales *appsd.SalesOrders) *SalesOrderHandler {
	return &SalesOrderHandler{sales: sales}
}

// Create godoc
// @Summary      Create a sales order
// @Tags         sales-orders
// @Accept       json
// @Produce      json
// @Param        request body sd.SalesOrder true "Sales order"
// @Success      201 {object} dto.Response{data=sapops.PostResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sales-orders [post]
func (h *SalesOrderHandler) Create(c *gin.Context) {
	var order sd.SalesOrder
	if err := c.ShouldBindJSON(&order); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.sales.Create(c.Request.Context(), order)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Get godoc
// @Summary      Read a sales order
// @Tags         sales-orders
// @Produce      json
// @Param        document path string true "Sales document number"
// @Success      200 {object} dto.Response{data=appsd.OrderDetail}
// @Router       /sales-orders/{document} [get]
func (h *SalesOrderHandler) Get(c *gin.Context) {
	detail, err := h.sales.Get(c.Request.Context(), c.Param("document"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, detail)
}

// Update godoc
// @Summary      Change header fields of a sales order
// @Tags         sales-orders
// @Accept       json
// @Produce      json
// @Param        document path string true "Sales document number"
// @Param        request body ChangeRequest true "Changes"
// @Success      200 {object} dto.Response{data=sapops.PostResult}
// @Router       /sales-orders/{document} [put]
func (h *SalesOrderHandler) Update(c *gin.Context) {
	var req ChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.sales.Update(c.Request.Context(), c.Param("document"), req.Changes)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
