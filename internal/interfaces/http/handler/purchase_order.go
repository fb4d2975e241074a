package handler

import (
	"github.com/gin-gonic/gin"

	appmm "github.com/sapflow/backend/internal/application/mm"
	"github.com/sapflow/backend/internal/domain/mm"
	"github.com/sapflow/backend/internal/domain/sap"
)

// PurchaseOrderHandler exposes purchasing operations
type PurchaseOrderHandler struct {
	BaseHandler
	purchasing *appmm.PurchaseOrders
}

// NewPurchaseOrderHandler creates a purchase order handler
func NewPurchaseOrderHandler(purchasing *appmm.PurchaseOrders) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{purchasing: purchasing}
}

// ChangeRequest carries header fields to change on an existing order
type ChangeRequest struct {
	Changes sap.Params `json:"changes" binding:"required"`
}

// GoodsReceiptRequest posts a goods receipt against an order
type GoodsReceiptRequest struct {
	Items []mm.GoodsReceiptItem `json:"items" binding:"required"`
}

// Create godoc
// @Summary      Create a purchase order
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Param        request body mm.PurchaseOrder true "Purchase order"
// @Success      201 {object} dto.Response{data=sapops.PostResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /purchase-orders [post]
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var order mm.PurchaseOrder
	if err := c.ShouldBindJSON(&order); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.purchasing.Create(c.Request.Context(), order)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Get godoc
// @Summary      Read a purchase order
// @Tags         purchase-orders
// @Produce      json
// @Param        po path string true "PO number"
// @Success      200 {object} dto.Response{data=appmm.OrderDetail}
// @Router       /purchase-orders/{po} [get]
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	detail, err := h.purchasing.Get(c.Request.Context(), c.Param("po"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, detail)
}

// Update godoc
// @Summary      Change header fields of a purchase order
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Param        po path string true "PO number"
// @Param        request body ChangeRequest true "Changes"
// @Success      200 {object} dto.Response{data=sapops.PostResult}
// @Router       /purchase-orders/{po} [put]
func (h *PurchaseOrderHandler) Update(c *gin.Context) {
	var req ChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.purchasing.Update(c.Request.Context(), c.Param("po"), req.Changes)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GoodsReceipt godoc
// @Summary      Post a goods receipt against a purchase order
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Param        po path string true "PO number"
// @Param        request body GoodsReceiptRequest true "Receipt items"
// @Success      201 {object} dto.Response{data=sapops.PostResult}
// @Router       /purchase-orders/{po}/goods-receipt [post]
func (h *PurchaseOrderHandler) GoodsReceipt(c *gin.Context) {
	var req GoodsReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.purchasing.CreateGoodsReceipt(c.Request.Context(), c.Param("po"), req.Items)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}
