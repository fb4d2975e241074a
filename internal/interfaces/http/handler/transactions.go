package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sapflow/backend/internal/domain/sap"
)

// TransactionSource exposes the recorded posting history of one module
type TransactionSource interface {
	Name() string
	History(filter sap.TransactionStatus) []*sap.TransactionRecord
}

// TransactionHandler serves per-module posting history
type TransactionHandler struct {
	BaseHandler
	sources map[string]TransactionSource
}

// NewTransactionHandler creates a transaction handler over the given modules
func NewTransactionHandler(sources ...TransactionSource) *TransactionHandler {
	byName := make(map[string]TransactionSource, len(sources))
	for _, source := range sources {
		byName[source.Name()] = source
	}
	return &TransactionHandler{sources: byName}
}

// History godoc
// @Summary      List a module's recorded transactions
// @Tags         transactions
// @Produce      json
// @Param        module path string true "Module name (FI-AP, MM-PO, SD-SO)"
// @Param        status query string false "Filter by transaction status"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /transactions/{module} [get]
func (h *TransactionHandler) History(c *gin.Context) {
	source, ok := h.sources[c.Param("module")]
	if !ok {
		h.NotFound(c, "Unknown module")
		return
	}

	transactions := source.History(sap.TransactionStatus(c.Query("status")))
	h.Success(c, gin.H{
		"module":       source.Name(),
		"count":        len(transactions),
		"transactions": transactions,
	})
}
