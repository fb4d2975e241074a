package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sapflow/backend/internal/domain/shared"
	"github.com/sapflow/backend/internal/interfaces/http/dto"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse("BAD_REQUEST", message))
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, dto.NewErrorResponse("NOT_FOUND", message))
}

// HandleError maps domain errors to HTTP status codes. Anything not
// recognized is reported as an internal error without leaking detail.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	var validationErr *shared.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest,
			dto.NewValidationErrorResponse("Document validation failed", validationErr.Errors))
		return
	}

	var remoteErr *shared.RemoteDocumentError
	if errors.As(err, &remoteErr) {
		c.JSON(http.StatusUnprocessableEntity, dto.Response{
			Success: false,
			Error: &dto.ErrorInfo{
				Code:    "REMOTE_REJECTED",
				Message: "Remote system rejected the document",
				Details: remoteErr.Messages,
			},
		})
		return
	}

	switch {
	case errors.Is(err, shared.ErrDuplicateDocument):
		c.JSON(http.StatusConflict, dto.NewErrorResponse(shared.ErrDuplicateDocument.Code, err.Error()))
	case errors.Is(err, shared.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(shared.ErrNotFound.Code, err.Error()))
	case errors.Is(err, shared.ErrNotSupported):
		c.JSON(http.StatusMethodNotAllowed, dto.NewErrorResponse(shared.ErrNotSupported.Code, err.Error()))
	case errors.Is(err, shared.ErrUnknownTenant):
		c.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponse(shared.ErrUnknownTenant.Code, err.Error()))
	case errors.Is(err, shared.ErrCircuitOpen):
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(shared.ErrCircuitOpen.Code, err.Error()))
	case errors.Is(err, shared.ErrGatewayUnavailable):
		c.JSON(http.StatusBadGateway, dto.NewErrorResponse(shared.ErrGatewayUnavailable.Code, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError,
			dto.NewErrorResponse("INTERNAL_ERROR", "An unexpected error occurred"))
	}
}
