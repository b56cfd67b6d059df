package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	syncdomain "github.com/shopino/backend/internal/domain/sync"
	"github.com/shopino/backend/internal/interfaces/http/dto"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID set by the request id middleware,
// falling back to the inbound header.
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return ""
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// UnprocessableEntity sends a 422 unprocessable entity response
func (h *BaseHandler) UnprocessableEntity(c *gin.Context, message string) {
	h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleDomainError converts sync domain errors to HTTP responses
func (h *BaseHandler) HandleDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, syncdomain.ErrQueueItemNotFound),
		errors.Is(err, syncdomain.ErrMappingNotFound),
		errors.Is(err, syncdomain.ErrErrorLogNotFound):
		h.NotFound(c, err.Error())

	case errors.Is(err, syncdomain.ErrQueueInvalidType),
		errors.Is(err, syncdomain.ErrQueueInvalidOperation),
		errors.Is(err, syncdomain.ErrQueueInvalidEntity),
		errors.Is(err, syncdomain.ErrQueueEmptyPayload),
		errors.Is(err, syncdomain.ErrMappingInvalidID):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, err.Error())

	case errors.Is(err, syncdomain.ErrMappingRebind),
		errors.Is(err, syncdomain.ErrAlreadyResolved):
		h.Conflict(c, err.Error())

	case errors.Is(err, syncdomain.ErrQueueNotTerminal),
		errors.Is(err, syncdomain.ErrQueueAlreadyTerminal),
		errors.Is(err, syncdomain.ErrQueueNotProcessing):
		h.UnprocessableEntity(c, err.Error())

	default:
		h.InternalError(c, "An unexpected error occurred")
	}
}
