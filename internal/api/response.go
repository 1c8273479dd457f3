package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the standard envelope for every API response.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// SuccessResponse sends a 200 response.
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, &Response{Success: true, Data: data})
}

// ErrorResponse sends an error response with the given status code.
func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, &Response{Success: false, Message: message})
}

// BadRequestError sends a 400 error.
func BadRequestError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, message)
}

// NotFoundError sends a 404 error.
func NotFoundError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusNotFound, message)
}

// UnauthorizedError sends a 401 error.
func UnauthorizedError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusUnauthorized, message)
}

// PayloadTooLargeError sends a 413 error.
func PayloadTooLargeError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusRequestEntityTooLarge, message)
}

// InternalError sends a 500 error.
func InternalError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusInternalServerError, message)
}
