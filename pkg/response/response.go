package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tsheet/timesheet/internal/faults"
	"gorm.io/gorm"
)

// CodeProfileMissing distinguishes the provisioning gap from other 403s.
const CodeProfileMissing = 4031

// Response is the unified API response format.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AppError represents a structured application error with HTTP status and error code.
type AppError struct {
	HTTPStatus int
	Code       int
	Message    string
}

func (e *AppError) Error() string {
	return e.Message
}

func NewBadRequest(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusBadRequest, Code: 400, Message: msg}
}

func NewUnauthorized(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusUnauthorized, Code: 401, Message: msg}
}

func NewForbidden(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusForbidden, Code: 403, Message: msg}
}

func NewNotFound(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusNotFound, Code: 404, Message: msg}
}

func NewConflict(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusConflict, Code: 409, Message: msg}
}

func NewServerError(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusInternalServerError, Code: 500, Message: msg}
}

// FromError converts any error into an AppError using the fault taxonomy.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var f *faults.Fault
	if errors.As(err, &f) {
		switch f.Kind {
		case faults.KindValidation:
			return NewBadRequest(f.Message)
		case faults.KindProfileMissing:
			return &AppError{HTTPStatus: http.StatusForbidden, Code: CodeProfileMissing, Message: f.Message}
		case faults.KindAuthSession:
			return &AppError{HTTPStatus: http.StatusServiceUnavailable, Code: 503, Message: f.Message}
		case faults.KindQuery:
			return NewServerError(f.Message)
		}
	}

	switch {
	case errors.Is(err, faults.ErrForbidden):
		return NewForbidden(err.Error())
	case errors.Is(err, faults.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return NewNotFound(err.Error())
	}
	return NewServerError(err.Error())
}

// Success sends a 200 OK response with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "ok",
		Data:    data,
	})
}

// Created sends a 201 Created response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "created",
		Data:    data,
	})
}

// Error writes err using FromError and records it on the gin context.
func Error(c *gin.Context, err error) {
	appErr := FromError(err)
	_ = c.Error(err)
	c.JSON(appErr.HTTPStatus, Response{
		Code:    appErr.Code,
		Message: appErr.Message,
	})
}

// Abort is Error for middleware: it also stops the handler chain.
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Code: 400, Message: msg})
}

func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, Response{Code: 401, Message: msg})
}

func Forbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, Response{Code: 403, Message: msg})
}

func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, Response{Code: 404, Message: msg})
}

func TooManyRequests(c *gin.Context, msg string) {
	c.JSON(http.StatusTooManyRequests, Response{Code: 429, Message: msg})
}

func ServerError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, Response{Code: 500, Message: msg})
}
