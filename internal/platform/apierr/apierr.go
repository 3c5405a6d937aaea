package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"LIMS-backend/internal/platform/logging"
)

// ===== Error model =====
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeTooManyRequests Code = "TOO_MANY_REQUESTS"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func ErrInvalid(msg string) *APIError      { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError     { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError     { return &APIError{Code: CodeConflict, Message: msg} }
func ErrUnauthorized(msg string) *APIError { return &APIError{Code: CodeUnauthorized, Message: msg} }
func ErrForbidden(msg string) *APIError    { return &APIError{Code: CodeForbidden, Message: msg} }
func ErrInternal(msg string) *APIError     { return &APIError{Code: CodeInternal, Message: msg} }

// Invalidf / Conflictf are the formatted variants used by validators.
func Invalidf(format string, args ...any) *APIError  { return ErrInvalid(fmt.Sprintf(format, args...)) }
func Conflictf(format string, args ...any) *APIError { return ErrConflict(fmt.Sprintf(format, args...)) }

// CodeOf returns the code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var api *APIError
	if errors.As(err, &api) {
		return api.Code
	}
	return CodeInternal
}

func Is(err error, code Code) bool { return CodeOf(err) == code }

func ToHTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ===== response envelope =====

type errDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func Body(code Code, msg string) errDTO {
	var e errDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

// BodyFrom hides internal error text from clients.
func BodyFrom(err error) errDTO {
	var api *APIError
	if errors.As(err, &api) {
		return Body(api.Code, api.Message)
	}
	return Body(CodeInternal, "internal error")
}

// Respond writes err with the status matching its code. Non-API errors are logged.
func Respond(c *gin.Context, err error) {
	status := ToHTTPStatus(err)
	if status == http.StatusInternalServerError {
		logging.Log.WithFields(logrus.Fields{"method": c.Request.Method, "path": c.FullPath()}).WithError(err).Error("request failed")
	}
	c.JSON(status, BodyFrom(err))
}

// BadJSON is the shared response for bind failures.
func BadJSON(c *gin.Context, err error) {
	msg := "invalid json"
	if err != nil {
		msg = "invalid json: " + err.Error()
	}
	c.JSON(http.StatusBadRequest, Body(CodeInvalidArgument, msg))
}
