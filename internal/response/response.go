package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "clipforge/pkg/errors"
)

// Response is the standard API response structure
type Response struct {
	Error  int32  `json:"error"`            // Error code (0 = success)
	Msg    string `json:"msg"`              // Human-readable message
	Detail string `json:"detail,omitempty"` // Additional error details
	Data   any    `json:"data"`             // Response payload
}

// Success returns a success response with data
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Error: 0,
		Msg:   "Success",
		Data:  data,
	})
}

// FromError converts an error to a Response
// If the error is an AppError, it extracts code and message
// Otherwise, it uses CodeUnknown
func FromError(err error) Response {
	if err == nil {
		return Response{Msg: "Success"}
	}

	var detail string
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		detail = appErr.Detail
	}

	return Response{
		Error:  int32(apperrors.GetCode(err)),
		Msg:    apperrors.GetMessage(err),
		Detail: detail,
	}
}

// ErrorResponse sends an error response from an error. Missing entities get
// 404, invalid requests 400 and state conflicts 409; everything else is 500.
func ErrorResponse(c *gin.Context, err error) {
	c.JSON(httpStatus(err), FromError(err))
}

func httpStatus(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.CodeNotFound, apperrors.CodeVideoNotFound, apperrors.CodeClipNotFound, apperrors.CodeJobNotFound:
		return http.StatusNotFound
	case apperrors.CodeInvalidParams:
		return http.StatusBadRequest
	case apperrors.CodeInvalidState, apperrors.CodeInvalidTransition:
		return http.StatusConflict
	case apperrors.CodeEnqueueFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
