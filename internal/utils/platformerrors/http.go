package platformerrors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// GenericMessage is returned to clients for failures whose detail must stay internal.
const GenericMessage = "Something went wrong. Please try again."

// HTTPErrorResponse represents the standard error response format.
type HTTPErrorResponse struct {
	Error     string `json:"error"`
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
}

// WriteHTTPError writes a PlatformError as an HTTP response.
// Internal and database errors are rendered with GenericMessage.
func WriteHTTPError(c *gin.Context, err *PlatformError, log zerolog.Logger) {
	if err == nil {
		WriteInternalError(c)
		return
	}

	LogError(log, err)

	message := err.Message
	switch err.Type {
	case ErrorTypeInternal, ErrorTypeDatabaseError:
		message = GenericMessage
	}

	requestID := err.RequestID
	if requestID == "" {
		requestID = requestIDFromGin(c)
	}

	c.AbortWithStatusJSON(ErrorTypeToHTTPStatus(err.Type), HTTPErrorResponse{
		Error:     message,
		Type:      errorTypeToString(err.Type),
		RequestID: requestID,
	})
}

// WriteError writes a generic error as an HTTP response.
// If the error is a PlatformError, it will be handled appropriately.
// Otherwise, it will be treated as an internal error.
func WriteError(c *gin.Context, err error, log zerolog.Logger) {
	if platformErr := GetPlatformError(err); platformErr != nil {
		WriteHTTPError(c, platformErr, log)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("request_id", requestIDFromGin(c)).Msg("unhandled error")
	}
	WriteInternalError(c)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(c *gin.Context, message string) {
	write(c, http.StatusNotFound, message, "not_found")
}

// WriteValidationError writes a 400 Bad Request response.
func WriteValidationError(c *gin.Context, message string) {
	write(c, http.StatusBadRequest, message, "validation_error")
}

// WriteRateLimited writes a 429 Too Many Requests response.
func WriteRateLimited(c *gin.Context, message string) {
	write(c, http.StatusTooManyRequests, message, "rate_limit")
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(c *gin.Context, message string) {
	write(c, http.StatusUnauthorized, message, "unauthorized")
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(c *gin.Context) {
	write(c, http.StatusInternalServerError, GenericMessage, "internal_error")
}

func write(c *gin.Context, status int, message, errorType string) {
	c.AbortWithStatusJSON(status, HTTPErrorResponse{
		Error:     message,
		Type:      errorType,
		RequestID: requestIDFromGin(c),
	})
}

func requestIDFromGin(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return ""
	}
	return RequestIDFromContext(c.Request.Context())
}

// errorTypeToString converts an ErrorType to the snake_case type used in API responses.
func errorTypeToString(t ErrorType) string {
	switch t {
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeValidation:
		return "validation_error"
	case ErrorTypeRateLimited:
		return "rate_limit"
	case ErrorTypeGeneration:
		return "llm_error"
	case ErrorTypeUnauthorized:
		return "unauthorized"
	default:
		return "internal_error"
	}
}
