package responses

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/janhq/support-chat/internal/utils/platformerrors"
)

// HandleError writes err as a JSON error response.
func HandleError(c *gin.Context, err error) {
	logger := log.With().Str("path", c.Request.URL.Path).Logger()
	platformerrors.WriteError(c, err, logger)
}

// HandleValidationError writes a 400 with message.
func HandleValidationError(c *gin.Context, message string) {
	platformerrors.WriteValidationError(c, message)
}
