package middlewares

import (
	"math"
	"net"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/janhq/support-chat/internal/domain/admission"
	"github.com/janhq/support-chat/internal/utils/platformerrors"
)

// GlobalRateLimit limits every request per client address.
func GlobalRateLimit(limiter admission.Limiter, rule admission.Rule) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := limiter.Allow(c.Request.Context(), rule, clientIP(c.ClientIP()))
		if !decision.Allowed {
			reject(c, rule, decision)
			return
		}
		c.Next()
	}
}

// ChatRateLimit limits chat requests per client address and session. The session comes from
// the sessionId path parameter or JSON body field; the body stays readable for handlers
// through ShouldBindBodyWith.
func ChatRateLimit(limiter admission.Limiter, rule admission.Rule) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := admission.ChatIdentity(clientIP(c.ClientIP()), sessionIDFrom(c))
		decision := limiter.Allow(c.Request.Context(), rule, identity)
		if !decision.Allowed {
			reject(c, rule, decision)
			return
		}
		c.Next()
	}
}

func sessionIDFrom(c *gin.Context) string {
	if sessionID := c.Param("sessionId"); sessionID != "" {
		return sessionID
	}
	if c.Request.Method == "GET" || c.Request.Body == nil {
		return ""
	}

	var body struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
		return ""
	}
	return body.SessionID
}

func reject(c *gin.Context, rule admission.Rule, decision admission.Decision) {
	retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	platformerrors.WriteRateLimited(c, rule.Message)
}

// Normalize IPv6-mapped IPv4 etc.
func clientIP(raw string) string {
	if raw == "" {
		return "unknown"
	}
	if ip := net.ParseIP(raw); ip != nil {
		return ip.String()
	}
	return raw
}
