package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/service-ns/paycycle/internal/callerctx"
)

// CallerIdentityMiddleware resolves who is calling from the
// X-Caller-Login / X-Caller-Admin headers, falling back to the login /
// is_admin query params kept for older clients.
func CallerIdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		login := strings.TrimSpace(c.GetHeader("X-Caller-Login"))
		if login == "" {
			login = strings.TrimSpace(c.Query("login"))
		}

		admin := parseBool(c.GetHeader("X-Caller-Admin"))
		if !admin {
			admin = parseBool(c.Query("is_admin"))
		}

		if login != "" {
			ctx := callerctx.WithCaller(c.Request.Context(), callerctx.Caller{
				Login: login,
				Admin: admin,
			})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func parseBool(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false
	}
	return parsed
}

func callerFrom(c *gin.Context) (callerctx.Caller, bool) {
	return callerctx.FromContext(c.Request.Context())
}
