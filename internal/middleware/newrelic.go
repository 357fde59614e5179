package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicUser tags the current APM transaction with the authenticated user.
// It is a no-op when New Relic is disabled or the request is anonymous.
func NewRelicUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := Claims(c); ok {
			if txn := nrgin.Transaction(c); txn != nil {
				txn.AddAttribute("user_id", claims.UserID)
				txn.AddAttribute("is_admin", claims.IsAdmin)
			}
		}
		c.Next()
	}
}
