// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"name-smart-go/pkg/log"
	"name-smart-go/pkg/token"
)

// SessionIDKey 是会话标识在 gin.Context 中的键。
const SessionIDKey = "sessionID"

// SessionMiddleware 校验路径参数 :sid 中的会话标识，通过后存入上下文。
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := c.Param("sid")
		if err := token.VerifySessionID(sid); err != nil {
			log.Warnf("[SessionMiddleware] 无效的会话标识: %q", sid)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    http.StatusBadRequest,
				"message": "missing or invalid session id",
			})
			return
		}
		c.Set(SessionIDKey, sid)
		c.Next()
	}
}
