package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"name-smart-go/internal/middleware"
)

// RegisterRoutes 注册所有 API 路由以及 /metrics。
func RegisterRoutes(r *gin.Engine, sessionHandler *SessionHandler, suggestHandler *SuggestHandler) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/sessions", sessionHandler.Create)

		// 需要有效会话标识的路由
		session := apiV1.Group("/sessions/:sid")
		session.Use(middleware.SessionMiddleware())
		{
			session.GET("/preferences", sessionHandler.GetPreferences)
			session.PUT("/preferences", sessionHandler.UpdatePreferences)
			session.GET("/sentiments", sessionHandler.GetSentiments)
			session.PUT("/sentiments", sessionHandler.UpdateSentiments)
			session.GET("/suggestions", suggestHandler.Suggest)
			session.GET("/reasons", sessionHandler.GetReasons)
			session.GET("/names/:name", sessionHandler.NameFacts)
		}
	}
}
