// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"name-smart-go/internal/middleware"
	"name-smart-go/internal/model"
	"name-smart-go/internal/service"
)

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    data,
	})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"code":    status,
		"message": message,
	})
}

// statusOf 把校验错误映射为 400，其余为 500。
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidPopulation),
		errors.Is(err, model.ErrInvalidPreference),
		errors.Is(err, model.ErrInvalidSentiment),
		errors.Is(err, model.ErrInvalidName),
		errors.Is(err, service.ErrMissingPopulation):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func sessionID(c *gin.Context) string {
	return c.GetString(middleware.SessionIDKey)
}
