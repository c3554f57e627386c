package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"name-smart-go/pkg/log"
)

func TestSessionMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/s/:sid", SessionMiddleware(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(SessionIDKey))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/s/0000001157535", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0000001157535", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/s/0000001157534", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid session id")
}

func TestRequestLoggerKeepsBodyAndTruncates(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log.SetLogger(zap.New(core))
	t.Cleanup(func() { log.SetLogger(zap.NewNop()) })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger())
	long := strings.Repeat("x", maxLoggedBody+10)
	r.PUT("/echo", func(c *gin.Context) {
		body, err := c.GetRawData()
		require.NoError(t, err)
		c.String(http.StatusOK, string(body)+long)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/echo?count=3", strings.NewReader("hi")))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hi"+long, w.Body.String())

	entries := logs.FilterMessage("HTTP Request Log").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "hi", fields["requestBody"])
	assert.Equal(t, "count=3", fields["query"])
	assert.True(t, strings.HasSuffix(fields["responseBody"].(string), "...(truncated)"))
	assert.EqualValues(t, http.StatusOK, fields["statusCode"])
}
