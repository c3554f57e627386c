package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"name-smart-go/internal/model"
	"name-smart-go/internal/service"
	"name-smart-go/pkg/log"
)

// SessionHandler 负责处理会话偏好、反馈、理由和名字详情相关的 API 请求。
type SessionHandler struct {
	sessionService service.SessionService
}

// NewSessionHandler 创建一个新的 SessionHandler 实例。
func NewSessionHandler(sessionService service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// Create 生成一个新的会话标识。
func (h *SessionHandler) Create(c *gin.Context) {
	sid, err := h.sessionService.NewSession()
	if err != nil {
		log.Errorf("[SessionHandler] 生成会话标识失败: %v", err)
		fail(c, http.StatusInternalServerError, "failed to create session")
		return
	}
	ok(c, gin.H{"sessionId": sid})
}

func (h *SessionHandler) GetPreferences(c *gin.Context) {
	prefs, err := h.sessionService.GetPreferences(c.Request.Context(), sessionID(c))
	if err != nil {
		log.Errorf("[SessionHandler] 读取偏好失败: %v", err)
		fail(c, statusOf(err), err.Error())
		return
	}
	ok(c, prefs)
}

// UpdatePreferences 接受 JSON 对象；列表类偏好既可以是数组，也可以是 JSON 数组字符串。
// ?replace=true 时先清空已有偏好。
func (h *SessionHandler) UpdatePreferences(c *gin.Context) {
	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "request body must be a JSON object")
		return
	}
	flat := make(map[string]string, len(body))
	for key, raw := range body {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			flat[key] = s
			continue
		}
		flat[key] = string(raw)
	}
	replace, _ := strconv.ParseBool(c.Query("replace"))

	n, err := h.sessionService.UpdatePreferences(c.Request.Context(), sessionID(c), flat, replace)
	if err != nil {
		log.Warnf("[SessionHandler] 更新偏好失败: %v", err)
		fail(c, statusOf(err), err.Error())
		return
	}
	ok(c, gin.H{"updated": n})
}

func (h *SessionHandler) GetSentiments(c *gin.Context) {
	sentiments, err := h.sessionService.GetSentiments(c.Request.Context(), sessionID(c))
	if err != nil {
		log.Errorf("[SessionHandler] 读取反馈失败: %v", err)
		fail(c, statusOf(err), err.Error())
		return
	}
	ok(c, sentiments)
}

// UpdateSentiments 接受 {"Name": {"sentiment": "liked", "reason": "..."}}。
func (h *SessionHandler) UpdateSentiments(c *gin.Context) {
	var body map[string]model.Sentiment
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "request body must map names to sentiments")
		return
	}
	if err := h.sessionService.UpdateSentiments(c.Request.Context(), sessionID(c), body); err != nil {
		log.Warnf("[SessionHandler] 更新反馈失败: %v", err)
		fail(c, statusOf(err), err.Error())
		return
	}
	ok(c, gin.H{"updated": len(body)})
}

func (h *SessionHandler) GetReasons(c *gin.Context) {
	view, err := h.sessionService.GetReasons(c.Request.Context(), sessionID(c))
	if err != nil {
		log.Errorf("[SessionHandler] 读取推荐理由失败: %v", err)
		fail(c, statusOf(err), err.Error())
		return
	}
	ok(c, view)
}

// NameFacts 返回名字详情，?gender= 可选。
func (h *SessionHandler) NameFacts(c *gin.Context) {
	pop, err := model.ParsePopulation(c.Query("gender"))
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	facts, err := h.sessionService.NameFacts(c.Request.Context(), sessionID(c), c.Param("name"), pop)
	if err != nil {
		log.Warnf("[SessionHandler] 读取名字详情失败: %v", err)
		fail(c, statusOf(err), err.Error())
		return
	}
	ok(c, facts)
}
