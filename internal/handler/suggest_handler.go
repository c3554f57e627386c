package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"name-smart-go/internal/model"
	"name-smart-go/internal/service"
	"name-smart-go/pkg/log"
)

// SuggestHandler 负责处理名字推荐请求。
type SuggestHandler struct {
	suggestService service.SuggestService
}

// NewSuggestHandler 创建一个新的 SuggestHandler 实例。
func NewSuggestHandler(suggestService service.SuggestService) *SuggestHandler {
	return &SuggestHandler{suggestService: suggestService}
}

// Suggest 处理 GET /sessions/:sid/suggestions?count=&gender=&filter_displayed=。
func (h *SuggestHandler) Suggest(c *gin.Context) {
	pop, err := model.ParsePopulation(c.Query("gender"))
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	count := 0
	if raw := c.Query("count"); raw != "" {
		if count, err = strconv.Atoi(raw); err != nil || count < 0 {
			fail(c, http.StatusBadRequest, "count must be a non-negative integer")
			return
		}
	}
	filterDisplayed, _ := strconv.ParseBool(c.Query("filter_displayed"))

	suggestions, err := h.suggestService.Suggest(c.Request.Context(), service.SuggestRequest{
		SessionID:       sessionID(c),
		Population:      pop,
		Count:           count,
		FilterDisplayed: filterDisplayed,
	})
	if err != nil {
		log.Errorf("[SuggestHandler] 推荐失败, session: %s, error: %v", sessionID(c), err)
		fail(c, statusOf(err), err.Error())
		return
	}
	ok(c, suggestions)
}
