package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"brandmonitor-go/internal/service"
)

// MentionHandler 处理与品牌提及相关的 API 请求。
type MentionHandler struct {
	service service.ConversationService
}

// NewMentionHandler 创建一个新的 MentionHandler。
func NewMentionHandler(service service.ConversationService) *MentionHandler {
	return &MentionHandler{service: service}
}

// detectRequest 是临时提及检测的请求体。
type detectRequest struct {
	BrandID uint   `json:"brandId" binding:"required"`
	Text    string `json:"text" binding:"required"`
}

// DetectMentions 处理临时文本的品牌提及检测请求，不产生任何写入。
func (h *MentionHandler) DetectMentions(c *gin.Context) {
	var req detectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求参数: " + err.Error(),
			"data":    nil,
		})
		return
	}

	mentions, err := h.service.DetectMentions(req.BrandID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"mentions": mentions,
		"count":    len(mentions),
	})
}
