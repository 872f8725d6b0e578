package handler

import (
	"github.com/gin-gonic/gin"

	"brandmonitor-go/internal/service"
)

// ExportHandler 处理对话快照导出的 API 请求。
type ExportHandler struct {
	service service.ExportService
}

// NewExportHandler 创建一个新的 ExportHandler。
func NewExportHandler(service service.ExportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// ExportConversation 把对话快照写入对象存储并返回限时下载链接。
func (h *ExportHandler) ExportConversation(c *gin.Context) {
	conversationID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, service.ErrInvalidInput)
		return
	}

	url, err := h.service.ExportConversation(c.Request.Context(), conversationID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"url": url})
}
