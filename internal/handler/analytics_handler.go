package handler

import (
	"github.com/gin-gonic/gin"

	"brandmonitor-go/internal/service"
)

// AnalyticsHandler 处理分析与统计类 API 请求。
type AnalyticsHandler struct {
	service service.ConversationService
}

// NewAnalyticsHandler 创建一个新的 AnalyticsHandler。
func NewAnalyticsHandler(service service.ConversationService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// GetDashboard 处理看板数据的一次性拉取请求。
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	brandID, ok := queryUint(c, "brandId")
	if !ok {
		respondError(c, service.ErrInvalidInput)
		return
	}

	data, err := h.service.GetDashboardData(c.Request.Context(), brandID, queryInt(c, "days", 30))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, data)
}

// GetStatistics 处理按品牌与时间窗的聚合统计请求。
func (h *AnalyticsHandler) GetStatistics(c *gin.Context) {
	brandID, ok := queryUint(c, "brandId")
	if !ok {
		respondError(c, service.ErrInvalidInput)
		return
	}

	stats, err := h.service.GetStatistics(c.Request.Context(), brandID, queryInt(c, "days", 30))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, stats)
}
