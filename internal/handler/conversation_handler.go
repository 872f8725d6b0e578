// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"brandmonitor-go/internal/model"
	"brandmonitor-go/internal/repository"
	"brandmonitor-go/internal/service"
)

// ConversationHandler 处理与对话追踪相关的 API 请求。
type ConversationHandler struct {
	service service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(service service.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// respondError 把业务错误映射为 HTTP 状态码并写出统一的响应信封。
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrBrandNotFound),
		errors.Is(err, service.ErrConversationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrConversationInactive):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidScanTicket):
		status = http.StatusUnauthorized
	}
	c.JSON(status, gin.H{
		"code":    status,
		"message": err.Error(),
		"data":    nil,
	})
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    data,
	})
}

// StartConversation 处理创建对话的请求。
func (h *ConversationHandler) StartConversation(c *gin.Context) {
	var req service.StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求参数: " + err.Error(),
			"data":    nil,
		})
		return
	}

	result, err := h.service.StartConversation(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

// ContinueConversation 处理向既有对话追加轮次的请求。
func (h *ConversationHandler) ContinueConversation(c *gin.Context) {
	conversationID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, service.ErrInvalidInput)
		return
	}

	var req service.ContinueConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求参数: " + err.Error(),
			"data":    nil,
		})
		return
	}

	result, err := h.service.ContinueConversation(c.Request.Context(), conversationID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

// GetConversations 处理按条件分页查询对话列表的请求。
func (h *ConversationHandler) GetConversations(c *gin.Context) {
	filter := repository.ConversationFilter{
		Page: queryInt(c, "page", 1),
		Size: queryInt(c, "size", 20),
	}
	if v, ok := queryUint(c, "brandId"); ok {
		filter.BrandID = &v
	}
	if v, ok := queryUint(c, "aiModelId"); ok {
		filter.AIModelID = &v
	}
	if raw := c.Query("type"); raw != "" {
		t := model.ConversationType(raw)
		filter.ConversationType = &t
	}
	if raw := c.Query("active"); raw != "" {
		b := raw == "true"
		filter.IsActive = &b
	}
	if raw := c.Query("hasMentions"); raw != "" {
		b := raw == "true"
		filter.HasMentions = &b
	}
	if t, ok := queryTime(c, "startDate"); ok {
		filter.StartDate = &t
	}
	if t, ok := queryTime(c, "endDate"); ok {
		filter.EndDate = &t
	}

	conversations, total, err := h.service.GetConversations(filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"items": conversations,
		"total": total,
		"page":  filter.Page,
		"size":  filter.Size,
	})
}

// GetConversationDetails 处理获取对话完整视图的请求。
func (h *ConversationHandler) GetConversationDetails(c *gin.Context) {
	conversationID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, service.ErrInvalidInput)
		return
	}

	details, err := h.service.GetConversationDetails(conversationID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, details)
}

// SearchConversations 处理对话内容全文检索的请求。
func (h *ConversationHandler) SearchConversations(c *gin.Context) {
	brandID, ok := queryUint(c, "brandId")
	if !ok {
		respondError(c, service.ErrInvalidInput)
		return
	}

	hits, err := h.service.SearchConversations(c.Request.Context(), brandID, c.Query("term"), queryInt(c, "limit", 10))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, hits)
}

// DeactivateConversation 处理停用对话的请求。停用不可逆。
func (h *ConversationHandler) DeactivateConversation(c *gin.Context) {
	conversationID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, service.ErrInvalidInput)
		return
	}

	if err := h.service.DeactivateConversation(conversationID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

func parseIDParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, service.ErrInvalidInput
	}
	return uint(id), nil
}

func queryUint(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(v), true
}

func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func queryTime(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
