package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"brandmonitor-go/internal/service"
	"brandmonitor-go/pkg/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// ScanHandler 负责处理实时品牌扫描的 WebSocket 连接。
// 浏览器端无法在握手时携带 Authorization 头，所以流程分两步：
// 先用认证过的 HTTP 请求换取一次性票据，再凭票据建立连接。
type ScanHandler struct {
	scanService         service.ScanService
	conversationService service.ConversationService
}

// NewScanHandler 创建一个新的 ScanHandler。
func NewScanHandler(scanService service.ScanService, conversationService service.ConversationService) *ScanHandler {
	return &ScanHandler{
		scanService:         scanService,
		conversationService: conversationService,
	}
}

// IssueTicket 为当前品牌签发一张一次性扫描票据。
func (h *ScanHandler) IssueTicket(c *gin.Context) {
	brandID, ok := queryUint(c, "brandId")
	if !ok {
		respondError(c, service.ErrInvalidInput)
		return
	}

	ticket, err := h.scanService.IssueTicket(c.Request.Context(), brandID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"ticket": ticket})
}

// scanFrame 是客户端发来的单条扫描请求。
type scanFrame struct {
	Text string `json:"text"`
}

// Handle 处理一个传入的扫描 WebSocket 连接。
// 票据在握手时被原子消费，之后每收到一帧文本就回发一次检测结果。
func (h *ScanHandler) Handle(c *gin.Context) {
	brandID, err := h.scanService.RedeemTicket(c.Request.Context(), c.Param("ticket"))
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("扫描 WebSocket 连接已建立，品牌: %d", brandID)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}

		var frame scanFrame
		if err := json.Unmarshal(message, &frame); err != nil || frame.Text == "" {
			h.writeScanError(conn, "无效的扫描请求")
			continue
		}

		mentions, err := h.conversationService.DetectMentions(brandID, frame.Text)
		if err != nil {
			h.writeScanError(conn, err.Error())
			continue
		}

		resp := map[string]interface{}{
			"type":      "result",
			"mentions":  mentions,
			"count":     len(mentions),
			"timestamp": time.Now().UnixMilli(),
		}
		b, _ := json.Marshal(resp)
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Warnf("向 WebSocket 写入结果失败: %v", err)
			break
		}
	}
}

func (h *ScanHandler) writeScanError(conn *websocket.Conn, message string) {
	resp := map[string]interface{}{
		"type":      "error",
		"message":   message,
		"timestamp": time.Now().UnixMilli(),
	}
	b, _ := json.Marshal(resp)
	_ = conn.WriteMessage(websocket.TextMessage, b)
}
