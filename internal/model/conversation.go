// Package model 包含了应用的数据模型定义。
package model

import "time"

// ConversationType 描述一次对话的整体类型。
type ConversationType string

const (
	ConversationTypeQueryResponse ConversationType = "query_response"
	ConversationTypeFollowUp      ConversationType = "follow_up"
	ConversationTypeMultiTurn     ConversationType = "multi_turn"
	ConversationTypeComparison    ConversationType = "comparison"
)

// TurnType 描述对话中单个轮次的类型。
type TurnType string

const (
	TurnTypeInitial       TurnType = "initial"
	TurnTypeFollowUp      TurnType = "follow_up"
	TurnTypeClarification TurnType = "clarification"
	TurnTypeComparison    TurnType = "comparison"
)

// Conversation 代表一次被追踪的用户与 AI 助手之间的多轮交互。
// 不变量：TotalTurns 始终等于已持久化轮次的数量；
// IsActive 只能由 true 单向转为 false（显式停用，不可逆）。
type Conversation struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	BrandID          uint             `gorm:"index;not null" json:"brandId"`
	AIModelID        uint             `gorm:"index;not null" json:"aiModelId"`
	ConversationType ConversationType `gorm:"type:varchar(20);not null" json:"conversationType"`
	// InitialQuery 是触发对话创建的首个用户问题，也是关系链接相似度计算的输入。
	InitialQuery string `gorm:"type:text;not null" json:"initialQuery"`
	// ExternalThreadID 是外部平台的会话标识（可选）。
	ExternalThreadID string `gorm:"type:varchar(255)" json:"externalThreadId,omitempty"`
	// Context 保存创建时随请求传入的自由格式上下文（JSON 序列化）。
	Context      string    `gorm:"type:text" json:"context,omitempty"`
	TotalTurns   int       `gorm:"not null;default:0" json:"totalTurns"`
	LastActivity time.Time `gorm:"not null" json:"lastActivity"`
	IsActive     bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Conversation) TableName() string {
	return "conversations"
}

// ConversationTurn 代表对话中的一个"用户输入/助手响应"轮次。
// 不变量：TurnNumber 从 1 开始、按对话严格递增且无间隙；第 1 轮恒为 initial 类型。
type ConversationTurn struct {
	ID             uint     `gorm:"primaryKey" json:"id"`
	ConversationID uint     `gorm:"uniqueIndex:idx_conversation_turn_number;not null" json:"conversationId"`
	TurnNumber     int      `gorm:"uniqueIndex:idx_conversation_turn_number;not null" json:"turnNumber"`
	UserInput      string   `gorm:"type:text;not null" json:"userInput"`
	AIResponse     string   `gorm:"type:text;not null" json:"aiResponse"`
	TurnType       TurnType `gorm:"type:varchar(20);not null" json:"turnType"`
	// ProcessingTimeMs 是可选的处理耗时指标，由调用方提供。
	ProcessingTimeMs *int64    `gorm:"default:null" json:"processingTimeMs,omitempty"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ConversationTurn) TableName() string {
	return "conversation_turns"
}

// ConversationContext 是对话创建请求可携带的结构化上下文。
// 它参与对话类型分类，随后整体序列化保存在 Conversation.Context 中。
type ConversationContext struct {
	// PreviousConversationID 非零时表示本对话是对既有对话的追问。
	PreviousConversationID uint `json:"previousConversationId,omitempty"`
	// IsMultiTurn 表示调用方预期这是一个多轮会话。
	IsMultiTurn bool `json:"isMultiTurn,omitempty"`
	// Platform 记录对话发生的外部平台（可选，自由格式）。
	Platform string `json:"platform,omitempty"`
}
