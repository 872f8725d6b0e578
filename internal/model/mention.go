// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// MentionType 描述一次品牌提及在语句中扮演的修辞角色。
type MentionType string

const (
	MentionTypeDirect         MentionType = "direct"
	MentionTypeIndirect       MentionType = "indirect"
	MentionTypeComparison     MentionType = "comparison"
	MentionTypeRecommendation MentionType = "recommendation"
)

// SentimentLabel 是由情感得分派生的离散标签。
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// 情感标签的阈值：得分 > 0.1 为 positive，< -0.1 为 negative，其余为 neutral。
const (
	SentimentPositiveThreshold = 0.1
	SentimentNegativeThreshold = -0.1
)

// SentimentLabelForScore 根据统一阈值把情感得分映射为标签。
// 检测器和存储层共用同一套阈值，保证标签与得分始终一致。
func SentimentLabelForScore(score float64) SentimentLabel {
	switch {
	case score > SentimentPositiveThreshold:
		return SentimentPositive
	case score < SentimentNegativeThreshold:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// ConversationMention 代表在助手响应文本中检测到的一次品牌提及。
// 仅由检测器创建，创建后不再变更。
type ConversationMention struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	ConversationID uint `gorm:"index;not null" json:"conversationId"`
	// TurnID 指向提及所在的轮次；临时检测（无持久化）时为空。
	TurnID  *uint `gorm:"index;default:null" json:"turnId,omitempty"`
	BrandID uint  `gorm:"index;not null" json:"brandId"`
	// MentionText 是被命中的原文片段（与检索词逐字对应）。
	MentionText string `gorm:"type:varchar(255);not null" json:"mentionText"`
	// ContextWindow 是命中位置前后各 50 个字符的上下文窗口（按文本边界截断）。
	ContextWindow string `gorm:"type:text" json:"contextWindow"`
	// Position 是命中片段在源文本中的字节偏移。
	Position       int            `gorm:"not null" json:"position"`
	MentionType    MentionType    `gorm:"type:varchar(20);not null" json:"mentionType"`
	SentimentScore float64        `gorm:"not null" json:"sentimentScore"`
	SentimentLabel SentimentLabel `gorm:"type:varchar(10);not null" json:"sentimentLabel"`
	RelevanceScore float64        `gorm:"not null" json:"relevanceScore"`
	Confidence     float64        `gorm:"not null" json:"confidence"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ConversationMention) TableName() string {
	return "conversation_mentions"
}
