// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// RelationshipType 描述两个对话之间关联边的类型。
type RelationshipType string

const (
	RelationshipFollowUp      RelationshipType = "follow_up"
	RelationshipRelatedTopic  RelationshipType = "related_topic"
	RelationshipComparison    RelationshipType = "comparison"
	RelationshipClarification RelationshipType = "clarification"
)

// ConversationRelationship 是两个对话之间的有向加权边。
// 不变量：Parent ≠ Child；边只在相似度超过阈值时创建；方向固定，不自动建立反向边。
type ConversationRelationship struct {
	ID                   uint             `gorm:"primaryKey" json:"id"`
	ParentConversationID uint             `gorm:"uniqueIndex:idx_relationship_edge;not null" json:"parentConversationId"`
	ChildConversationID  uint             `gorm:"uniqueIndex:idx_relationship_edge;not null" json:"childConversationId"`
	RelationshipType     RelationshipType `gorm:"type:varchar(20);uniqueIndex:idx_relationship_edge;not null" json:"relationshipType"`
	RelationshipStrength float64          `gorm:"not null" json:"relationshipStrength"`
	CreatedAt            time.Time        `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ConversationRelationship) TableName() string {
	return "conversation_relationships"
}
