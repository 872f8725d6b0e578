// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"brandmonitor-go/internal/model"

	"gorm.io/gorm"
)

// RelationshipRepository 接口定义了对话关系边的持久化操作。
type RelationshipRepository interface {
	// Create 创建一条有向边；同一 (parent, child, type) 重复创建是幂等的。
	Create(rel *model.ConversationRelationship) error
	// ListByParent 返回以指定对话为起点的边。
	ListByParent(conversationID uint) ([]model.ConversationRelationship, error)
	// ListByChild 返回指向指定对话的边。
	ListByChild(conversationID uint) ([]model.ConversationRelationship, error)
}

// relationshipRepository 是 RelationshipRepository 接口的 GORM 实现。
type relationshipRepository struct {
	db *gorm.DB
}

// NewRelationshipRepository 创建一个新的 RelationshipRepository 实例。
func NewRelationshipRepository(db *gorm.DB) RelationshipRepository {
	return &relationshipRepository{db: db}
}

// Create 写入一条关系边。
// FirstOrCreate 以唯一键 (parent, child, type) 判重，重试写入不会产生重复边。
func (r *relationshipRepository) Create(rel *model.ConversationRelationship) error {
	return r.db.Where(model.ConversationRelationship{
		ParentConversationID: rel.ParentConversationID,
		ChildConversationID:  rel.ChildConversationID,
		RelationshipType:     rel.RelationshipType,
	}).Attrs(model.ConversationRelationship{
		RelationshipStrength: rel.RelationshipStrength,
	}).FirstOrCreate(rel).Error
}

// ListByParent 返回从指定对话出发的全部边。
func (r *relationshipRepository) ListByParent(conversationID uint) ([]model.ConversationRelationship, error) {
	var rels []model.ConversationRelationship
	err := r.db.Where("parent_conversation_id = ?", conversationID).Find(&rels).Error
	return rels, err
}

// ListByChild 返回指向指定对话的全部边。
func (r *relationshipRepository) ListByChild(conversationID uint) ([]model.ConversationRelationship, error) {
	var rels []model.ConversationRelationship
	err := r.db.Where("child_conversation_id = ?", conversationID).Find(&rels).Error
	return rels, err
}
