// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"brandmonitor-go/internal/model"

	"gorm.io/gorm"
)

// MentionRepository 接口定义了品牌提及记录的持久化操作。
// 提及只由检测器产出，入库后不再变更。
type MentionRepository interface {
	CreateBatch(mentions []*model.ConversationMention) error
	// ReplaceForTurn 在一个事务中删除并重建某个轮次的全部提及，
	// 供富化任务重放使用；重复执行结果不变。
	ReplaceForTurn(conversationID, turnID uint, mentions []*model.ConversationMention) error
	// ListByConversation 按源文本偏移升序返回对话的全部提及。
	ListByConversation(conversationID uint) ([]model.ConversationMention, error)
	// ListRecentByBrand 按时间倒序返回品牌最近的提及。
	ListRecentByBrand(brandID uint, limit int) ([]model.ConversationMention, error)
}

// mentionRepository 是 MentionRepository 接口的 GORM 实现。
type mentionRepository struct {
	db *gorm.DB
}

// NewMentionRepository 创建一个新的 MentionRepository 实例。
func NewMentionRepository(db *gorm.DB) MentionRepository {
	return &mentionRepository{db: db}
}

// CreateBatch 批量插入提及记录。
func (r *mentionRepository) CreateBatch(mentions []*model.ConversationMention) error {
	if len(mentions) == 0 {
		return nil
	}
	return r.db.Create(&mentions).Error
}

// ReplaceForTurn 删除指定轮次的既有提及后重新写入。
func (r *mentionRepository) ReplaceForTurn(conversationID, turnID uint, mentions []*model.ConversationMention) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ? AND turn_id = ?", conversationID, turnID).
			Delete(&model.ConversationMention{}).Error; err != nil {
			return err
		}
		if len(mentions) == 0 {
			return nil
		}
		return tx.Create(&mentions).Error
	})
}

// ListByConversation 返回对话内按位置排序的全部提及。
func (r *mentionRepository) ListByConversation(conversationID uint) ([]model.ConversationMention, error) {
	var mentions []model.ConversationMention
	err := r.db.Where("conversation_id = ?", conversationID).Order("position asc").Find(&mentions).Error
	return mentions, err
}

// ListRecentByBrand 返回品牌最近产生的提及。
func (r *mentionRepository) ListRecentByBrand(brandID uint, limit int) ([]model.ConversationMention, error) {
	var mentions []model.ConversationMention
	err := r.db.Where("brand_id = ?", brandID).Order("created_at DESC").Limit(limit).Find(&mentions).Error
	return mentions, err
}
