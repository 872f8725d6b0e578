// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"errors"

	"brandmonitor-go/internal/model"

	"gorm.io/gorm"
)

// TopicRepository 接口定义了对话主题的持久化操作。
// (conversation_id, topic_name) 唯一；重复提取按合并语义更新。
type TopicRepository interface {
	// Upsert 写入或合并一条主题提取结果，返回合并后的记录。
	Upsert(conversationID uint, name, category string, relevance float64, turn int) (*model.ConversationTopic, error)
	// ListByConversation 按相关度、提及次数降序返回对话的主题。
	ListByConversation(conversationID uint) ([]model.ConversationTopic, error)
}

// topicRepository 是 TopicRepository 接口的 GORM 实现。
type topicRepository struct {
	db *gorm.DB
}

// NewTopicRepository 创建一个新的 TopicRepository 实例。
func NewTopicRepository(db *gorm.DB) TopicRepository {
	return &topicRepository{db: db}
}

// Upsert 合并一条主题提取结果。
// 相关度单调不减、计数只增不减的不变量由 model.ConversationTopic.Merge 保证。
func (r *topicRepository) Upsert(conversationID uint, name, category string, relevance float64, turn int) (*model.ConversationTopic, error) {
	var result *model.ConversationTopic
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var topic model.ConversationTopic
		err := tx.Where("conversation_id = ? AND topic_name = ?", conversationID, name).First(&topic).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			topic = model.ConversationTopic{
				ConversationID:     conversationID,
				TopicName:          name,
				Category:           category,
				RelevanceScore:     relevance,
				FirstMentionedTurn: turn,
				LastMentionedTurn:  turn,
				MentionCount:       1,
			}
			if err := tx.Create(&topic).Error; err != nil {
				return err
			}
			result = &topic
			return nil
		}
		if err != nil {
			return err
		}

		topic.Merge(relevance, turn)
		if err := tx.Save(&topic).Error; err != nil {
			return err
		}
		result = &topic
		return nil
	})
	return result, err
}

// ListByConversation 返回对话的主题列表，排序与看板展示一致。
func (r *topicRepository) ListByConversation(conversationID uint) ([]model.ConversationTopic, error) {
	var topics []model.ConversationTopic
	err := r.db.Where("conversation_id = ?", conversationID).
		Order("relevance_score DESC, mention_count DESC").
		Find(&topics).Error
	return topics, err
}
