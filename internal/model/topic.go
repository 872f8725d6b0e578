// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// ConversationTopic 是从对话文本中按固定分类表提取出的粗粒度主题标签。
// 不变量：(ConversationID, TopicName) 唯一；重复提取时 MentionCount 只增不减，
// RelevanceScore 取历史最大值，LastMentionedTurn 只向前推进。
type ConversationTopic struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	ConversationID     uint      `gorm:"uniqueIndex:idx_conversation_topic_name;not null" json:"conversationId"`
	TopicName          string    `gorm:"type:varchar(100);uniqueIndex:idx_conversation_topic_name;not null" json:"topicName"`
	Category           string    `gorm:"type:varchar(50);not null" json:"category"`
	RelevanceScore     float64   `gorm:"not null" json:"relevanceScore"`
	FirstMentionedTurn int       `gorm:"not null" json:"firstMentionedTurn"`
	LastMentionedTurn  int       `gorm:"not null" json:"lastMentionedTurn"`
	MentionCount       int       `gorm:"not null;default:1" json:"mentionCount"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ConversationTopic) TableName() string {
	return "conversation_topics"
}

// Merge 把同一主题在指定轮次的一次新提取合并进已有记录。
// 相关度取两者最大值；只有当轮次真正向前推进时才累加计数并推进
// LastMentionedTurn，因此同一轮次的重复投递（例如富化任务重试）是幂等的。
func (t *ConversationTopic) Merge(relevance float64, turn int) {
	if relevance > t.RelevanceScore {
		t.RelevanceScore = relevance
	}
	if turn > t.LastMentionedTurn {
		t.LastMentionedTurn = turn
		t.MentionCount++
	}
}
