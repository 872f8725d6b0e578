// Package model 定义了与数据库表对应的 Go 结构体。
package model

// EsConversation 代表存储在 Elasticsearch 对话索引中的文档结构。
// 每个对话一个文档；TurnTexts 随轮次追加，供基于内容的对话检索使用。
type EsConversation struct {
	ConversationID uint   `json:"conversation_id"`
	BrandID        uint   `json:"brand_id"`
	InitialQuery   string `json:"initial_query"`
	// TurnTexts 是所有轮次"用户输入 + 助手响应"拼接后的全文。
	TurnTexts string `json:"turn_texts"`
	IsActive  bool   `json:"is_active"`
}

// ConversationSearchHit 是对话内容检索返回的一条命中。
type ConversationSearchHit struct {
	ConversationID uint    `json:"conversationId"`
	InitialQuery   string  `json:"initialQuery"`
	Score          float64 `json:"score"`
}
