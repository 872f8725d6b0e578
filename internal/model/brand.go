// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// Brand 对应于数据库中的 'brands' 表。
// 它是品牌协作方的只读模型：规范名称加上一组受监控的关键词，
// 共同构成 Mention 检测时使用的检索词集合。
type Brand struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// Name 是品牌的规范名称，始终作为第一个检索词参与扫描。
	Name string `gorm:"type:varchar(100);not null" json:"name"`
	// MonitoringKeywords 是品牌配置的受监控关键词列表（有界）。
	// 关键词来自用户配置，只做字面子串扫描，绝不作为模式语言执行。
	MonitoringKeywords []string  `gorm:"serializer:json" json:"monitoringKeywords"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Brand) TableName() string {
	return "brands"
}

// SearchTerms 返回检测器要扫描的词集合：规范名称在前，关键词按配置顺序在后。
// 顺序是确定性断言的一部分，不得改变。
func (b *Brand) SearchTerms() []string {
	terms := make([]string, 0, len(b.MonitoringKeywords)+1)
	terms = append(terms, b.Name)
	terms = append(terms, b.MonitoringKeywords...)
	return terms
}
