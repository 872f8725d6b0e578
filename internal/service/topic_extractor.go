// Package service 包含了应用的业务逻辑层。
package service

import (
	"strings"

	"brandmonitor-go/internal/config"
)

// ExtractedTopic 是主题提取器产出的一个 (主题, 类别, 相关度) 三元组。
type ExtractedTopic struct {
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Relevance float64 `json:"relevance"`
}

// TopicExtractor 定义了主题提取操作。
// Extract 是确定性的纯函数：无副作用，返回零个或多个主题。
type TopicExtractor interface {
	Extract(userInput, aiResponse string) []ExtractedTopic
}

// topicExtractor 是基于固定分类表的实现，分类表由配置注入。
type topicExtractor struct {
	rules []config.TopicRule
}

// NewTopicExtractor 创建一个新的 TopicExtractor 实例。
func NewTopicExtractor(cfg config.AnalysisConfig) TopicExtractor {
	return &topicExtractor{rules: cfg.Topics}
}

// Extract 在拼接并小写化的全文上逐组检查触发子串。
// 各触发词组相互独立，同一段文本可以产出多个主题。
func (e *topicExtractor) Extract(userInput, aiResponse string) []ExtractedTopic {
	combined := strings.ToLower(userInput + " " + aiResponse)

	var topics []ExtractedTopic
	for _, rule := range e.rules {
		for _, trigger := range rule.Triggers {
			if strings.Contains(combined, trigger) {
				topics = append(topics, ExtractedTopic{
					Name:      rule.Name,
					Category:  rule.Category,
					Relevance: rule.Relevance,
				})
				break
			}
		}
	}
	return topics
}
