// Package pipeline 包含异步任务的消费端处理逻辑。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"brandmonitor-go/internal/model"
	"brandmonitor-go/internal/repository"
	"brandmonitor-go/internal/service"
	"brandmonitor-go/pkg/log"
	"brandmonitor-go/pkg/tasks"
)

// Enricher 消费富化重试任务，重放提及检测、主题提取与关系链接。
// 每一步写入都是幂等的：同一任务重复投递不会产生重复数据。
type Enricher struct {
	brandRepo        repository.BrandRepository
	conversationRepo repository.ConversationRepository
	mentionRepo      repository.MentionRepository
	topicRepo        repository.TopicRepository
	searchRepo       repository.SearchRepository
	detector         service.MentionDetector
	extractor        service.TopicExtractor
	linker           service.RelationshipLinker
}

// NewEnricher 创建一个新的 Enricher 实例。
func NewEnricher(
	brandRepo repository.BrandRepository,
	conversationRepo repository.ConversationRepository,
	mentionRepo repository.MentionRepository,
	topicRepo repository.TopicRepository,
	searchRepo repository.SearchRepository,
	detector service.MentionDetector,
	extractor service.TopicExtractor,
	linker service.RelationshipLinker,
) *Enricher {
	return &Enricher{
		brandRepo:        brandRepo,
		conversationRepo: conversationRepo,
		mentionRepo:      mentionRepo,
		topicRepo:        topicRepo,
		searchRepo:       searchRepo,
		detector:         detector,
		extractor:        extractor,
		linker:           linker,
	}
}

// Process 实现 kafka.TaskProcessor 接口。
// 目标对话或轮次已不存在时视为任务作废，返回 nil 以提交位点。
func (e *Enricher) Process(ctx context.Context, task tasks.EnrichmentTask) error {
	conv, err := e.conversationRepo.FindByID(task.ConversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Enricher] 对话已不存在，跳过富化任务: conversation=%d", task.ConversationID)
			return nil
		}
		return fmt.Errorf("查询对话失败: %w", err)
	}

	turn, err := e.conversationRepo.FindTurn(task.ConversationID, task.TurnNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Enricher] 轮次已不存在，跳过富化任务: conversation=%d turn=%d", task.ConversationID, task.TurnNumber)
			return nil
		}
		return fmt.Errorf("查询轮次失败: %w", err)
	}

	brand, err := e.brandRepo.FindByID(task.BrandID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Enricher] 品牌已不存在，跳过富化任务: brand=%d", task.BrandID)
			return nil
		}
		return fmt.Errorf("查询品牌失败: %w", err)
	}

	detected := e.detector.Detect(brand.SearchTerms(), turn.AIResponse)
	mentions := make([]*model.ConversationMention, 0, len(detected))
	for _, d := range detected {
		turnID := turn.ID
		mentions = append(mentions, &model.ConversationMention{
			ConversationID: conv.ID,
			TurnID:         &turnID,
			BrandID:        brand.ID,
			MentionText:    d.MentionText,
			ContextWindow:  d.ContextWindow,
			Position:       d.Position,
			MentionType:    d.MentionType,
			SentimentScore: d.SentimentScore,
			SentimentLabel: d.SentimentLabel,
			RelevanceScore: d.RelevanceScore,
			Confidence:     d.Confidence,
		})
	}
	if err := e.mentionRepo.ReplaceForTurn(conv.ID, turn.ID, mentions); err != nil {
		return fmt.Errorf("重放提及检测失败: %w", err)
	}

	for _, topic := range e.extractor.Extract(turn.UserInput, turn.AIResponse) {
		if _, err := e.topicRepo.Upsert(conv.ID, topic.Name, topic.Category, topic.Relevance, turn.TurnNumber); err != nil {
			return fmt.Errorf("重放主题提取失败: %w", err)
		}
	}

	if task.LinkRelationships {
		if err := e.linker.LinkRelated(ctx, conv); err != nil {
			return fmt.Errorf("重放关系链接失败: %w", err)
		}
	}

	e.reindex(ctx, conv)

	log.Infof("[Enricher] 富化任务处理完成: conversation=%d turn=%d mentions=%d", conv.ID, task.TurnNumber, len(mentions))
	return nil
}

// reindex 刷新对话的搜索文档。索引失败不阻塞任务提交。
func (e *Enricher) reindex(ctx context.Context, conv *model.Conversation) {
	if e.searchRepo == nil {
		return
	}
	turns, err := e.conversationRepo.ListTurns(conv.ID)
	if err != nil {
		log.Warnf("[Enricher] 读取轮次用于索引失败: conversation=%d err=%v", conv.ID, err)
		return
	}
	var sb strings.Builder
	for _, t := range turns {
		sb.WriteString(t.UserInput)
		sb.WriteString(" ")
		sb.WriteString(t.AIResponse)
		sb.WriteString(" ")
	}
	doc := model.EsConversation{
		ConversationID: conv.ID,
		BrandID:        conv.BrandID,
		InitialQuery:   conv.InitialQuery,
		TurnTexts:      sb.String(),
		IsActive:       conv.IsActive,
	}
	if err := e.searchRepo.IndexConversation(ctx, doc); err != nil {
		log.Warnf("[Enricher] 写入搜索索引失败: conversation=%d err=%v", conv.ID, err)
	}
}
