package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/gorm"

	"brandmonitor-go/internal/config"
	"brandmonitor-go/internal/model"
	"brandmonitor-go/internal/repository"
	"brandmonitor-go/pkg/kafka"
	"brandmonitor-go/pkg/log"
	"brandmonitor-go/pkg/tasks"
)

// EnrichmentQueue 抽象了富化重试任务的投递通道。
// 实现允许为 nil（纯同步模式），此时失败的富化不会被重放。
type EnrichmentQueue interface {
	Enqueue(task tasks.EnrichmentTask) error
}

// KafkaEnrichmentQueue 把富化任务投递到 Kafka 主题。
type KafkaEnrichmentQueue struct{}

// Enqueue 实现 EnrichmentQueue 接口。
func (KafkaEnrichmentQueue) Enqueue(task tasks.EnrichmentTask) error {
	return kafka.ProduceEnrichmentTask(task)
}

// StartConversationRequest 是创建对话的业务入参。
type StartConversationRequest struct {
	BrandID          uint                       `json:"brandId" binding:"required"`
	AIModelID        uint                       `json:"aiModelId" binding:"required"`
	InitialQuery     string                     `json:"initialQuery" binding:"required"`
	AIResponse       string                     `json:"aiResponse" binding:"required"`
	ExternalThreadID string                     `json:"externalThreadId"`
	Context          *model.ConversationContext `json:"context"`
	ProcessingTimeMs *int64                     `json:"processingTimeMs"`
}

// ContinueConversationRequest 是追加轮次的业务入参。
type ContinueConversationRequest struct {
	UserInput        string         `json:"userInput" binding:"required"`
	AIResponse       string         `json:"aiResponse" binding:"required"`
	TurnType         model.TurnType `json:"turnType"`
	ProcessingTimeMs *int64         `json:"processingTimeMs"`
}

// StartConversationResult 是创建对话的返回值。
type StartConversationResult struct {
	Conversation *model.Conversation         `json:"conversation"`
	Turn         *model.ConversationTurn     `json:"turn"`
	Mentions     []model.ConversationMention `json:"mentions"`
}

// ContinueConversationResult 是追加轮次的返回值。
type ContinueConversationResult struct {
	Turn     *model.ConversationTurn     `json:"turn"`
	Mentions []model.ConversationMention `json:"mentions"`
}

// ConversationDetails 聚合了一个对话的全部关联数据。
type ConversationDetails struct {
	Conversation  *model.Conversation              `json:"conversation"`
	Turns         []model.ConversationTurn         `json:"turns"`
	Mentions      []model.ConversationMention      `json:"mentions"`
	Topics        []model.ConversationTopic        `json:"topics"`
	Relationships []model.ConversationRelationship `json:"relationships"`
}

// DashboardData 是分析看板一次性拉取的数据集合。
type DashboardData struct {
	Statistics          *repository.ConversationStatistics `json:"statistics"`
	RecentConversations []model.Conversation               `json:"recentConversations"`
	RecentMentions      []model.ConversationMention        `json:"recentMentions"`
}

// ConversationService 是对话追踪子系统的编排入口。
// 它只做编排：轮次号分配、富化结果的幂等写入都下沉在存储层。
type ConversationService interface {
	StartConversation(ctx context.Context, req *StartConversationRequest) (*StartConversationResult, error)
	ContinueConversation(ctx context.Context, conversationID uint, req *ContinueConversationRequest) (*ContinueConversationResult, error)
	// DetectMentions 对任意文本做临时品牌提及检测，不落库。
	DetectMentions(brandID uint, text string) ([]DetectedMention, error)
	GetConversations(filter repository.ConversationFilter) ([]model.Conversation, int64, error)
	GetConversationDetails(conversationID uint) (*ConversationDetails, error)
	GetStatistics(ctx context.Context, brandID uint, days int) (*repository.ConversationStatistics, error)
	GetDashboardData(ctx context.Context, brandID uint, days int) (*DashboardData, error)
	SearchConversations(ctx context.Context, brandID uint, term string, limit int) ([]model.ConversationSearchHit, error)
	DeactivateConversation(conversationID uint) error
}

type conversationService struct {
	cfg              config.AnalysisConfig
	brandRepo        repository.BrandRepository
	conversationRepo repository.ConversationRepository
	mentionRepo      repository.MentionRepository
	topicRepo        repository.TopicRepository
	relationshipRepo repository.RelationshipRepository
	searchRepo       repository.SearchRepository
	detector         MentionDetector
	extractor        TopicExtractor
	linker           RelationshipLinker
	queue            EnrichmentQueue
}

// NewConversationService 创建一个新的 ConversationService 实例。
// searchRepo 与 queue 允许为 nil，对应能力退化但核心流程不受影响。
func NewConversationService(
	cfg config.AnalysisConfig,
	brandRepo repository.BrandRepository,
	conversationRepo repository.ConversationRepository,
	mentionRepo repository.MentionRepository,
	topicRepo repository.TopicRepository,
	relationshipRepo repository.RelationshipRepository,
	searchRepo repository.SearchRepository,
	detector MentionDetector,
	extractor TopicExtractor,
	linker RelationshipLinker,
	queue EnrichmentQueue,
) ConversationService {
	return &conversationService{
		cfg:              cfg,
		brandRepo:        brandRepo,
		conversationRepo: conversationRepo,
		mentionRepo:      mentionRepo,
		topicRepo:        topicRepo,
		relationshipRepo: relationshipRepo,
		searchRepo:       searchRepo,
		detector:         detector,
		extractor:        extractor,
		linker:           linker,
		queue:            queue,
	}
}

// findBrand 查找品牌并把存储层的"记录不存在"翻译为业务错误。
func (s *conversationService) findBrand(id uint) (*model.Brand, error) {
	brand, err := s.brandRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBrandNotFound
		}
		return nil, err
	}
	return brand, nil
}

// findConversation 查找对话并把存储层的"记录不存在"翻译为业务错误。
func (s *conversationService) findConversation(id uint) (*model.Conversation, error) {
	conv, err := s.conversationRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return conv, nil
}

// classifyConversation 按优先级判定对话类型：
// 比较类关键词 > 显式前序对话 > 多轮标记 > 默认问答。
func classifyConversation(initialQuery string, convCtx *model.ConversationContext) model.ConversationType {
	lower := strings.ToLower(initialQuery)
	if strings.Contains(lower, "compare") || strings.Contains(lower, "versus") || containsWord(lower, "vs") {
		return model.ConversationTypeComparison
	}
	if convCtx != nil {
		if convCtx.PreviousConversationID != 0 {
			return model.ConversationTypeFollowUp
		}
		if convCtx.IsMultiTurn {
			return model.ConversationTypeMultiTurn
		}
	}
	return model.ConversationTypeQueryResponse
}

func containsWord(lower, word string) bool {
	for _, f := range strings.Fields(lower) {
		if f == word {
			return true
		}
	}
	return false
}

// StartConversation 创建对话与第 1 轮，随后依次执行提及检测、
// 主题提取、关系链接三步富化。富化失败不回滚轮次写入，
// 而是投递一个可幂等重放的富化任务。
func (s *conversationService) StartConversation(ctx context.Context, req *StartConversationRequest) (*StartConversationResult, error) {
	if strings.TrimSpace(req.InitialQuery) == "" || strings.TrimSpace(req.AIResponse) == "" {
		return nil, ErrInvalidInput
	}

	brand, err := s.findBrand(req.BrandID)
	if err != nil {
		return nil, err
	}

	conv := &model.Conversation{
		BrandID:          req.BrandID,
		AIModelID:        req.AIModelID,
		ConversationType: classifyConversation(req.InitialQuery, req.Context),
		InitialQuery:     req.InitialQuery,
		ExternalThreadID: req.ExternalThreadID,
	}
	if req.Context != nil {
		raw, err := json.Marshal(req.Context)
		if err != nil {
			return nil, ErrInvalidInput
		}
		conv.Context = string(raw)
	}

	turn := &model.ConversationTurn{
		UserInput:        req.InitialQuery,
		AIResponse:       req.AIResponse,
		TurnType:         model.TurnTypeInitial,
		ProcessingTimeMs: req.ProcessingTimeMs,
	}

	if err := s.conversationRepo.Create(conv, turn); err != nil {
		log.Errorf("[ConversationService] 创建对话失败: brand=%d err=%v", req.BrandID, err)
		return nil, err
	}

	mentions, enrichErr := s.enrichTurn(brand, conv, turn)
	if enrichErr == nil {
		if err := s.linker.LinkRelated(ctx, conv); err != nil {
			log.Errorf("[ConversationService] 关系链接失败: conversation=%d err=%v", conv.ID, err)
			enrichErr = err
		}
	}
	if enrichErr != nil {
		s.scheduleRetry(tasks.EnrichmentTask{
			ConversationID:    conv.ID,
			BrandID:           conv.BrandID,
			TurnNumber:        turn.TurnNumber,
			LinkRelationships: true,
		})
	}

	s.indexConversation(ctx, conv)

	return &StartConversationResult{Conversation: conv, Turn: turn, Mentions: mentions}, nil
}

// ContinueConversation 向既有对话追加一个轮次。
// 对话不存在时直接返回 NotFound，不发生任何写入；
// 轮次号由存储层在行锁内分配，这里绝不计算。
func (s *conversationService) ContinueConversation(ctx context.Context, conversationID uint, req *ContinueConversationRequest) (*ContinueConversationResult, error) {
	if strings.TrimSpace(req.UserInput) == "" || strings.TrimSpace(req.AIResponse) == "" {
		return nil, ErrInvalidInput
	}

	conv, err := s.findConversation(conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsActive && s.cfg.RejectInactiveTurns {
		return nil, ErrConversationInactive
	}

	brand, err := s.findBrand(conv.BrandID)
	if err != nil {
		return nil, err
	}

	turnType := req.TurnType
	if turnType == "" {
		turnType = model.TurnTypeFollowUp
	}

	turn := &model.ConversationTurn{
		UserInput:        req.UserInput,
		AIResponse:       req.AIResponse,
		TurnType:         turnType,
		ProcessingTimeMs: req.ProcessingTimeMs,
	}

	if err := s.conversationRepo.AppendTurn(conversationID, turn); err != nil {
		log.Errorf("[ConversationService] 追加轮次失败: conversation=%d err=%v", conversationID, err)
		return nil, err
	}

	mentions, enrichErr := s.enrichTurn(brand, conv, turn)
	if enrichErr != nil {
		s.scheduleRetry(tasks.EnrichmentTask{
			ConversationID: conv.ID,
			BrandID:        conv.BrandID,
			TurnNumber:     turn.TurnNumber,
		})
	}

	s.indexConversation(ctx, conv)

	return &ContinueConversationResult{Turn: turn, Mentions: mentions}, nil
}

// enrichTurn 对单个轮次执行提及检测与主题提取并落库。
// 任何一步失败都返回错误，但已成功的写入保留（富化是增量且可重放的）。
func (s *conversationService) enrichTurn(brand *model.Brand, conv *model.Conversation, turn *model.ConversationTurn) ([]model.ConversationMention, error) {
	detected := s.detector.Detect(brand.SearchTerms(), turn.AIResponse)

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
	if err := s.mentionRepo.ReplaceForTurn(conv.ID, turn.ID, mentions); err != nil {
		log.Errorf("[ConversationService] 保存提及失败: conversation=%d turn=%d err=%v", conv.ID, turn.TurnNumber, err)
		return nil, err
	}

	for _, topic := range s.extractor.Extract(turn.UserInput, turn.AIResponse) {
		if _, err := s.topicRepo.Upsert(conv.ID, topic.Name, topic.Category, topic.Relevance, turn.TurnNumber); err != nil {
			log.Errorf("[ConversationService] 保存主题失败: conversation=%d topic=%s err=%v", conv.ID, topic.Name, err)
			return s.copyMentions(mentions), err
		}
	}

	return s.copyMentions(mentions), nil
}

func (s *conversationService) copyMentions(mentions []*model.ConversationMention) []model.ConversationMention {
	out := make([]model.ConversationMention, 0, len(mentions))
	for _, m := range mentions {
		out = append(out, *m)
	}
	return out
}

// scheduleRetry 把失败的富化投递到重试队列；队列缺席时仅记录日志。
func (s *conversationService) scheduleRetry(task tasks.EnrichmentTask) {
	if s.queue == nil {
		log.Warnf("[ConversationService] 富化失败且未配置重试队列: conversation=%d turn=%d", task.ConversationID, task.TurnNumber)
		return
	}
	if err := s.queue.Enqueue(task); err != nil {
		log.Errorf("[ConversationService] 投递富化重试任务失败: conversation=%d turn=%d err=%v", task.ConversationID, task.TurnNumber, err)
	}
}

// indexConversation 把对话全文同步到搜索索引。索引是旁路设施，
// 失败只记日志，不影响主流程返回。
func (s *conversationService) indexConversation(ctx context.Context, conv *model.Conversation) {
	if s.searchRepo == nil {
		return
	}
	turns, err := s.conversationRepo.ListTurns(conv.ID)
	if err != nil {
		log.Warnf("[ConversationService] 读取轮次用于索引失败: conversation=%d err=%v", conv.ID, err)
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
	if err := s.searchRepo.IndexConversation(ctx, doc); err != nil {
		log.Warnf("[ConversationService] 写入搜索索引失败: conversation=%d err=%v", conv.ID, err)
	}
}

// DetectMentions 对任意文本执行一次临时检测，不产生任何持久化副作用。
func (s *conversationService) DetectMentions(brandID uint, text string) ([]DetectedMention, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrInvalidInput
	}
	brand, err := s.findBrand(brandID)
	if err != nil {
		return nil, err
	}
	return s.detector.Detect(brand.SearchTerms(), text), nil
}

// GetConversations 按过滤条件分页查询对话列表。
func (s *conversationService) GetConversations(filter repository.ConversationFilter) ([]model.Conversation, int64, error) {
	return s.conversationRepo.FindWithFilter(filter)
}

// GetConversationDetails 返回对话及其轮次、提及、主题、关系的完整视图。
func (s *conversationService) GetConversationDetails(conversationID uint) (*ConversationDetails, error) {
	conv, err := s.findConversation(conversationID)
	if err != nil {
		return nil, err
	}

	turns, err := s.conversationRepo.ListTurns(conversationID)
	if err != nil {
		return nil, err
	}
	mentions, err := s.mentionRepo.ListByConversation(conversationID)
	if err != nil {
		return nil, err
	}
	topics, err := s.topicRepo.ListByConversation(conversationID)
	if err != nil {
		return nil, err
	}
	asParent, err := s.relationshipRepo.ListByParent(conversationID)
	if err != nil {
		return nil, err
	}
	asChild, err := s.relationshipRepo.ListByChild(conversationID)
	if err != nil {
		return nil, err
	}

	return &ConversationDetails{
		Conversation:  conv,
		Turns:         turns,
		Mentions:      mentions,
		Topics:        topics,
		Relationships: append(asParent, asChild...),
	}, nil
}

// GetStatistics 返回品牌在时间窗内的聚合统计。
func (s *conversationService) GetStatistics(ctx context.Context, brandID uint, days int) (*repository.ConversationStatistics, error) {
	if days <= 0 {
		days = 30
	}
	if _, err := s.findBrand(brandID); err != nil {
		return nil, err
	}
	return s.conversationRepo.GetStatistics(ctx, brandID, days)
}

// GetDashboardData 聚合看板所需的统计、最近对话与最近提及。
// days 非正时与 GetStatistics 一样回落到 30 天窗口。
func (s *conversationService) GetDashboardData(ctx context.Context, brandID uint, days int) (*DashboardData, error) {
	stats, err := s.GetStatistics(ctx, brandID, days)
	if err != nil {
		return nil, err
	}
	recent, err := s.conversationRepo.FindRecentByBrand(brandID, 10, 0)
	if err != nil {
		return nil, err
	}
	mentions, err := s.mentionRepo.ListRecentByBrand(brandID, 20)
	if err != nil {
		return nil, err
	}
	return &DashboardData{
		Statistics:          stats,
		RecentConversations: recent,
		RecentMentions:      mentions,
	}, nil
}

// SearchConversations 在品牌范围内做对话内容全文检索。
func (s *conversationService) SearchConversations(ctx context.Context, brandID uint, term string, limit int) ([]model.ConversationSearchHit, error) {
	if strings.TrimSpace(term) == "" {
		return nil, ErrInvalidInput
	}
	if s.searchRepo == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	return s.searchRepo.Search(ctx, brandID, term, limit)
}

// DeactivateConversation 显式停用对话。停用不可逆。
func (s *conversationService) DeactivateConversation(conversationID uint) error {
	if _, err := s.findConversation(conversationID); err != nil {
		return err
	}
	return s.conversationRepo.MarkInactive(conversationID)
}
