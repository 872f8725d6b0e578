package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"brandmonitor-go/internal/config"
	"brandmonitor-go/internal/model"
	"brandmonitor-go/internal/repository"
	"brandmonitor-go/internal/service"
	"brandmonitor-go/pkg/tasks"
)

type stubBrandRepo struct{ brand *model.Brand }

func (s *stubBrandRepo) Create(*model.Brand) error { return nil }
func (s *stubBrandRepo) FindByID(id uint) (*model.Brand, error) {
	if s.brand == nil || s.brand.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.brand, nil
}
func (s *stubBrandRepo) FindAll() ([]model.Brand, error) { return nil, nil }

type stubConversationRepo struct {
	conv  *model.Conversation
	turns []model.ConversationTurn
}

func (s *stubConversationRepo) Create(*model.Conversation, *model.ConversationTurn) error {
	return nil
}
func (s *stubConversationRepo) FindByID(id uint) (*model.Conversation, error) {
	if s.conv == nil || s.conv.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.conv, nil
}
func (s *stubConversationRepo) FindWithFilter(repository.ConversationFilter) ([]model.Conversation, int64, error) {
	return nil, 0, nil
}
func (s *stubConversationRepo) FindRecentByBrand(uint, int, uint) ([]model.Conversation, error) {
	return nil, nil
}
func (s *stubConversationRepo) AppendTurn(uint, *model.ConversationTurn) error { return nil }
func (s *stubConversationRepo) ListTurns(uint) ([]model.ConversationTurn, error) {
	return s.turns, nil
}
func (s *stubConversationRepo) FindTurn(conversationID uint, turnNumber int) (*model.ConversationTurn, error) {
	for i := range s.turns {
		if s.turns[i].TurnNumber == turnNumber {
			return &s.turns[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}
func (s *stubConversationRepo) MarkInactive(uint) error { return nil }
func (s *stubConversationRepo) GetStatistics(context.Context, uint, int) (*repository.ConversationStatistics, error) {
	return nil, nil
}

type stubMentionRepo struct {
	byTurn       map[uint][]model.ConversationMention
	replaceCalls int
}

func (s *stubMentionRepo) CreateBatch([]*model.ConversationMention) error { return nil }
func (s *stubMentionRepo) ReplaceForTurn(conversationID, turnID uint, mentions []*model.ConversationMention) error {
	s.replaceCalls++
	out := make([]model.ConversationMention, 0, len(mentions))
	for _, m := range mentions {
		out = append(out, *m)
	}
	if s.byTurn == nil {
		s.byTurn = make(map[uint][]model.ConversationMention)
	}
	s.byTurn[turnID] = out
	return nil
}
func (s *stubMentionRepo) ListByConversation(uint) ([]model.ConversationMention, error) {
	return nil, nil
}
func (s *stubMentionRepo) ListRecentByBrand(uint, int) ([]model.ConversationMention, error) {
	return nil, nil
}

type stubTopicRepo struct {
	topics map[string]*model.ConversationTopic
}

func (s *stubTopicRepo) Upsert(conversationID uint, name, category string, relevance float64, turn int) (*model.ConversationTopic, error) {
	if s.topics == nil {
		s.topics = make(map[string]*model.ConversationTopic)
	}
	topic, ok := s.topics[name]
	if !ok {
		topic = &model.ConversationTopic{
			ConversationID:     conversationID,
			TopicName:          name,
			Category:           category,
			RelevanceScore:     relevance,
			FirstMentionedTurn: turn,
			LastMentionedTurn:  turn,
			MentionCount:       1,
		}
		s.topics[name] = topic
		return topic, nil
	}
	topic.Merge(relevance, turn)
	return topic, nil
}
func (s *stubTopicRepo) ListByConversation(uint) ([]model.ConversationTopic, error) {
	return nil, nil
}

type stubRelationshipRepo struct{ edges []model.ConversationRelationship }

func (s *stubRelationshipRepo) Create(rel *model.ConversationRelationship) error {
	for _, e := range s.edges {
		if e.ParentConversationID == rel.ParentConversationID &&
			e.ChildConversationID == rel.ChildConversationID &&
			e.RelationshipType == rel.RelationshipType {
			return nil
		}
	}
	s.edges = append(s.edges, *rel)
	return nil
}
func (s *stubRelationshipRepo) ListByParent(uint) ([]model.ConversationRelationship, error) {
	return nil, nil
}
func (s *stubRelationshipRepo) ListByChild(uint) ([]model.ConversationRelationship, error) {
	return nil, nil
}

func newEnricherFixture() (*Enricher, *stubMentionRepo, *stubTopicRepo, *stubRelationshipRepo) {
	cfg := config.DefaultAnalysis()
	brandRepo := &stubBrandRepo{brand: &model.Brand{ID: 1, Name: "TechCorp"}}
	convRepo := &stubConversationRepo{
		conv: &model.Conversation{
			ID:           5,
			BrandID:      1,
			InitialQuery: "is TechCorp software good",
			TotalTurns:   1,
			IsActive:     true,
			LastActivity: time.Now(),
		},
		turns: []model.ConversationTurn{
			{
				ID:             7,
				ConversationID: 5,
				TurnNumber:     1,
				UserInput:      "is TechCorp software good",
				AIResponse:     "TechCorp software is great",
				TurnType:       model.TurnTypeInitial,
			},
		},
	}
	mentionRepo := &stubMentionRepo{}
	topicRepo := &stubTopicRepo{}
	relRepo := &stubRelationshipRepo{}

	detector := service.NewMentionDetector(cfg)
	extractor := service.NewTopicExtractor(cfg)
	linker := service.NewRelationshipLinker(cfg, nil, convRepo, relRepo)

	return NewEnricher(brandRepo, convRepo, mentionRepo, topicRepo, nil, detector, extractor, linker),
		mentionRepo, topicRepo, relRepo
}

func TestEnricherReplaysDetectionAndTopics(t *testing.T) {
	enricher, mentionRepo, topicRepo, _ := newEnricherFixture()
	task := tasks.EnrichmentTask{ConversationID: 5, BrandID: 1, TurnNumber: 1}

	require.NoError(t, enricher.Process(context.Background(), task))

	mentions := mentionRepo.byTurn[7]
	require.Len(t, mentions, 1)
	assert.Equal(t, "TechCorp", mentions[0].MentionText)
	assert.Contains(t, topicRepo.topics, "Software")
}

func TestEnricherIsIdempotent(t *testing.T) {
	enricher, mentionRepo, topicRepo, _ := newEnricherFixture()
	task := tasks.EnrichmentTask{ConversationID: 5, BrandID: 1, TurnNumber: 1}

	require.NoError(t, enricher.Process(context.Background(), task))
	require.NoError(t, enricher.Process(context.Background(), task))

	// 提及整轮替换，主题按轮次合并：重放不放大任何数据
	assert.Len(t, mentionRepo.byTurn[7], 1)
	assert.Equal(t, 1, topicRepo.topics["Software"].MentionCount)
	assert.Equal(t, 2, mentionRepo.replaceCalls)
}

func TestEnricherDropsTasksForMissingRecords(t *testing.T) {
	enricher, mentionRepo, _, _ := newEnricherFixture()

	// 对话不存在：任务作废而非报错，避免无限重试
	require.NoError(t, enricher.Process(context.Background(), tasks.EnrichmentTask{ConversationID: 999, BrandID: 1, TurnNumber: 1}))
	// 轮次不存在同理
	require.NoError(t, enricher.Process(context.Background(), tasks.EnrichmentTask{ConversationID: 5, BrandID: 1, TurnNumber: 9}))
	assert.Zero(t, mentionRepo.replaceCalls)
}
