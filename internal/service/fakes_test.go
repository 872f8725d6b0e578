package service

import (
	"context"
	"time"

	"gorm.io/gorm"

	"brandmonitor-go/internal/model"
	"brandmonitor-go/internal/repository"
	"brandmonitor-go/pkg/tasks"
)

// In-memory repository fakes shared by the service tests.

type fakeBrandRepo struct {
	brands map[uint]*model.Brand
}

func newFakeBrandRepo(brands ...*model.Brand) *fakeBrandRepo {
	m := make(map[uint]*model.Brand)
	for _, b := range brands {
		m[b.ID] = b
	}
	return &fakeBrandRepo{brands: m}
}

func (f *fakeBrandRepo) Create(brand *model.Brand) error {
	f.brands[brand.ID] = brand
	return nil
}

func (f *fakeBrandRepo) FindByID(id uint) (*model.Brand, error) {
	b, ok := f.brands[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return b, nil
}

func (f *fakeBrandRepo) FindAll() ([]model.Brand, error) {
	var out []model.Brand
	for _, b := range f.brands {
		out = append(out, *b)
	}
	return out, nil
}

type fakeConversationRepo struct {
	conversations map[uint]*model.Conversation
	turns         map[uint][]model.ConversationTurn
	nextConvID    uint
	nextTurnID    uint
	appendCalls   int
	recent        []model.Conversation
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		conversations: make(map[uint]*model.Conversation),
		turns:         make(map[uint][]model.ConversationTurn),
		nextConvID:    1,
		nextTurnID:    1,
	}
}

func (f *fakeConversationRepo) Create(conv *model.Conversation, initialTurn *model.ConversationTurn) error {
	conv.ID = f.nextConvID
	f.nextConvID++
	conv.TotalTurns = 1
	conv.IsActive = true
	conv.LastActivity = time.Now()
	f.conversations[conv.ID] = conv

	initialTurn.ID = f.nextTurnID
	f.nextTurnID++
	initialTurn.ConversationID = conv.ID
	initialTurn.TurnNumber = 1
	f.turns[conv.ID] = append(f.turns[conv.ID], *initialTurn)
	return nil
}

func (f *fakeConversationRepo) FindByID(id uint) (*model.Conversation, error) {
	conv, ok := f.conversations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return conv, nil
}

func (f *fakeConversationRepo) FindWithFilter(filter repository.ConversationFilter) ([]model.Conversation, int64, error) {
	var out []model.Conversation
	for _, c := range f.conversations {
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (f *fakeConversationRepo) FindRecentByBrand(brandID uint, limit int, excludeID uint) ([]model.Conversation, error) {
	var out []model.Conversation
	for _, c := range f.recent {
		if c.BrandID == brandID && c.ID != excludeID {
			out = append(out, c)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeConversationRepo) AppendTurn(conversationID uint, turn *model.ConversationTurn) error {
	f.appendCalls++
	conv, ok := f.conversations[conversationID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	turn.ID = f.nextTurnID
	f.nextTurnID++
	turn.ConversationID = conversationID
	turn.TurnNumber = conv.TotalTurns + 1
	conv.TotalTurns++
	conv.LastActivity = time.Now()
	f.turns[conversationID] = append(f.turns[conversationID], *turn)
	return nil
}

func (f *fakeConversationRepo) ListTurns(conversationID uint) ([]model.ConversationTurn, error) {
	return f.turns[conversationID], nil
}

func (f *fakeConversationRepo) FindTurn(conversationID uint, turnNumber int) (*model.ConversationTurn, error) {
	for i := range f.turns[conversationID] {
		if f.turns[conversationID][i].TurnNumber == turnNumber {
			return &f.turns[conversationID][i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeConversationRepo) MarkInactive(id uint) error {
	conv, ok := f.conversations[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	conv.IsActive = false
	return nil
}

func (f *fakeConversationRepo) GetStatistics(ctx context.Context, brandID uint, days int) (*repository.ConversationStatistics, error) {
	return &repository.ConversationStatistics{BrandID: brandID, Days: days}, nil
}

type fakeMentionRepo struct {
	byTurn       map[uint][]model.ConversationMention
	replaceCalls int
	createCalls  int
	failReplace  error
}

func newFakeMentionRepo() *fakeMentionRepo {
	return &fakeMentionRepo{byTurn: make(map[uint][]model.ConversationMention)}
}

func (f *fakeMentionRepo) CreateBatch(mentions []*model.ConversationMention) error {
	f.createCalls++
	return nil
}

func (f *fakeMentionRepo) ReplaceForTurn(conversationID, turnID uint, mentions []*model.ConversationMention) error {
	f.replaceCalls++
	if f.failReplace != nil {
		return f.failReplace
	}
	replaced := make([]model.ConversationMention, 0, len(mentions))
	for _, m := range mentions {
		replaced = append(replaced, *m)
	}
	f.byTurn[turnID] = replaced
	return nil
}

func (f *fakeMentionRepo) ListByConversation(conversationID uint) ([]model.ConversationMention, error) {
	var out []model.ConversationMention
	for _, ms := range f.byTurn {
		for _, m := range ms {
			if m.ConversationID == conversationID {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func (f *fakeMentionRepo) ListRecentByBrand(brandID uint, limit int) ([]model.ConversationMention, error) {
	return nil, nil
}

type fakeTopicRepo struct {
	topics     map[uint]map[string]*model.ConversationTopic
	failUpsert error
}

func newFakeTopicRepo() *fakeTopicRepo {
	return &fakeTopicRepo{topics: make(map[uint]map[string]*model.ConversationTopic)}
}

func (f *fakeTopicRepo) Upsert(conversationID uint, name, category string, relevance float64, turn int) (*model.ConversationTopic, error) {
	if f.failUpsert != nil {
		return nil, f.failUpsert
	}
	if f.topics[conversationID] == nil {
		f.topics[conversationID] = make(map[string]*model.ConversationTopic)
	}
	topic, ok := f.topics[conversationID][name]
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
		f.topics[conversationID][name] = topic
		return topic, nil
	}
	topic.Merge(relevance, turn)
	return topic, nil
}

func (f *fakeTopicRepo) ListByConversation(conversationID uint) ([]model.ConversationTopic, error) {
	var out []model.ConversationTopic
	for _, t := range f.topics[conversationID] {
		out = append(out, *t)
	}
	return out, nil
}

type fakeRelationshipRepo struct {
	edges []model.ConversationRelationship
}

func (f *fakeRelationshipRepo) Create(rel *model.ConversationRelationship) error {
	for _, e := range f.edges {
		if e.ParentConversationID == rel.ParentConversationID &&
			e.ChildConversationID == rel.ChildConversationID &&
			e.RelationshipType == rel.RelationshipType {
			return nil
		}
	}
	f.edges = append(f.edges, *rel)
	return nil
}

func (f *fakeRelationshipRepo) ListByParent(conversationID uint) ([]model.ConversationRelationship, error) {
	var out []model.ConversationRelationship
	for _, e := range f.edges {
		if e.ParentConversationID == conversationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRelationshipRepo) ListByChild(conversationID uint) ([]model.ConversationRelationship, error) {
	var out []model.ConversationRelationship
	for _, e := range f.edges {
		if e.ChildConversationID == conversationID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeSearchRepo struct {
	hits      []model.ConversationSearchHit
	searchErr error
	indexed   []model.EsConversation
}

func (f *fakeSearchRepo) IndexConversation(ctx context.Context, doc model.EsConversation) error {
	f.indexed = append(f.indexed, doc)
	return nil
}

func (f *fakeSearchRepo) Search(ctx context.Context, brandID uint, term string, limit int) ([]model.ConversationSearchHit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.hits) > limit {
		return f.hits[:limit], nil
	}
	return f.hits, nil
}

type fakeQueue struct {
	enqueued []tasks.EnrichmentTask
}

func (f *fakeQueue) Enqueue(task tasks.EnrichmentTask) error {
	f.enqueued = append(f.enqueued, task)
	return nil
}
