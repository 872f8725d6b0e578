package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandmonitor-go/internal/config"
	"brandmonitor-go/internal/model"
)

func TestJaccardSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, JaccardSimilarity("best crm software", "best crm software"), 1e-9)
	assert.InDelta(t, 0.0, JaccardSimilarity("alpha beta", "gamma delta"), 1e-9)
	assert.InDelta(t, 0.0, JaccardSimilarity("", ""), 1e-9)
	assert.InDelta(t, 1.0, JaccardSimilarity("Best CRM", "best crm"), 1e-9)

	// {best, crm, software} ∩ {best, crm, tools} = 2，并集 4
	assert.InDelta(t, 0.5, JaccardSimilarity("best crm software", "best crm tools"), 1e-9)
}

func TestLinkRelatedCreatesEdgesAboveThreshold(t *testing.T) {
	newConv := &model.Conversation{
		ID:           10,
		BrandID:      1,
		InitialQuery: "best project management software for teams",
	}
	searchRepo := &fakeSearchRepo{hits: []model.ConversationSearchHit{
		{ConversationID: 3, InitialQuery: "best project management software for teams"},
		{ConversationID: 7, InitialQuery: "best project management software for startups"},
		{ConversationID: 8, InitialQuery: "how do I bake bread"},
	}}
	relRepo := &fakeRelationshipRepo{}
	linker := NewRelationshipLinker(config.DefaultAnalysis(), searchRepo, newFakeConversationRepo(), relRepo)

	err := linker.LinkRelated(context.Background(), newConv)
	require.NoError(t, err)
	require.Len(t, relRepo.edges, 2)

	for _, edge := range relRepo.edges {
		assert.Equal(t, uint(10), edge.ChildConversationID)
		assert.NotEqual(t, edge.ParentConversationID, edge.ChildConversationID)
		assert.Equal(t, model.RelationshipRelatedTopic, edge.RelationshipType)
		assert.Greater(t, edge.RelationshipStrength, 0.7)
	}
	assert.InDelta(t, 1.0, relRepo.edges[0].RelationshipStrength, 1e-9)
	// 6 词中 5 词相同：交集 5 / 并集 7
	assert.InDelta(t, 5.0/7.0, relRepo.edges[1].RelationshipStrength, 1e-9)
}

func TestLinkRelatedSkipsBelowThreshold(t *testing.T) {
	newConv := &model.Conversation{ID: 10, BrandID: 1, InitialQuery: "best crm software"}
	searchRepo := &fakeSearchRepo{hits: []model.ConversationSearchHit{
		{ConversationID: 3, InitialQuery: "best crm tools"},
	}}
	relRepo := &fakeRelationshipRepo{}
	linker := NewRelationshipLinker(config.DefaultAnalysis(), searchRepo, newFakeConversationRepo(), relRepo)

	require.NoError(t, linker.LinkRelated(context.Background(), newConv))
	assert.Empty(t, relRepo.edges)
}

func TestLinkRelatedExcludesSelf(t *testing.T) {
	newConv := &model.Conversation{ID: 10, BrandID: 1, InitialQuery: "best crm software"}
	searchRepo := &fakeSearchRepo{hits: []model.ConversationSearchHit{
		{ConversationID: 10, InitialQuery: "best crm software"},
	}}
	relRepo := &fakeRelationshipRepo{}
	linker := NewRelationshipLinker(config.DefaultAnalysis(), searchRepo, newFakeConversationRepo(), relRepo)

	require.NoError(t, linker.LinkRelated(context.Background(), newConv))
	assert.Empty(t, relRepo.edges)
}

func TestLinkRelatedFallsBackToDatabase(t *testing.T) {
	newConv := &model.Conversation{ID: 10, BrandID: 1, InitialQuery: "best crm software"}
	searchRepo := &fakeSearchRepo{searchErr: assert.AnError}
	convRepo := newFakeConversationRepo()
	convRepo.recent = []model.Conversation{
		{ID: 3, BrandID: 1, InitialQuery: "best crm software"},
	}
	relRepo := &fakeRelationshipRepo{}
	linker := NewRelationshipLinker(config.DefaultAnalysis(), searchRepo, convRepo, relRepo)

	require.NoError(t, linker.LinkRelated(context.Background(), newConv))
	require.Len(t, relRepo.edges, 1)
	assert.Equal(t, uint(3), relRepo.edges[0].ParentConversationID)
}

func TestLinkRelatedIdempotentUnderRetry(t *testing.T) {
	newConv := &model.Conversation{ID: 10, BrandID: 1, InitialQuery: "best crm software"}
	searchRepo := &fakeSearchRepo{hits: []model.ConversationSearchHit{
		{ConversationID: 3, InitialQuery: "best crm software"},
	}}
	relRepo := &fakeRelationshipRepo{}
	linker := NewRelationshipLinker(config.DefaultAnalysis(), searchRepo, newFakeConversationRepo(), relRepo)

	require.NoError(t, linker.LinkRelated(context.Background(), newConv))
	require.NoError(t, linker.LinkRelated(context.Background(), newConv))
	assert.Len(t, relRepo.edges, 1)
}

func TestLinkRelatedWithoutSearchUsesRecent(t *testing.T) {
	newConv := &model.Conversation{ID: 10, BrandID: 1, InitialQuery: "best crm software"}
	convRepo := newFakeConversationRepo()
	convRepo.recent = []model.Conversation{
		{ID: 4, BrandID: 1, InitialQuery: "best crm software"},
	}
	relRepo := &fakeRelationshipRepo{}
	linker := NewRelationshipLinker(config.DefaultAnalysis(), nil, convRepo, relRepo)

	require.NoError(t, linker.LinkRelated(context.Background(), newConv))
	assert.Len(t, relRepo.edges, 1)
}
