package service

import (
	"context"
	"strings"

	"brandmonitor-go/internal/config"
	"brandmonitor-go/internal/model"
	"brandmonitor-go/internal/repository"
	"brandmonitor-go/pkg/log"
)

// RelationshipLinker 负责为新会话寻找同品牌的相似历史会话，
// 并在相似度超过阈值时落库一条 related_topic 关系边。
type RelationshipLinker interface {
	LinkRelated(ctx context.Context, conv *model.Conversation) error
}

type relationshipLinker struct {
	cfg              config.AnalysisConfig
	searchRepo       repository.SearchRepository
	conversationRepo repository.ConversationRepository
	relationshipRepo repository.RelationshipRepository
}

// NewRelationshipLinker 创建一个新的 RelationshipLinker 实例。
// searchRepo 允许为 nil，此时退化为仅用数据库的最近会话检索。
func NewRelationshipLinker(
	cfg config.AnalysisConfig,
	searchRepo repository.SearchRepository,
	conversationRepo repository.ConversationRepository,
	relationshipRepo repository.RelationshipRepository,
) RelationshipLinker {
	return &relationshipLinker{
		cfg:              cfg,
		searchRepo:       searchRepo,
		conversationRepo: conversationRepo,
		relationshipRepo: relationshipRepo,
	}
}

// JaccardSimilarity 计算两段文本的 Jaccard 相似度：
// 先小写化并按空白切词得到两个词集合，再用交集大小除以并集大小。
// 两边都为空时返回 0。
func JaccardSimilarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// LinkRelated 检索候选历史会话并按初始问题的相似度建边。
// 边的方向固定为 历史会话 -> 新会话，关系类型为 related_topic，
// 强度即相似度。重复调用不会产生重复边。
func (l *relationshipLinker) LinkRelated(ctx context.Context, conv *model.Conversation) error {
	candidates, err := l.findCandidates(ctx, conv)
	if err != nil {
		return err
	}

	for i := range candidates {
		candidate := &candidates[i]
		if candidate.ID == conv.ID {
			continue
		}
		similarity := JaccardSimilarity(candidate.InitialQuery, conv.InitialQuery)
		if similarity <= l.cfg.SimilarityThreshold {
			continue
		}
		rel := &model.ConversationRelationship{
			ParentConversationID: candidate.ID,
			ChildConversationID:  conv.ID,
			RelationshipType:     model.RelationshipRelatedTopic,
			RelationshipStrength: similarity,
		}
		if err := l.relationshipRepo.Create(rel); err != nil {
			log.Errorf("[RelationshipLinker] 创建会话关系失败: parent=%d child=%d err=%v", candidate.ID, conv.ID, err)
			return err
		}
	}
	return nil
}

// findCandidates 优先走 ES 全文检索，ES 不可用或查询失败时回退到
// 数据库按最近活跃时间取同品牌会话。
func (l *relationshipLinker) findCandidates(ctx context.Context, conv *model.Conversation) ([]model.Conversation, error) {
	limit := l.cfg.LinkerCandidateLimit

	if l.searchRepo != nil {
		hits, err := l.searchRepo.Search(ctx, conv.BrandID, conv.InitialQuery, limit)
		if err == nil {
			candidates := make([]model.Conversation, 0, len(hits))
			for _, hit := range hits {
				if hit.ConversationID == conv.ID {
					continue
				}
				candidates = append(candidates, model.Conversation{
					ID:           hit.ConversationID,
					BrandID:      conv.BrandID,
					InitialQuery: hit.InitialQuery,
				})
			}
			return candidates, nil
		}
		log.Warnf("[RelationshipLinker] ES 检索候选会话失败，回退到数据库: %v", err)
	}

	return l.conversationRepo.FindRecentByBrand(conv.BrandID, limit, conv.ID)
}
