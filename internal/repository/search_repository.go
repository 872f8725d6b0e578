// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"brandmonitor-go/internal/model"
	"brandmonitor-go/pkg/es"
	"brandmonitor-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
)

// SearchRepository 接口定义了对话内容检索的操作。
// 关系链接器的候选召回与对话搜索 API 都依赖它。
type SearchRepository interface {
	// IndexConversation 写入（或覆盖）一个对话的内容文档。
	IndexConversation(ctx context.Context, doc model.EsConversation) error
	// Search 在品牌范围内对初始问题与轮次全文做匹配检索。
	Search(ctx context.Context, brandID uint, term string, limit int) ([]model.ConversationSearchHit, error)
}

// esSearchRepository 是 SearchRepository 基于 Elasticsearch 的实现。
type esSearchRepository struct {
	esClient  *elasticsearch.Client
	indexName string
}

// NewSearchRepository 创建一个新的 SearchRepository 实例。
func NewSearchRepository(esClient *elasticsearch.Client, indexName string) SearchRepository {
	return &esSearchRepository{esClient: esClient, indexName: indexName}
}

// IndexConversation 委托给 es 包整体覆盖对话文档。
func (r *esSearchRepository) IndexConversation(ctx context.Context, doc model.EsConversation) error {
	return es.IndexConversation(ctx, r.indexName, doc)
}

// Search 执行品牌过滤的全文检索，按得分降序返回命中。
func (r *esSearchRepository) Search(ctx context.Context, brandID uint, term string, limit int) ([]model.ConversationSearchHit, error) {
	esQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":  term,
						"fields": []string{"initial_query", "turn_texts"},
					},
				},
				"filter": map[string]interface{}{
					"term": map[string]interface{}{"brand_id": brandID},
				},
			},
		},
		"size": limit,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := r.esClient.Search(
		r.esClient.Search.WithContext(ctx),
		r.esClient.Search.WithIndex(r.indexName),
		r.esClient.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		log.Errorf("[SearchRepository] Elasticsearch 返回错误, status: %s, body: %s", res.Status(), string(bodyBytes))
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.String())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source model.EsConversation `json:"_source"`
				Score  float64              `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	hits := make([]model.ConversationSearchHit, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		hits = append(hits, model.ConversationSearchHit{
			ConversationID: hit.Source.ConversationID,
			InitialQuery:   hit.Source.InitialQuery,
			Score:          hit.Score,
		})
	}
	return hits, nil
}
