// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"brandmonitor-go/internal/model"
	"brandmonitor-go/pkg/log"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationFilter 描述对话列表查询的过滤与分页条件。
type ConversationFilter struct {
	BrandID          *uint
	AIModelID        *uint
	ConversationType *model.ConversationType
	IsActive         *bool
	HasMentions      *bool
	StartDate        *time.Time
	EndDate          *time.Time
	Page             int
	Size             int
}

// TopicCount 是统计聚合里的一条主题计数。
type TopicCount struct {
	TopicName string `json:"topicName"`
	Category  string `json:"category"`
	Mentions  int64  `json:"mentions"`
}

// ConversationStatistics 是按品牌与时间窗聚合出的统计结果。
type ConversationStatistics struct {
	BrandID             uint             `json:"brandId"`
	Days                int              `json:"days"`
	TotalConversations  int64            `json:"totalConversations"`
	ActiveConversations int64            `json:"activeConversations"`
	TotalMentions       int64            `json:"totalMentions"`
	AverageSentiment    float64          `json:"averageSentiment"`
	TypeBreakdown       map[string]int64 `json:"typeBreakdown"`
	TopTopics           []TopicCount     `json:"topTopics"`
}

// ConversationRepository 接口定义了对话及其轮次的持久化操作。
type ConversationRepository interface {
	// Create 在一个事务中创建对话与第 1 轮，并初始化 TotalTurns/LastActivity。
	Create(conv *model.Conversation, initialTurn *model.ConversationTurn) error
	FindByID(id uint) (*model.Conversation, error)
	FindWithFilter(filter ConversationFilter) ([]model.Conversation, int64, error)
	// FindRecentByBrand 按最近活跃排序返回品牌下的对话，排除指定 ID。
	FindRecentByBrand(brandID uint, limit int, excludeID uint) ([]model.Conversation, error)
	// AppendTurn 在一个事务中锁定对话行、分配下一个轮次号、写入轮次并推进计数。
	// 轮次号绝不在存储层之外计算，这是轮次唯一性不变量的唯一守卫。
	AppendTurn(conversationID uint, turn *model.ConversationTurn) error
	ListTurns(conversationID uint) ([]model.ConversationTurn, error)
	FindTurn(conversationID uint, turnNumber int) (*model.ConversationTurn, error)
	// MarkInactive 把对话置为 Inactive；该转换是单向且不可逆的。
	MarkInactive(id uint) error
	// GetStatistics 返回时间窗内的聚合统计，结果在 Redis 中短期缓存。
	GetStatistics(ctx context.Context, brandID uint, days int) (*ConversationStatistics, error)
}

// conversationRepository 是 ConversationRepository 接口的 GORM+Redis 实现。
type conversationRepository struct {
	db          *gorm.DB
	redisClient *redis.Client
	cacheTTL    time.Duration
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(db *gorm.DB, redisClient *redis.Client, cacheTTL time.Duration) ConversationRepository {
	return &conversationRepository{db: db, redisClient: redisClient, cacheTTL: cacheTTL}
}

// Create 持久化新对话与它的初始轮次。
func (r *conversationRepository) Create(conv *model.Conversation, initialTurn *model.ConversationTurn) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		conv.TotalTurns = 1
		conv.LastActivity = time.Now()
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		initialTurn.ConversationID = conv.ID
		initialTurn.TurnNumber = 1
		initialTurn.TurnType = model.TurnTypeInitial
		return tx.Create(initialTurn).Error
	})
}

// FindByID 根据对话 ID 查找对话。
func (r *conversationRepository) FindByID(id uint) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.First(&conv, id).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindWithFilter 按过滤条件分页检索对话列表。
// 它返回对话列表、总记录数和可能发生的错误。
func (r *conversationRepository) FindWithFilter(filter ConversationFilter) ([]model.Conversation, int64, error) {
	var conversations []model.Conversation
	var total int64

	db := r.db.Model(&model.Conversation{})
	if filter.BrandID != nil {
		db = db.Where("brand_id = ?", *filter.BrandID)
	}
	if filter.AIModelID != nil {
		db = db.Where("ai_model_id = ?", *filter.AIModelID)
	}
	if filter.ConversationType != nil {
		db = db.Where("conversation_type = ?", *filter.ConversationType)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	if filter.HasMentions != nil {
		sub := "EXISTS (SELECT 1 FROM conversation_mentions m WHERE m.conversation_id = conversations.id)"
		if *filter.HasMentions {
			db = db.Where(sub)
		} else {
			db = db.Where("NOT " + sub)
		}
	}
	if filter.StartDate != nil {
		db = db.Where("created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		db = db.Where("created_at <= ?", *filter.EndDate)
	}

	// 首先计算总记录数
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 然后根据偏移量和限制获取当前页的数据
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.Size
	if size <= 0 {
		size = 20
	}
	err := db.Order("last_activity DESC").Offset((page - 1) * size).Limit(size).Find(&conversations).Error
	if err != nil {
		return nil, 0, err
	}

	return conversations, total, nil
}

// FindRecentByBrand 返回品牌下最近活跃的若干对话，排除指定 ID。
func (r *conversationRepository) FindRecentByBrand(brandID uint, limit int, excludeID uint) ([]model.Conversation, error) {
	var conversations []model.Conversation
	db := r.db.Where("brand_id = ?", brandID)
	if excludeID != 0 {
		db = db.Where("id <> ?", excludeID)
	}
	err := db.Order("last_activity DESC").Limit(limit).Find(&conversations).Error
	return conversations, err
}

// AppendTurn 以事务方式向对话追加一个轮次。
// 对话行先以 FOR UPDATE 锁定，下一个轮次号由锁内的 TotalTurns+1 得出，
// 因此并发追加同一对话时轮次号不会重复、不会出现间隙。
func (r *conversationRepository) AppendTurn(conversationID uint, turn *model.ConversationTurn) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var conv model.Conversation
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&conv, conversationID).Error; err != nil {
			return err
		}

		turn.ConversationID = conversationID
		turn.TurnNumber = conv.TotalTurns + 1
		if err := tx.Create(turn).Error; err != nil {
			return err
		}

		return tx.Model(&model.Conversation{}).Where("id = ?", conversationID).
			Updates(map[string]interface{}{
				"total_turns":   conv.TotalTurns + 1,
				"last_activity": time.Now(),
			}).Error
	})
}

// ListTurns 按轮次号升序返回对话的全部轮次。
func (r *conversationRepository) ListTurns(conversationID uint) ([]model.ConversationTurn, error) {
	var turns []model.ConversationTurn
	err := r.db.Where("conversation_id = ?", conversationID).Order("turn_number asc").Find(&turns).Error
	return turns, err
}

// FindTurn 查找对话的指定轮次。
func (r *conversationRepository) FindTurn(conversationID uint, turnNumber int) (*model.ConversationTurn, error) {
	var turn model.ConversationTurn
	err := r.db.Where("conversation_id = ? AND turn_number = ?", conversationID, turnNumber).First(&turn).Error
	if err != nil {
		return nil, err
	}
	return &turn, nil
}

// MarkInactive 把对话标记为不再活跃。
func (r *conversationRepository) MarkInactive(id uint) error {
	res := r.db.Model(&model.Conversation{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// 对话不存在或已是 Inactive；由上层先行 FindByID 区分
		return nil
	}
	return nil
}

// statsCacheKey 生成统计缓存的 Redis 键。
func (r *conversationRepository) statsCacheKey(brandID uint, days int) string {
	return fmt.Sprintf("stats:%d:%d", brandID, days)
}

// GetStatistics 聚合品牌在时间窗内的对话统计。
// 聚合查询开销较高，结果以 JSON 形式在 Redis 中缓存一小段时间。
func (r *conversationRepository) GetStatistics(ctx context.Context, brandID uint, days int) (*ConversationStatistics, error) {
	key := r.statsCacheKey(brandID, days)
	if cached, err := r.redisClient.Get(ctx, key).Result(); err == nil {
		var stats ConversationStatistics
		if err := json.Unmarshal([]byte(cached), &stats); err == nil {
			return &stats, nil
		}
		// 缓存内容损坏时落库重算
		log.Warnf("统计缓存反序列化失败，重新聚合: key=%s", key)
	}

	since := time.Now().AddDate(0, 0, -days)
	stats := &ConversationStatistics{
		BrandID:       brandID,
		Days:          days,
		TypeBreakdown: make(map[string]int64),
	}

	convScope := r.db.Model(&model.Conversation{}).Where("brand_id = ? AND created_at >= ?", brandID, since)
	if err := convScope.Count(&stats.TotalConversations).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&model.Conversation{}).
		Where("brand_id = ? AND created_at >= ? AND is_active = ?", brandID, since, true).
		Count(&stats.ActiveConversations).Error; err != nil {
		return nil, err
	}

	if err := r.db.Model(&model.ConversationMention{}).
		Where("brand_id = ? AND created_at >= ?", brandID, since).
		Count(&stats.TotalMentions).Error; err != nil {
		return nil, err
	}
	if stats.TotalMentions > 0 {
		var avg *float64
		if err := r.db.Model(&model.ConversationMention{}).
			Where("brand_id = ? AND created_at >= ?", brandID, since).
			Select("AVG(sentiment_score)").Scan(&avg).Error; err != nil {
			return nil, err
		}
		if avg != nil {
			stats.AverageSentiment = *avg
		}
	}

	var breakdown []struct {
		ConversationType string
		Count            int64
	}
	if err := r.db.Model(&model.Conversation{}).
		Where("brand_id = ? AND created_at >= ?", brandID, since).
		Select("conversation_type, COUNT(*) as count").
		Group("conversation_type").
		Scan(&breakdown).Error; err != nil {
		return nil, err
	}
	for _, row := range breakdown {
		stats.TypeBreakdown[row.ConversationType] = row.Count
	}

	if err := r.db.Model(&model.ConversationTopic{}).
		Joins("JOIN conversations c ON c.id = conversation_topics.conversation_id").
		Where("c.brand_id = ? AND c.created_at >= ?", brandID, since).
		Select("conversation_topics.topic_name, conversation_topics.category, SUM(conversation_topics.mention_count) as mentions").
		Group("conversation_topics.topic_name, conversation_topics.category").
		Order("mentions DESC").
		Limit(5).
		Scan(&stats.TopTopics).Error; err != nil {
		return nil, err
	}

	if data, err := json.Marshal(stats); err == nil {
		if err := r.redisClient.Set(ctx, key, data, r.cacheTTL).Err(); err != nil {
			log.Warnf("写入统计缓存失败: key=%s, err=%v", key, err)
		}
	}
	return stats, nil
}
