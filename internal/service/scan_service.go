package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"brandmonitor-go/pkg/token"
)

// ErrInvalidScanTicket 表示扫描票据不存在、已过期或已被消费。
var ErrInvalidScanTicket = errors.New("无效的扫描票据")

// ScanService 管理实时扫描连接的一次性票据。
// WebSocket 握手无法携带自定义请求头，因此先用认证请求换取
// 一个短时票据，再凭票据建立连接。
type ScanService interface {
	// IssueTicket 为品牌签发一张一次性扫描票据。
	IssueTicket(ctx context.Context, brandID uint) (string, error)
	// RedeemTicket 消费票据并返回其绑定的品牌 ID；票据只能消费一次。
	RedeemTicket(ctx context.Context, ticket string) (uint, error)
}

type scanService struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewScanService 创建一个新的 ScanService 实例。
func NewScanService(rdb *redis.Client) ScanService {
	return &scanService{rdb: rdb, ttl: 30 * time.Second}
}

func scanTicketKey(ticket string) string {
	return fmt.Sprintf("scan:ticket:%s", ticket)
}

// IssueTicket 生成随机票据并在 Redis 中以短 TTL 关联品牌 ID。
func (s *scanService) IssueTicket(ctx context.Context, brandID uint) (string, error) {
	ticket := token.GenerateRandomString(32)
	if err := s.rdb.Set(ctx, scanTicketKey(ticket), brandID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("保存扫描票据失败: %w", err)
	}
	return ticket, nil
}

// RedeemTicket 以 GETDEL 原子地读取并删除票据，保证一票一用。
func (s *scanService) RedeemTicket(ctx context.Context, ticket string) (uint, error) {
	if ticket == "" {
		return 0, ErrInvalidScanTicket
	}
	val, err := s.rdb.GetDel(ctx, scanTicketKey(ticket)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrInvalidScanTicket
		}
		return 0, fmt.Errorf("读取扫描票据失败: %w", err)
	}
	brandID, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, ErrInvalidScanTicket
	}
	return uint(brandID), nil
}
