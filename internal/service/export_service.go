package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"brandmonitor-go/pkg/log"
	"brandmonitor-go/pkg/storage"
)

// ExportService 负责把对话的完整快照导出为 JSON 文件，
// 上传到对象存储并返回限时下载链接。
type ExportService interface {
	ExportConversation(ctx context.Context, conversationID uint) (string, error)
}

type exportService struct {
	conversationService ConversationService
	bucketName          string
	urlExpiry           time.Duration
}

// NewExportService 创建一个新的 ExportService 实例。
func NewExportService(conversationService ConversationService, bucketName string) ExportService {
	return &exportService{
		conversationService: conversationService,
		bucketName:          bucketName,
		urlExpiry:           24 * time.Hour,
	}
}

// ExportConversation 生成对话快照文件并返回预签名下载地址。
// 对象名带时间戳，重复导出互不覆盖。
func (s *exportService) ExportConversation(ctx context.Context, conversationID uint) (string, error) {
	details, err := s.conversationService.GetConversationDetails(conversationID)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(details, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化对话快照失败: %w", err)
	}

	objectName := fmt.Sprintf("exports/conversation-%d-%d.json", conversationID, time.Now().Unix())
	if err := storage.PutObject(ctx, s.bucketName, objectName, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		log.Errorf("[ExportService] 上传对话快照失败: conversation=%d err=%v", conversationID, err)
		return "", fmt.Errorf("上传对话快照失败: %w", err)
	}

	url, err := storage.GetPresignedURL(s.bucketName, objectName, s.urlExpiry)
	if err != nil {
		return "", fmt.Errorf("生成下载链接失败: %w", err)
	}

	log.Infof("[ExportService] 对话快照导出成功: conversation=%d object=%s", conversationID, objectName)
	return url, nil
}
