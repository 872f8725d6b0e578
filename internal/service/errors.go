// Package service 包含了应用的业务逻辑层。
package service

import "errors"

// 业务错误分类。handler 层据此映射 HTTP 状态码：
// NotFound 类 → 404，ErrInvalidInput → 400，其余 → 500。
var (
	ErrBrandNotFound        = errors.New("品牌不存在")
	ErrConversationNotFound = errors.New("对话不存在")
	// ErrConversationInactive 仅在 analysis.reject_inactive_turns 开启时返回。
	ErrConversationInactive = errors.New("对话已停用，不再接受新轮次")
	ErrInvalidInput         = errors.New("无效的输入")
)
