// Package service 包含了应用的业务逻辑层。
package service

import (
	"strings"

	"brandmonitor-go/internal/config"
	"brandmonitor-go/internal/model"
)

// DetectedMention 是检测器对单次命中的完整描述，尚未绑定任何持久化标识。
type DetectedMention struct {
	MentionText    string               `json:"mentionText"`
	ContextWindow  string               `json:"contextWindow"`
	Position       int                  `json:"position"`
	MentionType    model.MentionType    `json:"mentionType"`
	SentimentScore float64              `json:"sentimentScore"`
	SentimentLabel model.SentimentLabel `json:"sentimentLabel"`
	RelevanceScore float64              `json:"relevanceScore"`
	Confidence     float64              `json:"confidence"`
}

// MentionDetector 定义了品牌提及检测操作。
// Detect 是纯函数：相同输入永远产出相同的有序结果，便于调用方做幂等重放。
type MentionDetector interface {
	// Detect 按给定顺序扫描各检索词，返回全部通过整词校验的命中。
	// 空白检索词被静默跳过；该方法对任何输入都不会失败。
	Detect(terms []string, text string) []DetectedMention
}

// mentionDetector 是基于词典与线索表的启发式实现。
// 所有判定表都来自注入的配置，替换为学习型实现时接口保持不变。
type mentionDetector struct {
	cfg config.AnalysisConfig
}

// NewMentionDetector 创建一个新的 MentionDetector 实例。
func NewMentionDetector(cfg config.AnalysisConfig) MentionDetector {
	return &mentionDetector{cfg: cfg}
}

// Detect 对响应文本执行有界线性扫描。
// 检索词来自用户可控的品牌配置，因此只做字面子串匹配，
// 绝不编译为任何模式语言，杜绝回溯爆炸与注入类问题。
func (d *mentionDetector) Detect(terms []string, text string) []DetectedMention {
	if text == "" {
		return nil
	}
	// 大小写折叠只处理 ASCII 字节，保证折叠前后字节偏移一一对应：
	// Unicode 小写化会改变字节长度（如 İ、Ⱥ），导致命中偏移回切原文时
	// 错位甚至越界。与 isWordChar 的 ASCII 词边界判定保持同一口径。
	lowerText := asciiLower(text)

	var mentions []DetectedMention
	for _, term := range terms {
		trimmed := strings.TrimSpace(term)
		if trimmed == "" {
			continue
		}
		lowerTerm := asciiLower(trimmed)

		matched := 0
		from := 0
		for matched < d.cfg.MaxMatchesPerTerm {
			idx := strings.Index(lowerText[from:], lowerTerm)
			if idx < 0 {
				break
			}
			pos := from + idx
			end := pos + len(lowerTerm)
			from = end

			// 整词校验：命中两侧紧邻的字符不能是字母、数字或下划线；
			// 文本边界视为有效的词边界。
			if !isWordBoundary(lowerText, pos-1) || !isWordBoundary(lowerText, end) {
				continue
			}
			matched++

			mentions = append(mentions, d.describeMatch(text, lowerText, lowerTerm, pos, end))
		}
	}
	return mentions
}

// describeMatch 为一次已接受的命中生成分类与评分。
func (d *mentionDetector) describeMatch(text, lowerText, lowerTerm string, pos, end int) DetectedMention {
	// 上下文窗口：命中两侧各取固定半径，按文本边界截断
	winStart := pos - d.cfg.ContextRadius
	if winStart < 0 {
		winStart = 0
	}
	winEnd := end + d.cfg.ContextRadius
	if winEnd > len(text) {
		winEnd = len(text)
	}
	window := text[winStart:winEnd]
	lowerWindow := lowerText[winStart:winEnd]

	score := d.scoreSentiment(lowerWindow)

	return DetectedMention{
		MentionText:    text[pos:end],
		ContextWindow:  window,
		Position:       pos,
		MentionType:    d.classifyMention(lowerWindow),
		SentimentScore: score,
		SentimentLabel: model.SentimentLabelForScore(score),
		RelevanceScore: d.scoreRelevance(lowerWindow, lowerTerm),
		Confidence:     d.cfg.DefaultConfidence,
	}
}

// classifyMention 按优先级顺序逐条检查线索规则，首个命中者胜出。
// 没有任何线索命中时归为 direct。
func (d *mentionDetector) classifyMention(lowerWindow string) model.MentionType {
	for _, rule := range d.cfg.CueRules {
		for _, phrase := range rule.Phrases {
			if strings.Contains(lowerWindow, phrase) {
				return model.MentionType(rule.Type)
			}
		}
	}
	return model.MentionTypeDirect
}

// scoreSentiment 对窗口做词典打分：正向词每次出现 +0.1，负向词 -0.1，
// 结果收敛到 [-1, 1]。
func (d *mentionDetector) scoreSentiment(lowerWindow string) float64 {
	score := 0.0
	for _, w := range d.cfg.PositiveWords {
		score += 0.1 * float64(strings.Count(lowerWindow, w))
	}
	for _, w := range d.cfg.NegativeWords {
		score -= 0.1 * float64(strings.Count(lowerWindow, w))
	}
	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}
	return score
}

// scoreRelevance 以 0.5 为基准，检索词的每个词元在窗口内每出现一次 +0.1，
// 上限 1.0。
func (d *mentionDetector) scoreRelevance(lowerWindow, lowerTerm string) float64 {
	relevance := 0.5
	for _, word := range strings.Fields(lowerTerm) {
		relevance += 0.1 * float64(strings.Count(lowerWindow, word))
	}
	if relevance > 1 {
		relevance = 1
	}
	return relevance
}

// asciiLower 逐字节小写化 ASCII 大写字母，其余字节原样保留。
// 产出与输入字节长度恒等，因此在小写文本上求得的偏移可以
// 直接回切原文。
func asciiLower(s string) string {
	hasUpper := false
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return s
	}
	b := []byte(s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

// isWordBoundary 判断位置 i 处是否构成词边界。越界位置视为边界。
func isWordBoundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	return !isWordChar(s[i])
}

// isWordChar 判断字节是否属于"词字符"：字母、数字或下划线。
func isWordChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
