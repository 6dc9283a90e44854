package persona

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sashabaranov/go-openai"
	"smart-employee/backend/internal/store"
	"smart-employee/backend/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxAnalysisRunes caps how much document text goes to one analysis channel
const maxAnalysisRunes = 3000

const logicPrompt = `你是一个逻辑思维分析专家。请对以下文本进行"正向逻辑提取"。

任务步骤：
1. **过滤**：剔除情绪化抱怨、被动推诿、模糊不清及无关的废话。只保留建设性观点、解决问题的路径及核心论点。
2. **提取**：分析保留内容的逻辑结构。如果是提出解决方案、拆解目标、建设性复盘等，请提取其思维链。

输出格式：
请直接输出结构化的思维模板字符串，例如："发现问题 -> 列举数据 -> 提出三套方案 -> 推荐最优解"。
如果文本中没有明显的正向逻辑，请输出："未检测到明显的正向解决问题逻辑"。`

const tonePrompt = `你是一个语言风格分析师。请分析以下文本的"语气与修辞特征"。

分析维度：
- 常用连接词（如"以此类推"、"综上所述"）
- 句式长度与结构
- 专业术语密度
- 情感色彩（严肃/活泼/激进/保守）

输出格式：
请生成一段关于该用户语言风格的简短描述（100字以内），并尝试提取3-5个"Few-shot Examples"（少样本示例）格式的特征关键词。`

const questionPrompt = `请生成40道中文逻辑测试题目，用于评估职业能力倾向。

题库设计标准：
1. 结合MBTI进阶版与华生-格拉泽批判性思维测试。
2. 覆盖以下维度（每维度10题）：
   - 分析决策风格（激进 vs 保守）
   - 信息处理方式（直觉 vs 实感）
   - 沟通倾向（直接 vs 委婉）
   - 逻辑闭环能力（高 vs 低）

输出格式要求：
请直接返回一个JSON数组，不要包含markdown格式或其他文字。
数组中每个元素包含：
- "id": 整数序号
- "text": 题目描述（中文）
- "dimension": 所属维度
- "options": 选项列表，每个选项包含 "text" (描述) 和 "score" (分数，1-5分)`

// Analysis is the document-derived persona profile: a tone descriptor and a
// logic-chain descriptor, consumed downstream as opaque strings
type Analysis struct {
	Tone  string `json:"tone"`
	Logic string `json:"logic"`
}

// Analyzer derives persona traits from documents and maintains the
// logic-test question bank
type Analyzer struct {
	client        *openai.Client
	model         string
	fallbackModel string
	logger        *zap.Logger
}

// NewAnalyzer creates a new persona analyzer
func NewAnalyzer(baseURL, apiKey, model, fallbackModel string) *Analyzer {
	if apiKey == "" {
		apiKey = "dummy-key"
	}
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &Analyzer{
		client:        openai.NewClientWithConfig(config),
		model:         model,
		fallbackModel: fallbackModel,
		logger:        logger.Get(),
	}
}

// AnalyzeDocument runs the two analysis channels (tone & rhetoric, positive
// logic) concurrently over the same text and returns both descriptors.
func (a *Analyzer) AnalyzeDocument(ctx context.Context, text string) (*Analysis, error) {
	analysis := &Analysis{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result, err := a.callChannel(gctx, logicPrompt, text)
		if err != nil {
			return err
		}
		analysis.Logic = result
		return nil
	})
	g.Go(func() error {
		result, err := a.callChannel(gctx, tonePrompt, text)
		if err != nil {
			return err
		}
		analysis.Tone = result
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	a.logger.Info("Document analysis completed",
		zap.Int("text_length", len(text)),
	)
	return analysis, nil
}

func (a *Analyzer) callChannel(ctx context.Context, systemPrompt, text string) (string, error) {
	runes := []rune(text)
	if len(runes) > maxAnalysisRunes {
		runes = runes[:maxAnalysisRunes]
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.fallbackModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(runes)},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// ScoreLogicTest maps a logic-test total score to a base logic type
func ScoreLogicTest(totalScore int) string {
	if totalScore > 15 {
		return "数据驱动型"
	}
	return "直觉经验型"
}

// generatedQuestion mirrors the LLM's question JSON shape
type generatedQuestion struct {
	ID        int64           `json:"id"`
	Text      string          `json:"text"`
	Dimension string          `json:"dimension"`
	Options   json.RawMessage `json:"options"`
}

// GenerateQuestions asks the LLM for a fresh 40-item question bank.
// Returns an empty slice when the reply contains no usable JSON.
func (a *Analyzer) GenerateQuestions(ctx context.Context) ([]store.Question, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "你是一个专业的心理测量学家和职业规划专家。"},
			{Role: openai.ChatMessageRoleUser, Content: questionPrompt},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return []store.Question{}, nil
	}

	return ParseQuestions(resp.Choices[0].Message.Content), nil
}

// ParseQuestions converts the raw LLM reply (possibly fenced in markdown)
// into question records
func ParseQuestions(raw string) []store.Question {
	content := raw
	if strings.Contains(content, "```json") {
		content = strings.SplitN(content, "```json", 2)[1]
		content = strings.SplitN(content, "```", 2)[0]
	} else if strings.Contains(content, "```") {
		parts := strings.SplitN(content, "```", 3)
		if len(parts) >= 2 {
			content = parts[1]
		}
	}

	var generated []generatedQuestion
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &generated); err != nil {
		return []store.Question{}
	}

	questions := make([]store.Question, 0, len(generated))
	for _, q := range generated {
		options := "[]"
		if len(q.Options) > 0 {
			options = string(q.Options)
		}
		questions = append(questions, store.Question{
			ID:        q.ID,
			Text:      q.Text,
			Options:   options,
			Dimension: q.Dimension,
		})
	}
	return questions
}
