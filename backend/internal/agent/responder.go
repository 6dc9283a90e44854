package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"smart-employee/backend/internal/graph"
	"smart-employee/backend/internal/store"
	apperrors "smart-employee/backend/pkg/errors"
	"smart-employee/backend/pkg/logger"
	"go.uber.org/zap"
)

// Responder answers questions while role-playing an employee's persona,
// grounding its replies in knowledge-graph search context
type Responder struct {
	client *openai.Client
	model  string
	graph  *graph.Repository
	store  *store.Store
	logger *zap.Logger
}

// NewResponder creates a new persona chat responder
func NewResponder(baseURL, apiKey, model string, repo *graph.Repository, st *store.Store) *Responder {
	if apiKey == "" {
		apiKey = "dummy-key"
	}
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &Responder{
		client: openai.NewClientWithConfig(config),
		model:  model,
		graph:  repo,
		store:  st,
		logger: logger.Get(),
	}
}

// Respond searches the user's subgraphs for context relevant to the question
// and asks the LLM to answer as the persona
func (r *Responder) Respond(ctx context.Context, userID int64, question string) (string, error) {
	employee, err := r.store.GetEmployee(userID)
	if err != nil {
		return "", err
	}

	// Missing persona means "not analysed yet", not a hard failure
	persona, err := r.store.GetPersona(userID)
	if err != nil && !apperrors.IsNotFound(err) {
		return "", err
	}

	subgraphs, err := r.store.ListSubgraphs(userID)
	if err != nil {
		return "", err
	}

	graphContext := ""
	if len(subgraphs) > 0 {
		ids := make([]int64, 0, len(subgraphs))
		for _, sg := range subgraphs {
			ids = append(ids, sg.ID)
		}
		result, err := r.graph.SearchComprehensive(ctx, userID, ids, question)
		if err != nil {
			return "", err
		}
		graphContext = FormatContext(result)
	}

	systemPrompt := BuildSystemPrompt(employee, persona, graphContext)

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in chat response")
	}

	r.logger.Debug("Persona chat answered",
		zap.Int64("user_id", userID),
		zap.Bool("had_graph_context", graphContext != ""),
	)
	return resp.Choices[0].Message.Content, nil
}

// BuildSystemPrompt assembles the role-play prompt: who the employee is, how
// they reason and speak, and what the knowledge graph knows about the topic
func BuildSystemPrompt(employee *store.Employee, persona *store.Persona, graphContext string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "你现在扮演智慧员工\"%s\"", employee.Name)
	if employee.Role != "" {
		fmt.Fprintf(&b, "，职位是%s", employee.Role)
	}
	if employee.Domain != "" {
		fmt.Fprintf(&b, "，专业领域是%s", employee.Domain)
	}
	b.WriteString("。请始终以第一人称回答问题。\n")

	if persona != nil {
		if persona.BaseLogicType != nil && *persona.BaseLogicType != "" {
			fmt.Fprintf(&b, "\n## 思维类型\n%s\n", *persona.BaseLogicType)
		}
		if persona.ExtractedPositiveLogic != nil && *persona.ExtractedPositiveLogic != "" {
			fmt.Fprintf(&b, "\n## 思维链模板\n回答时遵循以下逻辑结构：\n%s\n", *persona.ExtractedPositiveLogic)
		}
		if persona.ExtractedToneStyle != nil && *persona.ExtractedToneStyle != "" {
			fmt.Fprintf(&b, "\n## 语气与修辞风格\n%s\n", *persona.ExtractedToneStyle)
		}
	}

	if graphContext != "" {
		fmt.Fprintf(&b, "\n## 知识图谱上下文\n以下是与问题相关的已知信息，按相关度从高到低排列，请优先依据这些信息回答：\n%s\n", graphContext)
	}

	b.WriteString("\n如果已知信息不足以回答问题，请如实说明，不要编造。")
	return b.String()
}

// FormatContext renders search results as prompt context. Results arrive
// sorted by match precedence, so higher-confidence matches surface first.
func FormatContext(result *graph.SearchResult) string {
	if result == nil || (len(result.Nodes) == 0 && len(result.Relationships) == 0) {
		return ""
	}

	var b strings.Builder

	if len(result.Nodes) > 0 {
		b.WriteString("实体：\n")
		for _, n := range result.Nodes {
			fmt.Fprintf(&b, "- %s（类型：%s，匹配方式：%s）\n", n.Name, n.Label, n.MatchType)
		}
	}

	if len(result.Relationships) > 0 {
		b.WriteString("关系：\n")
		for _, rel := range result.Relationships {
			from := rel.FromName
			if from == "" {
				from = rel.From
			}
			to := rel.ToName
			if to == "" {
				to = rel.To
			}
			fmt.Fprintf(&b, "- %s -[%s]-> %s\n", from, rel.Type, to)
		}
	}

	return b.String()
}
