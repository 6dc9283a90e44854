package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"smart-employee/backend/internal/graph"
	"smart-employee/backend/internal/identity"
	apperrors "smart-employee/backend/pkg/errors"
	"smart-employee/backend/pkg/logger"
	"go.uber.org/zap"
)

// maxDocumentRunes caps how much of a document is sent to the LLM
const maxDocumentRunes = 2000

const extractionSystemPrompt = "你是一个知识图谱构建专家。"

const extractionPromptTemplate = `分析以下文档内容，提取关键实体和它们之间的关系。

文档内容：
%s

请以JSON格式返回，包含：
1. entities: 实体列表，每个实体包含 id, type, name
2. relationships: 关系列表，每个关系包含 from_id, to_id, type

示例格式：
{
    "entities": [
        {"id": "e1", "type": "Person", "name": "张三"},
        {"id": "e2", "type": "Company", "name": "ABC公司"}
    ],
    "relationships": [
        {"from_id": "e1", "to_id": "e2", "type": "WORKS_AT"}
    ]
}

只返回JSON，不要其他说明。`

// Client extracts graph structure from document text via an
// OpenRouter-compatible chat endpoint
type Client struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewClient creates a new extraction client
func NewClient(baseURL, apiKey, model string) *Client {
	if apiKey == "" {
		apiKey = "dummy-key"
	}
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
		logger: logger.Get(),
	}
}

// ExtractGraph asks the LLM for entities and relationships in the text,
// assigns stable content-derived ids and deduplicates the batch. Extraction
// failures degrade to an empty graph so the surrounding upload still
// succeeds with zero counts.
func (c *Client) ExtractGraph(ctx context.Context, text string) ([]graph.Node, []graph.Relationship) {
	runes := []rune(text)
	if len(runes) > maxDocumentRunes {
		runes = runes[:maxDocumentRunes]
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(extractionPromptTemplate, string(runes))},
		},
		Temperature: 0.3,
	})
	if err != nil {
		c.logger.Error("Extraction request failed, returning empty graph", zap.Error(err))
		return []graph.Node{}, []graph.Relationship{}
	}
	if len(resp.Choices) == 0 {
		c.logger.Warn("Extraction response had no choices")
		return []graph.Node{}, []graph.Relationship{}
	}

	content := resp.Choices[0].Message.Content
	nodes, rels := ParsePayload(content)
	if len(nodes) == 0 && len(rels) == 0 && strings.TrimSpace(content) != "" {
		c.logger.Warn("Extraction reply had no usable graph",
			zap.Error(apperrors.NewMalformedExtraction(nil)),
			zap.Int("reply_length", len(content)),
		)
	}
	c.logger.Info("Extracted graph from document",
		zap.Int("entities", len(nodes)),
		zap.Int("relationships", len(rels)),
	)
	return nodes, rels
}

// payload is the structural contract with the extraction collaborator.
// Only field presence is validated; semantic correctness is the LLM's problem.
type payload struct {
	Entities      []identity.Entity       `json:"entities"`
	Relationships []identity.Relationship `json:"relationships"`
}

// ParsePayload converts the raw LLM reply into deduplicated graph nodes and
// relationships with stable ids. A reply with no usable JSON yields empty
// sets, never an error.
func ParsePayload(raw string) ([]graph.Node, []graph.Relationship) {
	var p payload

	// The model sometimes wraps JSON in prose or code fences;
	// slice from the first brace to the last.
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return []graph.Node{}, []graph.Relationship{}
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &p); err != nil {
		return []graph.Node{}, []graph.Relationship{}
	}

	deduped := identity.DedupeEntities(p.Entities)
	remapped := identity.RemapRelationships(p.Entities, p.Relationships)

	nodes := make([]graph.Node, 0, len(deduped))
	for _, e := range deduped {
		name := e.Name
		if name == "" {
			name = e.ID
		}
		nodes = append(nodes, graph.Node{
			ID:    e.ID,
			Label: e.Type,
			Name:  name,
		})
	}

	seen := make(map[string]bool, len(remapped))
	rels := make([]graph.Relationship, 0, len(remapped))
	for _, r := range remapped {
		relType := r.Type
		if relType == "" {
			relType = "RELATED_TO"
		}
		key := r.FromID + "\x00" + r.ToID + "\x00" + relType
		if seen[key] {
			continue
		}
		seen[key] = true
		rels = append(rels, graph.Relationship{
			From: r.FromID,
			To:   r.ToID,
			Type: relType,
		})
	}

	return nodes, rels
}
