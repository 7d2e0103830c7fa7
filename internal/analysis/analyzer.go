// File path: internal/analysis/analyzer.go
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/linkwise/linkwise/internal/common"
)

// Insights carries the classification tags derived from one piece of content.
// All fields are best-effort; callers substitute defaults for anything empty.
type Insights struct {
	TopicCluster    string   `json:"topic_cluster"`
	RelatedClusters []string `json:"related_clusters,omitempty"`
	FunnelStage     string   `json:"funnel_stage"`
	TargetPersona   string   `json:"target_persona"`
	DifficultyLevel int      `json:"difficulty_level"`
	QualityScore    int      `json:"quality_score"`
	TopicTags       []string `json:"topic_tags,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
}

// Analyzer classifies content into the business metadata the scorer consumes.
type Analyzer interface {
	Analyze(ctx context.Context, title, content string) (Insights, error)
	Name() string
}

// NewFromEnv selects the OpenAI analyzer when credentials are configured and
// the heuristic analyzer otherwise.
func NewFromEnv() Analyzer {
	logger := common.Logger()
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		logger.Warn("analysis: OPENAI_API_KEY not set; falling back to heuristic analyzer")
		return NewHeuristicAnalyzer()
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if endpoint := strings.TrimSpace(os.Getenv("OPENAI_ENDPOINT")); endpoint != "" {
		opts = append(opts, option.WithBaseURL(endpoint))
	}
	if timeoutStr := strings.TrimSpace(os.Getenv("OPENAI_HTTP_TIMEOUT")); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil {
			opts = append(opts, option.WithRequestTimeout(timeout))
		}
	}
	client := openai.NewClient(opts...)
	model := strings.TrimSpace(os.Getenv("OPENAI_CHAT_MODEL"))
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	logger.Info("analysis: OpenAI analyzer configured", "model", model)
	return &OpenAIAnalyzer{client: &client, model: model}
}

const analysisSystemPrompt = `You classify long-form web content for an internal linking system.
Respond with a single JSON object and nothing else, using exactly these keys:
topic_cluster (short kebab-case string), related_clusters (array of strings),
funnel_stage (one of "awareness", "consideration", "decision"),
target_persona (short string, "general" when unclear),
difficulty_level (integer 1-3), quality_score (integer 0-100),
topic_tags (array of strings), keywords (array of strings).`

// OpenAIAnalyzer asks a chat model for structured tags.
type OpenAIAnalyzer struct {
	client *openai.Client
	model  string
}

func (a *OpenAIAnalyzer) Analyze(ctx context.Context, title, content string) (Insights, error) {
	if a == nil || a.client == nil {
		return Insights{}, fmt.Errorf("nil openai client")
	}
	logger := common.Logger()
	prompt := buildPrompt(title, content)
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(analysisSystemPrompt),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		logger.Error("analysis: chat completion failed", "error", err)
		return Insights{}, err
	}
	if len(resp.Choices) == 0 {
		return Insights{}, fmt.Errorf("no choices returned")
	}
	insights, err := parseInsights(resp.Choices[0].Message.Content)
	if err != nil {
		logger.Warn("analysis: unparseable model output", "error", err)
		return Insights{}, err
	}
	insights.normalize()
	return insights, nil
}

func (a *OpenAIAnalyzer) Name() string {
	return "openai"
}

const maxPromptContent = 6000

func buildPrompt(title, content string) string {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) > maxPromptContent {
		trimmed = trimmed[:maxPromptContent]
	}
	return fmt.Sprintf("Title: %s\n\nContent:\n%s", strings.TrimSpace(title), trimmed)
}

// parseInsights tolerates code fences and leading prose around the JSON body.
func parseInsights(raw string) (Insights, error) {
	cleaned := strings.TrimSpace(raw)
	if start := strings.Index(cleaned, "{"); start >= 0 {
		if end := strings.LastIndex(cleaned, "}"); end > start {
			cleaned = cleaned[start : end+1]
		}
	}
	var insights Insights
	if err := json.Unmarshal([]byte(cleaned), &insights); err != nil {
		return Insights{}, fmt.Errorf("decode analysis output: %w", err)
	}
	return insights, nil
}

func (i *Insights) normalize() {
	i.TopicCluster = strings.ToLower(strings.TrimSpace(i.TopicCluster))
	i.FunnelStage = strings.ToLower(strings.TrimSpace(i.FunnelStage))
	switch i.FunnelStage {
	case "awareness", "consideration", "decision":
	default:
		i.FunnelStage = "awareness"
	}
	i.TargetPersona = strings.ToLower(strings.TrimSpace(i.TargetPersona))
	if i.TargetPersona == "" {
		i.TargetPersona = "general"
	}
	if i.DifficultyLevel < 1 {
		i.DifficultyLevel = 1
	}
	if i.DifficultyLevel > 3 {
		i.DifficultyLevel = 3
	}
	if i.QualityScore < 0 {
		i.QualityScore = 0
	}
	if i.QualityScore > 100 {
		i.QualityScore = 100
	}
}
