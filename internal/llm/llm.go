// Package llm wraps an OpenAI-compatible text-generation service. The
// remote is an untrusted collaborator: every structured response is
// fence-stripped, strictly decoded, and validated before use, and any
// deviation becomes a typed upstream error rather than a crash or a
// guessed partial structure.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/examhub/examhub/internal/apperr"
)

// GeneratedOption is one choice of a drafted question.
type GeneratedOption struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// GeneratedQuestion is a question drafted by the AI service.
type GeneratedQuestion struct {
	QuestionText string            `json:"question_text"`
	Options      []GeneratedOption `json:"options"`
	Difficulty   string            `json:"difficulty"`
}

// Evaluation is the AI's assessment of a free-text answer.
type Evaluation struct {
	Score        float64  `json:"score"`
	Feedback     string   `json:"feedback"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// DefaultRubric is applied when the caller supplies none.
const DefaultRubric = "Evaluate the accuracy, completeness, and clarity of the answer."

// Client wraps an OpenAI-compatible API client. A client constructed
// without an API key reports unavailable from every operation.
type Client struct {
	api   *openai.Client
	model string
}

// New creates an AI connector. baseURL may point at any OpenAI-compatible
// endpoint; an empty apiKey yields a client whose calls fail with a
// service-unavailable error.
func New(baseURL, apiKey, modelName string) *Client {
	if apiKey == "" {
		return &Client{model: modelName}
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Configured reports whether an API credential was supplied.
func (c *Client) Configured() bool { return c.api != nil }

// GenerateQuestions asks the service to draft count questions on a topic.
func (c *Client) GenerateQuestions(ctx context.Context, topic string, count int, difficulty, questionType string) ([]GeneratedQuestion, error) {
	raw, err := c.complete(ctx, buildGeneratePrompt(topic, count, difficulty, questionType), 0.7)
	if err != nil {
		return nil, err
	}

	var questions []GeneratedQuestion
	if err := strictUnmarshal(raw, &questions); err != nil {
		return nil, apperr.Upstream("failed to parse AI response", err)
	}
	if len(questions) == 0 {
		return nil, apperr.Upstream("failed to parse AI response", fmt.Errorf("empty question list"))
	}
	for i, q := range questions {
		if strings.TrimSpace(q.QuestionText) == "" {
			return nil, apperr.Upstream("failed to parse AI response", fmt.Errorf("question %d has no text", i))
		}
	}
	return questions, nil
}

// EvaluateAnswer asks the service to assess a student's free-text answer
// against a question and rubric. The returned feedback never alters an
// attempt's numeric score.
func (c *Client) EvaluateAnswer(ctx context.Context, questionText, answerText, rubric string) (*Evaluation, error) {
	if rubric == "" {
		rubric = DefaultRubric
	}
	raw, err := c.complete(ctx, buildEvaluatePrompt(questionText, answerText, rubric), 0.3)
	if err != nil {
		return nil, err
	}

	var eval Evaluation
	if err := strictUnmarshal(raw, &eval); err != nil {
		return nil, apperr.Upstream("failed to parse AI response", err)
	}
	if eval.Score < 0 || eval.Score > 100 {
		return nil, apperr.Upstream("failed to parse AI response", fmt.Errorf("score %v out of range", eval.Score))
	}
	if strings.TrimSpace(eval.Feedback) == "" {
		return nil, apperr.Upstream("failed to parse AI response", fmt.Errorf("empty feedback"))
	}
	return &eval, nil
}

// ExplainConcept requests a prose explanation. The response is returned
// verbatim, no JSON parsing.
func (c *Client) ExplainConcept(ctx context.Context, concept, level string) (string, error) {
	if level == "" {
		level = "intermediate"
	}
	return c.complete(ctx, buildExplainPrompt(concept, level), 0.7)
}

func (c *Client) complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	if c.api == nil {
		return "", apperr.Unavailable("AI service is not configured")
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", apperr.Upstream("AI service request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperr.Upstream("AI service request failed", fmt.Errorf("no choices returned"))
	}
	raw := resp.Choices[0].Message.Content
	slog.Debug("AI response", "raw", raw)
	return raw, nil
}

// strictUnmarshal fence-strips raw and decodes it into v, rejecting
// unknown fields and trailing content.
func strictUnmarshal(raw string, v any) error {
	dec := json.NewDecoder(strings.NewReader(stripFences(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("trailing content after JSON value")
	}
	return nil
}

// stripFences removes a leading ```json or ``` marker and a trailing ```
// from a model response.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func buildGeneratePrompt(topic string, count int, difficulty, questionType string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate %d %s questions about %q with %s difficulty level.\n\n", count, questionType, topic, difficulty)
	sb.WriteString("Format the response as a JSON array with this structure:\n")
	sb.WriteString(`[
  {
    "question_text": "Question here?",
    "options": [
      {"text": "Option A", "is_correct": false},
      {"text": "Option B", "is_correct": true},
      {"text": "Option C", "is_correct": false},
      {"text": "Option D", "is_correct": false}
    ],
`)
	fmt.Fprintf(&sb, "    %q: %q\n  }\n]\n\n", "difficulty", difficulty)
	sb.WriteString("Return ONLY the JSON array, no other text.")
	return sb.String()
}

func buildEvaluatePrompt(questionText, answerText, rubric string) string {
	var sb strings.Builder
	sb.WriteString("Evaluate the following student answer to an exam question.\n\n")
	sb.WriteString("Question: " + questionText + "\n\n")
	sb.WriteString("Student's Answer: " + answerText + "\n\n")
	sb.WriteString("Evaluation Criteria: " + rubric + "\n\n")
	sb.WriteString("Provide feedback in JSON format:\n")
	sb.WriteString(`{
  "score": 0-100,
  "feedback": "Detailed feedback",
  "strengths": ["strength1", "strength2"],
  "improvements": ["improvement1", "improvement2"]
}` + "\n\n")
	sb.WriteString("Return ONLY the JSON, no other text.")
	return sb.String()
}

func buildExplainPrompt(concept, level string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Explain the concept of '%s' at a %s level.\n\n", concept, level)
	sb.WriteString("Provide a clear, concise explanation with:\n")
	sb.WriteString("1. Definition\n2. Key points\n3. Real-world examples\n4. Related concepts\n\n")
	sb.WriteString("Keep the explanation suitable for a student learning this for the first time.")
	return sb.String()
}
