package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/korjavin/quizbot/models"
	"go.uber.org/zap"
)

const (
	deepseekAPIURL = "https://api.deepseek.com/v1/chat/completions"
	apiTimeoutSec  = 60
)

// DeepseekClient manages interactions with Deepseek API
type DeepseekClient struct {
	apiKey string
	url    string
	http   *http.Client
	log    *zap.SugaredLogger
}

// NewDeepseekClient creates a new Deepseek API client
func NewDeepseekClient(apiKey string, log *zap.SugaredLogger) *DeepseekClient {
	return &DeepseekClient{
		apiKey: apiKey,
		url:    deepseekAPIURL,
		http:   &http.Client{Timeout: apiTimeoutSec * time.Second},
		log:    log,
	}
}

type deepseekMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type deepseekRequest struct {
	Model    string            `json:"model"`
	Messages []deepseekMessage `json:"messages"`
}

type deepseekResponseChoice struct {
	Message deepseekMessage `json:"message"`
}

type deepseekResponse struct {
	Choices []deepseekResponseChoice `json:"choices"`
	ID      string                   `json:"id,omitempty"`
}

// ExplainQuestion asks Deepseek why the correct alternative of a question is right
func (c *DeepseekClient) ExplainQuestion(ctx context.Context, quizTitle string, question models.Question) (string, error) {
	startTime := time.Now()

	reqJSON, err := json.Marshal(deepseekRequest{
		Model: "deepseek-chat",
		Messages: []deepseekMessage{
			{Role: "user", Content: buildPrompt(quizTitle, question)},
		},
	})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, apiTimeoutSec*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqJSON))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepseek request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var deepseekResp deepseekResponse
	if err := json.Unmarshal(body, &deepseekResp); err != nil {
		return "", fmt.Errorf("parse deepseek response: %w", err)
	}
	if len(deepseekResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in API response")
	}

	content := strings.TrimSpace(deepseekResp.Choices[0].Message.Content)
	c.log.Infow("deepseek explanation received",
		"quiz", quizTitle,
		"duration", time.Since(startTime),
		"length", len(content),
	)
	return content, nil
}

func buildPrompt(quizTitle string, question models.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "This is a question from the quiz %q.\n\n", quizTitle)
	fmt.Fprintf(&b, "Question: %s\n\nAlternatives:\n", question.Title)
	for i, alt := range question.Alternatives {
		fmt.Fprintf(&b, "%d. %s\n", i+1, alt)
	}
	fmt.Fprintf(&b, "\nThe correct answer is: %s\n\n", question.Alternatives[question.Correct])
	b.WriteString("Explain briefly why this answer is correct and give a short memory aid. Answer in plain text.")
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
