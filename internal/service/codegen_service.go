package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tenxdev/internal/repository"
)

// CodeGenerator produces a program in a language. Satisfied by the chat
// completions client below; tests substitute their own.
type CodeGenerator interface {
	Generate(ctx context.Context, program, language string) (string, error)
}

// ChatClient calls an OpenAI-compatible chat completions endpoint
type ChatClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewChatClient creates a chat completions client
func NewChatClient(baseURL, apiKey, model string) *ChatClient {
	return &ChatClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate asks the model for the most obfuscated working version of the
// requested program.
func (c *ChatClient) Generate(ctx context.Context, program, language string) (string, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: "You are a helpful assistant that generates code. When asked to write a program, you will write the most obfuscated, packed, and hard-to-read version that still functions correctly. Provide only the code without explanation.",
			},
			{
				Role:    "user",
				Content: fmt.Sprintf("Write %s in %s. Make it as obfuscated and packed as possible while ensuring it still works correctly.", program, language),
			},
		},
		Temperature: 0.7,
		MaxTokens:   2000,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("chat request failed: status %d: %s", resp.StatusCode, snippet)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("chat response contained no choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// CodegenService generates code for a user and records the call in their
// request history.
type CodegenService struct {
	generator   CodeGenerator
	requestRepo *repository.RequestRepository
}

// NewCodegenService creates a new codegen service
func NewCodegenService(generator CodeGenerator, requestRepo *repository.RequestRepository) *CodegenService {
	return &CodegenService{generator: generator, requestRepo: requestRepo}
}

// GenerateForUser produces code and returns it together with the user's
// updated request count.
func (s *CodegenService) GenerateForUser(ctx context.Context, userID int64, program, language string) (string, int64, error) {
	code, err := s.generator.Generate(ctx, program, language)
	if err != nil {
		return "", 0, err
	}

	prompt := fmt.Sprintf("%s in %s", program, language)
	if _, err := s.requestRepo.CreateRequest(userID, prompt, code); err != nil {
		return "", 0, err
	}

	count, err := s.requestRepo.CountByUser(userID)
	if err != nil {
		return "", 0, err
	}

	return code, count, nil
}
