package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	defaultChatModelName      = "gemini-1.5-flash-latest"
	defaultEmbeddingModelName = "text-embedding-004"
)

var errEmptyGeneration = errors.New("model returned no text")

// GenerationRequest is everything the model sees for one reply.
type GenerationRequest struct {
	SystemInstruction string
	History           []Turn
	Message           string
}

type LLMService struct {
	client         *genai.Client
	chatModel      string
	embeddingModel string
	logger         *zap.Logger
}

func NewLLMService(ctx context.Context, apiKey, chatModel, embeddingModel string, logger *zap.Logger) (*LLMService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if chatModel == "" {
		chatModel = defaultChatModelName
	}
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModelName
	}

	return &LLMService{
		client:         client,
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		logger:         logger,
	}, nil
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.logger.Warn("error closing GenAI client", zap.Error(err))
		}
	}
}

func (s *LLMService) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	em := s.client.EmbeddingModel(s.embeddingModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}

	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding data received from gemini")
	}
	return res.Embedding.Values, nil
}

// safetySettings blocks harassment and hate speech from "low" probability up.
func safetySettings() []*genai.SafetySetting {
	return []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockLowAndAbove},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockLowAndAbove},
	}
}

// Generate runs one chat completion. A blocked or empty answer is an error.
func (s *LLMService) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	model := s.client.GenerativeModel(s.chatModel)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(req.SystemInstruction)},
	}
	model.SafetySettings = safetySettings()

	chatSession := model.StartChat()
	for _, turn := range req.History {
		chatSession.History = append(chatSession.History, &genai.Content{
			Role:  turn.Role,
			Parts: []genai.Part{genai.Text(turn.Content)},
		})
	}

	resp, err := chatSession.SendMessage(ctx, genai.Text(req.Message))
	if err != nil {
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return "", errEmptyGeneration
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(responseText.String())
}
