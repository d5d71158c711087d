package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/courseforge/backend/internal/config"
	"github.com/courseforge/backend/internal/model"
	"github.com/courseforge/backend/pkg/logger"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const tutorSystemPrompt = `You are a helpful, knowledgeable tutor. You explain concepts clearly, provide examples, and help students understand course material. You adapt your explanations to the student's learning level. Keep responses concise but comprehensive (200-400 words).`

// TutorService answers questions about a topic the student is viewing.
// Like synthesis, it degrades to a canned reply rather than erroring when
// no upstream backend is available.
type TutorService struct {
	mu     sync.RWMutex
	client *openai.Client
	model  string
}

func NewTutorService(cfg config.AIConfig) *TutorService {
	s := &TutorService{}
	s.UpdateConfig(cfg)
	return s
}

func (s *TutorService) UpdateConfig(cfg config.AIConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg.APIKey == "" {
		s.client = nil
		return
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	s.client = openai.NewClientWithConfig(clientCfg)
	s.model = cfg.Model
}

// Chat answers the question in the context of the given topic at the given
// level. topicContext may be empty for course-wide questions.
func (s *TutorService) Chat(ctx context.Context, question, topicContext string, level model.ExplanationLevel) string {
	s.mu.RLock()
	client, modelName := s.client, s.model
	s.mu.RUnlock()

	if client == nil {
		return fallbackTutorReply(question, topicContext, level)
	}

	if len(topicContext) > maxSynthesisChars {
		topicContext = topicContext[:maxSynthesisChars]
	}
	userPrompt := fmt.Sprintf("Course context:\n%s\n\nStudent level: %s\n\nStudent question: %s",
		emptyAs(topicContext, "No specific context provided"), level, question)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: tutorSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil || len(resp.Choices) == 0 {
		logger.Log.Warn("tutor backend failed, using canned reply", zap.Error(err))
		return fallbackTutorReply(question, topicContext, level)
	}
	return resp.Choices[0].Message.Content
}

func fallbackTutorReply(question, topicContext string, level model.ExplanationLevel) string {
	lower := strings.ToLower(question)

	switch {
	case strings.Contains(lower, "explain") || strings.Contains(lower, "what is"):
		if topicContext != "" {
			return fmt.Sprintf("Here is a %s level view of the material you are reading:\n\n%s\n\nWould you like me to go deeper into any specific aspect?", level, clip(topicContext, 600))
		}
		return fmt.Sprintf("I can help explain this at a %s level, but I need a bit more context. Which topic are you currently studying?", level)
	case strings.Contains(lower, "example"):
		return "Examples help a lot here. Re-read the examples section of the current topic, then try restating each one in your own words. Which example would you like to discuss?"
	default:
		return fmt.Sprintf("I understand you are asking about %q. Could you tell me which part of the topic is unclear so I can focus my explanation?", question)
	}
}

func emptyAs(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
