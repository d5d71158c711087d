package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/courseforge/backend/internal/config"
	"github.com/courseforge/backend/internal/model"
	"github.com/courseforge/backend/pkg/logger"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	// input beyond this is truncated before submission upstream
	maxSynthesisChars = 20000

	fallbackChunkWords     = 500
	fallbackMaxModules     = 6
	fallbackChunksPerGroup = 10
	fallbackMinTopics      = 8
	fallbackMaxTopics      = 15
)

const synthesisSystemPrompt = `You are an expert curriculum designer. Convert the provided content into a complete educational course. Return ONLY valid JSON matching this structure:
{
  "title": "Course Title",
  "description": "2-3 sentence description",
  "summary": "overall course summary",
  "modules": [
    {
      "moduleTitle": "Module Name",
      "moduleDescription": "1-2 sentence overview",
      "topics": [
        {
          "topicTitle": "Specific descriptive topic name, never generic like 'Topic 1'",
          "beginner": "beginner-level explanation, 400-600 words",
          "intermediate": "intermediate-level explanation, 500-800 words",
          "expert": "expert-level explanation, 700+ words",
          "examples": ["practical example"],
          "analogies": ["relatable analogy"],
          "summary": "2-3 sentence topic summary",
          "quiz": [{"questionText": "...", "type": "mcq|true_false|code", "options": ["A", "B"], "correctAnswer": 0, "explanation": "...", "difficulty": "beginner|intermediate|expert"}]
        }
      ],
      "quiz": []
    }
  ],
  "quiz": []
}
Generate 4-10 modules with 8-25 topics each, and 5-10 quiz questions per topic.`

// Used when the input is a broad topic request rather than source material:
// the model designs the curriculum itself instead of restructuring content.
const syllabusSystemPrompt = `You are an expert curriculum designer. The user has requested a comprehensive course on a broad topic. Analyze the topic and create a complete, detailed syllabus covering all essential aspects from fundamentals to advanced concepts: core ideas, a progressive learning path, real-world applications, best practices, common patterns and industry standards. Break it down into logical modules that build upon each other. Return ONLY valid JSON matching this structure:
{
  "title": "Course Title",
  "description": "2-3 sentence description",
  "summary": "overall course summary",
  "modules": [
    {
      "moduleTitle": "Module Name",
      "moduleDescription": "1-2 sentence overview",
      "topics": [
        {
          "topicTitle": "Specific descriptive topic name, never generic like 'Topic 1'",
          "beginner": "beginner-level explanation, 400-600 words",
          "intermediate": "intermediate-level explanation, 500-800 words",
          "expert": "expert-level explanation, 700+ words",
          "examples": ["practical example"],
          "analogies": ["relatable analogy"],
          "summary": "2-3 sentence topic summary",
          "quiz": [{"questionText": "...", "type": "mcq|true_false|code", "options": ["A", "B"], "correctAnswer": 0, "explanation": "...", "difficulty": "beginner|intermediate|expert"}]
        }
      ],
      "quiz": []
    }
  ],
  "quiz": []
}
Generate 4-10 modules with 8-25 topics each, and 5-10 quiz questions per topic.`

// synthesisPromptFor selects the system prompt: topic requests get the
// syllabus variant, everything else the content-conversion one.
func synthesisPromptFor(kind model.SourceKind) string {
	if kind == model.SourceTopic {
		return syllabusSystemPrompt
	}
	return synthesisSystemPrompt
}

// SynthesisService produces a structured course from plain text. When no
// upstream backend is configured, or the upstream call or its output is
// unusable, it substitutes the deterministic local builder. It never
// returns an error.
type SynthesisService struct {
	mu     sync.RWMutex
	client *openai.Client
	model  string
}

func NewSynthesisService(cfg config.AIConfig) *SynthesisService {
	s := &SynthesisService{}
	s.UpdateConfig(cfg)
	return s
}

// UpdateConfig swaps the upstream client, used on config hot reload.
func (s *SynthesisService) UpdateConfig(cfg config.AIConfig) {
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

// Synthesize builds a Course from text. Always succeeds.
func (s *SynthesisService) Synthesize(ctx context.Context, text string, kind model.SourceKind) *model.Course {
	s.mu.RLock()
	client, modelName := s.client, s.model
	s.mu.RUnlock()

	if client == nil {
		return BuildFallbackCourse(text)
	}

	if len(text) > maxSynthesisChars {
		text = truncateRunes(text, maxSynthesisChars) + " ... [content truncated for processing]"
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: synthesisPromptFor(kind)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		logger.Log.Warn("synthesis backend failed, using local builder", zap.Error(err))
		return BuildFallbackCourse(text)
	}
	if len(resp.Choices) == 0 {
		logger.Log.Warn("synthesis backend returned no choices, using local builder")
		return BuildFallbackCourse(text)
	}

	course, err := parseCourseDocument(resp.Choices[0].Message.Content)
	if err != nil {
		logger.Log.Warn("synthesis output unusable, using local builder", zap.Error(err))
		return BuildFallbackCourse(text)
	}
	return course
}

// Wire document as the upstream model is asked to produce it.
type courseDocument struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Summary     string           `json:"summary"`
	Modules     []moduleDocument `json:"modules"`
	Quiz        []quizDocument   `json:"quiz"`
}

type moduleDocument struct {
	Title       string          `json:"moduleTitle"`
	Description string          `json:"moduleDescription"`
	Topics      []topicDocument `json:"topics"`
	Quiz        []quizDocument  `json:"quiz"`
}

type topicDocument struct {
	Title        string         `json:"topicTitle"`
	Beginner     string         `json:"beginner"`
	Intermediate string         `json:"intermediate"`
	Expert       string         `json:"expert"`
	Examples     []string       `json:"examples"`
	Analogies    []string       `json:"analogies"`
	Summary      string         `json:"summary"`
	Quiz         []quizDocument `json:"quiz"`
}

type quizDocument struct {
	QuestionText  string   `json:"questionText"`
	Type          string   `json:"type"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
	Difficulty    string   `json:"difficulty"`
}

func parseCourseDocument(raw string) (*model.Course, error) {
	raw = stripCodeFence(raw)

	var doc courseDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("invalid course document: %w", err)
	}
	if strings.TrimSpace(doc.Title) == "" || len(doc.Modules) == 0 {
		return nil, fmt.Errorf("invalid course document: missing title or modules")
	}

	course := &model.Course{
		Title:       doc.Title,
		Description: doc.Description,
		Summary:     doc.Summary,
		Quiz:        convertQuiz(doc.Quiz),
	}
	for i, m := range doc.Modules {
		if len(m.Topics) == 0 {
			continue
		}
		mod := model.CourseModule{
			Title:       m.Title,
			Description: m.Description,
			Position:    i,
			Quiz:        convertQuiz(m.Quiz),
		}
		for j, t := range m.Topics {
			mod.Topics = append(mod.Topics, model.Topic{
				Title:            t.Title,
				BeginnerText:     t.Beginner,
				IntermediateText: t.Intermediate,
				ExpertText:       t.Expert,
				Examples:         datatypes.NewJSONSlice(t.Examples),
				Analogies:        datatypes.NewJSONSlice(t.Analogies),
				Summary:          t.Summary,
				Position:         j,
				Quiz:             convertQuiz(t.Quiz),
			})
		}
		course.Modules = append(course.Modules, mod)
	}
	if len(course.Modules) == 0 {
		return nil, fmt.Errorf("invalid course document: no usable modules")
	}
	return course, nil
}

// convertQuiz normalizes the wire form and drops items whose answer index
// does not point into their own options.
func convertQuiz(items []quizDocument) []model.QuizItem {
	var out []model.QuizItem
	for _, q := range items {
		if len(q.Options) == 0 || q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			continue
		}
		out = append(out, model.QuizItem{
			QuestionText:       q.QuestionText,
			Kind:               normalizeQuizKind(q.Type),
			Options:            datatypes.NewJSONSlice(q.Options),
			CorrectOptionIndex: q.CorrectAnswer,
			Explanation:        q.Explanation,
			Difficulty:         normalizeDifficulty(q.Difficulty),
			Position:           len(out),
		})
	}
	return out
}

func normalizeQuizKind(raw string) model.QuizKind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true_false", "truefalse":
		return model.QuizTrueFalse
	case "code":
		return model.QuizCode
	default:
		return model.QuizMultipleChoice
	}
}

func normalizeDifficulty(raw string) model.ExplanationLevel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "intermediate":
		return model.LevelIntermediate
	case "expert", "advanced":
		return model.LevelExpert
	default:
		return model.LevelBeginner
	}
}

func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}

// BuildFallbackCourse derives a course from the text alone: fixed-size word
// chunks become topic bodies, short sentences become topic titles. It
// produces a valid course for any input, including an empty string.
func BuildFallbackCourse(text string) *model.Course {
	words := strings.Fields(text)

	var chunks []string
	for i := 0; i < len(words); i += fallbackChunkWords {
		end := i + fallbackChunkWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	if len(chunks) == 0 {
		chunks = []string{"No source content was available for this course."}
	}

	titles := mineTopicTitles(text)

	course := &model.Course{
		Title:       "Generated Course",
		Description: "Course generated from uploaded content with structured explanations",
		Summary:     clip(text, 500),
		Quiz: []model.QuizItem{{
			QuestionText:       "What is the main topic of this course?",
			Kind:               model.QuizMultipleChoice,
			Options:            datatypes.NewJSONSlice([]string{"Topic A", "Topic B", "Topic C", "Topic D"}),
			CorrectOptionIndex: 0,
			Explanation:        "Based on the course content",
			Difficulty:         model.LevelIntermediate,
		}},
	}
	if course.Summary == "" {
		course.Summary = "Generated course."
	}

	moduleCount := (len(chunks) + fallbackChunksPerGroup - 1) / fallbackChunksPerGroup
	if moduleCount > fallbackMaxModules {
		moduleCount = fallbackMaxModules
	}
	if moduleCount < 1 {
		moduleCount = 1
	}

	for i := 0; i < moduleCount; i++ {
		start := i * fallbackChunksPerGroup
		end := start + fallbackChunksPerGroup
		if start >= len(chunks) {
			break
		}
		if end > len(chunks) {
			end = len(chunks)
		}
		group := chunks[start:end]

		topicCount := len(group)
		if topicCount < fallbackMinTopics {
			topicCount = fallbackMinTopics
		}
		if topicCount > fallbackMaxTopics {
			topicCount = fallbackMaxTopics
		}
		if len(words) == 0 {
			topicCount = 1
		}

		mod := model.CourseModule{
			Title:       fmt.Sprintf("Module %d", i+1),
			Description: fmt.Sprintf("Module %d covering important topics", i+1),
			Position:    i,
			Quiz: []model.QuizItem{{
				QuestionText:       fmt.Sprintf("Which concept belongs to module %d?", i+1),
				Kind:               model.QuizMultipleChoice,
				Options:            datatypes.NewJSONSlice([]string{"Option A", "Option B", "Option C", "Option D"}),
				CorrectOptionIndex: 0,
				Explanation:        "Based on the module content",
				Difficulty:         model.LevelBeginner,
			}},
		}

		for t := 0; t < topicCount; t++ {
			chunk := group[t%len(group)]
			title := fmt.Sprintf("Concept %d", t+1)
			if idx := t + i*fallbackMaxTopics; idx < len(titles) {
				title = titles[idx]
			}

			mod.Topics = append(mod.Topics, model.Topic{
				Title:            title,
				BeginnerText:     fmt.Sprintf("%s\n\n%s This beginner explanation introduces the concept in plain language.", title, clip(chunk, 200)),
				IntermediateText: fmt.Sprintf("%s\n\n%s This intermediate explanation adds technical detail and practical context.", title, clip(chunk, 350)),
				ExpertText:       fmt.Sprintf("%s\n\n%s This expert explanation covers internals, best practices and production considerations.", title, chunk),
				Examples:         datatypes.NewJSONSlice([]string{fmt.Sprintf("Example %d: %s", t+1, clip(chunk, 100))}),
				Analogies:        datatypes.NewJSONSlice([]string{fmt.Sprintf("Think of this like %s", clip(chunk, 80))}),
				Summary:          clip(chunk, 150),
				Position:         t,
				Quiz: []model.QuizItem{{
					QuestionText:       fmt.Sprintf("What is the main concept of %s?", title),
					Kind:               model.QuizMultipleChoice,
					Options:            datatypes.NewJSONSlice([]string{"Concept A", "Concept B", "Concept C", "Concept D"}),
					CorrectOptionIndex: 0,
					Explanation:        "Based on the topic content",
					Difficulty:         model.LevelBeginner,
				}},
			})
		}
		course.Modules = append(course.Modules, mod)
	}

	return course
}

// mineTopicTitles picks short sentences usable as headings.
func mineTopicTitles(text string) []string {
	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})

	var titles []string
	for _, s := range sentences {
		if len(titles) >= 50 {
			break
		}
		s = strings.TrimSpace(s)
		words := strings.Fields(s)
		if len(words) < 3 || len(words) > 8 {
			continue
		}
		n := len(words)
		if n > 6 {
			n = 6
		}
		title := strings.Join(words[:n], " ")
		if len(title) <= 10 || len(title) >= 60 {
			continue
		}
		titles = append(titles, strings.ToUpper(title[:1])+title[1:])
	}
	return titles
}

func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return truncateRunes(s, n) + "..."
}

// truncateRunes cuts s to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
