// Package grader produces automatic reviews for submissions whose task has
// auto-grading enabled: each recorded answer is transcribed, then the
// transcript set is scored against the question list.
package grader

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/intervox/intervox/internal/model"
)

// AutoReviewerID marks reviews produced by the grader rather than a person.
const AutoReviewerID = "auto-grader"

// Grader scores a submission's answers against its interview.
type Grader interface {
	Grade(ctx context.Context, iv model.Interview, answers []model.Answer) (model.Review, error)
}

// Transcript pairs a question index with the transcribed answer text.
type Transcript struct {
	QIndex int
	Text   string
}

type gradeResult struct {
	Score    float64 `json:"score"`
	Comments string  `json:"comments"`
}

// OpenAI grades via an OpenAI-compatible API: Whisper-style transcription
// for the audio answers, then a JSON-object chat completion for scoring.
type OpenAI struct {
	api             *openai.Client
	chatModel       string
	transcribeModel string
}

// NewOpenAI creates a grader against the given OpenAI-compatible endpoint.
func NewOpenAI(baseURL, apiKey, chatModel, transcribeModel string) *OpenAI {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAI{
		api:             openai.NewClientWithConfig(config),
		chatModel:       chatModel,
		transcribeModel: transcribeModel,
	}
}

// Ping verifies the endpoint is reachable before serving starts.
func (g *OpenAI) Ping(ctx context.Context) error {
	_, err := g.api.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("grader health check: %w", err)
	}
	return nil
}

// Grade transcribes each answer and scores the transcript set on a 0-10
// scale, returning the resulting review.
func (g *OpenAI) Grade(ctx context.Context, iv model.Interview, answers []model.Answer) (model.Review, error) {
	var transcripts []Transcript
	for _, a := range answers {
		resp, err := g.api.CreateTranscription(ctx, openai.AudioRequest{
			Model:    g.transcribeModel,
			FilePath: a.URI,
		})
		if err != nil {
			return model.Review{}, fmt.Errorf("transcribe answer %d: %w", a.QIndex, err)
		}
		transcripts = append(transcripts, Transcript{QIndex: a.QIndex, Text: resp.Text})
	}

	prompt := buildGradingPrompt(iv, transcripts)
	resp, err := g.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	})
	if err != nil {
		return model.Review{}, fmt.Errorf("grading API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return model.Review{}, fmt.Errorf("grading returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("grader response", "raw", raw)

	review, err := parseReview(raw)
	if err != nil {
		return model.Review{}, err
	}
	return review, nil
}

func buildGradingPrompt(iv model.Interview, transcripts []Transcript) string {
	var sb strings.Builder
	sb.WriteString("You are an interview reviewer. A candidate answered the questions below; ")
	sb.WriteString("each answer was transcribed from an audio recording.\n\n")
	sb.WriteString("INTERVIEW: " + iv.Title + "\n")
	if iv.Description != "" {
		sb.WriteString(iv.Description + "\n")
	}
	sb.WriteString("\n")

	byIndex := make(map[int]string, len(transcripts))
	for _, tr := range transcripts {
		byIndex[tr.QIndex] = tr.Text
	}
	for i, q := range iv.Questions {
		sb.WriteString(fmt.Sprintf("QUESTION %d: %s\n", i+1, q))
		if text, ok := byIndex[i]; ok {
			sb.WriteString("ANSWER: " + text + "\n\n")
		} else {
			sb.WriteString("ANSWER: (no answer recorded)\n\n")
		}
	}

	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Assess the answers for relevance, depth, and clarity.\n")
	sb.WriteString("- An unanswered question counts against the score.\n")
	sb.WriteString("- Score the whole submission from 0 to 10.\n")
	sb.WriteString("\nRespond ONLY with a JSON object:\n")
	sb.WriteString(`{"score": <number 0 to 10>, "comments": "<brief assessment>"}`)
	sb.WriteString("\n")

	return sb.String()
}

// parseReview decodes the grading response, clamping the score into [0,10]
// so a misbehaving model cannot produce an out-of-range review.
func parseReview(raw string) (model.Review, error) {
	var result gradeResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return model.Review{}, fmt.Errorf("parse grading response: %w (raw: %s)", err, raw)
	}
	if result.Score < 0 {
		result.Score = 0
	}
	if result.Score > 10 {
		result.Score = 10
	}
	return model.Review{
		Score:      result.Score,
		Comments:   result.Comments,
		ReviewerID: AutoReviewerID,
	}, nil
}
