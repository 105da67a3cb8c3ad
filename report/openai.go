package report

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultGraderModel = "gpt-4o-mini"

const graderSystemPrompt = `You are a language teacher reviewing the transcript of a spoken practice session. Lines prefixed "user:" are the learner; lines prefixed "agent:" are the practice partner. Grade only the learner. Reply with JSON matching exactly:
{"fluency":{"score":1-10,"comment":"..."},"vocabulary":{"score":1-10,"comment":"..."},"grammar":{"score":1-10,"comment":"..."},"overall":"one short paragraph of encouragement and the single most useful thing to work on"}`

// OpenAIGrader grades transcripts with a chat completion call.
type OpenAIGrader struct {
	client openai.Client
	model  string
}

// NewOpenAIGrader builds a grader. An empty model selects a small default.
func NewOpenAIGrader(apiKey, model string) *OpenAIGrader {
	if model == "" {
		model = defaultGraderModel
	}
	return &OpenAIGrader{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Grade sends the transcript for review and parses the structured reply.
func (g *OpenAIGrader) Grade(ctx context.Context, transcript string) (*Report, error) {
	if transcript == "" {
		return nil, ErrEmptyTranscript
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(graderSystemPrompt),
			openai.UserMessage(transcript),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("grade transcript: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("grade transcript: empty response")
	}
	return decodeReport(resp.Choices[0].Message.Content)
}
