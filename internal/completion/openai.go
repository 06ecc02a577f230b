package completion

import (
	"context"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/GriffinCanCode/webaugment/internal/augment"
)

// OpenAIClient adapts any OpenAI-compatible chat endpoint (including
// local inference servers) to the Client interface.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates a streaming completion client.
func NewOpenAI(baseURL, apiKey, model string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Stream opens a chat completion stream and forwards deltas as chunks.
func (c *OpenAIClient) Stream(ctx context.Context, messages []augment.Message) (<-chan Chunk, error) {
	req := openai.ChatCompletionRequest{
		Model:  c.model,
		Stream: true,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				send(ctx, out, Chunk{Done: true})
				return
			}
			if err != nil {
				// Upstream abort maps to the stopped terminal chunk so
				// callers see a clean halt, not an error.
				send(ctx, out, Chunk{Stopped: true})
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			choice := resp.Choices[0]
			if choice.Delta.Content != "" {
				if !send(ctx, out, Chunk{Text: choice.Delta.Content}) {
					return
				}
			}
			if choice.FinishReason == openai.FinishReasonStop {
				send(ctx, out, Chunk{Done: true})
				return
			}
		}
	}()

	return out, nil
}

func send(ctx context.Context, out chan<- Chunk, c Chunk) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- c:
		return true
	}
}
