package intent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/webaugment/internal/augment"
	"github.com/GriffinCanCode/webaugment/internal/completion"
	"github.com/GriffinCanCode/webaugment/internal/infrastructure/logging"
)

// scriptedClient returns a fixed completion text, recording the request.
type scriptedClient struct {
	reply    string
	err      error
	stopped  bool
	requests [][]augment.Message
}

func (s *scriptedClient) Stream(ctx context.Context, messages []augment.Message) (<-chan completion.Chunk, error) {
	s.requests = append(s.requests, messages)
	if s.err != nil {
		return nil, s.err
	}
	out := make(chan completion.Chunk, 2)
	if s.stopped {
		out <- completion.Chunk{Stopped: true}
	} else {
		out <- completion.Chunk{Text: s.reply}
		out <- completion.Chunk{Done: true}
	}
	close(out)
	return out, nil
}

func newTestAnalyzer(client completion.Client) *Analyzer {
	return NewAnalyzer(client, logging.NewDefault())
}

func TestAnalyzeGreetingNeedsNoSearch(t *testing.T) {
	client := &scriptedClient{reply: `{"needsSearch": false, "keywords": []}`}
	a := newTestAnalyzer(client)

	intent := a.Analyze(context.Background(), "Hello, how are you?", nil)
	assert.False(t, intent.NeedsSearch)
	assert.Empty(t, intent.Keywords)
}

func TestAnalyzeWeatherQuestion(t *testing.T) {
	client := &scriptedClient{reply: `{"needsSearch": true, "keywords": ["Tokyo weather today"]}`}
	a := newTestAnalyzer(client)

	intent := a.Analyze(context.Background(), "What's the weather in Tokyo today?", nil)
	assert.True(t, intent.NeedsSearch)
	assert.Equal(t, "Tokyo weather today", intent.Query())
}

func TestAnalyzeFencedOutput(t *testing.T) {
	client := &scriptedClient{reply: "```json\n{\"needsSearch\": true, \"keywords\": [\"golang generics\"]}\n```"}
	a := newTestAnalyzer(client)

	intent := a.Analyze(context.Background(), "what's new with golang generics?", nil)
	assert.True(t, intent.NeedsSearch)
	assert.Equal(t, "golang generics", intent.Query())
}

func TestAnalyzeGarbageFallsBackToNoSearch(t *testing.T) {
	client := &scriptedClient{reply: "I am just a language model and cannot browse."}
	a := newTestAnalyzer(client)

	intent := a.Analyze(context.Background(), "latest iPhone price", nil)
	assert.False(t, intent.NeedsSearch)
}

func TestAnalyzeUpstreamErrorFallsBack(t *testing.T) {
	client := &scriptedClient{err: errors.New("connection refused")}
	a := newTestAnalyzer(client)

	intent := a.Analyze(context.Background(), "latest iPhone price", nil)
	assert.False(t, intent.NeedsSearch)
}

func TestAnalyzeStoppedStreamFallsBack(t *testing.T) {
	client := &scriptedClient{stopped: true}
	a := newTestAnalyzer(client)

	intent := a.Analyze(context.Background(), "latest iPhone price", nil)
	assert.False(t, intent.NeedsSearch)
}

func TestAnalyzeCancelledContext(t *testing.T) {
	client := &scriptedClient{reply: `{"needsSearch": true, "keywords": ["x"]}`}
	a := newTestAnalyzer(client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	intent := a.Analyze(ctx, "latest iPhone price", nil)
	assert.False(t, intent.NeedsSearch)
	assert.Empty(t, client.requests, "no request should be issued after cancellation")
}

func TestAnalyzeHistoryWindow(t *testing.T) {
	client := &scriptedClient{reply: `{"needsSearch": false}`}
	a := newTestAnalyzer(client)

	long := strings.Repeat("x", 500)
	var history []augment.Message
	for i := 0; i < 10; i++ {
		history = append(history, augment.Message{Role: "user", Content: long})
	}

	a.Analyze(context.Background(), "and now?", history)

	if assert.Len(t, client.requests, 1) {
		payload := client.requests[0][1].Content
		// 6 turns of at most 200 chars each, plus framing.
		assert.Less(t, len(payload), 6*(historyTurnChars+20)+100)
		assert.Contains(t, payload, "and now?")
	}
}

func TestAnalyzeMissingQueryFallsBackToMessage(t *testing.T) {
	client := &scriptedClient{reply: `{"needsSearch": true, "keywords": []}`}
	a := newTestAnalyzer(client)

	intent := a.Analyze(context.Background(), "who won the match?", nil)
	assert.True(t, intent.NeedsSearch)
	assert.Equal(t, "who won the match?", intent.Query())
}

func TestRefineQuerySoftFails(t *testing.T) {
	client := &scriptedClient{err: errors.New("down")}
	a := newTestAnalyzer(client)

	assert.Equal(t, "tokyo weather", a.RefineQuery(context.Background(), "tokyo weather"))
}

func TestRefineQueryUsesModelOutput(t *testing.T) {
	client := &scriptedClient{reply: `"Tokyo weather forecast August 31 2026"`}
	a := newTestAnalyzer(client)

	got := a.RefineQuery(context.Background(), "tokyo weather")
	assert.Equal(t, "Tokyo weather forecast August 31 2026", got)
}
