package completion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/webaugment/internal/augment"
)

// chanClient replays a canned chunk sequence.
type chanClient struct {
	chunks []Chunk
}

func (c *chanClient) Stream(ctx context.Context, messages []augment.Message) (<-chan Chunk, error) {
	out := make(chan Chunk, len(c.chunks))
	for _, ch := range c.chunks {
		out <- ch
	}
	close(out)
	return out, nil
}

func TestCollectJoinsChunksUntilDone(t *testing.T) {
	client := &chanClient{chunks: []Chunk{
		{Text: `{"needsSearch":`},
		{Text: `true}`},
		{Done: true},
	}}

	text, err := Collect(context.Background(), client, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"needsSearch":true}`, text)
}

func TestCollectStopped(t *testing.T) {
	client := &chanClient{chunks: []Chunk{
		{Text: "partial"},
		{Stopped: true},
	}}

	_, err := Collect(context.Background(), client, nil)
	assert.ErrorIs(t, err, ErrStopped)
}

func TestCollectClosedWithoutTerminal(t *testing.T) {
	client := &chanClient{chunks: []Chunk{{Text: "tail"}}}

	text, err := Collect(context.Background(), client, nil)
	require.NoError(t, err)
	assert.Equal(t, "tail", text)
}

func TestCollectHonorsCancellation(t *testing.T) {
	blocked := make(chan Chunk)
	client := clientFunc(func(ctx context.Context, _ []augment.Message) (<-chan Chunk, error) {
		return blocked, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := Collect(ctx, client, nil)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Collect did not return after cancellation")
	}
}

type clientFunc func(ctx context.Context, messages []augment.Message) (<-chan Chunk, error)

func (f clientFunc) Stream(ctx context.Context, messages []augment.Message) (<-chan Chunk, error) {
	return f(ctx, messages)
}
