package completion

import (
	"context"
	"errors"
	"strings"

	"github.com/GriffinCanCode/webaugment/internal/augment"
)

// ErrStopped reports that the completion was halted upstream before the
// terminal chunk arrived.
var ErrStopped = errors.New("completion stopped before finishing")

// Chunk is one increment of streamed completion output. Exactly one
// terminal chunk (Done or Stopped) closes a stream.
type Chunk struct {
	Text    string
	Done    bool
	Stopped bool
}

// Client streams completion output for an ordered list of role-tagged
// messages. The channel is closed after the terminal chunk.
type Client interface {
	Stream(ctx context.Context, messages []augment.Message) (<-chan Chunk, error)
}

// Collect folds a completion stream into its final text. It returns
// ErrStopped when the stream was halted upstream and the context error
// when the caller cancelled; partial text is discarded in both cases.
func Collect(ctx context.Context, client Client, messages []augment.Message) (string, error) {
	stream, err := client.Stream(ctx, messages)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case chunk, ok := <-stream:
			if !ok {
				// Stream closed without a terminal chunk; treat what
				// arrived as the final text.
				return sb.String(), nil
			}
			if chunk.Stopped {
				return "", ErrStopped
			}
			sb.WriteString(chunk.Text)
			if chunk.Done {
				return sb.String(), nil
			}
		}
	}
}
