package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/webaugment/internal/augment"
	"github.com/GriffinCanCode/webaugment/internal/completion"
	"github.com/GriffinCanCode/webaugment/internal/infrastructure/logging"
)

const (
	// historyTurns bounds how much conversation context rides along with
	// the classification request.
	historyTurns = 6
	// historyTurnChars truncates each history turn before inclusion.
	historyTurnChars = 200
)

const classifyInstruction = `You are a search-intent classifier for a chat assistant.
Decide whether answering the user's latest message requires live web information
(current events, prices, weather, schedules, product or version facts, anything
time-sensitive or outside general knowledge). Respond with ONLY a JSON object:
{"needsSearch": true|false, "keywords": ["<one concise search query>"], "links": ["<url mentioned by the user, if any>"]}
Use an empty keywords array when no search is needed. No prose, no markdown.`

// Analyzer classifies user turns via the external completion service.
type Analyzer struct {
	client completion.Client
	logger *logging.Logger
	now    func() time.Time
}

// NewAnalyzer creates an intent analyzer.
func NewAnalyzer(client completion.Client, logger *logging.Logger) *Analyzer {
	return &Analyzer{
		client: client,
		logger: logger.Named("intent"),
		now:    time.Now,
	}
}

// Analyze classifies one user turn. It never fails: malformed model
// output, upstream stops and cancellation all collapse to "no search
// needed" so the surrounding conversation is unaffected.
func (a *Analyzer) Analyze(ctx context.Context, userMessage string, history []augment.Message) augment.SearchIntent {
	none := augment.SearchIntent{NeedsSearch: false}

	if strings.TrimSpace(userMessage) == "" {
		return none
	}
	if ctx.Err() != nil {
		return none
	}

	messages := []augment.Message{
		{Role: "system", Content: classifyInstruction},
		{Role: "user", Content: a.buildTurnContext(userMessage, history)},
	}

	raw, err := completion.Collect(ctx, a.client, messages)
	if err != nil {
		a.logger.Debug("classification unavailable, skipping search", zap.Error(err))
		return none
	}

	var intent augment.SearchIntent
	if err := json.Unmarshal([]byte(Repair(raw)), &intent); err != nil {
		a.logger.Warn("unparseable classifier output",
			zap.Error(err),
			zap.String("raw", augment.Truncate(raw, 200)),
		)
		return none
	}

	if intent.NeedsSearch && intent.Query() == "" {
		// A verdict without a query is unusable; fall back to the raw message.
		intent.Keywords = []string{strings.TrimSpace(userMessage)}
	}
	return intent
}

// RefineQuery folds the current date into a search query so engines
// resolve relative language ("today", "latest"). Soft-fails to the
// original query.
func (a *Analyzer) RefineQuery(ctx context.Context, query string) string {
	prompt := fmt.Sprintf(
		"Rewrite the following into one effective web search query. "+
			"The current date is %s; incorporate it when the query is time-sensitive. "+
			"Return only the query, nothing else.\n\nQuery: %s",
		a.now().Format("January 2, 2006"),
		query,
	)

	refined, err := completion.Collect(ctx, a.client, []augment.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return query
	}
	refined = strings.Trim(strings.TrimSpace(refined), `"`)
	if refined == "" || strings.ContainsAny(refined, "\n") {
		return query
	}
	return refined
}

// buildTurnContext assembles the bounded history window plus the
// current message into a single classification payload.
func (a *Analyzer) buildTurnContext(userMessage string, history []augment.Message) string {
	var sb strings.Builder

	if len(history) > 0 {
		start := len(history) - historyTurns
		if start < 0 {
			start = 0
		}
		sb.WriteString("Recent conversation:\n")
		for _, m := range history[start:] {
			sb.WriteString(m.Role)
			sb.WriteString(": ")
			sb.WriteString(augment.Truncate(m.Content, historyTurnChars))
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}

	sb.WriteString("Latest user message:\n")
	sb.WriteString(userMessage)
	return sb.String()
}
