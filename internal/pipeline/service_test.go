package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/webaugment/internal/augment"
	"github.com/GriffinCanCode/webaugment/internal/completion"
	"github.com/GriffinCanCode/webaugment/internal/fetch"
	"github.com/GriffinCanCode/webaugment/internal/httpx"
	"github.com/GriffinCanCode/webaugment/internal/infrastructure/logging"
	"github.com/GriffinCanCode/webaugment/internal/intent"
)

// scriptedClient plays back canned completions in order.
type scriptedClient struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func (c *scriptedClient) Stream(ctx context.Context, messages []augment.Message) (<-chan completion.Chunk, error) {
	c.mu.Lock()
	i := c.calls
	c.calls++
	c.mu.Unlock()

	if i >= len(c.responses) {
		return nil, errors.New("no scripted response left")
	}
	ch := make(chan completion.Chunk, 2)
	ch <- completion.Chunk{Text: c.responses[i]}
	ch <- completion.Chunk{Done: true}
	close(ch)
	return ch, nil
}

type fakeSearcher struct {
	mu         sync.Mutex
	items      []augment.SearchResultItem
	err        error
	calls      int
	lastEngine string
	lastQuery  string
}

func (f *fakeSearcher) Search(ctx context.Context, engine, query string) ([]augment.SearchResultItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastEngine = engine
	f.lastQuery = query
	return f.items, f.err
}

const searchIntentJSON = `{"needsSearch": true, "keywords": ["Tokyo weather today"], "links": []}`
const noSearchJSON = `{"needsSearch": false, "keywords": []}`

// newArticleServer serves a minimal readable page per path.
func newArticleServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><head><title>Page %[1]s</title></head>
<body><article><p>Weather report body for %[1]s.</p></article></body></html>`, r.URL.Path)
	}))
}

func newTestService(client completion.Client, searcher Searcher, direct *DirectProvider) *Service {
	logger := logging.NewDefault()
	return New(Params{
		Analyzer:      intent.NewAnalyzer(client, logger),
		Searcher:      searcher,
		Direct:        direct,
		Fetcher:       fetch.NewEngine(httpx.NewClient(httpx.DefaultOptions()), fetch.DefaultOptions(), logger, nil),
		Logger:        logger,
		DefaultEngine: "google",
	})
}

func TestExecuteNoSearchNeeded(t *testing.T) {
	searcher := &fakeSearcher{}
	svc := newTestService(&scriptedClient{responses: []string{noSearchJSON}}, searcher, nil)

	var phases []augment.Phase
	result := svc.Execute(context.Background(), "Hello, how are you?", nil, Options{
		OnPhase: func(p augment.Phase) { phases = append(phases, p) },
	})

	assert.Nil(t, result)
	assert.Zero(t, searcher.calls, "no network activity on a conversational turn")
	assert.Equal(t, []augment.Phase{augment.PhaseAnalyzing}, phases)
}

func TestExecuteFullPath(t *testing.T) {
	server := newArticleServer()
	defer server.Close()

	searcher := &fakeSearcher{items: []augment.SearchResultItem{
		{Title: "JMA forecast", URL: server.URL + "/jma"},
		{Title: "Tokyo weather now", URL: server.URL + "/now"},
		{Title: "Weekly outlook", URL: server.URL + "/week"},
	}}
	svc := newTestService(&scriptedClient{responses: []string{searchIntentJSON}}, searcher, nil)

	var phases []augment.Phase
	result := svc.Execute(context.Background(), "What's the weather in Tokyo today?", nil, Options{
		OnPhase: func(p augment.Phase) { phases = append(phases, p) },
	})

	require.NotNil(t, result)
	assert.Equal(t, "Tokyo weather today", searcher.lastQuery)
	assert.Equal(t, "google", searcher.lastEngine)
	assert.Equal(t, []augment.Phase{
		augment.PhaseAnalyzing,
		augment.PhaseSearching,
		augment.PhaseFetching,
		augment.PhaseBuilding,
	}, phases)

	require.Len(t, result.Citations, 3)
	for i, c := range result.Citations {
		assert.Equal(t, i+1, c.Number)
		assert.Contains(t, result.AugmentedPrompt, fmt.Sprintf("[%d] %s", c.Number, c.Title))
	}
	assert.Contains(t, result.AugmentedPrompt, "Question: What's the weather in Tokyo today?")
}

func TestExecuteEngineOverride(t *testing.T) {
	server := newArticleServer()
	defer server.Close()

	searcher := &fakeSearcher{items: []augment.SearchResultItem{
		{Title: "One", URL: server.URL + "/one"},
	}}
	svc := newTestService(&scriptedClient{responses: []string{searchIntentJSON}}, searcher, nil)

	result := svc.Execute(context.Background(), "Tokyo weather?", nil, Options{Engine: "bing"})
	require.NotNil(t, result)
	assert.Equal(t, "bing", searcher.lastEngine)
}

func TestExecuteSearchFailureDegrades(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("engine unreachable")}
	svc := newTestService(&scriptedClient{responses: []string{searchIntentJSON}}, searcher, nil)

	result := svc.Execute(context.Background(), "Tokyo weather?", nil, Options{})
	assert.Nil(t, result)
}

func TestExecuteUserLinkSalvagesFailedSearch(t *testing.T) {
	server := newArticleServer()
	defer server.Close()

	intentWithLink := fmt.Sprintf(
		`{"needsSearch": true, "keywords": ["release notes"], "links": [%q]}`,
		server.URL+"/notes",
	)
	searcher := &fakeSearcher{err: errors.New("engine unreachable")}
	svc := newTestService(&scriptedClient{responses: []string{intentWithLink}}, searcher, nil)

	result := svc.Execute(context.Background(), "Summarize the notes I linked", nil, Options{})
	require.NotNil(t, result)
	require.Len(t, result.Citations, 1)
	assert.Equal(t, server.URL+"/notes", result.Citations[0].URL)
}

func TestExecuteContentStarvation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"nothing":"readable"}`)
	}))
	defer server.Close()

	searcher := &fakeSearcher{items: []augment.SearchResultItem{
		{Title: "A", URL: server.URL + "/a"},
		{Title: "B", URL: server.URL + "/b"},
	}}
	svc := newTestService(&scriptedClient{responses: []string{searchIntentJSON}}, searcher, nil)

	result := svc.Execute(context.Background(), "Tokyo weather?", nil, Options{})
	assert.Nil(t, result)
}

func TestExecuteCancelled(t *testing.T) {
	searcher := &fakeSearcher{}
	svc := newTestService(&scriptedClient{responses: []string{searchIntentJSON}}, searcher, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := svc.Execute(ctx, "Tokyo weather?", nil, Options{})
	assert.Nil(t, result)
	assert.Zero(t, searcher.calls)
}

func TestExecuteDirectPath(t *testing.T) {
	var gotQuery string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req directRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotQuery = req.Query

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(directResponse{Results: []directResult{
			{Title: "Tokyo now", URL: "https://example.com/now", Content: "22C, partly cloudy."},
			{Title: "Forecast", URL: "https://example.com/forecast", Content: "Rain expected tomorrow."},
			{Title: "Empty", URL: "https://example.com/empty", Content: ""},
		}})
	}))
	defer api.Close()

	client := &scriptedClient{responses: []string{searchIntentJSON, "Tokyo weather August 31"}}
	searcher := &fakeSearcher{}
	direct := NewDirectProvider(resty.New(), api.URL, "test-key", 4000)
	svc := newTestService(client, searcher, direct)

	var phases []augment.Phase
	result := svc.Execute(context.Background(), "What's the weather in Tokyo today?", nil, Options{
		OnPhase: func(p augment.Phase) { phases = append(phases, p) },
	})

	require.NotNil(t, result)
	assert.Equal(t, "Tokyo weather August 31", gotQuery, "refined query reaches the API")
	assert.Zero(t, searcher.calls, "browser path must be bypassed")
	assert.Equal(t, []augment.Phase{
		augment.PhaseAnalyzing,
		augment.PhaseSearching,
		augment.PhaseBuilding,
	}, phases)

	require.Len(t, result.Citations, 2)
	assert.Equal(t, "Tokyo now", result.Citations[0].Title)
}

func TestDirectProviderHTTPError(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer api.Close()

	direct := NewDirectProvider(resty.New(), api.URL, "test-key", 4000)
	_, err := direct.Search(context.Background(), "anything")
	assert.Error(t, err)
}
