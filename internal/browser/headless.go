package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/webaugment/internal/browser/sandbox"
	"github.com/GriffinCanCode/webaugment/internal/httpx"
)

// Headless is a Surface with no window: pages are fetched over HTTP and
// extraction scripts run in the embedded JavaScript sandbox against the
// parsed document. It is the production surface when no interactive
// browser host is attached; CAPTCHA detours cannot be solved on it, so
// SetVisible is a no-op and a challenged search simply times out or is
// cancelled upstream.
type Headless struct {
	client  *httpx.Client
	runtime *sandbox.Runtime

	mu     sync.Mutex
	page   string
	events chan Event
}

// headlessPageCap bounds result-page downloads; engine result pages are
// far smaller than article pages.
const headlessPageCap = 1 << 20

// NewHeadless creates a headless surface.
func NewHeadless(client *httpx.Client) (*Headless, error) {
	runtime, err := sandbox.New(sandbox.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return &Headless{
		client:  client,
		runtime: runtime,
		events:  make(chan Event, 8),
	}, nil
}

// Load fetches the page and signals load completion.
func (h *Headless) Load(ctx context.Context, url string) error {
	page, err := h.client.FetchCapped(ctx, url, headlessPageCap, 15*time.Second)
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}

	h.mu.Lock()
	h.page = string(page.Body)
	h.mu.Unlock()

	select {
	case h.events <- Event{Type: EventLoadFinished}:
	default:
	}
	return nil
}

// Execute runs a script against the loaded page and returns its result
// as the postback message.
func (h *Headless) Execute(ctx context.Context, script string) (string, error) {
	h.mu.Lock()
	page := h.page
	h.mu.Unlock()

	if page == "" {
		return "", errors.New("no page loaded")
	}

	dom, err := sandbox.NewDOM(page)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	result, err := h.runtime.Execute(ctx, script, dom)
	if err != nil {
		return "", err
	}

	msg, ok := result.Value.(string)
	if !ok {
		return "", fmt.Errorf("extraction script returned %T, want string", result.Value)
	}
	return msg, nil
}

// SetVisible is a no-op: there is nothing to show.
func (h *Headless) SetVisible(bool) {}

// Events emits surface signals.
func (h *Headless) Events() <-chan Event {
	return h.events
}

// Close releases the sandbox runtime.
func (h *Headless) Close() error {
	return h.runtime.Close()
}
