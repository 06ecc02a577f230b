package browser

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/webaugment/internal/augment"
	"github.com/GriffinCanCode/webaugment/internal/infrastructure/logging"
	"github.com/GriffinCanCode/webaugment/internal/searchprov"
)

var (
	// ErrSearchInFlight is returned when Search is called while another
	// search owns the surface. Callers retry; the executor never queues.
	ErrSearchInFlight = errors.New("a search is already in flight")
	// ErrDismissed reports that the user closed the verification surface.
	ErrDismissed = errors.New("search dismissed by user")
	// ErrNoResults reports that every extraction attempt came back empty.
	ErrNoResults = errors.New("extraction yielded no results")
)

// extractionBackoff spaces extraction attempts after a page load so
// client-side rendering gets progressively more time, ending in one
// generous catch-all attempt.
var extractionBackoff = []time.Duration{
	100 * time.Millisecond,
	200 * time.Millisecond,
	400 * time.Millisecond,
	800 * time.Millisecond,
	1500 * time.Millisecond,
}

// Options bounds a single executor session.
type Options struct {
	// SessionTimeout caps the whole search, including any CAPTCHA detour.
	SessionTimeout time.Duration
	// SettleDelay is the wait after a verification reload before
	// re-extraction, giving client-side rendering time to finish.
	SettleDelay time.Duration
}

// DefaultOptions returns the standard session bounds.
func DefaultOptions() Options {
	return Options{
		SessionTimeout: 120 * time.Second,
		SettleDelay:    time.Second,
	}
}

// Executor drives a browser surface through load, extraction and CAPTCHA
// recovery. One executor owns one surface; a single search may be in
// flight at a time.
type Executor struct {
	surface Surface
	opts    Options
	logger  *logging.Logger
	busy    atomic.Bool

	// OnEvent, when set, receives executor lifecycle events
	// (captcha_detected, captcha_recovered, dismissed, timeout).
	OnEvent func(event string)
}

// NewExecutor creates an executor bound to a surface.
func NewExecutor(surface Surface, opts Options, logger *logging.Logger) *Executor {
	return &Executor{
		surface: surface,
		opts:    opts,
		logger:  logger.Named("browser"),
	}
}

// Search loads the provider's result page, runs its extraction script
// and returns parsed results. A CAPTCHA challenge makes the surface
// visible and waits for the page to reload (human solved it) or for the
// user to dismiss. Dismissal takes precedence over the session timeout
// when both could fire. The surface is hidden again on every exit path,
// and immediately upon success.
func (e *Executor) Search(ctx context.Context, provider searchprov.Provider, query string) ([]augment.SearchResultItem, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return nil, ErrSearchInFlight
	}
	defer e.busy.Store(false)

	ctx, cancel := context.WithTimeout(ctx, e.opts.SessionTimeout)
	defer cancel()
	defer e.surface.SetVisible(false)

	searchURL := provider.SearchURL(query)
	e.logger.Debug("loading results page",
		zap.String("engine", provider.Name()),
		zap.String("url", searchURL),
	)

	if err := e.surface.Load(ctx, searchURL); err != nil {
		return nil, err
	}
	if err := e.awaitLoad(ctx); err != nil {
		return nil, err
	}

	items, err := e.extractWithBackoff(ctx, provider)
	if errors.Is(err, searchprov.ErrCaptchaRequired) {
		items, err = e.recoverFromCaptcha(ctx, provider)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			e.emit("timeout")
		}
		return nil, err
	}

	e.surface.SetVisible(false)
	e.logger.Info("search extracted",
		zap.String("engine", provider.Name()),
		zap.Int("results", len(items)),
	)
	return items, nil
}

// awaitLoad blocks until the surface reports the page load finished.
func (e *Executor) awaitLoad(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-e.surface.Events():
			switch ev.Type {
			case EventLoadFinished:
				return nil
			case EventDismissed:
				e.emit("dismissed")
				return ErrDismissed
			}
			// Reloads before the first load-finished are ignored.
		}
	}
}

// extractWithBackoff runs the provider script on the schedule, stopping
// at the first attempt that yields results. A CAPTCHA verdict aborts
// the schedule immediately; transient failures fall through to the next
// attempt.
func (e *Executor) extractWithBackoff(ctx context.Context, provider searchprov.Provider) ([]augment.SearchResultItem, error) {
	script := provider.ExtractionScript()

	var lastErr error = ErrNoResults
	for i, delay := range extractionBackoff {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case ev := <-e.surface.Events():
			timer.Stop()
			if ev.Type == EventDismissed {
				e.emit("dismissed")
				return nil, ErrDismissed
			}
		case <-timer.C:
		}

		raw, err := e.surface.Execute(ctx, script)
		if err != nil {
			lastErr = err
			continue
		}

		items, err := provider.ParseResults(raw)
		if err != nil {
			if errors.Is(err, searchprov.ErrCaptchaRequired) {
				return nil, err
			}
			lastErr = err
			continue
		}
		if len(items) > 0 {
			return items, nil
		}
		e.logger.Debug("empty extraction attempt", zap.Int("attempt", i+1))
		lastErr = ErrNoResults
	}
	return nil, lastErr
}

// recoverFromCaptcha shows the surface and waits for a human. A reload
// signal retries extraction after the settle delay; a dismiss signal
// terminates the search. Dismissal is checked before the timeout so an
// explicit human decision is never misreported as a timeout.
func (e *Executor) recoverFromCaptcha(ctx context.Context, provider searchprov.Provider) ([]augment.SearchResultItem, error) {
	e.emit("captcha_detected")
	e.logger.Info("captcha challenge detected, requesting human verification")
	e.surface.SetVisible(true)

	for {
		select {
		case <-ctx.Done():
			// Prefer an already-delivered dismissal over the timeout.
			select {
			case ev := <-e.surface.Events():
				if ev.Type == EventDismissed {
					e.emit("dismissed")
					return nil, ErrDismissed
				}
			default:
			}
			return nil, ctx.Err()

		case ev := <-e.surface.Events():
			switch ev.Type {
			case EventDismissed:
				e.emit("dismissed")
				return nil, ErrDismissed

			case EventReloaded, EventLoadFinished:
				if err := e.settle(ctx); err != nil {
					return nil, err
				}
				items, err := e.extractWithBackoff(ctx, provider)
				if errors.Is(err, searchprov.ErrCaptchaRequired) {
					// Still challenged; keep waiting.
					continue
				}
				if err != nil {
					return nil, err
				}
				e.emit("captcha_recovered")
				e.surface.SetVisible(false)
				return items, nil
			}
		}
	}
}

// settle waits the configured delay so client-side rendering finishes
// after a verification reload.
func (e *Executor) settle(ctx context.Context) error {
	timer := time.NewTimer(e.opts.SettleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Executor) emit(event string) {
	if e.OnEvent != nil {
		e.OnEvent(event)
	}
}
