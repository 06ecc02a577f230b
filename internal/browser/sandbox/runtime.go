package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
)

// ErrInterrupted reports that execution was cut off by timeout or
// cancellation.
var ErrInterrupted = errors.New("script execution interrupted")

// Runtime wraps a goja VM with security controls and a document API.
type Runtime struct {
	vm     *goja.Runtime
	config Config
	mu     sync.Mutex

	console   []LogEntry
	consoleMu sync.Mutex
}

// New creates a new sandboxed runtime.
func New(config Config) (*Runtime, error) {
	r := &Runtime{
		vm:      goja.New(),
		config:  config,
		console: []LogEntry{},
	}
	r.vm.SetMaxCallStackSize(1024)

	if err := r.setupGlobals(); err != nil {
		return nil, err
	}
	return r, nil
}

// Execute runs a script against the given document with timeout and
// cancellation enforced through the VM interrupt.
func (r *Runtime) Execute(ctx context.Context, script string, dom *DOM) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()

	timer := time.NewTimer(r.config.Timeout)
	defer timer.Stop()

	done := make(chan struct{})
	go func() {
		select {
		case <-timer.C:
			r.vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			r.vm.Interrupt("context cancelled")
		case <-done:
		}
	}()

	r.consoleMu.Lock()
	r.console = r.console[:0]
	r.consoleMu.Unlock()

	if dom != nil {
		if err := r.injectDocument(dom); err != nil {
			close(done)
			return nil, fmt.Errorf("failed to inject document: %w", err)
		}
	}

	val, err := r.vm.RunString(script)
	close(done)
	r.vm.ClearInterrupt()

	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, ErrInterrupted
		}
		return nil, err
	}

	result := &Result{
		Value:    exportValue(val),
		Duration: time.Since(start),
	}
	r.consoleMu.Lock()
	result.Console = append([]LogEntry{}, r.console...)
	r.consoleMu.Unlock()

	return result, nil
}

// setupGlobals strips host escape hatches and installs console/timers.
func (r *Runtime) setupGlobals() error {
	r.vm.Set("require", goja.Undefined())
	r.vm.Set("process", goja.Undefined())
	r.vm.Set("module", goja.Undefined())
	r.vm.Set("exports", goja.Undefined())

	if r.config.EnableConsole {
		console := r.vm.NewObject()
		console.Set("log", r.makeConsoleFunc("log"))
		console.Set("warn", r.makeConsoleFunc("warn"))
		console.Set("error", r.makeConsoleFunc("error"))
		r.vm.Set("console", console)
	}

	// Timers are no-ops: extraction scripts must be synchronous.
	noop := func(call goja.FunctionCall) goja.Value { return goja.Undefined() }
	r.vm.Set("setTimeout", noop)
	r.vm.Set("setInterval", noop)

	return nil
}

func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var msg string
		for i, arg := range call.Arguments {
			if i > 0 {
				msg += " "
			}
			msg += arg.String()
		}

		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{
			Level:   level,
			Message: msg,
			Time:    time.Now(),
		})
		r.consoleMu.Unlock()

		return goja.Undefined()
	}
}

// injectDocument installs the document global backed by the parsed page.
func (r *Runtime) injectDocument(dom *DOM) error {
	document := r.vm.NewObject()

	document.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Null()
		}
		matches := dom.Query(call.Arguments[0].String())
		if len(matches) == 0 {
			return goja.Null()
		}
		return r.vm.ToValue(r.elementProxy(matches[0]))
	})

	document.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return r.vm.ToValue([]interface{}{})
		}
		matches := dom.Query(call.Arguments[0].String())
		proxies := make([]interface{}, 0, len(matches))
		for _, m := range matches {
			proxies = append(proxies, r.elementProxy(m))
		}
		return r.vm.ToValue(proxies)
	})

	r.vm.Set("document", document)
	return nil
}

// elementProxy exposes the subset of the element API extraction scripts
// rely on: textContent, getAttribute, closest, querySelector(All).
func (r *Runtime) elementProxy(sel *goquery.Selection) map[string]interface{} {
	return map[string]interface{}{
		"tagName":     goquery.NodeName(sel),
		"textContent": sel.Text(),
		"getAttribute": func(name string) string {
			return sel.AttrOr(name, "")
		},
		"closest": func(selector string) interface{} {
			c := sel.Closest(selector)
			if c.Length() == 0 {
				return nil
			}
			return r.elementProxy(c.First())
		},
		"querySelector": func(selector string) interface{} {
			c := sel.Find(selector)
			if c.Length() == 0 {
				return nil
			}
			return r.elementProxy(c.First())
		},
		"querySelectorAll": func(selector string) []interface{} {
			matches := splitSelection(sel.Find(selector))
			proxies := make([]interface{}, 0, len(matches))
			for _, m := range matches {
				proxies = append(proxies, r.elementProxy(m))
			}
			return proxies
		},
	}
}

func exportValue(val goja.Value) interface{} {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}

// Close releases the VM.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vm = nil
	r.console = nil
	return nil
}
