package sandbox

import (
	"context"
	"testing"
	"time"
)

const resultPage = `<html><body>
<div id="search">
	<div class="g"><a href="https://one.example.com/a"><h3>First result</h3></a></div>
	<div class="g"><a href="https://two.example.com/b"><h3>Second result</h3></a></div>
	<div class="g"><h3><a href="https://three.example.com/c">Third result</a></h3></div>
</div>
</body></html>`

func TestRuntimeExecution(t *testing.T) {
	runtime, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	defer runtime.Close()

	tests := []struct {
		name    string
		script  string
		wantErr bool
	}{
		{name: "simple return", script: "42"},
		{name: "console log", script: "console.log('hello'); 'test'"},
		{name: "string ops", script: "'hello'.toUpperCase()"},
		{name: "json stringify", script: "JSON.stringify({a: 1})"},
		{name: "syntax error", script: "function(", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := runtime.Execute(context.Background(), tt.script, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("Execute() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && result == nil {
				t.Error("Execute() returned nil result")
			}
		})
	}
}

func TestRuntimeSecurity(t *testing.T) {
	runtime, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	defer runtime.Close()

	for _, script := range []string{"require('fs')", "process.exit(1)", "module.exports = {}"} {
		result, _ := runtime.Execute(context.Background(), script, nil)
		if result != nil && result.Value != nil {
			t.Errorf("dangerous script %q executed successfully: %v", script, result.Value)
		}
	}
}

func TestRuntimeTimeout(t *testing.T) {
	runtime, err := New(Config{Timeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	defer runtime.Close()

	_, err = runtime.Execute(context.Background(), "while(true) {}", nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestRuntimeCancellation(t *testing.T) {
	runtime, err := New(Config{Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	defer runtime.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = runtime.Execute(ctx, "while(true) {}", nil)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestDocumentQueries(t *testing.T) {
	runtime, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	defer runtime.Close()

	dom, err := NewDOM(resultPage)
	if err != nil {
		t.Fatalf("Failed to parse HTML: %v", err)
	}

	tests := []struct {
		name   string
		script string
		want   interface{}
	}{
		{
			name:   "querySelectorAll length",
			script: `document.querySelectorAll("div#search h3").length`,
			want:   int64(3),
		},
		{
			name:   "textContent",
			script: `document.querySelector("h3").textContent`,
			want:   "First result",
		},
		{
			name:   "closest anchor href",
			script: `document.querySelector("h3").closest("a").getAttribute("href")`,
			want:   "https://one.example.com/a",
		},
		{
			name:   "child anchor href",
			script: `document.querySelectorAll("h3")[2].querySelector("a").getAttribute("href")`,
			want:   "https://three.example.com/c",
		},
		{
			name:   "missing element is null",
			script: `document.querySelector("#nope") === null`,
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := runtime.Execute(context.Background(), tt.script, dom)
			if err != nil {
				t.Fatalf("Execute() error: %v", err)
			}
			if result.Value != tt.want {
				t.Errorf("got %v (%T), want %v (%T)", result.Value, result.Value, tt.want, tt.want)
			}
		})
	}
}
