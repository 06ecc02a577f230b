package intent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepair(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "already valid",
			in:   `{"needsSearch":true,"keywords":["go 1.24 release"]}`,
			want: `{"needsSearch":true,"keywords":["go 1.24 release"]}`,
		},
		{
			name: "markdown fence",
			in:   "```json\n{\"needsSearch\":false}\n```",
			want: `{"needsSearch":false}`,
		},
		{
			name: "fence without language tag",
			in:   "```\n{\"needsSearch\":false}\n```",
			want: `{"needsSearch":false}`,
		},
		{
			name: "leading prose",
			in:   `Sure, here is the result: {"needsSearch":true,"keywords":["x"]}`,
			want: `{"needsSearch":true,"keywords":["x"]}`,
		},
		{
			name: "trailing prose",
			in:   `{"needsSearch":false} Let me know if you need anything else!`,
			want: `{"needsSearch":false}`,
		},
		{
			name: "trailing comma in object",
			in:   `{"needsSearch":true,"keywords":["a"],}`,
			want: `{"needsSearch":true,"keywords":["a"]}`,
		},
		{
			name: "trailing comma in array",
			in:   `{"keywords":["a","b",]}`,
			want: `{"keywords":["a","b"]}`,
		},
		{
			name: "smart quotes",
			in:   `{“needsSearch”: true, “keywords”: [“tokyo weather”]}`,
			want: `{"needsSearch": true, "keywords": ["tokyo weather"]}`,
		},
		{
			name: "truncated object",
			in:   `{"needsSearch":true,"keywords":["long query`,
			want: `{"needsSearch":true,"keywords":["long query"]}`,
		},
		{
			name: "truncated nested array",
			in:   `{"keywords":["a","b"`,
			want: `{"keywords":["a","b"]}`,
		},
		{
			name: "comma inside string preserved",
			in:   `{"keywords":["a, b",]}`,
			want: `{"keywords":["a, b"]}`,
		},
		{
			name: "no json at all",
			in:   "I cannot answer that.",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Repair(tt.in))
		})
	}
}

func TestRepairedOutputParses(t *testing.T) {
	// Every repairable case must survive encoding/json afterwards.
	inputs := []string{
		"```json\n{\"needsSearch\": true, \"keywords\": [\"news\"],}\n```",
		`Here you go: {“needsSearch”: false}`,
		`{"needsSearch":true,"keywords":["a","b"`,
		`{"needsSearch":true,"keywords":["it's, tricky",]}`,
	}

	for _, in := range inputs {
		repaired := Repair(in)
		var out map[string]interface{}
		assert.NoError(t, json.Unmarshal([]byte(repaired), &out), "input: %s -> %s", in, repaired)
	}
}
