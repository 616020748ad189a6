package openai

import (
	"encoding/json"
	"testing"
)

func TestExtractOutputText(t *testing.T) {
	raw := `{
		"output": [
			{"type": "reasoning"},
			{"type": "message", "role": "assistant", "content": [
				{"type": "output_text", "text": "hello "},
				{"type": "output_text", "text": "world"}
			]},
			{"type": "message", "role": "user", "content": [
				{"type": "output_text", "text": "ignored"}
			]}
		]
	}`
	var resp responsesResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := extractOutputText(resp); got != "hello world" {
		t.Fatalf("extractOutputText = %q", got)
	}
}

func TestExtractOutputTextEmpty(t *testing.T) {
	if got := extractOutputText(responsesResponse{}); got != "" {
		t.Fatalf("extractOutputText = %q, want empty", got)
	}
}
