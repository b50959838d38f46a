package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeModelJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `{"objects":[]}`, `{"objects":[]}`},
		{"fenced", "```json\n{\"objects\":[]}\n```", `{"objects":[]}`},
		{"trailing comma", `{"objects":[1,2,],}`, `{"objects":[1,2]}`},
		{"comments", "{\n// list\n\"objects\": [] /* none */\n}", "{\n\n\"objects\": [] \n}"},
		{"prose around", `Here you go: {"objects":[]} hope it helps`, `{"objects":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeModelJSON(tt.raw))
		})
	}
}

func TestParseDetectionResult(t *testing.T) {
	raw := "```json\n" + `{
  "objects": [
    {"label": "car", "confidence": 0.9, "box": [0.1, 0.2, 0.5, 0.6]},
  ],
  "description": "a street"
}` + "\n```"

	result := ParseDetectionResult(raw)
	require.Len(t, result.Objects, 1)
	assert.Equal(t, "car", result.Objects[0].Label)
	assert.Equal(t, [4]float64{0.1, 0.2, 0.5, 0.6}, result.Objects[0].Box)
	assert.Equal(t, "a street", result.Description)

	fallback := ParseDetectionResult("I cannot see anything")
	assert.Empty(t, fallback.Objects)
	assert.NotEmpty(t, fallback.Description)

	broken := ParseDetectionResult(`{"objects": [{"label": }]}`)
	assert.Empty(t, broken.Objects)
}
