package core

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
)

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("Green Acres "), genai.Text("is in Pune.\n")}},
		}},
	}
	assert.Equal(t, "Green Acres is in Pune.", responseText(resp))

	assert.Empty(t, responseText(nil))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{}))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}))
}

func TestSafetySettings(t *testing.T) {
	settings := safetySettings()
	assert.Len(t, settings, 2)
	for _, s := range settings {
		assert.Equal(t, genai.HarmBlockLowAndAbove, s.Threshold)
	}
	assert.Equal(t, genai.HarmCategoryHarassment, settings[0].Category)
	assert.Equal(t, genai.HarmCategoryHateSpeech, settings[1].Category)
}
