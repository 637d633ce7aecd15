package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/averill/parlor/store"
)

func TestSystemPromptPerUseCase(t *testing.T) {
	tests := []struct {
		useCase  store.UseCase
		fragment string
	}{
		{store.UseCaseHealthcare, "healthcare assistant"},
		{store.UseCaseBanking, "banking assistant"},
		{store.UseCaseEducation, "education assistant"},
		{store.UseCaseECommerce, "e-commerce assistant"},
		{store.UseCaseLeadGeneration, "lead generation assistant"},
		{store.UseCaseDefault, "general assistant"},
	}
	for _, tt := range tests {
		t.Run(string(tt.useCase), func(t *testing.T) {
			prompt := SystemPrompt(tt.useCase)
			assert.Contains(t, prompt, tt.fragment)
			assert.Contains(t, prompt, "format your response using Markdown", "formatting instruction must be appended")
		})
	}
}

func TestSystemPromptUnknownFallsBackToDefault(t *testing.T) {
	assert.Equal(t, SystemPrompt(store.UseCaseDefault), SystemPrompt(store.UseCase("Astrology")))
}

// The refusal sentences are fixed strings a client may match on exactly, so
// the tests pin them byte-for-byte, typographic apostrophes included.
func TestRefusalSentencesAreFixed(t *testing.T) {
	tests := []struct {
		useCase  store.UseCase
		sentence string
	}{
		{store.UseCaseHealthcare, `"I can only assist with healthcare questions. Please ask about symptoms, treatments, or medical advice."`},
		{store.UseCaseBanking, `"I’m limited to banking topics. Please ask about accounts, loans, or financial services."`},
		{store.UseCaseEducation, `"I can only help with education-related questions. Please ask about study tips or academic subjects."`},
		{store.UseCaseECommerce, `"I’m restricted to e-commerce topics. Please ask about products, orders, or returns."`},
		{store.UseCaseLeadGeneration, `"I can only assist with lead generation. Please ask about marketing or customer acquisition."`},
		{store.UseCaseDefault, `"I'm a general assistant and cannot assist with that. Please ask a different question."`},
	}
	for _, tt := range tests {
		t.Run(string(tt.useCase), func(t *testing.T) {
			assert.Contains(t, SystemPrompt(tt.useCase), tt.sentence)
		})
	}
}

func TestDomainPromptsCarryRefusalSentence(t *testing.T) {
	for useCase, prompt := range systemPrompts {
		if useCase == store.UseCaseDefault {
			continue
		}
		assert.True(t, strings.Contains(prompt, "Do not provide answers to off-topic questions"),
			"prompt for %s must pin off-topic behavior", useCase)
	}
}
