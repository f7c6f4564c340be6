// Package assistant answers free-text questions about Alzheimer's disease
// using the same generation endpoint as the recommender.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Skufu/interventions/internal/recommend"
)

const promptTemplate = `You are an expert AI assistant specializing in Alzheimer's Disease. Respond to the user query with accurate, detailed, and helpful information. Focus your responses on providing relevant and comprehensive answers from your expertise of Alzheimer's.

User's Question: %s
`

type Assistant struct {
	gen recommend.Generator
	log *zap.Logger
}

func New(gen recommend.Generator, log *zap.Logger) *Assistant {
	if log == nil {
		log = zap.NewNop()
	}
	return &Assistant{gen: gen, log: log}
}

// BuildPrompt wraps a question in the expert-assistant instructions.
func BuildPrompt(query string) string {
	return fmt.Sprintf(promptTemplate, strings.TrimSpace(query))
}

// Ask returns the model's answer. Failures come back as a readable message
// rather than an error so they can be shown in place of the answer.
func (a *Assistant) Ask(ctx context.Context, query string) string {
	if strings.TrimSpace(query) == "" {
		return "Please enter a question."
	}
	answer, err := a.gen.Generate(ctx, BuildPrompt(query))
	if err != nil {
		a.log.Warn("assistant generation failed", zap.Error(err))
		return fmt.Sprintf("Error generating response: %v", err)
	}
	return answer
}
