// Package recommend turns a patient intake into behavioral intervention
// recommendations: it builds the prompt, calls the generation endpoint with a
// bounded retry, parses the model output and renders it for display.
package recommend

import (
	"context"
	"fmt"
	"strings"
)

// Generator is the remote text-generation endpoint.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// PatientRecord maps attribute names to int, float64, string or bool values.
type PatientRecord map[string]any

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

type Item struct {
	Intervention string     `json:"intervention" validate:"required"`
	Rationale    string     `json:"rationale" validate:"required"`
	Confidence   Confidence `json:"confidence" validate:"required,oneof=high medium low"`
}

// Set is an ordered list of recommendations as returned by the model.
type Set []Item

// Equal reports whether both sets hold the same items in the same order.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Feedback is the user's verdict on a displayed set.
type Feedback string

const (
	FeedbackYes       Feedback = "Yes"
	FeedbackNo        Feedback = "No"
	FeedbackPartially Feedback = "Partially"
)

// ParseFeedback accepts the three feedback values case-insensitively.
func ParseFeedback(s string) (Feedback, error) {
	for _, f := range []Feedback{FeedbackYes, FeedbackNo, FeedbackPartially} {
		if strings.EqualFold(strings.TrimSpace(s), string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown feedback %q", s)
}
