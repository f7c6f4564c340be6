package recommend

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestBuildPromptDeterministic(t *testing.T) {
	record := PatientRecord{"age": 72, "ethnicity": "Asian", "bmi": 24.5, "smoking": true}

	first := BuildPrompt(record, "forgets names")
	second := BuildPrompt(PatientRecord{"smoking": true, "bmi": 24.5, "ethnicity": "Asian", "age": 72}, "forgets names")
	if first != second {
		t.Fatalf("expected identical prompts, diff:\n%s", cmp.Diff(first, second))
	}
}

func TestBuildPromptContent(t *testing.T) {
	prompt := BuildPrompt(PatientRecord{"age": 72, "ethnicity": "Asian", "bmi": 0.0, "diabetes": false}, "")

	for _, want := range []string{
		`"intervention"`,
		`"rationale"`,
		`"confidence"`,
		"Do not provide text before or after the JSON format.",
		"Patient Age: 72\n",
		"Patient Ethnicity: Asian\n",
		"BMI: 0\n",
		"Diabetes: false\n",
		"Patient Education Level: None\n",
		"Age Group 90+: None\n",
		"Observations: \n",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Index(prompt, "Patient Age:") > strings.Index(prompt, "Gender:") {
		t.Fatal("expected age to precede gender in the prompt")
	}
}

func TestBuildPromptNumericRoundTrip(t *testing.T) {
	// Snapshots restored from JSON carry float64 where the form produced int.
	if BuildPrompt(PatientRecord{"age": 72}, "") != BuildPrompt(PatientRecord{"age": float64(72)}, "") {
		t.Fatal("expected int and float64 values to render the same")
	}
}

func TestParseEmpty(t *testing.T) {
	for _, in := range []string{"", "   \n"} {
		set, err := Parse(in)
		if err != nil || set != nil {
			t.Fatalf("Parse(%q) = %v, %v; want nil, nil", in, set, err)
		}
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse("not json")
	if !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
	var malformed *MalformedOutputError
	if !errors.As(err, &malformed) || malformed.Raw != "not json" {
		t.Fatalf("expected raw text in error, got %v", err)
	}
	if !strings.Contains(err.Error(), "not json") {
		t.Fatalf("expected message to contain raw text, got %q", err.Error())
	}
}

func TestParseValid(t *testing.T) {
	set, err := Parse(`[{"intervention":"A","rationale":"B","confidence":"high"}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Set{{Intervention: "A", Rationale: "B", Confidence: ConfidenceHigh}}
	if diff := cmp.Diff(want, set); diff != "" {
		t.Fatalf("set mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFencedAndMixedCase(t *testing.T) {
	set, err := Parse("```json\n[{\"intervention\":\"Walk\",\"rationale\":\"Mood\",\"confidence\":\"Medium\"}]\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set) != 1 || set[0].Confidence != ConfidenceMedium {
		t.Fatalf("unexpected set: %+v", set)
	}
}

func TestParseShapeMismatch(t *testing.T) {
	cases := map[string]string{
		"object":           `{"intervention":"A"}`,
		"missing field":    `[{"intervention":"A","confidence":"high"}]`,
		"bad confidence":   `[{"intervention":"A","rationale":"B","confidence":"certain"}]`,
		"non-string field": `[{"intervention":1,"rationale":"B","confidence":"low"}]`,
		"empty field":      `[{"intervention":"","rationale":"B","confidence":"low"}]`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse(in); !errors.Is(err, ErrShapeMismatch) {
				t.Fatalf("expected ErrShapeMismatch, got %v", err)
			}
		})
	}
}

func TestRender(t *testing.T) {
	out := Render(Set{
		{Intervention: "Daily walk", Rationale: "Improves mood", Confidence: ConfidenceMedium},
	})
	for _, want := range []string{"**1. Intervention:** Daily walk", "**Rationale:** Improves mood", "**Confidence:** medium"} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "**2.") {
		t.Fatalf("expected a single block, got:\n%s", out)
	}
	if got := Render(nil); !strings.Contains(got, NoRecommendations) {
		t.Fatalf("expected no-recommendations notice, got %q", got)
	}
}

type scriptedGenerator struct {
	replies []string
	errs    []error
	calls   int
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	i := g.calls
	g.calls++
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.replies) {
		return g.replies[i], nil
	}
	return "", errors.New("no scripted reply")
}

func TestClientReturnsOnFirstSuccess(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{"ok"}}
	client := NewClient(gen, ClientConfig{MaxAttempts: 3}, nil)

	warned := 0
	text, err := client.Send(context.Background(), "p", func(int, int, error) { warned++ })
	if err != nil || text != "ok" {
		t.Fatalf("Send = %q, %v", text, err)
	}
	if gen.calls != 1 || warned != 0 {
		t.Fatalf("expected one call and no warnings, got calls=%d warnings=%d", gen.calls, warned)
	}
}

func TestClientRetriesUntilSuccess(t *testing.T) {
	boom := errors.New("boom")
	gen := &scriptedGenerator{errs: []error{boom, boom}, replies: []string{"", "", "third"}}
	client := NewClient(gen, ClientConfig{MaxAttempts: 3, RetryDelay: time.Millisecond}, nil)

	var attempts []int
	text, err := client.Send(context.Background(), "p", func(attempt, max int, err error) {
		if max != 3 {
			t.Errorf("expected max 3, got %d", max)
		}
		attempts = append(attempts, attempt)
	})
	if err != nil || text != "third" {
		t.Fatalf("Send = %q, %v", text, err)
	}
	if diff := cmp.Diff([]int{1, 2}, attempts); diff != "" {
		t.Fatalf("warned attempts mismatch (-want +got):\n%s", diff)
	}
}

func TestClientExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	gen := &scriptedGenerator{errs: []error{boom, boom, boom, boom}}
	client := NewClient(gen, ClientConfig{MaxAttempts: 3}, nil)

	observed := 0
	client.OnAttempt(func(ok bool) {
		if ok {
			t.Error("expected only failed attempts")
		}
		observed++
	})

	warned := 0
	text, err := client.Send(context.Background(), "p", func(int, int, error) { warned++ })
	if !errors.Is(err, ErrUpstreamCallFailed) {
		t.Fatalf("expected ErrUpstreamCallFailed, got %v", err)
	}
	if text != "" {
		t.Fatalf("expected no text, got %q", text)
	}
	if gen.calls != 3 || warned != 3 || observed != 3 {
		t.Fatalf("expected exactly 3 attempts, got calls=%d warnings=%d observed=%d", gen.calls, warned, observed)
	}
}

func TestClientStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := GeneratorFunc(func(context.Context, string) (string, error) {
		cancel()
		return "", errors.New("boom")
	})
	client := NewClient(gen, ClientConfig{MaxAttempts: 5, RetryDelay: time.Hour}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := client.Send(ctx, "p", nil)
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrUpstreamCallFailed) {
			t.Fatalf("expected ErrUpstreamCallFailed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("retry delay was not cancelled with the context")
	}
}

func TestClientAppliesCallTimeout(t *testing.T) {
	gen := GeneratorFunc(func(ctx context.Context, _ string) (string, error) {
		if _, ok := ctx.Deadline(); !ok {
			return "", errors.New("expected a deadline")
		}
		return "ok", nil
	})
	client := NewClient(gen, ClientConfig{MaxAttempts: 1, CallTimeout: time.Second}, nil)
	if _, err := client.Send(context.Background(), "p", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseFeedback(t *testing.T) {
	for in, want := range map[string]Feedback{"yes": FeedbackYes, "No": FeedbackNo, " partially ": FeedbackPartially} {
		got, err := ParseFeedback(in)
		if err != nil || got != want {
			t.Errorf("ParseFeedback(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFeedback("maybe"); err == nil {
		t.Fatal("expected error for unknown feedback")
	}
}

func TestSetEqual(t *testing.T) {
	a := Set{{Intervention: "A", Rationale: "B", Confidence: ConfidenceLow}}
	b := Set{{Intervention: "A", Rationale: "B", Confidence: ConfidenceLow}}
	c := Set{{Intervention: "A", Rationale: "C", Confidence: ConfidenceLow}}
	if !a.Equal(b) || a.Equal(c) || a.Equal(nil) {
		t.Fatal("unexpected Set.Equal result")
	}
}
