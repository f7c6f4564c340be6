// Package orchestrator runs the submit → generate → display → feedback cycle
// for a session and owns the regeneration rules.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"go.uber.org/zap"

	"github.com/Skufu/interventions/internal/recommend"
	"github.com/Skufu/interventions/internal/session"
)

var (
	// ErrNoResult is returned for feedback when no recommendations are on display.
	ErrNoResult = errors.New("no recommendations to give feedback on")
	// ErrRoundClosed is returned for feedback after the result was accepted.
	ErrRoundClosed = errors.New("feedback already accepted for this result")
)

const (
	HeadingRecommendations = "Recommendations"
	HeadingNew             = "New Recommendations"
	HeadingPrevious        = "Previous Recommendations"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a user-visible message produced while handling a request.
type Notice struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// Outcome is everything the form needs to render after an action.
type Outcome struct {
	Phase session.Phase `json:"phase"`
	// Path lists every phase entered while handling the action.
	Path            []session.Phase `json:"path"`
	Heading         string          `json:"heading,omitempty"`
	Recommendations recommend.Set   `json:"recommendations"`
	Notices         []Notice        `json:"notices,omitempty"`
	// FeedbackAvailable tells the form to offer the feedback selector.
	FeedbackAvailable bool `json:"feedback_available"`
}

func (o *Outcome) enter(p session.Phase) {
	o.Phase = p
	o.Path = append(o.Path, p)
}

func (o *Outcome) notify(level Level, format string, args ...any) {
	o.Notices = append(o.Notices, Notice{Level: level, Text: fmt.Sprintf(format, args...)})
}

type Orchestrator struct {
	client *recommend.Client
	store  session.Store
	log    *zap.Logger
	locks  *keyedMutex
}

func New(client *recommend.Client, store session.Store, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{client: client, store: store, log: log, locks: newKeyedMutex()}
}

// Submit generates recommendations for a fresh submission. The stored set is
// replaced only when the new output parses into a non-empty set.
func (o *Orchestrator) Submit(ctx context.Context, sessionID string, record recommend.PatientRecord, observation string) (Outcome, error) {
	unlock := o.locks.Lock(sessionID)
	defer unlock()

	st, err := o.store.Load(ctx, sessionID)
	if err != nil {
		return Outcome{}, err
	}

	var out Outcome
	out.enter(session.PhaseGenerating)
	snap := &session.Snapshot{Record: maps.Clone(record), Observation: observation}
	set := o.generate(ctx, snap, &out)

	st.Snapshot = snap
	st.ResultShown = len(set) > 0
	if st.ResultShown {
		st.Recommendations = set
	}
	st.Phase = session.PhaseDisplayed

	out.enter(session.PhaseDisplayed)
	out.Heading = HeadingRecommendations
	out.Recommendations = set
	out.FeedbackAvailable = st.ResultShown

	if err := o.store.Save(ctx, sessionID, st); err != nil {
		return out, err
	}
	return out, nil
}

// Feedback records the user's verdict. "No" triggers one regeneration from
// the stored snapshot; the new set replaces the stored one only when it is
// non-empty and differs from it.
func (o *Orchestrator) Feedback(ctx context.Context, sessionID string, choice recommend.Feedback) (Outcome, error) {
	unlock := o.locks.Lock(sessionID)
	defer unlock()

	st, err := o.store.Load(ctx, sessionID)
	if err != nil {
		return Outcome{}, err
	}
	if st.Phase == session.PhaseAccepted {
		return Outcome{}, ErrRoundClosed
	}
	if !st.ResultShown || st.Snapshot == nil {
		return Outcome{}, ErrNoResult
	}

	var out Outcome
	out.enter(session.PhaseFeedbackPending)

	switch choice {
	case recommend.FeedbackYes, recommend.FeedbackPartially:
		out.enter(session.PhaseAccepted)
		out.notify(LevelSuccess, "Feedback submitted: %s", choice)
		st.Phase = session.PhaseAccepted

	case recommend.FeedbackNo:
		prior := st.Recommendations
		out.enter(session.PhaseRegenerating)
		fresh := o.generate(ctx, st.Snapshot, &out)
		out.FeedbackAvailable = true

		if len(fresh) > 0 && !fresh.Equal(prior) {
			out.enter(session.PhaseReplaced)
			out.notify(LevelSuccess, "New recommendations generated successfully!")
			out.Heading = HeadingNew
			out.Recommendations = fresh
			st.Recommendations = fresh
			st.Phase = session.PhaseReplaced
		} else {
			out.enter(session.PhaseUnchanged)
			out.notify(LevelWarning, "Could not generate different recommendations. Please try again later.")
			if len(prior) > 0 {
				out.Heading = HeadingPrevious
				out.Recommendations = prior
			}
			st.Phase = session.PhaseUnchanged
		}

	default:
		return Outcome{}, fmt.Errorf("unknown feedback %q", choice)
	}

	if err := o.store.Save(ctx, sessionID, st); err != nil {
		return out, err
	}
	return out, nil
}

// Current returns the stored state for display without changing it.
func (o *Orchestrator) Current(ctx context.Context, sessionID string) (session.State, error) {
	unlock := o.locks.Lock(sessionID)
	defer unlock()
	return o.store.Load(ctx, sessionID)
}

// Reset discards the session's snapshot and recommendations.
func (o *Orchestrator) Reset(ctx context.Context, sessionID string) error {
	unlock := o.locks.Lock(sessionID)
	defer unlock()
	return o.store.Delete(ctx, sessionID)
}

func (o *Orchestrator) generate(ctx context.Context, snap *session.Snapshot, out *Outcome) recommend.Set {
	prompt := recommend.BuildPrompt(snap.Record, snap.Observation)

	text, err := o.client.Send(ctx, prompt, func(attempt, maxAttempts int, err error) {
		out.notify(LevelError, "Error getting Gemini response (Attempt %d/%d): %v", attempt, maxAttempts, err)
	})
	if err != nil {
		o.log.Error("recommendation generation failed", zap.Error(err))
		return nil
	}

	set, err := recommend.Parse(text)
	if err != nil {
		var malformed *recommend.MalformedOutputError
		switch {
		case errors.As(err, &malformed):
			out.notify(LevelError, "Invalid JSON response: %s", malformed.Raw)
		default:
			out.notify(LevelError, "Error processing recommendations: %v", err)
		}
		o.log.Warn("unusable model output", zap.Error(err), zap.Int("bytes", len(text)))
		return nil
	}
	return set
}
