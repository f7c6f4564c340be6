// Package session holds per-session recommendation state. Sessions are keyed
// by an opaque ID and expire after a TTL; nothing outlives the session.
package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Skufu/interventions/internal/recommend"
)

// Phase is the position of a session in the generate/feedback cycle.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseGenerating      Phase = "generating"
	PhaseDisplayed       Phase = "displayed"
	PhaseFeedbackPending Phase = "feedback_pending"
	PhaseAccepted        Phase = "accepted"
	PhaseRegenerating    Phase = "regenerating"
	PhaseReplaced        Phase = "replaced"
	PhaseUnchanged       Phase = "unchanged"
)

// Snapshot is the submission a result was generated from. Regeneration
// rebuilds the prompt from it.
type Snapshot struct {
	Record      recommend.PatientRecord `json:"record"`
	Observation string                  `json:"observation"`
}

type State struct {
	Phase Phase `json:"phase"`
	// Recommendations is the most recent successfully parsed set.
	Recommendations recommend.Set `json:"recommendations,omitempty"`
	Snapshot        *Snapshot     `json:"snapshot,omitempty"`
	// ResultShown is set when the last submission displayed a non-empty set,
	// which is what makes feedback available.
	ResultShown bool `json:"result_shown"`
}

// Store persists State for the lifetime of a session. Load returns a zero
// State in PhaseIdle for unknown or expired IDs.
type Store interface {
	Load(ctx context.Context, id string) (State, error)
	Save(ctx context.Context, id string, st State) error
	Delete(ctx context.Context, id string) error
}

func encode(st State) ([]byte, error) {
	b, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode session state: %w", err)
	}
	return b, nil
}

func decode(b []byte) (State, error) {
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return State{}, fmt.Errorf("decode session state: %w", err)
	}
	if st.Phase == "" {
		st.Phase = PhaseIdle
	}
	return st, nil
}

func idle() State {
	return State{Phase: PhaseIdle}
}
