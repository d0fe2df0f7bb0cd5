// Package pipeline runs the generate, check and operator-review loop that
// turns a workflow request into an accepted workflow document.
package pipeline

import (
	"slices"

	"github.com/google/uuid"
)

// State is a step of the run state machine
type State int

const (
	StateGenerating State = iota
	StateChecking
	StateAwaitingOperator
	StateDone
)

func (s State) String() string {
	switch s {
	case StateGenerating:
		return "generating"
	case StateChecking:
		return "checking"
	case StateAwaitingOperator:
		return "awaiting_operator"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Judgement is the structured verdict returned by the checking model
type Judgement struct {
	Reason string `json:"reason"`
	Passed bool   `json:"judge"`
}

// RunState is everything one run knows. It changes only through Apply.
type RunState struct {
	RunID string
	Query string

	// History holds every generated candidate, oldest first
	History []string

	LastVerdictPassed bool
	LastVerdictReason string
	OperatorApproved  bool

	// Iterations counts completed generations
	Iterations int
}

// Delta is the partial update a step hands back to the machine
type Delta struct {
	Candidate *string
	Verdict   *Judgement
	Decision  *bool
}

// NewRunState seeds a run for query with a fresh run ID
func NewRunState(query string) *RunState {
	return &RunState{
		RunID: uuid.NewString(),
		Query: query,
	}
}

// Apply merges d into the state
func (s *RunState) Apply(d Delta) {
	if d.Candidate != nil {
		s.History = append(s.History, *d.Candidate)
		s.Iterations = len(s.History)
	}
	if d.Verdict != nil {
		s.LastVerdictPassed = d.Verdict.Passed
		s.LastVerdictReason = d.Verdict.Reason
	}
	if d.Decision != nil {
		s.OperatorApproved = *d.Decision
	}
}

// Candidate returns the latest generated document, or "" before the first one
func (s *RunState) Candidate() string {
	if len(s.History) == 0 {
		return ""
	}
	return s.History[len(s.History)-1]
}

// Accepted reports whether the run may terminate
func (s *RunState) Accepted() bool {
	return s.LastVerdictPassed || s.OperatorApproved
}

// Snapshot returns a copy that shares nothing with s
func (s *RunState) Snapshot() RunState {
	c := *s
	c.History = slices.Clone(s.History)
	return c
}
