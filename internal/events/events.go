// Package events publishes run transitions to logs and to NATS so other
// processes can follow a generation run.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/simonyos/wfgen/internal/logging"
	"github.com/simonyos/wfgen/internal/pipeline"
)

// SubjectPrefix is the NATS subject root for run events
const SubjectPrefix = "wfgen.runs"

// Event is the wire form of a pipeline transition
type Event struct {
	RunID     string    `json:"run_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Iteration int       `json:"iteration"`
	Passed    bool      `json:"passed"`
	Approved  bool      `json:"approved"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// FromTransition converts a transition to its wire form
func FromTransition(t pipeline.Transition) Event {
	return Event{
		RunID:     t.RunID,
		From:      t.From.String(),
		To:        t.To.String(),
		Iteration: t.Iteration,
		Passed:    t.Passed,
		Approved:  t.Approved,
		Reason:    t.Reason,
		Timestamp: t.At,
	}
}

// Subject returns the subject an event is published on
func Subject(runID, to string) string {
	return SubjectPrefix + "." + runID + "." + to
}

// SlogObserver writes every transition to a logger at debug level
type SlogObserver struct {
	log *slog.Logger
}

// NewSlogObserver creates an observer logging to l
func NewSlogObserver(l *slog.Logger) *SlogObserver {
	return &SlogObserver{log: logging.OrNop(l)}
}

// Observe implements pipeline.Observer
func (o *SlogObserver) Observe(ctx context.Context, t pipeline.Transition) {
	o.log.DebugContext(ctx, "transition",
		"run_id", t.RunID,
		"from", t.From,
		"to", t.To,
		"iteration", t.Iteration)
}

// Multi fans a transition out to several observers in order
type Multi []pipeline.Observer

// Observe implements pipeline.Observer
func (m Multi) Observe(ctx context.Context, t pipeline.Transition) {
	for _, o := range m {
		if o != nil {
			o.Observe(ctx, t)
		}
	}
}
