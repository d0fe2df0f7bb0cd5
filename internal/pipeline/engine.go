package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/simonyos/wfgen/internal/logging"
)

// Transition describes one state change of a run
type Transition struct {
	RunID     string
	From      State
	To        State
	Iteration int
	Passed    bool
	Approved  bool
	Reason    string
	At        time.Time
}

// Observer is notified after every transition. Observers must not block.
type Observer interface {
	Observe(ctx context.Context, t Transition)
}

// Options configures a Machine or Engine
type Options struct {
	// Gate reviews failed candidates. Without one the machine stops in
	// StateAwaitingOperator and waits for Decide.
	Gate OperatorGate

	// MaxIterations turns the review after that many failed candidates into
	// a final review. Zero means no limit.
	MaxIterations int

	Logger   *slog.Logger
	Observer Observer
}

// Machine is the run state machine. Advance performs one transition.
type Machine struct {
	gen  Generator
	val  Validator
	opts Options
	log  *slog.Logger

	run      *RunState
	state    State
	feedback string
	aborted  error
}

// NewMachine creates a machine in StateGenerating for query
func NewMachine(query string, gen Generator, val Validator, opts Options) *Machine {
	return &Machine{
		gen:   gen,
		val:   val,
		opts:  opts,
		log:   logging.OrNop(opts.Logger),
		run:   NewRunState(query),
		state: StateGenerating,
	}
}

// State returns the current state
func (m *Machine) State() State {
	return m.state
}

// Run returns a copy of the run state
func (m *Machine) Run() RunState {
	return m.run.Snapshot()
}

// Advance performs exactly one transition. In StateAwaitingOperator it asks
// the gate, or returns ErrAwaitingOperator when there is none.
func (m *Machine) Advance(ctx context.Context) error {
	if m.aborted != nil {
		return m.aborted
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	switch m.state {
	case StateGenerating:
		return m.generate(ctx)
	case StateChecking:
		return m.check(ctx)
	case StateAwaitingOperator:
		return m.askOperator(ctx)
	default:
		return ErrRunFinished
	}
}

// Decide resolves a pending operator review. approved=true accepts the
// current candidate; false starts another generation with the last
// verdict reason as feedback.
func (m *Machine) Decide(approved bool) error {
	return m.decide(context.Background(), approved)
}

func (m *Machine) decide(ctx context.Context, approved bool) error {
	if m.aborted != nil {
		return m.aborted
	}
	if m.state != StateAwaitingOperator {
		return fmt.Errorf("%w (state %s)", ErrNotAwaitingOperator, m.state)
	}

	m.run.Apply(Delta{Decision: &approved})
	if approved {
		m.log.Info("operator: accepted candidate", "iteration", m.run.Iterations)
		m.transition(ctx, StateDone)
		return nil
	}

	if m.limitReached() {
		m.log.Warn("operator: declined final candidate", "max_iterations", m.opts.MaxIterations)
		m.aborted = fmt.Errorf("%w (%d iterations)", ErrIterationLimit, m.run.Iterations)
		return m.aborted
	}

	m.log.Info("operator: requested regeneration", "iteration", m.run.Iterations)
	m.feedback = m.run.LastVerdictReason
	m.transition(ctx, StateGenerating)
	return nil
}

func (m *Machine) generate(ctx context.Context) error {
	iteration := m.run.Iterations + 1
	m.log.Info("generate: start", "iteration", iteration, "with_feedback", m.feedback != "")

	candidate, err := m.gen.Generate(ctx, m.run.Query, m.feedback)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	m.run.Apply(Delta{Candidate: &candidate})
	m.feedback = ""
	m.log.Info("generate: end", "iteration", iteration, "chars", len(candidate))
	m.transition(ctx, StateChecking)
	return nil
}

func (m *Machine) check(ctx context.Context) error {
	m.log.Info("check: start", "iteration", m.run.Iterations)

	j, err := m.val.Check(ctx, m.run.Query, m.run.Candidate())
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}

	m.run.Apply(Delta{Verdict: &j})
	if j.Passed {
		m.log.Info("check: end", "iteration", m.run.Iterations, "reason", j.Reason)
		m.transition(ctx, StateDone)
		return nil
	}

	m.log.Warn("check: end with error", "iteration", m.run.Iterations, "reason", j.Reason)
	m.transition(ctx, StateAwaitingOperator)
	return nil
}

func (m *Machine) askOperator(ctx context.Context) error {
	if m.opts.Gate == nil {
		return ErrAwaitingOperator
	}

	if m.limitReached() {
		m.log.Warn("operator: final review", "max_iterations", m.opts.MaxIterations)
	} else {
		m.log.Info("operator: awaiting decision", "iteration", m.run.Iterations)
	}

	approved, err := m.opts.Gate.Ask(ctx, m.run.Candidate(), m.run.LastVerdictReason)
	if err != nil {
		return fmt.Errorf("operator: %w", err)
	}
	return m.decide(ctx, approved)
}

func (m *Machine) limitReached() bool {
	return m.opts.MaxIterations > 0 && m.run.Iterations >= m.opts.MaxIterations
}

func (m *Machine) transition(ctx context.Context, to State) {
	from := m.state
	m.state = to
	if m.opts.Observer == nil {
		return
	}
	m.opts.Observer.Observe(ctx, Transition{
		RunID:     m.run.RunID,
		From:      from,
		To:        to,
		Iteration: m.run.Iterations,
		Passed:    m.run.LastVerdictPassed,
		Approved:  m.run.OperatorApproved,
		Reason:    m.run.LastVerdictReason,
		At:        time.Now(),
	})
}

// Result is the outcome of a completed run
type Result struct {
	Run RunState

	// Candidate is the accepted document
	Candidate string

	// Workflow is the body of the candidate's yaml block, empty when
	// ExtractErr is set
	Workflow   string
	ExtractErr error
}

// Engine drives a Machine to completion
type Engine struct {
	gen  Generator
	val  Validator
	opts Options
	log  *slog.Logger
}

// NewEngine creates an engine. opts.Gate must be set for runs that can fail
// the automated check.
func NewEngine(gen Generator, val Validator, opts Options) *Engine {
	return &Engine{
		gen:  gen,
		val:  val,
		opts: opts,
		log:  logging.OrNop(opts.Logger),
	}
}

// Run loops until the run is Done. On error the returned Result still holds
// the state reached so far.
func (e *Engine) Run(ctx context.Context, query string) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	m := NewMachine(query, e.gen, e.val, e.opts)
	e.log.Info("run: start", "run_id", m.run.RunID)

	for m.State() != StateDone {
		if err := m.Advance(ctx); err != nil {
			return &Result{Run: m.Run()}, err
		}
	}

	run := m.Run()
	e.log.Info("final verdict",
		"run_id", run.RunID,
		"passed", run.LastVerdictPassed,
		"operator_approved", run.OperatorApproved,
		"iterations", run.Iterations,
		"reason", run.LastVerdictReason)

	res := &Result{Run: run, Candidate: run.Candidate()}
	res.Workflow, res.ExtractErr = ExtractYAML(res.Candidate)
	if res.ExtractErr != nil {
		e.log.Warn("extract: no yaml block in final candidate", "error", res.ExtractErr)
	} else {
		e.log.Info("extract: workflow", "yaml", res.Workflow)
	}
	return res, nil
}
