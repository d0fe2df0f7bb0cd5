package pipeline

import "errors"

var (
	// ErrEmptyQuery is returned when a run is started without a request
	ErrEmptyQuery = errors.New("workflow request is empty")

	// ErrAwaitingOperator is returned by Advance when the machine has no gate
	// and is waiting for Decide
	ErrAwaitingOperator = errors.New("awaiting operator decision")

	// ErrNotAwaitingOperator is returned by Decide outside the AwaitingOperator state
	ErrNotAwaitingOperator = errors.New("no operator decision pending")

	// ErrRunFinished is returned by Advance once the run is Done
	ErrRunFinished = errors.New("run already finished")

	// ErrIterationLimit is returned when the operator declines the final
	// candidate allowed by MaxIterations
	ErrIterationLimit = errors.New("iteration limit reached without an accepted workflow")

	// ErrResumeStalled is returned when a truncated response carries no text
	ErrResumeStalled = errors.New("truncated generation produced no text to resume from")

	// ErrOperatorInputClosed is returned when the operator's input stream ends
	ErrOperatorInputClosed = errors.New("operator input closed")

	// ErrOperatorAborted is returned when the operator quits the review screen
	ErrOperatorAborted = errors.New("operator aborted the run")

	// ErrNoYAMLBlock is returned when the final candidate has no fenced yaml block
	ErrNoYAMLBlock = errors.New("no ```yaml block found in final candidate")
)
