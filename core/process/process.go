package process

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leofalp/textstruct/core/section"
	"github.com/leofalp/textstruct/internal/diag"
	"github.com/leofalp/textstruct/internal/htmltext"
	"github.com/leofalp/textstruct/providers/observability"
)

// State is the progress of one run.
type State string

const (
	StateStarted   State = "started"
	StateADone     State = "structuring_a_done"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

const (
	attrOutcome    = "outcome"
	attrFailedFrom = "process.failed_from"
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// ErrEmptyText is returned when either input text is blank.
var ErrEmptyText = errors.New("textA and textB must not be empty")

// Structurer structures a single text. *structurer.Structurer satisfies it.
type Structurer interface {
	Structure(ctx context.Context, text, previousExample string) (section.Result, error)
}

// Request is the input of one run.
type Request struct {
	TextA string
	TextB string
	// Format applies to both texts. The zero value means plain text.
	Format htmltext.Format
}

// Validate reports whether r can be run.
func (r Request) Validate() error {
	if strings.TrimSpace(r.TextA) == "" || strings.TrimSpace(r.TextB) == "" {
		return ErrEmptyText
	}
	return nil
}

// RunError is a failed run. State is the last state reached before the
// failure; Err is the *section.Error that caused it.
type RunError struct {
	ProcessID string
	State     State
	Err       error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("process %s failed after %s: %v", e.ProcessID, e.State, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Processor orchestrates the two structuring calls of a request.
type Processor struct {
	structurer Structurer
	store      *diag.Store
	observer   observability.Provider
	newID      func() string
}

// Option configures a Processor.
type Option func(*Processor)

// WithObserver sets the observability provider.
func WithObserver(observer observability.Provider) Option {
	return func(p *Processor) {
		p.observer = observability.OrNop(observer)
	}
}

// WithIDGenerator replaces the UUID process ID generator.
func WithIDGenerator(newID func() string) Option {
	return func(p *Processor) {
		if newID != nil {
			p.newID = newID
		}
	}
}

// New returns a Processor. A nil store disables diagnostic logs.
func New(structurer Structurer, store *diag.Store, opts ...Option) *Processor {
	p := &Processor{
		structurer: structurer,
		store:      store,
		observer:   observability.Nop(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run structures req.TextA, then req.TextB using A's result as the example.
// Invalid requests fail with ErrEmptyText before a process ID is assigned;
// every later failure is a *RunError and no partial response is returned.
func (p *Processor) Run(ctx context.Context, req Request) (*section.CombinedResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	processID := p.newID()
	start := time.Now()
	ctx = observability.ContextWithObserver(ctx,
		observability.With(p.observer, observability.String(observability.AttrProcessID, processID)))
	ctx, closeLog := p.openLog(ctx, processID)
	defer closeLog()
	logger := diag.FromContext(ctx)

	p.observer.Info(ctx, "Process started",
		observability.String(observability.AttrProcessID, processID),
	)

	state := StateStarted
	fail := func(err error) (*section.CombinedResponse, error) {
		logger.Error("Process failed",
			observability.AttrProcessState, string(StateFailed),
			attrFailedFrom, string(state),
			observability.AttrErrorKind, string(section.KindOf(err)),
			observability.AttrErrorStage, string(section.StageOf(err)),
			observability.AttrError, err.Error(),
		)
		p.observer.Error(ctx, "Process failed",
			observability.String(observability.AttrProcessID, processID),
			observability.String(attrFailedFrom, string(state)),
			observability.String(observability.AttrErrorKind, string(section.KindOf(err))),
			observability.Error(err),
		)
		p.observer.Counter(observability.MetricProcessCount).Add(ctx, 1,
			observability.String(attrOutcome, outcomeFailure))
		return nil, &RunError{ProcessID: processID, State: state, Err: err}
	}

	textA, textB, err := normalize(req)
	if err != nil {
		return fail(section.NewError(section.KindUnexpected, "normalizing input", err))
	}

	logger.Info("Structuring text A", observability.AttrStructuringText, "A")
	structuredA, err := p.structurer.Structure(ctx, textA, "")
	if err != nil {
		return fail(err)
	}
	state = StateADone
	logger.Info("Structured text A", observability.AttrProcessState, string(state))

	example, err := structuredA.Serialize()
	if err != nil {
		return fail(section.NewError(section.KindUnexpected, "serializing text A result", err))
	}

	logger.Info("Structuring text B", observability.AttrStructuringText, "B")
	structuredB, err := p.structurer.Structure(ctx, textB, example)
	if err != nil {
		return fail(err)
	}
	state = StateCompleted
	logger.Info("Process completed", observability.AttrProcessState, string(state))

	p.observer.Info(ctx, "Process completed",
		observability.String(observability.AttrProcessID, processID),
		observability.Int("units_a", len(structuredA)),
		observability.Int("units_b", len(structuredB)),
		observability.Duration(observability.AttrDuration, time.Since(start)),
	)
	p.observer.Counter(observability.MetricProcessCount).Add(ctx, 1,
		observability.String(attrOutcome, outcomeSuccess))

	return &section.CombinedResponse{
		ProcessID:   processID,
		StructuredA: structuredA,
		StructuredB: structuredB,
	}, nil
}

// openLog attaches the diagnostic log of processID to ctx and returns the
// function closing it. A log that cannot be opened is reported but does not
// fail the run.
func (p *Processor) openLog(ctx context.Context, processID string) (context.Context, func()) {
	if p.store == nil {
		return ctx, func() {}
	}

	log, err := p.store.Open(processID)
	if err != nil {
		p.observer.Warn(ctx, "Diagnostic log unavailable",
			observability.String(observability.AttrProcessID, processID),
			observability.Error(err),
		)
		return ctx, func() {}
	}

	return diag.WithLog(ctx, log), func() {
		if err := log.Close(); err != nil {
			p.observer.Warn(ctx, "failed to close diagnostic log", observability.Error(err))
		}
	}
}

func normalize(req Request) (string, string, error) {
	textA, err := htmltext.Normalize(req.TextA, req.Format)
	if err != nil {
		return "", "", fmt.Errorf("text A: %w", err)
	}
	textB, err := htmltext.Normalize(req.TextB, req.Format)
	if err != nil {
		return "", "", fmt.Errorf("text B: %w", err)
	}
	return textA, textB, nil
}
