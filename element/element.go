// Package element coordinates when and how one embedded fragment is drawn:
// one render at a time per element, stale renders cancelled, and the
// compiler's image or markup fitted into the host.
package element

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ByLCY/papyrender/render"
)

// State is the lifecycle position of an element.
type State int

const (
	StateUnattached State = iota
	StateAttached
	StateRendering
	StateDetached
	// StateFailed is terminal: the element was replaced by its error text.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnattached:
		return "unattached"
	case StateAttached:
		return "attached"
	case StateRendering:
		return "rendering"
	case StateDetached:
		return "detached"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome is how a single draw attempt ended.
type Outcome int

const (
	// OutcomeRendered means the output was replaced with a fresh result.
	OutcomeRendered Outcome = iota
	// OutcomeSkipped covers attempts that never reached the compiler.
	OutcomeSkipped
	// OutcomeDropped means the result did not match the configured format.
	OutcomeDropped
	// OutcomeCancelled means a newer attempt or a detach superseded this one.
	OutcomeCancelled
	// OutcomeFailed means the compiler failed and the element shows the error.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRendered:
		return "rendered"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDropped:
		return "dropped"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Box holds padding in CSS pixels.
type Box struct {
	Top, Right, Bottom, Left float64
}

// Child is the vector child an element inserted into the host.
type Child interface {
	Padding() Box
	SetAttr(key, value string)
}

// Host is the document side of one element.
type Host interface {
	IsConnected() bool
	Metrics() Metrics
	// SetDisplayBlock makes the element a block box.
	SetDisplayBlock()
	// AttachCanvas adds a canvas child backed by s.
	AttachCanvas(s *Surface)
	// SetMarkup replaces the children with markup and returns its root element.
	SetMarkup(markup string) (Child, error)
	// ReplaceWithError swaps the whole element for preformatted text.
	ReplaceWithError(text string)
	// Observe calls fn with the new inline size whenever the element's
	// content box changes, until stop is called.
	Observe(fn func(inlineSize float64)) (stop func())
}

// Config is the compile input read from the element's attributes.
type Config struct {
	Path    string
	Source  string
	Format  render.Format
	Display bool
}

// Env carries what elements share. IDs and Hint are usually one per process.
type Env struct {
	// Compiler serves every format missing from Formats.
	Compiler render.Compiler
	// Formats holds a compiler per output format, so elements asking for
	// different formats in one document each get matching results.
	Formats map[render.Format]render.Compiler
	Locks   *Locks
	IDs     *IDAllocator
	Hint    *HeightHint
}

// NewEnv returns an environment with fresh shared state around c.
func NewEnv(c render.Compiler) Env {
	return Env{Compiler: c, Locks: NewLocks(), IDs: &IDAllocator{}, Hint: &HeightHint{}}
}

// CompilerFor returns the compiler used for elements of format f.
func (env Env) CompilerFor(f render.Format) render.Compiler {
	if c, ok := env.Formats[f]; ok && c != nil {
		return c
	}
	return env.Compiler
}

func (env Env) validate(f render.Format) error {
	switch {
	case env.CompilerFor(f) == nil:
		return fmt.Errorf("element: env has no compiler for %s", f)
	case env.Locks == nil:
		return errors.New("element: env has no locks")
	case env.IDs == nil:
		return errors.New("element: env has no id allocator")
	case env.Hint == nil:
		return errors.New("element: env has no height hint")
	}
	return nil
}

// Element is one embedded fragment.
type Element struct {
	cfg  Config
	host Host
	env  Env

	mu        sync.Mutex
	id        ID
	hasID     bool
	state     State
	inFlight  int
	cancel    *Canceller
	surface   *Surface
	stop      func()
	lastSize  float64
	base      context.Context
	failure   error
	observers sync.WaitGroup
}

// New creates an unattached element.
func New(cfg Config, host Host, env Env) (*Element, error) {
	if host == nil {
		return nil, errors.New("element: nil host")
	}
	if err := env.validate(cfg.Format); err != nil {
		return nil, err
	}
	return &Element{cfg: cfg, host: host, env: env, cancel: &Canceller{}}, nil
}

// ID returns the identity, valid once the element was attached.
func (e *Element) ID() (ID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id, e.hasID
}

// State returns the lifecycle state.
func (e *Element) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Surface returns the raster surface, nil for vector elements.
func (e *Element) Surface() *Surface {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surface
}

// Err returns the failure shown in place of the element, if any.
func (e *Element) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failure
}

// Connect attaches the element and draws it once. In display mode it also
// starts redrawing whenever the observed width changes; those draws use ctx
// too. Connecting while the host is not in a document logs a warning and
// does nothing.
func (e *Element) Connect(ctx context.Context) Outcome {
	e.mu.Lock()
	switch e.state {
	case StateAttached, StateRendering, StateFailed:
		e.mu.Unlock()
		return OutcomeSkipped
	}
	if !e.host.IsConnected() {
		e.mu.Unlock()
		Logger().Warn("papyrus element used before it was connected", slog.String("path", e.cfg.Path))
		return OutcomeSkipped
	}

	if e.cfg.Format == render.FormatImage && e.surface == nil {
		e.surface = NewSurface(DefaultSurfaceWidth, e.env.Hint.Load())
		e.host.AttachCanvas(e.surface)
	}
	if !e.hasID {
		e.id, e.hasID = e.env.IDs.Next(), true
	}
	if e.state == StateDetached {
		e.cancel = &Canceller{}
	}
	e.base = ctx
	e.state = StateAttached
	e.mu.Unlock()

	if e.cfg.Display {
		// Observe may report the current size right away, which re-enters e.
		e.host.SetDisplayBlock()
		stop := e.host.Observe(e.observed)
		e.mu.Lock()
		if e.state == StateAttached || e.state == StateRendering {
			e.stop = stop
			stop = nil
		}
		e.mu.Unlock()
		if stop != nil {
			stop()
		}
	}
	return e.Draw(ctx)
}

// observed reacts to a size change notification.
func (e *Element) observed(inlineSize float64) {
	e.mu.Lock()
	if (e.state != StateAttached && e.state != StateRendering) || inlineSize == e.lastSize {
		e.mu.Unlock()
		return
	}
	ctx := e.base
	e.observers.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.observers.Done()
		e.Draw(ctx)
	}()
}

// Wait blocks until draws started by size notifications have settled.
func (e *Element) Wait() {
	e.observers.Wait()
}

// Disconnect detaches the element: the raster height is kept as the hint for
// the next element, observation stops and any pending attempt is cancelled.
func (e *Element) Disconnect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateAttached && e.state != StateRendering {
		return
	}
	e.detachLocked()
	e.state = StateDetached
}

func (e *Element) detachLocked() {
	if e.cfg.Format == render.FormatImage && e.surface != nil {
		e.env.Hint.Store(e.surface.Height())
	}
	if e.stop != nil {
		e.stop()
		e.stop = nil
	}
	e.cancel.Detach()
}

// Draw supersedes any attempt in progress and renders the element again.
func (e *Element) Draw(ctx context.Context) Outcome {
	e.mu.Lock()
	if e.state != StateAttached && e.state != StateRendering {
		e.mu.Unlock()
		return OutcomeSkipped
	}
	tok := e.cancel.Begin(ctx)
	id := e.id
	e.inFlight++
	e.state = StateRendering
	e.mu.Unlock()
	defer e.settle()

	out := OutcomeCancelled
	err := e.env.Locks.Do(tok.Context(), id, func(ctx context.Context) error {
		var err error
		out, err = e.attempt(ctx, tok)
		return err
	})
	switch {
	case errors.Is(err, ErrPreempted):
		out = OutcomeCancelled
	case err != nil:
		out = OutcomeFailed
	}
	if out != OutcomeRendered {
		Logger().Debug("papyrus draw settled", slog.String("id", id.String()), slog.String("outcome", out.String()))
	}
	return out
}

func (e *Element) settle() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight--
	if e.state == StateRendering && e.inFlight == 0 {
		e.state = StateAttached
	}
}

// attempt runs under the element's render lock. A returned error is the
// fatal failure that has already been shown in the document.
func (e *Element) attempt(ctx context.Context, tok *Token) (Outcome, error) {
	e.mu.Lock()
	if !tok.Current() {
		e.mu.Unlock()
		return OutcomeCancelled, nil
	}
	sample := Measure(e.host.Metrics(), e.cfg.Display)
	e.lastSize = sample.Size
	e.mu.Unlock()

	if !sample.Usable() {
		return OutcomeSkipped, nil
	}

	res, err := e.env.CompilerFor(e.cfg.Format).Compile(ctx, render.Request{
		Path:     e.cfg.Path,
		Source:   e.cfg.Source,
		Size:     sample.Size,
		Display:  e.cfg.Display,
		FontSize: sample.FontSize,
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	if !tok.Current() || errors.Is(err, context.Canceled) {
		return OutcomeCancelled, nil
	}
	if err != nil {
		return OutcomeFailed, e.failLocked(err)
	}
	out, err := e.apply(res, sample)
	if err != nil {
		return OutcomeFailed, e.failLocked(err)
	}
	return out, nil
}

// failLocked replaces the element with the error text. The element is gone
// from the document afterwards, so it is detached and never drawn again.
func (e *Element) failLocked(err error) error {
	msg := render.Message(err)
	Logger().Error("papyrus render failed", slog.String("id", e.id.String()), slog.String("path", e.cfg.Path), slog.String("error", msg))
	e.host.ReplaceWithError(msg)
	e.detachLocked()
	e.state = StateFailed
	e.failure = err
	return err
}
