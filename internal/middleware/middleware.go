// Package middleware runs the ordered enrichment steps a fault context passes
// through before it is sealed.
package middleware

import (
	"fmt"
	"slices"
	"sync"

	ferrors "git.home.luguber.info/inful/faultline/internal/foundation/errors"
	"git.home.luguber.info/inful/faultline/internal/fault"
)

// Next continues the chain with the given context and returns the final result.
type Next func(*fault.Context) *fault.Context

// Step is one named enrichment stage. A step calls next at most once; not
// calling it stops the chain and its own return value becomes the result.
// Steps enrich only: they must not render or log.
type Step interface {
	Name() string
	Process(c *fault.Context, next Next) *fault.Context
}

type stepFunc struct {
	name string
	fn   func(*fault.Context, Next) *fault.Context
}

func (s stepFunc) Name() string { return s.name }

func (s stepFunc) Process(c *fault.Context, next Next) *fault.Context { return s.fn(c, next) }

// NewStep adapts a function to a Step.
func NewStep(name string, fn func(c *fault.Context, next Next) *fault.Context) Step {
	return stepFunc{name: name, fn: fn}
}

// Enrich builds a step that mutates the context and always continues.
func Enrich(name string, fn func(c *fault.Context)) Step {
	return NewStep(name, func(c *fault.Context, next Next) *fault.Context {
		fn(c)
		return next(c)
	})
}

// ErrStepFailed is reported when a step panics. The step is skipped.
var ErrStepFailed = ferrors.MiddlewareError("middleware step failed").Build()

// Chain is an ordered list of steps. Order is registration order.
type Chain struct {
	mu      sync.RWMutex
	steps   []Step
	onError func(step string, err error)
}

// Option configures a Chain.
type Option func(*Chain)

// WithErrorHandler receives failures of individual steps.
func WithErrorHandler(fn func(step string, err error)) Option {
	return func(c *Chain) { c.onError = fn }
}

// NewChain creates a chain from steps.
func NewChain(steps []Step, opts ...Option) *Chain {
	c := &Chain{steps: slices.Clone(steps)}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Register appends a step.
func (c *Chain) Register(s Step) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = append(c.steps, s)
}

// Names lists the registered step names in order.
func (c *Chain) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.steps))
	for i, s := range c.steps {
		out[i] = s.Name()
	}
	return out
}

// Run folds the steps left to right over initial. Every step receives its own
// unsealed copy, so initial is never modified.
func (c *Chain) Run(initial *fault.Context) *fault.Context {
	c.mu.RLock()
	steps := slices.Clone(c.steps)
	c.mu.RUnlock()
	return c.at(steps, 0, initial.Clone())
}

func (c *Chain) at(steps []Step, i int, in *fault.Context) *fault.Context {
	if i >= len(steps) {
		return in
	}
	step := steps[i]

	var (
		called bool
		result *fault.Context
	)
	next := func(out *fault.Context) *fault.Context {
		if called {
			return result
		}
		called = true
		if out == nil {
			out = in
		}
		result = c.at(steps, i+1, out.Clone())
		return result
	}

	out, err := c.invoke(step, in.Clone(), next)
	switch {
	case err != nil && called:
		c.report(step, err)
		return result
	case err != nil:
		c.report(step, err)
		return next(in)
	case out == nil && called:
		return result
	case out == nil:
		return in
	default:
		return out
	}
}

func (c *Chain) invoke(step Step, in *fault.Context, next Next) (out *fault.Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrStepFailed.
				WithContext("step", step.Name()).
				Wrap(fmt.Errorf("panic: %v", r))
		}
	}()
	return step.Process(in, next), nil
}

func (c *Chain) report(step Step, err error) {
	if c.onError != nil {
		c.onError(step.Name(), err)
	}
}
