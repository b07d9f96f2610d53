package transform

import (
	"fmt"

	"herbot/internal/frame"
)

// Step transforms a whole frame.
type Step interface {
	Name() string
	Apply(f *frame.Frame) (*frame.Frame, error)
}

// Chain is an ordered list of steps.
type Chain []Step

// Apply runs each step on the output of the previous one.
func (c Chain) Apply(in *frame.Frame) (*frame.Frame, error) {
	out := in
	for _, s := range c {
		next, err := s.Apply(out)
		if err != nil {
			return nil, fmt.Errorf("transform %s: %w", s.Name(), err)
		}
		out = next
	}
	return out, nil
}
