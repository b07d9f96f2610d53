package builtin

import (
	"fmt"

	"herbot/internal/frame"
)

// Require removes every row missing a value in any of Fields. Empty strings
// count as missing.
type Require struct {
	Fields []string `koanf:"fields"`
}

func (Require) Name() string { return "require" }

func (r Require) Apply(in *frame.Frame) (*frame.Frame, error) {
	cols := make([][]any, len(r.Fields))
	for i, f := range r.Fields {
		vals, ok := in.Column(f)
		if !ok {
			return nil, fmt.Errorf("require: unknown column %q", f)
		}
		cols[i] = vals
	}
	return in.Filter(func(row int) bool {
		for _, c := range cols {
			if v := c[row]; v == nil || v == "" {
				return false
			}
		}
		return true
	}), nil
}
