// Package builtin contains reusable frame steps that datasets can opt into
// from configuration.
package builtin

import (
	"strings"

	"herbot/internal/frame"
)

const nbsp = "\u00a0"

// Clean replaces no-break spaces (and their mis-decoded "Â " form) with an
// ASCII space and trims string values. Non-string values are left alone.
type Clean struct{}

func (Clean) Name() string { return "clean" }

func (Clean) Apply(in *frame.Frame) (*frame.Frame, error) {
	out := in.Clone()
	for _, name := range out.Columns() {
		vals, _ := out.Column(name)
		changed := false
		for i, v := range vals {
			s, ok := v.(string)
			if !ok {
				continue
			}
			c := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(s, "Â"+nbsp, " "), nbsp, " "))
			if c != s {
				vals[i] = c
				changed = true
			}
		}
		if changed {
			if err := out.SetColumn(name, vals); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
