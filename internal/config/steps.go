package config

import (
	"fmt"
	"sort"

	"herbot/internal/transform"
	"herbot/internal/transform/builtin"
)

var stepKinds = map[string]func(Options) (transform.Step, error){
	"clean": func(o Options) (transform.Step, error) {
		var s builtin.Clean
		return s, o.Decode(&s)
	},
	"coerce": func(o Options) (transform.Step, error) {
		var s builtin.Coerce
		return s, o.Decode(&s)
	},
	"dedup": func(o Options) (transform.Step, error) {
		var s builtin.DeDup
		return s, o.Decode(&s)
	},
	"require": func(o Options) (transform.Step, error) {
		var s builtin.Require
		return s, o.Decode(&s)
	},
}

// StepKinds lists the registered step kinds in sorted order.
func StepKinds() []string {
	out := make([]string, 0, len(stepKinds))
	for k := range stepKinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Build turns a configured step into a transform.
func (s Step) Build() (transform.Step, error) {
	mk, ok := stepKinds[s.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown step kind %q", s.Kind)
	}
	st, err := mk(s.Options)
	if err != nil {
		return nil, fmt.Errorf("%s options: %w", s.Kind, err)
	}
	return st, nil
}

// Chain builds every step of d in order.
func (d Dataset) Chain() (transform.Chain, error) {
	chain := make(transform.Chain, 0, len(d.Steps))
	for i, s := range d.Steps {
		st, err := s.Build()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		chain = append(chain, st)
	}
	return chain, nil
}
