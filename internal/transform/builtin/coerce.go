package builtin

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"herbot/internal/frame"
)

var (
	defaultTruthy = map[string]struct{}{"1": {}, "t": {}, "true": {}, "yes": {}, "y": {}}
	defaultFalsy  = map[string]struct{}{"0": {}, "f": {}, "false": {}, "no": {}, "n": {}}
)

// Coerce converts string cells into typed values. Cells that do not parse
// are left as they were.
type Coerce struct {
	// Types maps column -> one of int, float, bool, date, string.
	Types map[string]string `koanf:"types"`
	// Layout is the Go time layout used for date columns.
	Layout string `koanf:"layout"`
}

func (Coerce) Name() string { return "coerce" }

func (c Coerce) Apply(in *frame.Frame) (*frame.Frame, error) {
	if len(c.Types) == 0 {
		return in, nil
	}
	layout := c.Layout
	if layout == "" {
		layout = "2006-01-02"
	}
	out := in.Clone()
	for field, typ := range c.Types {
		vals, ok := out.Column(field)
		if !ok {
			return nil, fmt.Errorf("coerce: unknown column %q", field)
		}
		conv, err := converter(strings.ToLower(typ), layout)
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			s, isStr := v.(string)
			if !isStr {
				continue
			}
			if nv, ok := conv(strings.TrimSpace(s)); ok {
				vals[i] = nv
			}
		}
		if err := out.SetColumn(field, vals); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func converter(typ, layout string) (func(string) (any, bool), error) {
	switch typ {
	case "int":
		return func(s string) (any, bool) {
			i, err := strconv.ParseInt(s, 10, 64)
			return i, err == nil
		}, nil
	case "float", "numeric":
		return func(s string) (any, bool) {
			f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
			return f, err == nil
		}, nil
	case "bool":
		return func(s string) (any, bool) {
			l := strings.ToLower(s)
			if _, ok := defaultTruthy[l]; ok {
				return true, true
			}
			if _, ok := defaultFalsy[l]; ok {
				return false, true
			}
			return nil, false
		}, nil
	case "date":
		return func(s string) (any, bool) {
			t, err := time.Parse(layout, s)
			return t, err == nil
		}, nil
	case "string", "text", "":
		return func(s string) (any, bool) { return s, true }, nil
	}
	return nil, fmt.Errorf("coerce: unsupported type %q", typ)
}
