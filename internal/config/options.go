package config

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Options is a free-form map interpreted by the transform it configures.
// Missing keys or keys of an unexpected type fall back to the provided
// default.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if s, ok := o[key].(string); ok {
		return s
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if b, ok := o[key].(bool); ok {
		return b
	}
	return def
}

// Int returns the int value for key or def. YAML decodes whole numbers as
// int and JSON as float64; both are accepted.
func (o Options) Int(key string, def int) int {
	switch n := o[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

// StringSlice returns key as a []string, skipping non-string elements.
func (o Options) StringSlice(key string) []string {
	switch vv := o[key].(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, x := range vv {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Decode copies the options into dst, a pointer to a struct with koanf
// tags. Unknown keys are an error so typos surface at validation time.
func (o Options) Decode(dst any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "koanf",
		Result:           dst,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("options decoder: %w", err)
	}
	return dec.Decode(map[string]any(o))
}
