// Package transform holds column and value utilities applied to loaded
// frames: header normalisation, value conversion, numeric formatting and
// duplicate checks.
package transform

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	xtransform "golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"herbot/internal/dataerr"
	"herbot/internal/frame"
)

// Replacement is one substring substitution applied to a column name.
type Replacement struct {
	From string `koanf:"from"`
	To   string `koanf:"to"`
}

// DefaultReplacements are applied in order when NormaliseOptions.Replace is
// empty.
var DefaultReplacements = []Replacement{
	{From: "-", To: ""},
	{From: "  ", To: " "},
	{From: "(", To: ""},
	{From: ")", To: ""},
	{From: "/", To: "_"},
	{From: ".", To: "_"},
	{From: " ", To: "_"},
}

// NormaliseOptions controls NormaliseColumnNames. The zero value lower-cases,
// strips surrounding whitespace and applies DefaultReplacements.
type NormaliseOptions struct {
	KeepCase bool `koanf:"keep_case"`
	NoStrip  bool `koanf:"no_strip"`
	// Replace replaces DefaultReplacements entirely when non-empty.
	Replace      []Replacement `koanf:"replace"`
	StripAccents bool          `koanf:"strip_accents"`
}

// NormaliseName applies opt to a single column name.
func NormaliseName(name string, opt NormaliseOptions) string {
	if opt.StripAccents {
		name = foldAccents(name)
	}
	if !opt.KeepCase {
		name = cases.Lower(language.Und).String(name)
	}
	if !opt.NoStrip {
		name = strings.TrimSpace(name)
	}
	reps := opt.Replace
	if len(reps) == 0 {
		reps = DefaultReplacements
	}
	for _, r := range reps {
		if r.From == "" {
			continue
		}
		name = strings.ReplaceAll(name, r.From, r.To)
	}
	return name
}

func foldAccents(s string) string {
	t := xtransform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := xtransform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormaliseColumnNames returns a copy of f with every column name passed
// through NormaliseName. Two columns normalising to the same name is an
// error.
func NormaliseColumnNames(f *frame.Frame, opt NormaliseOptions) (*frame.Frame, error) {
	return renameAll(f, func(name string) string { return NormaliseName(name, opt) })
}

// BatchNormalise normalises the column names of every frame in the map.
func BatchNormalise(frames map[string]*frame.Frame, opt NormaliseOptions) (map[string]*frame.Frame, error) {
	if len(frames) == 0 {
		return nil, dataerr.New(dataerr.KindNoDataProvided, "No data provided.")
	}
	out := make(map[string]*frame.Frame, len(frames))
	for name, f := range frames {
		nf, err := NormaliseColumnNames(f, opt)
		if err != nil {
			return nil, dataerr.Wrap(dataerr.KindInvalidParameters, err, "normalise "+name+": "+err.Error())
		}
		out[name] = nf
	}
	return out, nil
}

// UnNormaliseName turns underscores into spaces and title-cases each word,
// for presentation.
func UnNormaliseName(name string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(name, "_", " "))
}

// UnNormaliseColumnNames returns a copy of f with presentation headers.
func UnNormaliseColumnNames(f *frame.Frame) (*frame.Frame, error) {
	return renameAll(f, UnNormaliseName)
}

func renameAll(f *frame.Frame, fn func(string) string) (*frame.Frame, error) {
	out := f.Clone()
	mapping := make(map[string]string, out.Width())
	for _, name := range out.Columns() {
		mapping[name] = fn(name)
	}
	if err := out.Rename(mapping); err != nil {
		return nil, err
	}
	return out, nil
}
