package ddl

import "time"

// InferKind picks the narrowest logical kind that holds every non-nil value.
// Integers widen to float when mixed with fractions; any other mix falls
// back to string. A column with no values is a nullable string.
func InferKind(values []any) (kind string, nullable bool) {
	for _, v := range values {
		if v == nil {
			nullable = true
			continue
		}
		k := kindOf(v)
		switch {
		case kind == "":
			kind = k
		case kind == k:
		case (kind == KindInt && k == KindFloat) || (kind == KindFloat && k == KindInt):
			kind = KindFloat
		default:
			kind = KindString
		}
	}
	if kind == "" {
		return KindString, true
	}
	return kind, nullable
}

func kindOf(v any) string {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInt
	case float32, float64:
		return KindFloat
	case bool:
		return KindBool
	case time.Time:
		return KindTimestamp
	}
	return KindString
}

// Infer builds a TableDef from column names and their values. mapType turns
// a logical kind into a dialect type; overrides, keyed by column name, win
// over inference and are emitted verbatim.
func Infer(fqn string, names []string, columns [][]any, mapType func(string) string, overrides map[string]string) TableDef {
	defs := make([]ColumnDef, len(names))
	for i, name := range names {
		var vals []any
		if i < len(columns) {
			vals = columns[i]
		}
		kind, nullable := InferKind(vals)
		typ := mapType(kind)
		if o, ok := overrides[name]; ok && o != "" {
			typ = o
		}
		defs[i] = ColumnDef{Name: name, Kind: kind, SQLType: typ, Nullable: nullable}
	}
	return TableDef{FQN: fqn, Columns: defs}
}
