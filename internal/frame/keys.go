package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
)

// encodeValue renders a value into a canonical string so that equal values of
// compatible types produce the same encoding. Integers and whole floats
// encode identically, so 1 and 1.0 match.
func encodeValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "\x00"
	case string:
		return "s:" + t
	case []byte:
		return "s:" + string(t)
	case bool:
		return "b:" + strconv.FormatBool(t)
	case int:
		return "n:" + strconv.FormatInt(int64(t), 10)
	case int8:
		return "n:" + strconv.FormatInt(int64(t), 10)
	case int16:
		return "n:" + strconv.FormatInt(int64(t), 10)
	case int32:
		return "n:" + strconv.FormatInt(int64(t), 10)
	case int64:
		return "n:" + strconv.FormatInt(t, 10)
	case uint:
		return "n:" + strconv.FormatUint(uint64(t), 10)
	case uint8:
		return "n:" + strconv.FormatUint(uint64(t), 10)
	case uint16:
		return "n:" + strconv.FormatUint(uint64(t), 10)
	case uint32:
		return "n:" + strconv.FormatUint(uint64(t), 10)
	case uint64:
		return "n:" + strconv.FormatUint(t, 10)
	case float32:
		return encodeFloat(float64(t))
	case float64:
		return encodeFloat(t)
	case time.Time:
		return "t:" + t.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%T:%v", v, v)
	}
}

func encodeFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e18 {
		return "n:" + strconv.FormatInt(int64(f), 10)
	}
	return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
}

// KeyOf encodes a tuple of values as a composite key. Each value is length
// prefixed, so no string content can forge a boundary between values.
// hasNull reports whether any value was nil; callers doing relational
// matching treat such keys as unmatched.
func KeyOf(values ...any) (key string, hasNull bool) {
	var b strings.Builder
	for _, v := range values {
		if v == nil {
			hasNull = true
		}
		enc := encodeValue(v)
		b.WriteString(strconv.Itoa(len(enc)))
		b.WriteByte(':')
		b.WriteString(enc)
	}
	return b.String(), hasNull
}

// RowKey returns the composite key of row r over the given column indexes.
func (f *Frame) RowKey(r int, cols []int) (string, bool) {
	vals := make([]any, len(cols))
	for i, c := range cols {
		vals[i] = f.cols[c][r]
	}
	return KeyOf(vals...)
}

// Duplicated marks every row whose key over the given columns was already
// seen in an earlier row. With no columns, whole rows are compared.
func (f *Frame) Duplicated(columns ...string) ([]bool, error) {
	if len(columns) == 0 {
		columns = f.names
	}
	idx := make([]int, len(columns))
	for i, name := range columns {
		c, ok := f.index[name]
		if !ok {
			return nil, fmt.Errorf("frame: unknown column %q", name)
		}
		idx[i] = c
	}

	// Hash first; keep the full keys per bucket so collisions stay exact.
	seen := make(map[uint64][]string, f.rows)
	out := make([]bool, f.rows)
	for r := 0; r < f.rows; r++ {
		key, _ := f.RowKey(r, idx)
		h := xxh3.HashString(key)
		dup := false
		for _, k := range seen[h] {
			if k == key {
				dup = true
				break
			}
		}
		if dup {
			out[r] = true
			continue
		}
		seen[h] = append(seen[h], key)
	}
	return out, nil
}
