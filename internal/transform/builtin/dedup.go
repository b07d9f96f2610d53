package builtin

import (
	"fmt"
	"sort"
	"strings"

	"herbot/internal/frame"
)

// DeDup collapses rows that share a business key and keeps one winner per
// key according to Policy:
//
//   - "keep-first"   : the earliest row
//   - "keep-last"    : the latest row (default)
//   - "most-complete": the row with the most non-empty values; ties go to
//     the later row
//
// Winners keep their original relative order. Null key values compare equal
// to each other here, unlike in joins.
type DeDup struct {
	Keys   []string `koanf:"keys"`
	Policy string   `koanf:"policy"`
	// PreferFields add weight in most-complete scoring when non-empty.
	PreferFields []string `koanf:"prefer_fields"`
}

func (DeDup) Name() string { return "dedup" }

func (d DeDup) Apply(in *frame.Frame) (*frame.Frame, error) {
	if in.Len() == 0 || len(d.Keys) == 0 {
		return in, nil
	}
	keyIdx := make([]int, len(d.Keys))
	for i, k := range d.Keys {
		keyIdx[i] = in.Index(k)
		if keyIdx[i] < 0 {
			return nil, fmt.Errorf("dedup: unknown key column %q", k)
		}
	}

	policy := strings.ToLower(strings.TrimSpace(d.Policy))
	if policy == "" {
		policy = "keep-last"
	}
	switch policy {
	case "keep-first", "keep-last", "most-complete":
	default:
		return nil, fmt.Errorf("dedup: unknown policy %q", d.Policy)
	}

	prefer := make(map[int]struct{}, len(d.PreferFields))
	for _, f := range d.PreferFields {
		if i := in.Index(f); i >= 0 {
			prefer[i] = struct{}{}
		}
	}
	scoreOf := func(r int) int {
		score, bonus := 0, 0
		for c, v := range in.Row(r) {
			if v == nil || v == "" {
				continue
			}
			score++
			if _, ok := prefer[c]; ok {
				bonus++
			}
		}
		return score*10 + bonus
	}

	type slot struct{ index, score int }
	winners := make(map[string]slot, in.Len())
	for r := 0; r < in.Len(); r++ {
		key, _ := in.RowKey(r, keyIdx)
		prev, exists := winners[key]
		switch policy {
		case "keep-first":
			if !exists {
				winners[key] = slot{index: r}
			}
		case "most-complete":
			s := slot{index: r, score: scoreOf(r)}
			if !exists || s.score >= prev.score {
				winners[key] = s
			}
		default:
			winners[key] = slot{index: r}
		}
	}

	rows := make([]int, 0, len(winners))
	for _, s := range winners {
		rows = append(rows, s.index)
	}
	sort.Ints(rows)
	return in.Take(rows), nil
}
