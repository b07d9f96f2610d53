package frame

import "fmt"

// UniqueNames suffixes repeated names with .1, .2 and so on, skipping any
// suffix already in use, so the result can be passed to New.
func UniqueNames(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]int, len(names))
	for i, name := range names {
		if n, dup := seen[name]; dup {
			base := name
			for k := n + 1; ; k++ {
				cand := fmt.Sprintf("%s.%d", base, k)
				if _, taken := seen[cand]; !taken {
					seen[base] = k
					name = cand
					break
				}
			}
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}
