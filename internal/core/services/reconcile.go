package services

import "github.com/melih/dockerbar/internal/core/domain"

// Reconcile diffs two container lists by Key. Adds and in-place updates
// follow the order of current; removals follow the order of previous.
func Reconcile(previous, current []domain.Container) []domain.ViewOp {
	before := make(map[string]domain.Container, len(previous))
	for _, c := range previous {
		if _, dup := before[c.Key()]; !dup {
			before[c.Key()] = c
		}
	}

	var ops []domain.ViewOp
	seen := make(map[string]struct{}, len(current))
	for _, c := range current {
		key := c.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		old, ok := before[key]
		switch {
		case !ok:
			ops = append(ops, domain.Add(c))
		case old != c:
			ops = append(ops, domain.UpdateInPlace(c))
		}
	}

	removed := make(map[string]struct{})
	for _, c := range previous {
		key := c.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		if _, done := removed[key]; done {
			continue
		}
		removed[key] = struct{}{}
		ops = append(ops, domain.Remove(key))
	}
	return ops
}
