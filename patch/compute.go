package patch

import (
	"fmt"
	"slices"
)

// Compute derives the forward and inverse operations between pre and post.
// Nil documents are treated as empty. Keys are visited in sorted order so
// identical inputs always yield identical scripts.
func Compute(pre, post map[string]any) (Pair, error) {
	var pair Pair
	if err := walk(nil, pre, post, &pair); err != nil {
		return Pair{}, err
	}
	slices.Reverse(pair.Inverse)
	return pair, nil
}

func walk(path []string, pre, post map[string]any, pair *Pair) error {
	for _, key := range unionKeys(pre, post) {
		before, hadBefore := pre[key]
		after, hasAfter := post[key]
		at := childPath(path, key)

		switch {
		case !hadBefore && hasAfter:
			if err := Validate(after); err != nil {
				return fmt.Errorf("%w at %s", err, Operation{Path: at}.PathString())
			}
			pair.Forward = append(pair.Forward, Operation{Op: OpAdd, Path: at, Value: Clone(after)})
			pair.Inverse = append(pair.Inverse, Operation{Op: OpRemove, Path: at})
		case hadBefore && !hasAfter:
			pair.Forward = append(pair.Forward, Operation{Op: OpRemove, Path: at})
			pair.Inverse = append(pair.Inverse, Operation{Op: OpAdd, Path: append([]string(nil), at...), Value: Clone(before)})
		default:
			beforeMap, beforeIsMap := before.(map[string]any)
			afterMap, afterIsMap := after.(map[string]any)
			if beforeIsMap && afterIsMap {
				if err := walk(at, beforeMap, afterMap, pair); err != nil {
					return err
				}
				continue
			}
			if Equal(before, after) {
				continue
			}
			if err := Validate(after); err != nil {
				return fmt.Errorf("%w at %s", err, Operation{Path: at}.PathString())
			}
			pair.Forward = append(pair.Forward, Operation{Op: OpReplace, Path: at, Value: Clone(after)})
			pair.Inverse = append(pair.Inverse, Operation{Op: OpReplace, Path: append([]string(nil), at...), Value: Clone(before)})
		}
	}
	return nil
}

func unionKeys(a, b map[string]any) []string {
	keys := make([]string, 0, len(a)+len(b))
	for key := range a {
		keys = append(keys, key)
	}
	for key := range b {
		if _, ok := a[key]; !ok {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

func childPath(path []string, key string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = key
	return out
}
