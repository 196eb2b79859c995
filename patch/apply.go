package patch

import "fmt"

// Apply returns a copy of doc with ops applied in order. doc is not modified.
func Apply(doc map[string]any, ops []Operation) (map[string]any, error) {
	out := CloneDocument(doc)
	if err := ApplyInPlace(out, ops); err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyInPlace applies ops directly onto doc. On error doc may be partially
// updated; callers that need atomicity should use Apply.
func ApplyInPlace(doc map[string]any, ops []Operation) error {
	for _, op := range ops {
		if err := applyOne(doc, op); err != nil {
			return err
		}
	}
	return nil
}

func applyOne(doc map[string]any, op Operation) error {
	if len(op.Path) == 0 {
		return fmt.Errorf("%w: %s with empty path", ErrInvalidOperation, op.Op)
	}
	parent := doc
	for _, segment := range op.Path[:len(op.Path)-1] {
		next, ok := parent[segment].(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %s", ErrPathNotFound, op.PathString())
		}
		parent = next
	}
	key := op.Path[len(op.Path)-1]

	switch op.Op {
	case OpAdd:
		parent[key] = Clone(op.Value)
	case OpReplace:
		if _, ok := parent[key]; !ok {
			return fmt.Errorf("%w: %s", ErrPathNotFound, op.PathString())
		}
		parent[key] = Clone(op.Value)
	case OpRemove:
		if _, ok := parent[key]; !ok {
			return fmt.Errorf("%w: %s", ErrPathNotFound, op.PathString())
		}
		delete(parent, key)
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidOperation, op.Op)
	}
	return nil
}
