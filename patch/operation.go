package patch

import (
	"errors"
	"strings"
)

var (
	// ErrUnsupportedValue indicates a document holds a value that cannot be
	// versioned (functions, channels, unsafe pointers).
	ErrUnsupportedValue = errors.New("patch: unsupported value")
	// ErrPathNotFound indicates an operation addressed a missing key.
	ErrPathNotFound = errors.New("patch: path not found")
	// ErrInvalidOperation indicates an operation with an unknown verb or an
	// empty path.
	ErrInvalidOperation = errors.New("patch: invalid operation")
)

// Op names an elementary edit.
type Op string

const (
	OpAdd     Op = "add"
	OpReplace Op = "replace"
	OpRemove  Op = "remove"
)

// Operation is one elementary edit at a key path.
type Operation struct {
	Op    Op       `json:"op"`
	Path  []string `json:"path"`
	Value any      `json:"value,omitempty"`
}

// PathString renders the path in JSON pointer form.
func (o Operation) PathString() string {
	if len(o.Path) == 0 {
		return "/"
	}
	escaped := make([]string, len(o.Path))
	for i, segment := range o.Path {
		segment = strings.ReplaceAll(segment, "~", "~0")
		escaped[i] = strings.ReplaceAll(segment, "/", "~1")
	}
	return "/" + strings.Join(escaped, "/")
}

func (o Operation) String() string {
	return string(o.Op) + " " + o.PathString()
}

func (o Operation) clone() Operation {
	return Operation{
		Op:    o.Op,
		Path:  append([]string(nil), o.Path...),
		Value: Clone(o.Value),
	}
}

// Pair holds the forward and inverse edit scripts between two states.
type Pair struct {
	Forward []Operation `json:"forward"`
	Inverse []Operation `json:"inverse"`
}

// Empty reports whether the pair describes no change.
func (p Pair) Empty() bool {
	return len(p.Forward) == 0 && len(p.Inverse) == 0
}

// Clone returns a deep copy so history entries never alias each other.
func (p Pair) Clone() Pair {
	return Pair{
		Forward: CloneOperations(p.Forward),
		Inverse: CloneOperations(p.Inverse),
	}
}

// CloneOperations deep copies ops.
func CloneOperations(ops []Operation) []Operation {
	if ops == nil {
		return nil
	}
	out := make([]Operation, len(ops))
	for i, op := range ops {
		out[i] = op.clone()
	}
	return out
}

// ClonePairs deep copies a patch log.
func ClonePairs(pairs []Pair) []Pair {
	if pairs == nil {
		return nil
	}
	out := make([]Pair, len(pairs))
	for i, pair := range pairs {
		out[i] = pair.Clone()
	}
	return out
}
