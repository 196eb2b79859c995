// Package branch manages independent lineages of a document that share one
// live timeline engine at a time.
//
// Manager construction is two-phase: NewManager prepares the manager, and
// Init captures the engine's current lineage as the "main" branch. Branch
// operations before Init fail with ErrNotInitialized.
package branch

import (
	"errors"
	"time"

	"github.com/goliatone/go-timetravel/patch"
)

// MainID identifies the branch that exists for the lifetime of a manager.
const MainID = "main"

var (
	// ErrUnknownBranch indicates an id that matches no branch.
	ErrUnknownBranch = errors.New("branch: unknown branch")
	// ErrProtectedBranch indicates an attempt to delete main.
	ErrProtectedBranch = errors.New("branch: main branch cannot be deleted")
	// ErrActiveBranchProtected indicates an attempt to delete the active branch.
	ErrActiveBranchProtected = errors.New("branch: active branch cannot be deleted")
	// ErrNotInitialized indicates a call before Init captured main.
	ErrNotInitialized = errors.New("branch: manager not initialized")
	// ErrAmbiguousName indicates a name lookup matched several branches.
	ErrAmbiguousName = errors.New("branch: name matches several branches")
	// ErrInvalidName indicates an empty branch name.
	ErrInvalidName = errors.New("branch: name must not be empty")
)

// Branch is one lineage. Records returned by the manager are deep copies.
type Branch struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	ParentID     string         `json:"parent_id,omitempty"`
	ForkPoint    int            `json:"fork_point"`
	Snapshot     map[string]any `json:"snapshot"`
	CurrentState map[string]any `json:"current_state"`
	Log          []patch.Pair   `json:"log,omitempty"`
	Position     int            `json:"position"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Clone returns a deep copy of b.
func (b Branch) Clone() Branch {
	out := b
	out.Snapshot = patch.Clone(b.Snapshot)
	out.CurrentState = patch.Clone(b.CurrentState)
	out.Log = patch.ClonePairs(b.Log)
	return out
}

// IsMain reports whether b is the protected main branch.
func (b Branch) IsMain() bool {
	return b.ID == MainID
}

// Config controls branching.
type Config struct {
	// Enabled turns branching on. A disabled manager exposes a single
	// synthetic main branch and ignores fork, switch, delete and rename.
	Enabled bool
}

// EventKind tags a branch lifecycle event.
type EventKind string

const (
	EventForked   EventKind = "branch.forked"
	EventSwitched EventKind = "branch.switched"
	EventDeleted  EventKind = "branch.deleted"
	EventRenamed  EventKind = "branch.renamed"
)

// Event describes one lifecycle change.
type Event struct {
	Kind EventKind
	// BranchID is the branch the event is about.
	BranchID string
	Name     string
	// PreviousID is the previously active branch for switches, or the parent
	// for forks.
	PreviousID string
	// PreviousName is set for renames.
	PreviousName string
	OccurredAt   time.Time
}
