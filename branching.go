package timetravel

import (
	"github.com/goliatone/go-timetravel/branch"
	"github.com/goliatone/go-timetravel/diff"
)

// Branches is the branching facade. Failures are logged and returned;
// successful lifecycle changes are reported through Subscribe, the logger,
// metrics and activity hooks.
type Branches struct {
	store *Store
}

// Enabled reports whether branching is on.
func (b *Branches) Enabled() bool {
	return b.store.branches.Enabled()
}

// Fork creates a branch from the active branch's current data.
func (b *Branches) Fork(name string) (branch.Branch, error) {
	created, err := b.store.branches.Fork(name)
	if err != nil {
		b.failed(LogFork, name, err)
		return branch.Branch{}, err
	}
	return created, nil
}

// Switch activates the branch with id branchID.
func (b *Branches) Switch(branchID string) error {
	if err := b.store.branches.Switch(branchID); err != nil {
		b.failed(LogSwitch, branchID, err)
		return err
	}
	return nil
}

// Checkout resolves nameOrID with Find and switches to it.
func (b *Branches) Checkout(nameOrID string) (branch.Branch, error) {
	target, err := b.store.branches.Find(nameOrID)
	if err != nil {
		b.failed(LogSwitch, nameOrID, err)
		return branch.Branch{}, err
	}
	if err := b.Switch(target.ID); err != nil {
		return branch.Branch{}, err
	}
	return target, nil
}

// List returns every branch in creation order.
func (b *Branches) List() ([]branch.Branch, error) {
	return b.store.branches.List()
}

// Active returns the active branch.
func (b *Branches) Active() (branch.Branch, error) {
	return b.store.branches.Active()
}

// ActiveID returns the active branch id.
func (b *Branches) ActiveID() string {
	return b.store.branches.ActiveID()
}

// Get returns the branch with id branchID.
func (b *Branches) Get(branchID string) (branch.Branch, error) {
	return b.store.branches.Get(branchID)
}

// Find resolves a branch by id or unique name.
func (b *Branches) Find(nameOrID string) (branch.Branch, error) {
	return b.store.branches.Find(nameOrID)
}

// Diff compares the current data of two branches.
func (b *Branches) Diff(branchA, branchB string) ([]diff.Change, error) {
	return b.store.branches.Diff(branchA, branchB)
}

// Delete removes a branch. main and the active branch are protected.
func (b *Branches) Delete(branchID string) error {
	if err := b.store.branches.Delete(branchID); err != nil {
		b.failed(LogDelete, branchID, err)
		return err
	}
	return nil
}

// Rename changes a branch's display name.
func (b *Branches) Rename(branchID, name string) error {
	if err := b.store.branches.Rename(branchID, name); err != nil {
		b.failed(LogRename, branchID, err)
		return err
	}
	return nil
}

// Subscribe registers fn for branch lifecycle events.
func (b *Branches) Subscribe(fn func(branch.Event)) func() {
	return b.store.branches.Subscribe(fn)
}

func (b *Branches) failed(kind LogKind, target string, err error) {
	b.store.cfg.logger.LogEvent(LogEvent{
		Kind:   kind,
		Store:  b.store.cfg.name,
		Branch: b.store.branches.ActiveID(),
		Action: target,
		Err:    err,
	})
}
