package activity

import (
	"strings"
	"time"
)

// Object types used by the builders below.
const (
	ObjectTypeBranch = "timetravel.branch"
	ObjectTypeAction = "timetravel.action"
	ObjectTypeStore  = "timetravel.store"
)

// StoreContext identifies the store and branch an event happened on.
type StoreContext struct {
	Store    string
	BranchID string
	Branch   string
	Position int
}

// BranchEventInput describes the common fields for branch lifecycle events.
type BranchEventInput struct {
	ActorID        string
	UserID         string
	TenantID       string
	BranchID       string
	Name           string
	PreviousID     string
	PreviousName   string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	Store          StoreContext
	OccurredAt     time.Time
}

// ActionEventInput describes an action recorded by the inspector.
type ActionEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	EntryID    string
	ActionName string
	Paths      []string
	Channel    string
	Metadata   map[string]any
	Store      StoreContext
	OccurredAt time.Time
}

// BuildBranchForkedEvent constructs an activity event for a fork.
func BuildBranchForkedEvent(input BranchEventInput) Event {
	return buildBranchEvent("branch.forked", input)
}

// BuildBranchSwitchedEvent constructs an activity event for a switch.
func BuildBranchSwitchedEvent(input BranchEventInput) Event {
	return buildBranchEvent("branch.switched", input)
}

// BuildBranchDeletedEvent constructs an activity event for a deletion.
func BuildBranchDeletedEvent(input BranchEventInput) Event {
	return buildBranchEvent("branch.deleted", input)
}

// BuildBranchRenamedEvent constructs an activity event for a rename.
func BuildBranchRenamedEvent(input BranchEventInput) Event {
	return buildBranchEvent("branch.renamed", input)
}

// BuildActionRecordedEvent constructs an activity event for an inspector entry.
func BuildActionRecordedEvent(input ActionEventInput) Event {
	metadata := storeMetadata(cloneMap(input.Metadata), input.Store)
	if name := strings.TrimSpace(input.ActionName); name != "" {
		metadata = ensureMetadata(metadata)
		metadata["action"] = name
	}
	if len(input.Paths) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["paths"] = append([]string{}, input.Paths...)
	}

	objectID := strings.TrimSpace(input.EntryID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.ActionName)
	}
	if objectID == "" {
		objectID = ObjectTypeAction
	}

	return Event{
		Verb:       "action.recorded",
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: ObjectTypeAction,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func buildBranchEvent(verb string, input BranchEventInput) Event {
	metadata := storeMetadata(cloneMap(input.Metadata), input.Store)
	if input.Name != "" {
		metadata = ensureMetadata(metadata)
		metadata["name"] = input.Name
	}
	if input.PreviousID != "" {
		metadata = ensureMetadata(metadata)
		metadata["previous_id"] = input.PreviousID
	}
	if input.PreviousName != "" {
		metadata = ensureMetadata(metadata)
		metadata["previous_name"] = input.PreviousName
	}

	recipients := input.Recipients
	if len(recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectID := strings.TrimSpace(input.BranchID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Name)
	}
	if objectID == "" {
		objectID = ObjectTypeBranch
	}

	return Event{
		Verb:           verb,
		ActorID:        strings.TrimSpace(input.ActorID),
		UserID:         strings.TrimSpace(input.UserID),
		TenantID:       strings.TrimSpace(input.TenantID),
		ObjectType:     ObjectTypeBranch,
		ObjectID:       objectID,
		Channel:        strings.TrimSpace(input.Channel),
		DefinitionCode: strings.TrimSpace(input.DefinitionCode),
		Recipients:     recipients,
		Metadata:       metadata,
		OccurredAt:     input.OccurredAt,
	}
}

func storeMetadata(metadata map[string]any, store StoreContext) map[string]any {
	if store.Store != "" {
		metadata = ensureMetadata(metadata)
		metadata["store"] = store.Store
	}
	if store.BranchID != "" {
		metadata = ensureMetadata(metadata)
		metadata["branch_id"] = store.BranchID
		metadata["position"] = store.Position
	}
	if store.Branch != "" {
		metadata = ensureMetadata(metadata)
		metadata["branch"] = store.Branch
	}
	return metadata
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
