// Package task implements the task-progress synchronization engine: the
// JSON protocol types, the HTTP client for the extraction service, the
// snapshot store that diffs full (non-delta) status snapshots, and the
// lifecycle controller that owns the task handle and all timers.
package task

import (
	"encoding/json"
	"fmt"
)

// Status is the task-level status reported in a snapshot.
type Status int

const (
	StatusDiscovering Status = iota
	StatusProcessing
	StatusCompleted
	StatusError
	StatusNotFound
)

var statusNames = map[Status]string{
	StatusDiscovering: "discovering",
	StatusProcessing:  "processing",
	StatusCompleted:   "completed",
	StatusError:       "error",
	StatusNotFound:    "not_found",
}

// String returns the wire form of the status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Terminal reports whether the status ends the polling loop.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusNotFound
}

// MarshalJSON encodes the status as its wire string.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a wire status string. Unknown strings are an error:
// the status vocabulary is closed.
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for v, n := range statusNames {
		if n == name {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown task status %q", name)
}

// ItemStatus is the per-item status reported in a snapshot.
type ItemStatus int

const (
	ItemPending ItemStatus = iota
	ItemProcessing
	ItemCompletedRelevant
	ItemCompletedIrrelevant
	ItemError
)

var itemStatusNames = map[ItemStatus]string{
	ItemPending:             "pending",
	ItemProcessing:          "processing",
	ItemCompletedRelevant:   "completed_relevant",
	ItemCompletedIrrelevant: "completed_irrelevant",
	ItemError:               "error",
}

// String returns the wire form of the item status.
func (s ItemStatus) String() string {
	if name, ok := itemStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ItemStatus(%d)", int(s))
}

// Loading reports whether the item is still awaiting a terminal outcome.
func (s ItemStatus) Loading() bool {
	return s == ItemPending || s == ItemProcessing
}

// MarshalJSON encodes the item status as its wire string.
func (s ItemStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a wire item status string.
func (s *ItemStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for v, n := range itemStatusNames {
		if n == name {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown item status %q", name)
}

// Item is one unit of extraction work tracked for progress display.
// GroupKey is the patent document the table came from and Ordinal its
// position within that document; (GroupKey, Ordinal) orders the rows.
type Item struct {
	UID      string     `json:"-"`
	GroupKey string     `json:"group_key"`
	Ordinal  int        `json:"ordinal"`
	Status   ItemStatus `json:"status"`
}

// Counts summarizes overall progress.
type Counts struct {
	ProcessedFiles  int `json:"processed_files"`
	TotalFiles      int `json:"total_files"`
	ProcessedTables int `json:"processed_tables"`
	TotalTables     int `json:"total_tables"`
	RelevantTables  int `json:"relevant_tables"`
}

// Snapshot is the complete current state returned by one status poll. It
// supersedes, never merges with, the previous snapshot: the client performs
// its own change detection.
type Snapshot struct {
	Status        Status          `json:"status"`
	Message       string          `json:"message,omitempty"`
	Counts        Counts          `json:"counts"`
	CurrentAction string          `json:"current_action,omitempty"`
	Errors        []string        `json:"errors,omitempty"`
	Items         map[string]Item `json:"items,omitempty"`
	Percentage    float64         `json:"percentage"`
}
