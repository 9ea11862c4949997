// Package fork defines the Fork entity: one tracked invocation of an
// external agent in its own terminal window.
package fork

import (
	"errors"
	"slices"
	"time"
)

// Status represents the lifecycle state of a fork.
type Status string

const (
	StatusSpawning   Status = "spawning"
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusTerminated Status = "terminated"
)

// ErrTerminal is returned when a mutation targets a fork that already
// reached completed, failed or terminated.
var ErrTerminal = errors.New("fork is in a terminal state")

// ErrInvalidTransition is returned when a status change is not allowed from
// the fork's current, non-terminal status.
var ErrInvalidTransition = errors.New("invalid fork status transition")

// IsTerminal returns true if no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusTerminated
}

// transitions lists the allowed next states for each non-terminal state.
var transitions = map[Status][]Status{
	StatusSpawning: {StatusRunning, StatusFailed, StatusTerminated},
	StatusRunning:  {StatusCompleted, StatusFailed, StatusTerminated},
}

// CanTransition reports whether moving from s to next is allowed.
func (s Status) CanTransition(next Status) bool {
	return slices.Contains(transitions[s], next)
}

const (
	// TaskLabelLimit is the prompt prefix length shown as a fork's task label.
	TaskLabelLimit = 50

	// ProgressLaunched is the progress reported once the terminal is open.
	ProgressLaunched = 10
)

// Fork is the registry record for one spawned agent.
type Fork struct {
	ID             string     `json:"id"`
	Agent          string     `json:"agent"`
	Model          string     `json:"model"`
	Status         Status     `json:"status"`
	Task           string     `json:"task"`
	Prompt         string     `json:"prompt"`
	StartedAt      time.Time  `json:"startedAt"`
	CompletedAt    *time.Time `json:"completedAt"`
	Progress       int        `json:"progress"`
	PID            *int       `json:"pid"`
	Output         []string   `json:"output"`
	IncludeSummary bool       `json:"includeSummary"`
}

// Clone returns a deep copy suitable for handing out of the registry.
func (f *Fork) Clone() Fork {
	c := *f
	c.Output = slices.Clone(f.Output)
	if f.CompletedAt != nil {
		t := *f.CompletedAt
		c.CompletedAt = &t
	}
	if f.PID != nil {
		p := *f.PID
		c.PID = &p
	}
	return c
}

// ClampProgress bounds v to [0, 100].
func ClampProgress(v int) int {
	return min(100, max(0, v))
}

// TaskLabel derives the short task label from a prompt.
func TaskLabel(prompt string) string {
	r := []rune(prompt)
	if len(r) <= TaskLabelLimit {
		return prompt
	}
	return string(r[:TaskLabelLimit]) + "..."
}
