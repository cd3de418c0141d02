package domain

import (
	"fmt"
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank orders priorities from least (0) to most urgent (3).
// Unknown values rank as normal.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityHigh:
		return 2
	case PriorityCritical:
		return 3
	default:
		return 1
	}
}

// Urgent reports whether the priority earns the assignment urgency bonus.
func (p Priority) Urgent() bool {
	return p == PriorityHigh || p == PriorityCritical
}

// ParsePriority accepts the dispatch vocabulary plus the "medium" alias
// used by drop-point urgency labels.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, nil
	case "", "normal", "medium":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	case "critical":
		return PriorityCritical, nil
	}
	return "", fmt.Errorf("parse priority: unknown value %q", s)
}

// PriorityFromUrgency maps a 0-100 urgency score onto a priority.
func PriorityFromUrgency(score float64) Priority {
	switch {
	case score >= 90:
		return PriorityCritical
	case score >= 70:
		return PriorityHigh
	case score >= 40:
		return PriorityNormal
	default:
		return PriorityLow
	}
}

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskAssigned   TaskStatus = "assigned"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Represents a single pickup or delivery unit of work.
// Tasks are created by intake and move to assigned only through a
// dispatch cycle; completion is recorded by the execution layer.
type Task struct {
	ID               string      `json:"id"`
	Location         Location    `json:"location"`
	RequiredCapacity float64     `json:"required_capacity"`
	Priority         Priority    `json:"priority"`
	CreatedAt        time.Time   `json:"created_at"`
	Status           TaskStatus  `json:"status"`
	TimeWindow       *TimeWindow `json:"time_window,omitempty"`
}

// CanTransition reports whether the task lifecycle permits from -> to.
// assigned -> pending is the rollback path for cancelled assignments.
func CanTransition(from, to TaskStatus) bool {
	switch from {
	case TaskPending:
		return to == TaskAssigned
	case TaskAssigned:
		return to == TaskInProgress || to == TaskPending
	case TaskInProgress:
		return to == TaskCompleted
	}
	return false
}
