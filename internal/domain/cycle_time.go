package domain

import "time"

// SLAStatus is the compliance verdict derived from a matter's cycle time.
type SLAStatus string

const (
	SLAMet        SLAStatus = "Met"
	SLABreached   SLAStatus = "Breached"
	SLAInProgress SLAStatus = "In Progress"
)

// StatusTransitionRecord is an append-only log entry written whenever a status field changes.
type StatusTransitionRecord struct {
	ID             int64
	MatterID       string
	StatusFieldID  string
	FromStatusID   *string
	ToStatusID     string
	TransitionedAt time.Time
	// ToTerminal is set when ToStatusID belongs to the terminal status group.
	ToTerminal bool
}

// CycleTime is derived at read time from the transition log.
type CycleTime struct {
	ResolutionTimeMs        int64
	ResolutionTimeFormatted string
	IsInProgress            bool
	StartedAt               *time.Time
	CompletedAt             *time.Time
}

// CycleTimeResult pairs the cycle time with its SLA verdict.
type CycleTimeResult struct {
	CycleTime CycleTime
	SLA       SLAStatus
}
