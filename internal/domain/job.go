package domain

import "time"

// ContentJob is one generation pass for a topic across several targets.
type ContentJob struct {
	ID          int64
	TopicID     int64
	Targets     []string
	Status      JobStatus
	Attempts    int
	MaxAttempts int
	Error       string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Exhausted reports whether the job may never run again.
func (j ContentJob) Exhausted() bool {
	return j.MaxAttempts > 0 && j.Attempts >= j.MaxAttempts
}

// HasTarget reports whether platform is among the job's targets.
func (j ContentJob) HasTarget(platform string) bool {
	for _, t := range j.Targets {
		if t == platform {
			return true
		}
	}
	return false
}
