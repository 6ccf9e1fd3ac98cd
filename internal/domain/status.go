package domain

// TopicStatus tracks how far a trending keyword has travelled through the pipeline.
type TopicStatus string

const (
	TopicPending    TopicStatus = "pending"
	TopicProcessing TopicStatus = "processing"
	TopicCompleted  TopicStatus = "completed"
	TopicPublished  TopicStatus = "published"
	TopicFailed     TopicStatus = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s TopicStatus) Terminal() bool {
	return s == TopicCompleted || s == TopicPublished || s == TopicFailed
}

// CanTransition allows only forward moves. A pending topic may jump straight
// to a terminal state (an already-handled topic is advanced without processing).
func (s TopicStatus) CanTransition(to TopicStatus) bool {
	switch s {
	case TopicPending:
		return to == TopicProcessing || to.Terminal()
	case TopicProcessing:
		return to.Terminal()
	default:
		return false
	}
}

// JobStatus enumerates ContentJob milestones.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

func (s JobStatus) CanTransition(to JobStatus) bool {
	switch s {
	case JobPending:
		return to == JobRunning
	case JobRunning:
		return to.Terminal()
	default:
		return false
	}
}

// OutputStatus enumerates ContentOutput milestones.
type OutputStatus string

const (
	OutputDraft     OutputStatus = "draft"
	OutputReady     OutputStatus = "ready"
	OutputPublished OutputStatus = "published"
)

func (s OutputStatus) Terminal() bool {
	return s == OutputPublished
}

func (s OutputStatus) CanTransition(to OutputStatus) bool {
	switch s {
	case OutputDraft:
		return to == OutputReady || to == OutputPublished
	case OutputReady:
		return to == OutputPublished
	default:
		return false
	}
}

// PublishStatus enumerates delivery outcomes.
type PublishStatus string

const (
	PublishPending   PublishStatus = "pending"
	PublishPublished PublishStatus = "published"
	PublishFailed    PublishStatus = "failed"
)

func (s PublishStatus) Terminal() bool {
	return s == PublishPublished || s == PublishFailed
}

func (s PublishStatus) CanTransition(to PublishStatus) bool {
	return s == PublishPending && to.Terminal()
}
