package pubsub

const (
	// StartedEvent marks the beginning of a long-running operation
	StartedEvent EventType = "started"
	// ProgressEvent reports an intermediate step
	ProgressEvent EventType = "progress"
	// FallbackEvent reports that a substitute result was used
	FallbackEvent EventType = "fallback"
	// FinishedEvent marks successful completion
	FinishedEvent EventType = "finished"
	// FailedEvent marks a failed operation
	FailedEvent EventType = "failed"
)

type (
	// EventType identifies the kind of event
	EventType string

	// Event is a single typed notification
	Event[T any] struct {
		Type    EventType
		Payload T
	}

	// Publisher fans events out to subscribers
	Publisher[T any] interface {
		Publish(EventType, T)
	}
)
