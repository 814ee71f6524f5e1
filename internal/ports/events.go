package ports

import "context"

const (
	// EventReleaseCreated is emitted after a release is persisted.
	EventReleaseCreated = "release.created"
	// EventReleaseUpdated is emitted after name or schedule changes.
	EventReleaseUpdated = "release.updated"
	// EventReleaseDeleted is emitted after a release and its actions are removed.
	EventReleaseDeleted = "release.deleted"
	// EventReleasePublished is emitted once the publish transaction commits.
	EventReleasePublished = "release.published"
	// EventReleasePublishFailed is emitted when a publish attempt rolled back.
	EventReleasePublishFailed = "release.publish_failed"
	// EventReleaseScheduled is emitted when a publish instant is registered.
	EventReleaseScheduled = "release.scheduled"
	// EventReleaseUnscheduled is emitted when a pending schedule is cleared.
	EventReleaseUnscheduled = "release.unscheduled"
	// EventActionCreated is emitted for every action bundled into a release.
	EventActionCreated = "action.created"
	// EventActionDeleted is emitted when an action leaves its release.
	EventActionDeleted = "action.deleted"
)

// DomainEvent represents a significant occurrence within the domain or
// application layer. Events carry structured payloads that downstream
// subscribers can use for logging or auditing.
type DomainEvent interface {
	EventType() string
	Payload() interface{}
}

// EventPublisher distributes events to interested subscribers. Dispatch is
// synchronous: Publish blocks until all handlers run. Implementations must be
// thread-safe.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
}

// EventHandler processes an event of a specific type. Failures are returned
// so publishers can log them and continue delivering to other subscribers.
type EventHandler func(context.Context, DomainEvent) error

// Subscription represents a registered handler. Callers must invoke
// Unsubscribe to stop receiving events.
type Subscription interface {
	Unsubscribe()
}
