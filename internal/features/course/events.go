package course

// Event names published by the course feature.
const (
	EventEnrollmentCreated   = "enrollment:created"
	EventEnrollmentCompleted = "enrollment:completed"
	EventCourseDeleted       = "course:deleted"
)

// Publisher fans domain events out to live listeners.
type Publisher interface {
	Publish(event string, payload interface{})
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(string, interface{}) {}
