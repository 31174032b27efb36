package enums

import "fmt"

// EventKind identifies the inbound platform event being synchronized.
type EventKind string

const (
	EventQuizAttemptSubmitted EventKind = "quiz_attempt_submitted"
	EventRoleAssigned         EventKind = "role_assigned"
	EventAssessableSubmitted  EventKind = "assessable_submitted"
	EventMarkerUpdated        EventKind = "marker_updated"
	EventWorkflowStateUpdated EventKind = "workflow_state_updated"
	EventSubmissionGraded     EventKind = "submission_graded"
)

var validEventKinds = []EventKind{
	EventQuizAttemptSubmitted,
	EventRoleAssigned,
	EventAssessableSubmitted,
	EventMarkerUpdated,
	EventWorkflowStateUpdated,
	EventSubmissionGraded,
}

// IsValid reports whether the value matches a known event kind.
func (e EventKind) IsValid() bool {
	for _, candidate := range validEventKinds {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEventKind converts raw input into an EventKind.
func ParseEventKind(value string) (EventKind, error) {
	for _, candidate := range validEventKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event kind %q", value)
}

// Queue event names as stored in the queue_records.event column. The quiz
// name keeps its historic embedded space; downstream reporting matches on it.
const (
	QueueEventQuizSubmitted   = "quiz attempt_submitted"
	QueueEventEnrolmentCreate = "user_enrolment_created"
	QueueEventAssessable      = "assessable_submitted"
	QueueEventMarkerUpdated   = "marker_updated"
	QueueEventGrade           = "grade_event"
)
