package sync

import (
	"fmt"
	"time"

	"github.com/kbwebsolutions/datasender/pkg/enums"
	pkgerrors "github.com/kbwebsolutions/datasender/pkg/errors"
)

// Event is an inbound platform event, one value per kind. The kind selects
// which optional fields are meaningful: RoleAssignmentID for role_assigned,
// MarkerID for marker_updated, NewState for workflow_state_updated. The
// event source owns these values; the pipeline never mutates them.
type Event struct {
	ID                string
	Kind              enums.EventKind
	CourseID          int64
	RelatedUserID     int64
	ContextInstanceID int64
	OccurredAt        time.Time

	RoleAssignmentID int64
	MarkerID         int64
	NewState         string
}

// Validate checks the invariants every kind shares plus the kind-specific
// required fields.
func (e Event) Validate() error {
	if !e.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown event kind %q", e.Kind))
	}
	if e.CourseID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "course id is required")
	}
	if e.RelatedUserID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "related user id is required")
	}
	if e.OccurredAt.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "event timestamp is required")
	}

	switch e.Kind {
	case enums.EventRoleAssigned:
		if e.RoleAssignmentID <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "role assignment snapshot id is required")
		}
	case enums.EventMarkerUpdated:
		if e.MarkerID <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "marker id is required")
		}
		if e.ContextInstanceID <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "context instance id is required")
		}
	case enums.EventQuizAttemptSubmitted, enums.EventAssessableSubmitted,
		enums.EventWorkflowStateUpdated, enums.EventSubmissionGraded:
		if e.ContextInstanceID <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "context instance id is required")
		}
	}
	return nil
}
