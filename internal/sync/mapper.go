package sync

import (
	"context"
	"fmt"

	"github.com/kbwebsolutions/datasender/internal/grades"
	"github.com/kbwebsolutions/datasender/internal/lms"
	"github.com/kbwebsolutions/datasender/pkg/db/models"
	"github.com/kbwebsolutions/datasender/pkg/enums"
	pkgerrors "github.com/kbwebsolutions/datasender/pkg/errors"
)

const (
	pathQuiz          = "/sobjects/Quiz__c"
	pathEnrolment     = "/sobjects/Enrolment__c"
	pathAssessment    = "/sobjects/Assessment__c"
	pathAssessmentKey = "/sobjects/Assessment__c/Assessment_ID__c/"
)

// Dispatch is a fully resolved outbound record: what to persist, where to
// send it, and the line to log once it has been handled.
type Dispatch struct {
	QueueEvent string
	Record     any
	Path       string
	Method     enums.DispatchMethod
	LogLine    string
}

// Mapper turns platform events into CRM dispatches. A nil, nil return means
// the event is out of scope and must be discarded without a trace in the
// queue.
type Mapper struct {
	repo    lms.Repository
	grades  *grades.Resolver
	wwwroot string
}

func NewMapper(repo lms.Repository, resolver *grades.Resolver, wwwroot string) (*Mapper, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "lms repository is required")
	}
	if resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "grade resolver is required")
	}
	if wwwroot == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "lms wwwroot is required")
	}
	return &Mapper{repo: repo, grades: resolver, wwwroot: wwwroot}, nil
}

func (m *Mapper) Map(ctx context.Context, ev Event) (*Dispatch, error) {
	switch ev.Kind {
	case enums.EventQuizAttemptSubmitted:
		return m.mapQuizAttempt(ctx, ev)
	case enums.EventRoleAssigned:
		return m.mapRoleAssigned(ctx, ev)
	case enums.EventAssessableSubmitted:
		return m.mapAssessable(ctx, ev)
	case enums.EventMarkerUpdated:
		return m.mapMarkerUpdated(ctx, ev)
	case enums.EventWorkflowStateUpdated, enums.EventSubmissionGraded:
		return m.mapGradeEvent(ctx, ev)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unmapped event kind %q", ev.Kind))
	}
}

func (m *Mapper) mapQuizAttempt(ctx context.Context, ev Event) (*Dispatch, error) {
	course, err := m.repo.Course(ctx, ev.CourseID)
	if err != nil {
		return nil, err
	}
	if course.IDNumber == "" {
		return nil, nil
	}
	user, err := m.repo.User(ctx, ev.RelatedUserID)
	if err != nil {
		return nil, err
	}
	roles, err := m.repo.CourseRoles(ctx, course.ID, user.ID)
	if err != nil {
		return nil, err
	}
	if !eligible(course, roles, requiredRole) {
		return nil, nil
	}
	quiz, err := m.courseModule(ctx, ev, "quiz")
	if err != nil {
		return nil, err
	}
	gradeSent, err := m.grades.PassFail(ctx, course.ID, "quiz", quiz.Instance, user.ID)
	if err != nil {
		return nil, err
	}

	record := QuizRecord{
		Course:         course.IDNumber,
		Candidate:      APIRef{APIID: user.Username},
		Title:          quiz.Name,
		CompletionDate: formatTimestamp(ev.OccurredAt),
		QuizURL:        fmt.Sprintf("%s/mod/quiz/view.php?id=%d", m.wwwroot, ev.ContextInstanceID),
		QuizID:         quiz.IDNumber,
		Grade:          gradeSent,
	}
	logLine := fmt.Sprintf("attempt_submitted event by user: %s for Quiz: %s on course:%s gradesent:%s quiz idnumber:%s",
		user.Username, quiz.Name, course.ShortName, gradeSent, quiz.IDNumber)

	return &Dispatch{
		QueueEvent: enums.QueueEventQuizSubmitted,
		Record:     record,
		Path:       pathQuiz,
		Method:     enums.DispatchPostJSON,
		LogLine:    logLine,
	}, nil
}

func (m *Mapper) mapRoleAssigned(ctx context.Context, ev Event) (*Dispatch, error) {
	course, err := m.repo.Course(ctx, ev.CourseID)
	if err != nil {
		return nil, err
	}
	if course.IDNumber == "" {
		return nil, nil
	}
	// The role comes from the assignment snapshot, not the user's current
	// role set: the event may describe a second role added later.
	snapshot, err := m.repo.RoleAssignment(ctx, ev.RoleAssignmentID)
	if err != nil {
		return nil, err
	}
	role, err := m.repo.Role(ctx, snapshot.RoleID)
	if err != nil {
		return nil, err
	}
	if role.ShortName != requiredRole {
		return nil, nil
	}
	user, err := m.repo.User(ctx, ev.RelatedUserID)
	if err != nil {
		return nil, err
	}

	record := EnrolmentRecord{
		Candidate:       APIRef{APIID: user.Username},
		Course:          course.IDNumber,
		DateOfEnrolment: formatTimestamp(ev.OccurredAt),
	}
	logLine := fmt.Sprintf("user_enrolment_created event for user:%s on course:%s", user.Username, course.ShortName)

	return &Dispatch{
		QueueEvent: enums.QueueEventEnrolmentCreate,
		Record:     record,
		Path:       pathEnrolment,
		Method:     enums.DispatchPostJSON,
		LogLine:    logLine,
	}, nil
}

func (m *Mapper) mapAssessable(ctx context.Context, ev Event) (*Dispatch, error) {
	course, err := m.repo.Course(ctx, ev.CourseID)
	if err != nil {
		return nil, err
	}
	if course.IDNumber == "" {
		return nil, nil
	}
	user, err := m.repo.User(ctx, ev.RelatedUserID)
	if err != nil {
		return nil, err
	}
	roles, err := m.repo.CourseRoles(ctx, course.ID, user.ID)
	if err != nil {
		return nil, err
	}
	if !eligible(course, roles, requiredRole) {
		return nil, nil
	}
	assign, err := m.courseModule(ctx, ev, "assign")
	if err != nil {
		return nil, err
	}

	record := AssessmentRecord{
		Candidate:      APIRef{APIID: user.Username},
		Course:         course.IDNumber,
		AssessmentID:   compositeAssessmentID(user.Username, assign.IDNumber),
		Title:          assign.Name,
		AssessmentURL:  fmt.Sprintf("%s/mod/assign/view.php?id=%d", m.wwwroot, ev.ContextInstanceID),
		SubmissionDate: formatTimestamp(ev.OccurredAt),
	}
	logLine := fmt.Sprintf("assessable submitted event user: %s course:%s", user.Username, course.ShortName)

	return &Dispatch{
		QueueEvent: enums.QueueEventAssessable,
		Record:     record,
		Path:       pathAssessment,
		Method:     enums.DispatchPostJSON,
		LogLine:    logLine,
	}, nil
}

func (m *Mapper) mapMarkerUpdated(ctx context.Context, ev Event) (*Dispatch, error) {
	course, err := m.repo.Course(ctx, ev.CourseID)
	if err != nil {
		return nil, err
	}
	if course.IDNumber == "" {
		return nil, nil
	}
	candidate, err := m.repo.User(ctx, ev.RelatedUserID)
	if err != nil {
		return nil, err
	}
	assign, err := m.courseModule(ctx, ev, "assign")
	if err != nil {
		return nil, err
	}
	assessor, err := m.repo.User(ctx, ev.MarkerID)
	if err != nil {
		return nil, err
	}

	record := AssessorUpdate{Assessor: APIRef{APIID: assessor.Username}}
	logLine := fmt.Sprintf("marker_updated event candidate: %s marker:%s course:%s assign:%s",
		candidate.Username, assessor.Username, course.ShortName, assign.Name)

	return &Dispatch{
		QueueEvent: enums.QueueEventMarkerUpdated,
		Record:     record,
		Path:       pathAssessmentKey + compositeAssessmentID(candidate.Username, assign.IDNumber),
		Method:     enums.DispatchPatch,
		LogLine:    logLine,
	}, nil
}

// mapGradeEvent serves both workflow_state_updated and submission_graded;
// the two differ only in whether the event carries a new workflow state.
func (m *Mapper) mapGradeEvent(ctx context.Context, ev Event) (*Dispatch, error) {
	course, err := m.repo.Course(ctx, ev.CourseID)
	if err != nil {
		return nil, err
	}
	if course.IDNumber == "" {
		return nil, nil
	}
	candidate, err := m.repo.User(ctx, ev.RelatedUserID)
	if err != nil {
		return nil, err
	}
	assign, err := m.courseModule(ctx, ev, "assign")
	if err != nil {
		return nil, err
	}
	assignedGrade, err := m.grades.AssignmentGrade(ctx, assign.Instance, candidate.ID)
	if err != nil {
		return nil, err
	}
	flags, err := m.repo.UserFlags(ctx, assign.Instance, candidate.ID)
	if err != nil {
		return nil, err
	}
	assessor, err := m.repo.User(ctx, flags.AllocatedMarker)
	if err != nil {
		return nil, err
	}

	state := ev.NewState
	if state == "" {
		state = flags.WorkflowState
	}
	// Unknown states leave the workflow field off the record entirely.
	label, _ := enums.WorkflowState(state).Label()

	record := GradeRecord{
		AssignedGrade:  assignedGrade,
		Assessor:       APIRef{APIID: assessor.Username},
		Course:         course.IDNumber,
		WorkflowStatus: label,
	}
	logLine := fmt.Sprintf("%s  :%s user:%s assignment:%s course:%s",
		ev.Kind, state, candidate.Username, assign.Name, course.ShortName)

	return &Dispatch{
		QueueEvent: enums.QueueEventGrade,
		Record:     record,
		Path:       pathAssessmentKey + compositeAssessmentID(candidate.Username, assign.IDNumber),
		Method:     enums.DispatchPatch,
		LogLine:    logLine,
	}, nil
}

func (m *Mapper) courseModule(ctx context.Context, ev Event, module string) (*models.CourseModule, error) {
	cm, err := m.repo.CourseModule(ctx, ev.CourseID, ev.ContextInstanceID)
	if err != nil {
		return nil, err
	}
	if cm.Module != module {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("course module %d is a %s activity, expected %s", cm.ID, cm.Module, module))
	}
	return cm, nil
}
