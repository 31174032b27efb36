package grades

import (
	"context"
	"errors"
	"fmt"

	"github.com/kbwebsolutions/datasender/internal/lms"
	pkgerrors "github.com/kbwebsolutions/datasender/pkg/errors"
)

const (
	LabelPass = "pass"
	LabelFail = "fail"
)

// Resolver turns raw grade values into the labels the CRM expects: a
// pass/fail verdict against a gradebook threshold, or a scale option when
// the assignment grades on a custom scale.
type Resolver struct {
	repo lms.Repository
}

func NewResolver(repo lms.Repository) (*Resolver, error) {
	if repo == nil {
		return nil, errors.New("lms repository required")
	}
	return &Resolver{repo: repo}, nil
}

// PassFail labels the user's grade for the activity's single gradebook item.
// A grade greater than or equal to the pass threshold is a pass. Exactly one
// grade item must exist for the activity; anything else is a configuration
// fault reported loudly rather than an arbitrary pick.
func (r *Resolver) PassFail(ctx context.Context, courseID int64, module string, instance, userID int64) (string, error) {
	items, err := r.repo.GradeItems(ctx, courseID, module, instance)
	if err != nil {
		return "", err
	}
	if len(items) != 1 {
		return "", pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("expected exactly one grade item for %s %d, found %d", module, instance, len(items)))
	}
	item := items[0]

	grade, err := r.repo.Grade(ctx, item.ID, userID)
	if err != nil {
		return "", err
	}

	if grade.Grade.GreaterThanOrEqual(item.GradePass) {
		return LabelPass, nil
	}
	return LabelFail, nil
}

// AssignmentGrade resolves the candidate's most recent grade on an
// assignment. A negative configured grade means custom scale: its magnitude
// is the scale id and the stored grade is a 1-based index into the scale's
// option list.
func (r *Resolver) AssignmentGrade(ctx context.Context, assignmentID, userID int64) (string, error) {
	latest, err := r.repo.LatestAssignGrade(ctx, assignmentID, userID)
	if err != nil {
		return "", err
	}

	assignment, err := r.repo.Assignment(ctx, assignmentID)
	if err != nil {
		return "", err
	}
	if assignment.Grade >= 0 {
		return latest.Grade.String(), nil
	}

	scale, err := r.repo.Scale(ctx, -assignment.Grade)
	if err != nil {
		return "", err
	}
	options := scale.Options()
	index := int(latest.Grade.IntPart())
	if index < 1 || index > len(options) {
		return "", pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("grade %s is outside scale %d with %d options", latest.Grade, scale.ID, len(options)))
	}
	return options[index-1], nil
}
