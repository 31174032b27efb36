package lms

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	dbpkg "github.com/kbwebsolutions/datasender/pkg/db"
	"github.com/kbwebsolutions/datasender/pkg/db/models"
	pkgerrors "github.com/kbwebsolutions/datasender/pkg/errors"
)

// Repository exposes the platform lookups the pipeline enriches events with.
// Every miss surfaces as a typed NOT_FOUND error; the pipeline never
// downgrades these.
type Repository interface {
	Course(ctx context.Context, id int64) (*models.Course, error)
	User(ctx context.Context, id int64) (*models.User, error)
	CourseModule(ctx context.Context, courseID, cmID int64) (*models.CourseModule, error)
	CourseRoles(ctx context.Context, courseID, userID int64) ([]models.Role, error)
	RoleAssignment(ctx context.Context, id int64) (*models.RoleAssignment, error)
	Role(ctx context.Context, id int64) (*models.Role, error)
	GradeItems(ctx context.Context, courseID int64, module string, instance int64) ([]models.GradeItem, error)
	Grade(ctx context.Context, itemID, userID int64) (*models.Grade, error)
	Assignment(ctx context.Context, id int64) (*models.Assignment, error)
	LatestAssignGrade(ctx context.Context, assignmentID, userID int64) (*models.AssignGrade, error)
	UserFlags(ctx context.Context, assignmentID, userID int64) (*models.UserFlags, error)
	Scale(ctx context.Context, id int64) (*models.Scale, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a platform repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Course(ctx context.Context, id int64) (*models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, "id = ?", id).Error; err != nil {
		return nil, wrapLookup(err, fmt.Sprintf("course %d", id))
	}
	return &course, nil
}

func (r *repository) User(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, wrapLookup(err, fmt.Sprintf("user %d", id))
	}
	return &user, nil
}

func (r *repository) CourseModule(ctx context.Context, courseID, cmID int64) (*models.CourseModule, error) {
	var cm models.CourseModule
	err := r.db.WithContext(ctx).
		Where("id = ? AND courseid = ?", cmID, courseID).
		First(&cm).Error
	if err != nil {
		return nil, wrapLookup(err, fmt.Sprintf("course module %d in course %d", cmID, courseID))
	}
	return &cm, nil
}

func (r *repository) CourseRoles(ctx context.Context, courseID, userID int64) ([]models.Role, error) {
	var roles []models.Role
	err := r.db.WithContext(ctx).
		Joins("JOIN role_assignments ON role_assignments.roleid = roles.id").
		Where("role_assignments.courseid = ? AND role_assignments.userid = ?", courseID, userID).
		Order("roles.id ASC").
		Find(&roles).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list course roles")
	}
	return roles, nil
}

func (r *repository) RoleAssignment(ctx context.Context, id int64) (*models.RoleAssignment, error) {
	var ra models.RoleAssignment
	if err := r.db.WithContext(ctx).First(&ra, "id = ?", id).Error; err != nil {
		return nil, wrapLookup(err, fmt.Sprintf("role assignment %d", id))
	}
	return &ra, nil
}

func (r *repository) Role(ctx context.Context, id int64) (*models.Role, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).First(&role, "id = ?", id).Error; err != nil {
		return nil, wrapLookup(err, fmt.Sprintf("role %d", id))
	}
	return &role, nil
}

func (r *repository) GradeItems(ctx context.Context, courseID int64, module string, instance int64) ([]models.GradeItem, error) {
	var items []models.GradeItem
	err := r.db.WithContext(ctx).
		Where("courseid = ? AND itemmodule = ? AND iteminstance = ?", courseID, module, instance).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list grade items")
	}
	return items, nil
}

func (r *repository) Grade(ctx context.Context, itemID, userID int64) (*models.Grade, error) {
	var grade models.Grade
	err := r.db.WithContext(ctx).
		Where("itemid = ? AND userid = ?", itemID, userID).
		First(&grade).Error
	if err != nil {
		return nil, wrapLookup(err, fmt.Sprintf("grade for item %d user %d", itemID, userID))
	}
	return &grade, nil
}

func (r *repository) Assignment(ctx context.Context, id int64) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).First(&assignment, "id = ?", id).Error; err != nil {
		return nil, wrapLookup(err, fmt.Sprintf("assignment %d", id))
	}
	return &assignment, nil
}

func (r *repository) LatestAssignGrade(ctx context.Context, assignmentID, userID int64) (*models.AssignGrade, error) {
	var grade models.AssignGrade
	err := r.db.WithContext(ctx).
		Where("assignment = ? AND userid = ?", assignmentID, userID).
		Order("attemptnumber DESC").
		First(&grade).Error
	if err != nil {
		return nil, wrapLookup(err, fmt.Sprintf("assign grade for assignment %d user %d", assignmentID, userID))
	}
	return &grade, nil
}

func (r *repository) UserFlags(ctx context.Context, assignmentID, userID int64) (*models.UserFlags, error) {
	var flags models.UserFlags
	err := r.db.WithContext(ctx).
		Where("assignment = ? AND userid = ?", assignmentID, userID).
		First(&flags).Error
	if err != nil {
		return nil, wrapLookup(err, fmt.Sprintf("user flags for assignment %d user %d", assignmentID, userID))
	}
	return &flags, nil
}

func (r *repository) Scale(ctx context.Context, id int64) (*models.Scale, error) {
	var scale models.Scale
	if err := r.db.WithContext(ctx).First(&scale, "id = ?", id).Error; err != nil {
		return nil, wrapLookup(err, fmt.Sprintf("scale %d", id))
	}
	return &scale, nil
}

func wrapLookup(err error, what string) error {
	if dbpkg.IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, what+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup "+what)
}
