package models

import "github.com/shopspring/decimal"

// Assignment holds the assignment's grading configuration. A negative Grade
// value encodes a custom scale: -Grade is the scale id.
type Assignment struct {
	ID    int64 `gorm:"column:id;primaryKey"`
	Name  string `gorm:"column:name"`
	Grade int64 `gorm:"column:grade;not null"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// AssignGrade is one grading attempt for a candidate on an assignment.
type AssignGrade struct {
	ID            int64           `gorm:"column:id;primaryKey;autoIncrement"`
	AssignmentID  int64           `gorm:"column:assignment;not null"`
	UserID        int64           `gorm:"column:userid;not null"`
	AttemptNumber int             `gorm:"column:attemptnumber;not null;default:0"`
	Grade         decimal.Decimal `gorm:"column:grade;type:numeric(10,5)"`
}

func (AssignGrade) TableName() string {
	return "assign_grades"
}

// UserFlags carries per-candidate marking state for an assignment: the
// allocated marker and the currently persisted workflow state.
type UserFlags struct {
	ID              int64  `gorm:"column:id;primaryKey;autoIncrement"`
	AssignmentID    int64  `gorm:"column:assignment;not null"`
	UserID          int64  `gorm:"column:userid;not null"`
	WorkflowState   string `gorm:"column:workflowstate"`
	AllocatedMarker int64  `gorm:"column:allocatedmarker"`
}

func (UserFlags) TableName() string {
	return "assign_user_flags"
}
