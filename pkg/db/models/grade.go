package models

import "github.com/shopspring/decimal"

// GradeItem is a gradebook item for an activity. GradePass is the threshold
// used for the pass/fail label on quiz completions.
type GradeItem struct {
	ID           int64           `gorm:"column:id;primaryKey;autoIncrement"`
	CourseID     int64           `gorm:"column:courseid;not null"`
	ItemModule   string          `gorm:"column:itemmodule;not null"`
	ItemInstance int64           `gorm:"column:iteminstance;not null"`
	GradePass    decimal.Decimal `gorm:"column:gradepass;type:numeric(10,5)"`
}

func (GradeItem) TableName() string {
	return "grade_items"
}

// Grade is a user's grade against a gradebook item.
type Grade struct {
	ID     int64           `gorm:"column:id;primaryKey;autoIncrement"`
	ItemID int64           `gorm:"column:itemid;not null"`
	UserID int64           `gorm:"column:userid;not null"`
	Grade  decimal.Decimal `gorm:"column:grade;type:numeric(10,5)"`
}

func (Grade) TableName() string {
	return "grades"
}
